package app

import "fmt"

// DefaultPassThreshold is the benchmark score shown on the results screen.
const DefaultPassThreshold = 70

// Benchmark is the pass/fail badge policy layered over the score.
type Benchmark struct {
	Threshold int
}

func (b Benchmark) Passed(score int) bool {
	return score >= b.Threshold
}

func (b Benchmark) Verdict(score int) string {
	if b.Passed(score) {
		return fmt.Sprintf("Pass benchmark (%d%%)", b.Threshold)
	}
	return "Below benchmark"
}

// FormatClock renders seconds as m:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
