package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cps-exam-service/internal/app"
	"cps-exam-service/internal/config"
	"cps-exam-service/internal/domain"
	"cps-exam-service/internal/logger"
	"github.com/spf13/cobra"
)

// NewPracticeCmd runs one timed attempt in the terminal.
func NewPracticeCmd(configPath *string) *cobra.Command {
	var examID, userID string
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Take a practice exam in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			// keep log lines off the exam screen unless asked for
			if cfg.Log.Level == "" {
				cfg.Log.Level = "warn"
			}
			log := logger.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)

			d, err := buildDeps(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer d.Close()

			service := app.NewExamService(d.sessions, d.exams, d.attempts, serviceOptions(cfg, log))
			return newPractice(service, cmd.InOrStdin(), cmd.OutOrStdout()).run(ctx, examID, userID)
		},
	}
	cmd.Flags().StringVar(&examID, "exam", "cps-practice", "exam id to take")
	cmd.Flags().StringVar(&userID, "user", "local", "user id recorded with the attempt")
	return cmd
}

const practiceHelp = "commands: 1-n select, n next, p previous, f flag, r review, j <k> jump, b back to exam, s submit/results, x restart, q quit"

// practice drives an ExamService from line-oriented input.
type practice struct {
	service *app.ExamService
	in      *bufio.Scanner
	out     io.Writer
}

func newPractice(service *app.ExamService, in io.Reader, out io.Writer) *practice {
	return &practice{service: service, in: bufio.NewScanner(in), out: out}
}

func (p *practice) run(ctx context.Context, examID, userID string) error {
	view, err := p.service.Start(ctx, examID, userID)
	if err != nil {
		return err
	}
	attemptID := view.AttemptID
	defer func() { p.service.Abandon(context.Background(), attemptID) }()

	fmt.Fprintln(p.out, practiceHelp)
	p.render(view)

	for {
		line, ok := p.readLine("> ")
		if !ok {
			return p.in.Err()
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "q" {
			fmt.Fprintln(p.out, "bye")
			return nil
		}

		result, err := p.dispatch(ctx, attemptID, fields)
		switch {
		case errors.Is(err, errUnknownCommand):
			fmt.Fprintln(p.out, practiceHelp)
			continue
		case err != nil:
			fmt.Fprintf(p.out, "error: %v\n", err)
			continue
		}

		switch result.Outcome {
		case domain.OutcomeDeclined:
			fmt.Fprintln(p.out, "Submission cancelled.")
		case domain.OutcomeNoop:
			fmt.Fprintln(p.out, "Nothing to do.")
		}
		if result.View.AttemptID != "" {
			attemptID = result.View.AttemptID
		}
		p.render(result.View)
	}
}

var errUnknownCommand = errors.New("unknown command")

func (p *practice) dispatch(ctx context.Context, attemptID string, fields []string) (domain.TransitionResult, error) {
	cmd := fields[0]
	if n, err := strconv.Atoi(cmd); err == nil {
		return p.service.Select(ctx, attemptID, n-1)
	}
	switch cmd {
	case "n":
		return p.service.NextWith(ctx, attemptID, p.confirm)
	case "p":
		return p.service.Previous(ctx, attemptID)
	case "f":
		return p.service.ToggleFlag(ctx, attemptID)
	case "r":
		return p.service.EnterReview(ctx, attemptID)
	case "j":
		if len(fields) < 2 {
			return domain.TransitionResult{}, errUnknownCommand
		}
		k, err := strconv.Atoi(fields[1])
		if err != nil {
			return domain.TransitionResult{}, errUnknownCommand
		}
		return p.service.JumpTo(ctx, attemptID, k-1)
	case "b":
		return p.service.ReturnToExam(ctx, attemptID)
	case "s":
		view, err := p.service.View(ctx, attemptID)
		if err != nil {
			return domain.TransitionResult{}, err
		}
		if view.Mode == domain.ModeReview {
			return p.service.ViewResultsWith(ctx, attemptID, p.confirm)
		}
		return p.service.FinishWith(ctx, attemptID, p.confirm)
	case "x":
		return p.service.Restart(ctx, attemptID)
	default:
		return domain.TransitionResult{}, errUnknownCommand
	}
}

// confirm is the synchronous confirmation port, read from the same input.
func (p *practice) confirm(unanswered int) bool {
	answer, ok := p.readLine(fmt.Sprintf("%d question(s) unanswered. Submit anyway? [y/N] ", unanswered))
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func (p *practice) readLine(prompt string) (string, bool) {
	fmt.Fprint(p.out, prompt)
	if !p.in.Scan() {
		fmt.Fprintln(p.out)
		return "", false
	}
	return p.in.Text(), true
}

func (p *practice) render(v domain.SessionView) {
	w := p.out
	fmt.Fprintln(w)
	switch v.Mode {
	case domain.ModeResults:
		if v.TimeUp {
			fmt.Fprintln(w, "Time is up.")
		}
		fmt.Fprintf(w, "Score: %d%%  %s\n", v.Score, v.Verdict)
		fmt.Fprintf(w, "Answered %d of %d, time remaining %s\n",
			len(v.Answered), v.TotalQuestions, app.FormatClock(v.TimeRemaining))
		fmt.Fprintln(w, "r review answers, x restart, q quit")
		return
	case domain.ModeReview:
		fmt.Fprintf(w, "REVIEW  Question %d/%d", v.Position+1, v.TotalQuestions)
	default:
		fmt.Fprintf(w, "Question %d/%d  %s left", v.Position+1, v.TotalQuestions, app.FormatClock(v.TimeRemaining))
	}
	if v.Question.Category != "" {
		fmt.Fprintf(w, "  [%s]", v.Question.Category)
	}
	if isFlagged(v) {
		fmt.Fprint(w, "  (flagged)")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, v.Question.Prompt)

	for i, opt := range v.Question.Options {
		mark := " "
		if v.Pending != nil && *v.Pending == i {
			mark = ">"
		}
		if v.Mode == domain.ModeReview && v.Selected != nil && *v.Selected == i {
			mark = ">"
		}
		suffix := ""
		if v.Question.CorrectAnswerIndex != nil && *v.Question.CorrectAnswerIndex == i {
			suffix = "  (correct)"
		}
		fmt.Fprintf(w, "%s %d) %s%s\n", mark, i+1, opt, suffix)
	}
	if v.Mode == domain.ModeReview && v.Question.Explanation != "" {
		fmt.Fprintln(w, v.Question.Explanation)
	}
}

func isFlagged(v domain.SessionView) bool {
	for _, id := range v.Flagged {
		if id == v.Question.ID {
			return true
		}
	}
	return false
}
