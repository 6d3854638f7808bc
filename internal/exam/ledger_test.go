package exam

import (
	"errors"
	"testing"

	"cps-exam-service/internal/domain"
)

func TestLedgerDerivesCorrectness(t *testing.T) {
	q := sampleQuestions()[0]
	ledger := NewLedger()

	a, err := ledger.Commit(q, 1)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if a.IsCorrect {
		t.Fatalf("expected option 1 to be wrong")
	}

	a, err = ledger.Commit(q, q.CorrectAnswerIndex)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !a.IsCorrect {
		t.Fatalf("expected correct answer after overwrite")
	}
	got, ok := ledger.Get(q.ID)
	if !ok || got != a || ledger.Len() != 1 {
		t.Fatalf("expected single overwritten entry, got %+v (len %d)", got, ledger.Len())
	}
}

func TestLedgerCommitIsIdempotent(t *testing.T) {
	q := sampleQuestions()[1]
	ledger := NewLedger()

	if _, err := ledger.Commit(q, 0); err != nil {
		t.Fatalf("commit: %v", err)
	}
	before := ledger.Snapshot()
	if _, err := ledger.Commit(q, 0); err != nil {
		t.Fatalf("commit again: %v", err)
	}
	after := ledger.Snapshot()
	if len(before) != len(after) || before[q.ID] != after[q.ID] {
		t.Fatalf("expected unchanged ledger, before=%+v after=%+v", before, after)
	}
}

func TestLedgerRejectsOutOfRangeOption(t *testing.T) {
	q := sampleQuestions()[0]
	ledger := NewLedger()

	for _, option := range []int{-1, len(q.Options)} {
		if _, err := ledger.Commit(q, option); !errors.Is(err, domain.ErrOptionOutOfRange) {
			t.Fatalf("option %d: expected out of range error, got %v", option, err)
		}
	}
	if _, ok := ledger.Get(q.ID); ok {
		t.Fatalf("expected no entry after rejected commits")
	}
}

func TestLedgerGetAbsent(t *testing.T) {
	if _, ok := NewLedger().Get("missing"); ok {
		t.Fatalf("expected absent answer")
	}
}

func TestFlagSetToggle(t *testing.T) {
	flags := NewFlagSet()
	if !flags.Toggle("q2") || !flags.IsFlagged("q2") {
		t.Fatalf("expected q2 flagged")
	}
	flags.Toggle("q1")
	if ids := flags.IDs(); len(ids) != 2 || ids[0] != "q1" || ids[1] != "q2" {
		t.Fatalf("expected sorted ids, got %v", ids)
	}
	if flags.Toggle("q2") || flags.IsFlagged("q2") {
		t.Fatalf("expected q2 unflagged")
	}
}

func TestBankValidation(t *testing.T) {
	if _, err := NewBank(nil); !errors.Is(err, domain.ErrInvalidQuestion) {
		t.Fatalf("expected empty bank to fail, got %v", err)
	}

	dup := sampleQuestions()
	dup[2].ID = "q1"
	if _, err := NewBank(dup); !errors.Is(err, domain.ErrInvalidQuestion) {
		t.Fatalf("expected duplicate id to fail, got %v", err)
	}

	few := sampleQuestions()
	few[0].Options = []string{"only"}
	if _, err := NewBank(few); !errors.Is(err, domain.ErrInvalidQuestion) {
		t.Fatalf("expected single option to fail, got %v", err)
	}

	badIndex := sampleQuestions()
	badIndex[1].CorrectAnswerIndex = 4
	if _, err := NewBank(badIndex); !errors.Is(err, domain.ErrInvalidQuestion) {
		t.Fatalf("expected bad correct index to fail, got %v", err)
	}
}

func TestBankIsolatedFromCaller(t *testing.T) {
	questions := sampleQuestions()
	bank, err := NewBank(questions)
	if err != nil {
		t.Fatalf("new bank: %v", err)
	}
	questions[0].Options[0] = "mutated"
	questions[0].ID = "changed"

	if bank.At(0).ID != "q1" || bank.At(0).Options[0] != "30 PSI" {
		t.Fatalf("bank changed with caller slice: %+v", bank.At(0))
	}
	if bank.At(2).ID != "q3" || bank.Len() != 3 {
		t.Fatalf("expected q3 last of 3, got %s of %d", bank.At(2).ID, bank.Len())
	}
}
