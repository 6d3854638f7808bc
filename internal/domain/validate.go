package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateExam checks loaded exam content before it can back a session.
func ValidateExam(exam Exam) error {
	if err := validate.Struct(exam); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			fields := make([]string, 0, len(ve))
			for _, fe := range ve {
				fields = append(fields, fe.Namespace()+" "+fe.Tag())
			}
			return fmt.Errorf("%w %s: %s", ErrInvalidExam, exam.ID, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w %s: %v", ErrInvalidExam, exam.ID, err)
	}
	for _, q := range exam.Questions {
		if q.CorrectAnswerIndex >= len(q.Options) {
			return fmt.Errorf("%w %s: question %s correct index %d with %d options",
				ErrInvalidExam, exam.ID, q.ID, q.CorrectAnswerIndex, len(q.Options))
		}
	}
	return nil
}
