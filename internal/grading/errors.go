package grading

import (
	"errors"
	"fmt"
)

// ErrQuestionCountMismatch matches every *QuestionCountMismatchError.
var ErrQuestionCountMismatch = errors.New("answer count does not match the answer key")

// QuestionCountMismatchError reports an extraction whose length differs from
// the answer key. Answers are never padded or truncated to fit.
type QuestionCountMismatchError struct {
	Expected int
	Got      int
}

func (e *QuestionCountMismatchError) Error() string {
	return fmt.Sprintf("%s: key has %d questions, got %d answers", ErrQuestionCountMismatch, e.Expected, e.Got)
}

func (e *QuestionCountMismatchError) Unwrap() error { return ErrQuestionCountMismatch }
