package generation

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"assessment-service/internal/models"
)

var validate = validator.New()

// ValidateRequest checks a generation request at the boundary before anything
// is sent to the collaborator.
func ValidateRequest(req Request) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid generation request: %w", err)
	}
	for _, t := range req.Types {
		switch t {
		case models.QuestionMultipleChoice, models.QuestionTrueFalse, models.QuestionShortAnswer, models.QuestionEssay:
		default:
			return fmt.Errorf("invalid generation request: unknown question type %q", t)
		}
	}
	return nil
}

// ValidateQuestions checks generated output against the question model
// invariants: auto-gradable types need a non-empty correct answer, points must
// be positive, difficulty in range. Any invalid question rejects the whole
// batch; generated output is never coerced into shape.
func ValidateQuestions(questions []models.Question) error {
	if len(questions) == 0 {
		return fmt.Errorf("generator returned no questions")
	}
	for i := range questions {
		q := &questions[i]
		if err := validate.Struct(q); err != nil {
			return fmt.Errorf("generated question %d rejected: %w", i, err)
		}
		if err := q.Validate(); err != nil {
			return fmt.Errorf("generated question %d rejected: %w", i, err)
		}
		if q.Type.AutoGradable() && q.CorrectAnswer == "" {
			return fmt.Errorf("generated question %d rejected: auto-gradable type without correct answer", i)
		}
	}
	return nil
}
