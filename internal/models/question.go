package models

import "fmt"

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionEssay          QuestionType = "essay"
)

// AutoGradable reports whether answers of this type can be scored without an
// instructor.
func (t QuestionType) AutoGradable() bool {
	return t == QuestionMultipleChoice || t == QuestionTrueFalse
}

// ManuallyGraded reports whether this type requires instructor grading.
func (t QuestionType) ManuallyGraded() bool {
	return t == QuestionShortAnswer || t == QuestionEssay
}

// Question is one assessable unit. It is immutable once an attempt embeds it:
// attempts snapshot their questions at start time, so later edits never change
// a graded attempt.
type Question struct {
	ID              string       `bson:"_id,omitempty" json:"id"`
	Type            QuestionType `bson:"type" json:"type" validate:"required,oneof=multiple_choice true_false short_answer essay"`
	Text            string       `bson:"text" json:"text" validate:"required"`
	Options         []string     `bson:"options,omitempty" json:"options,omitempty"`
	CorrectAnswer   string       `bson:"correct_answer,omitempty" json:"correct_answer,omitempty"`
	AcceptedAnswers []string     `bson:"accepted_answers,omitempty" json:"accepted_answers,omitempty"`
	Explanation     string       `bson:"explanation,omitempty" json:"explanation,omitempty"`
	Points          int          `bson:"points" json:"points" validate:"required,gt=0"`
	DifficultyLevel int          `bson:"difficulty_level" json:"difficulty_level" validate:"min=1,max=5"`
	Topics          []string     `bson:"topics,omitempty" json:"topics,omitempty"`
}

// Validate enforces the invariants that struct tags cannot express. Generated
// questions go through the same checks before acceptance; invalid ones are
// rejected, never coerced.
func (q *Question) Validate() error {
	switch q.Type {
	case QuestionMultipleChoice:
		if len(q.Options) < 2 {
			return fmt.Errorf("multiple_choice question needs at least 2 options, got %d", len(q.Options))
		}
		if q.CorrectAnswer == "" {
			return fmt.Errorf("multiple_choice question needs a correct answer")
		}
		if !containsString(q.Options, q.CorrectAnswer) {
			return fmt.Errorf("correct answer %q is not one of the options", q.CorrectAnswer)
		}
	case QuestionTrueFalse:
		if q.CorrectAnswer != "true" && q.CorrectAnswer != "false" {
			return fmt.Errorf("true_false question needs correct answer \"true\" or \"false\", got %q", q.CorrectAnswer)
		}
	case QuestionShortAnswer, QuestionEssay:
		// Free-text types are graded manually; no correct answer required.
	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}
	if q.Text == "" {
		return fmt.Errorf("question text is required")
	}
	if q.Points <= 0 {
		return fmt.Errorf("question points must be positive, got %d", q.Points)
	}
	if q.DifficultyLevel < 1 || q.DifficultyLevel > 5 {
		return fmt.Errorf("difficulty level must be between 1 and 5, got %d", q.DifficultyLevel)
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
