package scoring

import (
	"math"
	"time"

	"assessment-service/internal/models"
)

// Correctness is the tri-state outcome of evaluating one answer. Unknown means
// the answer needs an instructor before it counts either way.
type Correctness string

const (
	Correct   Correctness = "correct"
	Incorrect Correctness = "incorrect"
	Unknown   Correctness = "unknown"
)

// Outcome is the result of evaluating one question against one answer.
type Outcome struct {
	Correctness  Correctness
	PointsEarned int
}

// Evaluate scores a single submitted answer against the question snapshot. It
// is a pure function: no lookups, no side effects, never panics on missing
// input.
//
// Multiple choice and true/false compare the canonical option value with
// case-sensitive equality, full points or nothing. Short answer and essay are
// returned as Unknown with zero points until an instructor grades them; fuzzy
// matching of free text is deliberately not attempted here.
func Evaluate(q models.Question, answer string) Outcome {
	if answer == "" {
		return Outcome{Correctness: Incorrect}
	}
	switch q.Type {
	case models.QuestionMultipleChoice, models.QuestionTrueFalse:
		if answer == q.CorrectAnswer {
			return Outcome{Correctness: Correct, PointsEarned: q.Points}
		}
		return Outcome{Correctness: Incorrect}
	case models.QuestionShortAnswer, models.QuestionEssay:
		return Outcome{Correctness: Unknown}
	default:
		return Outcome{Correctness: Incorrect}
	}
}

// Aggregate is the roll-up of every per-question result in an attempt.
type Aggregate struct {
	PointsEarned  int
	TotalPoints   int
	Score         int
	PendingManual int
}

// FullyGraded reports whether every question has a definite result.
func (a Aggregate) FullyGraded() bool {
	return a.PendingManual == 0
}

// GradeAnswers produces a fresh answer set and aggregate for an attempt. The
// result is derived entirely from the question snapshot and the stored
// answers, never accumulated incrementally, so regrading is idempotent.
//
// Missing answers score as incorrect with zero points. Manual grades already
// applied are preserved as-is; automatic evaluation never overwrites them.
func GradeAnswers(questions []models.Question, answers map[string]models.AttemptAnswer, now time.Time) (map[string]models.AttemptAnswer, Aggregate) {
	graded := make(map[string]models.AttemptAnswer, len(questions))
	agg := Aggregate{}

	for _, q := range questions {
		agg.TotalPoints += q.Points

		ans, ok := answers[q.ID]
		if !ok {
			incorrect := false
			graded[q.ID] = models.AttemptAnswer{
				QuestionID:    q.ID,
				StudentAnswer: "",
				IsCorrect:     &incorrect,
				PointsEarned:  0,
				UpdatedAt:     now,
			}
			continue
		}

		if ans.ManuallyGraded {
			graded[q.ID] = ans
			agg.PointsEarned += ans.PointsEarned
			if ans.IsCorrect == nil {
				agg.PendingManual++
			}
			continue
		}

		outcome := Evaluate(q, ans.StudentAnswer)
		ans.PointsEarned = outcome.PointsEarned
		switch outcome.Correctness {
		case Correct:
			v := true
			ans.IsCorrect = &v
		case Incorrect:
			v := false
			ans.IsCorrect = &v
		case Unknown:
			ans.IsCorrect = nil
			agg.PendingManual++
		}
		graded[q.ID] = ans
		agg.PointsEarned += ans.PointsEarned
	}

	agg.Score = Percentage(agg.PointsEarned, agg.TotalPoints)
	return graded, agg
}

// Percentage computes round(earned/total*100), with an empty assessment
// scoring zero.
func Percentage(earned, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(earned) / float64(total) * 100))
}
