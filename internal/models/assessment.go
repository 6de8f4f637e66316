package models

import (
	"fmt"
	"time"
)

// Assessment is an ordered set of questions owned by exactly one parent,
// either a course or a lesson. Question order matters for display only, never
// for scoring.
type Assessment struct {
	ID               string     `bson:"_id,omitempty" json:"id"`
	Title            string     `bson:"title" json:"title" validate:"required"`
	CourseID         string     `bson:"course_id,omitempty" json:"course_id,omitempty"`
	LessonID         string     `bson:"lesson_id,omitempty" json:"lesson_id,omitempty"`
	Questions        []Question `bson:"questions" json:"questions"`
	IsMandatory      bool       `bson:"is_mandatory" json:"is_mandatory"`
	MinPassingScore  int        `bson:"min_passing_score" json:"min_passing_score" validate:"min=0,max=100"`
	MaxAttempts      *int       `bson:"max_attempts,omitempty" json:"max_attempts,omitempty"`
	TimeLimitMinutes *int       `bson:"time_limit_minutes,omitempty" json:"time_limit_minutes,omitempty"`
	CreatedAt        time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `bson:"updated_at" json:"updated_at"`
}

func (a *Assessment) Validate() error {
	if (a.CourseID == "") == (a.LessonID == "") {
		return fmt.Errorf("assessment needs exactly one parent, course or lesson")
	}
	if a.MinPassingScore < 0 || a.MinPassingScore > 100 {
		return fmt.Errorf("minimum passing score must be between 0 and 100, got %d", a.MinPassingScore)
	}
	if a.MaxAttempts != nil && *a.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive when set, got %d", *a.MaxAttempts)
	}
	if a.TimeLimitMinutes != nil && *a.TimeLimitMinutes <= 0 {
		return fmt.Errorf("time limit must be positive when set, got %d", *a.TimeLimitMinutes)
	}
	for i := range a.Questions {
		if err := a.Questions[i].Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}
	return nil
}

func (a *Assessment) TotalPoints() int {
	total := 0
	for _, q := range a.Questions {
		total += q.Points
	}
	return total
}

// HasManualQuestions reports whether any question needs instructor grading,
// which keeps a submitted attempt out of the graded state until manual grades
// arrive.
func (a *Assessment) HasManualQuestions() bool {
	for _, q := range a.Questions {
		if q.Type.ManuallyGraded() {
			return true
		}
	}
	return false
}
