package models

import "time"

type AttemptStatus string

const (
	AttemptInProgressStatus AttemptStatus = "in_progress"
	AttemptSubmitted        AttemptStatus = "submitted"
	AttemptGraded           AttemptStatus = "graded"
	AttemptExpired          AttemptStatus = "expired"
)

// AttemptAnswer is one submitted answer inside an attempt. IsCorrect stays nil
// for essay and short answer items until an instructor grades them.
type AttemptAnswer struct {
	QuestionID     string    `bson:"question_id" json:"question_id"`
	StudentAnswer  string    `bson:"student_answer" json:"student_answer"`
	IsCorrect      *bool     `bson:"is_correct,omitempty" json:"is_correct,omitempty"`
	PointsEarned   int       `bson:"points_earned" json:"points_earned"`
	Feedback       string    `bson:"feedback,omitempty" json:"feedback,omitempty"`
	ManuallyGraded bool      `bson:"manually_graded" json:"manually_graded"`
	GradedBy       string    `bson:"graded_by,omitempty" json:"graded_by,omitempty"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

// AssessmentAttempt is one complete try at an assessment by one student.
// Questions is a snapshot taken at start time; grading always runs against the
// snapshot so assessment edits never retroactively change results.
type AssessmentAttempt struct {
	ID            string                   `bson:"_id,omitempty" json:"id"`
	AssessmentID  string                   `bson:"assessment_id" json:"assessment_id"`
	StudentID     string                   `bson:"student_id" json:"student_id"`
	AttemptNumber int                      `bson:"attempt_number" json:"attempt_number"`
	Questions     []Question               `bson:"questions" json:"questions"`
	Answers       map[string]AttemptAnswer `bson:"answers" json:"answers"`
	Status        AttemptStatus            `bson:"status" json:"status"`

	StartedAt   time.Time  `bson:"started_at" json:"started_at"`
	DeadlineAt  *time.Time `bson:"deadline_at,omitempty" json:"deadline_at,omitempty"`
	SubmittedAt *time.Time `bson:"submitted_at,omitempty" json:"submitted_at,omitempty"`
	GradedAt    *time.Time `bson:"graded_at,omitempty" json:"graded_at,omitempty"`

	TimeSpentSeconds int  `bson:"time_spent_seconds" json:"time_spent_seconds"`
	Late             bool `bson:"late" json:"late"`

	PointsEarned int   `bson:"points_earned" json:"points_earned"`
	TotalPoints  int   `bson:"total_points" json:"total_points"`
	Score        *int  `bson:"score,omitempty" json:"score,omitempty"`
	Passed       *bool `bson:"passed,omitempty" json:"passed,omitempty"`
}

// QuestionByID looks a question up in the attempt's snapshot, never in the
// live assessment.
func (a *AssessmentAttempt) QuestionByID(questionID string) *Question {
	for i := range a.Questions {
		if a.Questions[i].ID == questionID {
			return &a.Questions[i]
		}
	}
	return nil
}

// Finished reports whether the attempt can no longer accept answers.
func (a *AssessmentAttempt) Finished() bool {
	return a.Status != AttemptInProgressStatus
}

// PendingManualCount counts snapshot questions still waiting for an
// instructor grade.
func (a *AssessmentAttempt) PendingManualCount() int {
	pending := 0
	for _, q := range a.Questions {
		ans, ok := a.Answers[q.ID]
		if ok && ans.IsCorrect == nil {
			pending++
		}
	}
	return pending
}
