package models

import "time"

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressBlocked    ProgressStatus = "blocked"
)

// ProgressOverride is an instructor decision that wins over the automatic
// gating rule. It persists until the automatic condition catches up with it.
type ProgressOverride struct {
	Blocked bool      `bson:"blocked" json:"blocked"`
	Reason  string    `bson:"reason,omitempty" json:"reason,omitempty"`
	SetBy   string    `bson:"set_by" json:"set_by"`
	SetAt   time.Time `bson:"set_at" json:"set_at"`
}

// StudentProgress tracks one student against one content item. Exactly one of
// CourseID, LessonID or AssessmentID is set per row.
type StudentProgress struct {
	ID           string `bson:"_id,omitempty" json:"id"`
	StudentID    string `bson:"student_id" json:"student_id"`
	CourseID     string `bson:"course_id,omitempty" json:"course_id,omitempty"`
	LessonID     string `bson:"lesson_id,omitempty" json:"lesson_id,omitempty"`
	AssessmentID string `bson:"assessment_id,omitempty" json:"assessment_id,omitempty"`

	Status        ProgressStatus `bson:"status" json:"status"`
	BestScore     *int           `bson:"best_score,omitempty" json:"best_score,omitempty"`
	AttemptsCount int            `bson:"attempts_count" json:"attempts_count"`

	// InteractionDone marks that the student finished the content item's own
	// interaction, independent of any attached assessment outcome.
	InteractionDone bool              `bson:"interaction_done" json:"interaction_done"`
	Override        *ProgressOverride `bson:"override,omitempty" json:"override,omitempty"`
	LastAccessed    time.Time         `bson:"last_accessed" json:"last_accessed"`
}

// ContentRef returns the kind and id of the referenced content item.
func (p *StudentProgress) ContentRef() (kind string, id string) {
	switch {
	case p.LessonID != "":
		return "lesson", p.LessonID
	case p.AssessmentID != "":
		return "assessment", p.AssessmentID
	case p.CourseID != "":
		return "course", p.CourseID
	}
	return "", ""
}

func (p *StudentProgress) Validate() error {
	refs := 0
	for _, id := range []string{p.CourseID, p.LessonID, p.AssessmentID} {
		if id != "" {
			refs++
		}
	}
	if refs != 1 {
		return ErrInvalidContentRef
	}
	return nil
}
