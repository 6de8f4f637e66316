package progression

import (
	"time"

	"assessment-service/internal/models"
)

// AssessmentOutcome summarizes the graded attempts one student has for one
// assessment. Mandatory is copied from the assessment so the controller needs
// no repository access.
type AssessmentOutcome struct {
	AssessmentID string
	Mandatory    bool
	Attempts     int
	BestScore    *int
	Passed       bool
}

// Input is everything the controller needs to recompute a student's unlock
// state for one course. Given the same input, the output is fully
// reproducible.
type Input struct {
	StudentID string
	Course    *models.Course
	// Outcomes is keyed by assessment id and derived from graded attempts only.
	Outcomes map[string]AssessmentOutcome
	// Existing is keyed by lesson id and carries interaction markers and
	// instructor overrides from prior rows.
	Existing map[string]*models.StudentProgress
	Now      time.Time
}

// Compute derives the desired progress row for every lesson in the course.
//
// A lesson is auto-blocked while the previous lesson's mandatory assessment
// has no passing graded attempt. Instructor overrides win until the automatic
// condition catches up with the override, at which point the override is
// dropped and the automatic rule takes back over.
func Compute(in Input) []models.StudentProgress {
	rows := make([]models.StudentProgress, 0, len(in.Course.Lessons))

	for i, lesson := range in.Course.Lessons {
		prev := existingRow(in, lesson.ID)

		row := models.StudentProgress{
			StudentID:    in.StudentID,
			LessonID:     lesson.ID,
			Status:       models.ProgressNotStarted,
			LastAccessed: in.Now,
		}
		if prev != nil {
			row.ID = prev.ID
			row.InteractionDone = prev.InteractionDone
			row.Override = prev.Override
			if prev.Status == models.ProgressInProgress || prev.InteractionDone {
				row.Status = models.ProgressInProgress
			}
		}

		autoBlocked := i > 0 && !prerequisiteSatisfied(in, in.Course.Lessons[i-1])
		blocked := autoBlocked
		if row.Override != nil {
			if row.Override.Blocked == autoBlocked {
				// The automatic condition caught up; the override has served
				// its purpose.
				row.Override = nil
			} else {
				blocked = row.Override.Blocked
			}
		}

		if blocked {
			row.Status = models.ProgressBlocked
		} else if lessonCompleted(in, lesson, row.InteractionDone) {
			row.Status = models.ProgressCompleted
		}

		rows = append(rows, row)
	}

	return rows
}

// AssessmentRow derives the progress row for the assessment itself: completed
// once any graded attempt passes, in progress while attempts exist without a
// pass.
func AssessmentRow(studentID string, outcome AssessmentOutcome, now time.Time) models.StudentProgress {
	row := models.StudentProgress{
		StudentID:     studentID,
		AssessmentID:  outcome.AssessmentID,
		Status:        models.ProgressNotStarted,
		BestScore:     outcome.BestScore,
		AttemptsCount: outcome.Attempts,
		LastAccessed:  now,
	}
	switch {
	case outcome.Passed:
		row.Status = models.ProgressCompleted
	case outcome.Attempts > 0:
		row.Status = models.ProgressInProgress
	}
	return row
}

func existingRow(in Input, lessonID string) *models.StudentProgress {
	if in.Existing == nil {
		return nil
	}
	return in.Existing[lessonID]
}

// prerequisiteSatisfied reports whether a lesson no longer holds back the one
// after it: its own interaction may still be unfinished, but its mandatory
// assessment, if any, must have a passing attempt.
func prerequisiteSatisfied(in Input, lesson models.Lesson) bool {
	if lesson.AssessmentID == "" {
		return true
	}
	outcome, ok := in.Outcomes[lesson.AssessmentID]
	if !ok {
		// Unknown assessment outcome: only mandatory assessments gate, and an
		// assessment we know nothing about has no passing attempt yet.
		return false
	}
	if !outcome.Mandatory {
		return true
	}
	return outcome.Passed
}

func lessonCompleted(in Input, lesson models.Lesson, interactionDone bool) bool {
	if !interactionDone {
		return false
	}
	if lesson.AssessmentID == "" {
		return true
	}
	outcome, ok := in.Outcomes[lesson.AssessmentID]
	if !ok {
		return false
	}
	if !outcome.Mandatory {
		return true
	}
	return outcome.Passed
}
