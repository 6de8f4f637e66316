package service

import (
	"context"
	"errors"
	"testing"

	"assessment-service/internal/models"
)

// progressFixture is an attemptFixture with a two-lesson course where the
// first lesson carries a mandatory assessment gating the second.
func newProgressFixture(t *testing.T) (*attemptFixture, *models.Assessment) {
	t.Helper()
	f := newAttemptFixture()
	ctx := context.Background()

	a := &models.Assessment{
		Title:    "Lesson one check",
		LessonID: "l1",
		Questions: []models.Question{
			{ID: "q1", Type: models.QuestionTrueFalse, Text: "Water boils at 100C at sea level.", CorrectAnswer: "true", Points: 10, DifficultyLevel: 1},
		},
		IsMandatory:     true,
		MinPassingScore: 70,
	}
	if err := f.assessments.Create(ctx, a); err != nil {
		t.Fatalf("seed assessment: %v", err)
	}

	course := &models.Course{
		ID:    "course-1",
		Title: "Intro",
		Lessons: []models.Lesson{
			{ID: "l1", Title: "States of matter", Position: 1, AssessmentID: a.ID},
			{ID: "l2", Title: "Phase changes", Position: 2},
		},
	}
	if err := f.courses.Create(ctx, course); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return f, a
}

func (f *attemptFixture) passAssessment(t *testing.T, assessmentID, studentID string) {
	t.Helper()
	ctx := context.Background()
	attempt, err := f.svc.Start(ctx, assessmentID, studentID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.svc.RecordAnswer(ctx, attempt.ID, "q1", "true"); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if _, err := f.svc.Submit(ctx, attempt.ID); err != nil {
		t.Fatalf("Submit: %v", err)
	}
}

func lessonStatus(t *testing.T, f *attemptFixture, studentID, lessonID string) models.ProgressStatus {
	t.Helper()
	row, err := f.progress.FindLessonRow(context.Background(), studentID, lessonID)
	if err != nil {
		t.Fatalf("FindLessonRow: %v", err)
	}
	if row == nil {
		t.Fatalf("no progress row for lesson %s", lessonID)
	}
	return row.Status
}

func TestMandatoryAssessmentGatesNextLesson(t *testing.T) {
	f, a := newProgressFixture(t)
	ctx := context.Background()

	if _, err := f.progressSvc.Recompute(ctx, "student-1", "course-1"); err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if got := lessonStatus(t, f, "student-1", "l2"); got != models.ProgressBlocked {
		t.Fatalf("lesson 2 status = %s, want blocked before the gate is passed", got)
	}

	f.passAssessment(t, a.ID, "student-1")

	if got := lessonStatus(t, f, "student-1", "l2"); got == models.ProgressBlocked {
		t.Fatalf("lesson 2 still blocked after passing the gating assessment")
	}
}

func TestLessonCompletionWaitsForMandatoryPass(t *testing.T) {
	f, a := newProgressFixture(t)
	ctx := context.Background()

	if _, err := f.progressSvc.MarkLessonCompleted(ctx, "student-1", "l1"); err != nil {
		t.Fatalf("MarkLessonCompleted: %v", err)
	}
	if got := lessonStatus(t, f, "student-1", "l1"); got != models.ProgressInProgress {
		t.Fatalf("lesson 1 status = %s, want in_progress while assessment unpassed", got)
	}

	f.passAssessment(t, a.ID, "student-1")

	if got := lessonStatus(t, f, "student-1", "l1"); got != models.ProgressCompleted {
		t.Fatalf("lesson 1 status = %s, want completed after interaction and pass", got)
	}
}

func TestLessonWithoutAssessmentCompletesOnInteraction(t *testing.T) {
	f, a := newProgressFixture(t)
	ctx := context.Background()

	f.passAssessment(t, a.ID, "student-1")
	if _, err := f.progressSvc.MarkLessonCompleted(ctx, "student-1", "l2"); err != nil {
		t.Fatalf("MarkLessonCompleted: %v", err)
	}
	if got := lessonStatus(t, f, "student-1", "l2"); got != models.ProgressCompleted {
		t.Fatalf("lesson 2 status = %s, want completed", got)
	}
}

func TestOverrideRequiresReason(t *testing.T) {
	f, _ := newProgressFixture(t)
	_, err := f.progressSvc.Block(context.Background(), "student-1", "l2", "", "instructor-1")
	if !errors.Is(err, models.ErrMissingReason) {
		t.Fatalf("error = %v, want ErrMissingReason", err)
	}
}

func TestInstructorBlockWinsOverAutomaticUnlock(t *testing.T) {
	f, a := newProgressFixture(t)
	ctx := context.Background()

	f.passAssessment(t, a.ID, "student-1")
	if _, err := f.progressSvc.Block(ctx, "student-1", "l2", "academic integrity review", "instructor-1"); err != nil {
		t.Fatalf("Block: %v", err)
	}
	if got := lessonStatus(t, f, "student-1", "l2"); got != models.ProgressBlocked {
		t.Fatalf("lesson 2 status = %s, want blocked by override", got)
	}

	// Recompute must not wash the override away while the automatic rule
	// still disagrees with it.
	if _, err := f.progressSvc.Recompute(ctx, "student-1", "course-1"); err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if got := lessonStatus(t, f, "student-1", "l2"); got != models.ProgressBlocked {
		t.Fatalf("lesson 2 status = %s, override lost on recompute", got)
	}
}

func TestInstructorUnblockClearsWhenConditionCatchesUp(t *testing.T) {
	f, a := newProgressFixture(t)
	ctx := context.Background()

	if _, err := f.progressSvc.Recompute(ctx, "student-1", "course-1"); err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if _, err := f.progressSvc.Unblock(ctx, "student-1", "l2", "catch-up plan agreed", "instructor-1"); err != nil {
		t.Fatalf("Unblock: %v", err)
	}
	if got := lessonStatus(t, f, "student-1", "l2"); got == models.ProgressBlocked {
		t.Fatalf("lesson 2 still blocked despite instructor unlock")
	}

	// Once the student actually passes, the automatic rule agrees with the
	// override and the override is dropped.
	f.passAssessment(t, a.ID, "student-1")
	row, err := f.progress.FindLessonRow(ctx, "student-1", "l2")
	if err != nil || row == nil {
		t.Fatalf("FindLessonRow: row=%v err=%v", row, err)
	}
	if row.Override != nil {
		t.Fatalf("override not cleared after the automatic condition caught up: %+v", row.Override)
	}
	if row.Status == models.ProgressBlocked {
		t.Fatalf("lesson 2 blocked after pass")
	}
}
