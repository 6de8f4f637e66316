package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"assessment-service/internal/models"
)

type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type attemptFixture struct {
	attempts    *fakeAttemptRepo
	assessments *fakeAssessmentRepo
	progress    *fakeProgressRepo
	courses     *fakeCourseRepo
	clock       *testClock
	svc         *AttemptService
	progressSvc *ProgressService
}

func newAttemptFixture() *attemptFixture {
	f := &attemptFixture{
		attempts:    newFakeAttemptRepo(),
		assessments: newFakeAssessmentRepo(),
		progress:    newFakeProgressRepo(),
		courses:     newFakeCourseRepo(),
		clock:       &testClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
	}
	f.progressSvc = NewProgressService(f.progress, f.courses, f.assessments, f.attempts, nil)
	f.progressSvc.now = f.clock.now
	f.svc = NewAttemptService(f.attempts, f.assessments, f.progressSvc, nil)
	f.svc.now = f.clock.now
	return f
}

func (f *attemptFixture) seed(t *testing.T, a *models.Assessment) *models.Assessment {
	t.Helper()
	if err := f.assessments.Create(context.Background(), a); err != nil {
		t.Fatalf("seed assessment: %v", err)
	}
	return a
}

func intPtr(v int) *int { return &v }

func twoChoiceAssessment() *models.Assessment {
	return &models.Assessment{
		Title:    "Fractions check",
		CourseID: "course-1",
		Questions: []models.Question{
			{ID: "q1", Type: models.QuestionMultipleChoice, Text: "1/2 + 1/4 = ?", Options: []string{"2/6", "3/4"}, CorrectAnswer: "3/4", Points: 10, DifficultyLevel: 2},
			{ID: "q2", Type: models.QuestionTrueFalse, Text: "1/3 is greater than 1/2.", CorrectAnswer: "false", Points: 10, DifficultyLevel: 1},
		},
		IsMandatory:     true,
		MinPassingScore: 70,
	}
}

func TestStartSnapshotsQuestions(t *testing.T) {
	f := newAttemptFixture()
	a := twoChoiceAssessment()
	a.TimeLimitMinutes = intPtr(30)
	f.seed(t, a)

	attempt, err := f.svc.Start(context.Background(), a.ID, "student-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if attempt.AttemptNumber != 1 {
		t.Errorf("attempt number = %d, want 1", attempt.AttemptNumber)
	}
	if len(attempt.Questions) != 2 {
		t.Fatalf("snapshot has %d questions, want 2", len(attempt.Questions))
	}
	if attempt.TotalPoints != 20 {
		t.Errorf("total points = %d, want 20", attempt.TotalPoints)
	}
	wantDeadline := f.clock.t.Add(30 * time.Minute)
	if attempt.DeadlineAt == nil || !attempt.DeadlineAt.Equal(wantDeadline) {
		t.Errorf("deadline = %v, want %v", attempt.DeadlineAt, wantDeadline)
	}

	// Editing the assessment afterwards must not change the snapshot.
	update := map[string]interface{}{"questions": []models.Question{}}
	if err := f.assessments.Update(context.Background(), a.ID, update); err != nil {
		t.Fatalf("update assessment: %v", err)
	}
	stored, err := f.svc.Get(context.Background(), attempt.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(stored.Questions) != 2 {
		t.Errorf("snapshot shrank to %d questions after assessment edit", len(stored.Questions))
	}
}

func TestStartRejectsSecondActiveAttempt(t *testing.T) {
	f := newAttemptFixture()
	a := f.seed(t, twoChoiceAssessment())

	if _, err := f.svc.Start(context.Background(), a.ID, "student-1"); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	_, err := f.svc.Start(context.Background(), a.ID, "student-1")
	if !errors.Is(err, models.ErrAttemptInProgress) {
		t.Fatalf("second Start error = %v, want ErrAttemptInProgress", err)
	}

	// A different student is unaffected.
	if _, err := f.svc.Start(context.Background(), a.ID, "student-2"); err != nil {
		t.Fatalf("other student Start: %v", err)
	}
}

func TestStartEnforcesMaxAttempts(t *testing.T) {
	f := newAttemptFixture()
	a := twoChoiceAssessment()
	a.MaxAttempts = intPtr(1)
	f.seed(t, a)

	attempt, err := f.svc.Start(context.Background(), a.ID, "student-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.svc.Submit(context.Background(), attempt.ID); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	_, err = f.svc.Start(context.Background(), a.ID, "student-1")
	if !errors.Is(err, models.ErrMaxAttemptsExceeded) {
		t.Fatalf("Start error = %v, want ErrMaxAttemptsExceeded", err)
	}
}

func TestConcurrentStartAdmitsExactlyOne(t *testing.T) {
	f := newAttemptFixture()
	a := f.seed(t, twoChoiceAssessment())

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Start(context.Background(), a.ID, "student-1")
		}(i)
	}
	wg.Wait()

	started := 0
	for _, err := range errs {
		switch {
		case err == nil:
			started++
		case errors.Is(err, models.ErrAttemptInProgress):
		default:
			t.Fatalf("unexpected Start error: %v", err)
		}
	}
	if started != 1 {
		t.Fatalf("%d attempts started concurrently, want exactly 1", started)
	}
}

func TestSubmitAutoGradesAndRetakesImprove(t *testing.T) {
	f := newAttemptFixture()
	a := f.seed(t, twoChoiceAssessment())
	ctx := context.Background()

	// First attempt: one right, one wrong. 10/20 = 50, below the 70 floor.
	attempt, err := f.svc.Start(ctx, a.ID, "student-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.svc.RecordAnswer(ctx, attempt.ID, "q1", "3/4"); err != nil {
		t.Fatalf("RecordAnswer q1: %v", err)
	}
	if _, err := f.svc.RecordAnswer(ctx, attempt.ID, "q2", "true"); err != nil {
		t.Fatalf("RecordAnswer q2: %v", err)
	}
	f.clock.advance(5 * time.Minute)
	first, err := f.svc.Submit(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if first.Status != models.AttemptGraded {
		t.Fatalf("status = %s, want graded", first.Status)
	}
	if first.Score == nil || *first.Score != 50 {
		t.Errorf("score = %v, want 50", first.Score)
	}
	if first.Passed == nil || *first.Passed {
		t.Errorf("passed = %v, want false", first.Passed)
	}
	if first.TimeSpentSeconds != 300 {
		t.Errorf("time spent = %d, want 300", first.TimeSpentSeconds)
	}

	// Retake: both right. The first attempt's result is untouched.
	retake, err := f.svc.Start(ctx, a.ID, "student-1")
	if err != nil {
		t.Fatalf("retake Start: %v", err)
	}
	if retake.AttemptNumber != 2 {
		t.Errorf("retake attempt number = %d, want 2", retake.AttemptNumber)
	}
	if _, err := f.svc.RecordAnswer(ctx, retake.ID, "q1", "3/4"); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if _, err := f.svc.RecordAnswer(ctx, retake.ID, "q2", "false"); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	second, err := f.svc.Submit(ctx, retake.ID)
	if err != nil {
		t.Fatalf("retake Submit: %v", err)
	}
	if second.Score == nil || *second.Score != 100 {
		t.Errorf("retake score = %v, want 100", second.Score)
	}
	if second.Passed == nil || !*second.Passed {
		t.Errorf("retake passed = %v, want true", second.Passed)
	}

	kept, err := f.svc.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("Get first: %v", err)
	}
	if kept.Score == nil || *kept.Score != 50 {
		t.Errorf("first attempt score changed to %v after retake", kept.Score)
	}

	// The assessment progress row tracks the best score across attempts.
	row, err := f.progress.FindAssessmentRow(ctx, "student-1", a.ID)
	if err != nil {
		t.Fatalf("FindAssessmentRow: %v", err)
	}
	if row == nil {
		t.Fatal("no assessment progress row written")
	}
	if row.Status != models.ProgressCompleted {
		t.Errorf("progress status = %s, want completed", row.Status)
	}
	if row.BestScore == nil || *row.BestScore != 100 {
		t.Errorf("best score = %v, want 100", row.BestScore)
	}
	if row.AttemptsCount != 2 {
		t.Errorf("attempts count = %d, want 2", row.AttemptsCount)
	}
}

func TestSubmitTwiceIsNoOp(t *testing.T) {
	f := newAttemptFixture()
	a := f.seed(t, twoChoiceAssessment())
	ctx := context.Background()

	attempt, _ := f.svc.Start(ctx, a.ID, "student-1")
	if _, err := f.svc.RecordAnswer(ctx, attempt.ID, "q1", "3/4"); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	first, err := f.svc.Submit(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	f.clock.advance(10 * time.Minute)
	second, err := f.svc.Submit(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("duplicate Submit: %v", err)
	}
	if !second.SubmittedAt.Equal(*first.SubmittedAt) {
		t.Errorf("duplicate submit moved submitted_at from %v to %v", first.SubmittedAt, second.SubmittedAt)
	}
	if *second.Score != *first.Score || second.TimeSpentSeconds != first.TimeSpentSeconds {
		t.Errorf("duplicate submit changed the stored result")
	}
}

func TestSubmitAfterDeadlineIsAcceptedAndFlagged(t *testing.T) {
	f := newAttemptFixture()
	a := twoChoiceAssessment()
	a.TimeLimitMinutes = intPtr(30)
	f.seed(t, a)
	ctx := context.Background()

	attempt, _ := f.svc.Start(ctx, a.ID, "student-1")
	if _, err := f.svc.RecordAnswer(ctx, attempt.ID, "q1", "3/4"); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	f.clock.advance(31 * time.Minute)

	submitted, err := f.svc.Submit(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("Submit after deadline: %v", err)
	}
	if !submitted.Late {
		t.Error("late submission not flagged")
	}
	if submitted.Status != models.AttemptGraded {
		t.Errorf("status = %s, want graded", submitted.Status)
	}
}

func TestManualGradingFlow(t *testing.T) {
	f := newAttemptFixture()
	a := &models.Assessment{
		Title:    "Reflection",
		CourseID: "course-1",
		Questions: []models.Question{
			{ID: "q1", Type: models.QuestionEssay, Text: "Explain your reasoning.", Points: 10, DifficultyLevel: 3},
		},
		MinPassingScore: 70,
	}
	f.seed(t, a)
	ctx := context.Background()

	attempt, _ := f.svc.Start(ctx, a.ID, "student-1")
	if _, err := f.svc.RecordAnswer(ctx, attempt.ID, "q1", "Because the denominators differ."); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	submitted, err := f.svc.Submit(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if submitted.Status != models.AttemptSubmitted {
		t.Fatalf("status = %s, want submitted while manual grading pends", submitted.Status)
	}
	if submitted.Score != nil {
		t.Errorf("score = %v, want nil before manual grading", *submitted.Score)
	}

	// Over the question's maximum is rejected.
	if _, err := f.svc.ApplyManualGrade(ctx, attempt.ID, "q1", 11, nil, "", "instructor-1"); !errors.Is(err, models.ErrGradeExceedsMax) {
		t.Fatalf("over-max grade error = %v, want ErrGradeExceedsMax", err)
	}

	graded, err := f.svc.ApplyManualGrade(ctx, attempt.ID, "q1", 8, nil, "Solid reasoning.", "instructor-1")
	if err != nil {
		t.Fatalf("ApplyManualGrade: %v", err)
	}
	if graded.Status != models.AttemptGraded {
		t.Fatalf("status = %s, want graded", graded.Status)
	}
	if graded.Score == nil || *graded.Score != 80 {
		t.Errorf("score = %v, want 80", graded.Score)
	}
	if graded.Passed == nil || !*graded.Passed {
		t.Errorf("passed = %v, want true", graded.Passed)
	}
	ans := graded.Answers["q1"]
	if ans.StudentAnswer != "Because the denominators differ." {
		t.Errorf("manual grading altered the student answer: %q", ans.StudentAnswer)
	}
	if !ans.ManuallyGraded || ans.GradedBy != "instructor-1" {
		t.Errorf("manual grade metadata not recorded: %+v", ans)
	}

	// Re-grading replaces the prior manual result, never adds to it.
	regraded, err := f.svc.ApplyManualGrade(ctx, attempt.ID, "q1", 6, nil, "On reflection, partial.", "instructor-1")
	if err != nil {
		t.Fatalf("second ApplyManualGrade: %v", err)
	}
	if regraded.PointsEarned != 6 {
		t.Errorf("points earned = %d, want 6 after replacement", regraded.PointsEarned)
	}
	if *regraded.Score != 60 {
		t.Errorf("score = %d, want 60 after replacement", *regraded.Score)
	}
}

func TestManualGradeRejectsAutoGradableQuestion(t *testing.T) {
	f := newAttemptFixture()
	a := f.seed(t, twoChoiceAssessment())
	ctx := context.Background()

	attempt, _ := f.svc.Start(ctx, a.ID, "student-1")
	if _, err := f.svc.Submit(ctx, attempt.ID); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	_, err := f.svc.ApplyManualGrade(ctx, attempt.ID, "q1", 5, nil, "", "instructor-1")
	if !errors.Is(err, models.ErrNotManuallyGradable) {
		t.Fatalf("error = %v, want ErrNotManuallyGradable", err)
	}
}

func TestGradeIsIdempotent(t *testing.T) {
	f := newAttemptFixture()
	a := f.seed(t, twoChoiceAssessment())
	ctx := context.Background()

	attempt, _ := f.svc.Start(ctx, a.ID, "student-1")
	if _, err := f.svc.RecordAnswer(ctx, attempt.ID, "q1", "3/4"); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	first, err := f.svc.Submit(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	f.clock.advance(time.Hour)
	second, err := f.svc.Grade(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if *second.Score != *first.Score || second.PointsEarned != first.PointsEarned {
		t.Errorf("regrade changed the result: %d/%d vs %d/%d",
			second.PointsEarned, *second.Score, first.PointsEarned, *first.Score)
	}
	if !second.GradedAt.Equal(*first.GradedAt) {
		t.Errorf("regrade moved graded_at from %v to %v", first.GradedAt, second.GradedAt)
	}
}

func TestRecordAnswerRules(t *testing.T) {
	f := newAttemptFixture()
	a := f.seed(t, twoChoiceAssessment())
	ctx := context.Background()

	attempt, _ := f.svc.Start(ctx, a.ID, "student-1")

	if _, err := f.svc.RecordAnswer(ctx, attempt.ID, "q1", "2/6"); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	updated, err := f.svc.RecordAnswer(ctx, attempt.ID, "q1", "3/4")
	if err != nil {
		t.Fatalf("re-answer: %v", err)
	}
	if updated.Answers["q1"].StudentAnswer != "3/4" {
		t.Errorf("re-answer did not replace the prior value")
	}

	if _, err := f.svc.RecordAnswer(ctx, attempt.ID, "nope", "x"); !errors.Is(err, models.ErrUnknownQuestion) {
		t.Fatalf("unknown question error = %v, want ErrUnknownQuestion", err)
	}

	if _, err := f.svc.Submit(ctx, attempt.ID); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.svc.RecordAnswer(ctx, attempt.ID, "q1", "2/6"); !errors.Is(err, models.ErrAttemptNotActive) {
		t.Fatalf("post-submit answer error = %v, want ErrAttemptNotActive", err)
	}
}

func TestExpireOverdueSweep(t *testing.T) {
	f := newAttemptFixture()
	a := twoChoiceAssessment()
	a.TimeLimitMinutes = intPtr(30)
	f.seed(t, a)
	ctx := context.Background()

	abandoned, _ := f.svc.Start(ctx, a.ID, "student-1")

	// Past the abandoned attempt's deadline plus the grace hour; the second
	// attempt starts afterwards and is still comfortably inside its window.
	f.clock.advance(2 * time.Hour)
	fresh, _ := f.svc.Start(ctx, a.ID, "student-2")

	expired, err := f.svc.ExpireOverdue(ctx)
	if err != nil {
		t.Fatalf("ExpireOverdue: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired = %d, want 1", expired)
	}

	untouched, err := f.svc.Get(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("Get fresh: %v", err)
	}
	if untouched.Status != models.AttemptInProgressStatus {
		t.Errorf("fresh attempt status = %s, want in_progress", untouched.Status)
	}

	got, err := f.svc.Get(ctx, abandoned.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.AttemptExpired {
		t.Fatalf("status = %s, want expired", got.Status)
	}

	if _, err := f.svc.Submit(ctx, abandoned.ID); !errors.Is(err, models.ErrAssessmentExpired) {
		t.Fatalf("submit of expired attempt error = %v, want ErrAssessmentExpired", err)
	}
}
