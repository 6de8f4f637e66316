package service

import (
	"context"
	"log"
	"time"

	"assessment-service/internal/event"
	"assessment-service/internal/models"
	"assessment-service/internal/policy"
	"assessment-service/internal/repository"
	"assessment-service/internal/scoring"
)

// expiryGrace is how long after the deadline an abandoned in-progress attempt
// is left alone before the sweep expires it. A student who submits inside the
// grace window is accepted and flagged late instead.
const expiryGrace = time.Hour

// AttemptService drives the attempt lifecycle: started -> in_progress ->
// submitted -> graded, with expired as the terminal state for abandoned
// attempts. All timing decisions use the server clock.
type AttemptService struct {
	attempts    repository.AttemptRepository
	assessments repository.AssessmentRepository
	progress    *ProgressService
	events      *event.EventPublisher
	now         func() time.Time
}

func NewAttemptService(
	attempts repository.AttemptRepository,
	assessments repository.AssessmentRepository,
	progress *ProgressService,
	events *event.EventPublisher,
) *AttemptService {
	return &AttemptService{
		attempts:    attempts,
		assessments: assessments,
		progress:    progress,
		events:      events,
		now:         time.Now,
	}
}

// Start opens a new attempt. It snapshots the assessment's questions so later
// edits never change what this attempt is graded against, and assigns the next
// gap-free attempt number. At most one attempt per (assessment, student) may be
// in progress; a concurrent duplicate loses at the storage layer.
func (s *AttemptService) Start(ctx context.Context, assessmentID, studentID string) (*models.AssessmentAttempt, error) {
	assessment, err := s.assessments.FindByID(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	active, err := s.attempts.FindActive(ctx, assessmentID, studentID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, models.ErrAttemptInProgress
	}

	taken, err := s.attempts.MaxAttemptNumber(ctx, assessmentID, studentID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanStart(assessment, taken); err != nil {
		return nil, err
	}

	now := s.now()
	snapshot := make([]models.Question, len(assessment.Questions))
	copy(snapshot, assessment.Questions)

	attempt := &models.AssessmentAttempt{
		AssessmentID:  assessmentID,
		StudentID:     studentID,
		AttemptNumber: taken + 1,
		Questions:     snapshot,
		Answers:       map[string]models.AttemptAnswer{},
		Status:        models.AttemptInProgressStatus,
		StartedAt:     now,
		DeadlineAt:    policy.Deadline(assessment, now),
		TotalPoints:   assessment.TotalPoints(),
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return nil, err
	}

	if s.progress != nil {
		if err := s.progress.RecordAttemptStarted(ctx, attempt, assessment); err != nil {
			log.Printf("Failed to record attempt start in progress: %v", err)
		}
	}
	if err := s.events.Publish(event.AttemptStarted, attempt); err != nil {
		log.Printf("Failed to publish attempt started event: %v", err)
	}
	return attempt, nil
}

// RecordAnswer saves or replaces the student's answer to one snapshot
// question. Re-answering before submission overwrites the prior value; there
// is no per-answer history.
func (s *AttemptService) RecordAnswer(ctx context.Context, attemptID, questionID, studentAnswer string) (*models.AssessmentAttempt, error) {
	attempt, err := s.attempts.FindByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Finished() {
		return nil, models.ErrAttemptNotActive
	}
	if attempt.QuestionByID(questionID) == nil {
		return nil, models.ErrUnknownQuestion
	}

	answer := models.AttemptAnswer{
		QuestionID:    questionID,
		StudentAnswer: studentAnswer,
		UpdatedAt:     s.now(),
	}
	if err := s.attempts.UpsertAnswer(ctx, attemptID, answer); err != nil {
		return nil, err
	}
	return s.attempts.FindByID(ctx, attemptID)
}

// Submit closes the attempt and grades every auto-gradable question. A
// submission after the deadline is accepted and flagged late. Submitting an
// already-submitted attempt is a no-op that returns the stored result, so
// client retries are safe.
func (s *AttemptService) Submit(ctx context.Context, attemptID string) (*models.AssessmentAttempt, error) {
	attempt, err := s.attempts.FindByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	switch attempt.Status {
	case models.AttemptSubmitted, models.AttemptGraded:
		return attempt, nil
	case models.AttemptExpired:
		return nil, models.ErrAssessmentExpired
	}

	assessment, err := s.assessments.FindByID(ctx, attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	attempt.SubmittedAt = &now
	attempt.TimeSpentSeconds = int(now.Sub(attempt.StartedAt).Seconds())
	attempt.Late = policy.IsLate(attempt.DeadlineAt, now)
	attempt.Status = models.AttemptSubmitted

	s.grade(attempt, assessment)

	if err := s.attempts.Save(ctx, attempt); err != nil {
		return nil, err
	}

	if err := s.events.Publish(event.AttemptSubmitted, attempt); err != nil {
		log.Printf("Failed to publish attempt submitted event: %v", err)
	}
	if attempt.Status == models.AttemptGraded {
		s.finishGrading(ctx, attempt, assessment)
	}
	return attempt, nil
}

// Grade recomputes the attempt's result from its snapshot and stored answers.
// Grading is derived, never accumulated, so grading twice yields identical
// results. An attempt with ungraded essay or short answer questions stays
// submitted with a nil score.
func (s *AttemptService) Grade(ctx context.Context, attemptID string) (*models.AssessmentAttempt, error) {
	attempt, err := s.attempts.FindByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	switch attempt.Status {
	case models.AttemptInProgressStatus:
		return nil, models.ErrAttemptNotActive
	case models.AttemptExpired:
		return nil, models.ErrAssessmentExpired
	}

	assessment, err := s.assessments.FindByID(ctx, attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	s.grade(attempt, assessment)
	if err := s.attempts.Save(ctx, attempt); err != nil {
		return nil, err
	}
	if attempt.Status == models.AttemptGraded {
		s.finishGrading(ctx, attempt, assessment)
	}
	return attempt, nil
}

// ApplyManualGrade records an instructor's grade for one essay or short answer
// question and regrades the attempt. Regrading replaces the prior manual
// result rather than adding to it, and never touches the student's answer
// text.
func (s *AttemptService) ApplyManualGrade(ctx context.Context, attemptID, questionID string, points int, isCorrect *bool, feedback, gradedBy string) (*models.AssessmentAttempt, error) {
	attempt, err := s.attempts.FindByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	switch attempt.Status {
	case models.AttemptInProgressStatus:
		return nil, models.ErrAttemptNotActive
	case models.AttemptExpired:
		return nil, models.ErrAssessmentExpired
	}

	question := attempt.QuestionByID(questionID)
	if question == nil {
		return nil, models.ErrUnknownQuestion
	}
	if !question.Type.ManuallyGraded() {
		return nil, models.ErrNotManuallyGradable
	}
	if points < 0 || points > question.Points {
		return nil, models.ErrGradeExceedsMax
	}

	answer := attempt.Answers[questionID]
	answer.QuestionID = questionID
	answer.PointsEarned = points
	answer.IsCorrect = isCorrect
	if answer.IsCorrect == nil {
		correct := points == question.Points
		answer.IsCorrect = &correct
	}
	answer.Feedback = feedback
	answer.ManuallyGraded = true
	answer.GradedBy = gradedBy
	answer.UpdatedAt = s.now()
	attempt.Answers[questionID] = answer

	assessment, err := s.assessments.FindByID(ctx, attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	s.grade(attempt, assessment)
	if err := s.attempts.Save(ctx, attempt); err != nil {
		return nil, err
	}
	if attempt.Status == models.AttemptGraded {
		s.finishGrading(ctx, attempt, assessment)
	}
	return attempt, nil
}

// Get returns one attempt by id.
func (s *AttemptService) Get(ctx context.Context, attemptID string) (*models.AssessmentAttempt, error) {
	return s.attempts.FindByID(ctx, attemptID)
}

// History returns every attempt a student has made at one assessment.
func (s *AttemptService) History(ctx context.Context, assessmentID, studentID string) ([]models.AssessmentAttempt, error) {
	return s.attempts.FindByAssessmentAndStudent(ctx, assessmentID, studentID)
}

// ListByStudent returns every attempt a student has made, across assessments.
func (s *AttemptService) ListByStudent(ctx context.Context, studentID string) ([]models.AssessmentAttempt, error) {
	return s.attempts.FindByStudent(ctx, studentID)
}

// ExpireOverdue moves abandoned in-progress attempts past their deadline plus
// grace into the expired state. Run periodically by the scheduler.
func (s *AttemptService) ExpireOverdue(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-expiryGrace)
	overdue, err := s.attempts.FindOverdue(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range overdue {
		attempt := &overdue[i]
		attempt.Status = models.AttemptExpired
		if attempt.DeadlineAt != nil {
			attempt.TimeSpentSeconds = int(attempt.DeadlineAt.Sub(attempt.StartedAt).Seconds())
		}
		if err := s.attempts.Save(ctx, attempt); err != nil {
			log.Printf("Failed to expire attempt %s: %v", attempt.ID, err)
			continue
		}
		expired++
		if err := s.events.Publish(event.AttemptExpired, attempt); err != nil {
			log.Printf("Failed to publish attempt expired event: %v", err)
		}
	}
	return expired, nil
}

// grade derives the attempt's answers and totals from scratch. Once every
// question has a definite result the attempt is finalized against the
// assessment's passing score.
func (s *AttemptService) grade(attempt *models.AssessmentAttempt, assessment *models.Assessment) {
	answers, agg := scoring.GradeAnswers(attempt.Questions, attempt.Answers, s.now())
	attempt.Answers = answers
	attempt.PointsEarned = agg.PointsEarned
	attempt.TotalPoints = agg.TotalPoints

	if !agg.FullyGraded() {
		attempt.Score = nil
		attempt.Passed = nil
		attempt.GradedAt = nil
		attempt.Status = models.AttemptSubmitted
		return
	}

	score := agg.Score
	passed := policy.Passed(score, assessment.MinPassingScore)
	attempt.Score = &score
	attempt.Passed = &passed
	attempt.Status = models.AttemptGraded
	if attempt.GradedAt == nil {
		t := s.now()
		attempt.GradedAt = &t
	}
}

func (s *AttemptService) finishGrading(ctx context.Context, attempt *models.AssessmentAttempt, assessment *models.Assessment) {
	if err := s.events.Publish(event.AttemptGraded, attempt); err != nil {
		log.Printf("Failed to publish attempt graded event: %v", err)
	}
	if s.progress != nil {
		if err := s.progress.RecordAttemptGraded(ctx, attempt, assessment); err != nil {
			log.Printf("Failed to update progress after grading: %v", err)
		}
	}
}
