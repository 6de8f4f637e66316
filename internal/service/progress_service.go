package service

import (
	"context"
	"errors"
	"log"
	"time"

	"assessment-service/internal/event"
	"assessment-service/internal/models"
	"assessment-service/internal/policy"
	"assessment-service/internal/progression"
	"assessment-service/internal/repository"
)

// ProgressService keeps student progress rows in sync with attempt outcomes
// and interaction markers, and applies instructor overrides. Lesson unlock
// state is always recomputed from graded attempts, never patched in place.
type ProgressService struct {
	progress    repository.ProgressRepository
	courses     repository.CourseRepository
	assessments repository.AssessmentRepository
	attempts    repository.AttemptRepository
	events      *event.EventPublisher
	now         func() time.Time
}

func NewProgressService(
	progress repository.ProgressRepository,
	courses repository.CourseRepository,
	assessments repository.AssessmentRepository,
	attempts repository.AttemptRepository,
	events *event.EventPublisher,
) *ProgressService {
	return &ProgressService{
		progress:    progress,
		courses:     courses,
		assessments: assessments,
		attempts:    attempts,
		events:      events,
		now:         time.Now,
	}
}

// GetProgress returns every progress row for one student.
func (s *ProgressService) GetProgress(ctx context.Context, studentID string) ([]models.StudentProgress, error) {
	return s.progress.FindByStudent(ctx, studentID)
}

// RecordAttemptStarted refreshes the assessment's progress row when a new
// attempt opens. The row is derived from all attempts so far, so an already
// passed assessment stays completed.
func (s *ProgressService) RecordAttemptStarted(ctx context.Context, attempt *models.AssessmentAttempt, assessment *models.Assessment) error {
	outcome, err := s.assessmentOutcome(ctx, assessment, attempt.StudentID)
	if err != nil {
		return err
	}
	row := progression.AssessmentRow(attempt.StudentID, outcome, s.now())
	return s.progress.Upsert(ctx, &row)
}

// RecordAttemptGraded refreshes the assessment's progress row after grading
// and recomputes lesson unlock state for the containing course.
func (s *ProgressService) RecordAttemptGraded(ctx context.Context, attempt *models.AssessmentAttempt, assessment *models.Assessment) error {
	outcome, err := s.assessmentOutcome(ctx, assessment, attempt.StudentID)
	if err != nil {
		return err
	}
	row := progression.AssessmentRow(attempt.StudentID, outcome, s.now())
	if err := s.progress.Upsert(ctx, &row); err != nil {
		return err
	}
	if err := s.events.Publish(event.ProgressUpdated, row); err != nil {
		log.Printf("Failed to publish progress updated event: %v", err)
	}

	course, err := s.courseFor(ctx, assessment)
	if err != nil {
		if errors.Is(err, models.ErrCourseNotFound) {
			return nil
		}
		return err
	}
	return s.recomputeCourse(ctx, attempt.StudentID, course)
}

// MarkLessonStarted records that the student opened a lesson.
func (s *ProgressService) MarkLessonStarted(ctx context.Context, studentID, lessonID string) ([]models.StudentProgress, error) {
	return s.markLesson(ctx, studentID, lessonID, false)
}

// MarkLessonCompleted records that the student finished the lesson's content.
// The lesson only reaches completed status once its mandatory assessment, if
// any, is passed; until then the interaction marker is remembered.
func (s *ProgressService) MarkLessonCompleted(ctx context.Context, studentID, lessonID string) ([]models.StudentProgress, error) {
	return s.markLesson(ctx, studentID, lessonID, true)
}

func (s *ProgressService) markLesson(ctx context.Context, studentID, lessonID string, interactionDone bool) ([]models.StudentProgress, error) {
	course, err := s.courses.FindByLessonID(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	row, err := s.progress.FindLessonRow(ctx, studentID, lessonID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		row = &models.StudentProgress{
			StudentID: studentID,
			LessonID:  lessonID,
			Status:    models.ProgressInProgress,
		}
	}
	if interactionDone {
		row.InteractionDone = true
	}
	if row.Status == models.ProgressNotStarted {
		row.Status = models.ProgressInProgress
	}
	row.LastAccessed = s.now()
	if err := s.progress.Upsert(ctx, row); err != nil {
		return nil, err
	}

	rows, err := s.recomputeCourseRows(ctx, studentID, course)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Recompute rebuilds the student's lesson rows for one course from graded
// attempts. The result depends only on stored state, so running it twice in a
// row changes nothing.
func (s *ProgressService) Recompute(ctx context.Context, studentID, courseID string) ([]models.StudentProgress, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return s.recomputeCourseRows(ctx, studentID, course)
}

// Block sets an instructor override that blocks the lesson regardless of
// assessment outcomes. A reason is required.
func (s *ProgressService) Block(ctx context.Context, studentID, lessonID, reason, setBy string) ([]models.StudentProgress, error) {
	return s.setOverride(ctx, studentID, lessonID, true, reason, setBy)
}

// Unblock sets an instructor override that unlocks the lesson even when the
// automatic rule would block it. The override stays until the automatic
// condition agrees with it.
func (s *ProgressService) Unblock(ctx context.Context, studentID, lessonID, reason, setBy string) ([]models.StudentProgress, error) {
	return s.setOverride(ctx, studentID, lessonID, false, reason, setBy)
}

func (s *ProgressService) setOverride(ctx context.Context, studentID, lessonID string, blocked bool, reason, setBy string) ([]models.StudentProgress, error) {
	if reason == "" {
		return nil, models.ErrMissingReason
	}
	course, err := s.courses.FindByLessonID(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	row, err := s.progress.FindLessonRow(ctx, studentID, lessonID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		row = &models.StudentProgress{
			StudentID: studentID,
			LessonID:  lessonID,
			Status:    models.ProgressNotStarted,
		}
	}
	row.Override = &models.ProgressOverride{
		Blocked: blocked,
		Reason:  reason,
		SetBy:   setBy,
		SetAt:   s.now(),
	}
	row.LastAccessed = s.now()
	if err := s.progress.Upsert(ctx, row); err != nil {
		return nil, err
	}

	rows, err := s.recomputeCourseRows(ctx, studentID, course)
	if err != nil {
		return nil, err
	}
	if blocked {
		if err := s.events.Publish(event.ProgressBlocked, row); err != nil {
			log.Printf("Failed to publish progress blocked event: %v", err)
		}
	}
	return rows, nil
}

// courseFor resolves the course an assessment gates through, via its lesson
// when lesson-attached and directly otherwise.
func (s *ProgressService) courseFor(ctx context.Context, assessment *models.Assessment) (*models.Course, error) {
	if assessment.LessonID != "" {
		return s.courses.FindByLessonID(ctx, assessment.LessonID)
	}
	if assessment.CourseID != "" {
		return s.courses.FindByID(ctx, assessment.CourseID)
	}
	return nil, models.ErrCourseNotFound
}

func (s *ProgressService) recomputeCourse(ctx context.Context, studentID string, course *models.Course) error {
	_, err := s.recomputeCourseRows(ctx, studentID, course)
	return err
}

// recomputeCourseRows runs the progression controller over the course and
// persists every lesson row it produces.
func (s *ProgressService) recomputeCourseRows(ctx context.Context, studentID string, course *models.Course) ([]models.StudentProgress, error) {
	outcomes := map[string]progression.AssessmentOutcome{}
	for _, lesson := range course.Lessons {
		if lesson.AssessmentID == "" {
			continue
		}
		assessment, err := s.assessments.FindByID(ctx, lesson.AssessmentID)
		if err != nil {
			if errors.Is(err, models.ErrAssessmentNotFound) {
				continue
			}
			return nil, err
		}
		outcome, err := s.assessmentOutcome(ctx, assessment, studentID)
		if err != nil {
			return nil, err
		}
		outcomes[assessment.ID] = outcome
	}

	all, err := s.progress.FindByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	existing := map[string]*models.StudentProgress{}
	for i := range all {
		if all[i].LessonID != "" {
			existing[all[i].LessonID] = &all[i]
		}
	}

	rows := progression.Compute(progression.Input{
		StudentID: studentID,
		Course:    course,
		Outcomes:  outcomes,
		Existing:  existing,
		Now:       s.now(),
	})
	for i := range rows {
		if err := s.progress.Upsert(ctx, &rows[i]); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// assessmentOutcome rolls graded attempts up into the controller's input. The
// attempts count includes in-progress attempts so the row reflects activity
// immediately.
func (s *ProgressService) assessmentOutcome(ctx context.Context, assessment *models.Assessment, studentID string) (progression.AssessmentOutcome, error) {
	attempts, err := s.attempts.FindByAssessmentAndStudent(ctx, assessment.ID, studentID)
	if err != nil {
		return progression.AssessmentOutcome{}, err
	}

	outcome := progression.AssessmentOutcome{
		AssessmentID: assessment.ID,
		Mandatory:    policy.RequiredForProgression(assessment),
	}
	for _, a := range attempts {
		if a.AttemptNumber > outcome.Attempts {
			outcome.Attempts = a.AttemptNumber
		}
		if a.Status != models.AttemptGraded {
			continue
		}
		if a.Passed != nil && *a.Passed {
			outcome.Passed = true
		}
		if a.Score != nil && (outcome.BestScore == nil || *a.Score > *outcome.BestScore) {
			score := *a.Score
			outcome.BestScore = &score
		}
	}
	return outcome, nil
}
