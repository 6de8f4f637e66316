package repository

import (
	"context"
	"time"

	"assessment-service/internal/models"
)

// The engine consumes these interfaces and holds no direct storage
// dependency; the Mongo implementations below are swappable without touching
// business rules.

type AttemptRepository interface {
	// Create inserts a new attempt. The unique active-attempt index turns a
	// concurrent duplicate into models.ErrAttemptInProgress.
	Create(ctx context.Context, attempt *models.AssessmentAttempt) error
	FindByID(ctx context.Context, id string) (*models.AssessmentAttempt, error)
	// FindActive returns the in-progress attempt for the pair, or nil.
	FindActive(ctx context.Context, assessmentID, studentID string) (*models.AssessmentAttempt, error)
	// MaxAttemptNumber returns the highest attempt number used so far, 0 when
	// none exist. Attempt numbers are gap-free, so this doubles as the
	// attempts-taken count.
	MaxAttemptNumber(ctx context.Context, assessmentID, studentID string) (int, error)
	// UpsertAnswer writes one answer if and only if the attempt is still in
	// progress.
	UpsertAnswer(ctx context.Context, attemptID string, answer models.AttemptAnswer) error
	// Save persists the mutable fields of an attempt.
	Save(ctx context.Context, attempt *models.AssessmentAttempt) error
	FindByAssessmentAndStudent(ctx context.Context, assessmentID, studentID string) ([]models.AssessmentAttempt, error)
	FindByStudent(ctx context.Context, studentID string) ([]models.AssessmentAttempt, error)
	// FindOverdue returns in-progress attempts whose deadline passed before
	// the given cutoff.
	FindOverdue(ctx context.Context, before time.Time) ([]models.AssessmentAttempt, error)
	// AveragePacePerQuestion aggregates the population baseline used by the
	// pattern analyzer, in seconds per question over graded attempts.
	AveragePacePerQuestion(ctx context.Context) (float64, error)
	DistinctStudentsGradedSince(ctx context.Context, since time.Time) ([]string, error)
}

type AssessmentRepository interface {
	Create(ctx context.Context, assessment *models.Assessment) error
	FindByID(ctx context.Context, id string) (*models.Assessment, error)
	FindByCourse(ctx context.Context, courseID string) ([]models.Assessment, error)
	Update(ctx context.Context, id string, update map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

type QuestionRepository interface {
	FindAll(ctx context.Context) ([]models.Question, error)
	FindByID(ctx context.Context, id string) (*models.Question, error)
	Create(ctx context.Context, question *models.Question) error
	Update(ctx context.Context, id string, update map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

type ProgressRepository interface {
	// Upsert writes the row keyed by (student, content reference).
	Upsert(ctx context.Context, progress *models.StudentProgress) error
	FindByStudent(ctx context.Context, studentID string) ([]models.StudentProgress, error)
	FindLessonRow(ctx context.Context, studentID, lessonID string) (*models.StudentProgress, error)
	FindAssessmentRow(ctx context.Context, studentID, assessmentID string) (*models.StudentProgress, error)
}

type PatternRepository interface {
	FindByStudent(ctx context.Context, studentID string) ([]models.LearningPattern, error)
	// Upsert writes the pattern keyed by (student, key), preserving the
	// original detection time on update.
	Upsert(ctx context.Context, pattern *models.LearningPattern) error
	// DeleteStale removes the student's patterns whose keys are no longer
	// detected.
	DeleteStale(ctx context.Context, studentID string, keepKeys []string) error
}

type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindAll(ctx context.Context) ([]models.Course, error)
	FindByLessonID(ctx context.Context, lessonID string) (*models.Course, error)
	Update(ctx context.Context, id string, update map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}
