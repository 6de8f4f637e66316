package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"assessment-service/internal/generation"
	"assessment-service/internal/models"
	"assessment-service/internal/repository"
)

// generationTimeout bounds a single call to the question generator. Attempt
// handling never waits on generation; only authoring does.
const generationTimeout = 30 * time.Second

// AssessmentService covers assessment authoring: CRUD plus AI-assisted
// question generation with validation of the generated output.
type AssessmentService struct {
	assessments repository.AssessmentRepository
	generator   generation.Generator
	now         func() time.Time
}

func NewAssessmentService(assessments repository.AssessmentRepository, generator generation.Generator) *AssessmentService {
	return &AssessmentService{
		assessments: assessments,
		generator:   generator,
		now:         time.Now,
	}
}

func (s *AssessmentService) Create(ctx context.Context, assessment *models.Assessment) (*models.Assessment, error) {
	if err := assessment.Validate(); err != nil {
		return nil, err
	}
	assignQuestionIDs(assessment.Questions)
	now := s.now()
	assessment.CreatedAt = now
	assessment.UpdatedAt = now
	if err := s.assessments.Create(ctx, assessment); err != nil {
		return nil, err
	}
	return assessment, nil
}

func (s *AssessmentService) Get(ctx context.Context, id string) (*models.Assessment, error) {
	return s.assessments.FindByID(ctx, id)
}

func (s *AssessmentService) FindByCourse(ctx context.Context, courseID string) ([]models.Assessment, error) {
	return s.assessments.FindByCourse(ctx, courseID)
}

// Update replaces the assessment's editable fields. Attempts already started
// keep their question snapshot, so edits never change past results.
func (s *AssessmentService) Update(ctx context.Context, id string, assessment *models.Assessment) (*models.Assessment, error) {
	if _, err := s.assessments.FindByID(ctx, id); err != nil {
		return nil, err
	}
	assessment.ID = id
	if err := assessment.Validate(); err != nil {
		return nil, err
	}
	assignQuestionIDs(assessment.Questions)

	update := map[string]interface{}{
		"title":              assessment.Title,
		"course_id":          assessment.CourseID,
		"lesson_id":          assessment.LessonID,
		"questions":          assessment.Questions,
		"is_mandatory":       assessment.IsMandatory,
		"min_passing_score":  assessment.MinPassingScore,
		"max_attempts":       assessment.MaxAttempts,
		"time_limit_minutes": assessment.TimeLimitMinutes,
		"updated_at":         s.now(),
	}
	if err := s.assessments.Update(ctx, id, update); err != nil {
		return nil, err
	}
	return s.assessments.FindByID(ctx, id)
}

func (s *AssessmentService) Delete(ctx context.Context, id string) error {
	if _, err := s.assessments.FindByID(ctx, id); err != nil {
		return err
	}
	return s.assessments.Delete(ctx, id)
}

// GenerateQuestions asks the external generator for questions derived from the
// given content and appends them to the assessment. Generated output is
// validated against the question model; one bad question rejects the whole
// batch. When no generator is configured the caller falls back to manual
// authoring.
func (s *AssessmentService) GenerateQuestions(ctx context.Context, assessmentID string, req generation.Request) (*models.Assessment, error) {
	if s.generator == nil {
		return nil, models.ErrGenerationUnavailable
	}
	if err := generation.ValidateRequest(req); err != nil {
		return nil, err
	}
	assessment, err := s.assessments.FindByID(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	genCtx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()
	questions, err := s.generator.Generate(genCtx, req)
	if err != nil {
		return nil, err
	}
	if err := generation.ValidateQuestions(questions); err != nil {
		return nil, err
	}

	assignQuestionIDs(questions)
	assessment.Questions = append(assessment.Questions, questions...)
	update := map[string]interface{}{
		"questions":  assessment.Questions,
		"updated_at": s.now(),
	}
	if err := s.assessments.Update(ctx, assessmentID, update); err != nil {
		return nil, err
	}
	return assessment, nil
}

// assignQuestionIDs gives embedded questions an id when the author left it
// blank. Snapshots and answer maps key off these ids.
func assignQuestionIDs(questions []models.Question) {
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = uuid.NewString()
		}
	}
}
