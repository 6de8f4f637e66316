package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"assessment-service/internal/models"
	"assessment-service/internal/repository"
)

// CourseService manages course structure: ordered lessons and their typed
// content blocks.
type CourseService struct {
	courses repository.CourseRepository
	now     func() time.Time
}

func NewCourseService(courses repository.CourseRepository) *CourseService {
	return &CourseService{courses: courses, now: time.Now}
}

func (s *CourseService) Create(ctx context.Context, course *models.Course) (*models.Course, error) {
	if err := validateCourse(course); err != nil {
		return nil, err
	}
	now := s.now()
	course.CreatedAt = now
	course.UpdatedAt = now
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	return s.courses.FindByID(ctx, id)
}

func (s *CourseService) List(ctx context.Context) ([]models.Course, error) {
	return s.courses.FindAll(ctx)
}

func (s *CourseService) Update(ctx context.Context, id string, course *models.Course) (*models.Course, error) {
	if _, err := s.courses.FindByID(ctx, id); err != nil {
		return nil, err
	}
	course.ID = id
	if err := validateCourse(course); err != nil {
		return nil, err
	}

	update := map[string]interface{}{
		"title":      course.Title,
		"lessons":    course.Lessons,
		"updated_at": s.now(),
	}
	if err := s.courses.Update(ctx, id, update); err != nil {
		return nil, err
	}
	return s.courses.FindByID(ctx, id)
}

func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.courses.FindByID(ctx, id); err != nil {
		return err
	}
	return s.courses.Delete(ctx, id)
}

// validateCourse checks every content block's tagged union and assigns lesson
// ids where the author left them blank.
func validateCourse(course *models.Course) error {
	for i := range course.Lessons {
		lesson := &course.Lessons[i]
		if lesson.ID == "" {
			lesson.ID = uuid.NewString()
		}
		for j := range lesson.Blocks {
			if err := lesson.Blocks[j].Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}
