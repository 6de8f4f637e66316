package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"assessment-service/internal/generation"
	"assessment-service/internal/models"
)

// In-memory repositories mirroring the Mongo implementations' contracts,
// including the uniqueness guarantees the indexes provide.

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts map[string]*models.AssessmentAttempt
	seq      int
}

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{attempts: map[string]*models.AssessmentAttempt{}}
}

func copyAttempt(a *models.AssessmentAttempt) *models.AssessmentAttempt {
	dup := *a
	dup.Questions = append([]models.Question(nil), a.Questions...)
	dup.Answers = make(map[string]models.AttemptAnswer, len(a.Answers))
	for k, v := range a.Answers {
		dup.Answers[k] = v
	}
	if a.Score != nil {
		v := *a.Score
		dup.Score = &v
	}
	if a.Passed != nil {
		v := *a.Passed
		dup.Passed = &v
	}
	return &dup
}

func (r *fakeAttemptRepo) Create(ctx context.Context, attempt *models.AssessmentAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.attempts {
		if a.AssessmentID != attempt.AssessmentID || a.StudentID != attempt.StudentID {
			continue
		}
		if a.Status == models.AttemptInProgressStatus || a.AttemptNumber == attempt.AttemptNumber {
			return models.ErrAttemptInProgress
		}
	}
	r.seq++
	attempt.ID = fmt.Sprintf("attempt-%d", r.seq)
	r.attempts[attempt.ID] = copyAttempt(attempt)
	return nil
}

func (r *fakeAttemptRepo) FindByID(ctx context.Context, id string) (*models.AssessmentAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return nil, models.ErrAttemptNotFound
	}
	return copyAttempt(a), nil
}

func (r *fakeAttemptRepo) FindActive(ctx context.Context, assessmentID, studentID string) (*models.AssessmentAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.attempts {
		if a.AssessmentID == assessmentID && a.StudentID == studentID && a.Status == models.AttemptInProgressStatus {
			return copyAttempt(a), nil
		}
	}
	return nil, nil
}

func (r *fakeAttemptRepo) MaxAttemptNumber(ctx context.Context, assessmentID, studentID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, a := range r.attempts {
		if a.AssessmentID == assessmentID && a.StudentID == studentID && a.AttemptNumber > max {
			max = a.AttemptNumber
		}
	}
	return max, nil
}

func (r *fakeAttemptRepo) UpsertAnswer(ctx context.Context, attemptID string, answer models.AttemptAnswer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[attemptID]
	if !ok {
		return models.ErrAttemptNotFound
	}
	if a.Status != models.AttemptInProgressStatus {
		return models.ErrAttemptNotActive
	}
	a.Answers[answer.QuestionID] = answer
	return nil
}

func (r *fakeAttemptRepo) Save(ctx context.Context, attempt *models.AssessmentAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.attempts[attempt.ID]; !ok {
		return models.ErrAttemptNotFound
	}
	r.attempts[attempt.ID] = copyAttempt(attempt)
	return nil
}

func (r *fakeAttemptRepo) FindByAssessmentAndStudent(ctx context.Context, assessmentID, studentID string) ([]models.AssessmentAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AssessmentAttempt
	for _, a := range r.attempts {
		if a.AssessmentID == assessmentID && a.StudentID == studentID {
			out = append(out, *copyAttempt(a))
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) FindByStudent(ctx context.Context, studentID string) ([]models.AssessmentAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AssessmentAttempt
	for _, a := range r.attempts {
		if a.StudentID == studentID {
			out = append(out, *copyAttempt(a))
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) FindOverdue(ctx context.Context, before time.Time) ([]models.AssessmentAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AssessmentAttempt
	for _, a := range r.attempts {
		if a.Status == models.AttemptInProgressStatus && a.DeadlineAt != nil && a.DeadlineAt.Before(before) {
			out = append(out, *copyAttempt(a))
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) AveragePacePerQuestion(ctx context.Context) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum, n := 0.0, 0
	for _, a := range r.attempts {
		if a.Status != models.AttemptGraded || len(a.Questions) == 0 {
			continue
		}
		sum += float64(a.TimeSpentSeconds) / float64(len(a.Questions))
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

func (r *fakeAttemptRepo) DistinctStudentsGradedSince(ctx context.Context, since time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, a := range r.attempts {
		if a.Status == models.AttemptGraded && a.GradedAt != nil && a.GradedAt.After(since) && !seen[a.StudentID] {
			seen[a.StudentID] = true
			out = append(out, a.StudentID)
		}
	}
	return out, nil
}

type fakeAssessmentRepo struct {
	mu          sync.Mutex
	assessments map[string]*models.Assessment
	seq         int
}

func newFakeAssessmentRepo() *fakeAssessmentRepo {
	return &fakeAssessmentRepo{assessments: map[string]*models.Assessment{}}
}

func (r *fakeAssessmentRepo) Create(ctx context.Context, assessment *models.Assessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if assessment.ID == "" {
		r.seq++
		assessment.ID = fmt.Sprintf("assessment-%d", r.seq)
	}
	dup := *assessment
	dup.Questions = append([]models.Question(nil), assessment.Questions...)
	r.assessments[assessment.ID] = &dup
	return nil
}

func (r *fakeAssessmentRepo) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assessments[id]
	if !ok {
		return nil, models.ErrAssessmentNotFound
	}
	dup := *a
	dup.Questions = append([]models.Question(nil), a.Questions...)
	return &dup, nil
}

func (r *fakeAssessmentRepo) FindByCourse(ctx context.Context, courseID string) ([]models.Assessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Assessment
	for _, a := range r.assessments {
		if a.CourseID == courseID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeAssessmentRepo) Update(ctx context.Context, id string, update map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assessments[id]
	if !ok {
		return models.ErrAssessmentNotFound
	}
	if v, ok := update["questions"].([]models.Question); ok {
		a.Questions = append([]models.Question(nil), v...)
	}
	if v, ok := update["title"].(string); ok {
		a.Title = v
	}
	if v, ok := update["updated_at"].(time.Time); ok {
		a.UpdatedAt = v
	}
	return nil
}

func (r *fakeAssessmentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.assessments, id)
	return nil
}

type fakeProgressRepo struct {
	mu   sync.Mutex
	rows map[string]*models.StudentProgress
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{rows: map[string]*models.StudentProgress{}}
}

func progressKey(p *models.StudentProgress) string {
	return p.StudentID + "|" + p.CourseID + "|" + p.LessonID + "|" + p.AssessmentID
}

func (r *fakeProgressRepo) Upsert(ctx context.Context, progress *models.StudentProgress) error {
	if err := progress.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	dup := *progress
	r.rows[progressKey(progress)] = &dup
	return nil
}

func (r *fakeProgressRepo) FindByStudent(ctx context.Context, studentID string) ([]models.StudentProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.StudentProgress
	for _, row := range r.rows {
		if row.StudentID == studentID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *fakeProgressRepo) FindLessonRow(ctx context.Context, studentID, lessonID string) (*models.StudentProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.StudentID == studentID && row.LessonID == lessonID {
			dup := *row
			return &dup, nil
		}
	}
	return nil, nil
}

func (r *fakeProgressRepo) FindAssessmentRow(ctx context.Context, studentID, assessmentID string) (*models.StudentProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.StudentID == studentID && row.AssessmentID == assessmentID {
			dup := *row
			return &dup, nil
		}
	}
	return nil, nil
}

type fakeCourseRepo struct {
	mu      sync.Mutex
	courses map[string]*models.Course
	seq     int
}

func newFakeCourseRepo() *fakeCourseRepo {
	return &fakeCourseRepo{courses: map[string]*models.Course{}}
}

func (r *fakeCourseRepo) Create(ctx context.Context, course *models.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if course.ID == "" {
		r.seq++
		course.ID = fmt.Sprintf("course-%d", r.seq)
	}
	dup := *course
	r.courses[course.ID] = &dup
	return nil
}

func (r *fakeCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[id]
	if !ok {
		return nil, models.ErrCourseNotFound
	}
	dup := *c
	return &dup, nil
}

func (r *fakeCourseRepo) FindAll(ctx context.Context) ([]models.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Course
	for _, c := range r.courses {
		out = append(out, *c)
	}
	return out, nil
}

func (r *fakeCourseRepo) FindByLessonID(ctx context.Context, lessonID string) (*models.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.courses {
		for _, l := range c.Lessons {
			if l.ID == lessonID {
				dup := *c
				return &dup, nil
			}
		}
	}
	return nil, models.ErrCourseNotFound
}

func (r *fakeCourseRepo) Update(ctx context.Context, id string, update map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[id]
	if !ok {
		return models.ErrCourseNotFound
	}
	if v, ok := update["title"].(string); ok {
		c.Title = v
	}
	if v, ok := update["lessons"].([]models.Lesson); ok {
		c.Lessons = v
	}
	return nil
}

func (r *fakeCourseRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.courses, id)
	return nil
}

type fakePatternRepo struct {
	mu       sync.Mutex
	patterns map[string]map[string]*models.LearningPattern
}

func newFakePatternRepo() *fakePatternRepo {
	return &fakePatternRepo{patterns: map[string]map[string]*models.LearningPattern{}}
}

func (r *fakePatternRepo) FindByStudent(ctx context.Context, studentID string) ([]models.LearningPattern, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.LearningPattern
	for _, p := range r.patterns[studentID] {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakePatternRepo) Upsert(ctx context.Context, pattern *models.LearningPattern) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byKey := r.patterns[pattern.StudentID]
	if byKey == nil {
		byKey = map[string]*models.LearningPattern{}
		r.patterns[pattern.StudentID] = byKey
	}
	dup := *pattern
	if existing, ok := byKey[pattern.Key]; ok {
		dup.DetectedAt = existing.DetectedAt
	}
	byKey[pattern.Key] = &dup
	return nil
}

func (r *fakePatternRepo) DeleteStale(ctx context.Context, studentID string, keepKeys []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	keep := map[string]bool{}
	for _, k := range keepKeys {
		keep[k] = true
	}
	for key := range r.patterns[studentID] {
		if !keep[key] {
			delete(r.patterns[studentID], key)
		}
	}
	return nil
}

type fakeGenerator struct {
	questions []models.Question
	err       error
	requests  []generation.Request
}

func (g *fakeGenerator) Generate(ctx context.Context, req generation.Request) ([]models.Question, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return g.questions, nil
}
