package service

import (
	"context"

	"assessment-service/internal/models"
	"assessment-service/internal/repository"
	"assessment-service/internal/selection"
)

// QuestionService manages the shared question bank and the weighted picker
// instructors use to assemble assessments from it.
type QuestionService struct {
	questions repository.QuestionRepository
	picker    *selection.Picker
}

func NewQuestionService(questions repository.QuestionRepository) *QuestionService {
	return &QuestionService{
		questions: questions,
		picker:    selection.NewPicker(),
	}
}

func (s *QuestionService) List(ctx context.Context) ([]models.Question, error) {
	return s.questions.FindAll(ctx)
}

func (s *QuestionService) Get(ctx context.Context, id string) (*models.Question, error) {
	return s.questions.FindByID(ctx, id)
}

func (s *QuestionService) Create(ctx context.Context, question *models.Question) (*models.Question, error) {
	if err := question.Validate(); err != nil {
		return nil, err
	}
	if err := s.questions.Create(ctx, question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *QuestionService) Update(ctx context.Context, id string, question *models.Question) (*models.Question, error) {
	if _, err := s.questions.FindByID(ctx, id); err != nil {
		return nil, err
	}
	question.ID = id
	if err := question.Validate(); err != nil {
		return nil, err
	}

	update := map[string]interface{}{
		"type":             question.Type,
		"text":             question.Text,
		"options":          question.Options,
		"correct_answer":   question.CorrectAnswer,
		"accepted_answers": question.AcceptedAnswers,
		"explanation":      question.Explanation,
		"points":           question.Points,
		"difficulty_level": question.DifficultyLevel,
		"topics":           question.Topics,
	}
	if err := s.questions.Update(ctx, id, update); err != nil {
		return nil, err
	}
	return s.questions.FindByID(ctx, id)
}

func (s *QuestionService) Delete(ctx context.Context, id string) error {
	if _, err := s.questions.FindByID(ctx, id); err != nil {
		return err
	}
	return s.questions.Delete(ctx, id)
}

// Pick runs the weighted selector over the whole bank.
func (s *QuestionService) Pick(ctx context.Context, criteria *selection.Criteria) (*selection.Result, error) {
	bank, err := s.questions.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.picker.Pick(bank, criteria), nil
}
