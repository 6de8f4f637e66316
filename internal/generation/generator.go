package generation

import (
	"context"

	"assessment-service/internal/models"
)

// Request describes the content a generator should derive questions from. The
// engine never depends on generation being available; callers fall back to
// manual authoring when it is not.
type Request struct {
	Content         string                `json:"content" validate:"required"`
	Count           int                   `json:"count" validate:"required,min=1,max=20"`
	Types           []models.QuestionType `json:"types,omitempty"`
	DifficultyLevel int                   `json:"difficulty_level,omitempty" validate:"omitempty,min=1,max=5"`
	Topics          []string              `json:"topics,omitempty"`
}

// Generator is the narrow contract to the external text-generation
// collaborator. Implementations must respect the context deadline; the attempt
// state machine never waits on generation.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]models.Question, error)
}
