package generation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"assessment-service/internal/models"
)

const (
	defaultTimeout  = 20 * time.Second
	defaultAttempts = 3
	defaultDelay    = 500 * time.Millisecond
)

// HTTPGenerator calls the external question-generation service over HTTP.
// Transient failures are retried a bounded number of times with exponential
// backoff; after that the caller degrades to manual authoring.
type HTTPGenerator struct {
	client   *resty.Client
	attempts uint
}

func NewHTTPGenerator(baseURL, apiKey string) *HTTPGenerator {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(defaultTimeout)
	if apiKey != "" {
		client.SetHeader("Authorization", "Bearer "+apiKey)
	}
	return &HTTPGenerator{client: client, attempts: defaultAttempts}
}

type generateRequest struct {
	RequestID       string   `json:"request_id"`
	Content         string   `json:"content"`
	Count           int      `json:"count"`
	Types           []string `json:"types,omitempty"`
	DifficultyLevel int      `json:"difficulty_level,omitempty"`
	Topics          []string `json:"topics,omitempty"`
}

type generateResponse struct {
	Questions []models.Question `json:"questions"`
}

func (g *HTTPGenerator) Generate(ctx context.Context, req Request) ([]models.Question, error) {
	body := generateRequest{
		RequestID:       uuid.NewString(),
		Content:         req.Content,
		Count:           req.Count,
		DifficultyLevel: req.DifficultyLevel,
		Topics:          req.Topics,
	}
	for _, t := range req.Types {
		body.Types = append(body.Types, string(t))
	}

	var out generateResponse
	err := retry.Do(
		func() error {
			resp, err := g.client.R().
				SetContext(ctx).
				SetBody(body).
				SetResult(&out).
				Post("/v1/questions/generate")
			if err != nil {
				return err
			}
			if resp.IsError() {
				apiErr := fmt.Errorf("generation service responded %d: %s", resp.StatusCode(), resp.String())
				if resp.StatusCode() >= 400 && resp.StatusCode() < 500 && resp.StatusCode() != 429 {
					return retry.Unrecoverable(apiErr)
				}
				return apiErr
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(g.attempts),
		retry.Delay(defaultDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("[GENERATION] retry %d after error: %v", n, err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGenerationUnavailable, err)
	}
	return out.Questions, nil
}
