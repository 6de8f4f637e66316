package analyzer

import "assessment-service/internal/models"

// AnswerSample is one graded answer flattened out of a student's attempt
// history, one sample per (question, topic) pair.
type AnswerSample struct {
	AttemptID       string
	AssessmentID    string
	QuestionID      string
	Topic           string
	DifficultyLevel int
	Correct         bool
	TimeSeconds     float64
}

// Engagement is one content block the student has touched, tagged with its
// variant type.
type Engagement struct {
	ContentType models.ContentType
	Completed   bool
}

// History is the full input for one student's analysis run. Re-running on the
// same history yields the same patterns with the same confidence scores.
type History struct {
	StudentID string
	Samples   []AnswerSample
	// Engagements come from progress rows joined with course content blocks.
	Engagements []Engagement
	// BaselineTimeSeconds is the population average time per question.
	BaselineTimeSeconds float64
}

// Config holds the detection thresholds.
type Config struct {
	// MinSamples is the minimum sample size before any topic or pace pattern
	// is emitted.
	MinSamples int
	// StruggleThreshold is the incorrect-answer rate above which a topic
	// counts as a struggle area.
	StruggleThreshold float64
	// StrengthThreshold is the correct-answer rate at or above which a topic
	// counts as a strength area.
	StrengthThreshold float64
	// FastPaceRatio and SlowPaceRatio bound the student/population time ratio
	// for pace detection.
	FastPaceRatio float64
	SlowPaceRatio float64
	// PreferenceGap is the completion-rate lead one content type needs over
	// the runner-up.
	PreferenceGap float64
	// MinEngagements is the minimum touched blocks per content type before
	// preference detection applies.
	MinEngagements int
}

func DefaultConfig() *Config {
	return &Config{
		MinSamples:        5,
		StruggleThreshold: 0.5,
		StrengthThreshold: 0.8,
		FastPaceRatio:     0.75,
		SlowPaceRatio:     1.25,
		PreferenceGap:     0.2,
		MinEngagements:    3,
	}
}
