package models

import "time"

type PatternType string

const (
	PatternStruggleArea      PatternType = "struggle_area"
	PatternStrengthArea      PatternType = "strength_area"
	PatternLearningPace      PatternType = "learning_pace"
	PatternContentPreference PatternType = "content_preference"
)

// PatternData carries the evidence behind a detected pattern. Which fields are
// populated depends on the pattern type.
type PatternData struct {
	Topic               string      `bson:"topic,omitempty" json:"topic,omitempty"`
	ContentType         ContentType `bson:"content_type,omitempty" json:"content_type,omitempty"`
	AccuracyRate        float64     `bson:"accuracy_rate,omitempty" json:"accuracy_rate,omitempty"`
	SampleSize          int         `bson:"sample_size,omitempty" json:"sample_size,omitempty"`
	RetryCount          int         `bson:"retry_count,omitempty" json:"retry_count,omitempty"`
	AvgTimeSeconds      float64     `bson:"avg_time_seconds,omitempty" json:"avg_time_seconds,omitempty"`
	BaselineTimeSeconds float64     `bson:"baseline_time_seconds,omitempty" json:"baseline_time_seconds,omitempty"`
	Pace                string      `bson:"pace,omitempty" json:"pace,omitempty"`
	CompletionRate      float64     `bson:"completion_rate,omitempty" json:"completion_rate,omitempty"`
}

// LearningPattern is a confidence-scored inference about a student's recurring
// behavior. Patterns are advisory: they never gate progression on their own.
type LearningPattern struct {
	ID              string      `bson:"_id,omitempty" json:"id"`
	StudentID       string      `bson:"student_id" json:"student_id"`
	PatternType     PatternType `bson:"pattern_type" json:"pattern_type"`
	Key             string      `bson:"key" json:"key"`
	Data            PatternData `bson:"data" json:"data"`
	ConfidenceScore float64     `bson:"confidence_score" json:"confidence_score"`
	DetectedAt      time.Time   `bson:"detected_at" json:"detected_at"`
	LastUpdated     time.Time   `bson:"last_updated" json:"last_updated"`
}

// PatternKey builds the natural key that makes recomputation idempotent: one
// row per (student, type, subject).
func PatternKey(t PatternType, subject string) string {
	if subject == "" {
		subject = "global"
	}
	return string(t) + ":" + subject
}
