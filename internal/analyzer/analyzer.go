package analyzer

import (
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"assessment-service/internal/models"
)

// Analyzer scans a student's attempt history for recurring struggle, strength,
// pace and content-preference signals. Output is advisory only; nothing here
// ever changes progression state.
type Analyzer struct {
	config *Config
}

func NewAnalyzer(config *Config) *Analyzer {
	if config == nil {
		config = DefaultConfig()
	}
	return &Analyzer{config: config}
}

// Analyze runs every detector over the history. Detection is deterministic:
// unchanged history produces identical patterns with identical confidence.
func (a *Analyzer) Analyze(h History, now time.Time) []models.LearningPattern {
	var patterns []models.LearningPattern
	patterns = append(patterns, a.topicPatterns(h, now)...)
	if p := a.pacePattern(h, now); p != nil {
		patterns = append(patterns, *p)
	}
	if p := a.preferencePattern(h, now); p != nil {
		patterns = append(patterns, *p)
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].PatternType != patterns[j].PatternType {
			return patterns[i].PatternType < patterns[j].PatternType
		}
		return patterns[i].Key < patterns[j].Key
	})
	return patterns
}

type topicStats struct {
	total       int
	correct     int
	attempts    map[string]bool
	assessments map[string]bool
	// perAttempt accumulates correct/total per attempt for consistency.
	perAttemptTotal   map[string]int
	perAttemptCorrect map[string]int
}

func (a *Analyzer) topicPatterns(h History, now time.Time) []models.LearningPattern {
	byTopic := map[string]*topicStats{}
	for _, s := range h.Samples {
		if s.Topic == "" {
			continue
		}
		ts, ok := byTopic[s.Topic]
		if !ok {
			ts = &topicStats{
				attempts:          map[string]bool{},
				assessments:       map[string]bool{},
				perAttemptTotal:   map[string]int{},
				perAttemptCorrect: map[string]int{},
			}
			byTopic[s.Topic] = ts
		}
		ts.total++
		if s.Correct {
			ts.correct++
			ts.perAttemptCorrect[s.AttemptID]++
		}
		ts.attempts[s.AttemptID] = true
		ts.assessments[s.AssessmentID] = true
		ts.perAttemptTotal[s.AttemptID]++
	}

	var patterns []models.LearningPattern
	for topic, ts := range byTopic {
		if ts.total < a.config.MinSamples {
			continue
		}
		accuracy := float64(ts.correct) / float64(ts.total)
		incorrectRate := 1 - accuracy
		retries := len(ts.attempts) - len(ts.assessments)

		data := models.PatternData{
			Topic:        topic,
			AccuracyRate: round2(accuracy),
			SampleSize:   ts.total,
			RetryCount:   retries,
		}

		switch {
		case incorrectRate > a.config.StruggleThreshold:
			margin := (incorrectRate - a.config.StruggleThreshold) / (1 - a.config.StruggleThreshold)
			patterns = append(patterns, models.LearningPattern{
				StudentID:       h.StudentID,
				PatternType:     models.PatternStruggleArea,
				Key:             models.PatternKey(models.PatternStruggleArea, topic),
				Data:            data,
				ConfidenceScore: a.topicConfidence(ts, margin),
				DetectedAt:      now,
				LastUpdated:     now,
			})
		case accuracy >= a.config.StrengthThreshold:
			margin := (accuracy - a.config.StrengthThreshold) / (1 - a.config.StrengthThreshold)
			patterns = append(patterns, models.LearningPattern{
				StudentID:       h.StudentID,
				PatternType:     models.PatternStrengthArea,
				Key:             models.PatternKey(models.PatternStrengthArea, topic),
				Data:            data,
				ConfidenceScore: a.topicConfidence(ts, margin),
				DetectedAt:      now,
				LastUpdated:     now,
			})
		}
	}
	return patterns
}

// topicConfidence grows with sample size, margin beyond the threshold, and
// consistency of per-attempt accuracy.
func (a *Analyzer) topicConfidence(ts *topicStats, margin float64) float64 {
	sampleFactor := float64(ts.total) / float64(ts.total+a.config.MinSamples)

	consistency := 1.0
	if len(ts.perAttemptTotal) > 1 {
		accs := make([]float64, 0, len(ts.perAttemptTotal))
		// Sort attempt ids so floating point accumulation order is stable.
		ids := make([]string, 0, len(ts.perAttemptTotal))
		for id := range ts.perAttemptTotal {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			accs = append(accs, float64(ts.perAttemptCorrect[id])/float64(ts.perAttemptTotal[id]))
		}
		if sd, err := stats.StandardDeviationPopulation(accs); err == nil {
			consistency = clamp01(1 - sd)
		}
	}

	return round2(sampleFactor * (0.4 + 0.3*clamp01(margin) + 0.3*consistency))
}

func (a *Analyzer) pacePattern(h History, now time.Time) *models.LearningPattern {
	if h.BaselineTimeSeconds <= 0 {
		return nil
	}
	// One sample per question: multi-topic questions appear once per topic in
	// Samples and must not be double-counted for pace.
	seen := map[string]bool{}
	times := make([]float64, 0, len(h.Samples))
	for _, s := range h.Samples {
		key := s.AttemptID + "/" + s.QuestionID
		if seen[key] {
			continue
		}
		seen[key] = true
		times = append(times, s.TimeSeconds)
	}
	if len(times) < a.config.MinSamples {
		return nil
	}
	avg, err := stats.Mean(times)
	if err != nil {
		return nil
	}

	ratio := avg / h.BaselineTimeSeconds
	var pace string
	switch {
	case ratio <= a.config.FastPaceRatio:
		pace = "fast"
	case ratio >= a.config.SlowPaceRatio:
		pace = "slow"
	default:
		return nil
	}

	sampleFactor := float64(len(times)) / float64(len(times)+a.config.MinSamples)
	deviation := math.Abs(ratio - 1)
	return &models.LearningPattern{
		StudentID:   h.StudentID,
		PatternType: models.PatternLearningPace,
		Key:         models.PatternKey(models.PatternLearningPace, ""),
		Data: models.PatternData{
			Pace:                pace,
			AvgTimeSeconds:      round2(avg),
			BaselineTimeSeconds: round2(h.BaselineTimeSeconds),
			SampleSize:          len(times),
		},
		ConfidenceScore: round2(sampleFactor * clamp01(deviation)),
		DetectedAt:      now,
		LastUpdated:     now,
	}
}

func (a *Analyzer) preferencePattern(h History, now time.Time) *models.LearningPattern {
	type typeStats struct {
		total     int
		completed int
	}
	byType := map[models.ContentType]*typeStats{}
	for _, e := range h.Engagements {
		ts, ok := byType[e.ContentType]
		if !ok {
			ts = &typeStats{}
			byType[e.ContentType] = ts
		}
		ts.total++
		if e.Completed {
			ts.completed++
		}
	}

	type rated struct {
		contentType models.ContentType
		rate        float64
		total       int
	}
	var candidates []rated
	for ct, ts := range byType {
		if ts.total < a.config.MinEngagements {
			continue
		}
		candidates = append(candidates, rated{ct, float64(ts.completed) / float64(ts.total), ts.total})
	}
	if len(candidates) < 2 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].rate != candidates[j].rate {
			return candidates[i].rate > candidates[j].rate
		}
		return candidates[i].contentType < candidates[j].contentType
	})

	top, second := candidates[0], candidates[1]
	gap := top.rate - second.rate
	if gap < a.config.PreferenceGap {
		return nil
	}

	sampleFactor := float64(top.total) / float64(top.total+a.config.MinEngagements)
	return &models.LearningPattern{
		StudentID:   h.StudentID,
		PatternType: models.PatternContentPreference,
		Key:         models.PatternKey(models.PatternContentPreference, string(top.contentType)),
		Data: models.PatternData{
			ContentType:    top.contentType,
			CompletionRate: round2(top.rate),
			SampleSize:     top.total,
		},
		ConfidenceScore: round2(sampleFactor * clamp01(0.5+gap)),
		DetectedAt:      now,
		LastUpdated:     now,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
