package selection

import (
	"math"
	"sort"

	"assessment-service/internal/models"
)

// Criteria defines what an instructor is asking the question bank for when
// assembling an assessment.
type Criteria struct {
	Topics          []string `json:"topics"`
	DifficultyLevel int      `json:"difficulty_level"` // 0 means any
	ExcludeIDs      []string `json:"exclude_ids"`
	Count           int      `json:"count"`
	MinTopicMatch   int      `json:"min_topic_match"`
	WeightExponent  float64  `json:"weight_exponent"`
}

func DefaultCriteria() *Criteria {
	return &Criteria{
		Count:          5,
		MinTopicMatch:  0,
		WeightExponent: 2.0,
	}
}

// WeightedQuestion is a bank question with its computed selection weight.
type WeightedQuestion struct {
	Question      models.Question `json:"question"`
	Weight        float64         `json:"weight"`
	TopicMatches  int             `json:"topic_matches"`
	MatchedTopics []string        `json:"matched_topics"`
}

// Result contains the picked questions and selection metadata.
type Result struct {
	Questions       []models.Question `json:"questions"`
	TotalCandidates int               `json:"total_candidates"`
	AverageMatch    float64           `json:"average_match"`
}

// Picker ranks bank questions by topic overlap and difficulty proximity.
// Ranking is deterministic: equal weights fall back to question id order, so
// the same bank and criteria always produce the same pick.
type Picker struct{}

func NewPicker() *Picker {
	return &Picker{}
}

// Pick returns up to criteria.Count questions, best matches first.
func (p *Picker) Pick(questions []models.Question, criteria *Criteria) *Result {
	if criteria == nil {
		criteria = DefaultCriteria()
	}

	weighted := p.calculateWeights(questions, criteria)
	if criteria.MinTopicMatch > 0 {
		filtered := weighted[:0]
		for _, wq := range weighted {
			if wq.TopicMatches >= criteria.MinTopicMatch {
				filtered = append(filtered, wq)
			}
		}
		weighted = filtered
	}

	sort.Slice(weighted, func(i, j int) bool {
		if weighted[i].Weight != weighted[j].Weight {
			return weighted[i].Weight > weighted[j].Weight
		}
		return weighted[i].Question.ID < weighted[j].Question.ID
	})

	count := criteria.Count
	if count <= 0 || count > len(weighted) {
		count = len(weighted)
	}
	selected := weighted[:count]

	result := &Result{
		Questions:       make([]models.Question, len(selected)),
		TotalCandidates: len(weighted),
	}
	totalMatches := 0
	for i, wq := range selected {
		result.Questions[i] = wq.Question
		totalMatches += wq.TopicMatches
	}
	if len(selected) > 0 {
		result.AverageMatch = float64(totalMatches) / float64(len(selected))
	}
	return result
}

func (p *Picker) calculateWeights(questions []models.Question, criteria *Criteria) []WeightedQuestion {
	weighted := make([]WeightedQuestion, 0, len(questions))
	for _, q := range questions {
		if isExcluded(q.ID, criteria.ExcludeIDs) {
			continue
		}

		matches, matched := countTopicMatches(q.Topics, criteria.Topics)
		exponent := criteria.WeightExponent
		if exponent <= 0 {
			exponent = 2.0
		}
		weight := math.Pow(float64(matches+1), exponent)

		// Difficulty proximity scales the topic weight down the further the
		// question sits from the requested level.
		if criteria.DifficultyLevel > 0 {
			distance := math.Abs(float64(q.DifficultyLevel - criteria.DifficultyLevel))
			weight /= 1 + distance
		}

		weighted = append(weighted, WeightedQuestion{
			Question:      q,
			Weight:        weight,
			TopicMatches:  matches,
			MatchedTopics: matched,
		})
	}
	return weighted
}

func countTopicMatches(questionTopics, wantedTopics []string) (int, []string) {
	if len(wantedTopics) == 0 {
		return 0, nil
	}
	wanted := make(map[string]bool, len(wantedTopics))
	for _, t := range wantedTopics {
		wanted[t] = true
	}
	var matched []string
	for _, t := range questionTopics {
		if wanted[t] {
			matched = append(matched, t)
		}
	}
	return len(matched), matched
}

func isExcluded(id string, excludeIDs []string) bool {
	for _, e := range excludeIDs {
		if e == id {
			return true
		}
	}
	return false
}
