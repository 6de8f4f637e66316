package service

import (
	"context"
	"log"
	"time"

	"assessment-service/internal/analyzer"
	"assessment-service/internal/event"
	"assessment-service/internal/models"
	"assessment-service/internal/repository"
)

// PatternService rebuilds a student's learning patterns from their graded
// attempt history and content engagement. Stored patterns mirror the latest
// analysis exactly: updated in place, stale ones removed.
type PatternService struct {
	attempts repository.AttemptRepository
	patterns repository.PatternRepository
	progress repository.ProgressRepository
	courses  repository.CourseRepository
	analyzer *analyzer.Analyzer
	events   *event.EventPublisher
	now      func() time.Time
}

func NewPatternService(
	attempts repository.AttemptRepository,
	patterns repository.PatternRepository,
	progress repository.ProgressRepository,
	courses repository.CourseRepository,
	a *analyzer.Analyzer,
	events *event.EventPublisher,
) *PatternService {
	if a == nil {
		a = analyzer.NewAnalyzer(nil)
	}
	return &PatternService{
		attempts: attempts,
		patterns: patterns,
		progress: progress,
		courses:  courses,
		analyzer: a,
		events:   events,
		now:      time.Now,
	}
}

// GetPatterns returns the stored patterns for one student.
func (s *PatternService) GetPatterns(ctx context.Context, studentID string) ([]models.LearningPattern, error) {
	return s.patterns.FindByStudent(ctx, studentID)
}

// Refresh re-analyzes one student and reconciles the stored patterns with the
// result. Analysis is deterministic, so refreshing an unchanged history leaves
// confidence scores untouched.
func (s *PatternService) Refresh(ctx context.Context, studentID string) ([]models.LearningPattern, error) {
	history, err := s.buildHistory(ctx, studentID)
	if err != nil {
		return nil, err
	}

	detected := s.analyzer.Analyze(*history, s.now())

	keepKeys := make([]string, 0, len(detected))
	for i := range detected {
		if err := s.patterns.Upsert(ctx, &detected[i]); err != nil {
			return nil, err
		}
		keepKeys = append(keepKeys, detected[i].Key)
	}
	if err := s.patterns.DeleteStale(ctx, studentID, keepKeys); err != nil {
		return nil, err
	}

	if err := s.events.Publish(event.PatternUpdated, map[string]interface{}{
		"student_id": studentID,
		"patterns":   len(detected),
	}); err != nil {
		log.Printf("Failed to publish pattern updated event: %v", err)
	}
	return detected, nil
}

// RefreshSince re-analyzes every student with an attempt graded after the
// cutoff. Used by the scheduler; returns how many students were refreshed.
func (s *PatternService) RefreshSince(ctx context.Context, since time.Time) (int, error) {
	students, err := s.attempts.DistinctStudentsGradedSince(ctx, since)
	if err != nil {
		return 0, err
	}
	refreshed := 0
	for _, studentID := range students {
		if _, err := s.Refresh(ctx, studentID); err != nil {
			log.Printf("Failed to refresh patterns for student %s: %v", studentID, err)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// buildHistory flattens graded attempts into per-question samples and joins
// progress rows with course content for engagement signals.
func (s *PatternService) buildHistory(ctx context.Context, studentID string) (*analyzer.History, error) {
	attempts, err := s.attempts.FindByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	var samples []analyzer.AnswerSample
	for _, attempt := range attempts {
		if attempt.Status != models.AttemptGraded || len(attempt.Questions) == 0 {
			continue
		}
		perQuestion := float64(attempt.TimeSpentSeconds) / float64(len(attempt.Questions))
		for _, q := range attempt.Questions {
			answer := attempt.Answers[q.ID]
			correct := answer.IsCorrect != nil && *answer.IsCorrect
			topics := q.Topics
			if len(topics) == 0 {
				topics = []string{""}
			}
			for _, topic := range topics {
				samples = append(samples, analyzer.AnswerSample{
					AttemptID:       attempt.ID,
					AssessmentID:    attempt.AssessmentID,
					QuestionID:      q.ID,
					Topic:           topic,
					DifficultyLevel: q.DifficultyLevel,
					Correct:         correct,
					TimeSeconds:     perQuestion,
				})
			}
		}
	}

	engagements, err := s.buildEngagements(ctx, studentID)
	if err != nil {
		return nil, err
	}

	baseline, err := s.attempts.AveragePacePerQuestion(ctx)
	if err != nil {
		log.Printf("Failed to compute pace baseline: %v", err)
		baseline = 0
	}

	return &analyzer.History{
		StudentID:           studentID,
		Samples:             samples,
		Engagements:         engagements,
		BaselineTimeSeconds: baseline,
	}, nil
}

func (s *PatternService) buildEngagements(ctx context.Context, studentID string) ([]analyzer.Engagement, error) {
	rows, err := s.progress.FindByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	courseCache := map[string]*models.Course{}
	var engagements []analyzer.Engagement
	for _, row := range rows {
		if row.LessonID == "" {
			continue
		}
		course, ok := courseCache[row.LessonID]
		if !ok {
			course, err = s.courses.FindByLessonID(ctx, row.LessonID)
			if err != nil {
				// Orphaned progress rows are skipped, not fatal.
				continue
			}
			courseCache[row.LessonID] = course
		}
		lesson := course.LessonByID(row.LessonID)
		if lesson == nil {
			continue
		}
		completed := row.Status == models.ProgressCompleted || row.InteractionDone
		for _, block := range lesson.Blocks {
			engagements = append(engagements, analyzer.Engagement{
				ContentType: block.Type,
				Completed:   completed,
			})
		}
	}
	return engagements, nil
}
