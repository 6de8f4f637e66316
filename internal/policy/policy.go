package policy

import (
	"time"

	"assessment-service/internal/models"
)

// CanStart decides whether a new attempt may begin given how many attempts the
// student has already used. A nil MaxAttempts means unlimited retakes.
func CanStart(a *models.Assessment, attemptsTaken int) error {
	if a.MaxAttempts != nil && attemptsTaken >= *a.MaxAttempts {
		return models.ErrMaxAttemptsExceeded
	}
	return nil
}

// Passed applies the inclusive pass boundary: a score exactly equal to the
// minimum passing score passes.
func Passed(score int, minPassingScore int) bool {
	return score >= minPassingScore
}

// Deadline computes the server-authoritative submission deadline for an
// attempt started at the given time. Untimed assessments have no deadline.
func Deadline(a *models.Assessment, startedAt time.Time) *time.Time {
	if a.TimeLimitMinutes == nil {
		return nil
	}
	d := startedAt.Add(time.Duration(*a.TimeLimitMinutes) * time.Minute)
	return &d
}

// IsLate reports whether a submission arrived after the deadline. Late
// submissions are accepted and flagged, never silently dropped.
func IsLate(deadline *time.Time, submittedAt time.Time) bool {
	return deadline != nil && submittedAt.After(*deadline)
}

// RequiredForProgression reports whether this assessment gates dependent
// content. Non-mandatory assessments never block progression regardless of
// outcome.
func RequiredForProgression(a *models.Assessment) bool {
	return a.IsMandatory
}
