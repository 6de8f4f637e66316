package models

import "errors"

// Sentinel errors for rule violations. Handlers map these onto HTTP statuses;
// services wrap them with context via fmt.Errorf("%w", ...).
var (
	// Attempt lifecycle.
	ErrMaxAttemptsExceeded = errors.New("maximum attempts exceeded")
	ErrAttemptInProgress   = errors.New("an attempt is already in progress")
	ErrAttemptNotActive    = errors.New("attempt is no longer accepting changes")
	ErrAssessmentExpired   = errors.New("attempt has expired")

	// Grading.
	ErrUnknownQuestion     = errors.New("question is not part of this attempt")
	ErrGradeExceedsMax     = errors.New("grade exceeds the question's maximum points")
	ErrNotManuallyGradable = errors.New("question type is not manually gradable")

	// Progression.
	ErrMissingReason     = errors.New("a reason is required")
	ErrInvalidContentRef = errors.New("progress row must reference exactly one content item")

	// Lookups.
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrCourseNotFound     = errors.New("course not found")

	// External collaborators.
	ErrGenerationUnavailable = errors.New("question generation unavailable")
)
