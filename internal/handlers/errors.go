package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"assessment-service/internal/models"
)

// respondError maps domain sentinels onto HTTP statuses with stable machine
// codes, so API consumers can branch without parsing messages.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrMaxAttemptsExceeded):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "code": "MAX_ATTEMPTS_EXCEEDED"})
	case errors.Is(err, models.ErrAttemptInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "ATTEMPT_IN_PROGRESS"})
	case errors.Is(err, models.ErrAttemptNotActive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "ATTEMPT_NOT_ACTIVE"})
	case errors.Is(err, models.ErrAssessmentExpired):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "ATTEMPT_EXPIRED"})
	case errors.Is(err, models.ErrAttemptNotFound),
		errors.Is(err, models.ErrAssessmentNotFound),
		errors.Is(err, models.ErrQuestionNotFound),
		errors.Is(err, models.ErrCourseNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "NOT_FOUND"})
	case errors.Is(err, models.ErrUnknownQuestion):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "code": "UNKNOWN_QUESTION"})
	case errors.Is(err, models.ErrGradeExceedsMax):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "code": "GRADE_EXCEEDS_MAX"})
	case errors.Is(err, models.ErrNotManuallyGradable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "code": "NOT_MANUALLY_GRADABLE"})
	case errors.Is(err, models.ErrMissingReason):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "REASON_REQUIRED"})
	case errors.Is(err, models.ErrInvalidContentRef):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_CONTENT_REF"})
	case errors.Is(err, models.ErrGenerationUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":    err.Error(),
			"code":     "GENERATION_UNAVAILABLE",
			"fallback": "manual_authoring",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
