package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"assessment-service/internal/models"
	"assessment-service/internal/service"
)

type AttemptHandler struct {
	Service *service.AttemptService
}

func NewAttemptHandler(s *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{Service: s}
}

// Start opens a new attempt at the assessment for the calling student.
func (h *AttemptHandler) Start(c *gin.Context) {
	assessmentID := c.Param("id")
	studentID := c.GetHeader("X-User-ID")

	attempt, err := h.Service.Start(c.Request.Context(), assessmentID, studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, attempt)
}

// RecordAnswer saves one answer. Calling it again for the same question
// replaces the previous value.
func (h *AttemptHandler) RecordAnswer(c *gin.Context) {
	var req struct {
		StudentAnswer string `json:"student_answer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	attempt, err := h.Service.RecordAnswer(c.Request.Context(), c.Param("id"), c.Param("questionId"), req.StudentAnswer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

// Submit closes the attempt and returns the graded result, or the attempt in
// its submitted state when manual grading is still pending. Submitting twice
// returns the stored result unchanged.
func (h *AttemptHandler) Submit(c *gin.Context) {
	attempt, err := h.Service.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"attempt":                attempt,
		"pending_manual_grading": attempt.Status == models.AttemptSubmitted,
	})
}

// Grade applies one instructor grade to an essay or short answer question and
// returns the recomputed attempt.
func (h *AttemptHandler) Grade(c *gin.Context) {
	var req struct {
		QuestionID   string `json:"question_id" binding:"required"`
		PointsEarned int    `json:"points_earned"`
		IsCorrect    *bool  `json:"is_correct"`
		Feedback     string `json:"feedback"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	attempt, err := h.Service.ApplyManualGrade(
		c.Request.Context(),
		c.Param("id"),
		req.QuestionID,
		req.PointsEarned,
		req.IsCorrect,
		req.Feedback,
		c.GetHeader("X-User-ID"),
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

// Get returns one attempt.
func (h *AttemptHandler) Get(c *gin.Context) {
	attempt, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

// History returns the calling student's attempts at one assessment.
func (h *AttemptHandler) History(c *gin.Context) {
	attempts, err := h.Service.History(c.Request.Context(), c.Param("id"), c.GetHeader("X-User-ID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": attempts, "count": len(attempts)})
}

// ListByStudent returns every attempt the given student has made.
func (h *AttemptHandler) ListByStudent(c *gin.Context) {
	attempts, err := h.Service.ListByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": attempts, "count": len(attempts)})
}
