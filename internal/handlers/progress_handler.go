package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"assessment-service/internal/service"
)

type ProgressHandler struct {
	Service *service.ProgressService
}

func NewProgressHandler(s *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{Service: s}
}

// Get returns every progress row for the student.
func (h *ProgressHandler) Get(c *gin.Context) {
	rows, err := h.Service.GetProgress(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": rows, "count": len(rows)})
}

// StartLesson marks the calling student as having opened the lesson.
func (h *ProgressHandler) StartLesson(c *gin.Context) {
	rows, err := h.Service.MarkLessonStarted(c.Request.Context(), c.GetHeader("X-User-ID"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": rows})
}

// CompleteLesson marks the lesson's content interaction as finished for the
// calling student. Whether the lesson reaches completed status still depends
// on its mandatory assessment.
func (h *ProgressHandler) CompleteLesson(c *gin.Context) {
	rows, err := h.Service.MarkLessonCompleted(c.Request.Context(), c.GetHeader("X-User-ID"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": rows})
}

// Recompute rebuilds the student's lesson rows for one course.
func (h *ProgressHandler) Recompute(c *gin.Context) {
	courseID := c.Query("course_id")
	if courseID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "course_id query parameter is required"})
		return
	}
	rows, err := h.Service.Recompute(c.Request.Context(), c.Param("studentId"), courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": rows})
}

type overrideRequest struct {
	LessonID string `json:"lesson_id" binding:"required"`
	Reason   string `json:"reason"`
}

// Block places an instructor hold on a lesson for the student.
func (h *ProgressHandler) Block(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}
	rows, err := h.Service.Block(c.Request.Context(), c.Param("studentId"), req.LessonID, req.Reason, c.GetHeader("X-User-ID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": rows})
}

// Unblock lifts the automatic gate on a lesson for the student.
func (h *ProgressHandler) Unblock(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}
	rows, err := h.Service.Unblock(c.Request.Context(), c.Param("studentId"), req.LessonID, req.Reason, c.GetHeader("X-User-ID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": rows})
}
