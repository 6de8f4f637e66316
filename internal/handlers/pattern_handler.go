package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"assessment-service/internal/service"
)

type PatternHandler struct {
	Service *service.PatternService
}

func NewPatternHandler(s *service.PatternService) *PatternHandler {
	return &PatternHandler{Service: s}
}

// Get returns the stored learning patterns for a student.
func (h *PatternHandler) Get(c *gin.Context) {
	patterns, err := h.Service.GetPatterns(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patterns": patterns, "count": len(patterns)})
}

// Refresh re-analyzes the student on demand and returns the fresh patterns.
func (h *PatternHandler) Refresh(c *gin.Context) {
	patterns, err := h.Service.Refresh(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patterns": patterns, "count": len(patterns)})
}
