package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireUser expects the gateway to have authenticated the caller and set
// X-User-ID. The service itself never sees credentials.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-User-ID") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "User ID is required",
				"code":  "UNAUTHENTICATED",
			})
			return
		}
		c.Next()
	}
}

// RequireInstructor guards authoring, grading and override routes.
func RequireInstructor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-User-Role") != "instructor" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Instructor role required",
				"code":  "FORBIDDEN",
			})
			return
		}
		c.Next()
	}
}
