package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/tcg-market/internal/repository"
	"github.com/codyseavey/tcg-market/internal/services"
	"github.com/codyseavey/tcg-market/internal/session"
)

// respondError maps service errors to HTTP status codes
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrCardNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "card not found, please search for it first"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, repository.ErrAlreadySold):
		c.JSON(http.StatusConflict, gin.H{"error": "holding already sold"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// currentUser returns the session user or writes a 401
func currentUser(c *gin.Context) (string, bool) {
	sess, err := session.FromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return "", false
	}
	return sess.UserID, true
}
