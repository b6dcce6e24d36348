package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"campusfix-be/repository"

	"github.com/gin-gonic/gin"
)

// requestContext bounds a handler's remote calls.
func requestContext(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

// respondError maps the domain error taxonomy onto status codes.
func respondError(c *gin.Context, err error) {
	var verr *repository.ValidationError
	var repoErr *repository.RepositoryError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please fill in all required fields.", "fields": verr.Fields})
	case errors.Is(err, repository.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Please sign in to continue."})
	case errors.Is(err, repository.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
	case errors.Is(err, repository.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to change this issue"})
	case errors.Is(err, repository.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "Already exists"})
	case errors.As(err, &repoErr):
		log.Printf("remote store: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": repoErr.Error()})
	default:
		log.Printf("unexpected error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}
