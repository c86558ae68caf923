package api

import (
	"errors"

	"github.com/gin-gonic/gin"
)

var (
	ErrNotificationNotFound = errors.New("notification not found for this user")
	ErrInvalidCursor        = errors.New("invalid pagination cursor")
)

func errorResponse(err error) gin.H {
	return gin.H{"error": err.Error()}
}
