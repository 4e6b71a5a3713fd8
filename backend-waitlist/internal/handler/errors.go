package handler

import (
	"errors"
	"net/http"

	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/domain"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/logger"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// errorMapping ties a domain error to its HTTP status and code
type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domain.ErrInvalidName, http.StatusBadRequest, "INVALID_NAME"},
	{domain.ErrInvalidSettings, http.StatusBadRequest, "INVALID_SETTINGS"},
	{domain.ErrInvalidSlug, http.StatusBadRequest, "INVALID_SLUG"},
	{domain.ErrInvalidPartySize, http.StatusBadRequest, "INVALID_PARTY_SIZE"},
	{domain.ErrInvalidQueueID, http.StatusBadRequest, "INVALID_REQUEST"},
	{domain.ErrInvalidCustomerID, http.StatusBadRequest, "INVALID_REQUEST"},
	{domain.ErrInvalidToken, http.StatusBadRequest, "INVALID_REQUEST"},
	{domain.ErrQueueNotFound, http.StatusNotFound, "QUEUE_NOT_FOUND"},
	{domain.ErrCustomerNotFound, http.StatusNotFound, "CUSTOMER_NOT_FOUND"},
	{domain.ErrQueueNotActive, http.StatusConflict, "QUEUE_NOT_ACTIVE"},
	{domain.ErrQueuePaused, http.StatusConflict, "QUEUE_PAUSED"},
	{domain.ErrCapacityExceeded, http.StatusConflict, "CAPACITY_EXCEEDED"},
	{domain.ErrQueueEmpty, http.StatusConflict, "QUEUE_EMPTY"},
	{domain.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
	{domain.ErrVersionConflict, http.StatusConflict, "VERSION_CONFLICT"},
	{domain.ErrQueueAlreadyExists, http.StatusConflict, "QUEUE_ALREADY_EXISTS"},
	{domain.ErrDuplicateToken, http.StatusConflict, "DUPLICATE_TOKEN"},
}

// handleError converts domain errors to HTTP responses
func handleError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			response.Error(c, m.status, m.code, err.Error(), "")
			return
		}
	}

	logger.Get().Error("unhandled error",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", "")
}

// invalidRequest responds to a request that failed binding
func invalidRequest(c *gin.Context, err error) {
	response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request", err.Error())
}
