package handler

import (
	"net/http"

	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/dto"
	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/service"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/response"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CustomerHandler serves the public, token-addressed endpoints
type CustomerHandler struct {
	queueService service.QueueService
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(queueService service.QueueService) *CustomerHandler {
	return &CustomerHandler{
		queueService: queueService,
	}
}

// JoinQueue handles POST /queues/:queue_id/join
func (h *CustomerHandler) JoinQueue(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.customer.join")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	queueID := c.Param("queue_id")

	var req dto.JoinQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		invalidRequest(c, err)
		return
	}

	span.SetAttributes(attribute.String("queue_id", queueID))

	result, err := h.queueService.JoinQueue(ctx, queueID, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Created(c, result)
}

// GetStatus handles GET /customers/:token
func (h *CustomerHandler) GetStatus(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.customer.status")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	result, err := h.queueService.GetCustomerStatus(ctx, c.Param("token"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// SavePushSubscription handles PUT /customers/:token/push-subscription
func (h *CustomerHandler) SavePushSubscription(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.customer.push_subscription")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.PushSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		invalidRequest(c, err)
		return
	}

	if err := h.queueService.SavePushSubscription(ctx, c.Param("token"), &req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.Status(http.StatusNoContent)
}

// LeaveQueue handles DELETE /customers/:token
func (h *CustomerHandler) LeaveQueue(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.customer.leave")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	if err := h.queueService.LeaveQueue(ctx, c.Param("token")); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.Status(http.StatusNoContent)
}
