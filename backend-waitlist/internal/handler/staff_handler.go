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
	"go.opentelemetry.io/otel/trace"
)

const (
	// StaffIDHeader identifies the staff member acting on a queue
	StaffIDHeader = "X-Staff-ID"
	// StaffIDKey is the gin context key holding the staff id
	StaffIDKey = "staff_id"
)

// RequireStaff rejects staff routes without a staff identity.
// Authenticating that identity happens upstream.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		staffID := c.GetHeader(StaffIDHeader)
		if staffID == "" {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "staff id required")
			return
		}
		c.Set(StaffIDKey, staffID)
		c.Next()
	}
}

// StaffHandler serves queue management endpoints
type StaffHandler struct {
	queueService service.QueueService
}

// NewStaffHandler creates a new staff handler
func NewStaffHandler(queueService service.QueueService) *StaffHandler {
	return &StaffHandler{
		queueService: queueService,
	}
}

func (h *StaffHandler) startSpan(c *gin.Context, name string) trace.Span {
	ctx, span := telemetry.StartSpan(c.Request.Context(), name)
	c.Request = c.Request.WithContext(ctx)
	span.SetAttributes(attribute.String("staff_id", c.GetString(StaffIDKey)))
	if queueID := c.Param("queue_id"); queueID != "" {
		span.SetAttributes(attribute.String("queue_id", queueID))
	}
	return span
}

func fail(c *gin.Context, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	handleError(c, err)
}

// CreateQueue handles POST /queues
func (h *StaffHandler) CreateQueue(c *gin.Context) {
	span := h.startSpan(c, "handler.staff.create_queue")
	defer span.End()

	var req dto.CreateQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		invalidRequest(c, err)
		return
	}

	result, err := h.queueService.CreateQueue(c.Request.Context(), &req)
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Created(c, result)
}

// ListBusinessQueues handles GET /businesses/:business_id/queues
func (h *StaffHandler) ListBusinessQueues(c *gin.Context) {
	span := h.startSpan(c, "handler.staff.list_queues")
	defer span.End()

	result, err := h.queueService.ListBusinessQueues(c.Request.Context(), c.Param("business_id"))
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// GetQueue handles GET /queues/:queue_id
func (h *StaffHandler) GetQueue(c *gin.Context) {
	span := h.startSpan(c, "handler.staff.get_queue")
	defer span.End()

	result, err := h.queueService.GetQueue(c.Request.Context(), c.Param("queue_id"))
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// CallNext handles POST /queues/:queue_id/call-next
func (h *StaffHandler) CallNext(c *gin.Context) {
	span := h.startSpan(c, "handler.staff.call_next")
	defer span.End()

	result, err := h.queueService.CallNext(c.Request.Context(), c.Param("queue_id"))
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// MarkServed handles POST /queues/:queue_id/customers/:customer_id/serve
func (h *StaffHandler) MarkServed(c *gin.Context) {
	span := h.startSpan(c, "handler.staff.mark_served")
	defer span.End()

	result, err := h.queueService.MarkServed(c.Request.Context(), c.Param("queue_id"), c.Param("customer_id"))
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// MarkNoShow handles POST /queues/:queue_id/customers/:customer_id/no-show
func (h *StaffHandler) MarkNoShow(c *gin.Context) {
	span := h.startSpan(c, "handler.staff.mark_no_show")
	defer span.End()

	result, err := h.queueService.MarkNoShow(c.Request.Context(), c.Param("queue_id"), c.Param("customer_id"))
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// RemoveCustomer handles DELETE /queues/:queue_id/customers/:customer_id
func (h *StaffHandler) RemoveCustomer(c *gin.Context) {
	span := h.startSpan(c, "handler.staff.remove_customer")
	defer span.End()

	result, err := h.queueService.RemoveCustomer(c.Request.Context(), c.Param("queue_id"), c.Param("customer_id"))
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// UpdateSettings handles PUT /queues/:queue_id/settings
func (h *StaffHandler) UpdateSettings(c *gin.Context) {
	span := h.startSpan(c, "handler.staff.update_settings")
	defer span.End()

	var req dto.QueueSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		invalidRequest(c, err)
		return
	}

	result, err := h.queueService.UpdateSettings(c.Request.Context(), c.Param("queue_id"), &req)
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// SetQueueStatus handles PUT /queues/:queue_id/status
func (h *StaffHandler) SetQueueStatus(c *gin.Context) {
	span := h.startSpan(c, "handler.staff.set_status")
	defer span.End()

	var req dto.UpdateQueueStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		invalidRequest(c, err)
		return
	}

	result, err := h.queueService.SetQueueStatus(c.Request.Context(), c.Param("queue_id"), &req)
	if err != nil {
		fail(c, span, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}
