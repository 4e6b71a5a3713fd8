package handler

import (
	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/worker"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/response"
	"github.com/gin-gonic/gin"
)

// SweeperStatsProvider reports no-show sweeper statistics
type SweeperStatsProvider interface {
	GetStats() *worker.NoShowSweeperStats
}

// AdminHandler serves operational endpoints
type AdminHandler struct {
	sweeper SweeperStatsProvider
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(sweeper SweeperStatsProvider) *AdminHandler {
	return &AdminHandler{sweeper: sweeper}
}

// SweeperStats handles GET /admin/sweeper/stats
func (h *AdminHandler) SweeperStats(c *gin.Context) {
	response.Success(c, h.sweeper.GetStats())
}
