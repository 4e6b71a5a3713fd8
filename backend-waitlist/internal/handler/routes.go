package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the waitlist API under /api/v1. writeMiddleware
// runs in front of every mutating route, after the staff check.
func RegisterRoutes(router gin.IRouter, customers *CustomerHandler, staff *StaffHandler, writeMiddleware ...gin.HandlerFunc) {
	write := func(h gin.HandlerFunc) []gin.HandlerFunc {
		chain := make([]gin.HandlerFunc, 0, len(writeMiddleware)+1)
		chain = append(chain, writeMiddleware...)
		return append(chain, h)
	}

	v1 := router.Group("/api/v1")

	public := v1.Group("")
	{
		public.POST("/queues/:queue_id/join", write(customers.JoinQueue)...)
		public.GET("/customers/:token", customers.GetStatus)
		public.PUT("/customers/:token/push-subscription", write(customers.SavePushSubscription)...)
		public.DELETE("/customers/:token", write(customers.LeaveQueue)...)
	}

	admin := v1.Group("", RequireStaff())
	{
		admin.POST("/queues", write(staff.CreateQueue)...)
		admin.GET("/businesses/:business_id/queues", staff.ListBusinessQueues)
		admin.GET("/queues/:queue_id", staff.GetQueue)
		admin.POST("/queues/:queue_id/call-next", write(staff.CallNext)...)
		admin.POST("/queues/:queue_id/customers/:customer_id/serve", write(staff.MarkServed)...)
		admin.POST("/queues/:queue_id/customers/:customer_id/no-show", write(staff.MarkNoShow)...)
		admin.DELETE("/queues/:queue_id/customers/:customer_id", write(staff.RemoveCustomer)...)
		admin.PUT("/queues/:queue_id/settings", write(staff.UpdateSettings)...)
		admin.PUT("/queues/:queue_id/status", write(staff.SetQueueStatus)...)
	}
}

// RegisterAdminRoutes mounts operational endpoints behind the staff check
func RegisterAdminRoutes(router gin.IRouter, admin *AdminHandler) {
	group := router.Group("/admin", RequireStaff())
	group.GET("/sweeper/stats", admin.SweeperStats)
}
