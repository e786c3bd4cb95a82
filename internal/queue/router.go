package queue

import (
	"github.com/gin-gonic/gin"
)

// SetupQueueRoutes configures the waiting-room routes; adminMiddleware guards the stats route
func SetupQueueRoutes(rg *gin.RouterGroup, controller *Controller, adminMiddleware ...gin.HandlerFunc) {
	queue := rg.Group("/events/:eventId/queue")
	{
		queue.POST("/enter", controller.EnterQueue)     // POST /api/events/:eventId/queue/enter
		queue.GET("/subscribe", controller.Subscribe)   // GET /api/events/:eventId/queue/subscribe?userId=
		queue.GET("/status", controller.GetQueueStatus) // GET /api/events/:eventId/queue/status?userId=
		queue.DELETE("/leave", controller.LeaveQueue)   // DELETE /api/events/:eventId/queue/leave?userId=

		admin := queue.Group("")
		admin.Use(adminMiddleware...)
		{
			admin.GET("/stats", controller.GetQueueStats) // GET /api/events/:eventId/queue/stats
		}
	}
}
