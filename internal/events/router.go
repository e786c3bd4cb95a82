package events

import "github.com/gin-gonic/gin"

func SetupEventRoutes(rg *gin.RouterGroup, controller *Controller) {
	events := rg.Group("/events")
	{
		events.GET("", controller.ListEvents)        // GET /api/events
		events.GET("/:eventId", controller.GetEvent) // GET /api/events/:eventId
	}
}
