package seats

import "github.com/gin-gonic/gin"

func SetupSeatRoutes(rg *gin.RouterGroup, controller *Controller) {
	seats := rg.Group("/events/:eventId/seats")
	{
		seats.GET("", controller.GetSeats)        // GET /api/events/:eventId/seats?section=A
		seats.GET("/:seatId", controller.GetSeat) // GET /api/events/:eventId/seats/:seatId

		// Holding requires the X-Entry-Token header
		seats.POST("/:seatId/lock", controller.LockSeat)     // POST /api/events/:eventId/seats/:seatId/lock
		seats.DELETE("/:seatId/lock", controller.UnlockSeat) // DELETE /api/events/:eventId/seats/:seatId/lock?userId=
	}
}
