package payments

import (
	"github.com/gin-gonic/gin"
)

// SetupPaymentRoutes configures checkout and reservation lookup routes
func SetupPaymentRoutes(rg *gin.RouterGroup, controller *Controller) {
	rg.POST("/payments", controller.ProcessPayment)                       // POST /api/payments
	rg.GET("/payments/:paymentId", controller.GetPayment)                 // GET /api/payments/:paymentId
	rg.GET("/users/:userId/reservations", controller.GetUserReservations) // GET /api/users/:userId/reservations
	rg.GET("/reservations/:reservationId", controller.GetReservation)     // GET /api/reservations/:reservationId
}
