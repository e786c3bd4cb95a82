package payments

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"turnstile/internal/shared/utils/response"
)

type Controller struct {
	service   Service
	validator *validator.Validate
}

func NewController(service Service) *Controller {
	return &Controller{
		service:   service,
		validator: validator.New(),
	}
}

func (c *Controller) ProcessPayment(ctx *gin.Context) {
	var req PaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondInvalid(ctx, err)
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondInvalid(ctx, err)
		return
	}

	payment, err := c.service.ProcessPayment(ctx.Request.Context(), &req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondOK(ctx, "Payment completed successfully", payment)
}

func (c *Controller) GetPayment(ctx *gin.Context) {
	payment, err := c.service.GetPayment(ctx.Request.Context(), ctx.Param("paymentId"))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondOK(ctx, "Payment retrieved successfully", payment)
}

func (c *Controller) GetUserReservations(ctx *gin.Context) {
	reservations, err := c.service.GetUserReservations(ctx.Request.Context(), ctx.Param("userId"))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondOK(ctx, "Reservations retrieved successfully", reservations)
}

func (c *Controller) GetReservation(ctx *gin.Context) {
	reservation, err := c.service.GetReservation(ctx.Request.Context(), ctx.Param("reservationId"))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondOK(ctx, "Reservation retrieved successfully", reservation)
}
