package seats

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"turnstile/internal/shared/utils/response"
	"turnstile/internal/tokens"
)

type Controller struct {
	service   Service
	tokens    tokens.Service
	validator *validator.Validate
}

func NewController(service Service, tokenService tokens.Service) *Controller {
	return &Controller{
		service:   service,
		tokens:    tokenService,
		validator: validator.New(),
	}
}

// SEAT QUERIES

func (c *Controller) GetSeats(ctx *gin.Context) {
	var query SeatQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondInvalid(ctx, err)
		return
	}
	if err := c.validator.Struct(&query); err != nil {
		response.RespondInvalid(ctx, err)
		return
	}

	seats, err := c.service.GetSeats(ctx.Request.Context(), ctx.Param("eventId"), query.Section)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondOK(ctx, "Seats retrieved successfully", seats)
}

func (c *Controller) GetSeat(ctx *gin.Context) {
	seat, err := c.service.GetSeat(ctx.Request.Context(), ctx.Param("eventId"), ctx.Param("seatId"))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondOK(ctx, "Seat retrieved successfully", seat)
}

// SEAT LOCKING

func (c *Controller) LockSeat(ctx *gin.Context) {
	var req SeatLockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondInvalid(ctx, err)
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondInvalid(ctx, err)
		return
	}

	eventID := ctx.Param("eventId")

	// Only admitted users may hold seats
	if err := c.tokens.ValidateToken(ctx.Request.Context(), eventID, req.UserID, ctx.GetHeader(EntryTokenHeader)); err != nil {
		response.RespondError(ctx, err)
		return
	}

	lock, err := c.service.LockSeat(ctx.Request.Context(), eventID, ctx.Param("seatId"), req.UserID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondOK(ctx, "Seat locked successfully", lock)
}

func (c *Controller) UnlockSeat(ctx *gin.Context) {
	var query UnlockQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondInvalid(ctx, err)
		return
	}
	if err := c.validator.Struct(&query); err != nil {
		response.RespondInvalid(ctx, err)
		return
	}

	if err := c.service.UnlockSeat(ctx.Request.Context(), ctx.Param("eventId"), ctx.Param("seatId"), query.UserID); err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondOK(ctx, "Seat lock released", nil)
}
