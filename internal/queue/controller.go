package queue

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"turnstile/internal/notifications"
	"turnstile/internal/shared/utils/response"
	"turnstile/pkg/logger"
)

const defaultStreamTimeout = 30 * time.Minute

type Controller struct {
	service       Service
	hub           *notifications.Hub
	validator     *validator.Validate
	streamTimeout time.Duration
	log           *logger.Logger
}

func NewController(service Service, hub *notifications.Hub, streamTimeout time.Duration, log *logger.Logger) *Controller {
	if streamTimeout <= 0 {
		streamTimeout = defaultStreamTimeout
	}
	return &Controller{
		service:       service,
		hub:           hub,
		validator:     validator.New(),
		streamTimeout: streamTimeout,
		log:           logger.OrDefault(log).WithComponent("queue_stream"),
	}
}

func (c *Controller) bindUser(ctx *gin.Context) (string, bool) {
	var query UserQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondInvalid(ctx, err)
		return "", false
	}
	if err := c.validator.Struct(&query); err != nil {
		response.RespondInvalid(ctx, err)
		return "", false
	}
	return query.UserID, true
}

func (c *Controller) EnterQueue(ctx *gin.Context) {
	var req EnterQueueRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondInvalid(ctx, err)
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondInvalid(ctx, err)
		return
	}

	status, err := c.service.EnterQueue(ctx.Request.Context(), ctx.Param("eventId"), req.UserID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondOK(ctx, "Entered queue successfully", status)
}

func (c *Controller) GetQueueStatus(ctx *gin.Context) {
	userID, ok := c.bindUser(ctx)
	if !ok {
		return
	}

	status, err := c.service.GetQueueStatus(ctx.Request.Context(), ctx.Param("eventId"), userID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondOK(ctx, "Queue status retrieved successfully", status)
}

func (c *Controller) LeaveQueue(ctx *gin.Context) {
	userID, ok := c.bindUser(ctx)
	if !ok {
		return
	}

	if err := c.service.LeaveQueue(ctx.Request.Context(), ctx.Param("eventId"), userID); err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondOK(ctx, "Left the queue successfully", nil)
}

func (c *Controller) GetQueueStats(ctx *gin.Context) {
	stats, err := c.service.GetStats(ctx.Request.Context(), ctx.Param("eventId"))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondOK(ctx, "Queue stats retrieved successfully", stats)
}

// Subscribe streams push events for one waiter. The stream opens with a snapshot
// of the current status and ends on completion, timeout or client disconnect;
// the registration is removed on every exit path.
func (c *Controller) Subscribe(ctx *gin.Context) {
	userID, ok := c.bindUser(ctx)
	if !ok {
		return
	}
	eventID := ctx.Param("eventId")

	conn := c.hub.Register(eventID, userID)
	defer c.hub.Unregister(conn)

	streamLog := c.log.WithEventID(eventID).WithUserID(userID)
	streamLog.InfoContext(ctx.Request.Context(), "Push stream opened")
	defer streamLog.DebugContext(ctx.Request.Context(), "Push stream closed")

	ctx.Header("Content-Type", "text/event-stream")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.Header("X-Accel-Buffering", "no")

	snapshot, err := c.service.Snapshot(ctx.Request.Context(), eventID, userID)
	if err != nil {
		streamLog.WithError(err).Warn("Failed to build initial push snapshot")
	}
	if snapshot != nil {
		ctx.SSEvent(string(snapshot.EventType), snapshot)
	}
	ctx.Writer.Flush()

	timeout := time.NewTimer(c.streamTimeout)
	defer timeout.Stop()

	ctx.Stream(func(w io.Writer) bool {
		select {
		case ev := <-conn.Events():
			ctx.SSEvent(string(ev.EventType), ev)
			return true
		case <-conn.Done():
			drain(ctx, conn)
			return false
		case <-timeout.C:
			return false
		case <-ctx.Request.Context().Done():
			return false
		}
	})
}

// drain writes events queued before the connection was completed
func drain(ctx *gin.Context, conn *notifications.Connection) {
	for {
		select {
		case ev := <-conn.Events():
			ctx.SSEvent(string(ev.EventType), ev)
		default:
			return
		}
	}
}
