package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"turnstile/internal/shared/apperrors"
	"turnstile/internal/shared/utils/response"
	"turnstile/pkg/logger"
)

// ClaimsKey is the gin context key holding the caller's *AccessClaims
const ClaimsKey = "oauth_claims"

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

func (c *Controller) IssueToken(ctx *gin.Context) {
	var req TokenRequest
	if err := ctx.ShouldBind(&req); err != nil {
		response.RespondInvalid(ctx, err)
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondInvalid(ctx, err)
		return
	}

	token, err := c.service.IssueToken(ctx.Request.Context(), &req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	ctx.Header("Cache-Control", "no-store")
	ctx.Header("Pragma", "no-cache")
	response.RespondJSON(ctx, "success", http.StatusOK, "Token issued successfully", token, nil)
}

// RequireScope rejects requests without a valid bearer token carrying scope
func RequireScope(service Service, scope string) gin.HandlerFunc {
	log := logger.GetDefault().WithComponent("auth")

	reject := func(ctx *gin.Context, reason string, err error) {
		log.LogAuthFailure(ctx.Request.Context(), reason, ctx.ClientIP())
		response.RespondError(ctx, err)
		ctx.Abort()
	}

	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if header == "" {
			reject(ctx, "missing bearer token", apperrors.New(apperrors.Unauthorized, "missing bearer token"))
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], TokenTypeBearer) || strings.TrimSpace(parts[1]) == "" {
			reject(ctx, "malformed authorization header", apperrors.New(apperrors.Unauthorized, "malformed authorization header"))
			return
		}

		claims, err := service.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			reject(ctx, "invalid access token", err)
			return
		}

		if !claims.HasScope(scope) {
			reject(ctx, "missing scope "+scope, apperrors.New(apperrors.Forbidden, scope))
			return
		}

		ctx.Set(ClaimsKey, claims)
		ctx.Next()
	}
}
