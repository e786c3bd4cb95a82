package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"turnstile/internal/shared/apperrors"
	"turnstile/internal/shared/utils/response"
	"turnstile/pkg/logger"
)

// Middleware rejects requests over their class budget with C003.
// A limiter failure lets the request through.
func Middleware(rateLimiter *RateLimiter, log *logger.Logger) gin.HandlerFunc {
	log = logger.OrDefault(log).WithComponent("ratelimit")

	return func(c *gin.Context) {
		clientIP := getClientIP(c)
		limitType := getRateLimitType(c.Request.Method, c.FullPath())

		result, err := rateLimiter.IsAllowed(c.Request.Context(), clientIP, limitType)
		if err != nil {
			log.WithError(err).Warn("Rate limit check failed, allowing request", "ip", clientIP, "class", limitType)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime, 10))

		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			log.LogRateLimitExceeded(c.Request.Context(), clientIP, c.FullPath())
			response.RespondError(c, apperrors.New(apperrors.RateLimited, string(limitType)))
			c.Abort()
			return
		}

		c.Next()
	}
}

// getRateLimitType maps a route pattern to its budget class
func getRateLimitType(method, path string) RateLimitType {
	switch {
	case path == "/health", path == "/ping", path == "/status", path == "/metrics":
		return RateLimitTypeHealth

	case strings.HasSuffix(path, "/oauth/token"):
		return RateLimitTypeAuth

	case strings.Contains(path, "/payments"):
		return RateLimitTypePayment

	case strings.HasSuffix(path, "/lock"):
		return RateLimitTypeSeat

	case strings.Contains(path, "/queue"):
		return RateLimitTypeQueue

	case method == http.MethodGet && strings.Contains(path, "/events"):
		return RateLimitTypePublic

	default:
		return RateLimitTypeDefault
	}
}

// extracts real client IP
func getClientIP(c *gin.Context) string {
	xForwardedFor := c.GetHeader("X-Forwarded-For")
	if xForwardedFor != "" {
		ips := strings.Split(xForwardedFor, ",")
		if len(ips) > 0 {
			ip := strings.TrimSpace(ips[0])
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	xRealIP := c.GetHeader("X-Real-IP")
	if xRealIP != "" {
		if net.ParseIP(xRealIP) != nil {
			return xRealIP
		}
	}

	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}

	return ip
}
