package response

import (
	"log/slog"

	"turnstile/internal/shared/apperrors"
	"turnstile/pkg/logger"

	"github.com/gin-gonic/gin"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondOK writes a success envelope with status 200
func RespondOK(c *gin.Context, message string, data interface{}) {
	RespondJSON(c, "success", 200, message, data, nil)
}

// RespondError translates err into the error envelope. Domain errors keep their code and
// identifier and are logged at warn; anything else is logged in full and hidden behind C002.
func RespondError(c *gin.Context, err error) {
	log := logger.GetDefault()
	if requestID := c.GetString(RequestIDKey); requestID != "" {
		log = log.WithRequestID(requestID)
	}

	if appErr, ok := apperrors.As(err); ok && appErr.Code.Kind != apperrors.KindInternal {
		log.WarnContext(c.Request.Context(), "request rejected",
			slog.String("code", appErr.Code.Code),
			slog.String("name", appErr.Code.Name),
			slog.String("detail", appErr.Detail),
			slog.String("path", c.Request.URL.Path),
		)
		RespondJSON(c, "error", appErr.Code.Status, appErr.Code.Message, nil, ErrorDetail{
			Code:   appErr.Code.Code,
			Name:   appErr.Code.Name,
			Detail: appErr.Detail,
		})
		return
	}

	log.LogHTTPError(c, err, apperrors.Internal.Status)
	RespondJSON(c, "error", apperrors.Internal.Status, apperrors.Internal.Message, nil, ErrorDetail{
		Code: apperrors.Internal.Code,
		Name: apperrors.Internal.Name,
	})
}

// RespondInvalid reports a request binding or validation failure as C001
func RespondInvalid(c *gin.Context, err error) {
	RespondError(c, apperrors.New(apperrors.InvalidRequest, err.Error()))
}
