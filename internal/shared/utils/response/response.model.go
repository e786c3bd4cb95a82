package response

// RequestIDKey is the gin context key holding the request id
const RequestIDKey = "request_id"

type StandardApiResponse struct {
	Status     string      `json:"status"`           // "success" or "error"
	StatusCode int         `json:"status_code"`      // HTTP status code
	Message    string      `json:"message"`          // Human-readable message
	Data       interface{} `json:"data,omitempty"`   // Payload for success
	Errors     interface{} `json:"errors,omitempty"` // Validation or error details
}

// ErrorDetail is the errors payload for domain failures
type ErrorDetail struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Detail string `json:"detail,omitempty"`
}
