package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind groups codes by how a client should react to them
type Kind string

const (
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindForbidden    Kind = "FORBIDDEN"
	KindPrecondition Kind = "PRECONDITION_FAILED"
	KindInvalid      Kind = "INVALID"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindRateLimited  Kind = "RATE_LIMITED"
	KindInternal     Kind = "INTERNAL"
)

// Code is a stable, client-visible error identity
type Code struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Status  int    `json:"-"`
	Message string `json:"message"`
	Kind    Kind   `json:"kind"`
}

var (
	// Event
	EventNotFound = Code{"E001", "EVENT_NOT_FOUND", http.StatusNotFound, "Event not found", KindNotFound}
	EventNotOpen  = Code{"E002", "EVENT_NOT_OPEN", http.StatusBadRequest, "Event is not open for sale", KindPrecondition}

	// Queue
	AlreadyInQueue   = Code{"Q001", "ALREADY_IN_QUEUE", http.StatusConflict, "User is already waiting in the queue", KindConflict}
	NotInQueue       = Code{"Q002", "NOT_IN_QUEUE", http.StatusBadRequest, "User is not in the queue", KindPrecondition}
	QueueEntryFailed = Code{"Q003", "QUEUE_ENTRY_FAILED", http.StatusInternalServerError, "Failed to enter the queue", KindInternal}

	// Entry token
	TokenNotFound = Code{"T001", "TOKEN_NOT_FOUND", http.StatusUnauthorized, "Entry token is required", KindPrecondition}
	TokenExpired  = Code{"T002", "TOKEN_EXPIRED", http.StatusUnauthorized, "Entry token has expired, please re-enter the queue", KindPrecondition}
	TokenInvalid  = Code{"T003", "TOKEN_INVALID", http.StatusUnauthorized, "Entry token is invalid", KindPrecondition}

	// Seat
	SeatNotFound        = Code{"S001", "SEAT_NOT_FOUND", http.StatusNotFound, "Seat not found", KindNotFound}
	SeatAlreadyLocked   = Code{"S002", "SEAT_ALREADY_LOCKED", http.StatusConflict, "Seat is held by another user", KindConflict}
	SeatAlreadyReserved = Code{"S003", "SEAT_ALREADY_RESERVED", http.StatusConflict, "Seat is already reserved", KindConflict}
	SeatNotLockedByUser = Code{"S004", "SEAT_NOT_LOCKED_BY_USER", http.StatusForbidden, "Seat is not held by this user", KindForbidden}
	SeatLockExpired     = Code{"S005", "SEAT_LOCK_EXPIRED", http.StatusBadRequest, "Seat hold has expired, please select the seat again", KindPrecondition}

	// Payment / reservation
	PaymentFailed       = Code{"P001", "PAYMENT_FAILED", http.StatusBadRequest, "Payment was declined", KindPrecondition}
	PaymentNotFound     = Code{"P002", "PAYMENT_NOT_FOUND", http.StatusNotFound, "Payment not found", KindNotFound}
	ReservationNotFound = Code{"R001", "RESERVATION_NOT_FOUND", http.StatusNotFound, "Reservation not found", KindNotFound}

	// Common
	InvalidRequest = Code{"C001", "INVALID_REQUEST", http.StatusBadRequest, "Invalid request", KindInvalid}
	Internal       = Code{"C002", "INTERNAL_ERROR", http.StatusInternalServerError, "Internal server error", KindInternal}
	RateLimited    = Code{"C003", "RATE_LIMITED", http.StatusTooManyRequests, "Too many requests", KindRateLimited}

	// OAuth2 client credentials
	UnsupportedGrantType = Code{"A001", "UNSUPPORTED_GRANT_TYPE", http.StatusBadRequest, "Unsupported grant_type", KindInvalid}
	InvalidClient        = Code{"A002", "INVALID_CLIENT", http.StatusUnauthorized, "Invalid client_id or client_secret", KindUnauthorized}
	ClientDisabled       = Code{"A003", "CLIENT_DISABLED", http.StatusForbidden, "Client is disabled", KindForbidden}
	InvalidScope         = Code{"A004", "INVALID_SCOPE", http.StatusBadRequest, "Invalid scope", KindInvalid}
	Unauthorized         = Code{"A005", "UNAUTHORIZED", http.StatusUnauthorized, "Missing or invalid access token", KindUnauthorized}
	Forbidden            = Code{"A006", "FORBIDDEN", http.StatusForbidden, "Insufficient scope", KindForbidden}
)

// Error is a domain error carrying its code and the offending identifier
type Error struct {
	Code   Code
	Detail string
	Err    error
}

// New creates a domain error for code; detail names the identifier involved
func New(code Code, detail string) *Error {
	return &Error{Code: code, Detail: detail}
}

// Wrap creates a domain error that keeps the underlying cause
func Wrap(code Code, detail string, err error) *Error {
	return &Error{Code: code, Detail: detail, Err: err}
}

func (e *Error) Error() string {
	msg := e.Code.Name + ": " + e.Code.Message
	if e.Detail != "" {
		msg += fmt.Sprintf(" [%s]", e.Detail)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so errors.Is(err, apperrors.New(SeatNotFound, "")) works
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code.Code == e.Code.Code
}

// As extracts the domain error from err's chain
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Has reports whether err carries code
func Has(err error, code Code) bool {
	e, ok := As(err)
	return ok && e.Code.Code == code.Code
}

// IsNotFound reports whether err is any not-found domain error
func IsNotFound(err error) bool {
	e, ok := As(err)
	return ok && e.Code.Kind == KindNotFound
}

// IsConflict reports whether err is any conflict domain error
func IsConflict(err error) bool {
	e, ok := As(err)
	return ok && e.Code.Kind == KindConflict
}
