package payments

type PaymentRequest struct {
	UserID  string `json:"userId" validate:"required,max=64"`
	EventID string `json:"eventId" validate:"required,max=32"`
	SeatID  string `json:"seatId" validate:"required,max=32"`
}
