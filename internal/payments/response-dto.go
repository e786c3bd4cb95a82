package payments

import "time"

type PaymentResponse struct {
	PaymentID         string        `json:"paymentId"`
	ReservationID     *string       `json:"reservationId"`
	UserID            string        `json:"userId"`
	EventID           string        `json:"eventId"`
	SeatID            string        `json:"seatId"`
	Amount            int64         `json:"amount"`
	Status            PaymentStatus `json:"status"`
	StatusDescription string        `json:"statusDescription"`
	PaidAt            *time.Time    `json:"paidAt"`
}

func ToPaymentResponse(p *Payment) *PaymentResponse {
	return &PaymentResponse{
		PaymentID:         p.ID,
		ReservationID:     p.ReservationID,
		UserID:            p.UserID,
		EventID:           p.EventID,
		SeatID:            p.SeatID,
		Amount:            p.Amount,
		Status:            p.Status,
		StatusDescription: p.Status.Description(),
		PaidAt:            p.PaidAt,
	}
}

type ReservationResponse struct {
	ReservationID     string            `json:"reservationId"`
	EventID           string            `json:"eventId"`
	SeatID            string            `json:"seatId"`
	UserID            string            `json:"userId"`
	PaymentID         string            `json:"paymentId"`
	Amount            int64             `json:"amount"`
	Status            ReservationStatus `json:"status"`
	StatusDescription string            `json:"statusDescription"`
	ConfirmedAt       *time.Time        `json:"confirmedAt"`
}

func ToReservationResponse(r *Reservation) *ReservationResponse {
	return &ReservationResponse{
		ReservationID:     r.ID,
		EventID:           r.EventID,
		SeatID:            r.SeatID,
		UserID:            r.UserID,
		PaymentID:         r.PaymentID,
		Amount:            r.Amount,
		Status:            r.Status,
		StatusDescription: r.Status.Description(),
		ConfirmedAt:       r.ConfirmedAt,
	}
}
