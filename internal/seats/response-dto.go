package seats

type SeatResponse struct {
	SeatID            string `json:"seatId"`
	EventID           string `json:"eventId"`
	Section           string `json:"section"`
	RowNum            int    `json:"rowNum"`
	SeatNum           int    `json:"seatNum"`
	Grade             Grade  `json:"grade"`
	GradeDescription  string `json:"gradeDescription"`
	Price             int64  `json:"price"`
	Status            Status `json:"status"`
	StatusDescription string `json:"statusDescription"`
}

func toSeatResponse(seat *Seat, status Status) SeatResponse {
	return SeatResponse{
		SeatID:            seat.SeatID,
		EventID:           seat.EventID,
		Section:           seat.Section,
		RowNum:            seat.RowNum,
		SeatNum:           seat.SeatNum,
		Grade:             seat.Grade,
		GradeDescription:  seat.Grade.Description(),
		Price:             seat.Price,
		Status:            status,
		StatusDescription: status.Description(),
	}
}

type SeatLockResponse struct {
	EventID          string     `json:"eventId"`
	SeatID           string     `json:"seatId"`
	UserID           string     `json:"userId"`
	Locked           bool       `json:"locked"`
	ExpiresInSeconds int        `json:"expiresInSeconds"`
	Reason           LockResult `json:"reason,omitempty"`
}
