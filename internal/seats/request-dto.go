package seats

// EntryTokenHeader carries the entry token issued on admission
const EntryTokenHeader = "X-Entry-Token"

type SeatLockRequest struct {
	UserID string `json:"userId" validate:"required,max=64"`
}

type SeatQuery struct {
	Section string `form:"section" validate:"omitempty,max=8,alphanum"`
}

type UnlockQuery struct {
	UserID string `form:"userId" validate:"required,max=64"`
}
