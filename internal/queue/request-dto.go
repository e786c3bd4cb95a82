package queue

type EnterQueueRequest struct {
	UserID string `json:"userId" validate:"required,max=64"`
}

type UserQuery struct {
	UserID string `form:"userId" validate:"required,max=64"`
}
