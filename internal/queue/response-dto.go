package queue

// NotInQueuePosition is reported for users who are neither queued nor admitted
const NotInQueuePosition int64 = -1

type QueueStatus struct {
	EventID               string `json:"eventId"`
	UserID                string `json:"userId"`
	Position              int64  `json:"position"`
	TotalWaiting          int64  `json:"totalWaiting"`
	EstimatedWaitSeconds  int    `json:"estimatedWaitSeconds"`
	CanEnter              bool   `json:"canEnter"`
	Token                 string `json:"token,omitempty"`
	TokenExpiresInSeconds int    `json:"tokenExpiresInSeconds,omitempty"`
}

func waitingStatus(eventID, userID string, position, totalWaiting int64, estimatedWaitSeconds int) *QueueStatus {
	return &QueueStatus{
		EventID:              eventID,
		UserID:               userID,
		Position:             position,
		TotalWaiting:         totalWaiting,
		EstimatedWaitSeconds: estimatedWaitSeconds,
	}
}

func canEnterStatus(eventID, userID, token string, expiresInSeconds int) *QueueStatus {
	return &QueueStatus{
		EventID:               eventID,
		UserID:                userID,
		CanEnter:              true,
		Token:                 token,
		TokenExpiresInSeconds: expiresInSeconds,
	}
}

func notInQueueStatus(eventID, userID string) *QueueStatus {
	return &QueueStatus{
		EventID:  eventID,
		UserID:   userID,
		Position: NotInQueuePosition,
	}
}

// IsQueued reports whether the user is waiting
func (s *QueueStatus) IsQueued() bool {
	return !s.CanEnter && s.Position >= 0
}

type QueueStats struct {
	EventID        string `json:"eventId"`
	TotalWaiting   int64  `json:"totalWaiting"`
	SSEConnections int    `json:"sseConnections"`
	LiveTokens     int    `json:"liveTokens"`
}
