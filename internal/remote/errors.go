package remote

import "fmt"

// JoinFailReason distinguishes the ways a join-by-code can be refused.
type JoinFailReason string

const (
	JoinRoomNotFound  JoinFailReason = "room_not_found"
	JoinRoomFull      JoinFailReason = "room_full"
	JoinRoomCompleted JoinFailReason = "room_completed"
)

// JoinError is returned when the room service refuses a join. The message is
// the server's and is shown to the user verbatim; callers do not retry.
type JoinError struct {
	Reason  JoinFailReason
	Message string
}

func (e *JoinError) Error() string {
	return e.Message
}

// APIError is any other non-2xx response from the room service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("room service: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("room service: status %d", e.Status)
}
