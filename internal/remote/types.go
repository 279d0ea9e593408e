package remote

import "github.com/amarouch/ilmq/internal/store"

// Quiz modes. Hotseat exists in the mode enum but is played locally; the
// room service only hosts the three online modes.
const (
	ModeSolo    = "solo"
	ModeDuo     = "duo"
	ModeGroup   = "group"
	ModeHotseat = "hotseat"
)

// Session lifecycle states as reported by the room service. The lifecycle is
// monotonic: lobby -> in_progress -> completed or cancelled.
const (
	StateLobby      = "lobby"
	StateInProgress = "in_progress"
	StateCompleted  = "completed"
	StateCancelled  = "cancelled"
)

// ValidMode reports whether mode is one of the four enumerated quiz modes.
func ValidMode(mode string) bool {
	switch mode {
	case ModeSolo, ModeDuo, ModeGroup, ModeHotseat:
		return true
	}
	return false
}

// Session is a remote quiz room as seen over the wire.
type Session struct {
	ID                   string         `json:"id"`
	Mode                 string         `json:"mode"`
	State                string         `json:"state"`
	AccessCode           string         `json:"access_code,omitempty"`
	CategorySlug         string         `json:"category_slug"`
	Settings             store.Settings `json:"settings"`
	CurrentQuestionIndex int            `json:"current_question_index"`
	CreatedAt            int64          `json:"created_at"`
	StartedAt            int64          `json:"started_at,omitempty"`
	FinishedAt           int64          `json:"finished_at,omitempty"`
}

// Player is a participant in a remote session, ordered by seat (join order).
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	SeatOrder   int    `json:"seat_order"`
	Score       int    `json:"score"`
	JokersLeft  int    `json:"jokers_left"`
	HelpsLeft   int    `json:"helps_left"`
	JoinedAt    int64  `json:"joined_at"`
}

// Answer is a recorded answer in a remote session.
type Answer struct {
	PlayerID       string `json:"player_id"`
	QuestionIndex  int    `json:"question_index"`
	SelectedAnswer string `json:"selected_answer"`
	IsCorrect      bool   `json:"is_correct"`
	ResponseMs     int64  `json:"response_ms"`
	AnsweredAt     int64  `json:"answered_at"`
}

// Snapshot is the full observable state of a session.
type Snapshot struct {
	Session Session  `json:"session"`
	Players []Player `json:"players"`
	Answers []Answer `json:"answers"`
}

// CreateSessionRequest creates a new room in lobby state.
type CreateSessionRequest struct {
	Mode            string          `json:"mode"`
	CategorySlug    string          `json:"category_slug"`
	Settings        *store.Settings `json:"settings,omitempty"`
	HostDisplayName string          `json:"host_display_name"`
}

// CreateSessionResult is the outcome of creating a room.
type CreateSessionResult struct {
	SessionID  string `json:"session_id"`
	AccessCode string `json:"access_code"`
	PlayerID   string `json:"player_id"`
	State      string `json:"state"`
}

// JoinSessionRequest joins an existing room by access code.
type JoinSessionRequest struct {
	AccessCode  string `json:"access_code"`
	DisplayName string `json:"display_name"`
}

// JoinSessionResult is the outcome of joining a room. State tells the caller
// which surface to route to (lobby vs. game already in progress).
type JoinSessionResult struct {
	SessionID string `json:"session_id"`
	PlayerID  string `json:"player_id"`
	Mode      string `json:"mode"`
	State     string `json:"state"`
}

// Lifeline kinds a player can spend during a game.
const (
	LifelineJoker = "joker"
	LifelineHelp  = "help"
)

// UseLifelineRequest spends one of a player's lifelines.
type UseLifelineRequest struct {
	PlayerID string `json:"player_id"`
	Kind     string `json:"kind"`
}

// UseLifelineResult reports what the player has left after spending one.
type UseLifelineResult struct {
	PlayerID   string `json:"player_id"`
	JokersLeft int    `json:"jokers_left"`
	HelpsLeft  int    `json:"helps_left"`
}

// SubmitAnswerRequest records a player's answer to the current question.
type SubmitAnswerRequest struct {
	PlayerID       string `json:"player_id"`
	QuestionIndex  int    `json:"question_index"`
	SelectedAnswer string `json:"selected_answer"`
	ResponseMs     int64  `json:"response_ms"`
}

// SubmitAnswerResult reports the outcome of an answer submission. A repeat
// submission for the same question returns the original outcome with
// AlreadyAnswered set.
type SubmitAnswerResult struct {
	PlayerID             string `json:"player_id"`
	IsCorrect            bool   `json:"is_correct"`
	Score                int    `json:"score"`
	State                string `json:"state"`
	CurrentQuestionIndex int    `json:"current_question_index"`
	AlreadyAnswered      bool   `json:"already_answered"`
}

// SessionStateResult carries the session state after a lifecycle call.
type SessionStateResult struct {
	State                string `json:"state"`
	CurrentQuestionIndex int    `json:"current_question_index"`
}

// AttemptUpload is a queued offline game result sent to the room service.
// The service upserts on (device_id, local_session_id) so replays of the
// same queue entry cannot duplicate.
type AttemptUpload struct {
	DeviceID       string               `json:"device_id"`
	LocalSessionID string               `json:"local_session_id"`
	Mode           string               `json:"mode"`
	CategorySlug   string               `json:"category_slug"`
	Players        []store.PlayerResult `json:"players"`
	TotalQuestions int                  `json:"total_questions"`
	DurationSec    int                  `json:"duration_sec"`
	PlayedAt       int64                `json:"played_at"`
	Source         string               `json:"source"`
}

// ChatMessage is one entry of a session's append-only chat log.
type ChatMessage struct {
	ID         int64  `json:"id"`
	SenderName string `json:"sender_name"`
	Body       string `json:"body"`
	CreatedAt  int64  `json:"created_at"`
}

// ChatPage is a slice of the chat log following a cursor.
type ChatPage struct {
	Messages []ChatMessage `json:"messages"`
}

// PostChatRequest appends a message to a session's chat log.
type PostChatRequest struct {
	SenderName string `json:"sender_name"`
	Body       string `json:"body"`
}

// Theme describes a quiz category with enough active questions to play.
type Theme struct {
	Slug               string `json:"slug"`
	Label              string `json:"label"`
	AvailableQuestions int    `json:"available_questions"`
	MinQuestions       int    `json:"min_questions"`
}

// ThemeList is the theme catalog response.
type ThemeList struct {
	Themes []Theme `json:"themes"`
}

// QuestionList is the question download response for the offline cache.
type QuestionList struct {
	Questions []store.Question `json:"questions"`
}
