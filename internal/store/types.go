package store

// PlayerResult is one player's final score inside a queued game result.
type PlayerResult struct {
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
}

// Attempt is a completed offline game result waiting to be uploaded.
// Presence in the attempts table means "pending"; synced attempts are
// removed rather than flagged.
type Attempt struct {
	ID             int64
	LocalID        string
	Mode           string
	CategorySlug   string
	Players        []PlayerResult
	TotalQuestions int
	DurationSec    int
	PlayedAt       int64
	QueuedAt       int64
}

// Settings are the per-game quiz settings.
type Settings struct {
	QuestionCount int `json:"question_count"`
	ResponseTime  int `json:"response_time"`
	Jokers        int `json:"jokers"`
	Helps         int `json:"helps"`
}

// Question is a cached quiz question, fetched from the room service while
// online so hot-seat games can run without connectivity.
type Question struct {
	ID            string   `json:"id"`
	CategorySlug  string   `json:"category_slug"`
	Prompt        string   `json:"prompt"`
	Choices       []string `json:"choices"`
	CorrectAnswer string   `json:"correct_answer"`
	Active        bool     `json:"active"`
}

// HotseatPlayer is a seat in a local hot-seat game.
type HotseatPlayer struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	SeatOrder   int    `json:"seat_order"`
	Score       int    `json:"score"`
	JokersLeft  int    `json:"jokers_left"`
	HelpsLeft   int    `json:"helps_left"`
}

// HotseatAnswer records one answer given during a local hot-seat game.
type HotseatAnswer struct {
	PlayerID       string `json:"player_id"`
	QuestionIndex  int    `json:"question_index"`
	QuestionID     string `json:"question_id"`
	SelectedAnswer string `json:"selected_answer"`
	IsCorrect      bool   `json:"is_correct"`
	ResponseMs     int64  `json:"response_ms"`
	AnsweredAt     int64  `json:"answered_at"`
}

// HotseatSession is a quiz played entirely on this device. Seat order
// rotates per question; the session id lives in a local namespace distinct
// from server-assigned session ids.
type HotseatSession struct {
	ID                   string          `json:"id"`
	State                string          `json:"state"`
	CategorySlug         string          `json:"category_slug"`
	Settings             Settings        `json:"settings"`
	Questions            []Question      `json:"questions"`
	Players              []HotseatPlayer `json:"players"`
	Answers              []HotseatAnswer `json:"answers"`
	CurrentQuestionIndex int             `json:"current_question_index"`
	CurrentSeat          int             `json:"current_seat"`
	QuestionStartedAt    int64           `json:"question_started_at"`
	StartedAt            int64           `json:"started_at"`
	FinishedAt           int64           `json:"finished_at"`
	UpdatedAt            int64           `json:"updated_at"`
}

// ChatMessage is a cached room chat message.
type ChatMessage struct {
	ID         int64
	SessionID  string
	MsgID      string
	SenderName string
	Body       string
	CreatedAt  int64
}
