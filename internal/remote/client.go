package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amarouch/ilmq/internal/store"
)

// Client talks to the quiz room service. It is a plain request/response
// client: one call, one round trip, no retries.
type Client struct {
	baseURL  string
	deviceID string
	http     *http.Client
}

// NewClient creates a client for the room service at baseURL. deviceID
// identifies this device in attempt uploads.
func NewClient(baseURL, deviceID string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		deviceID: deviceID,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetTimeout overrides the default request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.http.Timeout = d
}

// CreateSession allocates a new room in lobby state. Hotseat is local-only
// and rejected before any network call.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*CreateSessionResult, error) {
	if !ValidMode(req.Mode) {
		return nil, fmt.Errorf("invalid mode %q", req.Mode)
	}
	if req.Mode == ModeHotseat {
		return nil, fmt.Errorf("hotseat sessions are played locally, not hosted remotely")
	}
	var out CreateSessionResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/sessions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JoinSessionByCode joins an existing room. The code is normalized to
// uppercase; code and display name are validated locally so an obviously bad
// input never reaches the network. Refusals come back as *JoinError with a
// reason distinguishing not-found, full and already-completed rooms.
func (c *Client) JoinSessionByCode(ctx context.Context, code, displayName string) (*JoinSessionResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	displayName = strings.TrimSpace(displayName)
	if len(code) < 4 {
		return nil, fmt.Errorf("access code must be at least 4 characters")
	}
	if len(displayName) < 2 {
		return nil, fmt.Errorf("display name must be at least 2 characters")
	}

	var out JoinSessionResult
	err := c.doJSON(ctx, http.MethodPost, "/api/sessions/join", JoinSessionRequest{
		AccessCode:  code,
		DisplayName: displayName,
	}, &out)
	if err != nil {
		return nil, joinErrorFrom(err)
	}
	return &out, nil
}

// Snapshot fetches the full observable state of a session.
func (c *Client) Snapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	var out Snapshot
	if err := c.doJSON(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(sessionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartSession moves a lobby session to in_progress.
func (c *Client) StartSession(ctx context.Context, sessionID string) (*SessionStateResult, error) {
	var out SessionStateResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(sessionID)+"/start", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitAnswer records an answer for the current question.
func (c *Client) SubmitAnswer(ctx context.Context, sessionID string, req SubmitAnswerRequest) (*SubmitAnswerResult, error) {
	var out SubmitAnswerResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(sessionID)+"/answers", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UseLifeline spends one of the player's jokers or helps in the session.
func (c *Client) UseLifeline(ctx context.Context, sessionID string, req UseLifelineRequest) (*UseLifelineResult, error) {
	var out UseLifelineResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(sessionID)+"/lifeline", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdvanceQuestion moves the session to the next question.
func (c *Client) AdvanceQuestion(ctx context.Context, sessionID string) (*SessionStateResult, error) {
	var out SessionStateResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(sessionID)+"/advance", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FinishSession moves an in_progress session to completed.
func (c *Client) FinishSession(ctx context.Context, sessionID string) (*SessionStateResult, error) {
	var out SessionStateResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(sessionID)+"/finish", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadAttempt sends one queued offline game result. The whole entry goes
// up in a single call; there is no partial upload.
func (c *Client) UploadAttempt(ctx context.Context, a *store.Attempt) error {
	return c.doJSON(ctx, http.MethodPost, "/api/attempts", AttemptUpload{
		DeviceID:       c.deviceID,
		LocalSessionID: a.LocalID,
		Mode:           a.Mode,
		CategorySlug:   a.CategorySlug,
		Players:        a.Players,
		TotalQuestions: a.TotalQuestions,
		DurationSec:    a.DurationSec,
		PlayedAt:       a.PlayedAt,
		Source:         "offline_sync",
	}, nil)
}

// ListChatMessages returns chat entries with id greater than after.
func (c *Client) ListChatMessages(ctx context.Context, sessionID string, after int64, limit int) ([]ChatMessage, error) {
	q := url.Values{}
	if after > 0 {
		q.Set("after", strconv.FormatInt(after, 10))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/sessions/" + url.PathEscape(sessionID) + "/chat"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out ChatPage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// PostChatMessage appends a message to the session's chat log.
func (c *Client) PostChatMessage(ctx context.Context, sessionID string, req PostChatRequest) (*ChatMessage, error) {
	var out ChatMessage
	if err := c.doJSON(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(sessionID)+"/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListThemes returns playable categories for the given question count.
func (c *Client) ListThemes(ctx context.Context, questionCount int) ([]Theme, error) {
	path := "/api/themes"
	if questionCount > 0 {
		path += "?count=" + strconv.Itoa(questionCount)
	}
	var out ThemeList
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Themes, nil
}

// FetchQuestions downloads questions for the offline cache.
func (c *Client) FetchQuestions(ctx context.Context, categorySlug string, limit int) ([]store.Question, error) {
	q := url.Values{"category": {categorySlug}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out QuestionList
	if err := c.doJSON(ctx, http.MethodGet, "/api/questions?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Questions, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("room service request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// joinErrorFrom maps join refusal statuses onto the JoinError taxonomy.
// Transport failures and unexpected statuses pass through unchanged.
func joinErrorFrom(err error) error {
	apiErr, ok := err.(*APIError)
	if !ok {
		return err
	}
	switch apiErr.Status {
	case http.StatusNotFound:
		return &JoinError{Reason: JoinRoomNotFound, Message: messageOr(apiErr, "room not found")}
	case http.StatusConflict:
		return &JoinError{Reason: JoinRoomFull, Message: messageOr(apiErr, "room is full")}
	case http.StatusGone:
		return &JoinError{Reason: JoinRoomCompleted, Message: messageOr(apiErr, "room has already finished")}
	}
	return err
}

func messageOr(e *APIError, fallback string) string {
	if e.Message != "" {
		return e.Message
	}
	return fallback
}
