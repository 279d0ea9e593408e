package hotseat

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amarouch/ilmq/internal/bus"
	"github.com/amarouch/ilmq/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	minPlayers = 2
	maxPlayers = 8
)

// Engine runs pass-the-phone quiz games entirely from the local question
// cache. Sessions are persisted after every move so an interrupted game can
// be resumed.
type Engine struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
}

// NewEngine creates a hot-seat engine.
func NewEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *Engine {
	return &Engine{db: db, bus: b, logger: logger}
}

// Create starts a new hot-seat session for the given players. Player names
// are trimmed; a blank slot becomes "Player N". Questions are drawn from the
// local cache, and creation fails when the cache cannot cover the configured
// question count.
func (e *Engine) Create(categorySlug string, playerNames []string, settings store.Settings) (*store.HotseatSession, error) {
	if len(playerNames) < minPlayers || len(playerNames) > maxPlayers {
		return nil, fmt.Errorf("hot-seat needs %d to %d players, got %d", minPlayers, maxPlayers, len(playerNames))
	}
	applyDefaults(&settings)

	players := make([]store.HotseatPlayer, len(playerNames))
	for i, name := range playerNames {
		name = strings.TrimSpace(name)
		if name == "" {
			name = "Player " + strconv.Itoa(i+1)
		}
		players[i] = store.HotseatPlayer{
			ID:          uuid.NewString(),
			DisplayName: name,
			SeatOrder:   i,
			JokersLeft:  settings.Jokers,
			HelpsLeft:   settings.Helps,
		}
	}

	questions, err := e.db.RandomQuestions(categorySlug, settings.QuestionCount)
	if err != nil {
		return nil, fmt.Errorf("draw questions: %w", err)
	}
	if len(questions) < settings.QuestionCount {
		return nil, fmt.Errorf("only %d cached questions for %s, need %d; sync while online first",
			len(questions), categorySlug, settings.QuestionCount)
	}

	now := time.Now().UnixMilli()
	session := &store.HotseatSession{
		ID:                "hotseat-" + uuid.NewString(),
		State:             "in_progress",
		CategorySlug:      categorySlug,
		Settings:          settings,
		Questions:         questions,
		Players:           players,
		CurrentSeat:       0,
		QuestionStartedAt: now,
		StartedAt:         now,
	}
	if err := e.db.SaveHotseatSession(session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	e.logger.Info("hotseat session created",
		zap.String("session_id", session.ID),
		zap.String("category", categorySlug),
		zap.Int("players", len(players)),
		zap.Int("questions", len(questions)))
	e.publish("session.hotseat_created", session)
	return session, nil
}

// Load returns a persisted session by id.
func (e *Engine) Load(sessionID string) (*store.HotseatSession, error) {
	session, err := e.db.LoadHotseatSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("hotseat session %s not found", sessionID)
	}
	return session, nil
}

// SubmitAnswer records the current seat's answer and rotates to the next
// seat. When every seat has answered the current question the session
// advances to the next one; answering the last question ends the game and
// queues its result for upload.
func (e *Engine) SubmitAnswer(sessionID, selectedAnswer string) (*store.HotseatSession, error) {
	session, err := e.Load(sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != "in_progress" {
		return nil, fmt.Errorf("session %s is %s, not in progress", sessionID, session.State)
	}

	question := session.Questions[session.CurrentQuestionIndex]
	player := &session.Players[session.CurrentSeat]
	now := time.Now().UnixMilli()
	correct := selectedAnswer == question.CorrectAnswer
	if correct {
		player.Score++
	}

	session.Answers = append(session.Answers, store.HotseatAnswer{
		PlayerID:       player.ID,
		QuestionIndex:  session.CurrentQuestionIndex,
		QuestionID:     question.ID,
		SelectedAnswer: selectedAnswer,
		IsCorrect:      correct,
		ResponseMs:     now - session.QuestionStartedAt,
		AnsweredAt:     now,
	})

	session.CurrentSeat++
	if session.CurrentSeat >= len(session.Players) {
		session.CurrentSeat = 0
		session.CurrentQuestionIndex++
		if session.CurrentQuestionIndex >= len(session.Questions) {
			return e.finish(session)
		}
	}
	session.QuestionStartedAt = time.Now().UnixMilli()

	if err := e.db.SaveHotseatSession(session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

// UseLifeline spends a joker or help for the seat currently holding the
// phone. Each player's stock lasts the whole game, same as the online rules.
func (e *Engine) UseLifeline(sessionID, kind string) (*store.HotseatSession, error) {
	session, err := e.Load(sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != "in_progress" {
		return nil, fmt.Errorf("session %s is %s, not in progress", sessionID, session.State)
	}

	player := &session.Players[session.CurrentSeat]
	switch kind {
	case "joker":
		if player.JokersLeft <= 0 {
			return nil, fmt.Errorf("%s has no jokers left", player.DisplayName)
		}
		player.JokersLeft--
	case "help":
		if player.HelpsLeft <= 0 {
			return nil, fmt.Errorf("%s has no helps left", player.DisplayName)
		}
		player.HelpsLeft--
	default:
		return nil, fmt.Errorf("lifeline must be joker or help, got %q", kind)
	}

	if err := e.db.SaveHotseatSession(session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

// Abort cancels an in-progress session without queuing a result.
func (e *Engine) Abort(sessionID string) error {
	session, err := e.Load(sessionID)
	if err != nil {
		return err
	}
	if session.State != "in_progress" {
		return nil
	}
	session.State = "cancelled"
	session.FinishedAt = time.Now().UnixMilli()
	if err := e.db.SaveHotseatSession(session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	e.publish("session.hotseat_finished", session)
	return nil
}

// List returns recent local sessions.
func (e *Engine) List(limit int) ([]store.HotseatSession, error) {
	return e.db.ListHotseatSessions(limit)
}

func (e *Engine) finish(session *store.HotseatSession) (*store.HotseatSession, error) {
	now := time.Now().UnixMilli()
	session.State = "completed"
	session.FinishedAt = now

	results := make([]store.PlayerResult, len(session.Players))
	for i, p := range session.Players {
		results[i] = store.PlayerResult{DisplayName: p.DisplayName, Score: p.Score}
	}
	err := e.db.EnqueueAttempt(&store.Attempt{
		LocalID:        session.ID,
		Mode:           "hotseat",
		CategorySlug:   session.CategorySlug,
		Players:        results,
		TotalQuestions: len(session.Questions),
		DurationSec:    int((now - session.StartedAt) / 1000),
		PlayedAt:       now,
	})
	if err != nil {
		return nil, fmt.Errorf("queue result: %w", err)
	}
	if err := e.db.SaveHotseatSession(session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	e.logger.Info("hotseat session finished",
		zap.String("session_id", session.ID),
		zap.Int("answers", len(session.Answers)))
	e.publish("session.hotseat_finished", session)
	e.bus.Notify("Game over! Result saved for sync.")
	return session, nil
}

func (e *Engine) publish(kind string, session *store.HotseatSession) {
	e.bus.Publish(bus.Event{
		Kind:      kind,
		Timestamp: time.Now(),
		Payload:   map[string]string{"session_id": session.ID, "state": session.State},
	})
}

func applyDefaults(s *store.Settings) {
	if s.QuestionCount <= 0 {
		s.QuestionCount = 5
	}
	if s.ResponseTime <= 0 {
		s.ResponseTime = 30
	}
	if s.Jokers <= 0 {
		s.Jokers = 1
	}
	if s.Helps <= 0 {
		s.Helps = 1
	}
}
