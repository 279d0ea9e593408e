package room

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/amarouch/ilmq/internal/remote"
	"github.com/amarouch/ilmq/internal/store"
	"github.com/golang-migrate/migrate/v4"
	migsqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/amarouch/ilmq/internal/room/migrations"
)

// Errors returned by the store; handlers map them to HTTP statuses.
var (
	ErrNotFound      = errors.New("not found")
	ErrRoomFull      = errors.New("room is full")
	ErrRoomCompleted = errors.New("room completed")
	ErrBadState      = errors.New("invalid state for operation")
	ErrNoLifeline    = errors.New("no lifelines of that kind left")
)

// capacity is the player limit per mode. Hotseat is absent on purpose: those
// games never reach the room service as live sessions.
var capacity = map[string]int{
	remote.ModeSolo:  1,
	remote.ModeDuo:   2,
	remote.ModeGroup: 8,
}

// Store is the room service's sqlite-backed state.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the room database and applies migrations.
func OpenStore(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	driver, err := migsqlite.WithInstance(s.db, &migsqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("migration instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration up: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSession opens a room in lobby state with the host seated first.
func (s *Store) CreateSession(ctx context.Context, mode, categorySlug string, settings store.Settings, hostName string) (*remote.CreateSessionResult, error) {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	sessionID := uuid.NewString()

	// Retry on the unlikely access code collision.
	var code string
	for attempt := 0; ; attempt++ {
		code = newAccessCode()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sessions (id, access_code, mode, state, category_slug, settings_json, created_at)
			VALUES (?, ?, ?, 'lobby', ?, ?, ?)`,
			sessionID, code, mode, categorySlug, string(settingsJSON), now)
		if err == nil {
			break
		}
		if attempt >= 4 {
			return nil, fmt.Errorf("insert session: %w", err)
		}
	}

	playerID := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO players (id, session_id, display_name, seat_order, jokers_left, helps_left, joined_at)
		VALUES (?, ?, ?, 0, ?, ?, ?)`,
		playerID, sessionID, hostName, settings.Jokers, settings.Helps, now)
	if err != nil {
		return nil, fmt.Errorf("insert host: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &remote.CreateSessionResult{
		SessionID:  sessionID,
		AccessCode: code,
		PlayerID:   playerID,
		State:      remote.StateLobby,
	}, nil
}

// SessionByCode looks a session up by access code.
func (s *Store) SessionByCode(ctx context.Context, code string) (*remote.Session, error) {
	return s.session(ctx, `access_code = ?`, code)
}

// SessionByID looks a session up by id.
func (s *Store) SessionByID(ctx context.Context, id string) (*remote.Session, error) {
	return s.session(ctx, `id = ?`, id)
}

func (s *Store) session(ctx context.Context, where string, arg any) (*remote.Session, error) {
	var (
		sess         remote.Session
		settingsJSON string
		startedAt    sql.NullInt64
		finishedAt   sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, access_code, mode, state, category_slug, settings_json, current_question_index, created_at, started_at, finished_at
		FROM sessions WHERE `+where, arg).
		Scan(&sess.ID, &sess.AccessCode, &sess.Mode, &sess.State, &sess.CategorySlug,
			&settingsJSON, &sess.CurrentQuestionIndex, &sess.CreatedAt, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(settingsJSON), &sess.Settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings for %s: %w", sess.ID, err)
	}
	sess.StartedAt = startedAt.Int64
	sess.FinishedAt = finishedAt.Int64
	return &sess, nil
}

// AddPlayer seats a new player. Enforces capacity and refuses terminal
// sessions.
func (s *Store) AddPlayer(ctx context.Context, sessionID, displayName string) (*remote.Player, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var mode, state, settingsJSON string
	err = tx.QueryRowContext(ctx,
		`SELECT mode, state, settings_json FROM sessions WHERE id = ?`, sessionID).
		Scan(&mode, &state, &settingsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if state == remote.StateCompleted || state == remote.StateCancelled {
		return nil, ErrRoomCompleted
	}

	var seats int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM players WHERE session_id = ?`, sessionID).Scan(&seats); err != nil {
		return nil, err
	}
	if seats >= capacity[mode] {
		return nil, ErrRoomFull
	}

	var settings store.Settings
	if err := json.Unmarshal([]byte(settingsJSON), &settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	p := remote.Player{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		SeatOrder:   seats,
		JokersLeft:  settings.Jokers,
		HelpsLeft:   settings.Helps,
		JoinedAt:    time.Now().UnixMilli(),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO players (id, session_id, display_name, seat_order, jokers_left, helps_left, joined_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, sessionID, p.DisplayName, p.SeatOrder, p.JokersLeft, p.HelpsLeft, p.JoinedAt)
	if err != nil {
		return nil, fmt.Errorf("insert player: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Players returns a session's players in seat order.
func (s *Store) Players(ctx context.Context, sessionID string) ([]remote.Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, display_name, seat_order, score, jokers_left, helps_left, joined_at
		FROM players WHERE session_id = ? ORDER BY seat_order ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var players []remote.Player
	for rows.Next() {
		var p remote.Player
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.SeatOrder, &p.Score, &p.JokersLeft, &p.HelpsLeft, &p.JoinedAt); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// StartSession moves a lobby to in_progress and fixes its question list.
// Starting a session that is not in lobby returns ErrBadState; the lifecycle
// only moves forward.
func (s *Store) StartSession(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var state, categorySlug, settingsJSON string
	err = tx.QueryRowContext(ctx,
		`SELECT state, category_slug, settings_json FROM sessions WHERE id = ?`, sessionID).
		Scan(&state, &categorySlug, &settingsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if state != remote.StateLobby {
		return ErrBadState
	}

	var settings store.Settings
	if err := json.Unmarshal([]byte(settingsJSON), &settings); err != nil {
		return fmt.Errorf("unmarshal settings: %w", err)
	}
	count := settings.QuestionCount
	if count <= 0 {
		count = 5
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM questions WHERE category_slug = ? AND is_active = 1
		ORDER BY RANDOM() LIMIT ?`, categorySlug, count)
	if err != nil {
		return err
	}
	var questionIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return err
		}
		questionIDs = append(questionIDs, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(questionIDs) < count {
		return fmt.Errorf("only %d questions available for %s, need %d", len(questionIDs), categorySlug, count)
	}

	for i, qid := range questionIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO session_questions (session_id, question_index, question_id)
			VALUES (?, ?, ?)`, sessionID, i, qid); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sessions SET state = ?, started_at = ?, current_question_index = 0
		WHERE id = ?`, remote.StateInProgress, time.Now().UnixMilli(), sessionID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// RecordAnswer stores a player's answer for the session's current question.
// A second submission for the same question returns the original outcome
// with alreadyAnswered=true and leaves the score untouched.
func (s *Store) RecordAnswer(ctx context.Context, sessionID, playerID string, questionIndex int, selectedAnswer string, responseMs int64) (isCorrect, alreadyAnswered bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, false, err
	}
	defer func() { _ = tx.Rollback() }()

	var state string
	var currentIndex int
	err = tx.QueryRowContext(ctx,
		`SELECT state, current_question_index FROM sessions WHERE id = ?`, sessionID).
		Scan(&state, &currentIndex)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, ErrNotFound
	}
	if err != nil {
		return false, false, err
	}
	if state != remote.StateInProgress {
		return false, false, ErrBadState
	}
	if questionIndex != currentIndex {
		return false, false, fmt.Errorf("question %d is not current (%d): %w", questionIndex, currentIndex, ErrBadState)
	}

	var prevCorrect bool
	err = tx.QueryRowContext(ctx, `
		SELECT is_correct FROM answers
		WHERE session_id = ? AND player_id = ? AND question_index = ?`,
		sessionID, playerID, questionIndex).Scan(&prevCorrect)
	if err == nil {
		return prevCorrect, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, false, err
	}

	var correctAnswer string
	err = tx.QueryRowContext(ctx, `
		SELECT q.correct_answer FROM session_questions sq
		JOIN questions q ON q.id = sq.question_id
		WHERE sq.session_id = ? AND sq.question_index = ?`,
		sessionID, questionIndex).Scan(&correctAnswer)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, ErrNotFound
	}
	if err != nil {
		return false, false, err
	}

	isCorrect = selectedAnswer == correctAnswer
	_, err = tx.ExecContext(ctx, `
		INSERT INTO answers (session_id, player_id, question_index, selected_answer, is_correct, response_ms, answered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, playerID, questionIndex, selectedAnswer, isCorrect, responseMs, time.Now().UnixMilli())
	if err != nil {
		return false, false, err
	}
	if isCorrect {
		if _, err := tx.ExecContext(ctx,
			`UPDATE players SET score = score + 1 WHERE id = ?`, playerID); err != nil {
			return false, false, err
		}
	}
	return isCorrect, false, tx.Commit()
}

// ConsumeLifeline spends one of a player's jokers or helps. Lifelines can
// only be spent while the session is in progress, and spending an exhausted
// kind returns ErrNoLifeline without touching the row.
func (s *Store) ConsumeLifeline(ctx context.Context, sessionID, playerID, kind string) (*remote.UseLifelineResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var state string
	err = tx.QueryRowContext(ctx, `SELECT state FROM sessions WHERE id = ?`, sessionID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if state != remote.StateInProgress {
		return nil, ErrBadState
	}

	var jokers, helps int
	err = tx.QueryRowContext(ctx, `
		SELECT jokers_left, helps_left FROM players
		WHERE id = ? AND session_id = ?`, playerID, sessionID).Scan(&jokers, &helps)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	switch kind {
	case remote.LifelineJoker:
		if jokers <= 0 {
			return nil, ErrNoLifeline
		}
		jokers--
	case remote.LifelineHelp:
		if helps <= 0 {
			return nil, ErrNoLifeline
		}
		helps--
	default:
		return nil, fmt.Errorf("unknown lifeline %q: %w", kind, ErrBadState)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE players SET jokers_left = ?, helps_left = ? WHERE id = ?`,
		jokers, helps, playerID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &remote.UseLifelineResult{
		PlayerID:   playerID,
		JokersLeft: jokers,
		HelpsLeft:  helps,
	}, nil
}

// PlayerScore returns a player's current score.
func (s *Store) PlayerScore(ctx context.Context, playerID string) (int, error) {
	var score int
	err := s.db.QueryRowContext(ctx, `SELECT score FROM players WHERE id = ?`, playerID).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return score, err
}

// AdvanceQuestion moves an in_progress session to its next question,
// finishing it when the last question is done.
func (s *Store) AdvanceQuestion(ctx context.Context, sessionID string) (state string, index int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var currentIndex, total int
	err = tx.QueryRowContext(ctx, `
		SELECT s.current_question_index, COUNT(sq.question_index)
		FROM sessions s
		JOIN session_questions sq ON sq.session_id = s.id
		WHERE s.id = ? AND s.state = ?
		GROUP BY s.id`, sessionID, remote.StateInProgress).
		Scan(&currentIndex, &total)
	if errors.Is(err, sql.ErrNoRows) {
		// Either unknown or not in progress; disambiguate for the caller.
		if _, lookupErr := s.session(ctx, `id = ?`, sessionID); lookupErr != nil {
			return "", 0, lookupErr
		}
		return "", 0, ErrBadState
	}
	if err != nil {
		return "", 0, err
	}

	next := currentIndex + 1
	if next >= total {
		_, err = tx.ExecContext(ctx, `
			UPDATE sessions SET state = ?, finished_at = ? WHERE id = ?`,
			remote.StateCompleted, time.Now().UnixMilli(), sessionID)
		if err != nil {
			return "", 0, err
		}
		return remote.StateCompleted, currentIndex, tx.Commit()
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET current_question_index = ? WHERE id = ?`, next, sessionID)
	if err != nil {
		return "", 0, err
	}
	return remote.StateInProgress, next, tx.Commit()
}

// FinishSession moves an in_progress session to completed regardless of how
// many questions remain.
func (s *Store) FinishSession(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET state = ?, finished_at = ?
		WHERE id = ? AND state = ?`,
		remote.StateCompleted, time.Now().UnixMilli(), sessionID, remote.StateInProgress)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.session(ctx, `id = ?`, sessionID); err != nil {
			return err
		}
		return ErrBadState
	}
	return nil
}

// Answers returns a session's recorded answers.
func (s *Store) Answers(ctx context.Context, sessionID string) ([]remote.Answer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, question_index, selected_answer, is_correct, response_ms, answered_at
		FROM answers WHERE session_id = ?
		ORDER BY question_index ASC, answered_at ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var answers []remote.Answer
	for rows.Next() {
		var a remote.Answer
		if err := rows.Scan(&a.PlayerID, &a.QuestionIndex, &a.SelectedAnswer, &a.IsCorrect, &a.ResponseMs, &a.AnsweredAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// UpsertAttempt stores an uploaded offline result. Keyed on
// (device_id, local_session_id): the same queue entry uploaded twice, by a
// retry or an interrupted sync, lands exactly once.
func (s *Store) UpsertAttempt(ctx context.Context, a remote.AttemptUpload) error {
	players, err := json.Marshal(a.Players)
	if err != nil {
		return fmt.Errorf("marshal players: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO attempts (device_id, local_session_id, mode, category_slug, players_json, total_questions, duration_sec, played_at, source, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id, local_session_id) DO UPDATE SET
			mode = excluded.mode,
			category_slug = excluded.category_slug,
			players_json = excluded.players_json,
			total_questions = excluded.total_questions,
			duration_sec = excluded.duration_sec,
			played_at = excluded.played_at,
			source = excluded.source`,
		a.DeviceID, a.LocalSessionID, a.Mode, a.CategorySlug, string(players),
		a.TotalQuestions, a.DurationSec, a.PlayedAt, a.Source, time.Now().UnixMilli())
	return err
}

// AttemptCount returns the number of stored attempts (distinct uploads).
func (s *Store) AttemptCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts`).Scan(&n)
	return n, err
}

// AppendChat adds a chat message and returns it with its assigned id.
func (s *Store) AppendChat(ctx context.Context, sessionID, senderName, body string) (*remote.ChatMessage, error) {
	if _, err := s.session(ctx, `id = ?`, sessionID); err != nil {
		return nil, err
	}
	msg := remote.ChatMessage{
		SenderName: senderName,
		Body:       body,
		CreatedAt:  time.Now().UnixMilli(),
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (session_id, sender_name, body, created_at)
		VALUES (?, ?, ?, ?)`, sessionID, senderName, body, msg.CreatedAt)
	if err != nil {
		return nil, err
	}
	msg.ID, err = res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ChatAfter returns messages with id greater than after, oldest first.
func (s *Store) ChatAfter(ctx context.Context, sessionID string, after int64, limit int) ([]remote.ChatMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_name, body, created_at
		FROM chat_messages
		WHERE session_id = ? AND id > ?
		ORDER BY id ASC LIMIT ?`, sessionID, after, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []remote.ChatMessage
	for rows.Next() {
		var m remote.ChatMessage
		if err := rows.Scan(&m.ID, &m.SenderName, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Themes returns categories with at least minCount active questions.
func (s *Store) Themes(ctx context.Context, minCount int) ([]remote.Theme, error) {
	if minCount <= 0 {
		minCount = 5
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.slug, t.label, t.min_questions, COUNT(q.id) AS available
		FROM themes t
		LEFT JOIN questions q ON q.category_slug = t.slug AND q.is_active = 1
		GROUP BY t.slug
		HAVING available >= ?
		ORDER BY t.label ASC`, minCount)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var themes []remote.Theme
	for rows.Next() {
		var t remote.Theme
		if err := rows.Scan(&t.Slug, &t.Label, &t.MinQuestions, &t.AvailableQuestions); err != nil {
			return nil, err
		}
		themes = append(themes, t)
	}
	return themes, rows.Err()
}

// QuestionsByCategory returns active questions for download into device
// caches.
func (s *Store) QuestionsByCategory(ctx context.Context, categorySlug string, limit int) ([]store.Question, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category_slug, prompt, choices_json, correct_answer, is_active
		FROM questions
		WHERE category_slug = ? AND is_active = 1
		ORDER BY id ASC LIMIT ?`, categorySlug, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var questions []store.Question
	for rows.Next() {
		var q store.Question
		var choices string
		if err := rows.Scan(&q.ID, &q.CategorySlug, &q.Prompt, &choices, &q.CorrectAnswer, &q.Active); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(choices), &q.Choices); err != nil {
			return nil, fmt.Errorf("unmarshal choices for %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
