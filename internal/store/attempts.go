package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// EnqueueAttempt appends a completed game result to the sync queue.
// Re-queuing a local id that is already pending is a no-op, so a finish
// interrupted between queuing and persisting can be retried safely.
func (db *DB) EnqueueAttempt(a *Attempt) error {
	players, err := json.Marshal(a.Players)
	if err != nil {
		return fmt.Errorf("marshal players: %w", err)
	}
	now := time.Now().UnixMilli()
	_, err = db.Exec(`
		INSERT INTO attempts (local_id, mode, category_slug, players_json, total_questions, duration_sec, played_at, queued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(local_id) DO NOTHING`,
		a.LocalID, a.Mode, a.CategorySlug, string(players), a.TotalQuestions, a.DurationSec, a.PlayedAt, now)
	return err
}

// PendingAttempts returns queued attempts in insertion order (oldest first).
func (db *DB) PendingAttempts() ([]Attempt, error) {
	rows, err := db.Query(`
		SELECT id, local_id, mode, category_slug, players_json, total_questions, duration_sec, played_at, queued_at
		FROM attempts ORDER BY queued_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		var players string
		if err := rows.Scan(&a.ID, &a.LocalID, &a.Mode, &a.CategorySlug, &players, &a.TotalQuestions, &a.DurationSec, &a.PlayedAt, &a.QueuedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(players), &a.Players); err != nil {
			return nil, fmt.Errorf("unmarshal players for %s: %w", a.LocalID, err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// RemoveAttempt deletes a queued attempt by its local id. Removing an absent
// id is a no-op.
func (db *DB) RemoveAttempt(localID string) error {
	_, err := db.Exec(`DELETE FROM attempts WHERE local_id = ?`, localID)
	return err
}

// QueueSize returns the number of attempts still pending upload.
func (db *DB) QueueSize() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM attempts`).Scan(&n)
	return n, err
}
