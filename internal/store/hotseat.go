package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SaveHotseatSession inserts or updates a local hot-seat session.
func (db *DB) SaveHotseatSession(s *HotseatSession) error {
	s.UpdatedAt = time.Now().UnixMilli()
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal hotseat session: %w", err)
	}
	_, err = db.Exec(`
		INSERT INTO hotseat_sessions (id, state, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		s.ID, s.State, string(payload), s.UpdatedAt)
	return err
}

// LoadHotseatSession returns a hot-seat session by id, or nil when absent.
func (db *DB) LoadHotseatSession(id string) (*HotseatSession, error) {
	var payload string
	err := db.QueryRow(`SELECT payload FROM hotseat_sessions WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s HotseatSession
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return nil, fmt.Errorf("unmarshal hotseat session %s: %w", id, err)
	}
	return &s, nil
}

// DeleteHotseatSession removes a hot-seat session. No-op when absent.
func (db *DB) DeleteHotseatSession(id string) error {
	_, err := db.Exec(`DELETE FROM hotseat_sessions WHERE id = ?`, id)
	return err
}

// ListHotseatSessions returns local sessions newest first.
func (db *DB) ListHotseatSessions(limit int) ([]HotseatSession, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT payload FROM hotseat_sessions ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var sessions []HotseatSession
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var s HotseatSession
		if err := json.Unmarshal([]byte(payload), &s); err != nil {
			return nil, fmt.Errorf("unmarshal hotseat session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
