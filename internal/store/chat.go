package store

// UpsertChatMessage inserts a chat message (idempotent on session_id + msg_id).
func (db *DB) UpsertChatMessage(m *ChatMessage) error {
	_, err := db.Exec(`
		INSERT INTO chat_messages (session_id, msg_id, sender_name, body, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, msg_id) DO UPDATE SET
			sender_name = excluded.sender_name,
			body = excluded.body`,
		m.SessionID, m.MsgID, m.SenderName, m.Body, m.CreatedAt)
	return err
}

// ListChatMessages returns cached messages for a session in chronological
// order, newest limit entries.
func (db *DB) ListChatMessages(sessionID string, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, session_id, msg_id, sender_name, body, created_at
		FROM (
			SELECT id, session_id, msg_id, sender_name, body, created_at
			FROM chat_messages
			WHERE session_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		) ORDER BY created_at ASC, id ASC`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.MsgID, &m.SenderName, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
