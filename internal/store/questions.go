package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// UpsertQuestion inserts or updates a cached question (idempotent on id).
func (db *DB) UpsertQuestion(q *Question) error {
	choices, err := json.Marshal(q.Choices)
	if err != nil {
		return fmt.Errorf("marshal choices: %w", err)
	}
	now := time.Now().UnixMilli()
	_, err = db.Exec(`
		INSERT INTO questions (id, category_slug, prompt, choices_json, correct_answer, is_active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category_slug = excluded.category_slug,
			prompt = excluded.prompt,
			choices_json = excluded.choices_json,
			correct_answer = excluded.correct_answer,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		q.ID, q.CategorySlug, q.Prompt, string(choices), q.CorrectAnswer, q.Active, now)
	return err
}

// RandomQuestions returns up to limit active cached questions for a category
// in random order.
func (db *DB) RandomQuestions(categorySlug string, limit int) ([]Question, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := db.Query(`
		SELECT id, category_slug, prompt, choices_json, correct_answer, is_active
		FROM questions
		WHERE category_slug = ? AND is_active = 1
		ORDER BY RANDOM()
		LIMIT ?`, categorySlug, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var questions []Question
	for rows.Next() {
		var q Question
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

// QuestionCount returns the number of active cached questions for a category.
func (db *DB) QuestionCount(categorySlug string) (int, error) {
	var n int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM questions WHERE category_slug = ? AND is_active = 1`,
		categorySlug).Scan(&n)
	return n, err
}
