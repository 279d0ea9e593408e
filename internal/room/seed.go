package room

import (
	"context"
	"encoding/json"
	"fmt"
)

type seedTheme struct {
	Slug  string
	Label string
}

type seedQuestion struct {
	ID            string
	Category      string
	Prompt        string
	Choices       []string
	CorrectAnswer string
}

var demoThemes = []seedTheme{
	{Slug: "history", Label: "History"},
	{Slug: "science", Label: "Science"},
	{Slug: "geography", Label: "Geography"},
}

var demoQuestions = []seedQuestion{
	{"hist-01", "history", "In which year did the Berlin Wall fall?", []string{"1987", "1989", "1991", "1993"}, "1989"},
	{"hist-02", "history", "Who was the first Roman emperor?", []string{"Julius Caesar", "Augustus", "Nero", "Trajan"}, "Augustus"},
	{"hist-03", "history", "The Hundred Years' War was fought between England and which country?", []string{"Spain", "Portugal", "France", "Holland"}, "France"},
	{"hist-04", "history", "Which empire built Machu Picchu?", []string{"Aztec", "Maya", "Inca", "Olmec"}, "Inca"},
	{"hist-05", "history", "The Magna Carta was signed in which century?", []string{"11th", "12th", "13th", "14th"}, "13th"},
	{"hist-06", "history", "Who crossed the Alps with war elephants?", []string{"Hannibal", "Scipio", "Alexander", "Attila"}, "Hannibal"},
	{"sci-01", "science", "What is the chemical symbol for gold?", []string{"Go", "Gd", "Au", "Ag"}, "Au"},
	{"sci-02", "science", "How many planets orbit the Sun?", []string{"7", "8", "9", "10"}, "8"},
	{"sci-03", "science", "What gas do plants absorb from the atmosphere?", []string{"Oxygen", "Nitrogen", "Carbon dioxide", "Methane"}, "Carbon dioxide"},
	{"sci-04", "science", "What particle carries a negative charge?", []string{"Proton", "Neutron", "Electron", "Photon"}, "Electron"},
	{"sci-05", "science", "What is the hardest natural material?", []string{"Quartz", "Diamond", "Graphite", "Topaz"}, "Diamond"},
	{"sci-06", "science", "At what temperature does water boil at sea level (Celsius)?", []string{"90", "95", "100", "110"}, "100"},
	{"geo-01", "geography", "What is the longest river in the world?", []string{"Amazon", "Nile", "Yangtze", "Mississippi"}, "Nile"},
	{"geo-02", "geography", "Which country has the most time zones?", []string{"Russia", "USA", "China", "France"}, "France"},
	{"geo-03", "geography", "What is the capital of Australia?", []string{"Sydney", "Melbourne", "Canberra", "Perth"}, "Canberra"},
	{"geo-04", "geography", "Which desert is the largest hot desert?", []string{"Gobi", "Sahara", "Kalahari", "Atacama"}, "Sahara"},
	{"geo-05", "geography", "Mount Everest sits on the border of Nepal and which country?", []string{"India", "Bhutan", "China", "Pakistan"}, "China"},
	{"geo-06", "geography", "Which ocean is the deepest?", []string{"Atlantic", "Indian", "Arctic", "Pacific"}, "Pacific"},
}

// Seed populates demo themes and questions. Idempotent; existing rows are
// left alone.
func (s *Store) Seed(ctx context.Context) error {
	for _, t := range demoThemes {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO themes (slug, label, min_questions) VALUES (?, ?, 5)
			ON CONFLICT(slug) DO NOTHING`, t.Slug, t.Label)
		if err != nil {
			return fmt.Errorf("seed theme %s: %w", t.Slug, err)
		}
	}
	for _, q := range demoQuestions {
		choices, err := json.Marshal(q.Choices)
		if err != nil {
			return err
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO questions (id, category_slug, prompt, choices_json, correct_answer, is_active)
			VALUES (?, ?, ?, ?, ?, 1)
			ON CONFLICT(id) DO NOTHING`,
			q.ID, q.Category, q.Prompt, string(choices), q.CorrectAnswer)
		if err != nil {
			return fmt.Errorf("seed question %s: %w", q.ID, err)
		}
	}
	return nil
}
