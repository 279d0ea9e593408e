package hotseat

import (
	"path/filepath"
	"strconv"
	"testing"

	"github.com/amarouch/ilmq/internal/bus"
	"github.com/amarouch/ilmq/internal/store"
	"go.uber.org/zap"
)

func testEngine(t *testing.T) (*Engine, *store.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	logger, _ := zap.NewDevelopment()
	return NewEngine(db, bus.New(), logger), db
}

func cacheQuestions(t *testing.T, db *store.DB, category string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := db.UpsertQuestion(&store.Question{
			ID:            category + "-q" + strconv.Itoa(i),
			CategorySlug:  category,
			Prompt:        "prompt " + strconv.Itoa(i),
			Choices:       []string{"a", "b", "c", "d"},
			CorrectAnswer: "a",
			Active:        true,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestCreateValidatesPlayerCount(t *testing.T) {
	e, db := testEngine(t)
	cacheQuestions(t, db, "history", 10)

	if _, err := e.Create("history", []string{"Solo"}, store.Settings{}); err == nil {
		t.Error("expected error for 1 player")
	}
	names := make([]string, 9)
	if _, err := e.Create("history", names, store.Settings{}); err == nil {
		t.Error("expected error for 9 players")
	}
}

func TestCreateFillsBlankNames(t *testing.T) {
	e, db := testEngine(t)
	cacheQuestions(t, db, "history", 10)

	s, err := e.Create("history", []string{"  Nora ", "", "   "}, store.Settings{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Players[0].DisplayName != "Nora" {
		t.Errorf("player 0 = %q, want Nora", s.Players[0].DisplayName)
	}
	if s.Players[1].DisplayName != "Player 2" {
		t.Errorf("player 1 = %q, want Player 2", s.Players[1].DisplayName)
	}
	if s.Players[2].DisplayName != "Player 3" {
		t.Errorf("player 2 = %q, want Player 3", s.Players[2].DisplayName)
	}
}

func TestCreateFailsOnThinCache(t *testing.T) {
	e, db := testEngine(t)
	cacheQuestions(t, db, "history", 3)

	_, err := e.Create("history", []string{"A", "B"}, store.Settings{QuestionCount: 5})
	if err == nil {
		t.Fatal("expected error when cache has fewer questions than requested")
	}
}

func TestCreateAppliesSettingsDefaults(t *testing.T) {
	e, db := testEngine(t)
	cacheQuestions(t, db, "history", 10)

	s, err := e.Create("history", []string{"A", "B"}, store.Settings{})
	if err != nil {
		t.Fatal(err)
	}
	want := store.Settings{QuestionCount: 5, ResponseTime: 30, Jokers: 1, Helps: 1}
	if s.Settings != want {
		t.Errorf("settings = %+v, want %+v", s.Settings, want)
	}
	if len(s.Questions) != 5 {
		t.Errorf("questions = %d, want 5", len(s.Questions))
	}
}

func TestSeatRotationAndScoring(t *testing.T) {
	e, db := testEngine(t)
	cacheQuestions(t, db, "history", 10)

	s, err := e.Create("history", []string{"A", "B"}, store.Settings{QuestionCount: 2})
	if err != nil {
		t.Fatal(err)
	}

	// Seat 0 answers correctly.
	s, err = e.SubmitAnswer(s.ID, s.Questions[0].CorrectAnswer)
	if err != nil {
		t.Fatal(err)
	}
	if s.CurrentSeat != 1 {
		t.Errorf("seat = %d, want 1 after first answer", s.CurrentSeat)
	}
	if s.CurrentQuestionIndex != 0 {
		t.Errorf("question index = %d, want 0 until all seats answered", s.CurrentQuestionIndex)
	}
	if s.Players[0].Score != 1 {
		t.Errorf("player A score = %d, want 1", s.Players[0].Score)
	}

	// Seat 1 answers wrong; question advances, rotation wraps to seat 0.
	s, err = e.SubmitAnswer(s.ID, "definitely wrong")
	if err != nil {
		t.Fatal(err)
	}
	if s.CurrentSeat != 0 {
		t.Errorf("seat = %d, want 0 after full rotation", s.CurrentSeat)
	}
	if s.CurrentQuestionIndex != 1 {
		t.Errorf("question index = %d, want 1", s.CurrentQuestionIndex)
	}
	if s.Players[1].Score != 0 {
		t.Errorf("player B score = %d, want 0", s.Players[1].Score)
	}
}

func TestLastAnswerFinishesAndQueuesResult(t *testing.T) {
	e, db := testEngine(t)
	cacheQuestions(t, db, "history", 10)

	s, err := e.Create("history", []string{"A", "B"}, store.Settings{QuestionCount: 1})
	if err != nil {
		t.Fatal(err)
	}
	correct := s.Questions[0].CorrectAnswer

	if s, err = e.SubmitAnswer(s.ID, correct); err != nil {
		t.Fatal(err)
	}
	if s.State != "in_progress" {
		t.Fatalf("state = %s, want in_progress with one seat left", s.State)
	}
	if s, err = e.SubmitAnswer(s.ID, correct); err != nil {
		t.Fatal(err)
	}
	if s.State != "completed" {
		t.Fatalf("state = %s, want completed", s.State)
	}

	pending, err := db.PendingAttempts()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending attempts = %d, want 1", len(pending))
	}
	a := pending[0]
	if a.LocalID != s.ID || a.Mode != "hotseat" || a.TotalQuestions != 1 {
		t.Errorf("queued attempt = %+v", a)
	}
	if len(a.Players) != 2 || a.Players[0].Score != 1 || a.Players[1].Score != 1 {
		t.Errorf("queued players = %+v", a.Players)
	}

	// A finished session rejects further answers.
	if _, err := e.SubmitAnswer(s.ID, correct); err == nil {
		t.Error("expected error answering a completed session")
	}
}

func TestLifelinesBelongToCurrentSeat(t *testing.T) {
	e, db := testEngine(t)
	cacheQuestions(t, db, "history", 10)

	s, err := e.Create("history", []string{"A", "B"}, store.Settings{Jokers: 1, Helps: 1})
	if err != nil {
		t.Fatal(err)
	}
	if s.Players[0].JokersLeft != 1 || s.Players[1].HelpsLeft != 1 {
		t.Fatalf("players start with %+v, want stocked lifelines", s.Players)
	}

	// Seat 0 spends its only joker.
	s, err = e.UseLifeline(s.ID, "joker")
	if err != nil {
		t.Fatal(err)
	}
	if s.Players[0].JokersLeft != 0 {
		t.Errorf("A jokers = %d, want 0", s.Players[0].JokersLeft)
	}
	if s.Players[1].JokersLeft != 1 {
		t.Errorf("B jokers = %d, want 1 (untouched)", s.Players[1].JokersLeft)
	}
	if _, err := e.UseLifeline(s.ID, "joker"); err == nil {
		t.Error("expected error spending an exhausted joker")
	}

	// After rotation the phone is with B, whose joker is still there.
	s, err = e.SubmitAnswer(s.ID, "x")
	if err != nil {
		t.Fatal(err)
	}
	s, err = e.UseLifeline(s.ID, "joker")
	if err != nil {
		t.Fatal(err)
	}
	if s.Players[1].JokersLeft != 0 {
		t.Errorf("B jokers = %d, want 0 after spending", s.Players[1].JokersLeft)
	}

	if _, err := e.UseLifeline(s.ID, "skip"); err == nil {
		t.Error("expected error for unknown lifeline kind")
	}
}

func TestAbortDoesNotQueueResult(t *testing.T) {
	e, db := testEngine(t)
	cacheQuestions(t, db, "history", 10)

	s, err := e.Create("history", []string{"A", "B"}, store.Settings{})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Abort(s.ID); err != nil {
		t.Fatal(err)
	}

	got, err := e.Load(s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != "cancelled" {
		t.Errorf("state = %s, want cancelled", got.State)
	}
	n, err := db.QueueSize()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("queue size = %d, want 0 after abort", n)
	}
}

func TestSessionSurvivesReload(t *testing.T) {
	e, db := testEngine(t)
	cacheQuestions(t, db, "history", 10)

	s, err := e.Create("history", []string{"A", "B"}, store.Settings{QuestionCount: 3})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.SubmitAnswer(s.ID, "x"); err != nil {
		t.Fatal(err)
	}

	// A fresh engine over the same database sees the persisted progress.
	logger, _ := zap.NewDevelopment()
	e2 := NewEngine(db, bus.New(), logger)
	got, err := e2.Load(s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrentSeat != 1 || len(got.Answers) != 1 {
		t.Errorf("reloaded session seat=%d answers=%d, want seat=1 answers=1", got.CurrentSeat, len(got.Answers))
	}
}
