package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/amarouch/ilmq/internal/bus"
	"github.com/amarouch/ilmq/internal/chat"
	"github.com/amarouch/ilmq/internal/hotseat"
	"github.com/amarouch/ilmq/internal/remote"
	"github.com/amarouch/ilmq/internal/status"
	"github.com/amarouch/ilmq/internal/store"
	"github.com/amarouch/ilmq/internal/syncer"
	"go.uber.org/zap"
)

// testDeps wires a full handler against a stub room service.
func testDeps(t *testing.T, roomService http.Handler) (*Deps, http.Handler) {
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

	srv := httptest.NewServer(roomService)
	t.Cleanup(srv.Close)

	b := bus.New()
	logger, _ := zap.NewDevelopment()
	client := remote.NewClient(srv.URL, "dev-test")
	machine := status.NewMachine(b)
	if err := machine.Transition(status.Idle); err != nil {
		t.Fatal(err)
	}

	d := &Deps{
		Profile: "test",
		DB:      db,
		Remote:  client,
		Syncer:  syncer.NewReconciler(db, client, b, logger, time.Minute),
		Hotseat: hotseat.NewEngine(db, b, logger),
		Chat:    chat.NewPoller(db, client, b, logger, time.Minute),
		Machine: machine,
		Bus:     b,
		Logger:  logger,
	}
	t.Cleanup(d.Chat.Stop)
	return d, NewHandler(d)
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatusEndpoint(t *testing.T) {
	_, h := testDeps(t, http.NotFoundHandler())

	rec := doRequest(t, h, http.MethodGet, "/v1/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var res StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Profile != "test" || res.Route != string(status.Idle) || res.QueueSize != 0 {
		t.Errorf("unexpected status %+v", res)
	}
}

func TestJoinSuccessTracksSessionAndRoute(t *testing.T) {
	room := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/sessions/join":
			_ = json.NewEncoder(w).Encode(remote.JoinSessionResult{
				SessionID: "s1",
				PlayerID:  "p1",
				Mode:      remote.ModeDuo,
				State:     remote.StateLobby,
			})
		default:
			// Chat polling hits /chat; empty page is fine.
			_ = json.NewEncoder(w).Encode(remote.ChatPage{})
		}
	})
	d, h := testDeps(t, room)

	rec := doRequest(t, h, http.MethodPost, "/v1/sessions/join", SessionJoinRequest{
		AccessCode:  "ab12cd",
		DisplayName: "Nora",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if d.Machine.Current() != status.Lobby {
		t.Errorf("route = %s, want LOBBY", d.Machine.Current())
	}
	sessionID, playerID, mode := d.active.get()
	if sessionID != "s1" || playerID != "p1" || mode != remote.ModeDuo {
		t.Errorf("active session = %s/%s/%s", sessionID, playerID, mode)
	}
	if d.Chat.Session() != "s1" {
		t.Errorf("chat watching %q, want s1", d.Chat.Session())
	}
}

func TestJoinRefusalPassesThroughReasonAndMessage(t *testing.T) {
	room := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "room is full"})
	})
	d, h := testDeps(t, room)

	rec := doRequest(t, h, http.MethodPost, "/v1/sessions/join", SessionJoinRequest{
		AccessCode:  "AB12CD",
		DisplayName: "Nora",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var refusal JoinRefusal
	if err := json.Unmarshal(rec.Body.Bytes(), &refusal); err != nil {
		t.Fatal(err)
	}
	if refusal.Reason != string(remote.JoinRoomFull) || refusal.Message != "room is full" {
		t.Errorf("refusal = %+v", refusal)
	}
	if d.Machine.Current() != status.Idle {
		t.Errorf("route = %s, want IDLE after refused join", d.Machine.Current())
	}
}

func TestJoinInProgressRoutesToGame(t *testing.T) {
	room := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/sessions/join":
			_ = json.NewEncoder(w).Encode(remote.JoinSessionResult{
				SessionID: "s1",
				PlayerID:  "p1",
				Mode:      remote.ModeGroup,
				State:     remote.StateInProgress,
			})
		default:
			_ = json.NewEncoder(w).Encode(remote.ChatPage{})
		}
	})
	d, h := testDeps(t, room)

	rec := doRequest(t, h, http.MethodPost, "/v1/sessions/join", SessionJoinRequest{
		AccessCode:  "AB12CD",
		DisplayName: "Nora",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if d.Machine.Current() != status.InGame {
		t.Errorf("route = %s, want IN_GAME", d.Machine.Current())
	}
}

func TestJoinWhileInSessionNeverReachesRoomService(t *testing.T) {
	var joins int
	room := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/sessions/join":
			joins++
			_ = json.NewEncoder(w).Encode(remote.JoinSessionResult{
				SessionID: "s1", PlayerID: "p1", Mode: remote.ModeDuo, State: remote.StateLobby,
			})
		default:
			_ = json.NewEncoder(w).Encode(remote.ChatPage{})
		}
	})
	d, h := testDeps(t, room)

	rec := doRequest(t, h, http.MethodPost, "/v1/sessions/join", SessionJoinRequest{
		AccessCode: "AB12CD", DisplayName: "Nora",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("first join status = %d", rec.Code)
	}

	// A second join is refused before any network call; otherwise the room
	// service would seat a player this daemon immediately abandons.
	rec = doRequest(t, h, http.MethodPost, "/v1/sessions/join", SessionJoinRequest{
		AccessCode: "ZZ99XX", DisplayName: "Nora",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("second join status = %d, want 409", rec.Code)
	}
	if joins != 1 {
		t.Errorf("room service saw %d joins, want 1", joins)
	}
	sessionID, _, _ := d.active.get()
	if sessionID != "s1" {
		t.Errorf("active session = %q, want s1 untouched", sessionID)
	}

	// Same guard for create.
	rec = doRequest(t, h, http.MethodPost, "/v1/sessions", SessionCreateRequest{
		Mode: remote.ModeDuo, CategorySlug: "history", HostDisplayName: "Nora",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("create status = %d, want 409", rec.Code)
	}
}

func TestLeaveClearsActiveSession(t *testing.T) {
	room := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/sessions/join":
			_ = json.NewEncoder(w).Encode(remote.JoinSessionResult{
				SessionID: "s1", PlayerID: "p1", Mode: remote.ModeDuo, State: remote.StateLobby,
			})
		default:
			_ = json.NewEncoder(w).Encode(remote.ChatPage{})
		}
	})
	d, h := testDeps(t, room)

	doRequest(t, h, http.MethodPost, "/v1/sessions/join", SessionJoinRequest{
		AccessCode: "AB12CD", DisplayName: "Nora",
	})
	rec := doRequest(t, h, http.MethodPost, "/v1/sessions/leave", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	sessionID, _, _ := d.active.get()
	if sessionID != "" {
		t.Errorf("active session = %q, want cleared", sessionID)
	}
	if d.Machine.Current() != status.Idle {
		t.Errorf("route = %s, want IDLE", d.Machine.Current())
	}
}

func TestQueueAddListRemove(t *testing.T) {
	_, h := testDeps(t, http.NotFoundHandler())

	rec := doRequest(t, h, http.MethodPost, "/v1/queue", QueueAddRequest{
		Mode:           "solo",
		CategorySlug:   "history",
		Players:        []store.PlayerResult{{DisplayName: "Nora", Score: 4}},
		TotalQuestions: 5,
		DurationSec:    80,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body %s", rec.Code, rec.Body.String())
	}
	var added map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &added); err != nil {
		t.Fatal(err)
	}
	if added["local_id"] == "" {
		t.Fatal("no local_id assigned")
	}

	rec = doRequest(t, h, http.MethodGet, "/v1/queue", nil)
	var listed struct {
		Attempts []store.Attempt `json:"attempts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed.Attempts) != 1 {
		t.Fatalf("queue = %d entries, want 1", len(listed.Attempts))
	}

	rec = doRequest(t, h, http.MethodDelete, "/v1/queue/"+added["local_id"], nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove status = %d", rec.Code)
	}
	// Removing again is a no-op, not an error.
	rec = doRequest(t, h, http.MethodDelete, "/v1/queue/"+added["local_id"], nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("repeat remove status = %d", rec.Code)
	}
}

func TestQueueAddRejectsInvalidMode(t *testing.T) {
	_, h := testDeps(t, http.NotFoundHandler())

	rec := doRequest(t, h, http.MethodPost, "/v1/queue", QueueAddRequest{
		Mode:    "tournament",
		Players: []store.PlayerResult{{DisplayName: "Nora"}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSyncNowEndpoint(t *testing.T) {
	room := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/attempts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	d, h := testDeps(t, room)

	if err := d.DB.EnqueueAttempt(&store.Attempt{
		LocalID: "a", Mode: "solo", CategorySlug: "history",
		Players: []store.PlayerResult{{DisplayName: "Nora", Score: 1}},
	}); err != nil {
		t.Fatal(err)
	}

	rec := doRequest(t, h, http.MethodPost, "/v1/sync", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var res syncer.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Synced != 1 || res.Remaining != 0 {
		t.Errorf("result = %+v, want synced=1", res)
	}
}

func TestHotseatOverAPI(t *testing.T) {
	d, h := testDeps(t, http.NotFoundHandler())
	for i := 0; i < 6; i++ {
		if err := d.DB.UpsertQuestion(&store.Question{
			ID: "q" + string(rune('a'+i)), CategorySlug: "science",
			Prompt: "?", Choices: []string{"x", "y"}, CorrectAnswer: "x", Active: true,
		}); err != nil {
			t.Fatal(err)
		}
	}

	rec := doRequest(t, h, http.MethodPost, "/v1/hotseat", HotseatCreateRequest{
		CategorySlug: "science",
		Players:      []string{"A", "B"},
		Settings:     store.Settings{QuestionCount: 1},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var session store.HotseatSession
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatal(err)
	}

	rec = doRequest(t, h, http.MethodPost, "/v1/hotseat/"+session.ID+"/answers", HotseatAnswerRequest{SelectedAnswer: "x"})
	if rec.Code != http.StatusOK {
		t.Fatalf("answer status = %d", rec.Code)
	}
	rec = doRequest(t, h, http.MethodPost, "/v1/hotseat/"+session.ID+"/answers", HotseatAnswerRequest{SelectedAnswer: "y"})
	if rec.Code != http.StatusOK {
		t.Fatalf("answer status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatal(err)
	}
	if session.State != "completed" {
		t.Errorf("state = %s, want completed", session.State)
	}
}

func TestLifelineOverAPI(t *testing.T) {
	room := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/sessions/join":
			_ = json.NewEncoder(w).Encode(remote.JoinSessionResult{
				SessionID: "s1", PlayerID: "p1", Mode: remote.ModeDuo, State: remote.StateInProgress,
			})
		case "/api/sessions/s1/lifeline":
			var req remote.UseLifelineRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.PlayerID != "p1" {
				t.Errorf("lifeline player = %q, want p1", req.PlayerID)
			}
			if req.Kind == remote.LifelineHelp {
				w.WriteHeader(http.StatusConflict)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "No helps left"})
				return
			}
			_ = json.NewEncoder(w).Encode(remote.UseLifelineResult{
				PlayerID: "p1", JokersLeft: 0, HelpsLeft: 1,
			})
		default:
			_ = json.NewEncoder(w).Encode(remote.ChatPage{})
		}
	})
	_, h := testDeps(t, room)

	doRequest(t, h, http.MethodPost, "/v1/sessions/join", SessionJoinRequest{
		AccessCode: "AB12CD", DisplayName: "Nora",
	})

	rec := doRequest(t, h, http.MethodPost, "/v1/sessions/lifeline", SessionLifelineRequest{Kind: "joker"})
	if rec.Code != http.StatusOK {
		t.Fatalf("lifeline status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res remote.UseLifelineResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.JokersLeft != 0 || res.HelpsLeft != 1 {
		t.Errorf("result = %+v, want 0 jokers / 1 help left", res)
	}

	// An exhausted lifeline keeps the room service's status and message.
	rec = doRequest(t, h, http.MethodPost, "/v1/sessions/lifeline", SessionLifelineRequest{Kind: "help"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("exhausted lifeline status = %d, want 409", rec.Code)
	}
}

func TestSnapshotWithoutSession(t *testing.T) {
	_, h := testDeps(t, http.NotFoundHandler())
	rec := doRequest(t, h, http.MethodGet, "/v1/sessions/active", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
