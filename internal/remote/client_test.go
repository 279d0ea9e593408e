package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amarouch/ilmq/internal/store"
)

func TestJoinSessionByCodeNormalizesInput(t *testing.T) {
	var got JoinSessionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sessions/join" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(JoinSessionResult{
			SessionID: "s1",
			PlayerID:  "p1",
			Mode:      ModeDuo,
			State:     StateLobby,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "dev-1")
	res, err := c.JoinSessionByCode(context.Background(), "  ab12cd ", "  Nora ")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if got.AccessCode != "AB12CD" {
		t.Errorf("access code = %q, want AB12CD", got.AccessCode)
	}
	if got.DisplayName != "Nora" {
		t.Errorf("display name = %q, want Nora", got.DisplayName)
	}
	if res.SessionID != "s1" || res.State != StateLobby {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestJoinSessionByCodeLocalValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request reached server despite invalid input")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "dev-1")
	cases := []struct {
		name        string
		code        string
		displayName string
	}{
		{"short code", "ab", "Nora"},
		{"blank code", "   ", "Nora"},
		{"short name", "AB12CD", "N"},
		{"blank name", "AB12CD", "  "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := c.JoinSessionByCode(context.Background(), tc.code, tc.displayName); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestJoinSessionByCodeErrorTaxonomy(t *testing.T) {
	cases := []struct {
		status  int
		message string
		reason  JoinFailReason
	}{
		{http.StatusNotFound, "no room with that code", JoinRoomNotFound},
		{http.StatusConflict, "room is full", JoinRoomFull},
		{http.StatusGone, "that game already finished", JoinRoomCompleted},
	}
	for _, tc := range cases {
		t.Run(string(tc.reason), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": tc.message})
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "dev-1")
			_, err := c.JoinSessionByCode(context.Background(), "AB12CD", "Nora")
			var joinErr *JoinError
			if !errors.As(err, &joinErr) {
				t.Fatalf("expected *JoinError, got %T: %v", err, err)
			}
			if joinErr.Reason != tc.reason {
				t.Errorf("reason = %s, want %s", joinErr.Reason, tc.reason)
			}
			if joinErr.Error() != tc.message {
				t.Errorf("message = %q, want server message %q", joinErr.Error(), tc.message)
			}
		})
	}
}

func TestJoinSessionByCodeUnexpectedStatusIsNotJoinError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "dev-1")
	_, err := c.JoinSessionByCode(context.Background(), "AB12CD", "Nora")
	var joinErr *JoinError
	if errors.As(err, &joinErr) {
		t.Fatalf("500 should not map to JoinError, got %v", joinErr)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected *APIError with status 500, got %T: %v", err, err)
	}
}

func TestCreateSessionRejectsHotseat(t *testing.T) {
	c := NewClient("http://unused.invalid", "dev-1")
	_, err := c.CreateSession(context.Background(), CreateSessionRequest{
		Mode:            ModeHotseat,
		CategorySlug:    "history",
		HostDisplayName: "Nora",
	})
	if err == nil {
		t.Fatal("expected error for hotseat create")
	}
}

func TestCreateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req CreateSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Mode != ModeGroup {
			t.Errorf("mode = %q, want group", req.Mode)
		}
		_ = json.NewEncoder(w).Encode(CreateSessionResult{
			SessionID:  "s1",
			AccessCode: "QZ7K2M",
			PlayerID:   "p1",
			State:      StateLobby,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "dev-1")
	res, err := c.CreateSession(context.Background(), CreateSessionRequest{
		Mode:            ModeGroup,
		CategorySlug:    "history",
		HostDisplayName: "Nora",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.AccessCode != "QZ7K2M" || res.State != StateLobby {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestUploadAttempt(t *testing.T) {
	var got AttemptUpload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/attempts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "dev-1")
	err := c.UploadAttempt(context.Background(), &store.Attempt{
		LocalID:        "local-abc",
		Mode:           ModeSolo,
		CategorySlug:   "science",
		Players:        []store.PlayerResult{{DisplayName: "Nora", Score: 4}},
		TotalQuestions: 5,
		DurationSec:    92,
		PlayedAt:       1700000000,
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if got.DeviceID != "dev-1" {
		t.Errorf("device id = %q, want dev-1", got.DeviceID)
	}
	if got.LocalSessionID != "local-abc" {
		t.Errorf("local session id = %q, want local-abc", got.LocalSessionID)
	}
	if got.Source != "offline_sync" {
		t.Errorf("source = %q, want offline_sync", got.Source)
	}
}

func TestListChatMessagesCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("after") != "42" {
			t.Errorf("after = %q, want 42", r.URL.Query().Get("after"))
		}
		_ = json.NewEncoder(w).Encode(ChatPage{Messages: []ChatMessage{
			{ID: 43, SenderName: "Nora", Body: "gg"},
		}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "dev-1")
	msgs, err := c.ListChatMessages(context.Background(), "s1", 42, 0)
	if err != nil {
		t.Fatalf("list chat: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != 43 {
		t.Errorf("unexpected messages %+v", msgs)
	}
}
