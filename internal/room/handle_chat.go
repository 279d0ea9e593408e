package room

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/amarouch/ilmq/internal/remote"
	"github.com/go-chi/chi/v5"
)

func handleChatList(st *Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "id")
		after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		msgs, err := st.ChatAfter(r.Context(), sessionID, after, limit)
		if err != nil {
			logger.Error("chat list failed", "error", err, "session_id", sessionID)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, remote.ChatPage{Messages: msgs})
	}
}

func handleChatPost(st *Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "id")
		var req remote.PostChatRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Body = strings.TrimSpace(req.Body)
		req.SenderName = strings.TrimSpace(req.SenderName)
		if req.Body == "" || req.SenderName == "" {
			writeError(w, http.StatusBadRequest, "sender_name and body are required")
			return
		}

		msg, err := st.AppendChat(r.Context(), sessionID, req.SenderName, req.Body)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if err != nil {
			logger.Error("chat post failed", "error", err, "session_id", sessionID)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}
