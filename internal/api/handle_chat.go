package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/amarouch/ilmq/internal/remote"
	"go.uber.org/zap"
)

// ChatPostRequest appends a message to the active room's chat.
type ChatPostRequest struct {
	SenderName string `json:"sender_name"`
	Body       string `json:"body"`
}

func handleChatTail(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, _, _ := d.active.get()
		if sessionID == "" {
			writeError(w, http.StatusNotFound, "not in a session")
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		msgs, err := d.DB.ListChatMessages(sessionID, limit)
		if err != nil {
			d.Logger.Error("failed to read chat cache", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
	}
}

func handleChatPost(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, _, _ := d.active.get()
		if sessionID == "" {
			writeError(w, http.StatusNotFound, "not in a session")
			return
		}
		var req ChatPostRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Body = strings.TrimSpace(req.Body)
		if req.Body == "" {
			writeError(w, http.StatusBadRequest, "message body is required")
			return
		}
		msg, err := d.Remote.PostChatMessage(r.Context(), sessionID, remote.PostChatRequest{
			SenderName: req.SenderName,
			Body:       req.Body,
		})
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		// Next poll would pick it up anyway; refreshing now makes the
		// sender's own message appear immediately.
		d.Chat.Refresh(r.Context(), sessionID)
		writeJSON(w, http.StatusOK, msg)
	}
}
