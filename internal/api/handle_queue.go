package api

import (
	"net/http"
	"time"

	"github.com/amarouch/ilmq/internal/remote"
	"github.com/amarouch/ilmq/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QueueAddRequest enqueues a finished offline game for upload. LocalID is
// optional; one is assigned when absent.
type QueueAddRequest struct {
	LocalID        string               `json:"local_id"`
	Mode           string               `json:"mode"`
	CategorySlug   string               `json:"category_slug"`
	Players        []store.PlayerResult `json:"players"`
	TotalQuestions int                  `json:"total_questions"`
	DurationSec    int                  `json:"duration_sec"`
	PlayedAt       int64                `json:"played_at"`
}

func handleQueueList(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pending, err := d.DB.PendingAttempts()
		if err != nil {
			d.Logger.Error("failed to list queue", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"attempts": pending})
	}
}

func handleQueueAdd(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req QueueAddRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !remote.ValidMode(req.Mode) {
			writeError(w, http.StatusBadRequest, "invalid mode")
			return
		}
		if len(req.Players) == 0 {
			writeError(w, http.StatusBadRequest, "players are required")
			return
		}
		if req.LocalID == "" {
			req.LocalID = uuid.NewString()
		}
		if req.PlayedAt == 0 {
			req.PlayedAt = time.Now().UnixMilli()
		}
		err := d.DB.EnqueueAttempt(&store.Attempt{
			LocalID:        req.LocalID,
			Mode:           req.Mode,
			CategorySlug:   req.CategorySlug,
			Players:        req.Players,
			TotalQuestions: req.TotalQuestions,
			DurationSec:    req.DurationSec,
			PlayedAt:       req.PlayedAt,
		})
		if err != nil {
			d.Logger.Error("failed to enqueue attempt", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"local_id": req.LocalID})
	}
}

func handleQueueRemove(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		localID := chi.URLParam(r, "localID")
		if err := d.DB.RemoveAttempt(localID); err != nil {
			d.Logger.Error("failed to remove attempt", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
