package room

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/amarouch/ilmq/internal/remote"
	"github.com/amarouch/ilmq/internal/store"
	"github.com/go-chi/chi/v5"
)

func handleSessionCreate(st *Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req remote.CreateSessionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if _, ok := capacity[req.Mode]; !ok {
			writeError(w, http.StatusBadRequest, "mode must be solo, duo or group")
			return
		}
		req.HostDisplayName = strings.TrimSpace(req.HostDisplayName)
		if len(req.HostDisplayName) < 2 {
			writeError(w, http.StatusBadRequest, "host display name must be at least 2 characters")
			return
		}
		if req.CategorySlug == "" {
			writeError(w, http.StatusBadRequest, "category_slug is required")
			return
		}
		settings := store.Settings{QuestionCount: 5, ResponseTime: 30, Jokers: 1, Helps: 1}
		if req.Settings != nil {
			settings = *req.Settings
			if settings.QuestionCount <= 0 {
				settings.QuestionCount = 5
			}
			if settings.ResponseTime <= 0 {
				settings.ResponseTime = 30
			}
		}

		res, err := st.CreateSession(r.Context(), req.Mode, req.CategorySlug, settings, req.HostDisplayName)
		if err != nil {
			logger.Error("session create failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		logger.Info("session created",
			"session_id", res.SessionID,
			"mode", req.Mode,
			"access_code", res.AccessCode)
		writeJSON(w, http.StatusOK, res)
	}
}

func handleSessionJoin(st *Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req remote.JoinSessionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.AccessCode = strings.ToUpper(strings.TrimSpace(req.AccessCode))
		req.DisplayName = strings.TrimSpace(req.DisplayName)
		if req.AccessCode == "" {
			writeError(w, http.StatusBadRequest, "access_code is required")
			return
		}
		if len(req.DisplayName) < 2 {
			writeError(w, http.StatusBadRequest, "display name must be at least 2 characters")
			return
		}

		sess, err := st.SessionByCode(r.Context(), req.AccessCode)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "No game found with that code. Check it and try again.")
			return
		}
		if err != nil {
			logger.Error("session lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		player, err := st.AddPlayer(r.Context(), sess.ID, req.DisplayName)
		switch {
		case errors.Is(err, ErrRoomCompleted):
			writeError(w, http.StatusGone, "That game has already finished.")
			return
		case errors.Is(err, ErrRoomFull):
			writeError(w, http.StatusConflict, "That room is full.")
			return
		case err != nil:
			logger.Error("join failed", "error", err, "session_id", sess.ID)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		logger.Info("player joined",
			"session_id", sess.ID,
			"player_id", player.ID,
			"seat", player.SeatOrder)
		writeJSON(w, http.StatusOK, remote.JoinSessionResult{
			SessionID: sess.ID,
			PlayerID:  player.ID,
			Mode:      sess.Mode,
			State:     sess.State,
		})
	}
}

func handleSessionSnapshot(st *Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "id")
		sess, err := st.SessionByID(r.Context(), sessionID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if err != nil {
			logger.Error("snapshot failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		players, err := st.Players(r.Context(), sessionID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		answers, err := st.Answers(r.Context(), sessionID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, remote.Snapshot{
			Session: *sess,
			Players: players,
			Answers: answers,
		})
	}
}

func handleSessionStart(st *Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "id")
		err := st.StartSession(r.Context(), sessionID)
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "session not found")
			return
		case errors.Is(err, ErrBadState):
			writeError(w, http.StatusConflict, "session is not in lobby")
			return
		case err != nil:
			logger.Error("start failed", "error", err, "session_id", sessionID)
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		logger.Info("session started", "session_id", sessionID)
		writeJSON(w, http.StatusOK, remote.SessionStateResult{
			State:                remote.StateInProgress,
			CurrentQuestionIndex: 0,
		})
	}
}

func handleSessionAnswer(st *Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "id")
		var req remote.SubmitAnswerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.PlayerID == "" {
			writeError(w, http.StatusBadRequest, "player_id is required")
			return
		}

		isCorrect, already, err := st.RecordAnswer(r.Context(), sessionID, req.PlayerID, req.QuestionIndex, req.SelectedAnswer, req.ResponseMs)
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "session not found")
			return
		case errors.Is(err, ErrBadState):
			writeError(w, http.StatusConflict, err.Error())
			return
		case err != nil:
			logger.Error("answer failed", "error", err, "session_id", sessionID)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		score, err := st.PlayerScore(r.Context(), req.PlayerID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		sess, err := st.SessionByID(r.Context(), sessionID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, remote.SubmitAnswerResult{
			PlayerID:             req.PlayerID,
			IsCorrect:            isCorrect,
			Score:                score,
			State:                sess.State,
			CurrentQuestionIndex: sess.CurrentQuestionIndex,
			AlreadyAnswered:      already,
		})
	}
}

func handleSessionLifeline(st *Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "id")
		var req remote.UseLifelineRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.PlayerID == "" {
			writeError(w, http.StatusBadRequest, "player_id is required")
			return
		}
		if req.Kind != remote.LifelineJoker && req.Kind != remote.LifelineHelp {
			writeError(w, http.StatusBadRequest, "kind must be joker or help")
			return
		}

		res, err := st.ConsumeLifeline(r.Context(), sessionID, req.PlayerID, req.Kind)
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "session or player not found")
			return
		case errors.Is(err, ErrNoLifeline):
			if req.Kind == remote.LifelineJoker {
				writeError(w, http.StatusConflict, "No jokers left")
			} else {
				writeError(w, http.StatusConflict, "No helps left")
			}
			return
		case errors.Is(err, ErrBadState):
			writeError(w, http.StatusConflict, "session is not in progress")
			return
		case err != nil:
			logger.Error("lifeline failed", "error", err, "session_id", sessionID)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		logger.Info("lifeline used",
			"session_id", sessionID,
			"player_id", req.PlayerID,
			"kind", req.Kind)
		writeJSON(w, http.StatusOK, res)
	}
}

func handleSessionAdvance(st *Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "id")
		state, index, err := st.AdvanceQuestion(r.Context(), sessionID)
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "session not found")
			return
		case errors.Is(err, ErrBadState):
			writeError(w, http.StatusConflict, "session is not in progress")
			return
		case err != nil:
			logger.Error("advance failed", "error", err, "session_id", sessionID)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, remote.SessionStateResult{
			State:                state,
			CurrentQuestionIndex: index,
		})
	}
}

func handleSessionFinish(st *Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "id")
		err := st.FinishSession(r.Context(), sessionID)
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "session not found")
			return
		case errors.Is(err, ErrBadState):
			writeError(w, http.StatusConflict, "session is not in progress")
			return
		case err != nil:
			logger.Error("finish failed", "error", err, "session_id", sessionID)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		sess, err := st.SessionByID(r.Context(), sessionID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		logger.Info("session finished", "session_id", sessionID)
		writeJSON(w, http.StatusOK, remote.SessionStateResult{
			State:                sess.State,
			CurrentQuestionIndex: sess.CurrentQuestionIndex,
		})
	}
}
