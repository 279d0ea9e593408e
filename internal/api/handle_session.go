package api

import (
	"errors"
	"net/http"

	"github.com/amarouch/ilmq/internal/remote"
	"github.com/amarouch/ilmq/internal/status"
	"github.com/amarouch/ilmq/internal/store"
	"go.uber.org/zap"
)

// SessionCreateRequest opens a new remote room hosted by this device.
type SessionCreateRequest struct {
	Mode            string          `json:"mode"`
	CategorySlug    string          `json:"category_slug"`
	Settings        *store.Settings `json:"settings,omitempty"`
	HostDisplayName string          `json:"host_display_name"`
}

// SessionJoinRequest joins a remote room by access code.
type SessionJoinRequest struct {
	AccessCode  string `json:"access_code"`
	DisplayName string `json:"display_name"`
}

// JoinRefusal is returned alongside a join failure status so the caller can
// show the room service's message as-is.
type JoinRefusal struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func handleSessionCreate(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SessionCreateRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := d.canEnterSession(); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		res, err := d.Remote.CreateSession(r.Context(), remote.CreateSessionRequest{
			Mode:            req.Mode,
			CategorySlug:    req.CategorySlug,
			Settings:        req.Settings,
			HostDisplayName: req.HostDisplayName,
		})
		if err != nil {
			d.Logger.Warn("session create failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		if err := d.enterSession(r.Context(), res.SessionID, res.PlayerID, req.Mode, res.State); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		d.Bus.Notify("Room " + res.AccessCode + " created")
		writeJSON(w, http.StatusOK, res)
	}
}

func handleSessionJoin(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SessionJoinRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := d.canEnterSession(); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		res, err := d.Remote.JoinSessionByCode(r.Context(), req.AccessCode, req.DisplayName)
		if err != nil {
			var joinErr *remote.JoinError
			if errors.As(err, &joinErr) {
				d.Bus.Notify(joinErr.Message)
				writeJSON(w, joinStatus(joinErr.Reason), JoinRefusal{
					Reason:  string(joinErr.Reason),
					Message: joinErr.Message,
				})
				return
			}
			d.Logger.Warn("session join failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		if err := d.enterSession(r.Context(), res.SessionID, res.PlayerID, res.Mode, res.State); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleSessionLeave(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.leaveSession()
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleSessionSnapshot(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, _, _ := d.active.get()
		if sessionID == "" {
			writeError(w, http.StatusNotFound, "not in a session")
			return
		}
		snap, err := d.Remote.Snapshot(r.Context(), sessionID)
		if err != nil {
			d.Logger.Warn("snapshot failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func handleSessionStart(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, _, _ := d.active.get()
		if sessionID == "" {
			writeError(w, http.StatusNotFound, "not in a session")
			return
		}
		res, err := d.Remote.StartSession(r.Context(), sessionID)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		routeTo(d, res.State)
		writeJSON(w, http.StatusOK, res)
	}
}

// SessionAnswerRequest submits the local player's answer in the active room.
type SessionAnswerRequest struct {
	QuestionIndex  int    `json:"question_index"`
	SelectedAnswer string `json:"selected_answer"`
	ResponseMs     int64  `json:"response_ms"`
}

func handleSessionAnswer(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, playerID, _ := d.active.get()
		if sessionID == "" {
			writeError(w, http.StatusNotFound, "not in a session")
			return
		}
		var req SessionAnswerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		res, err := d.Remote.SubmitAnswer(r.Context(), sessionID, remote.SubmitAnswerRequest{
			PlayerID:       playerID,
			QuestionIndex:  req.QuestionIndex,
			SelectedAnswer: req.SelectedAnswer,
			ResponseMs:     req.ResponseMs,
		})
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		routeTo(d, res.State)
		writeJSON(w, http.StatusOK, res)
	}
}

// SessionLifelineRequest spends a joker or help in the active room.
type SessionLifelineRequest struct {
	Kind string `json:"kind"`
}

func handleSessionLifeline(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, playerID, _ := d.active.get()
		if sessionID == "" {
			writeError(w, http.StatusNotFound, "not in a session")
			return
		}
		var req SessionLifelineRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		res, err := d.Remote.UseLifeline(r.Context(), sessionID, remote.UseLifelineRequest{
			PlayerID: playerID,
			Kind:     req.Kind,
		})
		if err != nil {
			// Refusals like "No jokers left" keep their status and message.
			var apiErr *remote.APIError
			if errors.As(err, &apiErr) {
				d.Bus.Notify(apiErr.Message)
				writeError(w, apiErr.Status, apiErr.Message)
				return
			}
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleSessionAdvance(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, _, _ := d.active.get()
		if sessionID == "" {
			writeError(w, http.StatusNotFound, "not in a session")
			return
		}
		res, err := d.Remote.AdvanceQuestion(r.Context(), sessionID)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		routeTo(d, res.State)
		writeJSON(w, http.StatusOK, res)
	}
}

func handleSessionFinish(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, _, _ := d.active.get()
		if sessionID == "" {
			writeError(w, http.StatusNotFound, "not in a session")
			return
		}
		res, err := d.Remote.FinishSession(r.Context(), sessionID)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		routeTo(d, res.State)
		writeJSON(w, http.StatusOK, res)
	}
}

// routeTo follows a server-reported session state. A redundant transition
// (state unchanged) is not an error worth surfacing to the caller.
func routeTo(d *Deps, sessionState string) {
	want := status.RouteFor(sessionState)
	if d.Machine.Current() == want {
		return
	}
	if err := d.Machine.Transition(want); err != nil {
		d.Logger.Warn("route change rejected",
			zap.Error(err),
			zap.String("session_state", sessionState))
	}
}

func joinStatus(reason remote.JoinFailReason) int {
	switch reason {
	case remote.JoinRoomFull:
		return http.StatusConflict
	case remote.JoinRoomCompleted:
		return http.StatusGone
	default:
		return http.StatusNotFound
	}
}
