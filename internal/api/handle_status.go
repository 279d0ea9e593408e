package api

import (
	"net/http"

	"go.uber.org/zap"
)

// StatusResponse is the daemon status summary shown by "ilmqctl status".
type StatusResponse struct {
	Profile         string `json:"profile"`
	Route           string `json:"route"`
	QueueSize       int    `json:"queue_size"`
	ActiveSessionID string `json:"active_session_id,omitempty"`
	ActivePlayerID  string `json:"active_player_id,omitempty"`
	ActiveMode      string `json:"active_mode,omitempty"`
}

func handleStatus(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		queued, err := d.DB.QueueSize()
		if err != nil {
			d.Logger.Error("failed to read queue size", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		sessionID, playerID, mode := d.active.get()
		writeJSON(w, http.StatusOK, StatusResponse{
			Profile:         d.Profile,
			Route:           string(d.Machine.Current()),
			QueueSize:       queued,
			ActiveSessionID: sessionID,
			ActivePlayerID:  playerID,
			ActiveMode:      mode,
		})
	}
}
