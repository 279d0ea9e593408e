package room

import (
	"log/slog"
	"net/http"

	"github.com/amarouch/ilmq/internal/remote"
)

func handleAttemptUpload(st *Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req remote.AttemptUpload
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.DeviceID == "" || req.LocalSessionID == "" {
			writeError(w, http.StatusBadRequest, "device_id and local_session_id are required")
			return
		}
		if !remote.ValidMode(req.Mode) {
			writeError(w, http.StatusBadRequest, "invalid mode")
			return
		}
		if err := st.UpsertAttempt(r.Context(), req); err != nil {
			logger.Error("attempt upsert failed",
				"error", err,
				"device_id", req.DeviceID,
				"local_session_id", req.LocalSessionID)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		logger.Info("attempt stored",
			"device_id", req.DeviceID,
			"local_session_id", req.LocalSessionID,
			"mode", req.Mode)
		w.WriteHeader(http.StatusNoContent)
	}
}
