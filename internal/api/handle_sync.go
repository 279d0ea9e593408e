package api

import "net/http"

func handleSyncNow(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := d.Syncer.Flush(r.Context())
		writeJSON(w, http.StatusOK, res)
	}
}
