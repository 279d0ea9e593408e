package api

import (
	"net/http"
	"strconv"

	"github.com/amarouch/ilmq/internal/store"
	"github.com/go-chi/chi/v5"
)

// HotseatCreateRequest starts a local pass-the-phone game.
type HotseatCreateRequest struct {
	CategorySlug string         `json:"category_slug"`
	Players      []string       `json:"players"`
	Settings     store.Settings `json:"settings"`
}

// HotseatAnswerRequest answers for whichever seat currently holds the phone.
type HotseatAnswerRequest struct {
	SelectedAnswer string `json:"selected_answer"`
}

func handleHotseatCreate(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req HotseatCreateRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		session, err := d.Hotseat.Create(req.CategorySlug, req.Players, req.Settings)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, session)
	}
}

func handleHotseatGet(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := d.Hotseat.Load(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, session)
	}
}

func handleHotseatList(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		sessions, err := d.Hotseat.List(limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
	}
}

func handleHotseatAnswer(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req HotseatAnswerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		session, err := d.Hotseat.SubmitAnswer(chi.URLParam(r, "id"), req.SelectedAnswer)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, session)
	}
}

// HotseatLifelineRequest spends a joker or help for the current seat.
type HotseatLifelineRequest struct {
	Kind string `json:"kind"`
}

func handleHotseatLifeline(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req HotseatLifelineRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		session, err := d.Hotseat.UseLifeline(chi.URLParam(r, "id"), req.Kind)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, session)
	}
}

func handleHotseatAbort(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Hotseat.Abort(chi.URLParam(r, "id")); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
