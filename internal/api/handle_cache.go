package api

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// CacheQuestionsRequest pulls questions from the room service into the local
// cache so hot-seat games can run offline later.
type CacheQuestionsRequest struct {
	CategorySlug string `json:"category_slug"`
	Limit        int    `json:"limit"`
}

func handleThemes(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, _ := strconv.Atoi(r.URL.Query().Get("count"))
		themes, err := d.Remote.ListThemes(r.Context(), count)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"themes": themes})
	}
}

func handleCacheQuestions(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CacheQuestionsRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CategorySlug == "" {
			writeError(w, http.StatusBadRequest, "category_slug is required")
			return
		}
		questions, err := d.Remote.FetchQuestions(r.Context(), req.CategorySlug, req.Limit)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		stored := 0
		for i := range questions {
			if err := d.DB.UpsertQuestion(&questions[i]); err != nil {
				d.Logger.Error("failed to cache question",
					zap.Error(err),
					zap.String("question_id", questions[i].ID))
				continue
			}
			stored++
		}
		writeJSON(w, http.StatusOK, map[string]int{"fetched": len(questions), "cached": stored})
	}
}
