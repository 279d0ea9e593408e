package room

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/amarouch/ilmq/internal/remote"
)

func handleThemes(st *Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, _ := strconv.Atoi(r.URL.Query().Get("count"))
		themes, err := st.Themes(r.Context(), count)
		if err != nil {
			logger.Error("theme list failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, remote.ThemeList{Themes: themes})
	}
}

func handleQuestions(st *Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := r.URL.Query().Get("category")
		if category == "" {
			writeError(w, http.StatusBadRequest, "category is required")
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		questions, err := st.QuestionsByCategory(r.Context(), category, limit)
		if err != nil {
			logger.Error("question list failed", "error", err, "category", category)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, remote.QuestionList{Questions: questions})
	}
}
