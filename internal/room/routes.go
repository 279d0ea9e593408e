package room

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
)

func addRoutes(r chi.Router, st *Store, logger *slog.Logger) {
	r.Get("/healthz", handleHealth(st, logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", handleSessionCreate(st, logger))
		r.Post("/sessions/join", handleSessionJoin(st, logger))
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", handleSessionSnapshot(st, logger))
			r.Post("/start", handleSessionStart(st, logger))
			r.Post("/answers", handleSessionAnswer(st, logger))
			r.Post("/lifeline", handleSessionLifeline(st, logger))
			r.Post("/advance", handleSessionAdvance(st, logger))
			r.Post("/finish", handleSessionFinish(st, logger))
			r.Get("/chat", handleChatList(st, logger))
			r.Post("/chat", handleChatPost(st, logger))
		})

		r.Post("/attempts", handleAttemptUpload(st, logger))
		r.Get("/themes", handleThemes(st, logger))
		r.Get("/questions", handleQuestions(st, logger))
	})
}
