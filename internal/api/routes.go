package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewHandler builds the daemon control API served over the profile's unix
// socket.
func NewHandler(d *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(d.Logger))

	r.Get("/v1/status", handleStatus(d))
	r.Post("/v1/sync", handleSyncNow(d))
	r.Get("/v1/queue", handleQueueList(d))
	r.Post("/v1/queue", handleQueueAdd(d))
	r.Delete("/v1/queue/{localID}", handleQueueRemove(d))

	r.Post("/v1/sessions", handleSessionCreate(d))
	r.Post("/v1/sessions/join", handleSessionJoin(d))
	r.Post("/v1/sessions/leave", handleSessionLeave(d))
	r.Get("/v1/sessions/active", handleSessionSnapshot(d))
	r.Post("/v1/sessions/start", handleSessionStart(d))
	r.Post("/v1/sessions/answers", handleSessionAnswer(d))
	r.Post("/v1/sessions/lifeline", handleSessionLifeline(d))
	r.Post("/v1/sessions/advance", handleSessionAdvance(d))
	r.Post("/v1/sessions/finish", handleSessionFinish(d))

	r.Get("/v1/hotseat", handleHotseatList(d))
	r.Post("/v1/hotseat", handleHotseatCreate(d))
	r.Get("/v1/hotseat/{id}", handleHotseatGet(d))
	r.Post("/v1/hotseat/{id}/answers", handleHotseatAnswer(d))
	r.Post("/v1/hotseat/{id}/lifeline", handleHotseatLifeline(d))
	r.Post("/v1/hotseat/{id}/abort", handleHotseatAbort(d))

	r.Get("/v1/chat", handleChatTail(d))
	r.Post("/v1/chat", handleChatPost(d))

	r.Get("/v1/themes", handleThemes(d))
	r.Post("/v1/cache/questions", handleCacheQuestions(d))

	return r
}

func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Debug("control request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Duration("duration", time.Since(start)))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
