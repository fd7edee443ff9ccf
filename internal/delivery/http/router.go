package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/denportal/wagate/pkg/logger"
)

func NewRouter(h *HTTPHandler, l logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(l))

	r.Get("/healthz", h.HealthCheck)

	r.Route("/{tenantID}", func(r chi.Router) {
		r.Get("/start-session", h.StartSession)
		r.Get("/status", h.SessionStatus)
		r.Get("/destroy-session", h.DestroySession)
		r.Post("/send", h.SendMessage)
		r.Post("/send-attendance-messages", h.SendAttendanceMessages)
	})

	return r
}

func requestLogger(l logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			l.Infof(r.Context(), "%s %s -> %d (%v)", r.Method, r.URL.Path, ww.Status(), time.Since(start))
		})
	}
}
