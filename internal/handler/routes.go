package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/runclub/internal/auth"
)

// NewRouter builds the chi router with the global middleware stack.
func NewRouter(h *RunHandler, authn auth.Authenticator, adminToken string) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger)                  // structured access log
	r.Use(CORS)

	optionalUser := Authenticate(authn, false)
	requireUser := Authenticate(authn, true)
	requireAdmin := RequireAdmin(adminToken)

	r.Get("/health", HealthCheck)
	r.Post("/accounts", h.CreateAccount)

	r.Route("/runs", func(r chi.Router) {
		r.With(optionalUser).Get("/", h.ListRuns)
		r.With(optionalUser).Get("/{id}", h.GetRun)

		r.With(requireUser).Post("/{id}/signup", h.Register)
		r.With(requireUser).Delete("/{id}/signup", h.Cancel)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/", h.CreateRun)
			r.Put("/{id}", h.UpdateRun)
			r.Delete("/{id}", h.DeleteRun)
			r.Get("/{id}/signups", h.ListSignUps)
			r.Put("/{id}/signups/{userID}/attendance", h.MarkAttendance)
		})
	})

	return r
}
