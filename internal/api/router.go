package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"vitalog.app/health-tracker/internal/auth"
)

// NewRouter wires every route. maxConcurrent caps in-flight requests; zero
// disables the cap.
func NewRouter(apiHandler *APIHandler, jwtSecret string, maxConcurrent int) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling
	if maxConcurrent > 0 {
		r.Use(middleware.Throttle(maxConcurrent))
	}

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/health", apiHandler.HealthHandler)
		r.Post("/auth/register", apiHandler.handle(apiHandler.RegisterHandler))
		r.Post("/auth/login", apiHandler.handle(apiHandler.LoginHandler))

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(auth.JWTMiddleware(jwtSecret, apiHandler.services.Users.Exists))

			r.Get("/auth/me", apiHandler.handle(apiHandler.MeHandler))
			r.Put("/users/me/settings", apiHandler.handle(apiHandler.UpdateSettingsHandler))

			r.Route("/moods", func(r chi.Router) {
				r.Post("/", apiHandler.handle(apiHandler.CreateMoodHandler))
				r.Get("/{userId}", apiHandler.handle(apiHandler.ListMoodsHandler))
				r.Get("/{userId}/trends", apiHandler.handle(apiHandler.MoodTrendHandler))
				r.Get("/{userId}/{id}", apiHandler.handle(apiHandler.GetMoodHandler))
				r.Delete("/{userId}/{id}", apiHandler.handle(apiHandler.DeleteMoodHandler))
			})

			r.Route("/symptoms", func(r chi.Router) {
				r.Post("/", apiHandler.handle(apiHandler.CreateSymptomHandler))
				r.Post("/diagnose", apiHandler.handle(apiHandler.DiagnoseHandler))
				r.Get("/{userId}", apiHandler.handle(apiHandler.ListSymptomsHandler))
				r.Get("/{userId}/{id}", apiHandler.handle(apiHandler.GetSymptomHandler))
				r.Delete("/{userId}/{id}", apiHandler.handle(apiHandler.DeleteSymptomHandler))
			})

			r.Route("/chat", func(r chi.Router) {
				r.Post("/log", apiHandler.handle(apiHandler.LogChatHandler))
				r.Get("/sessions/{sessionId}", apiHandler.handle(apiHandler.GetChatSessionHandler))
				r.Post("/sessions/{sessionId}/end", apiHandler.handle(apiHandler.EndChatSessionHandler))
				r.Get("/users/{userId}/sessions", apiHandler.handle(apiHandler.ListChatSessionsHandler))
			})

			r.Route("/workouts", func(r chi.Router) { mountRecords(apiHandler, r, apiHandler.services.Workouts) })
			r.Route("/nutrition", func(r chi.Router) { mountRecords(apiHandler, r, apiHandler.services.Meals) })
			r.Route("/health-metrics", func(r chi.Router) { mountRecords(apiHandler, r, apiHandler.services.Metrics) })
			r.Route("/routines", func(r chi.Router) { mountRecords(apiHandler, r, apiHandler.services.Routines) })
		})
	})

	return r
}
