package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"lingo-quiz-service/internal/domain"
)

// NewRouter mounts the JSON API and the progress websocket on a chi router.
func NewRouter(api *API, ws *WSHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", api.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", api.health)
		r.Get("/challenge", api.randomChallenge(domain.ChallengeWord))
		r.Get("/verb-challenge", api.randomChallenge(domain.ChallengeVerb))
		r.Get("/idiom-challenge", api.randomChallenge(domain.ChallengeIdiom))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", api.register)
			r.Post("/login", api.login)
			r.Post("/logout", api.logout)
			r.Get("/check-auth", api.checkAuth)
		})

		r.Group(func(r chi.Router) {
			r.Use(api.RequireAuth)
			r.Post("/challenge/submit", api.submit)
			r.Get("/challenge/progress", api.getProgress)
			r.Get("/challenge/history", api.history)
			r.Get("/challenge/weak-areas", api.weakAreas)
		})
	})

	if ws != nil {
		r.With(api.RequireAuth).Get("/ws/progress", ws.ServeWS)
	}
	return r
}
