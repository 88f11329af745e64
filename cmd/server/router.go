package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/cardlog/cardlog/internal/api"
	apimiddleware "github.com/cardlog/cardlog/internal/api/middleware"
)

// setupRouter configures the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.TraceMiddleware)

	authHandler := api.NewAuthHandler(
		app.userStore,
		app.jwtService,
		app.passwordVerifier,
		app.logger,
	)
	authMiddleware := apimiddleware.NewAuthMiddleware(app.jwtService)
	flashcardHandler := api.NewFlashcardHandler(app.flashcardService, app.logger)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		// Flashcard endpoints (authenticated)
		r.Route("/flashcards", func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/", flashcardHandler.List)
			r.Post("/", flashcardHandler.Create)
			r.Get("/statistics", flashcardHandler.Statistics)
			r.Post("/reset", flashcardHandler.ResetProgress)
			r.Get("/{id}", flashcardHandler.Show)
			r.Patch("/{id}", flashcardHandler.Update)
			r.Delete("/{id}", flashcardHandler.Delete)
			r.Post("/{id}/restore", flashcardHandler.Restore)
			r.Get("/{id}/history", flashcardHandler.History)
			r.Post("/{id}/history", flashcardHandler.Revert)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
