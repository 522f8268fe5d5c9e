/**
 * @description
 * This file sets up the HTTP router for the topup-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies the
 * authentication middleware for each route group.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS handling for the mobile clients.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Routes creates and returns the router for the topup service.
func Routes(h *TopupHandlers, jwtSecret, internalAPIKey string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Internal-API-Key"},
		MaxAge:         300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Public authentication endpoints.
	r.Post("/auth/register", h.RegisterHandler)
	r.Post("/auth/login", h.LoginHandler)

	// Routes requiring an authenticated session.
	r.Group(func(r chi.Router) {
		r.Use(SessionAuthMiddleware(jwtSecret))

		r.Post("/auth/unlock", h.UnlockHandler)
		r.Post("/transfers", h.SubmitTransferHandler)
	})

	// Admin surface, gated by the internal API key.
	r.Route("/admin", func(r chi.Router) {
		r.Use(InternalKeyMiddleware(internalAPIKey))

		r.Get("/requests/pending", h.ListPendingHandler)
		r.Post("/requests/validate", h.ValidateHandler)
		r.Post("/device", h.RegisterAdminDeviceHandler)
	})

	return r
}
