package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func NewRouter(apiHandler *APIHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// User routes (no identity header required, matching the
		// original contract)
		r.Get("/users", apiHandler.ListUsersHandler)
		r.Post("/users", apiHandler.RegisterHandler)
		r.Post("/users/login", apiHandler.LoginHandler)
		r.Get("/users/{id}", apiHandler.GetUserHandler)
		r.Patch("/edit-user/{id}", apiHandler.EditUserHandler)

		// Caller-identified routes
		r.Group(func(r chi.Router) {
			r.Use(IdentityMiddleware)

			r.Get("/conversations", apiHandler.ListConversationsHandler)
			r.Post("/conversations", apiHandler.CreateConversationHandler)
			r.Get("/conversations/{id}", apiHandler.GetConversationHandler)
			r.Delete("/conversations/{id}", apiHandler.DeleteConversationHandler)
			r.Get("/conversations/{id}/messages", apiHandler.ListMessagesHandler)
			r.Post("/conversations/{id}/messages", apiHandler.PostMessageHandler)
		})
	})

	return r
}
