package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/gophauth/internal/logging"
)

type RouterConfig struct {
	UsersHandler  *UsersHandler
	TokensHandler *TokensHandler
	HealthHandler *HealthHandler
	RequireAuth   func(http.Handler) http.Handler
	Logger        logging.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	r.Use(chimid.RealIP)
	r.Use(requestLogger(cfg.Logger))
	r.Use(chimid.Recoverer)

	r.Get("/health", cfg.HealthHandler.ServeHTTP)

	r.Post("/users", cfg.UsersHandler.Register)
	r.Post("/token", cfg.TokensHandler.Login)

	// everything below needs a valid access token
	r.Group(func(r chi.Router) {
		r.Use(cfg.RequireAuth)
		r.Get("/users/me", cfg.UsersHandler.Me)
		r.Put("/users", cfg.UsersHandler.Update)
		r.Delete("/users", cfg.UsersHandler.Delete)
		r.Post("/refresh_token", cfg.TokensHandler.IssueRefreshToken)
		r.Post("/refresh", cfg.TokensHandler.Refresh)
	})

	return r
}
