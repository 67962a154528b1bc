package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

type ctxKey int

const userKey ctxKey = 0

// UserFromContext returns the authenticated user stored by RequireAuth,
// or nil when the request was not authenticated.
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

// RequireAuth resolves the bearer token to a user and stores it in the
// request context. Every failure mode (missing header, bad signature,
// expired token, unknown subject) yields the same opaque 401.
func RequireAuth(users *services.UserService, jwtSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeErr(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			subject, err := auth.SubjectFromToken(token, jwtSecret)
			if err != nil {
				writeErr(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			user, err := users.GetByUsername(r.Context(), subject)
			if err != nil {
				writeErr(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
		})
	}
}

// requestLogger logs one line per request with the chi request id.
func requestLogger(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimid.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info(r.Context(), "request",
				"request_id", chimid.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start).String(),
			)
		})
	}
}
