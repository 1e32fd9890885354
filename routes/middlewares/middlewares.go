package middlewares

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"

	"github.com/orifhon74/customizable-forms/config"
	"github.com/orifhon74/customizable-forms/model"
)

type contextKey string

const identityKey contextKey = "identity"

// Authenticated validates the bearer token and resolves the requester's
// Identity from its claims.
func Authenticated(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(oauth.Authorize(cfg.TokenSecret, nil), identity).Handler(next)
	}
}

func identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(oauth.ClaimsContext).(map[string]string)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		userID, err := strconv.Atoi(claims["user_id"])
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		id := model.Identity{UserID: userID}
		for _, role := range strings.Split(claims["roles"], ",") {
			if role == "admin" {
				id.Admin = true
				break
			}
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// Admin rejects requesters without the admin role. Must run inside
// Authenticated.
func Admin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := RequesterIdentity(r)
		if !ok || !id.Admin {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithIdentity returns a context carrying the requester identity, as
// consumed by RequesterIdentity.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// RequesterIdentity returns the identity resolved by Authenticated.
func RequesterIdentity(r *http.Request) (model.Identity, bool) {
	id, ok := r.Context().Value(identityKey).(model.Identity)
	return id, ok
}
