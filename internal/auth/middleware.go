package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/recipe-room/internal/model"
)

// CookieName is the HttpOnly cookie carrying the access token.
const CookieName = "token"

// errNoCredential distinguishes "nothing presented" from "presented but
// invalid". OptionalAuth treats only the former as anonymous.
var errNoCredential = errors.New("auth: no credential")

// contextKey is unexported so no other package can collide with or forge
// the identity stored in a request context.
type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth rejects requests without a valid token with 401 and stores
// the user id in the context for the rest.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				unauthorized(w, "valid authentication required")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// OptionalAuth lets anonymous requests through but never silently drops a
// bad credential: a request that presents a token which fails validation is
// rejected with 401, the same as on a protected route. Only a request that
// presents no credential at all proceeds as anonymous.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			switch {
			case errors.Is(err, errNoCredential):
				next.ServeHTTP(w, r)
			case err != nil:
				unauthorized(w, "invalid or expired token")
			default:
				next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
			}
		})
	}
}

// WithUserID returns a context carrying userID. Exported for handler tests.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns ("", false) for anonymous requests.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// ViewerFromContext is the read-path form of UserIDFromContext.
func ViewerFromContext(ctx context.Context) model.Viewer {
	if id, ok := UserIDFromContext(ctx); ok {
		return model.AuthenticatedViewer(id)
	}
	return model.Anonymous()
}

// extractUserID reads the token from the Authorization header, falling back
// to the cookie. The header wins when both are present.
func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	raw := bearerToken(r)
	if raw == "" {
		if c, err := r.Cookie(CookieName); err == nil {
			raw = c.Value
		}
	}
	if raw == "" {
		return "", errNoCredential
	}
	return tokens.Validate(raw)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		// A malformed header is still a presented credential.
		return h
	}
	return strings.TrimSpace(token)
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}
