package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey struct{}

// HeaderUserID is trusted only when no token service is configured.
const HeaderUserID = "X-User-ID"

// WithUserID returns ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserID returns the authenticated user id, or "".
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// Authenticator resolves the user of each request.
type Authenticator struct {
	tokens *TokenService
}

// NewAuthenticator accepts bearer tokens when tokens is non-nil and falls
// back to the X-User-ID header otherwise.
func NewAuthenticator(tokens *TokenService) *Authenticator {
	return &Authenticator{tokens: tokens}
}

func (a *Authenticator) Authenticate(r *http.Request) (string, error) {
	if a.tokens == nil {
		id := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if id == "" {
			return "", ErrInvalidToken
		}
		return id, nil
	}
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", ErrInvalidToken
	}
	return a.tokens.ParseToken(strings.TrimSpace(token))
}

// Middleware rejects unauthenticated requests with 401 and stores the user
// id in the request context otherwise.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.Authenticate(r)
		if err != nil {
			slog.WarnContext(r.Context(), "Unauthenticated request", "path", r.URL.Path, "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}
