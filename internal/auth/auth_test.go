package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenService_RoundTrip(t *testing.T) {
	s := NewTokenService("secret", time.Hour)
	tok, err := s.GenerateToken("alice")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	got, err := s.ParseToken(tok)
	if err != nil || got != "alice" {
		t.Fatalf("ParseToken = %q, %v", got, err)
	}
}

func TestTokenService_Rejects(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewTokenService("secret", time.Minute)
	s.now = func() time.Time { return now }

	tok, _ := s.GenerateToken("alice")
	other := NewTokenService("other-secret", time.Minute)
	other.now = s.now

	if _, err := other.ParseToken(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret: err = %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := s.ParseToken(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired: err = %v", err)
	}
	if _, err := s.ParseToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage: err = %v", err)
	}
	if _, err := s.GenerateToken("  "); err == nil {
		t.Fatalf("blank subject accepted")
	}
}

func TestAuthenticator_Middleware(t *testing.T) {
	tokens := NewTokenService("secret", time.Hour)
	valid, _ := tokens.GenerateToken("bob")

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { seen = UserID(r.Context()) })

	tests := []struct {
		name     string
		tokens   *TokenService
		header   string
		value    string
		wantCode int
		wantUser string
	}{
		{"bearer ok", tokens, "Authorization", "Bearer " + valid, http.StatusOK, "bob"},
		{"bearer missing", tokens, "", "", http.StatusUnauthorized, ""},
		{"header ignored with tokens", tokens, HeaderUserID, "mallory", http.StatusUnauthorized, ""},
		{"dev header", nil, HeaderUserID, " carol ", http.StatusOK, "carol"},
		{"dev header missing", nil, "", "", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			r := httptest.NewRequest(http.MethodGet, "/api/budget", nil)
			if tt.header != "" {
				r.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			NewAuthenticator(tt.tokens).Middleware(next).ServeHTTP(rec, r)
			if rec.Code != tt.wantCode || seen != tt.wantUser {
				t.Fatalf("code=%d user=%q, want %d %q", rec.Code, seen, tt.wantCode, tt.wantUser)
			}
		})
	}
}
