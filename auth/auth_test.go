package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"digitalindian/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestValidate(t *testing.T) {
	v := NewVerifier(config.AuthConfig{JWTSecret: "s3cret", AdminEmails: []string{"admin@digitalindian.co.in"}})

	good, err := v.GenerateToken("Admin@DigitalIndian.co.in", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	outsider, err := v.GenerateToken("intern@example.com", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	expired, err := v.GenerateToken("admin@digitalindian.co.in", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	otherKey, err := NewVerifier(config.AuthConfig{JWTSecret: "other"}).GenerateToken("admin@digitalindian.co.in", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Email: "admin@digitalindian.co.in"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"admin", good, nil},
		{"not on allow-list", outsider, ErrNotAdmin},
		{"expired", expired, ErrInvalidToken},
		{"wrong key", otherKey, ErrInvalidToken},
		{"alg none", noneAlg, ErrInvalidToken},
		{"garbage", "not-a-jwt", ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.token)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNoSecret(t *testing.T) {
	if _, err := NewVerifier(config.AuthConfig{}).Validate("x"); !errors.Is(err, ErrNoSecret) {
		t.Errorf("Validate() error = %v, want ErrNoSecret", err)
	}
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier(config.AuthConfig{JWTSecret: "s3cret", AdminEmails: []string{"admin@x.com"}})
	admin, _ := v.GenerateToken("admin@x.com", time.Hour)    //nolint:errcheck // test
	outsider, _ := v.GenerateToken("other@x.com", time.Hour) //nolint:errcheck // test

	var seen string
	h := v.Middleware(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = AdminEmail(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"basic auth", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"outsider", "Bearer " + outsider, http.StatusForbidden},
		{"admin", "Bearer " + admin, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/admin/posts", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusNoContent && seen != "admin@x.com" {
				t.Errorf("AdminEmail() = %q", seen)
			}
		})
	}
}
