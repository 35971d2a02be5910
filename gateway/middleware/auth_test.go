package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "gateway-test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func authFixture() *Authenticator {
	return NewAuthenticator(AuthConfig{
		Enabled:    true,
		HMACSecret: testSecret,
		Issuer:     "relief-gateway-test",
		Audience:   "relief",
	}, nil)
}

func serveAuthed(auth *Authenticator, token string, scopes ...string) *httptest.ResponseRecorder {
	handler := auth.Middleware(scopes...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/query/balance", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthAcceptsValidToken(t *testing.T) {
	auth := authFixture()
	token := signToken(t, jwt.MapClaims{
		"iss":   "relief-gateway-test",
		"aud":   "relief",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"scope": "relief.read relief.spend",
	})
	rec := serveAuthed(auth, token, "relief.read")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthRejectsMissingToken(t *testing.T) {
	rec := serveAuthed(authFixture(), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthRejectsWrongIssuer(t *testing.T) {
	auth := authFixture()
	token := signToken(t, jwt.MapClaims{
		"iss":   "someone-else",
		"aud":   "relief",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"scope": "relief.read",
	})
	rec := serveAuthed(auth, token, "relief.read")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{
		Enabled:    true,
		HMACSecret: testSecret,
		ClockSkew:  time.Second,
	}, nil)
	token := signToken(t, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	rec := serveAuthed(auth, token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthEnforcesScopes(t *testing.T) {
	auth := authFixture()
	token := signToken(t, jwt.MapClaims{
		"iss":   "relief-gateway-test",
		"aud":   "relief",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"scope": "relief.read",
	})
	rec := serveAuthed(auth, token, "relief.admin")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestAuthScopeListClaim(t *testing.T) {
	auth := authFixture()
	token := signToken(t, jwt.MapClaims{
		"iss":   "relief-gateway-test",
		"aud":   "relief",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"scope": []string{"relief.admin", "relief.spend"},
	})
	rec := serveAuthed(auth, token, "relief.admin", "relief.spend")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthDisabledPassesThrough(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: false}, nil)
	rec := serveAuthed(auth, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
