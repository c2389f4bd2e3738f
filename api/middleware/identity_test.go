package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/visionkart/storefront-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "visionkart"}
}

func signToken(t *testing.T, cfg config.JWTConfig, email, commerceToken string) string {
	t.Helper()

	claims := identityClaims{
		Email:         email,
		CommerceToken: commerceToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestIdentityMiddlewareSeedsContext(t *testing.T) {
	cfg := testJWTConfig()
	var gotEmail, gotToken string
	handler := Identity(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEmail = EmailFromContext(r.Context())
		gotToken = CustomerTokenFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, cfg, "Jane@Example.com", "commerce-token"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotEmail != "jane@example.com" {
		t.Fatalf("expected lowercased email, got %q", gotEmail)
	}
	if gotToken != "commerce-token" {
		t.Fatalf("expected commerce token in context, got %q", gotToken)
	}
}

func TestIdentityMiddlewareAllowsAnonymous(t *testing.T) {
	called := false
	handler := Identity(testJWTConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if EmailFromContext(r.Context()) != "" {
			t.Fatalf("anonymous request should carry no email")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if !called {
		t.Fatalf("handler should run for anonymous requests")
	}
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestIdentityMiddlewareRejectsBadTokens(t *testing.T) {
	cfg := testJWTConfig()

	cases := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", signToken(t, config.JWTConfig{Secret: "other", Issuer: cfg.Issuer}, "jane@example.com", "")},
		{"wrong issuer", signToken(t, config.JWTConfig{Secret: cfg.Secret, Issuer: "someone-else"}, "jane@example.com", "")},
		{"no email", signToken(t, cfg, "", "")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			handler := Identity(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
			req.Header.Set("Authorization", "Bearer "+tc.token)
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)

			if resp.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401 got %d", resp.Code)
			}
			if called {
				t.Fatalf("handler should not run with a bad token")
			}
		})
	}
}

func TestRequireIdentity(t *testing.T) {
	handler := RequireIdentity(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	authed := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	authed = authed.WithContext(WithIdentityClaims(authed.Context(), "jane@example.com", ""))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authed)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
