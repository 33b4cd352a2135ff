package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/ikrcommerce/ikr-backend/pkg/auth"
	"github.com/ikrcommerce/ikr-backend/pkg/config"
	"github.com/ikrcommerce/ikr-backend/pkg/logger"
)

func authTestConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "ikr-backend", ExpirationMinutes: 60}
}

func noopLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestAuthSeedsCustomerID(t *testing.T) {
	cfg := authTestConfig()
	customerID := uuid.New()
	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), customerID, "wanjiku@example.com")
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	var seen uuid.UUID
	handler := Auth(cfg, noopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CustomerIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen != customerID {
		t.Fatalf("customer id = %s, want %s", seen, customerID)
	}
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(authTestConfig(), noopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached without credentials")
	}))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAdminBlocksCustomerTokens(t *testing.T) {
	cfg := authTestConfig()
	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), uuid.New(), "wanjiku@example.com")
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	logg := noopLogger()
	handler := Auth(cfg, logg)(RequireAdmin(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("customer token reached the admin surface")
	})))

	req := httptest.NewRequest(http.MethodPost, "/admin/products", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRequireAdminAllowsStaffTokens(t *testing.T) {
	cfg := authTestConfig()
	token, err := pkgAuth.MintAccessTokenWithRole(cfg, time.Now(), uuid.New(), "staff@ikr.co.ke", pkgAuth.RoleAdmin)
	if err != nil {
		t.Fatalf("MintAccessTokenWithRole: %v", err)
	}

	logg := noopLogger()
	reached := false
	handler := Auth(cfg, logg)(RequireAdmin(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})))

	req := httptest.NewRequest(http.MethodPost, "/admin/products", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !reached {
		t.Fatalf("status = %d, reached = %v; want 200 and handler reached", rec.Code, reached)
	}
}

func TestAuthRejectsGarbageToken(t *testing.T) {
	handler := Auth(authTestConfig(), noopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached with a garbage token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
