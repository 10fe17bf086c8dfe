package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	pkgauth "github.com/northwest-community/marketplace-backend/pkg/auth"
	"github.com/northwest-community/marketplace-backend/pkg/config"
)

func authTestConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "middleware-test-secret",
		Issuer:            "marketplace-test",
		ExpirationMinutes: 10,
	}
}

func TestAuthSeedsMemberContext(t *testing.T) {
	cfg := authTestConfig()
	memberID := uuid.New()

	token, err := pkgauth.SignAccessToken(cfg, memberID, pkgauth.RoleSeller)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}

	var gotMember, gotRole string
	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMember = MemberIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204: %s", res.Code, res.Body.String())
	}
	if gotMember != memberID.String() {
		t.Fatalf("member id = %q, want %q", gotMember, memberID)
	}
	if gotRole != pkgauth.RoleSeller {
		t.Fatalf("role = %q", gotRole)
	}
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	handler := Auth(authTestConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.Code)
	}
}

func TestAuthRejectsForgedToken(t *testing.T) {
	cfg := authTestConfig()

	forged := cfg
	forged.Secret = "other-secret"
	token, err := pkgauth.SignAccessToken(forged, uuid.New(), pkgauth.RoleMember)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}

	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.Code)
	}
}
