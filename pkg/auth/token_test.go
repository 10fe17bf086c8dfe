package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/northwest-community/marketplace-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "marketplace-test",
		ExpirationMinutes: 15,
	}
}

func TestSignAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	memberID := uuid.New()

	raw, err := SignAccessToken(cfg, memberID, RoleSeller)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}

	claims, err := ParseAccessToken(cfg, raw)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	parsed, err := claims.MemberID()
	if err != nil {
		t.Fatalf("MemberID: %v", err)
	}
	if parsed != memberID {
		t.Fatalf("member id = %s, want %s", parsed, memberID)
	}
	if claims.Role != RoleSeller {
		t.Fatalf("role = %q, want %q", claims.Role, RoleSeller)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	cfg := testJWTConfig()
	raw, err := SignAccessToken(cfg, uuid.New(), RoleMember)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}

	other := cfg
	other.Secret = "different-secret"
	if _, err := ParseAccessToken(other, raw); err == nil {
		t.Fatal("expected verification failure with wrong secret")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	cfg := testJWTConfig()
	raw, err := SignAccessToken(cfg, uuid.New(), RoleMember)
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}

	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, raw); err == nil {
		t.Fatal("expected verification failure with wrong issuer")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	cfg := testJWTConfig()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		Role: RoleMember,
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if _, err := ParseAccessToken(cfg, raw); err == nil {
		t.Fatal("expected expired token to fail")
	}
}
