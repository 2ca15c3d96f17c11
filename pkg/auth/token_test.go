package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/valeclub/valeclub-backend/pkg/config"
	"github.com/valeclub/valeclub-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "valeclub",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()
	memberID := uuid.New()
	establishmentID := uuid.New()

	payload := AccessTokenPayload{
		MemberID:        memberID,
		EstablishmentID: &establishmentID,
		Role:            enums.RoleOperator,
	}

	token, err := MintAccessToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.MemberID != memberID {
		t.Fatalf("expected member_id %s, got %s", memberID, claims.MemberID)
	}
	if claims.EstablishmentID == nil || *claims.EstablishmentID != establishmentID {
		t.Fatalf("establishment id not preserved")
	}
	if claims.Role != enums.RoleOperator {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.ID == "" {
		t.Fatalf("expected generated jti")
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
}

func TestMintAccessTokenRejectsOperatorWithoutEstablishment(t *testing.T) {
	_, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{
		MemberID: uuid.New(),
		Role:     enums.RoleOperator,
	})
	if err == nil || !strings.Contains(err.Error(), "establishment") {
		t.Fatalf("expected establishment error, got %v", err)
	}
}

func TestMintAccessTokenRejectsInvalidRole(t *testing.T) {
	_, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{
		MemberID: uuid.New(),
		Role:     enums.ActorRole("vendor"),
	})
	if err == nil {
		t.Fatalf("expected role error")
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	issued := time.Now().Add(-2 * time.Hour)

	token, err := MintAccessToken(cfg, issued, AccessTokenPayload{
		MemberID: uuid.New(),
		Role:     enums.RoleMember,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestParseAccessTokenRejectsWrongIssuer(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		MemberID: uuid.New(),
		Role:     enums.RoleMember,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatalf("expected issuer mismatch to be rejected")
	}
}
