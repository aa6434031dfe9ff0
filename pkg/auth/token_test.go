package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mesaops/venue-backend/pkg/config"
	"github.com/mesaops/venue-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "mesa-test",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	actorID := uuid.New()
	venueID := uuid.New()

	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		ActorID: actorID,
		VenueID: venueID,
		Role:    enums.StaffRoleAdmin,
	})
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.ActorID != actorID {
		t.Fatalf("actor id mismatch: %s", claims.ActorID)
	}
	if claims.VenueID != venueID {
		t.Fatalf("venue id mismatch: %s", claims.VenueID)
	}
	if !claims.IsAdmin() {
		t.Fatal("expected admin claims")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		ActorID: uuid.New(),
		VenueID: uuid.New(),
		Role:    enums.StaffRoleStaff,
	})
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected issuer mismatch to fail")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{
		ActorID: uuid.New(),
		VenueID: uuid.New(),
		Role:    enums.StaffRoleStaff,
	})
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestMintRejectsInvalidRole(t *testing.T) {
	if _, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{
		ActorID: uuid.New(),
		VenueID: uuid.New(),
		Role:    enums.StaffRole("owner"),
	}); err == nil {
		t.Fatal("expected invalid role to fail")
	}
}
