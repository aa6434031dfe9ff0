package square

import (
	"context"
	"strings"
	"testing"

	"github.com/mesaops/venue-backend/pkg/config"
	"github.com/mesaops/venue-backend/pkg/logger"
)

func TestNewClientValidatesConfig(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	ctx := context.Background()

	cases := []struct {
		name string
		cfg  config.SquareConfig
	}{
		{"missing token", config.SquareConfig{WebhookSecret: "whsec", Env: "sandbox"}},
		{"missing webhook secret", config.SquareConfig{AccessToken: "tok", Env: "sandbox"}},
		{"bad environment", config.SquareConfig{AccessToken: "tok", WebhookSecret: "whsec", Env: "staging"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewClient(ctx, tc.cfg, logg); err == nil {
				t.Fatal("expected config error")
			}
		})
	}
}

func TestNewClientRequiresLogger(t *testing.T) {
	cfg := config.SquareConfig{AccessToken: "tok", WebhookSecret: "whsec", Env: "sandbox"}
	if _, err := NewClient(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected logger error")
	}
}

func TestSigningSecretAndEnvironment(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	cfg := config.SquareConfig{AccessToken: "tok", WebhookSecret: "whsec", Env: "sandbox"}
	client, err := NewClient(context.Background(), cfg, logg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.SigningSecret() != "whsec" {
		t.Fatalf("unexpected signing secret %q", client.SigningSecret())
	}
	if client.Environment() != "sandbox" {
		t.Fatalf("unexpected environment %q", client.Environment())
	}
}

func TestNewIdempotencyKeyPrefix(t *testing.T) {
	c := &Client{}
	key := c.NewIdempotencyKey("reconcile")
	if !strings.HasPrefix(key, "reconcile-") {
		t.Fatalf("unexpected key %q", key)
	}
	if c.NewIdempotencyKey("") == c.NewIdempotencyKey("") {
		t.Fatal("keys must be unique")
	}
}
