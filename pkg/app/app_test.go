package app

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/dd0wney/cluso-commgraph/pkg/config"
	"github.com/dd0wney/cluso-commgraph/pkg/schema"
)

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Auth.JWTSecret = "test-secret-key-must-be-at-least-32-characters-long"
	return cfg
}

func TestOpenStore_EmbeddedPersists(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	store, err := OpenStore(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	sess, _ := store.Session(ctx)
	if err := sess.CreateUser(ctx, schema.User{Username: "alice", Role: schema.RoleAnalyst, IsActive: true}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	sess.Close(ctx)
	if err := store.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	store, err = OpenStore(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer store.Close(ctx)
	sess, _ = store.Session(ctx)
	defer sess.Close(ctx)
	if _, err := sess.GetUser(ctx, "alice"); err != nil {
		t.Errorf("Expected alice after reopen, got %v", err)
	}
}

func TestOpenStore_Unknown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store = "sqlite"
	if _, err := OpenStore(context.Background(), cfg, nil); err == nil {
		t.Error("Expected an error for an unknown backend")
	}
}

func TestOpenBlocklist(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		backend string
		wantErr bool
	}{
		{config.BlocklistMemory, false},
		{config.BlocklistBadger, false},
		{"redis", true},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Auth.BlocklistBackend = tt.backend
			b, err := OpenBlocklist(ctx, cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("OpenBlocklist() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer b.Close()

			if err := b.Revoke(ctx, "jti-1", time.Minute); err != nil {
				t.Fatalf("Revoke failed: %v", err)
			}
			revoked, err := b.IsRevoked(ctx, "jti-1")
			if err != nil || !revoked {
				t.Errorf("Expected jti-1 revoked, got %v, %v", revoked, err)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := testConfig(t)
	cfg.LogLevel = "warn"

	var buf bytes.Buffer
	logger, err := NewLogger(cfg, &buf)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if bytes.Contains(buf.Bytes(), []byte("hidden")) || !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Errorf("Unexpected output %q", buf.String())
	}

	cfg.LogLevel = "loud"
	if _, err := NewLogger(cfg, &buf); err == nil {
		t.Error("Expected an error for an unknown level")
	}
}
