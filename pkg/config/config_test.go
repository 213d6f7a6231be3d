package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const secret = "0123456789abcdef0123456789abcdef"

func env(m map[string]string) lookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	cfg.Auth.JWTSecret = secret

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Defaults with a secret should be valid: %v", err)
	}
	if cfg.Auth.TokenTTL() != 30*time.Minute {
		t.Errorf("Expected 30 minute tokens, got %v", cfg.Auth.TokenTTL())
	}
	if cfg.IngestWorkers != 2 || cfg.CORSAllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(env(map[string]string{
		"COMMGRAPH_PORT":              "9090",
		"COMMGRAPH_STORE":             "neo4j",
		"NEO4J_URI":                   "neo4j://db:7687",
		"NEO4J_PASSWORD":              "pw",
		"JWT_SECRET":                  secret,
		"ACCESS_TOKEN_EXPIRE_MINUTES": "5",
		"BLOCKLIST_BACKEND":           "badger",
		"INGEST_WORKERS":              "4",
		"CORS_ALLOWED_ORIGINS":        "https://a.example, https://b.example,",
		"ARCHIVE_BUCKET":              "uploads",
		"LOG_LEVEL":                   "debug",
	}))
	if err != nil {
		t.Fatalf("applyEnv failed: %v", err)
	}

	if cfg.Port != 9090 || cfg.Store != StoreNeo4j || cfg.Neo4j.URI != "neo4j://db:7687" {
		t.Errorf("Unexpected store settings %+v", cfg)
	}
	if cfg.Auth.TokenTTL() != 5*time.Minute || cfg.Auth.BlocklistBackend != BlocklistBadger {
		t.Errorf("Unexpected auth settings %+v", cfg.Auth)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("Unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if !cfg.ArchiveSettings().Enabled() {
		t.Error("Expected archive enabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestApplyEnv_BadNumber(t *testing.T) {
	cfg := Default()
	if err := cfg.applyEnv(env(map[string]string{"COMMGRAPH_PORT": "eighty"})); err == nil {
		t.Error("Expected error for non-numeric port")
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Port = 0
	cfg.Store = "sqlite"
	cfg.Auth.BlocklistBackend = BlocklistPostgres
	cfg.LogLevel = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation errors")
	}
	for _, field := range []string{"Port", "Store", "JWTSecret", "BlocklistDatabaseURL", "LogLevel"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("Expected %s in %q", field, err.Error())
		}
	}
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commgraph.yaml")
	content := `
port: 8181
data_dir: /var/lib/commgraph
auth:
  jwt_secret: ` + secret + `
  access_token_expire_minutes: 60
ingest_workers: 3
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv("INGEST_WORKERS", "6")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 8181 || cfg.DataDir != "/var/lib/commgraph" || cfg.Auth.AccessTokenMinutes != 60 {
		t.Errorf("YAML values not applied: %+v", cfg)
	}
	if cfg.IngestWorkers != 6 {
		t.Errorf("Environment should override YAML, got %d workers", cfg.IngestWorkers)
	}
	if cfg.Store != StoreEmbedded {
		t.Errorf("Unset keys keep defaults, got store %q", cfg.Store)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
