// Package config loads server settings from an optional YAML file and the
// environment. Environment variables win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-commgraph/pkg/archive"
	"github.com/dd0wney/cluso-commgraph/pkg/logging"
	"github.com/dd0wney/cluso-commgraph/pkg/validation"
)

// Store backends.
const (
	StoreEmbedded = "embedded"
	StoreNeo4j    = "neo4j"
)

// Blocklist backends.
const (
	BlocklistMemory   = "memory"
	BlocklistBadger   = "badger"
	BlocklistPostgres = "postgres"
)

// Neo4jConfig locates the graph database.
type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// AuthConfig configures tokens and the bootstrap account.
type AuthConfig struct {
	JWTSecret            string `yaml:"jwt_secret"`
	AccessTokenMinutes   int    `yaml:"access_token_expire_minutes"`
	BlocklistBackend     string `yaml:"blocklist_backend"`
	BlocklistDatabaseURL string `yaml:"blocklist_database_url"`
	AdminPassword        string `yaml:"admin_password"`
}

// TokenTTL is the access-token lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.AccessTokenMinutes) * time.Minute
}

// ArchiveConfig is the upload archive bucket.
type ArchiveConfig struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// Config is the full server configuration.
type Config struct {
	Port               int           `yaml:"port"`
	DataDir            string        `yaml:"data_dir"`
	Store              string        `yaml:"store"`
	SyncWrites         bool          `yaml:"sync_writes"`
	Neo4j              Neo4jConfig   `yaml:"neo4j"`
	Auth               AuthConfig    `yaml:"auth"`
	IngestWorkers      int           `yaml:"ingest_workers"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	Archive            ArchiveConfig `yaml:"archive"`
	LogLevel           string        `yaml:"log_level"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:    8000,
		DataDir: "./data",
		Store:   StoreEmbedded,
		Neo4j: Neo4jConfig{
			URI:      "bolt://localhost:7687",
			User:     "neo4j",
			Database: "neo4j",
		},
		Auth: AuthConfig{
			AccessTokenMinutes: 30,
			BlocklistBackend:   BlocklistMemory,
		},
		IngestWorkers:      2,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		LogLevel:           "info",
		ShutdownTimeout:    30 * time.Second,
	}
}

// Load reads path, if non-empty, over the defaults, applies the environment
// and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	for key, dst := range map[string]*int{
		"COMMGRAPH_PORT":              &c.Port,
		"ACCESS_TOKEN_EXPIRE_MINUTES": &c.Auth.AccessTokenMinutes,
		"INGEST_WORKERS":              &c.IngestWorkers,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}

	str("COMMGRAPH_DATA_DIR", &c.DataDir)
	str("COMMGRAPH_STORE", &c.Store)
	str("NEO4J_URI", &c.Neo4j.URI)
	str("NEO4J_USER", &c.Neo4j.User)
	str("NEO4J_PASSWORD", &c.Neo4j.Password)
	str("NEO4J_DATABASE", &c.Neo4j.Database)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("BLOCKLIST_BACKEND", &c.Auth.BlocklistBackend)
	str("BLOCKLIST_DATABASE_URL", &c.Auth.BlocklistDatabaseURL)
	str("ADMIN_PASSWORD", &c.Auth.AdminPassword)
	str("ARCHIVE_BUCKET", &c.Archive.Bucket)
	str("AWS_REGION", &c.Archive.Region)
	str("AWS_ENDPOINT", &c.Archive.Endpoint)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok && v != "" {
		c.CORSAllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSAllowedOrigins = append(c.CORSAllowedOrigins, o)
			}
		}
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	return validation.NewConfigValidator("Config").
		RangeInt("Port", c.Port, 1, 65535).
		OneOf("Store", c.Store, []string{StoreEmbedded, StoreNeo4j}).
		When(c.Store == StoreEmbedded, func(cv *validation.ConfigValidator) {
			cv.Required("DataDir", c.DataDir)
		}).
		When(c.Store == StoreNeo4j, func(cv *validation.ConfigValidator) {
			cv.Required("Neo4j.URI", c.Neo4j.URI)
		}).
		MinLen("Auth.JWTSecret", c.Auth.JWTSecret, 32).
		Positive("Auth.AccessTokenMinutes", c.Auth.AccessTokenMinutes).
		OneOf("Auth.BlocklistBackend", c.Auth.BlocklistBackend,
			[]string{BlocklistMemory, BlocklistBadger, BlocklistPostgres}).
		When(c.Auth.BlocklistBackend == BlocklistPostgres, func(cv *validation.ConfigValidator) {
			cv.Required("Auth.BlocklistDatabaseURL", c.Auth.BlocklistDatabaseURL)
		}).
		RangeInt("IngestWorkers", c.IngestWorkers, 1, 64).
		Custom("LogLevel", func() error {
			_, err := logging.ParseLevel(c.LogLevel)
			return err
		}).
		Validate()
}

// ArchiveSettings adapts the archive section for pkg/archive.
func (c Config) ArchiveSettings() archive.Config {
	return archive.Config{
		Bucket:   c.Archive.Bucket,
		Region:   c.Archive.Region,
		Endpoint: c.Archive.Endpoint,
	}
}

// Addr is the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
