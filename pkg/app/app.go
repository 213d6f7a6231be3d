// Package app turns a loaded configuration into the stores and services both
// binaries share.
package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dd0wney/cluso-commgraph/pkg/auth"
	"github.com/dd0wney/cluso-commgraph/pkg/config"
	"github.com/dd0wney/cluso-commgraph/pkg/graphstore"
	"github.com/dd0wney/cluso-commgraph/pkg/graphstore/embedded"
	"github.com/dd0wney/cluso-commgraph/pkg/graphstore/neo4jstore"
	"github.com/dd0wney/cluso-commgraph/pkg/logging"
	"github.com/dd0wney/cluso-commgraph/pkg/storage"
)

// NewLogger returns a JSON logger at the configured level.
func NewLogger(cfg config.Config, w io.Writer) (*logging.JSONLogger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewJSONLogger(w, level), nil
}

// OpenStore opens the configured graph store backend.
func OpenStore(ctx context.Context, cfg config.Config, logger logging.Logger) (graphstore.Store, error) {
	logger = logging.OrNop(logger)

	switch cfg.Store {
	case config.StoreNeo4j:
		s, err := neo4jstore.Open(ctx, neo4jstore.Config{
			URI:      cfg.Neo4j.URI,
			Username: cfg.Neo4j.User,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.Database,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("open neo4j store: %w", err)
		}
		logger.Info("graph store opened", logging.String("backend", config.StoreNeo4j), logging.String("uri", cfg.Neo4j.URI))
		return s, nil

	case config.StoreEmbedded:
		dir := filepath.Join(cfg.DataDir, "graph")
		s, err := embedded.Open(storage.Config{DataDir: dir, SyncWrites: cfg.SyncWrites})
		if err != nil {
			return nil, fmt.Errorf("open embedded store: %w", err)
		}
		logger.Info("graph store opened", logging.String("backend", config.StoreEmbedded), logging.String("dir", dir))
		return s, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store)
}

// OpenBlocklist opens the configured token revocation backend.
func OpenBlocklist(ctx context.Context, cfg config.Config) (auth.Blocklist, error) {
	switch cfg.Auth.BlocklistBackend {
	case config.BlocklistBadger:
		b, err := auth.OpenBadgerBlocklist(filepath.Join(cfg.DataDir, "blocklist"))
		if err != nil {
			return nil, fmt.Errorf("open badger blocklist: %w", err)
		}
		return b, nil
	case config.BlocklistPostgres:
		b, err := auth.NewPGBlocklist(ctx, cfg.Auth.BlocklistDatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres blocklist: %w", err)
		}
		return b, nil
	case config.BlocklistMemory, "":
		return auth.NewMemoryBlocklist(), nil
	}
	return nil, fmt.Errorf("unknown blocklist backend %q", cfg.Auth.BlocklistBackend)
}
