package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sitewatch/internal/collector"
	"sitewatch/internal/config"
	"sitewatch/internal/database/graph"
	"sitewatch/internal/database/relational"
	"sitewatch/internal/flagger"
)

// Stores bundles the pass indexes a process writes to.
type Stores struct {
	DuckDB *relational.DuckDBClient
	Index  *relational.Repo
	Graph  graph.GraphClient // nil when no Neo4j endpoint is configured
}

// OpenStores opens the DuckDB index and, when configured, the Neo4j graph.
func OpenStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Stores, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := relational.NewDuckDBClient(cfg.DuckDB.Path,
		relational.WithThreads(cfg.DuckDB.Threads),
		relational.WithMemoryLimit(cfg.DuckDB.MemoryLimitGB),
		relational.WithTimeout(10*time.Second),
	)
	if err != nil {
		return nil, err
	}
	repo := relational.NewRepo(client.DB())
	if err := repo.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("migrate incident index: %w", err)
	}
	path := cfg.DuckDB.Path
	if path == "" {
		path = ":memory:"
	}
	logger.Info("incident index ready", zap.String("path", path))

	s := &Stores{DuckDB: client, Index: repo}
	if cfg.GraphEnabled() {
		g, err := graph.NewNeo4jClient(cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		s.Graph = g
		logger.Info("graph enabled", zap.String("uri", cfg.Neo4j.URI))
	}
	return s, nil
}

// Close releases both stores.
func (s *Stores) Close(ctx context.Context) error {
	var errs []error
	if s.Graph != nil {
		errs = append(errs, s.Graph.Close(ctx))
	}
	if s.DuckDB != nil {
		errs = append(errs, s.DuckDB.Close())
	}
	return errors.Join(errs...)
}

// NewWorkerFromConfig builds the simulator-backed worker writing into s.
func NewWorkerFromConfig(ctx context.Context, cfg config.Config, s *Stores, logger *zap.Logger, opts ...WorkerOption) (*DataWorker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sim, err := collector.NewSimulator(cfg.SimulatorConfig())
	if err != nil {
		return nil, err
	}

	node, err := collector.CollectNodeInfo(ctx)
	if err != nil {
		logger.Warn("host info unavailable", zap.Error(err))
	}

	var index relational.IncidentIndex
	var g graph.GraphClient
	if s != nil {
		if s.Index != nil {
			index = s.Index
		}
		g = s.Graph
	}

	base := []WorkerOption{
		WithInterval(cfg.Simulator.PollInterval),
		WithNodeInfo(node),
	}
	return NewDataWorker(sim, flagger.NewFlaggerService(cfg.FlaggerConfig()), index, g, logger, append(base, opts...)...)
}
