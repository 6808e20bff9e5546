// Package relational keeps the latest evaluation pass in DuckDB so incidents
// and site risk can be filtered with SQL. Nothing here is historical: every
// pass replaces the previous one.
package relational

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb" // Register DuckDB driver
)

// DatabaseConfig holds configuration options for the database.
type DatabaseConfig struct {
	Threads       int           // Number of threads for DuckDB (0 = default)
	MemoryLimitGB int           // Memory limit in GB (0 = default)
	Timeout       time.Duration // Connect timeout (0 = none)
}

// DuckDBClient manages the physical connection to a DuckDB database.
type DuckDBClient struct {
	db     *sql.DB
	config DatabaseConfig
}

// DuckDBOption configures the DuckDB client.
type DuckDBOption func(*DuckDBClient)

// WithThreads sets the number of DuckDB threads.
func WithThreads(n int) DuckDBOption {
	return func(c *DuckDBClient) {
		c.config.Threads = n
	}
}

// WithMemoryLimit sets the DuckDB memory limit in GB.
func WithMemoryLimit(gb int) DuckDBOption {
	return func(c *DuckDBClient) {
		c.config.MemoryLimitGB = gb
	}
}

// WithTimeout bounds the initial connectivity check.
func WithTimeout(d time.Duration) DuckDBOption {
	return func(c *DuckDBClient) {
		c.config.Timeout = d
	}
}

// NewDuckDBClient opens dsn, or an in-memory database when dsn is empty.
func NewDuckDBClient(dsn string, opts ...DuckDBOption) (*DuckDBClient, error) {
	client := &DuckDBClient{}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	ctx := context.Background()
	if client.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, client.config.Timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	// One connection: an in-memory database is private to its connection pool
	// and the index is rewritten in a single transaction per pass.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	client.db = db
	if err := client.Configure(client.config); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure duckdb: %w", err)
	}
	// Ad-hoc queries must not reach local files or remote URLs. Once disabled
	// DuckDB refuses to turn it back on for the life of the database.
	if _, err := db.Exec("SET enable_external_access=false"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to disable external access: %w", err)
	}
	return client, nil
}

// DB returns the underlying sql.DB instance.
func (c *DuckDBClient) DB() *sql.DB {
	return c.db
}

// Close releases database resources.
func (c *DuckDBClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Configure applies PRAGMA settings.
func (c *DuckDBClient) Configure(cfg DatabaseConfig) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if cfg.Threads > 0 {
		if _, err := c.db.Exec(fmt.Sprintf("PRAGMA threads=%d", cfg.Threads)); err != nil {
			return fmt.Errorf("setting threads: %w", err)
		}
	}
	if cfg.MemoryLimitGB > 0 {
		if _, err := c.db.Exec(fmt.Sprintf("PRAGMA memory_limit='%dGB'", cfg.MemoryLimitGB)); err != nil {
			return fmt.Errorf("setting memory limit: %w", err)
		}
	}
	c.config = cfg
	return nil
}

// Ping verifies database connectivity.
func (c *DuckDBClient) Ping(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return c.db.PingContext(ctx)
}

// NewInMemoryDB creates a new in-memory DuckDB database.
func NewInMemoryDB(opts ...DuckDBOption) (*DuckDBClient, error) {
	return NewDuckDBClient(":memory:", opts...)
}
