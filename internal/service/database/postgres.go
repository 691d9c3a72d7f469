package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/paiml/rosetta-ruchy-sub000/pkg/errors"
)

// PoolOptions sizes the connection pool. Zero values fall back to the
// defaults below.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (o PoolOptions) withDefaults() PoolOptions {
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 10
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = 2
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = 5 * time.Minute
	}
	return o
}

// PostgresService owns the report database pool.
type PostgresService struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresService opens a pool for dsn and waits until the server
// answers a ping or ctx expires.
func NewPostgresService(ctx context.Context, dsn string, opts PoolOptions, logger *zap.Logger) (*PostgresService, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.NewStoreError("failed to open postgres", "postgres", "open", err)
	}

	opts = opts.withDefaults()
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	ps := &PostgresService{db: db, logger: logger}
	if err := ps.waitUntilReady(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("PostgreSQL connected", zap.Int("max_open_conns", opts.MaxOpenConns))
	return ps, nil
}

func (ps *PostgresService) waitUntilReady(ctx context.Context) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		err := ps.db.PingContext(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.NewStoreError("postgres not ready", "postgres", "ping", err)
		case <-ticker.C:
			ps.logger.Debug("Waiting for PostgreSQL", zap.Error(err))
		}
	}
}

func (ps *PostgresService) GetDB() *sql.DB {
	return ps.db
}

func (ps *PostgresService) Ping(ctx context.Context) error {
	return ps.db.PingContext(ctx)
}

func (ps *PostgresService) Close() error {
	if ps.db == nil {
		return nil
	}
	if err := ps.db.Close(); err != nil {
		ps.logger.Error("Failed to close PostgreSQL pool", zap.Error(err))
		return err
	}
	ps.logger.Info("PostgreSQL disconnected")
	return nil
}
