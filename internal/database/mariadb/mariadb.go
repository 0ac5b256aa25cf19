// Package mariadb reads the external HR directory used to seed employee records.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Directory reads are a single bulk query, so the pool stays small and
// connections are short-lived.
const (
	dialTimeout     = 10 * time.Second
	readTimeout     = 30 * time.Second
	maxOpenConns    = 2
	connMaxLifetime = 15 * time.Minute
)

// Pool is a connection to the HR directory.
type Pool struct {
	db *sql.DB
}

// directoryConfig parses dsn and fills in the timeouts the DSN leaves unset.
func directoryConfig(dsn string) (*mysql.Config, error) {
	if dsn == "" {
		return nil, errors.New("HR directory DSN is required")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid HR directory DSN: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = dialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = readTimeout
	}
	return cfg, nil
}

// NewPool connects to the HR directory and verifies it is reachable.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := directoryConfig(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("create HR directory connector: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping HR directory %s@%s: %w", cfg.User, cfg.Addr, err)
	}

	return &Pool{db: db}, nil
}

// Close releases the directory connections.
func (p *Pool) Close() error {
	if p.db == nil {
		return nil
	}
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("close HR directory: %w", err)
	}
	return nil
}
