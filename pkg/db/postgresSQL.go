package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNoDatabaseURL = errors.New("DATABASE_URL environment variable not set")

type Config struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
	ApplySchema     bool
	SchemaPath      string
}

func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, ErrNoDatabaseURL
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse DB config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}

	log.Println("Connected to PostgreSQL")

	if cfg.ApplySchema {
		schemaCtx, cancelSchema := context.WithTimeout(ctx, 30*time.Second)
		defer cancelSchema()
		if err := ApplySchema(schemaCtx, pool, cfg.SchemaPath); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return pool, nil
}

// ApplySchema reads the SQL schema file and executes it against the provided pool.
// An empty path falls back to pkg/db/schema.sql.
func ApplySchema(ctx context.Context, pool *pgxpool.Pool, schemaPath string) error {
	if schemaPath == "" {
		schemaPath = "pkg/db/schema.sql"
	}

	bytes, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("read schema file: %w", err)
	}

	sql := strings.TrimSpace(string(bytes))
	if sql == "" {
		return fmt.Errorf("schema file is empty: %s", schemaPath)
	}

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	log.Println("Schema applied from", schemaPath)
	return nil
}
