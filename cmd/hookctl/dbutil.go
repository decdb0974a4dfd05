package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/iota-uz/hookrelay/pkg/configuration"
)

func connectDB(ctx context.Context) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, configuration.Use().Database.Opts)
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	return pool, nil
}

func connectSQLX(ctx context.Context) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	db, err := sqlx.ConnectContext(ctx, "postgres", configuration.Use().Database.Opts)
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	return db, nil
}
