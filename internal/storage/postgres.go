package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// OpenPostgres connects a pgx pool, applies the migrations and exposes the
// pool through database/sql so the shared queries can run on it.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	if err := RunMigrations(DialectPostgres, dsn); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	return &SQLStore{db: db, dialect: DialectPostgres, closeFn: pool.Close}, nil
}
