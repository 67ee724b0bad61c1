package postgres

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgconn"
    "github.com/jackc/pgx/v5/pgxpool"

    "maturity/internal/domain"
)

type DB struct {
    Pool *pgxpool.Pool
}

func Connect(ctx context.Context, url string) (*DB, error) {
    cfg, err := pgxpool.ParseConfig(url)
    if err != nil {
        return nil, err
    }
    cfg.MaxConns = 10
    cfg.HealthCheckPeriod = 30 * time.Second
    pool, err := pgxpool.NewWithConfig(ctx, cfg)
    if err != nil {
        return nil, err
    }
    if err := pool.Ping(ctx); err != nil {
        pool.Close()
        return nil, err
    }
    return &DB{Pool: pool}, nil
}

func (db *DB) Close() { db.Pool.Close() }

// inTx runs fn in a transaction, committing on success. Errors come back
// mapped to domain errors where a mapping exists.
func (db *DB) inTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) (err error) {
    tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
    if err != nil {
        return fmt.Errorf("%s: begin: %w", op, err)
    }
    defer func() {
        if err != nil {
            _ = tx.Rollback(ctx)
            err = mapError(op, err)
            return
        }
        if cerr := tx.Commit(ctx); cerr != nil {
            err = mapError(op, cerr)
        }
    }()
    return fn(tx)
}

const (
    codeUniqueViolation      = "23505"
    codeSerializationFailure = "40001"
    codeDeadlockDetected     = "40P01"
)

func mapError(op string, err error) error {
    var de *domain.Error
    if errors.As(err, &de) {
        return err
    }
    var pgErr *pgconn.PgError
    if errors.As(err, &pgErr) {
        switch pgErr.Code {
        case codeUniqueViolation, codeSerializationFailure, codeDeadlockDetected:
            return domain.Conflict(op, err)
        }
    }
    return fmt.Errorf("%s: %w", op, err)
}
