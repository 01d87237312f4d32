// Package pgx implements store.GraphStore on PostgreSQL with pgvector.
package pgx

import (
	"context"
	"fmt"
	"sync"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
	BeginTx(ctx context.Context, txOptions pgxv5.TxOptions) (pgxv5.Tx, error)
}

// GraphDBStorage implements store.GraphStore. Upserts rely on
// INSERT ... ON CONFLICT so several workers may write concurrently; dbLock
// only serializes writes issued through this instance.
type GraphDBStorage struct {
	conn   pgxIConn
	dbLock sync.Mutex
}

var _ store.GraphStore = (*GraphDBStorage)(nil)

// NewGraphDBStorageWithConnection wraps an existing pool, connection or
// transaction. The vector type must already be registered on it.
func NewGraphDBStorageWithConnection(conn pgxIConn) *GraphDBStorage {
	return &GraphDBStorage{conn: conn}
}

// Connect opens a pool with pgvector types registered on every connection.
// Run Migrate first: registration fails while the extension is missing.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgxv5.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
