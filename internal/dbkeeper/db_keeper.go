package dbkeeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/drstein77/cartwidget/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// DBKeeper is the PostgreSQL session store backend.
type DBKeeper struct {
	pool *pgxpool.Pool
	log  Log
}

func NewDBKeeper(ctx context.Context, dsn func() string, log Log) (*DBKeeper, error) {
	addr := dsn()
	if addr == "" {
		return nil, errors.New("database dsn is empty")
	}

	config, err := pgxpool.ParseConfig(addr)
	if err != nil {
		log.Error("Unable to parse database DSN", zap.Error(err))
		return nil, fmt.Errorf("failed to parse database dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		log.Error("Unable to connect to database", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("Connected!")

	return &DBKeeper{
		pool: pool,
		log:  log,
	}, nil
}

func (kp *DBKeeper) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	if kp.pool == nil {
		return nil, fmt.Errorf("database connection pool is nil")
	}

	// Reading counts as activity, so the row's timestamp is bumped.
	var value []byte
	err := kp.pool.QueryRow(ctx,
		`UPDATE session_values SET updated_at = now()
		WHERE session_id = $1 AND key = $2
		RETURNING value`,
		sessionID, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		kp.log.Error("Failed to read session value", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to read session value: %w", err)
	}

	return value, nil
}

func (kp *DBKeeper) Set(ctx context.Context, sessionID, key string, value []byte) error {
	if kp.pool == nil {
		return fmt.Errorf("database connection pool is nil")
	}

	stmt := `
		INSERT INTO session_values (session_id, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (session_id, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	if _, err := kp.pool.Exec(ctx, stmt, sessionID, key, value); err != nil {
		kp.log.Error("Failed to write session value", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to write session value: %w", err)
	}

	return nil
}

// Purge deletes every session whose newest value is older than olderThan.
func (kp *DBKeeper) Purge(ctx context.Context, olderThan time.Time) (int, error) {
	if kp.pool == nil {
		return 0, fmt.Errorf("database connection pool is nil")
	}

	query := `
		WITH stale AS (
			SELECT session_id
			FROM session_values
			GROUP BY session_id
			HAVING MAX(updated_at) < $1
		), deleted AS (
			DELETE FROM session_values
			WHERE session_id IN (SELECT session_id FROM stale)
			RETURNING session_id
		)
		SELECT COUNT(DISTINCT session_id) FROM deleted
	`

	var purged int
	if err := kp.pool.QueryRow(ctx, query, olderThan).Scan(&purged); err != nil {
		kp.log.Error("Failed to purge sessions", zap.Error(err))
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}

	if purged > 0 {
		kp.log.Info("Purged idle sessions", zap.Int("count", purged))
	}
	return purged, nil
}

func (kp *DBKeeper) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := kp.pool.Ping(ctx); err != nil {
		kp.log.Error("Database ping failed", zap.Error(err))
		return false
	}

	return true
}

func (kp *DBKeeper) Close() bool {
	if kp.pool != nil {
		kp.pool.Close()
		kp.log.Info("Database connection pool closed")
		return true
	}
	kp.log.Info("Attempted to close a nil database connection pool")
	return false
}
