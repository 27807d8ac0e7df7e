package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"statuspage-sync/internal/status"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS status_journal (
	id UUID PRIMARY KEY,
	component_id INTEGER NOT NULL,
	component_name TEXT NOT NULL,
	source TEXT NOT NULL,
	status INTEGER NOT NULL,
	ok BOOLEAN NOT NULL,
	error TEXT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS status_journal_name_idx ON status_journal (component_name, recorded_at DESC);`

type postgresRecorder struct {
	pool *pgxpool.Pool
}

func openPostgres(ctx context.Context, dsn string) (*postgresRecorder, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres journal: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres journal: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create postgres journal table: %w", err)
	}
	return &postgresRecorder{pool: pool}, nil
}

func (r *postgresRecorder) Record(ctx context.Context, e Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO status_journal (id, component_id, component_name, source, status, ok, error, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.ComponentID, e.ComponentName, e.Source, int(e.Status), e.OK, nullString(e.Error), e.At,
	)
	return err
}

func (r *postgresRecorder) Recent(ctx context.Context, componentName string, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, component_id, component_name, source, status, ok, COALESCE(error, ''), recorded_at
		FROM status_journal WHERE component_name=$1 ORDER BY recorded_at DESC LIMIT $2`,
		componentName, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := []Entry{}
	for rows.Next() {
		var e Entry
		var code int
		if err := rows.Scan(&e.ID, &e.ComponentID, &e.ComponentName, &e.Source, &code, &e.OK, &e.Error, &e.At); err != nil {
			return nil, err
		}
		e.Status = status.Status(code)
		results = append(results, e)
	}
	return results, rows.Err()
}

func (r *postgresRecorder) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}
