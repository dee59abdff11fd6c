package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/satyamahesh03/misuseguard/pkg/patterns"
)

// PostgresSink persists entries in a Postgres table. The terminal
// transitions guard on status at the SQL level, so two racing
// resolutions can never both land.
type PostgresSink struct {
	pool *pgxpool.Pool
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS activity_entries (
	id          TEXT PRIMARY KEY,
	surface     TEXT NOT NULL,
	content     TEXT NOT NULL,
	category    TEXT NOT NULL,
	confidence  DOUBLE PRECISION NOT NULL,
	status      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	resolved_at TIMESTAMPTZ
)`

// NewPostgresSink connects to the database and ensures the schema.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) InsertPending(ctx context.Context, e *Entry) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("entry missing id")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO activity_entries (id, surface, content, category, confidence, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Surface, e.Text, string(e.Category), e.Confidence, StatusPending, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (s *PostgresSink) MarkFinalized(ctx context.Context, id string) error {
	return s.resolve(ctx, id, StatusFinalized)
}

func (s *PostgresSink) MarkUndone(ctx context.Context, id string) error {
	return s.resolve(ctx, id, StatusUndone)
}

func (s *PostgresSink) resolve(ctx context.Context, id, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE activity_entries SET status = $1, resolved_at = $2
		 WHERE id = $3 AND status = $4`,
		status, time.Now().UTC(), id, StatusPending)
	if err != nil {
		return fmt.Errorf("resolve entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var current string
		err := s.pool.QueryRow(ctx,
			`SELECT status FROM activity_entries WHERE id = $1`, id).Scan(&current)
		if err != nil {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %s is %s", ErrAlreadyResolved, id, current)
	}
	return nil
}

func (s *PostgresSink) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, surface, content, category, confidence, status, created_at, resolved_at
		 FROM activity_entries ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var e Entry
		var category string
		if err := rows.Scan(&e.ID, &e.Surface, &e.Text, &category,
			&e.Confidence, &e.Status, &e.CreatedAt, &e.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Category = patterns.Category(category)
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *PostgresSink) Close(_ context.Context) error {
	s.pool.Close()
	return nil
}
