package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/datadesk/internal/domain"
)

var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS scrape_runs (
	id         UUID PRIMARY KEY,
	dataset    TEXT NOT NULL,
	columns    TEXT[] NOT NULL,
	row_count  INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS scrape_rows (
	run_id   UUID NOT NULL REFERENCES scrape_runs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	data     JSONB NOT NULL,
	PRIMARY KEY (run_id, position)
);
CREATE INDEX IF NOT EXISTS scrape_runs_dataset_idx ON scrape_runs (dataset, created_at DESC);
`

// PostgresStore keeps a copy of every run's rows, one JSONB document per row.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// RunInfo describes a stored run.
type RunInfo struct {
	ID        uuid.UUID `json:"id"`
	Dataset   string    `json:"dataset"`
	Columns   []string  `json:"columns"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveRun stores rows under a new run id within a single transaction.
func SaveRun[R domain.Row](ctx context.Context, s *PostgresStore, dataset string, header []string, rows []R) (uuid.UUID, error) {
	id := uuid.New()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO scrape_runs (id, dataset, columns, row_count) VALUES ($1, $2, $3, $4)`,
		id, dataset, header, len(rows))
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert run: %w", err)
	}

	if len(rows) > 0 {
		batch := &pgx.Batch{}
		for i, row := range rows {
			batch.Queue(`INSERT INTO scrape_rows (run_id, position, data) VALUES ($1, $2, $3)`,
				id, i, rowDocument(header, row.Values()))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return uuid.Nil, fmt.Errorf("insert rows: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// LatestRun returns the most recent run of dataset.
func (s *PostgresStore) LatestRun(ctx context.Context, dataset string) (*RunInfo, error) {
	var info RunInfo
	err := s.db.QueryRow(ctx,
		`SELECT id, dataset, columns, row_count, created_at FROM scrape_runs
		 WHERE dataset = $1 ORDER BY created_at DESC LIMIT 1`,
		dataset,
	).Scan(&info.ID, &info.Dataset, &info.Columns, &info.Rows, &info.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// rowDocument pairs values with their column names. Extra values are dropped.
func rowDocument(header, values []string) map[string]string {
	doc := make(map[string]string, len(header))
	for i, col := range header {
		if i < len(values) {
			doc[col] = values[i]
		}
	}
	return doc
}
