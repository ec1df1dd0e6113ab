package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dusk-indust/flowscan/internal/export"
)

// Compile-time assertion: *PGStore satisfies Store.
var _ Store = (*PGStore)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS scans (
    scan_id         TEXT PRIMARY KEY,
    repository_path TEXT NOT NULL,
    scan_type       TEXT NOT NULL DEFAULT 'full',
    performed_by    TEXT NOT NULL DEFAULT 'system',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at    TIMESTAMPTZ,
    status          TEXT NOT NULL DEFAULT 'queued',
    viewed          BOOLEAN NOT NULL DEFAULT FALSE,
    files_scanned   INTEGER NOT NULL DEFAULT 0,
    nodes_found     INTEGER NOT NULL DEFAULT 0,
    total_files     INTEGER NOT NULL DEFAULT 0,
    scan_duration   DOUBLE PRECISION NOT NULL DEFAULT 0,
    errors          JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS scan_results (
    scan_id    TEXT PRIMARY KEY REFERENCES scans(scan_id) ON DELETE CASCADE,
    result     JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_scans_created_at ON scans(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_scans_status     ON scans(status);
`

// PGStore implements Store using PostgreSQL via pgx.
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore creates a PGStore backed by the given connection pool.
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// CreateSchema creates the history tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

func (s *PGStore) SaveScan(ctx context.Context, meta *ScanMetadata) error {
	errs, err := json.Marshal(meta.Errors)
	if err != nil {
		return fmt.Errorf("history: marshal errors: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO scans (scan_id, repository_path, scan_type, performed_by,
			created_at, completed_at, status, viewed, files_scanned,
			nodes_found, total_files, scan_duration, errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (scan_id) DO UPDATE SET
			completed_at  = EXCLUDED.completed_at,
			status        = EXCLUDED.status,
			viewed        = EXCLUDED.viewed,
			files_scanned = EXCLUDED.files_scanned,
			nodes_found   = EXCLUDED.nodes_found,
			total_files   = EXCLUDED.total_files,
			scan_duration = EXCLUDED.scan_duration,
			errors        = EXCLUDED.errors`,
		meta.ScanID, meta.RepositoryPath, meta.ScanType, meta.PerformedBy,
		meta.CreatedAt, meta.CompletedAt, meta.Status, meta.Viewed,
		meta.FilesScanned, meta.NodesFound, meta.TotalFiles,
		meta.ScanDuration, errs,
	)
	if err != nil {
		return fmt.Errorf("history: save scan: %w", err)
	}
	return nil
}

const scanColumns = `scan_id, repository_path, scan_type, performed_by,
	created_at, completed_at, status, viewed, files_scanned, nodes_found,
	total_files, scan_duration, errors`

func (s *PGStore) GetScan(ctx context.Context, id string) (*ScanMetadata, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+scanColumns+` FROM scans WHERE scan_id = $1`, id)
	meta, err := scanRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("history: get scan: %w", err)
	}
	return meta, nil
}

func (s *PGStore) ListScans(ctx context.Context, limit, offset int) ([]*ScanMetadata, error) {
	query := `SELECT ` + scanColumns + ` FROM scans ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list scans: %w", err)
	}
	defer rows.Close()

	var list []*ScanMetadata
	for rows.Next() {
		meta, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("history: scan row: %w", err)
		}
		list = append(list, meta)
	}
	return list, rows.Err()
}

func (s *PGStore) MarkViewed(ctx context.Context, id string) error {
	ct, err := s.db.Exec(ctx,
		`UPDATE scans SET viewed = TRUE WHERE scan_id = $1`, id)
	if err != nil {
		return fmt.Errorf("history: mark viewed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) UnviewedCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM scans WHERE status = $1 AND NOT viewed`,
		StateCompleted,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("history: unviewed count: %w", err)
	}
	return count, nil
}

func (s *PGStore) SaveResult(ctx context.Context, id string, result *export.ResultExport) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("history: marshal result: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO scan_results (scan_id, result) VALUES ($1, $2)
		ON CONFLICT (scan_id) DO UPDATE SET result = EXCLUDED.result`,
		id, data,
	)
	if err != nil {
		return fmt.Errorf("history: save result: %w", err)
	}
	return nil
}

func (s *PGStore) GetResult(ctx context.Context, id string) (*export.ResultExport, error) {
	var data []byte
	err := s.db.QueryRow(ctx,
		`SELECT result FROM scan_results WHERE scan_id = $1`, id,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("history: get result: %w", err)
	}
	var result export.ResultExport
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("history: unmarshal result: %w", err)
	}
	return &result, nil
}

func (s *PGStore) DeleteScan(ctx context.Context, id string) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM scans WHERE scan_id = $1`, id)
	if err != nil {
		return fmt.Errorf("history: delete scan: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the connection pool.
func (s *PGStore) Close() error {
	s.db.Close()
	return nil
}

// scanRow reads one scans row into a ScanMetadata.
func scanRow(row pgx.Row) (*ScanMetadata, error) {
	var meta ScanMetadata
	var errs []byte
	err := row.Scan(
		&meta.ScanID, &meta.RepositoryPath, &meta.ScanType, &meta.PerformedBy,
		&meta.CreatedAt, &meta.CompletedAt, &meta.Status, &meta.Viewed,
		&meta.FilesScanned, &meta.NodesFound, &meta.TotalFiles,
		&meta.ScanDuration, &errs,
	)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		if err := json.Unmarshal(errs, &meta.Errors); err != nil {
			return nil, err
		}
	}
	return &meta, nil
}
