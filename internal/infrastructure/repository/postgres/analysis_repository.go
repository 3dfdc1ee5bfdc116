package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/catalog-archive-analyzer/internal/core/domain"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *AnalysisRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS archive_analyses (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	size_bytes BIGINT NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	report JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_archive_analyses_status ON archive_analyses(status);
CREATE INDEX IF NOT EXISTS idx_archive_analyses_created_at ON archive_analyses(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) Create(ctx context.Context, analysis *domain.Analysis) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO archive_analyses (
	id, filename, mime_type, storage_path, size_bytes, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		analysis.ID, analysis.Filename, analysis.MimeType, analysis.StoragePath, analysis.SizeBytes,
		string(analysis.Status), analysis.Error, analysis.CreatedAt, analysis.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*domain.Analysis, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, mime_type, storage_path, size_bytes, status, error_message, report, created_at, updated_at
FROM archive_analyses
WHERE id = $1
`, id)

	var analysis domain.Analysis
	var status string
	var reportRaw []byte

	err := row.Scan(
		&analysis.ID, &analysis.Filename, &analysis.MimeType, &analysis.StoragePath, &analysis.SizeBytes,
		&status, &analysis.Error, &reportRaw, &analysis.CreatedAt, &analysis.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrAnalysisNotFound, "get analysis", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan analysis: %w", err)
	}

	if len(reportRaw) > 0 {
		var report domain.AnalysisReport
		if err := json.Unmarshal(reportRaw, &report); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		report.Result = report.Result.Normalize()
		analysis.Report = &report
	}
	analysis.Status = domain.AnalysisStatus(status)
	return &analysis, nil
}

func (r *AnalysisRepository) UpdateStatus(ctx context.Context, id string, status domain.AnalysisStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE archive_analyses
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update analysis status: %w", err)
	}
	return ensureAffected(res, "update analysis status", id)
}

func (r *AnalysisRepository) SaveReport(ctx context.Context, id string, report *domain.AnalysisReport) error {
	if report == nil {
		return domain.WrapError(domain.ErrInvalidInput, "save report", errors.New("report is nil"))
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE archive_analyses
SET report = $2, updated_at = $3
WHERE id = $1
`, id, reportJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return ensureAffected(res, "save report", id)
}

func ensureAffected(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrAnalysisNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}
