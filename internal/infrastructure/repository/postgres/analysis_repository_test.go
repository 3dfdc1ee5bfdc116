package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/catalog-archive-analyzer/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*AnalysisRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &AnalysisRepository{db: db}, mock, func() { _ = db.Close() }
}

var analysisColumns = []string{
	"id", "filename", "mime_type", "storage_path", "size_bytes", "status", "error_message", "report", "created_at", "updated_at",
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, filename, mime_type, storage_path").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrAnalysisNotFound) {
		t.Fatalf("expected ErrAnalysisNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDDecodesReport(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	report := []byte(`{"archive_name":"a.zip","provenance":"local","result":{"image_count":3,"sku_list":["A1"]},"warnings":[]}`)
	mock.ExpectQuery("SELECT id, filename, mime_type, storage_path").
		WithArgs("an-1").
		WillReturnRows(sqlmock.NewRows(analysisColumns).
			AddRow("an-1", "a.zip", "application/zip", "an-1_a.zip", int64(42), "ready", "", report, now, now))

	analysis, err := repo.GetByID(context.Background(), "an-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if analysis.Status != domain.StatusReady || analysis.SizeBytes != 42 {
		t.Fatalf("unexpected analysis: %+v", analysis)
	}
	if analysis.Report == nil || analysis.Report.Provenance != domain.ProvenanceLocal {
		t.Fatalf("expected decoded report, got %+v", analysis.Report)
	}
	if analysis.Report.Result.ImageCount != 3 || analysis.Report.Result.SkuFolders == nil {
		t.Fatalf("expected normalized result, got %+v", analysis.Report.Result)
	}
}

func TestGetByIDWithoutReport(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, filename, mime_type, storage_path").
		WithArgs("an-2").
		WillReturnRows(sqlmock.NewRows(analysisColumns).
			AddRow("an-2", "b.zip", "application/zip", "an-2_b.zip", int64(1), "uploaded", "", nil, now, now))

	analysis, err := repo.GetByID(context.Background(), "an-2")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if analysis.Report != nil {
		t.Fatalf("expected no report, got %+v", analysis.Report)
	}
}

func TestCreateInsertsRow(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectExec("INSERT INTO archive_analyses").
		WithArgs("an-1", "a.zip", "application/zip", "an-1_a.zip", int64(10), "uploaded", "", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &domain.Analysis{
		ID:          "an-1",
		Filename:    "a.zip",
		MimeType:    "application/zip",
		StoragePath: "an-1_a.zip",
		SizeBytes:   10,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE archive_analyses").
		WithArgs("missing", string(domain.StatusProcessing), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusProcessing, "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrAnalysisNotFound) {
		t.Fatalf("expected ErrAnalysisNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveReportReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE archive_analyses").
		WithArgs("missing", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveReport(context.Background(), "missing", &domain.AnalysisReport{
		ArchiveName: "a.zip",
		Provenance:  domain.ProvenanceRemote,
		Result:      domain.EmptyClassification(),
	})
	if !domain.IsKind(err, domain.ErrAnalysisNotFound) {
		t.Fatalf("expected ErrAnalysisNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveReportRejectsNil(t *testing.T) {
	repo, _, done := newRepoWithMock(t)
	defer done()

	if err := repo.SaveReport(context.Background(), "an-1", nil); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(int64(2026101801)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS archive_analyses").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
