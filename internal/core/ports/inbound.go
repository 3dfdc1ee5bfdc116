package ports

import (
	"context"
	"io"

	"github.com/kirillkom/catalog-archive-analyzer/internal/core/domain"
)

// ArchiveAnalyzer is the inbound contract for synchronous archive analysis.
type ArchiveAnalyzer interface {
	Analyze(ctx context.Context, filename string, body io.Reader) (*domain.AnalysisReport, error)
}

// ArchiveUploader stores an archive and schedules its analysis.
type ArchiveUploader interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Analysis, error)
}

// AnalysisReader is the inbound read model for analysis state.
type AnalysisReader interface {
	GetByID(ctx context.Context, id string) (*domain.Analysis, error)
}

// AnalysisProcessor is the inbound contract for asynchronous analysis jobs.
type AnalysisProcessor interface {
	ProcessByID(ctx context.Context, analysisID string) error
}
