package ports

import (
	"context"
	"io"

	"github.com/kirillkom/catalog-archive-analyzer/internal/core/domain"
)

// AnalysisRepository persists and reads analysis state.
type AnalysisRepository interface {
	Create(ctx context.Context, analysis *domain.Analysis) error
	GetByID(ctx context.Context, id string) (*domain.Analysis, error)
	UpdateStatus(ctx context.Context, id string, status domain.AnalysisStatus, errMessage string) error
	SaveReport(ctx context.Context, id string, report *domain.AnalysisReport) error
}

// ObjectStorage stores uploaded archives.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes analysis jobs.
type MessageQueue interface {
	PublishArchiveUploaded(ctx context.Context, analysisID string) error
	SubscribeArchiveUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// Archive is a decoded archive: its entry list plus access to file contents.
type Archive interface {
	Entries() []domain.ArchiveEntry
	Open(path string) (io.ReadCloser, error)
}

// ArchiveDecoder turns raw archive bytes into entries. Decoding failures are
// reported before any classification happens.
type ArchiveDecoder interface {
	Decode(data []byte) (Archive, error)
}

// StructureClassifier classifies a decoded entry list locally.
type StructureClassifier interface {
	Classify(entries []domain.ArchiveEntry) domain.ClassificationResult
	SelectSpreadsheet(entries []domain.ArchiveEntry) (domain.ArchiveEntry, bool)
}

// RemoteClassifier asks the server-side analyzer to classify raw archive bytes.
type RemoteClassifier interface {
	ClassifyArchive(ctx context.Context, filename string, data []byte) (domain.ClassificationResult, error)
}

// SpreadsheetInspector reads the product rows of an import spreadsheet.
type SpreadsheetInspector interface {
	Inspect(ctx context.Context, fileName string, body io.Reader) (domain.SpreadsheetSummary, error)
}

// ReportCache keeps recent reports keyed by archive content hash.
type ReportCache interface {
	Get(key string) (*domain.AnalysisReport, bool)
	Add(key string, report *domain.AnalysisReport)
}

// AnalysisObserver receives analysis outcomes for metrics.
type AnalysisObserver interface {
	ObserveAnalysis(provenance domain.Provenance, result domain.ClassificationResult, seconds float64)
}
