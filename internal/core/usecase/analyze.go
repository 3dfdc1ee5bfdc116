package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/catalog-archive-analyzer/internal/core/domain"
	"github.com/kirillkom/catalog-archive-analyzer/internal/core/ports"
)

const (
	defaultMaxArchiveBytes     = 512 << 20
	defaultMaxSpreadsheetBytes = 64 << 20
)

// AnalyzeOptions bounds the work done per archive. MaxSpreadsheetBytes limits
// the uncompressed size of the spreadsheet entry that gets inspected.
type AnalyzeOptions struct {
	MaxArchiveBytes     int64
	MaxSpreadsheetBytes int64
	RemoteTimeout       time.Duration
}

// AnalyzeDeps lists collaborators. Remote, Inspector, Cache and Observer are optional.
type AnalyzeDeps struct {
	Decoder    ports.ArchiveDecoder
	Classifier ports.StructureClassifier
	Remote     ports.RemoteClassifier
	Inspector  ports.SpreadsheetInspector
	Cache      ports.ReportCache
	Observer   ports.AnalysisObserver
}

type AnalyzeArchiveUseCase struct {
	deps AnalyzeDeps
	opts AnalyzeOptions
	now  func() time.Time
}

func NewAnalyzeArchiveUseCase(deps AnalyzeDeps, opts AnalyzeOptions) *AnalyzeArchiveUseCase {
	if opts.MaxArchiveBytes <= 0 {
		opts.MaxArchiveBytes = defaultMaxArchiveBytes
	}
	if opts.MaxSpreadsheetBytes <= 0 {
		opts.MaxSpreadsheetBytes = defaultMaxSpreadsheetBytes
	}
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = 10 * time.Second
	}
	return &AnalyzeArchiveUseCase{
		deps: deps,
		opts: opts,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (uc *AnalyzeArchiveUseCase) Analyze(ctx context.Context, filename string, body io.Reader) (*domain.AnalysisReport, error) {
	if body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "analyze archive", errors.New("archive body is required"))
	}
	data, err := io.ReadAll(io.LimitReader(body, uc.opts.MaxArchiveBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	if int64(len(data)) > uc.opts.MaxArchiveBytes {
		return nil, domain.WrapError(
			domain.ErrArchiveTooLarge,
			"analyze archive",
			fmt.Errorf("archive exceeds %d bytes", uc.opts.MaxArchiveBytes),
		)
	}
	return uc.AnalyzeBytes(ctx, filename, data)
}

// AnalyzeBytes decodes the archive first so that corrupt input fails before any
// classification, then prefers the remote analyzer and falls back to the local
// classifier on any remote failure.
func (uc *AnalyzeArchiveUseCase) AnalyzeBytes(ctx context.Context, filename string, data []byte) (*domain.AnalysisReport, error) {
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "analyze archive", errors.New("archive is empty"))
	}
	started := time.Now()

	digest := sha256.Sum256(data)
	key := hex.EncodeToString(digest[:])
	if cached, ok := uc.cached(key); ok {
		cached.ArchiveName = filename
		uc.observe(cached.Provenance, cached.Result, time.Since(started))
		return cached, nil
	}

	archive, err := uc.deps.Decoder.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode archive: %w", err)
	}
	entries := archive.Entries()

	result, provenance, fallbackReason := uc.classify(ctx, filename, data, entries)
	report := &domain.AnalysisReport{
		ArchiveName:    filename,
		ArchiveSHA256:  key,
		Provenance:     provenance,
		FallbackReason: fallbackReason,
		Result:         result,
		Warnings:       []string{},
		AnalyzedAt:     uc.now(),
	}

	uc.inspectSpreadsheet(ctx, archive, entries, report)
	report.Warnings = append(report.Warnings, structureWarnings(report.Provenance, report.Result)...)

	if uc.deps.Cache != nil {
		uc.deps.Cache.Add(key, report)
	}
	uc.observe(report.Provenance, report.Result, time.Since(started))
	return report, nil
}

func (uc *AnalyzeArchiveUseCase) cached(key string) (*domain.AnalysisReport, bool) {
	if uc.deps.Cache == nil {
		return nil, false
	}
	hit, ok := uc.deps.Cache.Get(key)
	if !ok || hit == nil {
		return nil, false
	}
	report := hit.Clone()
	report.Provenance = domain.ProvenanceCache
	report.FallbackReason = ""
	return report, true
}

func (uc *AnalyzeArchiveUseCase) classify(
	ctx context.Context,
	filename string,
	data []byte,
	entries []domain.ArchiveEntry,
) (domain.ClassificationResult, domain.Provenance, string) {
	if uc.deps.Remote == nil {
		return uc.deps.Classifier.Classify(entries), domain.ProvenanceLocal, ""
	}

	remoteCtx, cancel := context.WithTimeout(ctx, uc.opts.RemoteTimeout)
	defer cancel()

	result, err := uc.deps.Remote.ClassifyArchive(remoteCtx, filename, data)
	if err == nil {
		return result.Normalize(), domain.ProvenanceRemote, ""
	}

	slog.Warn("remote_classifier_fallback",
		"archive", filename,
		"entries", len(entries),
		"error", err,
	)
	return uc.deps.Classifier.Classify(entries), domain.ProvenanceLocal, err.Error()
}

func (uc *AnalyzeArchiveUseCase) inspectSpreadsheet(
	ctx context.Context,
	archive ports.Archive,
	entries []domain.ArchiveEntry,
	report *domain.AnalysisReport,
) {
	if !report.Result.HasSpreadsheet {
		report.Warnings = append(report.Warnings, "no spreadsheet found in archive")
		return
	}
	if uc.deps.Inspector == nil {
		return
	}

	entry, ok := uc.deps.Classifier.SelectSpreadsheet(entries)
	if !ok {
		report.Warnings = append(report.Warnings, fmt.Sprintf("spreadsheet %q is not present in the archive", report.Result.SpreadsheetFileName))
		return
	}

	if entry.Size > uc.opts.MaxSpreadsheetBytes {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"spreadsheet %s is %d bytes uncompressed, over the %d byte limit; SKU rows were not checked",
			entry.Path, entry.Size, uc.opts.MaxSpreadsheetBytes,
		))
		return
	}

	body, err := archive.Open(entry.Path)
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("open spreadsheet %s: %v", entry.Path, err))
		return
	}
	defer body.Close()

	// Declared sizes can lie; never hand the inspector more than the limit.
	limited := io.LimitReader(body, uc.opts.MaxSpreadsheetBytes+1)
	summary, err := uc.deps.Inspector.Inspect(ctx, entry.Name(), limited)
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("inspect spreadsheet %s: %v", entry.Path, err))
		return
	}
	summary.Path = entry.Path
	report.Spreadsheet = &summary
	if summary.Note != "" {
		report.Warnings = append(report.Warnings, summary.Note)
	}
	if !summary.Supported {
		return
	}

	rec := Reconcile(summary.Skus, report.Result.SkuList)
	report.Reconciliation = &rec
	if n := len(rec.SkusWithoutFolder); n > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%d spreadsheet SKU(s) have no image folder: %s", n, previewList(rec.SkusWithoutFolder)))
	}
	if n := len(rec.FoldersWithoutRow); n > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%d image folder(s) have no spreadsheet row: %s", n, previewList(rec.FoldersWithoutRow)))
	}
}

func (uc *AnalyzeArchiveUseCase) observe(provenance domain.Provenance, result domain.ClassificationResult, elapsed time.Duration) {
	if uc.deps.Observer == nil {
		return
	}
	uc.deps.Observer.ObserveAnalysis(provenance, result, elapsed.Seconds())
}

func structureWarnings(provenance domain.Provenance, result domain.ClassificationResult) []string {
	var out []string
	if !result.HasImageFolder {
		out = append(out, "no images folder or SKU folders found")
	}
	// Remote peers need not report folder paths, so only local results are checked.
	if provenance == domain.ProvenanceLocal {
		if inferred := topLevelSKUs(result); len(inferred) > 0 {
			out = append(out, fmt.Sprintf("SKU folder(s) inferred from top-level directories without an images folder: %s", previewList(inferred)))
		}
	}
	if n := len(result.SkusMissingMainImage); n > 0 {
		out = append(out, fmt.Sprintf("%d SKU folder(s) missing a main image: %s", n, previewList(result.SkusMissingMainImage)))
	}
	return out
}

// topLevelSKUs lists SKUs whose folder sits at archive root. Those come from
// the no-images-wrapper fallback, which can misread unrelated folders.
func topLevelSKUs(result domain.ClassificationResult) []string {
	var out []string
	for _, folder := range result.SkuFolders {
		if folder.FolderPath != "" && !strings.Contains(folder.FolderPath, "/") {
			out = append(out, folder.SKU)
		}
	}
	return out
}

const previewLimit = 10

func previewList(values []string) string {
	if len(values) <= previewLimit {
		return strings.Join(values, ", ")
	}
	return strings.Join(values[:previewLimit], ", ") + fmt.Sprintf(" and %d more", len(values)-previewLimit)
}
