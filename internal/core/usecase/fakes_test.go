package usecase

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/kirillkom/catalog-archive-analyzer/internal/core/domain"
	"github.com/kirillkom/catalog-archive-analyzer/internal/core/ports"
)

type archiveFake struct {
	entries  []domain.ArchiveEntry
	contents map[string]string
}

func (a *archiveFake) Entries() []domain.ArchiveEntry { return a.entries }

func (a *archiveFake) Open(path string) (io.ReadCloser, error) {
	body, ok := a.contents[path]
	if !ok {
		return nil, errors.New("file not found in archive")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

type decoderFake struct {
	archive *archiveFake
	err     error
	calls   int
}

func (f *decoderFake) Decode([]byte) (ports.Archive, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.archive, nil
}

type remoteFake struct {
	result domain.ClassificationResult
	err    error
	calls  int
	ctxErr error
}

func (f *remoteFake) ClassifyArchive(ctx context.Context, _ string, _ []byte) (domain.ClassificationResult, error) {
	f.calls++
	if f.err != nil {
		return domain.ClassificationResult{}, f.err
	}
	if _, ok := ctx.Deadline(); !ok {
		f.ctxErr = errors.New("remote call without deadline")
	}
	return f.result, nil
}

type inspectorFake struct {
	summary  domain.SpreadsheetSummary
	err      error
	gotName  string
	gotBody  string
	inspects int
}

func (f *inspectorFake) Inspect(_ context.Context, fileName string, body io.Reader) (domain.SpreadsheetSummary, error) {
	f.inspects++
	f.gotName = fileName
	raw, _ := io.ReadAll(body)
	f.gotBody = string(raw)
	if f.err != nil {
		return domain.SpreadsheetSummary{}, f.err
	}
	return f.summary, nil
}

type cacheFake struct {
	items map[string]*domain.AnalysisReport
}

func newCacheFake() *cacheFake {
	return &cacheFake{items: make(map[string]*domain.AnalysisReport)}
}

func (c *cacheFake) Get(key string) (*domain.AnalysisReport, bool) {
	report, ok := c.items[key]
	return report, ok
}

func (c *cacheFake) Add(key string, report *domain.AnalysisReport) {
	c.items[key] = report
}

type observerFake struct {
	provenances []domain.Provenance
}

func (o *observerFake) ObserveAnalysis(provenance domain.Provenance, _ domain.ClassificationResult, _ float64) {
	o.provenances = append(o.provenances, provenance)
}
