package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/catalog-archive-analyzer/internal/core/domain"
	"github.com/kirillkom/catalog-archive-analyzer/internal/core/ports"
)

type UploadArchiveUseCase struct {
	repo    ports.AnalysisRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewUploadArchiveUseCase(
	repo ports.AnalysisRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *UploadArchiveUseCase {
	return &UploadArchiveUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *UploadArchiveUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.Analysis, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".zip") {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload archive", fmt.Errorf("expected a .zip file, got %q", filename))
	}
	if body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload archive", errors.New("archive body is required"))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	counter := &countingReader{r: body}
	if err := uc.storage.Save(ctx, storageKey, counter); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}
	if counter.n == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload archive", errors.New("archive is empty"))
	}

	analysis := &domain.Analysis{
		ID:          id,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		SizeBytes:   counter.n,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, analysis); err != nil {
		return nil, fmt.Errorf("create analysis record: %w", err)
	}

	if err := uc.queue.PublishArchiveUploaded(ctx, analysis.ID); err != nil {
		return nil, fmt.Errorf("publish analysis job: %w", err)
	}

	return analysis, nil
}

func (uc *UploadArchiveUseCase) GetByID(ctx context.Context, id string) (*domain.Analysis, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get analysis", errors.New("analysis id is required"))
	}
	return uc.repo.GetByID(ctx, id)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "archive.zip"
	}
	return base
}
