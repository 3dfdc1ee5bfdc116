package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/catalog-archive-analyzer/internal/core/domain"
	"github.com/kirillkom/catalog-archive-analyzer/internal/core/ports"
)

type ProcessAnalysisUseCase struct {
	repo     ports.AnalysisRepository
	storage  ports.ObjectStorage
	analyzer ports.ArchiveAnalyzer
}

func NewProcessAnalysisUseCase(
	repo ports.AnalysisRepository,
	storage ports.ObjectStorage,
	analyzer ports.ArchiveAnalyzer,
) *ProcessAnalysisUseCase {
	return &ProcessAnalysisUseCase{
		repo:     repo,
		storage:  storage,
		analyzer: analyzer,
	}
}

func (uc *ProcessAnalysisUseCase) ProcessByID(ctx context.Context, analysisID string) error {
	if err := uc.markStatus(ctx, analysisID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	report, err := uc.processPipeline(ctx, analysisID)
	if err != nil {
		if failErr := uc.markFailed(ctx, analysisID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.persistReport(ctx, analysisID, report); err != nil {
		if failErr := uc.markFailed(ctx, analysisID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, analysisID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	slog.Info("analysis_processed",
		"analysis_id", analysisID,
		"provenance", string(report.Provenance),
		"sku_folders", len(report.Result.SkuFolders),
		"missing_main_images", len(report.Result.SkusMissingMainImage),
	)
	return nil
}

func (uc *ProcessAnalysisUseCase) processPipeline(ctx context.Context, analysisID string) (*domain.AnalysisReport, error) {
	analysis, err := uc.repo.GetByID(ctx, analysisID)
	if err != nil {
		return nil, fmt.Errorf("fetch analysis by id: %w", err)
	}

	body, err := uc.storage.Open(ctx, analysis.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open stored archive: %w", err)
	}
	defer body.Close()

	report, err := uc.analyzer.Analyze(ctx, analysis.Filename, body)
	if err != nil {
		return nil, fmt.Errorf("analyze archive: %w", err)
	}
	return report, nil
}

func (uc *ProcessAnalysisUseCase) persistReport(ctx context.Context, analysisID string, report *domain.AnalysisReport) error {
	if err := uc.repo.SaveReport(ctx, analysisID, report); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func (uc *ProcessAnalysisUseCase) markStatus(ctx context.Context, analysisID string, status domain.AnalysisStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, analysisID, status, errMessage)
}

func (uc *ProcessAnalysisUseCase) markFailed(ctx context.Context, analysisID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, analysisID, domain.StatusFailed, processErr.Error())
}
