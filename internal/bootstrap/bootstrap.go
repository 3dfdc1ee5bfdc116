package bootstrap

import (
	"context"
	"fmt"

	"github.com/kirillkom/catalog-archive-analyzer/internal/config"
	"github.com/kirillkom/catalog-archive-analyzer/internal/core/classifier"
	"github.com/kirillkom/catalog-archive-analyzer/internal/core/ports"
	"github.com/kirillkom/catalog-archive-analyzer/internal/core/usecase"
	"github.com/kirillkom/catalog-archive-analyzer/internal/infrastructure/archive/zipdecoder"
	"github.com/kirillkom/catalog-archive-analyzer/internal/infrastructure/cache/lru"
	"github.com/kirillkom/catalog-archive-analyzer/internal/infrastructure/queue/nats"
	"github.com/kirillkom/catalog-archive-analyzer/internal/infrastructure/remote"
	"github.com/kirillkom/catalog-archive-analyzer/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/catalog-archive-analyzer/internal/infrastructure/resilience"
	"github.com/kirillkom/catalog-archive-analyzer/internal/infrastructure/spreadsheet/excel"
	"github.com/kirillkom/catalog-archive-analyzer/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/catalog-archive-analyzer/internal/infrastructure/storage/s3"
)

// Observer is implemented by the per-binary metrics.
type Observer interface {
	ports.AnalysisObserver
	resilience.Observer
}

type App struct {
	Config config.Config

	Queue     *nats.Queue
	Repo      ports.AnalysisRepository
	AnalyzeUC *usecase.AnalyzeArchiveUseCase
	UploadUC  *usecase.UploadArchiveUseCase
	ProcessUC ports.AnalysisProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, observer Observer) (*App, error) {
	executor := resilience.NewExecutorWithObserver(cfg.Resilience, observer)

	analyzeUC, err := NewAnalyzer(cfg, observer, executor)
	if err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewAnalysisRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := newObjectStorage(cfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.ArchiveSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	uploadUC := usecase.NewUploadArchiveUseCase(repo, storage, queue)
	processUC := usecase.NewProcessAnalysisUseCase(repo, storage, analyzeUC)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		AnalyzeUC: analyzeUC,
		UploadUC:  uploadUC,
		ProcessUC: processUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// NewAnalyzer builds the analysis pipeline only. observer and executor may be nil;
// the remote classifier is wired when REMOTE_CLASSIFIER_URL is set.
func NewAnalyzer(cfg config.Config, observer ports.AnalysisObserver, executor *resilience.Executor) (*usecase.AnalyzeArchiveUseCase, error) {
	rules, err := config.LoadClassifierRules(cfg.ClassifierRulesFile)
	if err != nil {
		return nil, err
	}

	deps := usecase.AnalyzeDeps{
		Decoder:    zipdecoder.New(cfg.MaxArchiveEntries),
		Classifier: classifier.New(rules.Classifier),
		Inspector:  excel.NewInspector(rules.SKUHeaders, rules.MaxRows, cfg.MaxSpreadsheetBytes),
	}
	if observer != nil {
		deps.Observer = observer
	}

	if cfg.ReportCacheSize > 0 {
		cache, err := lru.New(cfg.ReportCacheSize)
		if err != nil {
			return nil, err
		}
		deps.Cache = cache
	}

	if cfg.RemoteClassifierURL != "" {
		client, err := remote.New(cfg.RemoteClassifierURL, remote.Options{
			Timeout:     cfg.RemoteClassifierTimeout,
			RetryBudget: cfg.RemoteClassifierTimeout,
			Executor:    executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init remote classifier: %w", err)
		}
		deps.Remote = client
	}

	return usecase.NewAnalyzeArchiveUseCase(deps, usecase.AnalyzeOptions{
		MaxArchiveBytes:     cfg.MaxArchiveBytes,
		MaxSpreadsheetBytes: cfg.MaxSpreadsheetBytes,
		RemoteTimeout:       cfg.RemoteClassifierTimeout,
	}), nil
}

func newObjectStorage(cfg config.Config) (ports.ObjectStorage, error) {
	switch cfg.StorageBackend {
	case "", "local":
		return localfs.New(cfg.StoragePath)
	case "s3":
		return s3.New(s3.Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
