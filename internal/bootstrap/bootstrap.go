package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/rxverify/internal/config"
	"github.com/kirillkom/rxverify/internal/core/domain"
	"github.com/kirillkom/rxverify/internal/core/ports"
	"github.com/kirillkom/rxverify/internal/core/usecase"
	"github.com/kirillkom/rxverify/internal/infrastructure/cache/badger"
	"github.com/kirillkom/rxverify/internal/infrastructure/extractor/labels"
	"github.com/kirillkom/rxverify/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/rxverify/internal/infrastructure/queue/nats"
	"github.com/kirillkom/rxverify/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/rxverify/internal/infrastructure/resilience"
	"github.com/kirillkom/rxverify/internal/infrastructure/sources"
	"github.com/kirillkom/rxverify/internal/infrastructure/vector/qdrant"
)

type Options struct {
	Logger *slog.Logger

	// Observer receives retry and breaker transitions. When it also
	// implements ports.SearchObserver the search pipelines report to it.
	Observer resilience.Observer

	// SearchCache opens the embedded result cache. Only processes serving
	// search traffic need it.
	SearchCache bool

	// SearchCacheInMemory ignores CACHE_DIR. Badger locks its directory to
	// a single process.
	SearchCacheInMemory bool
}

type App struct {
	Config config.Config

	Queue *nats.Queue

	CrossCheck      ports.CrossCheckService
	Search          ports.DrugSearchService
	Ratings         ports.RatingService
	Imports         ports.ImportService
	ImportProcessor ports.ImportProcessor
	SearchStats     ports.SearchStatsRecorder

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	watch, err := parseWatchFields(cfg.WatchFields)
	if err != nil {
		return nil, err
	}

	executorOpts := []resilience.Option{resilience.WithLogger(logger)}
	if opts.Observer != nil {
		executorOpts = append(executorOpts, resilience.WithObserver(opts.Observer))
	}
	executor := resilience.NewExecutor(
		resilience.DefaultConfig().WithOverrides(cfg.RetryMaxAttempts, cfg.BreakerEnabled, cfg.BreakerOpenPeriod),
		executorOpts...,
	)
	sourcesExecutor := resilience.NewExecutor(
		resilience.PublicAPIConfig().WithOverrides(cfg.RetryMaxAttempts, cfg.BreakerEnabled, cfg.BreakerOpenPeriod),
		executorOpts...,
	)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	drugs := postgres.NewDrugRepository(db)
	ratings := postgres.NewRatingRepository(db)
	importRepo := postgres.NewImportRepository(db)

	queue, err := nats.New(cfg.NATSURL, nats.Subjects{
		SearchEvents:   cfg.NATSSearchEventSubject,
		ImportRequests: cfg.NATSImportSubject,
	}, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	var searchCache ports.SearchCache
	var cacheStore *badger.Cache
	if opts.SearchCache {
		cacheStore, err = badger.Open(searchCacheDir(cfg, opts), logger)
		if err != nil {
			queue.Close()
			_ = db.Close()
			return nil, fmt.Errorf("open search cache: %w", err)
		}
		searchCache = cacheStore
	}

	rxnorm := sources.NewRxNorm(sourceURL(cfg, "rxnorm", sources.DefaultRxNormURL), sourcesExecutor)
	fetchers := buildFetchers(cfg, rxnorm, sourcesExecutor, logger)

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient, cfg.AnswerFallback, logger)

	var candidates ports.CandidateStore
	var queryEmbedder ports.Embedder
	var index ports.CandidateIndex
	var docEmbedder ports.DocumentEmbedder
	if cfg.VectorEnabled {
		vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, executor)
		candidates, index = vectorDB, vectorDB
		queryEmbedder, docEmbedder = embedder, embedder
	}

	unifier := usecase.NewUnifier(labels.Registry(), watch, logger)
	queryCfg := usecase.DefaultQueryConfig()
	queryCfg.TopK = cfg.QueryTopK
	queryCfg.MinScore = cfg.QueryMinScore
	queryUC := usecase.NewQueryUseCase(fetchers, candidates, queryEmbedder, generator, unifier, queryCfg)
	queryUC.SetLogger(logger)

	searchUC := usecase.NewSearchUseCase(drugs, rxnorm, searchCache, queue, usecase.SearchConfig{
		DefaultLimit: cfg.SearchDefaultLimit,
		MaxLimit:     cfg.SearchMaxLimit,
		CacheTTL:     cfg.CacheTTL,
	})
	searchUC.SetLogger(logger)

	if observer, ok := opts.Observer.(ports.SearchObserver); ok {
		queryUC.SetObserver(observer)
		searchUC.SetObserver(observer)
	}

	ratingUC := usecase.NewRatingUseCase(ratings, usecase.RatingConfig{
		HideThreshold: cfg.RatingHideThreshold,
		MinVotes:      cfg.RatingMinVotes,
	})
	importUC := usecase.NewImportRequestUseCase(importRepo, queue)
	processUC := usecase.NewImportDrugUseCase(importRepo, rxnorm, drugs, docEmbedder, index)
	statsUC := usecase.NewSearchStatsUseCase(drugs)

	logger.Info("bootstrap_ready",
		"sources", len(fetchers),
		"vector_enabled", cfg.VectorEnabled,
		"search_cache", opts.SearchCache,
	)

	return &App{
		Config: cfg,
		Queue:  queue,

		CrossCheck:      queryUC,
		Search:          searchUC,
		Ratings:         ratingUC,
		Imports:         importUC,
		ImportProcessor: processUC,
		SearchStats:     statsUC,

		closeFn: func() {
			queue.Close()
			if cacheStore != nil {
				if err := cacheStore.Close(); err != nil {
					logger.Warn("search_cache_close_failed", "error", err)
				}
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func buildFetchers(cfg config.Config, rxnorm *sources.RxNormFetcher, executor *resilience.Executor, logger *slog.Logger) []ports.SourceFetcher {
	var fetchers []ports.SourceFetcher
	if cfg.Sources["rxnorm"].Enabled {
		fetchers = append(fetchers, rxnorm)
	}
	if src := cfg.Sources["dailymed"]; src.Enabled {
		fetchers = append(fetchers, sources.NewDailyMed(src.BaseURL, rxnorm, executor, logger))
	}
	if src := cfg.Sources["openfda"]; src.Enabled {
		fetchers = append(fetchers, sources.NewOpenFDA(src.BaseURL, src.APIKey, executor, logger))
	}
	if src := cfg.Sources["drugbank"]; src.Enabled {
		fetchers = append(fetchers, sources.NewDrugBank(src.BaseURL, src.APIKey, executor))
	}
	return fetchers
}

func sourceURL(cfg config.Config, name, fallback string) string {
	if url := strings.TrimSpace(cfg.Sources[name].BaseURL); url != "" {
		return url
	}
	return fallback
}

func parseWatchFields(raw []string) ([]domain.Field, error) {
	fields := make([]domain.Field, 0, len(raw))
	for _, name := range raw {
		field, ok := domain.ParseField(strings.TrimSpace(name))
		if !ok {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse watch fields", fmt.Errorf("unknown field %q", name))
		}
		fields = append(fields, field)
	}
	return fields, nil
}

// searchCacheDir is empty for an in-memory cache.
func searchCacheDir(cfg config.Config, opts Options) string {
	if opts.SearchCacheInMemory {
		return ""
	}
	return cfg.CacheDir
}
