package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"newswire/api"
	"newswire/common"
	"newswire/config"
	"newswire/deduplication"
	"newswire/fetcher"
	"newswire/orchestrator"
	"newswire/shared/kafka"
	"newswire/storage"
	"newswire/types"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Database.DSN, cfg.Database.QueryTimeout, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer store.Close()

	// Optional bloom fast path: skipped entirely when Redis is not
	// configured.
	var bloom *deduplication.RedisBloom
	if cfg.Redis.Addr != "" {
		bloom, err = deduplication.NewRedisBloom(cfg.Redis)
		if err != nil {
			logger.Warn("redis bloom filter unavailable, continuing without it", zap.Error(err))
			bloom = nil
		}
	}

	classifier := deduplication.NewClassifier(deduplication.ClassifierConfig{
		Index:       store,
		Bloom:       bloom,
		WindowDays:  cfg.Ingest.WindowDays,
		WindowLimit: cfg.Ingest.WindowLimit,
		Logger:      logger,
	})

	newsClient := fetcher.NewClient(cfg.NewsAPI, logger)
	rssClient := fetcher.NewRSSClient(cfg.Ingest.DefaultFeedURL, fetcher.NewExtractor(logger), logger)

	// Optional raw-batch archival.
	var archiver orchestrator.Archiver
	if cfg.S3.Bucket != "" {
		s3Client, err := common.NewS3(ctx, cfg.S3)
		if err != nil {
			logger.Warn("s3 unavailable, batch archival disabled", zap.Error(err))
		} else {
			archiver = common.NewArchiver(s3Client, cfg.S3, logger)
		}
	}

	orch := orchestrator.New(orchestrator.Config{
		Sources: map[types.SourceType]orchestrator.Source{
			types.SourceNewsAPI: newsClient,
			types.SourceRSS:     rssClient,
		},
		Store:       store,
		Classifier:  classifier,
		Archiver:    archiver,
		APIKey:      cfg.NewsAPI.APIKey,
		RunDeadline: cfg.Ingest.RunDeadline,
		Logger:      logger,
	})

	// Optional Kafka trigger topic.
	if len(cfg.Kafka.Brokers) > 0 {
		consumer, err := kafka.NewConsumer(cfg.Kafka, kafka.NewIngestHandler(orch, logger), logger)
		if err != nil {
			logger.Warn("kafka consumer unavailable, trigger topic disabled", zap.Error(err))
		} else {
			if err := consumer.Start(ctx); err != nil {
				logger.Warn("kafka consumer failed to start", zap.Error(err))
			}
			defer consumer.Close()
		}
	}

	router := api.NewRouter(api.Deps{Runner: orch, Runs: store, Logger: logger})
	server := &http.Server{Addr: ":" + cfg.Port, Handler: router}

	go func() {
		logger.Info("starting api server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Database.QueryTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
