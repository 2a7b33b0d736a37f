package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"text2model/app/config"
	"text2model/app/usecase"
	"text2model/internal/domain/entity"
	"text2model/internal/domain/repository"
	"text2model/internal/infrastructure/generation"
	"text2model/internal/infrastructure/llm"
	"text2model/internal/infrastructure/store/filesystem"
	"text2model/internal/infrastructure/store/memory"
	mongorepo "text2model/internal/infrastructure/store/mongodb"
	redisstore "text2model/internal/infrastructure/store/redis"
	"text2model/internal/infrastructure/transport"
	"text2model/internal/resilience"
)

// application holds the wired services and the resources to release on exit.
type application struct {
	pipeline  *usecase.Pipeline
	jobs      repository.JobRepository
	artifacts repository.ArtifactRepository
	files     *filesystem.ArtifactStore
	configs   repository.UserConfigStore
	checks    map[string]transport.HealthCheck
	closers   []func(context.Context) error
	logger    *slog.Logger
}

func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		jobs:      memory.NewJobRepo(),
		artifacts: memory.NewArtifactRepo(),
		configs:   memory.NewUserConfigStore(),
		checks:    map[string]transport.HealthCheck{},
		logger:    logger,
	}

	err := app.open(ctx,
		func(context.Context) error { return app.openFiles(cfg) },
		func(ctx context.Context) error { return app.openMongo(ctx, cfg) },
		func(ctx context.Context) error { return app.openRedis(ctx, cfg) },
	)
	if err != nil {
		return nil, err
	}
	app.buildPipeline(ctx, cfg)
	return app, nil
}

// open runs the setup steps in order. When one fails, everything the earlier
// steps registered in closers is released before the error is returned.
func (a *application) open(ctx context.Context, steps ...func(context.Context) error) error {
	for _, step := range steps {
		if err := step(ctx); err != nil {
			a.Close(context.WithoutCancel(ctx))
			return err
		}
	}
	return nil
}

func (a *application) openFiles(cfg *config.Config) error {
	files, err := filesystem.NewArtifactStore(cfg.Storage.OutputDir)
	if err != nil {
		return fmt.Errorf("init artifact store: %w", err)
	}
	a.files = files
	return nil
}

func (a *application) openMongo(ctx context.Context, cfg *config.Config) error {
	if cfg.Mongo.URI == "" {
		return nil
	}
	mongoCtx, mongoCancel := context.WithTimeout(ctx, 10*time.Second)
	defer mongoCancel()

	mongoClient, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	a.closers = append(a.closers, mongoClient.Disconnect)
	if err := mongoClient.Ping(mongoCtx, nil); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}
	a.logger.Info("connected to mongo", "database", cfg.Mongo.Database)

	db := mongoClient.Database(cfg.Mongo.Database)
	a.jobs = mongorepo.NewMongoJobRepo(db, a.logger)
	a.artifacts = mongorepo.NewMongoArtifactRepo(db, a.logger)
	a.checks["mongo"] = func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }
	return nil
}

func (a *application) openRedis(ctx context.Context, cfg *config.Config) error {
	if cfg.Redis.Addr == "" {
		return nil
	}
	store := redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redisstore.WithTTL(cfg.Redis.TTL))
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	a.logger.Info("connected to redis", "addr", cfg.Redis.Addr)
	a.configs = store
	a.checks["redis"] = store.Ping
	return nil
}

func (a *application) buildPipeline(ctx context.Context, cfg *config.Config) {
	enhancer := llm.NewOllamaEnhancer(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Temperature, cfg.LLM.Timeout, a.logger)
	if err := enhancer.Ping(ctx); err != nil {
		a.logger.Warn("ollama is not reachable, prompts will not be enhanced until it is", "err", err)
	}
	a.checks["ollama"] = enhancer.Ping

	services := generation.NewClient(cfg.Generation.URLTemplate, cfg.Generation.Timeout, a.logger)

	policy := resilience.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		Multiplier:  cfg.Retry.Multiplier,
		Logger:      a.logger,
	}
	stages := usecase.NewStageAdapters(enhancer, services, policy, a.logger)

	a.pipeline = usecase.NewPipeline(stages, a.files, a.configs, entity.ServiceIDs{
		TextToImage:           cfg.Generation.TextToImage,
		TextToImageSecondary:  cfg.Generation.TextToImageSecondary,
		ImageToModel:          cfg.Generation.ImageToModel,
		ImageToModelSecondary: cfg.Generation.ImageToModelSecondary,
	}, a.logger)
}

func (a *application) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Error("close resource failed", "err", err)
		}
	}
	a.closers = nil
}
