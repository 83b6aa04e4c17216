package di

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"palantir-backend/application/ports"
	"palantir-backend/application/services"
	"palantir-backend/infrastructure/config"
	"palantir-backend/infrastructure/embedding/local"
	"palantir-backend/infrastructure/embedding/openai"
	"palantir-backend/infrastructure/persistence/jsonfile"
	memorystore "palantir-backend/infrastructure/persistence/memory"
	"palantir-backend/infrastructure/persistence/sqlite"
	pkgerrors "palantir-backend/pkg/errors"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideMemoryStore creates the configured store implementation
func ProvideMemoryStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.MemoryStore, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		return sqlite.NewStore(ctx, cfg.SQLitePath, logger)
	case config.StoreDriverFile:
		return jsonfile.NewStore(cfg.StoreFilePath, logger), nil
	case config.StoreDriverMemory:
		return memorystore.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// ProvideEmbeddingProvider creates the configured embedding provider
func ProvideEmbeddingProvider(cfg *config.Config, logger *zap.Logger) ports.EmbeddingProvider {
	if cfg.EmbeddingProvider == config.EmbeddingProviderOpenAI {
		return openai.NewProvider(cfg.OpenAIAPIKey, openai.Options{
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
			Timeout:    time.Duration(cfg.EmbeddingTimeoutMS) * time.Millisecond,
		}, logger)
	}
	return local.NewProvider(cfg.EmbeddingDimensions)
}

// ProvideGraphService creates the graph maintenance service
func ProvideGraphService(store ports.MemoryStore, logger *zap.Logger) *services.GraphService {
	return services.NewGraphService(store, logger)
}

// ProvideMemoryService creates the memory workflow service
func ProvideMemoryService(
	store ports.MemoryStore,
	embedder ports.EmbeddingProvider,
	graph *services.GraphService,
	cfg *config.Config,
	logger *zap.Logger,
) *services.MemoryService {
	return services.NewMemoryService(store, embedder, graph, cfg.SimilarityThreshold, logger)
}

// ProvideErrorHandler creates the HTTP error handler
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}
