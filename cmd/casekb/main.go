// casekb is a legal case knowledge base: it ingests heterogeneous case
// documents into a searchable store and answers semantic, keyword and
// hybrid queries over them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/custodia-labs/casekb/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/casekb/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/casekb/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/casekb/internal/adapters/driven/embedding/resilient"
	"github.com/custodia-labs/casekb/internal/adapters/driven/extractor"
	"github.com/custodia-labs/casekb/internal/adapters/driven/index/keyword"
	"github.com/custodia-labs/casekb/internal/adapters/driven/index/vector"
	"github.com/custodia-labs/casekb/internal/adapters/driven/originals"
	"github.com/custodia-labs/casekb/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/casekb/internal/adapters/driving/cli"
	"github.com/custodia-labs/casekb/internal/config"
	"github.com/custodia-labs/casekb/internal/core/ports/driven"
	"github.com/custodia-labs/casekb/internal/core/services"
	"github.com/custodia-labs/casekb/internal/logger"
	"github.com/custodia-labs/casekb/internal/metrics"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	store, err := sqlite.NewStore(filepath.Join(dataDir, "data"))
	if err != nil {
		return fmt.Errorf("opening document store: %w", err)
	}
	defer store.Close()

	originalsStore, err := originals.NewStore(filepath.Join(dataDir, "originals"))
	if err != nil {
		return fmt.Errorf("opening originals store: %w", err)
	}

	embedder, err := buildEmbedder(cfg.Embedding)
	if err != nil {
		return err
	}

	dimensions := cfg.Embedding.Dimensions
	if embedder != nil {
		dimensions = embedder.Dimensions()
	}

	vectorIndex, err := vector.New(driven.Metric(cfg.Retrieval.Metric), dimensions)
	if err != nil {
		return fmt.Errorf("creating vector index: %w", err)
	}
	keywordIndex := keyword.New()

	ingestService := services.NewIngestService(
		store,
		originalsStore,
		extractor.NewDefaultRegistry(),
		embedder,
		vectorIndex,
		keywordIndex,
		dimensions,
		services.WithChunking(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap),
		services.WithBatchConcurrency(cfg.Ingest.Concurrency),
	)

	// The indexes are in-memory; reconstruct them from the durable
	// store before serving anything.
	if err := ingestService.Rebuild(ctx); err != nil {
		return fmt.Errorf("rebuilding indexes: %w", err)
	}

	queryService := services.NewQueryService(
		store,
		keywordIndex,
		vectorIndex,
		embedder,
		services.WithHybridWeight(cfg.Retrieval.HybridWeight),
	)

	analysisService := services.NewAnalysisService(queryService)

	m := metrics.New()
	if docs, listErr := store.ListDocuments(ctx, driven.DocumentFilter{}); listErr == nil {
		m.SetDocumentCount(len(docs))
	}

	cli.SetDeps(cli.Deps{
		Ingestor: ingestService,
		Querier:  queryService,
		Analyzer: analysisService,
		Metrics:  m,
		Version:  version,
	})

	return cli.ExecuteContext(ctx)
}

// buildEmbedder constructs the embedding provider selected by the
// config. Remote providers are wrapped with rate limiting and a
// circuit breaker; a nil return means keyword-only operation.
func buildEmbedder(cfg config.EmbeddingConfig) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case "openai":
		inner, err := openai.NewEmbeddingService(openai.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout,
			Dimensions: cfg.Dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("creating openai embedder: %w", err)
		}
		return resilient.Wrap(inner, resilient.Config{RequestsPerSecond: cfg.RequestsPerSecond}), nil

	case "ollama":
		inner := ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout,
			Dimensions: cfg.Dimensions,
		})
		return resilient.Wrap(inner, resilient.Config{RequestsPerSecond: cfg.RequestsPerSecond}), nil

	case "hashing":
		return hashing.NewEmbeddingService(cfg.Dimensions), nil

	case "none":
		logger.Info("no embedding provider configured; semantic search disabled")
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// configPath resolves the config file location: $CASEKB_CONFIG if set,
// otherwise ~/.casekb/config.toml. A missing file yields defaults.
func configPath() string {
	if p := os.Getenv("CASEKB_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".casekb", "config.toml")
}
