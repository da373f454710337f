// Package app wires the memory engine to a configured backend and embedder.
//
// App is the single entry point used by the CLI and the HTTP server: it runs
// the retrieval pipeline for incoming messages, inspects corrections, applies
// the correction the agent decided on and exposes the agent tool registry.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bdobrica/Kizuna/common/redact"
	"github.com/bdobrica/Kizuna/common/trace"
	"github.com/bdobrica/Kizuna/internal/kizuna/config"
	"github.com/bdobrica/Kizuna/internal/kizuna/memory"
	"github.com/bdobrica/Kizuna/internal/kizuna/observability"
	"github.com/bdobrica/Kizuna/internal/kizuna/store"
	"github.com/bdobrica/Kizuna/internal/kizuna/store/chromem"
	"github.com/bdobrica/Kizuna/internal/kizuna/store/postgres"
	"github.com/bdobrica/Kizuna/internal/kizuna/tools"
)

// App holds the assembled engine.
type App struct {
	backend     store.Backend
	backendName string
	embedder    string
	cache       *memory.CachedEmbedder

	retriever  *memory.Retriever
	resolver   *memory.Resolver
	applicator *memory.Applicator
	tools      *tools.Registry

	logger *slog.Logger
}

// New builds the embedder, opens the configured backend and assembles the
// engine. The caller must Close the returned App.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	embedder, cache, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}

	backend, err := openBackend(ctx, cfg.Store, embedder, logger)
	if err != nil {
		if cache != nil {
			cache.Close()
		}
		return nil, err
	}

	a := NewWithBackend(backend, logger)
	a.backendName = cfg.Store.Backend
	a.embedder = cfg.Embedder.Provider
	a.cache = cache

	logger.Info("kizuna engine ready",
		"store", cfg.Store.Backend,
		"embedder", cfg.Embedder.Provider,
		"embed_cache_max_cost", cfg.Embedder.CacheMaxCost,
	)
	return a, nil
}

// NewWithBackend assembles the engine on an already opened backend. App.Close
// closes backend.
func NewWithBackend(backend store.Backend, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	resolver := memory.NewResolver(backend, logger)
	applicator := memory.NewApplicator(backend, logger)
	return &App{
		backend:     backend,
		backendName: "custom",
		embedder:    "custom",
		retriever:   memory.NewRetriever(backend, logger),
		resolver:    resolver,
		applicator:  applicator,
		tools:       tools.Default(resolver, applicator),
		logger:      logger,
	}
}

func newEmbedder(cfg config.EmbedderConfig) (memory.Embedder, *memory.CachedEmbedder, error) {
	var embedder memory.Embedder
	switch cfg.Provider {
	case config.EmbedderOpenAI:
		embedder = memory.NewOpenAIEmbedder(memory.OpenAIEmbedderConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout,
		})
	case config.EmbedderHash, "":
		embedder = memory.NewHashEmbedder(cfg.Dimensions)
	default:
		return nil, nil, fmt.Errorf("app: unknown embedder provider %q", cfg.Provider)
	}

	if cfg.CacheMaxCost == 0 {
		return embedder, nil, nil
	}
	cache, err := memory.NewCachedEmbedder(embedder, cfg.CacheMaxCost)
	if err != nil {
		return nil, nil, fmt.Errorf("app: %w", err)
	}
	return cache, cache, nil
}

func openBackend(ctx context.Context, cfg config.StoreConfig, embedder memory.Embedder, logger *slog.Logger) (store.Backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite, "":
		logger.Info("opening database", "path", cfg.SQLitePath)
		s, err := store.New(cfg.SQLitePath, embedder, logger)
		if err != nil {
			return nil, fmt.Errorf("app: open sqlite store: %w", err)
		}
		return s, nil
	case config.BackendMemory:
		return chromem.New(embedder, logger), nil
	case config.BackendPostgres:
		logger.Info("connecting to postgres", "dsn", redact.DSN(cfg.PostgresDSN))
		s, err := postgres.Open(ctx, cfg.PostgresDSN, logger)
		if err != nil {
			return nil, fmt.Errorf("app: open postgres store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("app: unknown store backend %q", cfg.Backend)
	}
}

// MemoryContext returns the memory prompt block for message, or "" when the
// message does not warrant retrieval or nothing relevant is stored. Skipped
// messages never reach the backend.
func (a *App) MemoryContext(ctx context.Context, session memory.SessionContext, message string) (string, error) {
	ctx, _ = trace.Ensure(ctx)
	log := observability.WithTrace(ctx, a.logger)

	retrieve, reason := memory.ExplainRetrieval(message)
	if !retrieve {
		log.Debug("memory retrieval skipped", "couple_id", session.CoupleID, "reason", reason)
		return "", nil
	}

	results, err := a.retriever.GetMemoriesForContext(ctx, session, message)
	if err != nil {
		log.Warn("memory retrieval failed", "couple_id", session.CoupleID, "err", err)
		return "", err
	}
	return memory.BuildMemoryContext(results), nil
}

// Inspection is the outcome of InspectCorrection. Target is nil when the
// message is not a correction or no stored memory matches.
type Inspection struct {
	Signal memory.CorrectionSignal
	Target *memory.Memory
}

// InspectCorrection classifies message and, only when it reads as a
// correction, resolves the memory it targets within coupleID.
func (a *App) InspectCorrection(ctx context.Context, coupleID, message string) (Inspection, error) {
	ctx, _ = trace.Ensure(ctx)

	in := Inspection{Signal: memory.DetectCorrection(message)}
	if !in.Signal.IsCorrection {
		return in, nil
	}

	target, err := a.resolver.FindCorrectionTarget(ctx, coupleID, message)
	if err != nil {
		return in, err
	}
	in.Target = target
	return in, nil
}

// ApplyCorrection deletes memoryID when newContent is nil and rewrites it
// otherwise.
func (a *App) ApplyCorrection(ctx context.Context, memoryID string, newContent *string) (memory.CorrectionResult, error) {
	ctx, _ = trace.Ensure(ctx)
	return a.applicator.ApplyCorrection(ctx, memoryID, newContent)
}

// Remember stores a new memory.
func (a *App) Remember(ctx context.Context, d memory.Draft) (*memory.Memory, error) {
	return a.backend.Create(ctx, d)
}

// Memories lists every memory of coupleID, oldest first.
func (a *App) Memories(ctx context.Context, coupleID string) ([]memory.Memory, error) {
	return a.backend.List(ctx, coupleID)
}

// Import stores drafts in order and returns how many were created. It stops
// at the first failure.
func (a *App) Import(ctx context.Context, drafts []memory.Draft) (int, error) {
	for i, d := range drafts {
		if _, err := a.backend.Create(ctx, d); err != nil {
			return i, fmt.Errorf("app: import entry %d: %w", i+1, err)
		}
	}
	return len(drafts), nil
}

// Tools returns the agent tool registry.
func (a *App) Tools() *tools.Registry { return a.tools }

// Backend names the configured store backend.
func (a *App) Backend() string { return a.backendName }

// Embedder names the configured embedding provider.
func (a *App) Embedder() string { return a.embedder }

// Close releases the backend and the embedding cache.
func (a *App) Close() error {
	var errs []error
	if err := a.backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("app: close backend: %w", err))
	}
	if a.cache != nil {
		a.cache.Close()
	}
	return errors.Join(errs...)
}
