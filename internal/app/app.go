// Package app assembles the chatbot from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"shopbot/internal/config"
	"shopbot/internal/domain"
	"shopbot/internal/embedding"
	"shopbot/internal/embedding/hashing"
	embopenai "shopbot/internal/embedding/openai"
	"shopbot/internal/generator"
	genanthropic "shopbot/internal/generator/anthropic"
	genopenai "shopbot/internal/generator/openai"
	"shopbot/internal/retriever"
	"shopbot/internal/service"
	"shopbot/internal/session"
	"shopbot/internal/store"
	"shopbot/internal/vectorstore"
	"shopbot/internal/vectorstore/chromem"
	"shopbot/internal/vectorstore/memory"
	"shopbot/internal/vectorstore/qdrant"
)

// App holds the long-lived components of one process.
type App struct {
	Service *service.ChatService
	Store   *store.Store

	cache *embedding.Cached
}

// Build wires every component from cfg. The embedder is probed and the
// backend initialized here, so any error is a startup failure.
func Build(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	emb, err := NewEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	cached, err := embedding.NewCached(emb, cfg.Embedder.CacheSize)
	if err != nil {
		return nil, err
	}
	backend, err := NewBackend(cfg.VectorStore)
	if err != nil {
		cached.Close()
		return nil, err
	}
	st, err := store.New(ctx, cached, backend)
	if err != nil {
		cached.Close()
		_ = backend.Close()
		return nil, err
	}
	inserted, err := store.EnsureSeeded(ctx, st)
	if err != nil {
		cached.Close()
		_ = st.Close()
		return nil, err
	}
	logger.Info("document store ready",
		"embedder", emb.Name(),
		"dimension", cached.Dimension(),
		"backend", cfg.VectorStore.Type,
		"seeded", inserted)

	factory, err := NewFactory(cfg.Generator)
	if err != nil {
		cached.Close()
		_ = st.Close()
		return nil, err
	}
	answerer := generator.NewAnswerer(factory, generator.Config{
		Model:        cfg.Generator.Model,
		MaxTokens:    cfg.Generator.MaxTokens,
		Temperature:  cfg.Generator.Temperature,
		Timeout:      time.Duration(cfg.Generator.TimeoutSecs) * time.Second,
		SystemPrompt: cfg.Generator.SystemPrompt,
	}, logger)

	svc := service.NewChatService(st, retriever.New(st, cfg.Retrieval.TopK), answerer, session.New(), cfg.Retrieval.TopK, logger)
	if cred := cfg.Credential(); cred != "" {
		svc.SetCredential(cred)
		logger.Info("credential loaded from environment", "env", cfg.Generator.APIKeyEnv)
	}
	return &App{Service: svc, Store: st, cache: cached}, nil
}

// Close releases the backend and the embedding cache.
func (a *App) Close() error {
	a.cache.Close()
	return a.Store.Close()
}

// NewEmbedder builds the configured embedder without probing it.
func NewEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "hashing", "":
		return hashing.NewEmbedder(cfg.Dimension), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, errors.New("openai embedder config missing")
		}
		e, err := embopenai.NewEmbedder(embopenai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

// NewBackend builds the configured vector backend.
func NewBackend(cfg config.VectorStoreConfig) (vectorstore.Storage, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewStorage(), nil
	case "chromem":
		return chromem.NewStorage(cfg.Collection), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, errors.New("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

// NewFactory returns a generator.Factory for the configured provider.
func NewFactory(cfg config.GeneratorConfig) (generator.Factory, error) {
	var build func(...generator.Option) domain.Completer
	switch cfg.Provider {
	case "openai", "":
		build = genopenai.NewCompleter
	case "anthropic":
		build = genanthropic.NewCompleter
	default:
		return nil, fmt.Errorf("unknown generator provider: %s", cfg.Provider)
	}
	baseURL := cfg.BaseURL
	return func(credential string) (domain.Completer, error) {
		opts := []generator.Option{generator.WithApiKey(credential)}
		if baseURL != "" {
			opts = append(opts, generator.WithBaseURL(baseURL))
		}
		return build(opts...), nil
	}, nil
}
