package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sage-engine/sage/internal/agents"
	"github.com/sage-engine/sage/internal/api"
	"github.com/sage-engine/sage/internal/config"
	"github.com/sage-engine/sage/internal/embedding"
	"github.com/sage-engine/sage/internal/index"
	"github.com/sage-engine/sage/internal/pipeline"
	"github.com/sage-engine/sage/internal/scraper"
	"github.com/sage-engine/sage/internal/search"
)

func main() {
	godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Embedding profiles.
	registry, err := buildEmbeddings(cfg, log)
	if err != nil {
		log.Error("embedding setup failed", "error", err)
		os.Exit(1)
	}

	store := index.NewMemory(registry, embedding.ProfilePrimary, log)

	// Collaborator agents, each on its configured model.
	planner := agents.NewPlanner(transportFor(cfg.PlannerModel, cfg), log)
	retriever := agents.NewRetriever(transportFor(cfg.RetrieverModel, cfg), store, log)
	summarizer := agents.NewSummarizer(transportFor(cfg.SummarizerModel, cfg), log)
	judge := agents.NewJudge(transportFor(cfg.JudgeModel, cfg), log)
	vision := agents.NewVision(transportFor(cfg.VisionModel, cfg), log)

	var searcher *search.Client
	if cfg.ExternalSearchEnabled {
		searcher = search.NewClient(cfg.ScrapeTimeout)
	}

	runner := pipeline.NewRunner(store, planner, retriever, vision, summarizer, judge, searcher, cfg, log)
	scr := scraper.New(cfg.ScrapeTimeout, cfg.ScrapeCacheTTL)

	srv := api.NewServer(runner, scr, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting sage", "port", cfg.Port, "embedding_backend", cfg.EmbeddingBackend)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// buildEmbeddings registers a backend for both embedding profiles. When
// the configured backend is unusable and placeholder fallback is allowed,
// both profiles get deterministic placeholder vectors; otherwise startup
// fails.
func buildEmbeddings(cfg config.Config, log *slog.Logger) (*embedding.Registry, error) {
	registry := embedding.NewRegistry()

	if cfg.EmbeddingBackend == "placeholder" || (cfg.EmbeddingBackend == "openai" && cfg.OpenAIAPIKey == "") {
		if cfg.EmbeddingBackend == "openai" && !cfg.AllowPlaceholder {
			return nil, &embedding.ConfigurationError{
				Profile: embedding.ProfilePrimary,
				Reason:  "openai backend configured without OPENAI_API_KEY and placeholder fallback disabled",
			}
		}
		log.Warn("using placeholder embeddings; retrieval quality will be degraded")
		placeholder := embedding.NewPlaceholder(embedding.PlaceholderDimension)
		registry.Register(embedding.ProfilePrimary, placeholder)
		registry.Register(embedding.ProfileRedundancy, placeholder)
		return registry, nil
	}

	primary, err := embedding.NewOpenAIClient(embedding.OpenAIConfig{
		BaseURL:   cfg.OpenAIBaseURL,
		APIKey:    cfg.OpenAIAPIKey,
		Model:     cfg.EmbedModel,
		Dimension: cfg.EmbedDimension,
	})
	if err != nil {
		return nil, err
	}
	redundancy, err := embedding.NewOpenAIClient(embedding.OpenAIConfig{
		BaseURL:   cfg.OpenAIBaseURL,
		APIKey:    cfg.OpenAIAPIKey,
		Model:     cfg.RedundancyEmbedModel,
		Dimension: cfg.EmbedDimension,
	})
	if err != nil {
		return nil, err
	}

	registry.Register(embedding.ProfilePrimary, primary)
	registry.Register(embedding.ProfileRedundancy, redundancy)
	return registry, nil
}

func transportFor(spec config.ModelSpec, cfg config.Config) agents.Transport {
	if spec.Provider == "anthropic" {
		return agents.NewAnthropicClient(cfg.AnthropicAPIKey, spec.Model)
	}
	return agents.NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, spec.Model)
}
