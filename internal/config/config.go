package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ModelSpec names a provider and a model, parsed from "provider:model".
type ModelSpec struct {
	Provider string
	Model    string
}

type Config struct {
	Port string

	// Auth
	APIKey string

	// Model providers
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string

	// Per-agent model assignment
	PlannerModel    ModelSpec
	RetrieverModel  ModelSpec
	SummarizerModel ModelSpec
	JudgeModel      ModelSpec
	VisionModel     ModelSpec

	// Embedding profiles
	EmbeddingBackend     string // "openai" or "placeholder"
	EmbedModel           string
	RedundancyEmbedModel string
	EmbedDimension       int
	AllowPlaceholder     bool

	// Ingestion
	MaxPDPChars           int
	ExternalSearchEnabled bool

	// Scraper
	ScrapeTimeout  time.Duration
	ScrapeCacheTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		APIKey: os.Getenv("SAGE_API_KEY"),

		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),

		PlannerModel:    envModel("PLANNER_MODEL", "openai:gpt-4o-mini"),
		RetrieverModel:  envModel("RETRIEVER_MODEL", "openai:gpt-4o-mini"),
		SummarizerModel: envModel("SUMMARIZER_MODEL", "openai:gpt-4o"),
		JudgeModel:      envModel("JUDGE_MODEL", "openai:gpt-4o"),
		VisionModel:     envModel("VISION_MODEL", "openai:gpt-4o"),

		EmbeddingBackend:     envOr("EMBEDDING_BACKEND", "openai"),
		EmbedModel:           envOr("EMBED_MODEL", "text-embedding-3-small"),
		RedundancyEmbedModel: envOr("REDUNDANCY_EMBED_MODEL", "text-embedding-3-large"),
		EmbedDimension:       envInt("EMBED_DIMENSION", 1536),
		AllowPlaceholder:     envBool("ALLOW_PLACEHOLDER_EMBEDDINGS", true),

		MaxPDPChars:           envInt("MAX_PDP_CHARS", 50000),
		ExternalSearchEnabled: envBool("EXTERNAL_SEARCH_ENABLED", false),

		ScrapeTimeout:  envDuration("SCRAPE_TIMEOUT", 10*time.Second),
		ScrapeCacheTTL: envDuration("SCRAPE_CACHE_TTL", 15*time.Minute),
	}

	if cfg.MaxPDPChars <= 0 {
		cfg.MaxPDPChars = 50000
	}
	if cfg.ScrapeTimeout <= 0 {
		cfg.ScrapeTimeout = 10 * time.Second
	}
	if cfg.ScrapeCacheTTL <= 0 {
		cfg.ScrapeCacheTTL = 15 * time.Minute
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("SAGE_API_KEY is required")
	}
	if c.OpenAIAPIKey == "" && c.AnthropicAPIKey == "" {
		return fmt.Errorf("at least one of OPENAI_API_KEY or ANTHROPIC_API_KEY is required")
	}
	for _, spec := range []ModelSpec{c.PlannerModel, c.RetrieverModel, c.SummarizerModel, c.JudgeModel, c.VisionModel} {
		switch spec.Provider {
		case "openai":
			if c.OpenAIAPIKey == "" {
				return fmt.Errorf("model %s needs OPENAI_API_KEY", spec.Model)
			}
		case "anthropic":
			if c.AnthropicAPIKey == "" {
				return fmt.Errorf("model %s needs ANTHROPIC_API_KEY", spec.Model)
			}
		default:
			return fmt.Errorf("unknown model provider %q (want provider:model)", spec.Provider)
		}
	}
	if c.EmbeddingBackend != "openai" && c.EmbeddingBackend != "placeholder" {
		return fmt.Errorf("unknown embedding backend %q", c.EmbeddingBackend)
	}
	return nil
}

func envModel(key, fallback string) ModelSpec {
	raw := envOr(key, fallback)
	provider, model, ok := strings.Cut(raw, ":")
	if !ok {
		// Bare model name: assume the openai provider.
		return ModelSpec{Provider: "openai", Model: raw}
	}
	return ModelSpec{Provider: provider, Model: model}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
