package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ProviderType names an embedding backend.
type ProviderType string

const (
	// ProviderNone disables semantic search entirely.
	ProviderNone ProviderType = "none"
	// ProviderStatic uses the offline hash embedder.
	ProviderStatic ProviderType = "static"
	// ProviderOllama uses a local or remote Ollama server.
	ProviderOllama ProviderType = "ollama"
	// ProviderOpenAI uses an OpenAI-compatible embeddings API.
	ProviderOpenAI ProviderType = "openai"
	// ProviderBedrock uses Amazon Bedrock Titan embeddings.
	ProviderBedrock ProviderType = "bedrock"
)

// ParseProvider parses a provider name, case-insensitively.
func ParseProvider(s string) (ProviderType, error) {
	switch p := ProviderType(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderNone, ProviderStatic, ProviderOllama, ProviderOpenAI, ProviderBedrock:
		return p, nil
	case "":
		return ProviderStatic, nil
	default:
		return "", fmt.Errorf("unknown embedding provider %q (use none, static, ollama, openai, bedrock)", s)
	}
}

// DefaultModel returns the model used for p when none is configured.
func DefaultModel(p ProviderType) string {
	switch p {
	case ProviderStatic:
		return StaticModelName
	case ProviderOllama:
		return DefaultOllamaModel
	case ProviderOpenAI:
		return DefaultOpenAIModel
	case ProviderBedrock:
		return DefaultBedrockModel
	default:
		return ""
	}
}

// Config selects and tunes an embedder.
type Config struct {
	Provider      string
	Model         string
	Dimensions    int
	OllamaHost    string
	OpenAIBaseURL string
	OpenAIToken   string
	BedrockRegion string
	InitTimeout   time.Duration
	CacheSize     int
	RedisAddr     string
	RedisPassword string
	RedisTTL      time.Duration
}

// NewFromConfig returns the configured embedder wrapped in Lazy and
// CachedEmbedder. The model itself is not contacted until first use.
// ProviderNone yields a nil Embedder and no error.
func NewFromConfig(ctx context.Context, cfg Config, logger *slog.Logger) (Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	provider, err := ParseProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}
	if provider == ProviderNone {
		return nil, nil
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel(provider)
	}
	dims := cfg.Dimensions
	if provider == ProviderStatic {
		model, dims = StaticModelName, StaticDimensions
	}

	factory := func(ctx context.Context) (Embedder, error) {
		switch provider {
		case ProviderStatic:
			return NewStaticEmbedder(), nil
		case ProviderOllama:
			return NewOllamaEmbedder(ctx, OllamaConfig{Host: cfg.OllamaHost, Model: model, Dimensions: dims})
		case ProviderOpenAI:
			return NewOpenAIEmbedder(ctx, OpenAIConfig{BaseURL: cfg.OpenAIBaseURL, Token: cfg.OpenAIToken, Model: model, Dimensions: dims})
		case ProviderBedrock:
			return NewBedrockEmbedder(ctx, BedrockConfig{Region: cfg.BedrockRegion, Model: model, Dimensions: dims})
		}
		return nil, fmt.Errorf("unsupported provider %s", provider)
	}

	timeout := cfg.InitTimeout
	if timeout <= 0 {
		timeout = DefaultInitTimeout
	}
	lazy := NewLazy(model, dims, factory, WithInitTimeout(timeout), WithLazyLogger(logger))

	var opts []CacheOption
	if cfg.RedisAddr != "" {
		store, err := ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisTTL, logger)
		if err != nil {
			logger.Warn("shared embedding cache disabled", slog.String("error", err.Error()))
		} else {
			opts = append(opts, WithSharedStore(store))
		}
	}

	logger.Debug("embedder configured",
		slog.String("provider", string(provider)),
		slog.String("model", model),
		slog.Int("dimensions", dims))
	return NewCachedEmbedder(lazy, cfg.CacheSize, opts...), nil
}
