package embedding

import (
	"fmt"

	"bookrec/config"
	"bookrec/internal/port"
)

// ConfiguredModel returns the model the provider will actually use when no
// model is requested, or "" when that is left to the artifact. The hashing
// provider only understands "hashing-<dim>" names, so any other configured
// model (such as the all-minilm default) is ignored for it.
func ConfiguredModel(cfg config.EmbeddingConfig) string {
	if cfg.Provider == "hashing" {
		if _, ok := ParseHashingModel(cfg.Model); !ok {
			return ""
		}
	}
	return cfg.Model
}

// NewFactory returns an EmbedderFactory for the configured provider. The
// model argument of the factory wins over the configured model when
// non-empty, which lets the query engine instantiate whatever model an
// artifact names.
func NewFactory(cfg config.EmbeddingConfig) port.EmbedderFactory {
	return func(model string) (port.Embedder, error) {
		if model == "" {
			model = ConfiguredModel(cfg)
		}
		opts := []Option{WithDimension(cfg.Dimension), WithRateLimit(cfg.RequestsPerSecond)}

		switch cfg.Provider {
		case "openai":
			return NewOpenAIEmbedder(cfg.APIKeyEnv, model, opts...)
		case "deepseek":
			return NewDeepSeekEmbedder(cfg.APIKeyEnv, model, opts...)
		case "jina":
			return NewJinaEmbedder(cfg.APIKeyEnv, model, opts...)
		case "ollama":
			return NewOllamaEmbedder(model, cfg.BaseURL, opts...)
		case "hashing":
			if model == "" {
				return NewHashingEmbedder(cfg.Dimension), nil
			}
			dim, ok := ParseHashingModel(model)
			if !ok {
				return nil, fmt.Errorf("hashing provider cannot serve model %q", model)
			}
			return NewHashingEmbedder(dim), nil
		default:
			return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
		}
	}
}
