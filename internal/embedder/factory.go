package embedder

import (
	"fmt"

	"github.com/heronlancellot/bee2bee/internal/config"
)

// NewFromConfig builds the dual embedder for the configured provider.
func NewFromConfig(cfg config.EmbeddingConfig) (*Dual, error) {
	switch cfg.Provider {
	case "", "ollama":
		return NewDual(
			NewOllamaEncoder(cfg.BaseURL, cfg.NLPModel),
			NewOllamaEncoder(cfg.BaseURL, cfg.CodeModel),
		), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedding provider %q requires an api key", cfg.Provider)
		}
		return NewDual(
			NewOpenAIEncoder("", cfg.APIKey, cfg.NLPModel),
			NewOpenAIEncoder("", cfg.APIKey, cfg.CodeModel),
		), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
