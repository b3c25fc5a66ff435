package embedding

import (
	"fmt"
	"time"

	"github.com/alexeiveselov92/geological-tiff-search/internal/config"
	"github.com/alexeiveselov92/geological-tiff-search/internal/domain"
	"github.com/alexeiveselov92/geological-tiff-search/internal/embedding/openai"
	"github.com/alexeiveselov92/geological-tiff-search/internal/embedding/tfidf"
)

// New builds the configured embedder. The choice is made once here; no
// call site branches on embedder type afterwards.
func New(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		return openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}
