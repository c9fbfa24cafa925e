package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/solace-backend/internal/platform/envutil"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

const (
	defaultEmbedModel      = "text-embedding-3-small"
	defaultEmbedDimensions = 1536
)

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Model() string
}

type embedder struct {
	log        *logger.Logger
	client     *goopenai.Client
	model      string
	dimensions int
}

// NewEmbedderFromEnv returns nil, nil when OPENAI_API_KEY is unset.
func NewEmbedderFromEnv(log *logger.Logger) (Embedder, error) {
	if log == nil {
		return nil, fmt.Errorf("openai: logger required")
	}
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		log.Warn("OPENAI_API_KEY not set; embeddings disabled")
		return nil, nil
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &embedder{
		log:        log.With("client", "OpenAIEmbedder"),
		client:     goopenai.NewClientWithConfig(cfg),
		model:      envutil.String("OPENAI_EMBED_MODEL", defaultEmbedModel),
		dimensions: envutil.Int("OPENAI_EMBED_DIMENSIONS", defaultEmbedDimensions),
	}, nil
}

func (e *embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("openai: empty embedding input")
	}
	resp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input:      []string{text},
		Model:      goopenai.EmbeddingModel(e.model),
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: create embeddings: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("openai: empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

func (e *embedder) Dimensions() int { return e.dimensions }

func (e *embedder) Model() string { return e.model }
