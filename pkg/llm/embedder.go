package llm

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/kmw/qualcoder/internal/types"
	"github.com/kmw/qualcoder/pkg/logging"
)

type EmbedderConfig struct {
	Model       string
	BaseURL     string // Ollama server URL
	FallbackDim int    // used when the dimension probe fails
}

// Embedder produces L2-normalized embedding vectors through an Ollama
// embedding model. Construction fails if the backend client cannot be
// built: embeddings are an infrastructure precondition, not a
// per-item recoverable.
type Embedder struct {
	config EmbedderConfig
	client *ollama.LLM
	log    types.Logger

	probeOnce sync.Once
	dim       int
}

func NewEmbedder(config EmbedderConfig, log types.Logger) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.FallbackDim == 0 {
		config.FallbackDim = 768
	}
	if log == nil {
		log = logging.Silent{}
	}

	client, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding backend: %w", err)
	}

	return &Embedder{
		config: config,
		client: client,
		log:    log,
	}, nil
}

// Embed returns one normalized vector per input text, preserving order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	e.log.Processing("generating embeddings for %d texts", len(texts))

	vectors, err := e.client.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding error: %w", err)
	}

	for i := range vectors {
		normalize(vectors[i])
	}

	e.log.Success("generated %d embeddings", len(vectors))
	return vectors, nil
}

// Dimension reports the backend's vector length, determined by a
// one-shot probe. The configured fallback is used if the probe fails.
func (e *Embedder) Dimension() int {
	e.probeOnce.Do(func() {
		vectors, err := e.Embed(context.Background(), []string{"dimension probe"})
		if err != nil || len(vectors) == 0 {
			e.log.Warn("dimension probe failed, assuming %d", e.config.FallbackDim)
			e.dim = e.config.FallbackDim
			return
		}
		e.dim = len(vectors[0])
	})
	return e.dim
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}
