package llm

import "context"

// NoopEmbedder stands in for the real embedder when the embedding
// subsystem is disabled, so the pipeline never branches on a flag.
type NoopEmbedder struct{}

func (NoopEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}

func (NoopEmbedder) Dimension() int { return 0 }
