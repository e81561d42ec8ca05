package types

import (
	"context"

	"github.com/kmw/qualcoder/internal/models"
)

// Logger is the leveled sink every component receives at construction.
// No component reaches for a package-level logger.
type Logger interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Processing(format string, args ...any)
	Success(format string, args ...any)
}

// Embedder converts texts into fixed-length vectors, one per input,
// preserving order. Vectors are L2-normalized. An unreachable backend
// is an error; it is not papered over per call.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// SearchMatch is one ranked hit from a similarity search.
type SearchMatch struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// SimilarityIndex is the in-process nearest-neighbor store over
// embedded chunks. Implementations must keep their internal sequences
// index-aligned under concurrent Add calls.
type SimilarityIndex interface {
	Add(vectors [][]float32, ids []string, metadata []map[string]string) error
	SearchSimilar(query []float32, topK int, threshold float32) []SearchMatch
	Cluster(k int) map[int][]int
	Clear()
	Size() int
	Stats() models.IndexStats
}

// RemoteIndex is the optional persistence layer behind the local index.
type RemoteIndex interface {
	Upsert(ctx context.Context, vectors [][]float32, ids []string, metadata []map[string]string) error
	Query(ctx context.Context, vector []float32, topK int) ([]SearchMatch, error)
	Delete(ctx context.Context, ids []string) error
	Stats(ctx context.Context) (models.IndexStats, error)
	Close()
}

// CodeGenerator produces qualitative codes for one cluster of chunks.
// It never returns an error: backend failures degrade to the built-in
// fallback set and parse failures degrade to an empty set.
type CodeGenerator interface {
	GenerateCodes(ctx context.Context, chunks []models.TextChunk, clusterID int,
		embeddings [][]float32, pctx *models.ProjectContext, participantType string) models.CodeSet
	GenerateSummaryReport(allCodes map[int]models.CodeSet) string
}
