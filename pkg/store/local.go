package store

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/kmw/qualcoder/internal/models"
	"github.com/kmw/qualcoder/internal/types"
	"github.com/kmw/qualcoder/pkg/logging"
)

// clusterSeed fixes the k-means initialization so repeated runs over
// the same vectors produce identical partitions.
const clusterSeed = 42

const maxKMeansIterations = 100

// LocalIndex is an in-memory nearest-neighbor store. Vectors, ids and
// metadata are three parallel slices appended together under one lock;
// entries are never resized or removed except by Clear.
type LocalIndex struct {
	mu       sync.Mutex
	vectors  [][]float32
	ids      []string
	metadata []map[string]string
	log      types.Logger
}

func NewLocalIndex(log types.Logger) *LocalIndex {
	if log == nil {
		log = logging.Silent{}
	}
	return &LocalIndex{log: log}
}

// Add appends vectors with their ids. Missing metadata entries default
// to empty.
func (x *LocalIndex) Add(vectors [][]float32, ids []string, metadata []map[string]string) error {
	if len(vectors) != len(ids) {
		return errors.New("vectors and ids length mismatch")
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	for i := range vectors {
		x.vectors = append(x.vectors, vectors[i])
		x.ids = append(x.ids, ids[i])
		if i < len(metadata) && metadata[i] != nil {
			x.metadata = append(x.metadata, metadata[i])
		} else {
			x.metadata = append(x.metadata, map[string]string{})
		}
	}

	x.log.Success("added %d vectors to local index", len(vectors))
	return nil
}

// SearchSimilar ranks every stored vector against the query by cosine
// similarity and returns the top topK entries scoring at least
// threshold. Ties keep insertion order (the sort is stable).
func (x *LocalIndex) SearchSimilar(query []float32, topK int, threshold float32) []types.SearchMatch {
	x.mu.Lock()
	defer x.mu.Unlock()

	if len(x.vectors) == 0 {
		x.log.Warn("no vectors in index to search")
		return nil
	}
	if topK <= 0 {
		topK = 5
	}

	order := make([]int, len(x.vectors))
	scores := make([]float32, len(x.vectors))
	for i, v := range x.vectors {
		order[i] = i
		scores[i] = cosine(query, v)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	var results []types.SearchMatch
	for _, idx := range order {
		if len(results) == topK {
			break
		}
		if scores[idx] < threshold {
			continue
		}
		results = append(results, types.SearchMatch{
			ID:       x.ids[idx],
			Score:    scores[idx],
			Metadata: x.metadata[idx],
		})
	}
	return results
}

// Cluster partitions all stored vectors into k groups with k-means,
// seeded for reproducibility. Labels are centroid indices; the value
// slices hold storage indices in ascending order.
func (x *LocalIndex) Cluster(k int) map[int][]int {
	x.mu.Lock()
	defer x.mu.Unlock()

	n := len(x.vectors)
	if n == 0 || k <= 0 {
		return map[int][]int{}
	}
	if k > n {
		k = n
	}

	rng := rand.New(rand.NewSource(clusterSeed))
	dim := len(x.vectors[0])

	// Initialize centroids from k distinct stored vectors.
	centroids := make([][]float32, k)
	for i, idx := range rng.Perm(n)[:k] {
		centroids[i] = append([]float32(nil), x.vectors[idx]...)
	}

	labels := make([]int, n)
	for iter := 0; iter < maxKMeansIterations; iter++ {
		changed := false
		for i, v := range x.vectors {
			best := 0
			bestDist := squaredDistance(v, centroids[0])
			for c := 1; c < k; c++ {
				if d := squaredDistance(v, centroids[c]); d < bestDist {
					best, bestDist = c, d
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, v := range x.vectors {
			counts[labels[i]]++
			for d, val := range v {
				sums[labels[i]][d] += float64(val)
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue // keep the old centroid for an empty cluster
			}
			for d := 0; d < dim; d++ {
				centroids[c][d] = float32(sums[c][d] / float64(counts[c]))
			}
		}
	}

	clusters := make(map[int][]int)
	for i, label := range labels {
		clusters[label] = append(clusters[label], i)
	}
	x.log.Success("created %d clusters from %d vectors", len(clusters), n)
	return clusters
}

// Clear removes all stored entries.
func (x *LocalIndex) Clear() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.vectors = nil
	x.ids = nil
	x.metadata = nil
}

// Size returns the number of stored vectors.
func (x *LocalIndex) Size() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.vectors)
}

// Stats summarizes the index contents.
func (x *LocalIndex) Stats() models.IndexStats {
	x.mu.Lock()
	defer x.mu.Unlock()

	if len(x.vectors) == 0 {
		return models.IndexStats{}
	}

	var totalMagnitude float64
	for _, v := range x.vectors {
		var sum float64
		for _, val := range v {
			sum += float64(val) * float64(val)
		}
		totalMagnitude += math.Sqrt(sum)
	}

	unique := make(map[string]bool, len(x.ids))
	for _, id := range x.ids {
		unique[id] = true
	}

	return models.IndexStats{
		Size:          len(x.vectors),
		Dimensions:    len(x.vectors[0]),
		MeanMagnitude: totalMagnitude / float64(len(x.vectors)),
		UniqueIDs:     len(unique),
	}
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func squaredDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
