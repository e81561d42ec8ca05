package cluster

import (
	"github.com/kmw/qualcoder/internal/models"
)

// DefaultClusterID receives chunks with no cluster assignment.
const DefaultClusterID = 1

// GroupByCluster buckets chunks by their parallel cluster ids,
// preserving original order within each bucket. clusterIDs[i] assigns
// chunks[i]; chunks past the end of clusterIDs go to DefaultClusterID,
// so every chunk lands in exactly one bucket. embeddings[i] is attached
// only while i is within bounds — the embeddings slice may be shorter
// than chunks (or empty) and a bucket may end up with fewer embeddings
// than chunks. Downstream consumers tolerate that.
func GroupByCluster(chunks []models.TextChunk, clusterIDs []int, embeddings [][]float32) map[int]*models.ClusterGroup {
	groups := make(map[int]*models.ClusterGroup)

	for i, chunk := range chunks {
		id := DefaultClusterID
		if i < len(clusterIDs) {
			id = clusterIDs[i]
		}

		group, ok := groups[id]
		if !ok {
			group = &models.ClusterGroup{}
			groups[id] = group
		}

		group.Chunks = append(group.Chunks, chunk)
		if i < len(embeddings) {
			group.Embeddings = append(group.Embeddings, embeddings[i])
		}
	}

	return groups
}

// ExpandClusterIDs maps per-text cluster ids onto per-chunk ids using
// each chunk's source index. Texts beyond the id list reuse
// DefaultClusterID.
func ExpandClusterIDs(chunks []models.TextChunk, perTextIDs []int) []int {
	ids := make([]int, len(chunks))
	for i, chunk := range chunks {
		if chunk.Source < len(perTextIDs) {
			ids[i] = perTextIDs[chunk.Source]
		} else {
			ids[i] = DefaultClusterID
		}
	}
	return ids
}
