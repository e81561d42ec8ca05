package cluster_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmw/qualcoder/internal/models"
	"github.com/kmw/qualcoder/pkg/cluster"
)

func TestGroupByCluster(t *testing.T) {
	chunks := []models.TextChunk{
		{Content: "a"}, {Content: "b"}, {Content: "c"}, {Content: "d"},
	}
	ids := []int{1, 2, 1, 2}

	groups := cluster.GroupByCluster(chunks, ids, nil)

	require.Len(t, groups, 2)
	assert.Equal(t, []models.TextChunk{{Content: "a"}, {Content: "c"}}, groups[1].Chunks)
	assert.Equal(t, []models.TextChunk{{Content: "b"}, {Content: "d"}}, groups[2].Chunks)
}

func TestGroupByCluster_EveryChunkLandsSomewhere(t *testing.T) {
	chunks := []models.TextChunk{{Content: "a"}, {Content: "b"}, {Content: "c"}}
	// Shorter id list: the tail goes to the default cluster.
	groups := cluster.GroupByCluster(chunks, []int{7}, nil)

	total := 0
	for _, g := range groups {
		total += len(g.Chunks)
	}
	assert.Equal(t, len(chunks), total)
	assert.Len(t, groups[7].Chunks, 1)
	assert.Len(t, groups[cluster.DefaultClusterID].Chunks, 2)
}

func TestGroupByCluster_ShortEmbeddings(t *testing.T) {
	chunks := []models.TextChunk{{Content: "a"}, {Content: "b"}, {Content: "c"}}
	embeddings := [][]float32{{0.1}, {0.2}}

	groups := cluster.GroupByCluster(chunks, []int{1, 1, 1}, embeddings)

	require.Len(t, groups, 1)
	assert.Len(t, groups[1].Chunks, 3)
	assert.Len(t, groups[1].Embeddings, 2)
}

func TestExpandClusterIDs(t *testing.T) {
	chunks := []models.TextChunk{
		{Content: "a", Source: 0},
		{Content: "b", Source: 0},
		{Content: "c", Source: 1},
		{Content: "d", Source: 2}, // no id for this text
	}

	ids := cluster.ExpandClusterIDs(chunks, []int{5, 9})
	assert.Equal(t, []int{5, 5, 9, cluster.DefaultClusterID}, ids)
}
