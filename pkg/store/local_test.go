package store_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmw/qualcoder/pkg/store"
)

func TestLocalIndex_Add_LengthMismatch(t *testing.T) {
	idx := store.NewLocalIndex(nil)

	err := idx.Add([][]float32{{1, 0}}, []string{"a", "b"}, nil)
	assert.Error(t, err)
	assert.Equal(t, 0, idx.Size())
}

func TestLocalIndex_SearchSimilar(t *testing.T) {
	idx := store.NewLocalIndex(nil)

	err := idx.Add(
		[][]float32{{1, 0}, {0, 1}, {0.9, 0.1}},
		[]string{"east", "north", "near-east"},
		[]map[string]string{{"text": "east"}, nil, nil},
	)
	require.NoError(t, err)

	matches := idx.SearchSimilar([]float32{1, 0}, 2, 0)

	require.Len(t, matches, 2)
	assert.Equal(t, "east", matches[0].ID)
	assert.Equal(t, "near-east", matches[1].ID)
	assert.InDelta(t, 1.0, float64(matches[0].Score), 0.001)
	assert.Equal(t, "east", matches[0].Metadata["text"])
}

func TestLocalIndex_SearchSimilar_ThresholdFilters(t *testing.T) {
	idx := store.NewLocalIndex(nil)

	require.NoError(t, idx.Add(
		[][]float32{{1, 0}, {0, 1}},
		[]string{"aligned", "orthogonal"},
		nil,
	))

	matches := idx.SearchSimilar([]float32{1, 0}, 5, 0.5)
	require.Len(t, matches, 1)
	assert.Equal(t, "aligned", matches[0].ID)
}

func TestLocalIndex_SearchSimilar_TiesKeepInsertionOrder(t *testing.T) {
	idx := store.NewLocalIndex(nil)

	require.NoError(t, idx.Add(
		[][]float32{{1, 0}, {1, 0}, {1, 0}},
		[]string{"first", "second", "third"},
		nil,
	))

	matches := idx.SearchSimilar([]float32{1, 0}, 3, 0)
	require.Len(t, matches, 3)
	assert.Equal(t, "first", matches[0].ID)
	assert.Equal(t, "second", matches[1].ID)
	assert.Equal(t, "third", matches[2].ID)
}

func TestLocalIndex_SearchSimilar_EmptyIndex(t *testing.T) {
	idx := store.NewLocalIndex(nil)
	assert.Nil(t, idx.SearchSimilar([]float32{1, 0}, 5, 0))
}

func TestLocalIndex_Cluster_Deterministic(t *testing.T) {
	build := func() *store.LocalIndex {
		idx := store.NewLocalIndex(nil)
		var vectors [][]float32
		var ids []string
		for i := 0; i < 10; i++ {
			// Two well-separated groups.
			base := float32(0)
			if i >= 5 {
				base = 10
			}
			vectors = append(vectors, []float32{base + float32(i%5)*0.1, base})
			ids = append(ids, fmt.Sprintf("v%d", i))
		}
		require.NoError(t, idx.Add(vectors, ids, nil))
		return idx
	}

	first := build().Cluster(2)
	second := build().Cluster(2)

	assert.Equal(t, first, second)

	total := 0
	for _, members := range first {
		total += len(members)
	}
	assert.Equal(t, 10, total)
}

func TestLocalIndex_Cluster_SeparatesDistantGroups(t *testing.T) {
	idx := store.NewLocalIndex(nil)
	require.NoError(t, idx.Add(
		[][]float32{{0, 0}, {0.1, 0}, {10, 10}, {10.1, 10}},
		[]string{"a", "b", "c", "d"},
		nil,
	))

	clusters := idx.Cluster(2)
	require.Len(t, clusters, 2)

	// 0,1 and 2,3 must not share a cluster.
	for _, members := range clusters {
		assert.Len(t, members, 2)
	}
}

func TestLocalIndex_Cluster_KClampedToSize(t *testing.T) {
	idx := store.NewLocalIndex(nil)
	require.NoError(t, idx.Add([][]float32{{1, 0}, {0, 1}}, []string{"a", "b"}, nil))

	clusters := idx.Cluster(5)
	total := 0
	for _, members := range clusters {
		total += len(members)
	}
	assert.Equal(t, 2, total)
	assert.LessOrEqual(t, len(clusters), 2)
}

func TestLocalIndex_Cluster_Empty(t *testing.T) {
	idx := store.NewLocalIndex(nil)
	assert.Empty(t, idx.Cluster(3))
}

func TestLocalIndex_Stats(t *testing.T) {
	idx := store.NewLocalIndex(nil)
	require.NoError(t, idx.Add(
		[][]float32{{1, 0}, {0, 1}},
		[]string{"a", "a"},
		nil,
	))

	stats := idx.Stats()
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, 2, stats.Dimensions)
	assert.Equal(t, 1, stats.UniqueIDs)
	assert.InDelta(t, 1.0, stats.MeanMagnitude, 0.001)
}

func TestLocalIndex_Clear(t *testing.T) {
	idx := store.NewLocalIndex(nil)
	require.NoError(t, idx.Add([][]float32{{1}}, []string{"a"}, nil))

	idx.Clear()
	assert.Equal(t, 0, idx.Size())
	assert.Zero(t, idx.Stats())
}
