package store

import (
	"github.com/kmw/qualcoder/internal/models"
	"github.com/kmw/qualcoder/internal/types"
)

// NoopIndex stands in for the local index when the embedding subsystem
// is disabled. Every operation is a cheap no-op so callers never check
// a capability flag.
type NoopIndex struct{}

func (NoopIndex) Add([][]float32, []string, []map[string]string) error { return nil }

func (NoopIndex) SearchSimilar([]float32, int, float32) []types.SearchMatch { return nil }

func (NoopIndex) Cluster(int) map[int][]int { return map[int][]int{} }

func (NoopIndex) Clear() {}

func (NoopIndex) Size() int { return 0 }

func (NoopIndex) Stats() models.IndexStats { return models.IndexStats{} }
