package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/recall/pkg/models"
)

func emb(id int64, v ...float64) models.CaptureRecord {
	return models.CaptureRecord{ID: id, Content: "capture", Embedding: v}
}

func groupIDs(g *Group) []int64 {
	out := make([]int64, 0, len(g.Records))
	for _, r := range g.Records {
		out = append(out, r.ID)
	}
	return out
}

func TestCluster_SingletonWhenNothingQualifies(t *testing.T) {
	records := []models.CaptureRecord{
		emb(1, 1, 0),
		emb(2, 0, 1), // orthogonal to group 1's centroid
	}

	groups := Cluster(records, 0.85)
	require.Len(t, groups, 2)
	assert.Equal(t, []int64{1}, groupIDs(groups[0]))
	assert.Equal(t, []int64{2}, groupIDs(groups[1]))
}

func TestCluster_JoinsHighestScoringGroup(t *testing.T) {
	records := []models.CaptureRecord{
		emb(1, 1, 0),
		emb(2, 0, 1),
		emb(3, 0.9, 0.1), // closer to group 1
	}

	groups := Cluster(records, 0.85)
	require.Len(t, groups, 2)
	assert.Equal(t, []int64{1, 3}, groupIDs(groups[0]))
	assert.Equal(t, []int64{2}, groupIDs(groups[1]))
}

// On an exact similarity tie the earliest-created group wins.
func TestCluster_TieGoesToEarliestGroup(t *testing.T) {
	records := []models.CaptureRecord{
		emb(1, 1, 0),
		emb(2, 1, 0), // joins group 1, not a new group
		emb(3, 1, 0),
	}

	groups := Cluster(records, 0.85)
	require.Len(t, groups, 1)
	assert.Equal(t, []int64{1, 2, 3}, groupIDs(groups[0]))
}

func TestCluster_SkipsRecordsWithoutEmbeddings(t *testing.T) {
	records := []models.CaptureRecord{
		{ID: 1, Content: "no vector"},
		emb(2, 1, 0),
		{ID: 3, Content: "also no vector"},
	}

	groups := Cluster(records, 0.85)
	require.Len(t, groups, 1)
	assert.Equal(t, []int64{2}, groupIDs(groups[0]))
}

func TestCluster_Empty(t *testing.T) {
	assert.Empty(t, Cluster(nil, 0.85))
	assert.Empty(t, Cluster([]models.CaptureRecord{{ID: 1}}, 0.85))
}

// Reprocessing the same input sequence is deterministic: same groups in the
// same order with the same membership.
func TestCluster_Deterministic(t *testing.T) {
	var records []models.CaptureRecord
	vectors := [][]float64{
		{1, 0, 0}, {0.95, 0.05, 0}, {0, 1, 0}, {0, 0.9, 0.1}, {0, 0, 1},
	}
	for i, v := range vectors {
		records = append(records, emb(int64(i+1), v...))
	}

	first := Cluster(records, 0.85)
	for run := 0; run < 5; run++ {
		again := Cluster(records, 0.85)
		require.Len(t, again, len(first))
		for i := range first {
			assert.Equal(t, groupIDs(first[i]), groupIDs(again[i]))
		}
	}
}

// The centroid drifts as members join: whether a record qualifies depends on
// the group's state at arrival time, and assignments are never revisited.
func TestCluster_CentroidDrift(t *testing.T) {
	groups := Cluster([]models.CaptureRecord{
		emb(1, 1, 0),
		emb(2, 0.8, 0.6),
	}, 0.75)
	require.Len(t, groups, 1)

	centroid := groups[0].Centroid()
	assert.InDelta(t, 0.9, centroid[0], 1e-9)
	assert.InDelta(t, 0.3, centroid[1], 1e-9)
}

// An embedding model change mid-log leaves embeddings of different
// dimensions behind. Each dimension clusters separately; no comparison
// crosses dimensions.
func TestCluster_MixedDimensionEmbeddings(t *testing.T) {
	records := []models.CaptureRecord{
		emb(1, 1, 0),
		emb(2, 1, 0, 0),
		emb(3, 1, 0), // joins group 1 despite group 2 being newer
	}

	groups := Cluster(records, 0.85)
	require.Len(t, groups, 2)
	assert.Equal(t, []int64{1, 3}, groupIDs(groups[0]))
	assert.Equal(t, []int64{2}, groupIDs(groups[1]))
}

func TestNearestPair(t *testing.T) {
	records := []models.CaptureRecord{
		emb(1, 1, 0),
		emb(2, 0, 1),
		emb(3, 0.9, 0.1),
		{ID: 4, Content: "no vector"},
	}

	pair, ok := NearestPair(records)
	require.True(t, ok)
	assert.Equal(t, int64(1), pair.A.ID)
	assert.Equal(t, int64(3), pair.B.ID)
	assert.Greater(t, pair.Similarity, 0.9)
}

// Ties are broken by the first pair encountered in ascending index order.
func TestNearestPair_TieBreak(t *testing.T) {
	records := []models.CaptureRecord{
		emb(1, 1, 0),
		emb(2, 1, 0),
		emb(3, 1, 0),
	}

	pair, ok := NearestPair(records)
	require.True(t, ok)
	assert.Equal(t, int64(1), pair.A.ID)
	assert.Equal(t, int64(2), pair.B.ID)
}

func TestNearestPair_InsufficientData(t *testing.T) {
	_, ok := NearestPair(nil)
	assert.False(t, ok)

	_, ok = NearestPair([]models.CaptureRecord{emb(1, 1, 0)})
	assert.False(t, ok)

	// Records without embeddings do not count toward the minimum.
	_, ok = NearestPair([]models.CaptureRecord{
		emb(1, 1, 0),
		{ID: 2, Content: "no vector"},
	})
	assert.False(t, ok)
}

// Pairs with mismatched embedding dimensions are skipped; two embedded
// records that cannot be compared report insufficient data, not a panic.
func TestNearestPair_MixedDimensionEmbeddings(t *testing.T) {
	_, ok := NearestPair([]models.CaptureRecord{
		emb(1, 1, 0),
		emb(2, 0.9, 0.1, 0),
	})
	assert.False(t, ok)

	pair, ok := NearestPair([]models.CaptureRecord{
		emb(1, 1, 0),
		emb(2, 0, 1),
		emb(3, 0.9, 0.1, 0), // incomparable with both
	})
	require.True(t, ok)
	assert.Equal(t, int64(1), pair.A.ID)
	assert.Equal(t, int64(2), pair.B.ID)
}
