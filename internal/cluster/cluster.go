// Package cluster provides online greedy grouping of embedded capture
// records by cosine similarity, for diagnostics.
package cluster

import (
	"github.com/thebtf/recall/pkg/models"
	"github.com/thebtf/recall/pkg/vectormath"
)

// DefaultThreshold is the minimum centroid similarity for a record to join
// an existing group.
const DefaultThreshold = 0.85

// Group is one cluster of embedded records. The running sum of member
// embeddings is kept so the centroid can be recomputed fresh on demand.
type Group struct {
	Records []models.CaptureRecord
	sum     []float64
}

// Centroid returns the current mean of the group's member embeddings,
// recomputed from the running sum on every call.
func (g *Group) Centroid() []float64 {
	out := make([]float64, len(g.sum))
	n := float64(len(g.Records))
	for i, v := range g.sum {
		out[i] = v / n
	}
	return out
}

func (g *Group) add(rec models.CaptureRecord) {
	g.Records = append(g.Records, rec)
	for i, v := range rec.Embedding {
		g.sum[i] += v
	}
}

func newGroup(rec models.CaptureRecord) *Group {
	sum := make([]float64, len(rec.Embedding))
	copy(sum, rec.Embedding)
	return &Group{
		Records: []models.CaptureRecord{rec},
		sum:     sum,
	}
}

// Cluster groups embedded records in a single online pass, in the order
// given. Each record joins the existing group whose current centroid scores
// highest at or above threshold; ties go to the earliest-created group. A
// record no group qualifies for starts a new singleton group. Records
// without embeddings are excluded entirely; groups whose embedding dimension
// differs from the record's are never candidates, so a model change mid-log
// yields separate per-dimension groups rather than a panic.
//
// Assignments are never revisited: a record's group is fixed at arrival time
// even if later records would have produced a better arrangement. The result
// therefore depends on input order, a property downstream diagnostics
// rely on.
func Cluster(records []models.CaptureRecord, threshold float64) []*Group {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	var groups []*Group
	for _, rec := range records {
		if !rec.HasEmbedding() {
			continue
		}

		best := -1
		var bestScore float64
		for i, g := range groups {
			// Groups of a different dimension (stale embeddings from a
			// model change) can never qualify.
			if len(g.sum) != len(rec.Embedding) {
				continue
			}
			score := vectormath.Cosine(rec.Embedding, g.Centroid())
			// Strict > keeps the earliest group on exact ties.
			if score >= threshold && (best == -1 || score > bestScore) {
				best = i
				bestScore = score
			}
		}

		if best >= 0 {
			groups[best].add(rec)
		} else {
			groups = append(groups, newGroup(rec))
		}
	}
	return groups
}

// Pair is the most similar pair of embedded records.
type Pair struct {
	A          models.CaptureRecord `json:"a"`
	B          models.CaptureRecord `json:"b"`
	Similarity float64              `json:"similarity"`
}

// NearestPair returns the pair of embedded records with maximal cosine
// similarity, scanning all unordered pairs in ascending index order (ties go
// to the first pair encountered). Pairs with mismatched embedding dimensions
// are skipped. Returns false when fewer than two records carry embeddings or
// no two embeddings are comparable: insufficient data, not an error.
func NearestPair(records []models.CaptureRecord) (Pair, bool) {
	var embedded []models.CaptureRecord
	for _, rec := range records {
		if rec.HasEmbedding() {
			embedded = append(embedded, rec)
		}
	}
	if len(embedded) < 2 {
		return Pair{}, false
	}

	best := Pair{Similarity: -2} // below the cosine range
	found := false
	for i := 0; i < len(embedded); i++ {
		for j := i + 1; j < len(embedded); j++ {
			// Mixed-dimension embeddings are incomparable, not an error.
			if len(embedded[i].Embedding) != len(embedded[j].Embedding) {
				continue
			}
			score := vectormath.Cosine(embedded[i].Embedding, embedded[j].Embedding)
			if score > best.Similarity {
				best = Pair{A: embedded[i], B: embedded[j], Similarity: score}
				found = true
			}
		}
	}
	if !found {
		return Pair{}, false
	}
	return best, true
}
