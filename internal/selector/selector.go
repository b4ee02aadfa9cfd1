// Package selector builds bounded, relevance-ranked context windows over a
// snapshot of the capture log for downstream generation prompts.
package selector

import (
	"sort"
	"time"

	"github.com/thebtf/recall/pkg/models"
	"github.com/thebtf/recall/pkg/vectormath"
)

// Config controls how the selector balances recency against semantic
// relevance.
type Config struct {
	// RecentWindow is the trailing interval from the latest record that
	// forms the primary selection.
	RecentWindow time.Duration `yaml:"recent_window"`
	// MinRecent is the minimum size of the recency set before the
	// fallback kicks in.
	MinRecent int `yaml:"min_recent"`
	// MaxRecentFallback is how many trailing records to take when the
	// window holds fewer than MinRecent.
	MaxRecentFallback int `yaml:"max_recent_fallback"`
	// MaxTotal bounds the output size.
	MaxTotal int `yaml:"max_total"`
	// SimilarityThreshold is the minimum cosine score for a record to be
	// pulled in by similarity expansion.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// DefaultConfig returns the stock selection parameters.
func DefaultConfig() Config {
	return Config{
		RecentWindow:        60 * time.Second,
		MinRecent:           5,
		MaxRecentFallback:   20,
		MaxTotal:            40,
		SimilarityThreshold: 0.75,
	}
}

// Select returns a bounded, chronologically ordered subset of records for
// prompting. It is a pure, deterministic function of the snapshot and config.
//
// The recency window anchored at the latest record forms the base selection;
// if it holds fewer than MinRecent records, the last MaxRecentFallback
// records are taken instead, ignoring the window. When any record in the
// base set carries an embedding, the remaining embedded records are scored
// against the base set's centroid and greedily appended in descending score
// order while the score stays at or above SimilarityThreshold and the
// selection stays under MaxTotal. Overflow is resolved by dropping the
// oldest records first. Embeddings whose dimension differs from the most
// recent embedded record's are ignored for scoring, like absent embeddings.
func Select(records []models.CaptureRecord, cfg Config) []models.CaptureRecord {
	if len(records) == 0 {
		return nil
	}

	sorted := make([]models.CaptureRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	latest := sorted[len(sorted)-1].Timestamp
	cutoff := latest.Add(-cfg.RecentWindow)

	// recentStart is the first index inside the recency window.
	recentStart := sort.Search(len(sorted), func(i int) bool {
		return !sorted[i].Timestamp.Before(cutoff)
	})

	if len(sorted)-recentStart < cfg.MinRecent {
		recentStart = len(sorted) - cfg.MaxRecentFallback
		if recentStart < 0 {
			recentStart = 0
		}
	}

	selected := make(map[int]struct{}, len(sorted)-recentStart)
	for i := recentStart; i < len(sorted); i++ {
		selected[i] = struct{}{}
	}

	// Records without embeddings stay selected by recency but contribute
	// nothing to the centroid or scoring. Embeddings of a different
	// dimension (left behind when the embedding model changes without
	// clearing the log) are treated the same way; the most recent embedded
	// record fixes the dimension.
	var dim int
	for i := len(sorted) - 1; i >= recentStart; i-- {
		if sorted[i].HasEmbedding() {
			dim = len(sorted[i].Embedding)
			break
		}
	}

	var embedded [][]float64
	for i := recentStart; i < len(sorted); i++ {
		if dim > 0 && len(sorted[i].Embedding) == dim {
			embedded = append(embedded, sorted[i].Embedding)
		}
	}

	if len(embedded) > 0 {
		centroid := vectormath.Centroid(embedded)

		type candidate struct {
			idx   int
			score float64
		}
		var candidates []candidate
		for i := 0; i < recentStart; i++ {
			if len(sorted[i].Embedding) != dim {
				continue
			}
			candidates = append(candidates, candidate{
				idx:   i,
				score: vectormath.Cosine(sorted[i].Embedding, centroid),
			})
		}

		// Stable sort preserves chronological order among equal scores;
		// that order is an artifact, not a guarantee.
		sort.SliceStable(candidates, func(a, b int) bool {
			return candidates[a].score > candidates[b].score
		})

		for _, c := range candidates {
			if len(selected) >= cfg.MaxTotal || c.score < cfg.SimilarityThreshold {
				break
			}
			selected[c.idx] = struct{}{}
		}
	}

	idxs := make([]int, 0, len(selected))
	for i := range selected {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)

	// Overflow drops the oldest records first.
	if len(idxs) > cfg.MaxTotal {
		idxs = idxs[len(idxs)-cfg.MaxTotal:]
	}

	out := make([]models.CaptureRecord, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, sorted[i])
	}
	return out
}
