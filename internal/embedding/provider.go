// Package embedding provides text embedding providers for capture records.
package embedding

import "context"

// Provider produces a fixed-dimension embedding vector for a piece of text.
//
// A (nil, nil) return means the provider has no embedding for this text
// (e.g. unsupported language). Absence is a first-class, non-error outcome:
// the record is stored without a vector and stays selectable by recency.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}
