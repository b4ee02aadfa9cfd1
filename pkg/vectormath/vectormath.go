// Package vectormath provides cosine similarity and centroid operations
// over fixed-length embedding vectors.
package vectormath

import "math"

// Cosine returns the cosine similarity between a and b: dot(a,b)/(‖a‖·‖b‖).
// If either vector has zero magnitude, Cosine returns 0; a zero vector has
// no direction to compare.
// The vectors must have the same length; a mismatch is a caller bug and panics.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		panic("vectormath: cosine of vectors with different lengths")
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// Centroid returns the elementwise arithmetic mean of the given vectors.
// Callers never pass an empty set; doing so is a caller bug and panics.
func Centroid(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		panic("vectormath: centroid of empty set")
	}

	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			panic("vectormath: centroid of vectors with different lengths")
		}
		for i, x := range v {
			sum[i] += x
		}
	}

	n := float64(len(vectors))
	for i := range sum {
		sum[i] /= n
	}
	return sum
}

// Normalize returns a unit-length copy of v. A zero vector is returned as-is
// (copied) since it cannot be normalized.
func Normalize(v []float64) []float64 {
	var mag float64
	for _, x := range v {
		mag += x * x
	}
	mag = math.Sqrt(mag)

	out := make([]float64, len(v))
	if mag == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = x / mag
	}
	return out
}
