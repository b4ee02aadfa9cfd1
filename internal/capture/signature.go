// Package capture implements the per-session decision engine that filters
// captured frames and recognized text before anything reaches storage.
package capture

import "image"

// DefaultSignatureSize is the side length of the downsampled signature grid.
const DefaultSignatureSize = 16

// Signature is a small single-channel intensity fingerprint of a frame,
// laid out row-major as size×size bytes. It is ephemeral: it lives only
// inside session state and is never persisted.
type Signature []uint8

// ComputeSignature downsamples a frame into a size×size grayscale grid by
// block-averaging luma values.
func ComputeSignature(frame image.Image, size int) Signature {
	if size <= 0 {
		size = DefaultSignatureSize
	}

	bounds := frame.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	sig := make(Signature, size*size)
	if w == 0 || h == 0 {
		return sig
	}

	for by := 0; by < size; by++ {
		y0 := bounds.Min.Y + by*h/size
		y1 := bounds.Min.Y + (by+1)*h/size
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for bx := 0; bx < size; bx++ {
			x0 := bounds.Min.X + bx*w/size
			x1 := bounds.Min.X + (bx+1)*w/size
			if x1 <= x0 {
				x1 = x0 + 1
			}

			var sum, count uint64
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					r, g, b, _ := frame.At(x, y).RGBA()
					// Rec. 601 luma, scaled from 16-bit to 8-bit.
					luma := (299*r + 587*g + 114*b) / 1000 >> 8
					sum += uint64(luma)
					count++
				}
			}
			sig[by*size+bx] = uint8(sum / count)
		}
	}
	return sig
}

// Delta returns the mean absolute intensity difference between two
// signatures, normalized to [0, 1]: Σ|a[i]−b[i]| / (255·N²).
// Signatures must come from the same session and therefore have the same
// size; a mismatch is a caller bug and panics.
func (s Signature) Delta(other Signature) float64 {
	if len(s) != len(other) {
		panic("capture: delta of signatures with different sizes")
	}

	var total int
	for i := range s {
		d := int(s[i]) - int(other[i])
		if d < 0 {
			d = -d
		}
		total += d
	}
	return float64(total) / (255 * float64(len(s)))
}
