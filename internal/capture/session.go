package capture

import (
	"image"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DefaultMinChangeRatio is the minimum observed change ratio below which a
// frame is skipped.
const DefaultMinChangeRatio = 0.02

// FrameStatus is the change status reported by the frame source.
type FrameStatus string

const (
	// FrameStatusIdle means the source reported no change since the last frame.
	FrameStatusIdle FrameStatus = "idle"
	// FrameStatusUpdated means the source reported the screen content changed.
	FrameStatusUpdated FrameStatus = "updated"
)

// Rect is a dirty region reported by the frame source, in screen coordinates.
type Rect struct {
	X      int64 `json:"x"`
	Y      int64 `json:"y"`
	Width  int64 `json:"width"`
	Height int64 `json:"height"`
}

// Area returns the pixel area of the rectangle.
func (r Rect) Area() int64 {
	return r.Width * r.Height
}

// ChangeMetadata is the per-frame change information delivered by the frame
// source alongside the raw frame. DirtyRects == nil means the source supplied
// no dirty-rect metadata; an empty non-nil list means "metadata present, zero
// changed pixels".
type ChangeMetadata struct {
	Status     FrameStatus `json:"status"`
	DirtyRects []Rect      `json:"dirty_rects"`
	ScreenArea int64       `json:"screen_area"`
}

// SkipReason explains why a frame was not forwarded to text recognition.
type SkipReason string

const (
	SkipNone           SkipReason = ""
	SkipIdle           SkipReason = "idle"
	SkipLowChangeRatio SkipReason = "low_change_ratio"
	SkipLowDelta       SkipReason = "low_signature_delta"
)

// Decision is the outcome of evaluating one frame.
type Decision struct {
	Process       bool       `json:"process"`
	ObservedRatio *float64   `json:"observed_ratio,omitempty"`
	Reason        SkipReason `json:"reason,omitempty"`
}

// Session holds the evolving per-capture-session state: the last observed
// frame signature and the last accepted recognized text. One Session exists
// per active capture session; it is constructed at session start and
// discarded at stop, never shared across sessions.
//
// Frame delivery is sequential per session. The internal mutex enforces the
// one-evaluation-at-a-time contract rather than enabling concurrency.
type Session struct {
	id               string
	minChangeRatio   float64
	signatureSize    int
	mu               sync.Mutex
	lastSignature    Signature
	lastAcceptedText string
}

// NewSession creates a fresh session with empty state.
func NewSession(minChangeRatio float64, signatureSize int) *Session {
	if minChangeRatio <= 0 {
		minChangeRatio = DefaultMinChangeRatio
	}
	if signatureSize <= 0 {
		signatureSize = DefaultSignatureSize
	}
	return &Session{
		id:             uuid.NewString(),
		minChangeRatio: minChangeRatio,
		signatureSize:  signatureSize,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// EvaluateFrame decides whether a captured frame should proceed to text
// recognition. Evaluation order:
//
//  1. An idle frame is always skipped.
//  2. If dirty-rect metadata is present and the screen area is known, the
//     changed-pixel ratio decides; the signature fallback is not consulted
//     on that call (the two paths are mutually exclusive per frame).
//  3. Otherwise a frame signature is computed and compared against the
//     previous one. The stored baseline always advances to the current
//     signature, even on skip, so drift is measured from the last
//     observed frame, not the last accepted one.
//
// The first frame of a session with no usable metadata always processes,
// since there is no baseline to compare against yet.
func (s *Session) EvaluateFrame(frame image.Image, meta ChangeMetadata) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	if meta.Status == FrameStatusIdle {
		return Decision{Process: false, Reason: SkipIdle}
	}

	if meta.DirtyRects != nil && meta.ScreenArea > 0 {
		var dirty int64
		for _, r := range meta.DirtyRects {
			dirty += r.Area()
		}
		ratio := float64(dirty) / float64(meta.ScreenArea)
		if ratio < s.minChangeRatio {
			return Decision{Process: false, ObservedRatio: &ratio, Reason: SkipLowChangeRatio}
		}
		return Decision{Process: true, ObservedRatio: &ratio}
	}

	cur := ComputeSignature(frame, s.signatureSize)
	prev := s.lastSignature
	s.lastSignature = cur

	if prev == nil {
		return Decision{Process: true}
	}

	delta := prev.Delta(cur)
	if delta < s.minChangeRatio {
		return Decision{Process: false, ObservedRatio: &delta, Reason: SkipLowDelta}
	}
	return Decision{Process: true, ObservedRatio: &delta}
}

// AcceptText applies the text deduplication rule to newly recognized text.
// The text is trimmed of surrounding whitespace; empty text and text equal
// to the previously accepted text are rejected. On acceptance the trimmed
// text becomes the new comparison baseline and is returned.
func (s *Session) AcceptText(text string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}
	if trimmed == s.lastAcceptedText {
		return "", false
	}

	s.lastAcceptedText = trimmed
	return trimmed, true
}

// Reset clears all session state. Called on session start/stop boundaries.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSignature = nil
	s.lastAcceptedText = ""
}

// ClearAcceptedText forgets the dedup baseline without touching the frame
// signature. Called when the capture log is cleared so the next recognized
// text is stored even if it matches the last one.
func (s *Session) ClearAcceptedText() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAcceptedText = ""
}
