package capture

import "sync/atomic"

// Stats tracks capture pipeline counters across sessions.
type Stats struct {
	framesSeen       atomic.Int64
	framesProcessed  atomic.Int64
	skippedIdle      atomic.Int64
	skippedLowRatio  atomic.Int64
	skippedLowDelta  atomic.Int64
	textDeduplicated atomic.Int64
	recordsStored    atomic.Int64
}

// StatsSnapshot is a point-in-time copy of pipeline counters.
type StatsSnapshot struct {
	FramesSeen       int64 `json:"frames_seen"`
	FramesProcessed  int64 `json:"frames_processed"`
	SkippedIdle      int64 `json:"skipped_idle"`
	SkippedLowRatio  int64 `json:"skipped_low_ratio"`
	SkippedLowDelta  int64 `json:"skipped_low_delta"`
	TextDeduplicated int64 `json:"text_deduplicated"`
	RecordsStored    int64 `json:"records_stored"`
}

// recordDecision updates counters for a frame evaluation outcome.
func (s *Stats) recordDecision(d Decision) {
	s.framesSeen.Add(1)
	if d.Process {
		s.framesProcessed.Add(1)
		return
	}
	switch d.Reason {
	case SkipIdle:
		s.skippedIdle.Add(1)
	case SkipLowChangeRatio:
		s.skippedLowRatio.Add(1)
	case SkipLowDelta:
		s.skippedLowDelta.Add(1)
	}
}

// Snapshot returns a consistent copy of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		FramesSeen:       s.framesSeen.Load(),
		FramesProcessed:  s.framesProcessed.Load(),
		SkippedIdle:      s.skippedIdle.Load(),
		SkippedLowRatio:  s.skippedLowRatio.Load(),
		SkippedLowDelta:  s.skippedLowDelta.Load(),
		TextDeduplicated: s.textDeduplicated.Load(),
		RecordsStored:    s.recordsStored.Load(),
	}
}
