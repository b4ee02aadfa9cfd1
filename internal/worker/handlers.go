package worker

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	_ "image/jpeg" // frame decoding
	_ "image/png"  // frame decoding
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/recall/internal/capture"
	"github.com/thebtf/recall/internal/cluster"
	"github.com/thebtf/recall/internal/generation"
	"github.com/thebtf/recall/internal/selector"
	"github.com/thebtf/recall/pkg/models"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.captures.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        s.version,
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"record_count":   count,
		"session_id":     s.pipeline.SessionID(),
		"sse_clients":    s.broadcaster.ClientCount(),
		"pipeline":       s.pipeline.Stats(),
	})
}

func (s *Service) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	id := s.pipeline.StartSession()
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id})
}

func (s *Service) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	s.pipeline.StopSession()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// captureFrameRequest carries one frame delivery: change metadata plus the
// raw frame encoded as base64 PNG or JPEG. The frame may be omitted when
// dirty-rect metadata is usable, since the metadata path never inspects
// pixels.
type captureFrameRequest struct {
	Status     capture.FrameStatus `json:"status"`
	DirtyRects []capture.Rect      `json:"dirty_rects"`
	ScreenArea int64               `json:"screen_area"`
	Frame      string              `json:"frame,omitempty"`
}

func (s *Service) handleCaptureFrame(w http.ResponseWriter, r *http.Request) {
	var req captureFrameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	meta := capture.ChangeMetadata{
		Status:     req.Status,
		DirtyRects: req.DirtyRects,
		ScreenArea: req.ScreenArea,
	}

	var frame image.Image
	if req.Frame != "" {
		data, err := base64.StdEncoding.DecodeString(req.Frame)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid frame encoding: "+err.Error())
			return
		}
		frame, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid frame image: "+err.Error())
			return
		}
	}

	// The signature fallback needs pixels; the metadata path does not.
	needsFrame := meta.Status != capture.FrameStatusIdle &&
		(meta.DirtyRects == nil || meta.ScreenArea <= 0)
	if needsFrame && frame == nil {
		writeError(w, http.StatusBadRequest, "frame required when no usable dirty-rect metadata is supplied")
		return
	}

	decision, err := s.pipeline.EvaluateFrame(frame, meta)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

type captureTextRequest struct {
	Text        string `json:"text"`
	Description string `json:"description,omitempty"`
}

func (s *Service) handleCaptureText(w http.ResponseWriter, r *http.Request) {
	var req captureTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	rec, stored, err := s.pipeline.IngestText(r.Context(), req.Text, req.Description)
	if err != nil {
		if errors.Is(err, capture.ErrNoActiveSession) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if !stored {
		writeJSON(w, http.StatusOK, map[string]any{"stored": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stored": true, "record": rec})
}

func (s *Service) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.captures.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"records":     records,
		"total_count": len(records),
	})
}

func (s *Service) handleClearRecords(w http.ResponseWriter, r *http.Request) {
	if err := s.captures.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Clearing the log also forgets the dedup baseline, otherwise the next
	// recognized text could be silently dropped against a deleted record.
	s.pipeline.ResetDedup()

	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Service) handleContext(w http.ResponseWriter, r *http.Request) {
	records, err := s.captures.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	selected := selector.Select(records, s.cfg.SelectorConfig())
	prompt := selector.BuildPrompt(selected)

	tokens, err := generation.TokenCount(prompt)
	if err != nil {
		log.Warn().Err(err).Msg("Token counting failed")
		tokens = -1
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"prompt":         prompt,
		"token_count":    tokens,
		"selected_count": len(selected),
		"total_count":    len(records),
		"records":        selected,
	})
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Service) handleAsk(w http.ResponseWriter, r *http.Request) {
	if s.generator == nil {
		writeError(w, http.StatusServiceUnavailable, "generation is not configured")
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	records, err := s.captures.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	selected := selector.Select(records, s.cfg.SelectorConfig())
	prompt := selector.BuildPrompt(selected)

	answer, err := s.generator.Generate(r.Context(), prompt, req.Question)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"answer":         answer,
		"selected_count": len(selected),
	})
}

// clusterView is the JSON shape of one diagnostic cluster.
type clusterView struct {
	Size     int                    `json:"size"`
	Centroid []float64              `json:"centroid"`
	Records  []models.CaptureRecord `json:"records"`
}

func (s *Service) handleClusters(w http.ResponseWriter, r *http.Request) {
	threshold := s.cfg.ClusterThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 || parsed > 1 {
			writeError(w, http.StatusBadRequest, "threshold must be in (0, 1]")
			return
		}
		threshold = parsed
	}

	records, err := s.captures.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	groups := cluster.Cluster(records, threshold)
	views := make([]clusterView, 0, len(groups))
	for _, g := range groups {
		views = append(views, clusterView{
			Size:     len(g.Records),
			Centroid: g.Centroid(),
			Records:  g.Records,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"threshold": threshold,
		"clusters":  views,
	})
}

func (s *Service) handleNearestPair(w http.ResponseWriter, r *http.Request) {
	records, err := s.captures.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	pair, ok := cluster.NearestPair(records)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"sufficient": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sufficient": true, "pair": pair})
}
