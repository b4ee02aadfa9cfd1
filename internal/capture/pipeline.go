package capture

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/recall/internal/embedding"
	"github.com/thebtf/recall/pkg/models"
)

// ErrNoActiveSession is returned when a frame or text arrives while no
// capture session is running.
var ErrNoActiveSession = errors.New("capture: no active session")

// RecordStore is the storage collaborator boundary the pipeline writes to.
// Storage never deduplicates: everything appended here has already passed
// the change detector and the text deduplicator.
type RecordStore interface {
	Append(ctx context.Context, sessionID string, rec *models.CaptureRecord) error
}

// Pipeline ties the frame change detector, text deduplicator, embedding
// provider, and record store together for one capture session at a time.
type Pipeline struct {
	minChangeRatio float64
	signatureSize  int
	embedder       embedding.Provider
	store          RecordStore
	stats          Stats
	onRecord       func(models.CaptureRecord)

	mu     sync.Mutex
	active *Session
}

// NewPipeline creates a pipeline with no active session. The embedder may be
// nil, in which case records are stored without embeddings. onRecord, if
// non-nil, is invoked after each stored record (e.g. for event broadcasting).
func NewPipeline(minChangeRatio float64, signatureSize int, embedder embedding.Provider, store RecordStore, onRecord func(models.CaptureRecord)) *Pipeline {
	return &Pipeline{
		minChangeRatio: minChangeRatio,
		signatureSize:  signatureSize,
		embedder:       embedder,
		store:          store,
		onRecord:       onRecord,
	}
}

// StartSession begins a new capture session with fresh state, replacing any
// session already running. Returns the new session ID.
func (p *Pipeline) StartSession() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.active = NewSession(p.minChangeRatio, p.signatureSize)
	log.Info().Str("sessionId", p.active.id).Msg("Capture session started")
	return p.active.id
}

// StopSession ends the active session and discards its state. Evaluations
// already in flight complete against the old session object; their results
// are discarded because the session is no longer active.
func (p *Pipeline) StopSession() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active != nil {
		log.Info().Str("sessionId", p.active.id).Msg("Capture session stopped")
	}
	p.active = nil
}

// SessionID returns the active session's ID, or "" when none is running.
func (p *Pipeline) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active == nil {
		return ""
	}
	return p.active.id
}

func (p *Pipeline) session() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// EvaluateFrame runs the change detector for the active session and reports
// whether the frame should proceed to text recognition.
func (p *Pipeline) EvaluateFrame(frame image.Image, meta ChangeMetadata) (Decision, error) {
	sess := p.session()
	if sess == nil {
		return Decision{}, ErrNoActiveSession
	}

	decision := sess.EvaluateFrame(frame, meta)
	p.stats.recordDecision(decision)
	return decision, nil
}

// IngestText runs recognized text through the deduplicator, attaches an
// embedding when the provider yields one, and appends the record to storage.
// Returns (nil, false, nil) when the text was rejected by deduplication or
// the session stopped while the text was being processed.
//
// Embedding failures degrade to "no embedding": the record is stored and
// remains selectable by recency.
func (p *Pipeline) IngestText(ctx context.Context, text, description string) (*models.CaptureRecord, bool, error) {
	sess := p.session()
	if sess == nil {
		return nil, false, ErrNoActiveSession
	}

	accepted, ok := sess.AcceptText(text)
	if !ok {
		p.stats.textDeduplicated.Add(1)
		return nil, false, nil
	}

	var vector []float64
	if p.embedder != nil {
		var err error
		vector, err = p.embedder.Embed(ctx, accepted)
		if err != nil {
			log.Warn().Err(err).Msg("Embedding failed, storing record without vector")
			vector = nil
		}
	}

	rec := &models.CaptureRecord{
		Timestamp:   time.Now(),
		Content:     accepted,
		Description: description,
		Embedding:   models.JSONFloat64Array(vector),
	}

	// A stop that raced with this ingestion discards the result.
	if p.session() != sess {
		log.Debug().Str("sessionId", sess.id).Msg("Session stopped mid-ingestion, record discarded")
		return nil, false, nil
	}

	if err := p.store.Append(ctx, sess.id, rec); err != nil {
		return nil, false, err
	}
	p.stats.recordsStored.Add(1)

	if p.onRecord != nil {
		p.onRecord(*rec)
	}
	return rec, true, nil
}

// ResetDedup clears the active session's accepted-text baseline. Called when
// the capture log is cleared.
func (p *Pipeline) ResetDedup() {
	if sess := p.session(); sess != nil {
		sess.ClearAcceptedText()
	}
}

// Stats returns a snapshot of pipeline counters.
func (p *Pipeline) Stats() StatsSnapshot {
	return p.stats.Snapshot()
}
