package gorm

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/thebtf/recall/pkg/models"
)

// CaptureStore provides capture-log database operations. The store is a
// pure log: deduplication happens upstream in the capture pipeline, never
// here.
type CaptureStore struct {
	db *gorm.DB
}

// NewCaptureStore creates a new capture store.
func NewCaptureStore(store *Store) *CaptureStore {
	return &CaptureStore{db: store.DB}
}

// Append stores a new capture record tagged with the capture session that
// produced it, and fills in the record's assigned ID.
func (s *CaptureStore) Append(ctx context.Context, sessionID string, rec *models.CaptureRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	row := &Capture{
		SessionID:       sessionID,
		Content:         rec.Content,
		Description:     nullString(rec.Description),
		Embedding:       rec.Embedding,
		CapturedAt:      ts.Format(time.RFC3339),
		CapturedAtEpoch: ts.UnixMilli(),
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	rec.ID = row.ID
	return nil
}

// ListAll returns the full capture log ordered ascending by timestamp.
// Callers treat the result as an immutable snapshot.
func (s *CaptureStore) ListAll(ctx context.Context) ([]models.CaptureRecord, error) {
	var rows []Capture
	err := s.db.WithContext(ctx).
		Order("captured_at_epoch ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]models.CaptureRecord, 0, len(rows))
	for i := range rows {
		records = append(records, toRecord(&rows[i]))
	}
	return records, nil
}

// Clear deletes the entire capture log.
func (s *CaptureStore) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&Capture{}).Error
}

// Count returns the number of stored captures.
func (s *CaptureStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Capture{}).Count(&count).Error
	return count, err
}

func toRecord(row *Capture) models.CaptureRecord {
	return models.CaptureRecord{
		ID:          row.ID,
		Timestamp:   time.UnixMilli(row.CapturedAtEpoch).UTC(),
		Content:     row.Content,
		Description: row.Description.String,
		Embedding:   row.Embedding,
	}
}

// nullString converts a string to sql.NullString.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
