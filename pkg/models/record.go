// Package models contains domain models for recall.
package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// CaptureRecord is one accepted, deduplicated screen capture. Records are
// immutable after creation: they are appended once and only removed by a
// bulk clear of the capture log.
type CaptureRecord struct {
	ID          int64            `db:"id" json:"id"`
	Timestamp   time.Time        `db:"captured_at" json:"captured_at"`
	Content     string           `db:"content" json:"content"`
	Description string           `db:"description" json:"description,omitempty"`
	Embedding   JSONFloat64Array `db:"embedding" json:"embedding,omitempty"`
}

// HasEmbedding reports whether an embedding provider produced a vector for
// this record. Absence is a normal outcome, not an error state.
func (r *CaptureRecord) HasEmbedding() bool {
	return len(r.Embedding) > 0
}

// JSONFloat64Array is an embedding vector stored as a JSON array in a TEXT
// column. Implements sql.Scanner and driver.Valuer.
type JSONFloat64Array []float64

// Scan implements sql.Scanner.
func (a *JSONFloat64Array) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			*a = nil
			return nil
		}
		return json.Unmarshal(v, a)
	case string:
		if v == "" {
			*a = nil
			return nil
		}
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("unsupported type for JSONFloat64Array: %T", value)
	}
}

// Value implements driver.Valuer.
func (a JSONFloat64Array) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
