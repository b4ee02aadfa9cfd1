package gorm

import (
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/thebtf/recall/pkg/models"
)

// Capture is the persisted form of a capture record. Rows are written once
// and never updated; removal happens only through a bulk clear.
type Capture struct {
	ID              int64                   `gorm:"primaryKey;autoIncrement"`
	SessionID       string                  `gorm:"index;not null"`
	Content         string                  `gorm:"type:text;not null"`
	Description     sql.NullString          `gorm:"type:text"`
	Embedding       models.JSONFloat64Array `gorm:"type:text"` // JSON array, null when no provider result
	CapturedAt      string                  `gorm:"not null"`
	CapturedAtEpoch int64                   `gorm:"index:idx_captures_captured;not null"`
}

func (Capture) TableName() string { return "captures" }

// BeforeCreate hook to ensure timestamps are set.
func (c *Capture) BeforeCreate(tx *gorm.DB) error {
	if c.CapturedAtEpoch == 0 {
		c.CapturedAtEpoch = time.Now().UnixMilli()
	}
	if c.CapturedAt == "" {
		c.CapturedAt = time.Now().Format(time.RFC3339)
	}
	return nil
}
