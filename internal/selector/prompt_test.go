package selector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/thebtf/recall/pkg/models"
)

func TestBuildPrompt_Format(t *testing.T) {
	records := []models.CaptureRecord{
		{
			Timestamp: time.Date(2026, 8, 28, 9, 15, 0, 0, time.UTC),
			Content:   "terminal: go test ./...",
		},
		{
			Timestamp: time.Date(2026, 8, 28, 9, 16, 30, 0, time.UTC),
			Content:   "editor: fixing failing\ntest case",
		},
	}

	prompt := BuildPrompt(records)
	expected := "[2026-08-28T09:15:00Z] terminal: go test ./...\n" +
		"[2026-08-28T09:16:30Z] editor: fixing failing test case"
	assert.Equal(t, expected, prompt)
}

func TestBuildPrompt_FlattensAllNewlineKinds(t *testing.T) {
	records := []models.CaptureRecord{
		{
			Timestamp: time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC),
			Content:   "line one\r\nline two\rline three",
		},
	}

	prompt := BuildPrompt(records)
	assert.Equal(t, "[2026-08-28T09:00:00Z] line one line two line three", prompt)
}

func TestBuildPrompt_Empty(t *testing.T) {
	assert.Equal(t, "", BuildPrompt(nil))
}
