package selector

import (
	"fmt"
	"strings"
	"time"

	"github.com/thebtf/recall/pkg/models"
)

// BuildPrompt serializes selected records into the textual block handed to
// the generation client: one line per record, newline-joined, in ascending
// time order. The format is a compatibility contract with existing prompt
// templates and must not change:
//
//	[<RFC 3339 timestamp>] <content, newlines flattened to spaces>
func BuildPrompt(records []models.CaptureRecord) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, fmt.Sprintf("[%s] %s", r.Timestamp.Format(time.RFC3339), flatten(r.Content)))
	}
	return strings.Join(lines, "\n")
}

// flatten replaces newlines with single spaces so each record stays on one line.
func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}
