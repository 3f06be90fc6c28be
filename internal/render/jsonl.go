package render

import (
	"encoding/json"
	"strings"

	"github.com/repoctx/repoctx/internal/domain"
)

// chunkRecord is one line of the JSONL chunk stream, field names per
// spec.md's chunks.jsonl contract.
type chunkRecord struct {
	ID            string   `json:"id"`
	Path          string   `json:"path"`
	Language      string   `json:"language"`
	StartLine     int      `json:"start_line"`
	EndLine       int      `json:"end_line"`
	Content       string   `json:"content"`
	Priority      float64  `json:"priority"`
	Tags          []string `json:"tags"`
	TokenEstimate int      `json:"token_estimate"`
}

// JSONL renders chunks as newline-delimited JSON, one chunk per line, in
// the order given (the caller's stitch-story order).
func JSONL(chunks []*domain.Chunk) (string, error) {
	var b strings.Builder
	for _, c := range chunks {
		rec := chunkRecord{
			ID:            c.ID,
			Path:          c.FilePath,
			Language:      c.Language,
			StartLine:     c.StartLine,
			EndLine:       c.EndLine,
			Content:       c.Content,
			Priority:      c.Priority,
			Tags:          c.Tags,
			TokenEstimate: c.TokenEstimate,
		}
		line, err := json.Marshal(rec)
		if err != nil {
			return "", err
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	return b.String(), nil
}
