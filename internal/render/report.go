package render

import (
	"encoding/json"
	"time"

	"github.com/repoctx/repoctx/internal/budget"
	"github.com/repoctx/repoctx/internal/domain"
	"github.com/repoctx/repoctx/internal/scan"
)

const reportSchemaVersion = "1.0.0"

// ReportStats mirrors the "stats" object spec.md §6 requires: scan
// counters, redaction/token totals, the top ranked files, and the full
// list of dropped files with their drop reasons.
type ReportStats struct {
	Scan                 scan.Stats            `json:"scan"`
	RedactionRulesFired  int                   `json:"redaction_rules_fired"`
	ChunksCreated         int                   `json:"chunks_created"`
	TotalTokensEstimated  int                   `json:"total_tokens_estimated"`
	TopRankedFiles        []ReportFileRef       `json:"top_ranked_files"`
	DroppedFiles          []budget.DroppedFile  `json:"dropped_files"`
	ProcessingTimeSeconds float64               `json:"processing_time_seconds"`
}

// ReportFileRef is the curated per-file entry in report.json's "files"
// and "top_ranked_files" arrays.
type ReportFileRef struct {
	ID       string  `json:"id"`
	Path     string  `json:"path"`
	Priority float64 `json:"priority"`
	Tokens   int     `json:"tokens"`
}

// Report is the full report.json document.
type Report struct {
	SchemaVersion string          `json:"schema_version"`
	GeneratedAt   *string         `json:"generated_at,omitempty"`
	Config        any             `json:"config"`
	Stats         ReportStats     `json:"stats"`
	Files         []ReportFileRef `json:"files"`
	OutputFiles   []string        `json:"output_files"`
}

// BuildReport assembles the report document. config is the already
// curated configuration dict (the CLI layer's job to build); files are
// the final ranked/selected files with their chunk counts already
// rolled into ReportFileRef.Tokens.
func BuildReport(config any, stats ReportStats, files []ReportFileRef, outputFiles []string, noTimestamp bool, generatedAt time.Time) Report {
	r := Report{
		SchemaVersion: reportSchemaVersion,
		Config:        config,
		Stats:         stats,
		Files:         files,
		OutputFiles:   outputFiles,
	}
	if !noTimestamp {
		ts := generatedAt.UTC().Format(time.RFC3339)
		r.GeneratedAt = &ts
	}
	return r
}

// MarshalReport serializes the report with stable two-space indentation
// so byte-identical re-runs stay byte-identical.
func MarshalReport(r Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// TopRankedFiles takes the top n files by priority (already ranked
// order expected) and projects them into ReportFileRef, tokens summed
// from the given chunk set.
func TopRankedFiles(files []*domain.FileInfo, tokensByPath map[string]int, n int) []ReportFileRef {
	if n > len(files) {
		n = len(files)
	}
	out := make([]ReportFileRef, 0, n)
	for _, f := range files[:n] {
		out = append(out, ReportFileRef{Path: f.Path, Priority: round3(f.Priority), Tokens: tokensByPath[f.Path]})
	}
	return out
}

func round3(f float64) float64 {
	return float64(int(f*1000+0.5)) / 1000
}
