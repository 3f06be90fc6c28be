// Package render turns a ranked, chunked, reranked repository selection
// into the output artifacts a run produces: the Markdown context pack,
// the JSONL chunk stream, the JSON report, and (when no persistent
// index already exists) a standalone symbol graph database.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/repoctx/repoctx/internal/domain"
)

// ContextPackInput bundles everything the Markdown renderer needs.
type ContextPackInput struct {
	RepoName     string
	Tree         string
	Files        []*domain.FileInfo // ranked order
	Chunks       []*domain.Chunk    // already in stitch-story order
	TaskQuery    string
	NoTimestamp  bool
	GeneratedAt  time.Time
}

// ContextPack renders the Markdown context pack: a header, a tree view,
// a ranked file list, and the chunks in the order they were handed to
// it (the pipeline's final stitch-story sort).
func ContextPack(in ContextPackInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Context Pack: %s\n\n", in.RepoName)
	if !in.NoTimestamp {
		fmt.Fprintf(&b, "_Generated: %s_\n\n", in.GeneratedAt.UTC().Format(time.RFC3339))
	}
	if in.TaskQuery != "" {
		fmt.Fprintf(&b, "_Task: %s_\n\n", in.TaskQuery)
	}

	b.WriteString("## Repository Tree\n\n```\n")
	b.WriteString(strings.TrimRight(in.Tree, "\n"))
	b.WriteString("\n```\n\n")

	b.WriteString("## Ranked Files\n\n")
	b.WriteString("| Priority | Path | Language |\n|---|---|---|\n")
	for _, f := range in.Files {
		fmt.Fprintf(&b, "| %.3f | %s | %s |\n", f.Priority, f.Path, f.Language)
	}
	b.WriteString("\n")

	b.WriteString("## Chunks\n\n")
	lastPath := ""
	for _, c := range in.Chunks {
		if c.FilePath != lastPath {
			fmt.Fprintf(&b, "### %s\n\n", c.FilePath)
			lastPath = c.FilePath
		}
		fmt.Fprintf(&b, "```%s\n", fenceLang(c.Language))
		b.WriteString(strings.TrimRight(c.Content, "\n"))
		b.WriteString("\n```\n")
		fmt.Fprintf(&b, "_lines %d-%d, priority %.3f", c.StartLine, c.EndLine, c.Priority)
		if c.StitchTier != domain.StitchTierNone {
			fmt.Fprintf(&b, ", %s", c.StitchTier)
		}
		b.WriteString("_\n\n")
	}

	return b.String()
}

func fenceLang(lang string) string {
	if lang == "" {
		return "text"
	}
	return lang
}
