package rdiff

import (
	"encoding/json"
	"fmt"
	"io"
)

// Format selects the diff's textual rendering.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Write renders the summary to w in the requested format.
func Write(w io.Writer, summary *Summary, format Format) error {
	switch format {
	case FormatMarkdown:
		writeMarkdown(w, summary)
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	default:
		writeText(w, summary)
		return nil
	}
}

func writeText(w io.Writer, s *Summary) {
	fmt.Fprintf(w, "Context Diff: %s -> %s\n\n", s.Before, s.After)
	fmt.Fprintf(w, "Files: +%d added, -%d removed, %d modified\n", s.FilesAdded, s.FilesRemoved, s.FilesModified)
	fmt.Fprintf(w, "Tokens: %d -> %d (%+d)\n", s.TokensBefore, s.TokensAfter, s.TokensDelta)
	fmt.Fprintf(w, "Chunks: %d -> %d (%+d)\n", s.ChunksBefore, s.ChunksAfter, s.ChunksDelta)
	fmt.Fprintf(w, "Changed chunk tags: %d\n", s.ChangedChunkTags)
	fmt.Fprintf(w, "Moved chunks: %d\n", s.MovedChunks)

	if len(s.AddedFiles) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Added files:")
		for _, f := range capFiles(s.AddedFiles, 10) {
			fmt.Fprintf(w, "  + %s (priority %.3f, %d tokens)\n", f.Path, f.Priority, f.Tokens)
		}
	}
	if len(s.RemovedFiles) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Removed files:")
		for _, f := range capFiles(s.RemovedFiles, 10) {
			fmt.Fprintf(w, "  - %s\n", f.Path)
		}
	}
	if len(s.ModifiedFiles) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Modified files:")
		for _, f := range capModified(s.ModifiedFiles, 12) {
			fmt.Fprintf(w, "  * %s (priority %.3f->%.3f, tokens %d->%d)\n",
				f.Path, f.BeforePriority, f.AfterPriority, f.BeforeTokens, f.AfterTokens)
		}
	}

	if s.Graph != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Graph changes: symbols +%d / -%d, imports +%d / -%d\n",
			s.Graph.AddedSymbols, s.Graph.RemovedSymbols, s.Graph.AddedImports, s.Graph.RemovedImports)
	}
}

func writeMarkdown(w io.Writer, s *Summary) {
	fmt.Fprintln(w, "## Context Diff")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "`%s` -> `%s`\n\n", s.Before, s.After)
	fmt.Fprintf(w, "- Files: +%d / -%d / ~%d\n", s.FilesAdded, s.FilesRemoved, s.FilesModified)
	fmt.Fprintf(w, "- Tokens: %d -> %d (%+d)\n", s.TokensBefore, s.TokensAfter, s.TokensDelta)
	fmt.Fprintf(w, "- Chunks: %d -> %d (%+d)\n", s.ChunksBefore, s.ChunksAfter, s.ChunksDelta)
	fmt.Fprintf(w, "- Changed chunk tags: %d\n", s.ChangedChunkTags)
	fmt.Fprintf(w, "- Moved chunks: %d\n", s.MovedChunks)

	if len(s.AddedFiles) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "### Added Files")
		for _, f := range capFiles(s.AddedFiles, 10) {
			fmt.Fprintf(w, "- `%s` (%.3f, %d tokens)\n", f.Path, f.Priority, f.Tokens)
		}
	}
	if len(s.RemovedFiles) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "### Removed Files")
		for _, f := range capFiles(s.RemovedFiles, 10) {
			fmt.Fprintf(w, "- `%s`\n", f.Path)
		}
	}
	if len(s.ModifiedFiles) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "### Modified Files")
		for _, f := range capModified(s.ModifiedFiles, 12) {
			fmt.Fprintf(w, "- `%s` (priority %.3f->%.3f, tokens %d->%d)\n",
				f.Path, f.BeforePriority, f.AfterPriority, f.BeforeTokens, f.AfterTokens)
		}
	}
}

func capFiles(files []ReportFile, n int) []ReportFile {
	if len(files) > n {
		return files[:n]
	}
	return files
}

func capModified(files []ModifiedFile, n int) []ModifiedFile {
	if len(files) > n {
		return files[:n]
	}
	return files
}
