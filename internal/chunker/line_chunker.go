package chunker

import "strings"

// lineChunk is an intermediate chunk before tagging: a half-open line
// range [startLine, endLine] (1-indexed, inclusive) over a line array.
type lineChunk struct {
	startLine int // 1-indexed
	endLine   int
	content   string
}

// chunkLines builds overlapping windows over lines (0-indexed slice,
// rebased to baseLine for its reported line numbers), per spec.md §4.3's
// line-chunker: window/overlap sizes derive from the token estimator,
// advancing by max(1, window_lines - overlap_lines).
func chunkLines(lines []string, baseLine, chunkTokens, overlapTokens int) []lineChunk {
	if len(lines) == 0 {
		return nil
	}
	avg := averageLineBytes(lines)
	windowLines := linesForTokens(chunkTokens, avg)
	overlapLines := linesForTokens(overlapTokens, avg)
	if overlapLines >= windowLines {
		overlapLines = windowLines - 1
	}
	if overlapLines < 0 {
		overlapLines = 0
	}
	step := windowLines - overlapLines
	if step < 1 {
		step = 1
	}

	var chunks []lineChunk
	for start := 0; start < len(lines); start += step {
		end := start + windowLines
		if end > len(lines) {
			end = len(lines)
		}
		content := strings.Join(lines[start:end], "\n")
		chunks = append(chunks, lineChunk{
			startLine: baseLine + start + 1,
			endLine:   baseLine + end,
			content:   content,
		})
		if end == len(lines) {
			break
		}
	}
	return chunks
}
