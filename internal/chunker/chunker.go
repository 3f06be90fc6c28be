// Package chunker splits file content into domain.Chunk values using the
// three-tier strategy from spec.md §4.3: AST declaration boundaries for
// languages tree-sitter supports, a regex-keyword fallback, and a
// line-window chunker as the last resort. Adapted from the teacher's
// internal/chunk package (parser.go, languages.go), generalized to
// repoctx's Chunk shape and spec's exact sectioning/coalesce rules.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/repoctx/repoctx/internal/domain"
)

// Options controls chunk sizing, mirroring rconfig.ChunkConfig.
type Options struct {
	ChunkTokens    int
	ChunkOverlap   int
	MinChunkTokens int
}

// Chunker produces chunks for one file at a time; it owns a tree-sitter
// parser so callers should Close it when done with a batch.
type Chunker struct {
	parser *Parser
}

func New() *Chunker {
	return &Chunker{parser: NewParser()}
}

func (c *Chunker) Close() {
	c.parser.Close()
}

// Chunk splits a single file's content into ordered chunks.
func (c *Chunker) Chunk(filePath, language, content string, fileTags []string, opts Options) []*domain.Chunk {
	lines := splitLines(content)
	if len(lines) == 0 {
		return nil
	}

	boundaries := c.boundaries(language, content, lines)

	var sections []lineChunk
	for i := 0; i < len(boundaries)-1; i++ {
		start := boundaries[i]
		end := boundaries[i+1]
		sectionLines := lines[start:end]
		sectionContent := strings.Join(sectionLines, "\n")

		if EstimateTokens(sectionContent) <= opts.ChunkTokens {
			sections = append(sections, lineChunk{
				startLine: start + 1,
				endLine:   end,
				content:   sectionContent,
			})
			continue
		}
		sections = append(sections, chunkLines(sectionLines, start, opts.ChunkTokens, opts.ChunkOverlap)...)
	}

	chunks := make([]*domain.Chunk, 0, len(sections))
	for _, s := range sections {
		chunks = append(chunks, buildChunk(filePath, language, s, fileTags))
	}

	return coalesce(chunks, opts.ChunkTokens, opts.MinChunkTokens)
}

// boundaries returns 0-indexed section boundary rows (including 0 and
// len(lines)), trying AST, then regex, then falling back to no boundaries
// at all (the line chunker handles that case directly).
func (c *Chunker) boundaries(language string, content string, lines []string) []int {
	var rows []int
	if language != "" {
		if _, ok := DefaultRegistry().Config(language); ok {
			rows = astBoundaries(c.parser, []byte(content), language)
		}
	}
	if len(rows) <= 2 {
		rows = regexBoundaries(lines)
	}
	if len(rows) <= 1 {
		return []int{0, len(lines)}
	}

	full := append([]int{0}, rows...)
	full = append(full, len(lines))
	return dedupeSorted(full)
}

func buildChunk(filePath, language string, s lineChunk, fileTags []string) *domain.Chunk {
	tags := tagsForContent(s.content)
	tags = append(tags, fileTags...)
	tags = dedupeStrings(tags)

	ch := &domain.Chunk{
		FilePath:      filePath,
		StartLine:     s.startLine,
		EndLine:       s.endLine,
		Language:      language,
		ContentType:   contentTypeFor(language),
		TokenEstimate: EstimateTokens(s.content),
		Tags:          tags,
		Content:       s.content,
		RawContent:    s.content,
	}
	ch.ID = stableChunkID(filePath, s.startLine, s.endLine, s.content)
	return ch
}

func contentTypeFor(language string) domain.ContentType {
	switch language {
	case "markdown":
		return domain.ContentTypeMarkdown
	case "":
		return domain.ContentTypeOther
	default:
		return domain.ContentTypeCode
	}
}

// coalesce merges adjacent same-file chunks whose token estimate is below
// minTokens into their neighbour, never exceeding maxTokens, per spec.md
// §4.3's coalesce pass.
func coalesce(chunks []*domain.Chunk, maxTokens, minTokens int) []*domain.Chunk {
	if len(chunks) == 0 {
		return chunks
	}
	merged := []*domain.Chunk{chunks[0]}
	for _, next := range chunks[1:] {
		last := merged[len(merged)-1]
		if last.TokenEstimate < minTokens && last.TokenEstimate+next.TokenEstimate <= maxTokens {
			last.Content = last.Content + "\n" + next.Content
			last.RawContent = last.Content
			last.EndLine = next.EndLine
			last.TokenEstimate = EstimateTokens(last.Content)
			last.Tags = dedupeStrings(append(last.Tags, next.Tags...))
			last.ID = stableChunkID(last.FilePath, last.StartLine, last.EndLine, last.Content)
			continue
		}
		merged = append(merged, next)
	}
	return merged
}

func dedupeStrings(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// stableChunkID derives a content-addressable id: double-hashed so the
// same (path, range, content) always yields the same id across runs,
// while distinct files/ranges with identical content don't collide.
func stableChunkID(path string, start, end int, content string) string {
	inner := sha256.Sum256([]byte(content))
	outer := sha256.Sum256([]byte(path + ":" + itoa(start) + ":" + itoa(end) + ":" + hex.EncodeToString(inner[:])))
	return hex.EncodeToString(outer[:])[:32]
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
