// Package codeintel exports a persistent index as a portable,
// scip-lite-formatted JSON document: files, symbols, occurrences, and
// the relationships/symbol_links inferred between them.
package codeintel

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/repoctx/repoctx/internal/importref"
)

const (
	SchemaVersion = "0.4.0"
	Format        = "scip-lite"
)

type File struct {
	Path     string `json:"path"`
	Language string `json:"language"`
	FileHash string `json:"file_hash"`
}

type Symbol struct {
	ID     string   `json:"id"`
	Symbol string   `json:"symbol"`
	Kinds  []string `json:"kinds"`
}

type Occurrence struct {
	ID        string `json:"id"`
	SymbolID  string `json:"symbol_id"`
	Path      string `json:"path"`
	ChunkID   string `json:"chunk_id"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Role      string `json:"role"` // "definition" or "reference"
}

type Relationship struct {
	Kind           string `json:"kind"` // "defines" or "references"
	FromSymbolID   string `json:"from_symbol_id"`
	ToOccurrenceID string `json:"to_occurrence_id"`
}

type SymbolLink struct {
	Kind         string `json:"kind"` // "calls", "tests", or "imports"
	FromSymbolID string `json:"from_symbol_id"`
	ToSymbolID   string `json:"to_symbol_id"`
}

type Stats struct {
	FileCount        int            `json:"file_count"`
	SymbolCount      int            `json:"symbol_count"`
	OccurrenceCount  int            `json:"occurrence_count"`
	SymbolLinkCount  int            `json:"symbol_link_count"`
	SymbolKindCounts map[string]int `json:"symbol_kind_counts"`
	EdgeKindCounts   map[string]int `json:"edge_kind_counts"`
	LanguageCounts   map[string]int `json:"language_counts"`
}

// Document is the full portable code-intel export.
type Document struct {
	SchemaVersion string         `json:"schema_version"`
	Format        string         `json:"format"`
	ProjectRoot   string         `json:"project_root"`
	Files         []File         `json:"files"`
	Symbols       []Symbol       `json:"symbols"`
	Occurrences   []Occurrence   `json:"occurrences"`
	Relationships []Relationship `json:"relationships"`
	SymbolLinks   []SymbolLink   `json:"symbol_links"`
	Stats         Stats          `json:"stats"`
}

// Build reads a persistent index's files/chunks/symbols tables (via db,
// opened by the caller against spec.md §3's schema) and produces the
// portable document. It errors if the index has no symbols table.
func Build(ctx context.Context, db *sql.DB) (*Document, error) {
	var hasSymbols int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'symbols'`).Scan(&hasSymbols); err != nil {
		return nil, fmt.Errorf("check schema: %w", err)
	}
	if hasSymbols == 0 {
		return nil, fmt.Errorf("index schema not found: run `repoctx index` first")
	}

	projectRoot, _ := metadataValue(ctx, db, "repo_root")

	files, err := loadFiles(ctx, db)
	if err != nil {
		return nil, err
	}

	symbols, occurrences, relationships, symbolLinks, err := loadSymbols(ctx, db)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		SchemaVersion: SchemaVersion,
		Format:        Format,
		ProjectRoot:   projectRoot,
		Files:         files,
		Symbols:       symbols,
		Occurrences:   occurrences,
		Relationships: relationships,
		SymbolLinks:   symbolLinks,
	}
	doc.Stats = computeStats(doc)
	return doc, nil
}

// Marshal serializes the document with stable two-space indentation.
func Marshal(doc *Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

func computeStats(doc *Document) Stats {
	s := Stats{
		FileCount:        len(doc.Files),
		SymbolCount:      len(doc.Symbols),
		OccurrenceCount:  len(doc.Occurrences),
		SymbolLinkCount:  len(doc.SymbolLinks),
		SymbolKindCounts: map[string]int{},
		EdgeKindCounts:   map[string]int{},
		LanguageCounts:   map[string]int{},
	}
	for _, f := range doc.Files {
		s.LanguageCounts[f.Language]++
	}
	for _, sym := range doc.Symbols {
		for _, kind := range sym.Kinds {
			s.SymbolKindCounts[kind]++
		}
	}
	for _, link := range doc.SymbolLinks {
		s.EdgeKindCounts[link.Kind]++
	}
	return s
}

func metadataValue(ctx context.Context, db *sql.DB, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ? LIMIT 1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func loadFiles(ctx context.Context, db *sql.DB) ([]File, error) {
	rows, err := db.QueryContext(ctx, `SELECT path, language, content_hash FROM files ORDER BY path ASC`)
	if err != nil {
		return nil, fmt.Errorf("load files: %w", err)
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.Path, &f.Language, &f.FileHash); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

type rawOccurrence struct {
	path      string
	chunkID   string
	startLine int
	endLine   int
}

type symbolAccumulator struct {
	kinds       map[string]bool
	definitions []rawOccurrence
	references  []rawOccurrence
}

type chunkRecord struct {
	path       string
	chunkID    string
	startLine  int
	endLine    int
	tokens     map[string]bool
	importRefs []string
}

type referenceOccurrence struct {
	targetSymbolID string
	path           string
	chunkID        string
}

func loadSymbols(ctx context.Context, db *sql.DB) ([]Symbol, []Occurrence, []Relationship, []SymbolLink, error) {
	defRows, err := db.QueryContext(ctx, `
		SELECT s.symbol, s.kind, c.file_path, c.id, c.start_line, c.end_line
		FROM symbols s
		JOIN chunks c ON c.id = s.chunk_id
		ORDER BY s.symbol ASC, c.file_path ASC, c.start_line ASC
	`)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load symbol definitions: %w", err)
	}

	bySymbol := map[string]*symbolAccumulator{}
	var symbolOrder []string
	for defRows.Next() {
		var symbol, kind, path, chunkID string
		var startLine, endLine int
		if err := defRows.Scan(&symbol, &kind, &path, &chunkID, &startLine, &endLine); err != nil {
			defRows.Close()
			return nil, nil, nil, nil, err
		}
		acc, ok := bySymbol[symbol]
		if !ok {
			acc = &symbolAccumulator{kinds: map[string]bool{}}
			bySymbol[symbol] = acc
			symbolOrder = append(symbolOrder, symbol)
		}
		acc.kinds[kind] = true
		acc.definitions = append(acc.definitions, rawOccurrence{path, chunkID, startLine, endLine})
	}
	defRows.Close()
	if err := defRows.Err(); err != nil {
		return nil, nil, nil, nil, err
	}

	if len(bySymbol) == 0 {
		return nil, nil, nil, nil, nil
	}
	sort.Strings(symbolOrder)

	chunkRows, err := db.QueryContext(ctx, `SELECT file_path, id, start_line, end_line, content FROM chunks`)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load chunks: %w", err)
	}
	var chunks []chunkRecord
	for chunkRows.Next() {
		var path, id, content string
		var startLine, endLine int
		if err := chunkRows.Scan(&path, &id, &startLine, &endLine, &content); err != nil {
			chunkRows.Close()
			return nil, nil, nil, nil, err
		}
		chunks = append(chunks, chunkRecord{
			path: path, chunkID: id, startLine: startLine, endLine: endLine,
			tokens:     tokenSet(content),
			importRefs: importref.Extract(content),
		})
	}
	chunkRows.Close()
	if err := chunkRows.Err(); err != nil {
		return nil, nil, nil, nil, err
	}

	for _, chunk := range chunks {
		for token := range chunk.tokens {
			acc, ok := bySymbol[token]
			if !ok {
				continue
			}
			acc.references = append(acc.references, rawOccurrence{chunk.path, chunk.chunkID, chunk.startLine, chunk.endLine})
		}
	}

	var symbols []Symbol
	var occurrences []Occurrence
	var relationships []Relationship
	definitionChunksBySymbolID := map[string]map[string]bool{}
	definitionSymbolsByFile := map[string]map[string]bool{}
	definitionSymbolsByChunk := map[string]map[string]bool{}
	var referenceOccurrences []referenceOccurrence

	for _, symbol := range symbolOrder {
		acc := bySymbol[symbol]
		symbolID := stableID("symbol:" + symbol)

		kinds := make([]string, 0, len(acc.kinds))
		for k := range acc.kinds {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		symbols = append(symbols, Symbol{ID: symbolID, Symbol: symbol, Kinds: kinds})

		for _, occ := range dedupeOccurrences(acc.definitions) {
			occID := stableID(fmt.Sprintf("occ:%s:definition:%s:%s:%d:%d", symbolID, occ.path, occ.chunkID, occ.startLine, occ.endLine))
			occurrences = append(occurrences, Occurrence{
				ID: occID, SymbolID: symbolID, Path: occ.path, ChunkID: occ.chunkID,
				StartLine: occ.startLine, EndLine: occ.endLine, Role: "definition",
			})
			relationships = append(relationships, Relationship{Kind: "defines", FromSymbolID: symbolID, ToOccurrenceID: occID})

			mapSet(definitionChunksBySymbolID, symbolID, occ.chunkID)
			mapSet(definitionSymbolsByFile, occ.path, symbolID)
			mapSet(definitionSymbolsByChunk, occ.chunkID, symbolID)
		}

		for _, occ := range dedupeOccurrences(acc.references) {
			occID := stableID(fmt.Sprintf("occ:%s:reference:%s:%s:%d:%d", symbolID, occ.path, occ.chunkID, occ.startLine, occ.endLine))
			occurrences = append(occurrences, Occurrence{
				ID: occID, SymbolID: symbolID, Path: occ.path, ChunkID: occ.chunkID,
				StartLine: occ.startLine, EndLine: occ.endLine, Role: "reference",
			})
			relationships = append(relationships, Relationship{Kind: "references", FromSymbolID: symbolID, ToOccurrenceID: occID})
			referenceOccurrences = append(referenceOccurrences, referenceOccurrence{targetSymbolID: symbolID, path: occ.path, chunkID: occ.chunkID})
		}
	}

	links := inferSymbolLinks(definitionChunksBySymbolID, definitionSymbolsByFile, definitionSymbolsByChunk, referenceOccurrences, chunks)

	return symbols, occurrences, relationships, links, nil
}

func dedupeOccurrences(occs []rawOccurrence) []rawOccurrence {
	seen := map[rawOccurrence]bool{}
	var out []rawOccurrence
	for _, o := range occs {
		if !seen[o] {
			seen[o] = true
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].path != out[j].path {
			return out[i].path < out[j].path
		}
		if out[i].chunkID != out[j].chunkID {
			return out[i].chunkID < out[j].chunkID
		}
		return out[i].startLine < out[j].startLine
	})
	return out
}

func mapSet(m map[string]map[string]bool, key, value string) {
	if m[key] == nil {
		m[key] = map[string]bool{}
	}
	m[key][value] = true
}

func inferSymbolLinks(
	definitionsBySymbol map[string]map[string]bool,
	symbolsByFile map[string]map[string]bool,
	symbolsByChunk map[string]map[string]bool,
	references []referenceOccurrence,
	chunks []chunkRecord,
) []SymbolLink {
	type linkKey struct{ kind, from, to string }
	links := map[linkKey]bool{}
	add := func(kind, from, to string) {
		links[linkKey{kind, from, to}] = true
	}

	for _, ref := range references {
		sourceSymbols := symbolsByChunk[ref.chunkID]
		if sourceSymbols == nil {
			sourceSymbols = symbolsByFile[ref.path]
		}
		if sourceSymbols == nil {
			continue
		}
		for source := range sourceSymbols {
			if source != ref.targetSymbolID {
				add("calls", source, ref.targetSymbolID)
			}
		}
		if isTestLikeFile(ref.path) {
			for source := range sourceSymbols {
				if source != ref.targetSymbolID {
					add("tests", source, ref.targetSymbolID)
				}
			}
		}
	}

	knownFiles := map[string]string{}
	for f := range symbolsByFile {
		knownFiles[strings.ToLower(f)] = f
	}
	for _, chunk := range chunks {
		sourceSymbols, ok := symbolsByFile[chunk.path]
		if !ok {
			continue
		}
		for _, ref := range chunk.importRefs {
			for _, targetFile := range importref.Resolve(ref, chunk.path, knownFiles) {
				targetSymbols, ok := symbolsByFile[targetFile]
				if !ok {
					continue
				}
				for source := range sourceSymbols {
					for target := range targetSymbols {
						if source != target {
							add("imports", source, target)
						}
					}
				}
			}
		}
	}

	for sourceSymbolID, defChunks := range definitionsBySymbol {
		for _, ref := range references {
			if sourceSymbolID != ref.targetSymbolID && defChunks[ref.chunkID] {
				add("calls", sourceSymbolID, ref.targetSymbolID)
			}
		}
	}

	out := make([]SymbolLink, 0, len(links))
	for k := range links {
		out = append(out, SymbolLink{Kind: k.kind, FromSymbolID: k.from, ToSymbolID: k.to})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		if out[i].FromSymbolID != out[j].FromSymbolID {
			return out[i].FromSymbolID < out[j].FromSymbolID
		}
		return out[i].ToSymbolID < out[j].ToSymbolID
	})
	return out
}

func isTestLikeFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasPrefix(lower, "tests/") ||
		strings.HasPrefix(lower, "test/") ||
		strings.Contains(lower, "/tests/") ||
		strings.Contains(lower, "/test/") ||
		strings.Contains(lower, "_test.") ||
		strings.Contains(lower, ".test.") ||
		strings.Contains(lower, "test_")
}

func tokenSet(text string) map[string]bool {
	out := map[string]bool{}
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		tok := strings.ToLower(b.String())
		if len(tok) >= 2 {
			out[tok] = true
		}
		b.Reset()
	}
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return out
}

func stableID(input string) string {
	sum := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", sum)[:16]
}
