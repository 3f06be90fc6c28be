// Package symbols extracts symbol usage edges (call, type use, import,
// inherit) from chunk content via tree-sitter, grounded on the per-language
// AST rules in the reference implementation's symbol-usage walker.
package symbols

import (
	"context"
	"sort"
	"strings"

	"github.com/repoctx/repoctx/internal/chunker"
	"github.com/repoctx/repoctx/internal/domain"
)

// Extractor walks a chunk's AST (when the language is tree-sitter capable)
// to find symbol usage edges.
type Extractor struct {
	parser *chunker.Parser
}

func New() *Extractor {
	return &Extractor{parser: chunker.NewParser()}
}

func (e *Extractor) Close() {
	e.parser.Close()
}

// Extract returns the sorted, deduplicated set of (symbol, kind) usage
// edges found in content for the given language. Falls back to an empty
// slice (not an error) for unsupported languages or parse failures —
// usage extraction is best-effort enrichment, not a pipeline-blocking step.
func (e *Extractor) Extract(chunkID, language, content string) []domain.UsageEdge {
	tree, err := e.parser.Parse(context.Background(), []byte(content), language)
	if err != nil || tree == nil || tree.Root == nil {
		return nil
	}

	type key struct {
		sym  string
		kind domain.UsageKind
	}
	seen := map[key]bool{}

	visit := languageVisitor(language)
	if visit == nil {
		return nil
	}
	visit(tree.Root, tree.Source, func(sym string, kind domain.UsageKind) {
		sym = normalizeSymbol(sym)
		if sym == "" {
			return
		}
		seen[key{sym, kind}] = true
	})

	edges := make([]domain.UsageEdge, 0, len(seen))
	for k := range seen {
		edges = append(edges, domain.UsageEdge{ChunkID: chunkID, Symbol: k.sym, Kind: k.kind})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Symbol != edges[j].Symbol {
			return edges[i].Symbol < edges[j].Symbol
		}
		return edges[i].Kind < edges[j].Kind
	})
	return edges
}

// normalizeSymbol extracts the trailing identifier segment and lowercases
// it, matching the reference extractor's normalize_symbol behavior so
// `foo::Bar` and `bar` resolve to the same token.
func normalizeSymbol(raw string) string {
	sep := strings.LastIndexAny(raw, ":.\\/<>(),;")
	if sep >= 0 {
		raw = raw[sep+1:]
	}
	var b strings.Builder
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.ToLower(b.String())
}
