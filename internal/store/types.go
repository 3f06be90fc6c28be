// Package store persists the chunk corpus: a lexical BM25 index used during
// export to score chunks against a task query, and a SQLite index that
// survives across runs for incremental reindexing and the query command.
package store

import "context"

// Document is a unit of text handed to the lexical index — one per chunk.
type Document struct {
	ID      string
	Content string
}

// BM25Result is a single lexical search hit.
type BM25Result struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// IndexStats summarizes a lexical index.
type IndexStats struct {
	DocumentCount int
}

// BM25Index provides keyword search over the chunk corpus.
type BM25Index interface {
	Index(ctx context.Context, docs []*Document) error
	Search(ctx context.Context, query string, limit int) ([]*BM25Result, error)
	Delete(ctx context.Context, docIDs []string) error
	AllIDs() ([]string, error)
	Stats() *IndexStats
	Close() error
}

// BM25Config tunes the BM25 scoring function. The retrieval pipeline's
// lexical pass uses k1=1.5, b=0.75 rather than Bleve/Lucene's usual
// k1=1.2 default — a deliberate, fixed choice rather than a tunable left
// to whatever the search backend ships with.
type BM25Config struct {
	K1             float64
	B              float64
	StopWords      []string
	MinTokenLength int
}

// DefaultBM25Config returns the retrieval pipeline's fixed BM25 parameters.
func DefaultBM25Config() BM25Config {
	return BM25Config{
		K1:             1.5,
		B:              0.75,
		StopWords:      DefaultCodeStopWords,
		MinTokenLength: 2,
	}
}

// DefaultCodeStopWords contains programming keywords that carry little
// retrieval signal and are filtered from both indexed and query tokens.
var DefaultCodeStopWords = []string{
	"var", "let", "const", "func", "function", "def", "class",
	"return", "if", "else", "for", "while",
	"data", "result", "value", "item", "key", "err", "ctx", "tmp",
}
