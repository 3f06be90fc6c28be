// Package domain holds the core data types shared across the scan → rank →
// chunk → redact → index → retrieve → render pipeline.
package domain

import "time"

// FileInfo describes one file surviving the scan stage.
type FileInfo struct {
	Path         string // repo-relative, forward-slash separated
	AbsPath      string
	Language     string
	Extension    string
	SizeBytes    int64
	ModTime      time.Time
	ContentHash  string // sha256 hex of file content
	Priority     float64
	TokenEstimate int
}

// ContentType classifies a chunk's content for rendering and redaction.
type ContentType string

const (
	ContentTypeCode     ContentType = "code"
	ContentTypeMarkdown ContentType = "markdown"
	ContentTypeConfig   ContentType = "config"
	ContentTypeOther    ContentType = "other"
)

// Chunk is a contiguous slice of a file selected for the context pack.
type Chunk struct {
	ID            string
	FilePath      string
	StartLine     int
	EndLine       int
	Language      string
	ContentType   ContentType
	Priority      float64
	TokenEstimate int
	Tags          []string // "def:name", "type:name", "impl:name", "section:name"
	Content       string
	RawContent    string // pre-redaction content, kept only in-memory

	// Populated during retrieval.
	LexicalScore   float64
	ExpandedScore  float64
	FinalScore     float64
	StitchTier     StitchTier
}

// StitchTier records why a chunk was pulled into the result set beyond its
// own score, for the thread-stitching pass in §4.7.
type StitchTier int

const (
	StitchTierNone StitchTier = iota
	StitchTierDefinition
	StitchTierCallee
	StitchTierCaller
	StitchTierCrossCrate
)

func (t StitchTier) String() string {
	switch t {
	case StitchTierDefinition:
		return "definition"
	case StitchTierCallee:
		return "callee"
	case StitchTierCaller:
		return "caller"
	case StitchTierCrossCrate:
		return "cross_crate"
	default:
		return "none"
	}
}

// SymbolType classifies a declared symbol.
type SymbolType string

const (
	SymbolFunction  SymbolType = "function"
	SymbolMethod    SymbolType = "method"
	SymbolClass     SymbolType = "class"
	SymbolInterface SymbolType = "interface"
	SymbolType_     SymbolType = "type"
	SymbolConstant  SymbolType = "constant"
	SymbolVariable  SymbolType = "variable"
)

// Symbol is a named declaration extracted from a chunk.
type Symbol struct {
	Name      string
	Kind      SymbolType
	FilePath  string
	ChunkID   string
	StartLine int
	EndLine   int
	Signature string
}

// UsageKind classifies an edge between a chunk and a symbol it references.
type UsageKind string

const (
	UsageCall    UsageKind = "call"
	UsageTypeUse UsageKind = "type_use"
	UsageImport  UsageKind = "import"
	UsageInherit UsageKind = "inherit"
	UsageRef     UsageKind = "ref"
)

// UsageEdge is one (chunk, symbol, kind) reference discovered by the
// symbol extractor's AST walk.
type UsageEdge struct {
	ChunkID string
	Symbol  string
	Kind    UsageKind
}

// ImportEdge records a resolved import/require/use relationship between
// two files, persisted to the index's file_imports table.
type ImportEdge struct {
	SourcePath string
	TargetPath string
}
