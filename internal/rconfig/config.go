// Package rconfig implements repoctx's layered YAML configuration:
// built-in defaults, then an optional user config, then a project config,
// then environment overrides, validated at the end of the chain.
package rconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/repoctx/repoctx/internal/rerrors"
)

// ScanConfig controls the scanner stage.
type ScanConfig struct {
	IncludeExtensions []string `yaml:"include_extensions,omitempty"`
	ExcludeGlobs      []string `yaml:"exclude_globs,omitempty"`
	MaxFileBytes      int64    `yaml:"max_file_bytes"`
	MaxTotalBytes     int64    `yaml:"max_total_bytes"`
	RespectGitignore  bool     `yaml:"respect_gitignore"`
	FollowSymlinks    bool     `yaml:"follow_symlinks"`
	IncludeMinified   bool     `yaml:"include_minified"`
}

// ChunkConfig controls the chunker stage.
type ChunkConfig struct {
	ChunkTokens    int `yaml:"chunk_tokens"`
	ChunkOverlap   int `yaml:"chunk_overlap"`
	MinChunkTokens int `yaml:"min_chunk_tokens"`
}

// RedactionConfig controls the redactor stage.
type RedactionConfig struct {
	Enabled bool   `yaml:"enabled"`
	Mode    string `yaml:"mode"` // fast | standard | paranoid | structure_safe
}

// RetrievalConfig controls BM25 blending, dependency expansion, and
// optional semantic rerank in the retrieval stage.
type RetrievalConfig struct {
	BM25K1                float64 `yaml:"bm25_k1"`
	BM25B                 float64 `yaml:"bm25_b"`
	RelevanceWeight       float64 `yaml:"relevance_weight"`       // lexical blend weight w
	DependencyBlendWeight float64 `yaml:"dependency_blend_weight"` // expansion blend weight
	SemanticBlendWeight   float64 `yaml:"semantic_blend_weight"`
	EnableSemanticRerank  bool    `yaml:"enable_semantic_rerank"`
	EnableLSPEnrichment   bool    `yaml:"enable_lsp_enrichment"`
}

// BudgetConfig controls the budget/selection stage.
type BudgetConfig struct {
	MaxTotalBytes int64 `yaml:"max_total_bytes"`
	MaxTokens     int   `yaml:"max_tokens"`
}

// OutputConfig controls where export artifacts are written.
type OutputConfig struct {
	Dir       string `yaml:"dir"`
	TreeDepth int    `yaml:"tree_depth"`
}

// Config is the full, merged repoctx configuration.
type Config struct {
	Path      string          `yaml:"path"`
	Mode      string          `yaml:"mode"` // default | contribution
	TaskQuery string          `yaml:"task_query,omitempty"`
	Scan      ScanConfig      `yaml:"scan"`
	Chunk     ChunkConfig     `yaml:"chunk"`
	Redaction RedactionConfig `yaml:"redaction"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Budget    BudgetConfig    `yaml:"budget"`
	Output    OutputConfig    `yaml:"output"`
	LogLevel  string          `yaml:"log_level"`
	DBPath    string          `yaml:"db_path"`
}

// NewConfig returns the built-in defaults, grounded on the reference
// implementation's constants (chunk_tokens=800, chunk_overlap=120,
// min_chunk_tokens=200) and on spec.md §4.7's BM25 k1=1.5/b=0.75.
func NewConfig() *Config {
	return &Config{
		Mode: "default",
		Scan: ScanConfig{
			MaxFileBytes:     1 << 20,  // 1 MiB
			MaxTotalBytes:    50 << 20, // 50 MiB
			RespectGitignore: true,
			FollowSymlinks:   false,
			IncludeMinified:  false,
		},
		Chunk: ChunkConfig{
			ChunkTokens:    800,
			ChunkOverlap:   120,
			MinChunkTokens: 200,
		},
		Redaction: RedactionConfig{
			Enabled: true,
			Mode:    "standard",
		},
		Retrieval: RetrievalConfig{
			BM25K1:                1.5,
			BM25B:                 0.75,
			RelevanceWeight:       0.4,
			DependencyBlendWeight: 0.2,
			SemanticBlendWeight:   0.4,
			EnableSemanticRerank:  false,
			EnableLSPEnrichment:   false,
		},
		Budget: BudgetConfig{
			MaxTotalBytes: 2 << 20, // 2 MiB
			MaxTokens:     0,       // 0 = unlimited
		},
		Output: OutputConfig{
			Dir:       ".",
			TreeDepth: 3,
		},
		LogLevel: "info",
		DBPath:   ".repoctx/index.sqlite",
	}
}

// Load builds the final configuration for a project root: defaults, then
// ~/.config/repoctx/config.yaml, then <root>/.repoctx.yaml, then
// REPOCTX_* environment overrides, then Validate.
func Load(root string) (*Config, error) {
	cfg := NewConfig()
	cfg.Path = root

	if home, err := os.UserConfigDir(); err == nil {
		userPath := filepath.Join(home, "repoctx", "config.yaml")
		if err := mergeFile(cfg, userPath); err != nil {
			return nil, err
		}
	}

	for _, name := range []string{".repoctx.yaml", ".repoctx.yml"} {
		projectPath := filepath.Join(root, name)
		if err := mergeFile(cfg, projectPath); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return rerrors.New(rerrors.ErrCodeConfigNotFound, "read config file "+path, err)
	}
	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return rerrors.New(rerrors.ErrCodeConfigInvalid, "parse config file "+path, err)
	}
	mergeInto(cfg, &overlay)
	return nil
}

// mergeInto copies every non-zero field from overlay onto base. Layering
// is field-granular: a project config that sets only chunk.chunk_tokens
// doesn't clobber a user config's redaction.mode.
func mergeInto(base, overlay *Config) {
	if overlay.Mode != "" {
		base.Mode = overlay.Mode
	}
	if overlay.TaskQuery != "" {
		base.TaskQuery = overlay.TaskQuery
	}
	if len(overlay.Scan.IncludeExtensions) > 0 {
		base.Scan.IncludeExtensions = overlay.Scan.IncludeExtensions
	}
	if len(overlay.Scan.ExcludeGlobs) > 0 {
		base.Scan.ExcludeGlobs = overlay.Scan.ExcludeGlobs
	}
	if overlay.Scan.MaxFileBytes != 0 {
		base.Scan.MaxFileBytes = overlay.Scan.MaxFileBytes
	}
	if overlay.Scan.MaxTotalBytes != 0 {
		base.Scan.MaxTotalBytes = overlay.Scan.MaxTotalBytes
	}
	if overlay.Chunk.ChunkTokens != 0 {
		base.Chunk.ChunkTokens = overlay.Chunk.ChunkTokens
	}
	if overlay.Chunk.ChunkOverlap != 0 {
		base.Chunk.ChunkOverlap = overlay.Chunk.ChunkOverlap
	}
	if overlay.Chunk.MinChunkTokens != 0 {
		base.Chunk.MinChunkTokens = overlay.Chunk.MinChunkTokens
	}
	if overlay.Redaction.Mode != "" {
		base.Redaction.Mode = overlay.Redaction.Mode
	}
	if overlay.Retrieval.BM25K1 != 0 {
		base.Retrieval.BM25K1 = overlay.Retrieval.BM25K1
	}
	if overlay.Retrieval.BM25B != 0 {
		base.Retrieval.BM25B = overlay.Retrieval.BM25B
	}
	if overlay.Retrieval.RelevanceWeight != 0 {
		base.Retrieval.RelevanceWeight = overlay.Retrieval.RelevanceWeight
	}
	if overlay.Budget.MaxTotalBytes != 0 {
		base.Budget.MaxTotalBytes = overlay.Budget.MaxTotalBytes
	}
	if overlay.Budget.MaxTokens != 0 {
		base.Budget.MaxTokens = overlay.Budget.MaxTokens
	}
	if overlay.Output.Dir != "" {
		base.Output.Dir = overlay.Output.Dir
	}
	if overlay.Output.TreeDepth != 0 {
		base.Output.TreeDepth = overlay.Output.TreeDepth
	}
	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}
	if overlay.DBPath != "" {
		base.DBPath = overlay.DBPath
	}
}

// applyEnvOverrides lets REPOCTX_* environment variables win over file
// config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REPOCTX_MODE"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("REPOCTX_TASK_QUERY"); v != "" {
		cfg.TaskQuery = v
	}
	if v := os.Getenv("REPOCTX_REDACTION_MODE"); v != "" {
		cfg.Redaction.Mode = v
	}
	if v := os.Getenv("REPOCTX_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Budget.MaxTokens = n
		}
	}
	if v := os.Getenv("REPOCTX_MAX_TOTAL_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Budget.MaxTotalBytes = n
		}
	}
	if v := os.Getenv("REPOCTX_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("REPOCTX_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
}

// Validate checks the merged configuration for internal consistency.
func (c *Config) Validate() error {
	switch c.Mode {
	case "default", "contribution":
	default:
		return rerrors.New(rerrors.ErrCodeConfigInvalid, fmt.Sprintf("invalid mode %q", c.Mode), nil)
	}

	switch strings.ToLower(c.Redaction.Mode) {
	case "fast", "standard", "paranoid", "structure_safe", "structure-safe":
	default:
		return rerrors.New(rerrors.ErrCodeConfigInvalid, fmt.Sprintf("invalid redaction mode %q", c.Redaction.Mode), nil)
	}

	if c.Chunk.ChunkTokens <= 0 {
		return rerrors.New(rerrors.ErrCodeConfigInvalid, "chunk_tokens must be positive", nil)
	}
	if c.Chunk.MinChunkTokens <= 0 || c.Chunk.MinChunkTokens > c.Chunk.ChunkTokens {
		return rerrors.New(rerrors.ErrCodeConfigInvalid, "min_chunk_tokens must be in (0, chunk_tokens]", nil)
	}
	if c.Chunk.ChunkOverlap < 0 || c.Chunk.ChunkOverlap >= c.Chunk.ChunkTokens {
		return rerrors.New(rerrors.ErrCodeConfigInvalid, "chunk_overlap must be in [0, chunk_tokens)", nil)
	}
	if c.Retrieval.RelevanceWeight < 0 || c.Retrieval.RelevanceWeight > 1 {
		return rerrors.New(rerrors.ErrCodeConfigInvalid, "relevance_weight must be in [0, 1]", nil)
	}
	if c.Path == "" {
		return rerrors.New(rerrors.ErrCodeConfigInvalid, "path must be set", nil)
	}
	return nil
}

// WriteYAML marshals the config to path, creating parent directories.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return rerrors.Wrap(rerrors.ErrCodeConfigInvalid, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return rerrors.Wrap(rerrors.ErrCodeOutputWrite, err)
	}
	return os.WriteFile(path, data, 0o644)
}
