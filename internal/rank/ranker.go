// Package rank classifies scanned files into priority tiers following
// spec.md §4.2's first-match-wins resolution order, then assigns a
// numeric priority used throughout retrieval and budget selection.
package rank

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/repoctx/repoctx/internal/domain"
)

// Tier is one of the ten first-match-wins classification classes.
type Tier int

const (
	TierReadme Tier = iota
	TierContributionDocs
	TierImportantDocs
	TierVendoredOrConfig
	TierEntrypoint
	TierTest
	TierExample
	TierCoreSource
	TierAPIDefinition
	TierDefault
)

// Weights maps each tier to its base priority. Configurable via
// rconfig.Config in a future revision; for now these mirror the relative
// ordering the reference implementation uses (README highest, default
// lowest).
var Weights = map[Tier]float64{
	TierReadme:           1.0,
	TierContributionDocs: 0.85,
	TierImportantDocs:    0.75,
	TierVendoredOrConfig: 0.3,
	TierEntrypoint:       0.9,
	TierTest:             0.55,
	TierExample:          0.45,
	TierCoreSource:       0.7,
	TierAPIDefinition:    0.65,
	TierDefault:          0.4,
}

var (
	contributionNames = map[string]bool{
		"contributing.md": true, "contributing": true,
		"code_of_conduct.md": true, "security.md": true,
		"authors": true, "authors.md": true, "maintainers": true, "maintainers.md": true,
	}
	configNames = map[string]bool{
		"pyproject.toml": true, "package.json": true, "cargo.toml": true,
		"dockerfile": true, "makefile": true, "go.mod": true,
	}
	lockFileRe     = regexp.MustCompile(`(?i)(lock|\.lock)$|package-lock\.json$|yarn\.lock$|go\.sum$`)
	generatedRe    = regexp.MustCompile(`(?i)\.pb\.go$|_pb2\.py$|\.g\.dart$|\.generated\.`)
	testNameRe     = regexp.MustCompile(`(?i)(^test_|_test\.|\.test\.|\.spec\.)`)
	apiNameRe      = regexp.MustCompile(`(?i)(api|interface|types|models|schema)`)
	entrypointName = regexp.MustCompile(`(?i)^(main|index|app|cli)\.[a-z0-9]+$`)
)

// Manifest carries entrypoint candidates and declared languages parsed
// from project manifests (package.json, pyproject.toml, Cargo.toml, Go
// cmd/ layout). Candidates are repo-relative paths.
type Manifest struct {
	EntrypointCandidates []string
	Languages            map[string]bool
}

// Classify assigns a Tier to a file using the first-match-wins order from
// spec.md §4.2.
func Classify(path string, manifest *Manifest) Tier {
	base := strings.ToLower(filepath.Base(path))
	lower := strings.ToLower(path)

	if strings.HasPrefix(base, "readme") {
		return TierReadme
	}

	if contributionNames[base] ||
		strings.HasPrefix(lower, ".github/pull_request_template") ||
		strings.HasPrefix(lower, ".github/issue_template/") {
		return TierContributionDocs
	}

	if strings.HasPrefix(lower, "docs/") && hasAnyExt(lower, ".md", ".rst", ".txt", ".adoc") {
		return TierImportantDocs
	}

	if strings.Contains(lower, "vendor/") || strings.Contains(lower, "third_party/") ||
		lockFileRe.MatchString(base) || generatedRe.MatchString(base) ||
		strings.HasPrefix(lower, ".github/workflows/") || configNames[base] {
		return TierVendoredOrConfig
	}

	if manifest != nil && containsPath(manifest.EntrypointCandidates, path) {
		return TierEntrypoint
	}
	if entrypointName.MatchString(base) || base == "main.go" || strings.HasPrefix(lower, "cmd/") && base == "main.go" {
		return TierEntrypoint
	}

	if isUnderAny(lower, "tests/", "test/", "__tests__/", "spec/") || testNameRe.MatchString(base) {
		return TierTest
	}

	if isUnderAny(lower, "examples/", "samples/", "demo/") {
		return TierExample
	}

	if isUnderAny(lower, "src/", "lib/", "pkg/", "app/", "core/", "internal/", "cmd/") {
		return TierCoreSource
	}

	if apiNameRe.MatchString(base) {
		return TierAPIDefinition
	}

	return TierDefault
}

func hasAnyExt(path string, exts ...string) bool {
	ext := filepath.Ext(path)
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func isUnderAny(path string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) || strings.Contains(path, "/"+p) {
			return true
		}
	}
	return false
}

func containsPath(list []string, path string) bool {
	for _, p := range list {
		if p == path {
			return true
		}
	}
	return false
}

// Rank assigns Priority to every FileInfo and returns them sorted by
// priority descending, then path ascending (stable) as spec.md §4.2
// requires.
func Rank(files []*domain.FileInfo, manifest *Manifest) []*domain.FileInfo {
	for _, f := range files {
		tier := Classify(f.Path, manifest)
		f.Priority = Weights[tier]
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Priority != files[j].Priority {
			return files[i].Priority > files[j].Priority
		}
		return files[i].Path < files[j].Path
	})
	return files
}
