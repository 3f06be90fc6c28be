// Package importref extracts and resolves source-level import/require/use
// references against a known set of repository files. Shared by the
// dependency-expansion step of retrieval and the code-intel symbol-link
// inference, both of which need the same "does this line reference that
// file" heuristic.
package importref

import (
	"regexp"
	"sort"
	"strings"
)

var (
	reFrom    = regexp.MustCompile(`^from\s+(\S+)`)
	reImport  = regexp.MustCompile(`^import\s+(.+)$`)
	reUse     = regexp.MustCompile(`^use\s+([^;]+)`)
	reMod     = regexp.MustCompile(`^mod\s+([^;]+)`)
	reRequire = regexp.MustCompile(`require\(['"]([^'"]+)['"]\)`)
	reJSFrom  = regexp.MustCompile(`from\s+['"]([^'"]+)['"]`)
)

// Extract scans content line by line for import-like statements across
// Python, Go, Rust, and JS/TS conventions and returns the raw module/
// path references it finds, in source order.
func Extract(content string) []string {
	var refs []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		if m := reFrom.FindStringSubmatch(trimmed); m != nil {
			refs = append(refs, strings.Trim(m[1], `"'`))
		}
		if m := reImport.FindStringSubmatch(trimmed); m != nil {
			for _, mod := range strings.Split(m[1], ",") {
				mod = strings.TrimSpace(mod)
				if f := strings.Fields(mod); len(f) > 0 {
					refs = append(refs, strings.Trim(f[0], `"'`))
				}
			}
		}
		if m := reUse.FindStringSubmatch(trimmed); m != nil {
			refs = append(refs, strings.TrimSpace(m[1]))
		}
		if m := reMod.FindStringSubmatch(trimmed); m != nil {
			refs = append(refs, strings.TrimSpace(m[1]))
		}
		for _, m := range reRequire.FindAllStringSubmatch(trimmed, -1) {
			refs = append(refs, m[1])
		}
		for _, m := range reJSFrom.FindAllStringSubmatch(trimmed, -1) {
			refs = append(refs, m[1])
		}
	}
	return refs
}

// Resolve maps a raw reference string (as returned by Extract), found in
// currentFile, against lowerKnown (a lowercased-path -> original-path
// index of every file in the repository) and returns every known file it
// could plausibly name, sorted.
func Resolve(reference, currentFile string, lowerKnown map[string]string) []string {
	cleaned := strings.TrimSpace(reference)
	cleaned = strings.TrimPrefix(cleaned, "crate::")
	cleaned = strings.TrimPrefix(cleaned, "self::")
	cleaned = strings.TrimPrefix(cleaned, "super::")
	cleaned = strings.ReplaceAll(cleaned, "::", "/")
	cleaned = strings.ReplaceAll(cleaned, ".", "/")
	if cleaned == "" {
		return nil
	}

	candidates := append([]string{cleaned}, CandidatePaths(cleaned)...)
	if strings.HasPrefix(reference, "./") || strings.HasPrefix(reference, "../") {
		base := ""
		if idx := strings.LastIndex(currentFile, "/"); idx >= 0 {
			base = currentFile[:idx]
		}
		rel := NormalizeJoin(base, reference)
		candidates = append(candidates, rel)
		candidates = append(candidates, CandidatePaths(rel)...)
	}

	found := map[string]bool{}
	for _, candidate := range candidates {
		c := strings.ToLower(candidate)
		if exact, ok := lowerKnown[c]; ok {
			found[exact] = true
		}
		for lf, original := range lowerKnown {
			if strings.HasSuffix(lf, "/"+c) ||
				strings.HasSuffix(lf, "/"+c+".py") ||
				strings.HasSuffix(lf, "/"+c+".rs") ||
				strings.HasSuffix(lf, "/"+c+".ts") ||
				strings.HasSuffix(lf, "/"+c+".js") ||
				strings.HasSuffix(lf, "/"+c+".go") {
				found[original] = true
			}
		}
	}

	out := make([]string, 0, len(found))
	for f := range found {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// CandidatePaths returns the file-extension variants a bare module
// reference might resolve to, across the languages chunking supports.
func CandidatePaths(module string) []string {
	return []string{
		module,
		module + ".py",
		module + "/__init__.py",
		module + ".rs",
		module + "/mod.rs",
		module + ".ts",
		module + ".tsx",
		module + ".js",
		module + ".jsx",
		module + ".go",
	}
}

// NormalizeJoin resolves a relative reference (./x, ../y) against base,
// collapsing "." and ".." segments, using forward slashes throughout.
func NormalizeJoin(base, ref string) string {
	var parts []string
	if base != "" {
		parts = strings.Split(base, "/")
	}
	for _, seg := range strings.Split(ref, "/") {
		switch seg {
		case ".", "":
		case "..":
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
		default:
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, "/")
}
