package chunker

import (
	"context"
	"regexp"
	"sort"
)

// astBoundaries parses source with tree-sitter and returns the sorted,
// deduplicated set of 0-indexed start lines for top-level declaration
// nodes, per spec.md §4.3. Returns nil if parsing fails.
func astBoundaries(parser *Parser, source []byte, language string) []int {
	tree, err := parser.Parse(context.Background(), source, language)
	if err != nil {
		return nil
	}
	cfg, ok := DefaultRegistry().Config(language)
	if !ok {
		return nil
	}
	kinds := make(map[string]bool, len(cfg.DeclarationKinds))
	for _, k := range cfg.DeclarationKinds {
		kinds[k] = true
	}

	var lines []int
	for _, child := range topLevelChildren(tree.Root) {
		if kinds[child.Type] {
			lines = append(lines, int(child.StartPoint.Row))
		}
	}
	return dedupeSorted(lines)
}

// topLevelChildren walks one level past the root (and past an intervening
// "source_file"/"program"/module wrapper, if the root itself is that) to
// find the declarations a tree-sitter grammar hangs directly off the root.
func topLevelChildren(root *Node) []*Node {
	if root == nil {
		return nil
	}
	return root.Children
}

var regexBoundaryPrefixes = []string{
	"def ", "fn ", "class ", "impl ", "func ", "type ", "const ", "let ", "interface ", "struct ", "trait ", "mod ",
}

// regexBoundaries finds line-start keyword matches as a fallback strategy
// when AST parsing fails or yields too few boundaries.
func regexBoundaries(lines []string) []int {
	var result []int
	re := buildBoundaryRegex()
	for i, line := range lines {
		if re.MatchString(line) {
			result = append(result, i)
		}
	}
	return dedupeSorted(result)
}

var boundaryRegex *regexp.Regexp

func buildBoundaryRegex() *regexp.Regexp {
	if boundaryRegex != nil {
		return boundaryRegex
	}
	pattern := `^\s*(`
	for i, p := range regexBoundaryPrefixes {
		if i > 0 {
			pattern += "|"
		}
		pattern += regexp.QuoteMeta(p)
	}
	pattern += ")"
	boundaryRegex = regexp.MustCompile(pattern)
	return boundaryRegex
}

func dedupeSorted(lines []int) []int {
	if len(lines) == 0 {
		return nil
	}
	sort.Ints(lines)
	out := lines[:1]
	for _, l := range lines[1:] {
		if l != out[len(out)-1] {
			out = append(out, l)
		}
	}
	return out
}
