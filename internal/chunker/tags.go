package chunker

import (
	"regexp"
	"strings"
)

// firstSignificantLine returns the first non-blank, non-comment line of
// content, used by symbol tagging to find a declaration to name.
func firstSignificantLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "/*") || strings.HasPrefix(trimmed, "*") {
			continue
		}
		return trimmed
	}
	return ""
}

var (
	defKeywordRe  = regexp.MustCompile(`^\s*(?:pub\s+|export\s+|async\s+)*(?:def|fn|func|function|class|struct|enum|type|let|const|var)\s+([A-Za-z_][A-Za-z0-9_]*)`)
	implKeywordRe = regexp.MustCompile(`^\s*impl(?:<[^>]*>)?\s+(?:[A-Za-z_][A-Za-z0-9_]*\s+for\s+)?([A-Za-z_][A-Za-z0-9_]*)`)
	interfaceRe   = regexp.MustCompile(`^\s*(?:export\s+)?interface\s+([A-Za-z_][A-Za-z0-9_]*)`)
)

// tagsForContent derives def:/type:/impl: tags from the chunk's first
// significant line, per spec.md §4.3's symbol-tagging rule. Name cleaning
// keeps leading identifier characters and trims trailing punctuation.
func tagsForContent(content string) []string {
	line := firstSignificantLine(content)
	if line == "" {
		return nil
	}

	seen := map[string]bool{}
	var tags []string
	add := func(tag string) {
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}

	if m := implKeywordRe.FindStringSubmatch(line); m != nil {
		add("impl:" + cleanName(m[1]))
		return tags
	}
	if m := interfaceRe.FindStringSubmatch(line); m != nil {
		add("type:" + cleanName(m[1]))
		return tags
	}
	if m := defKeywordRe.FindStringSubmatch(line); m != nil {
		name := cleanName(m[1])
		if strings.Contains(line, "class ") || strings.Contains(line, "struct ") || strings.Contains(line, "enum ") || strings.Contains(line, "type ") {
			add("type:" + name)
		} else {
			add("def:" + name)
		}
	}
	return tags
}

func cleanName(raw string) string {
	name := strings.TrimSpace(raw)
	end := len(name)
	for end > 0 {
		c := name[end-1]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			break
		}
		end--
	}
	return name[:end]
}
