package chunker

import "strings"

// EstimateTokens is the single deterministic token estimator used for
// both budgeting and chunk sizing (spec.md §4.3): roughly 4 bytes/token,
// floored so empty input reports zero.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	n := len(s) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// linesForTokens converts a token budget to an approximate line count by
// sampling the average line length of sample text; callers fall back to a
// fixed estimate (80 chars/line, 4 bytes/token) when no sample is available.
func linesForTokens(tokens int, avgLineBytes float64) int {
	if avgLineBytes <= 0 {
		avgLineBytes = 80
	}
	bytesNeeded := float64(tokens) * 4
	lines := int(bytesNeeded / avgLineBytes)
	if lines < 1 {
		lines = 1
	}
	return lines
}

func averageLineBytes(lines []string) float64 {
	if len(lines) == 0 {
		return 80
	}
	total := 0
	for _, l := range lines {
		total += len(l)
	}
	avg := float64(total) / float64(len(lines))
	if avg <= 0 {
		return 80
	}
	return avg
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	return lines
}
