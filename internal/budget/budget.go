// Package budget applies the two independent size limits from spec.md
// §4.8: a pre-chunk byte budget over whole files, and a post-chunk token
// budget that treats always-include files specially.
package budget

import (
	"fmt"
	"path/filepath"

	"github.com/repoctx/repoctx/internal/domain"
	"github.com/repoctx/repoctx/internal/rerrors"
)

// DroppedFile records why a file was excluded, for the run report.
type DroppedFile struct {
	Path     string
	Reason   string // "bytes_limit" or "token_budget"
	Priority float64
	Tokens   int
	Chunks   int
}

// ApplyByteBudget walks ranked files in order, accumulating size_bytes.
// The first file that would be considered once the running total already
// meets or exceeds limit causes that file AND every remaining file to be
// bulk-dropped with reason "bytes_limit". limit <= 0 disables the budget.
func ApplyByteBudget(files []*domain.FileInfo, limit int64) (selected []*domain.FileInfo, dropped []DroppedFile, totalBytesIncluded int64) {
	if limit <= 0 {
		return files, nil, sumBytes(files)
	}

	var total int64
	for i, f := range files {
		if total >= limit {
			for _, remaining := range files[i:] {
				dropped = append(dropped, DroppedFile{
					Path:     remaining.Path,
					Reason:   "bytes_limit",
					Priority: round3(remaining.Priority),
				})
			}
			break
		}
		total += f.SizeBytes
		selected = append(selected, f)
	}
	return selected, dropped, total
}

func sumBytes(files []*domain.FileInfo) int64 {
	var total int64
	for _, f := range files {
		total += f.SizeBytes
	}
	return total
}

// FileChunks groups the chunks produced for one file, used to evaluate
// the token budget at file granularity.
type FileChunks struct {
	File   *domain.FileInfo
	Chunks []*domain.Chunk
}

// TokenBudgetResult is the outcome of applying the token budget.
type TokenBudgetResult struct {
	Included           []FileChunks
	Dropped            []DroppedFile
	AlwaysIncludeTokens int
	TotalTokensIncluded int
}

// ApplyTokenBudget partitions files into always-include (path matches
// any glob in alwaysIncludePatterns) and normal, per spec.md §4.8. If
// the always-include set alone exceeds maxTokens and allowOverBudget is
// false, it returns a fatal rerrors.RepoCtxError. Otherwise normal files
// are streamed in their given (priority) order, each file accepted only
// if it fits the remaining budget; a file that doesn't fit is dropped
// with reason "token_budget". maxTokens <= 0 disables the budget.
func ApplyTokenBudget(files []FileChunks, maxTokens int, alwaysIncludePatterns []string, allowOverBudget bool) (*TokenBudgetResult, error) {
	if maxTokens <= 0 {
		result := &TokenBudgetResult{Included: files}
		for _, fc := range files {
			result.TotalTokensIncluded += fileTokens(fc)
		}
		return result, nil
	}

	var always, normal []FileChunks
	for _, fc := range files {
		if matchesAny(fc.File.Path, alwaysIncludePatterns) {
			always = append(always, fc)
		} else {
			normal = append(normal, fc)
		}
	}

	alwaysTokens := 0
	for _, fc := range always {
		alwaysTokens += fileTokens(fc)
	}

	if alwaysTokens > maxTokens && !allowOverBudget {
		return nil, rerrors.BudgetError(
			fmt.Sprintf("always-include files alone require %d tokens, exceeding max_tokens=%d", alwaysTokens, maxTokens), nil)
	}

	result := &TokenBudgetResult{AlwaysIncludeTokens: alwaysTokens}
	result.Included = append(result.Included, always...)
	result.TotalTokensIncluded += alwaysTokens

	remaining := maxTokens - alwaysTokens
	if remaining < 0 {
		remaining = 0
	}

	for _, fc := range normal {
		tokens := fileTokens(fc)
		if tokens > remaining {
			result.Dropped = append(result.Dropped, DroppedFile{
				Path:     fc.File.Path,
				Reason:   "token_budget",
				Priority: round3(fc.File.Priority),
				Tokens:   tokens,
				Chunks:   len(fc.Chunks),
			})
			continue
		}
		result.Included = append(result.Included, fc)
		result.TotalTokensIncluded += tokens
		remaining -= tokens
	}

	return result, nil
}

func fileTokens(fc FileChunks) int {
	total := 0
	for _, c := range fc.Chunks {
		total += c.TokenEstimate
	}
	return total
}

func matchesAny(path string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := filepath.Match(g, path); ok {
			return true
		}
	}
	return false
}

func round3(f float64) float64 {
	return float64(int(f*1000+0.5)) / 1000
}
