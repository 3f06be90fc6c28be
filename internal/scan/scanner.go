// Package scan walks a repository tree and yields the FileInfo set that
// survives the ordered filter chain from spec.md §4.1: include-extension,
// exclude-glob, gitignore, symlink policy, size cap, binary detection, and
// the minified-file heuristic. Adapted from the teacher's internal/scanner
// package, generalized to repoctx's FileInfo shape and skip-counter model.
package scan

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/repoctx/repoctx/internal/domain"
	"github.com/repoctx/repoctx/internal/gitignore"
)

// Scanner walks a repository root, caching compiled gitignore matchers per
// directory so a deep tree with many nested .gitignore files doesn't
// reparse them on every descent.
type Scanner struct {
	gitignoreCache *lru.Cache[string, *gitignore.Matcher]
	cacheMu        sync.RWMutex
}

// New builds a Scanner with a bounded gitignore matcher cache.
func New() (*Scanner, error) {
	cache, err := lru.New[string, *gitignore.Matcher](1000)
	if err != nil {
		return nil, err
	}
	return &Scanner{gitignoreCache: cache}, nil
}

// Scan walks root and streams results on the returned channel, which is
// closed once the walk completes. stats is updated in place as results are
// produced; callers should only read it after the channel closes.
func (s *Scanner) Scan(ctx context.Context, root string, opts Options, stats *Stats) (<-chan Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	results := make(chan Result, 64)
	go func() {
		defer close(results)
		_ = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if err != nil {
				stats.SkippedUnreadable++
				return nil
			}
			if path == absRoot {
				return nil
			}

			rel, err := filepath.Rel(absRoot, path)
			if err != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if shouldExcludeDir(rel) {
					return filepath.SkipDir
				}
				return nil
			}

			if d.Type()&fs.ModeSymlink != 0 {
				if !opts.FollowSymlinks {
					stats.SkippedSymlink++
					return nil
				}
			}

			stats.FilesScanned++
			fi, skipErr := s.evaluate(absRoot, path, rel, d, opts, stats)
			if skipErr != nil {
				results <- Result{Err: skipErr}
				return nil
			}
			if fi != nil {
				stats.FilesSelected++
				results <- Result{File: fi}
			}
			return nil
		})
	}()

	return results, nil
}

func (s *Scanner) evaluate(absRoot, absPath, rel string, d fs.DirEntry, opts Options, stats *Stats) (*domain.FileInfo, error) {
	// (a) include-extension allow-list
	ext := strings.ToLower(filepath.Ext(rel))
	if len(opts.IncludeExtensions) > 0 && !containsFold(opts.IncludeExtensions, ext) {
		stats.SkippedExtension++
		return nil, nil
	}

	// (b) exclude-glob set
	if matchesAny(rel, opts.ExcludeGlobs) {
		stats.SkippedExcludeGlob++
		return nil, nil
	}
	if matchesAny(rel, defaultExcludeFiles) || matchesAny(rel, sensitiveFilePatterns) {
		stats.SkippedExcludeGlob++
		return nil, nil
	}

	// (c) gitignore
	if opts.RespectGitignore && s.isGitignored(rel, absRoot) {
		stats.SkippedGitignore++
		return nil, nil
	}

	info, err := d.Info()
	if err != nil {
		stats.SkippedUnreadable++
		return nil, nil
	}

	// (e) size cap
	if opts.MaxFileBytes > 0 && info.Size() > opts.MaxFileBytes {
		stats.SkippedSize++
		return nil, nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		stats.SkippedUnreadable++
		return nil, nil
	}

	// (f) binary-content detection
	if isBinary(content) {
		stats.SkippedBinary++
		return nil, nil
	}

	// (g) minified-file heuristic
	if !opts.IncludeMinified && isMinified(content) {
		stats.SkippedMinified++
		return nil, nil
	}

	sum := sha256.Sum256(content)
	return &domain.FileInfo{
		Path:        rel,
		AbsPath:     absPath,
		Extension:   ext,
		SizeBytes:   info.Size(),
		ModTime:     info.ModTime(),
		ContentHash: hex.EncodeToString(sum[:]),
	}, nil
}

// isBinary applies the null-byte heuristic plus a UTF-8 validity check on
// up to the first 8KB, per spec.md §4.1(f).
func isBinary(content []byte) bool {
	n := len(content)
	if n > 8192 {
		n = 8192
	}
	head := content[:n]
	if bytes.Contains(head, []byte{0}) {
		return true
	}
	return !utf8.Valid(head)
}

// isMinified flags files with a long average line length and a low
// newline ratio — the heuristic spec.md §4.1(g) describes.
func isMinified(content []byte) bool {
	if len(content) < 500 {
		return false
	}
	lines := bytes.Count(content, []byte{'\n'}) + 1
	avgLineLen := float64(len(content)) / float64(lines)
	return avgLineLen > 300
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

func matchesAny(relPath string, patterns []string) bool {
	base := filepath.Base(relPath)
	for _, p := range patterns {
		if matchFilePattern(base, relPath, p) {
			return true
		}
	}
	return false
}

func shouldExcludeDir(relPath string) bool {
	for _, p := range defaultExcludeDirs {
		if matchDirPattern(relPath, p) {
			return true
		}
	}
	return false
}

// isGitignored walks from the repo root down to the file's directory,
// consulting a cached gitignore matcher for each level.
func (s *Scanner) isGitignored(relPath, absRoot string) bool {
	if m := s.getGitignoreMatcher(absRoot, ""); m != nil && m.Match(relPath, false) {
		return true
	}

	dir := filepath.Dir(relPath)
	if dir == "." {
		return false
	}
	parts := strings.Split(dir, "/")
	currentDir := absRoot
	currentBase := ""
	for _, part := range parts {
		currentDir = filepath.Join(currentDir, part)
		if currentBase == "" {
			currentBase = part
		} else {
			currentBase = currentBase + "/" + part
		}
		if m := s.getGitignoreMatcher(currentDir, currentBase); m != nil && m.Match(relPath, false) {
			return true
		}
	}
	return false
}

func (s *Scanner) getGitignoreMatcher(dir, base string) *gitignore.Matcher {
	s.cacheMu.RLock()
	m, ok := s.gitignoreCache.Get(dir)
	s.cacheMu.RUnlock()
	if ok {
		return m
	}

	path := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	matcher := gitignore.New()
	if err := matcher.AddFromFile(path, base); err != nil {
		return nil
	}

	s.cacheMu.Lock()
	s.gitignoreCache.Add(dir, matcher)
	s.cacheMu.Unlock()
	return matcher
}

// InvalidateGitignoreCache drops all cached matchers, used by `index watch`
// after a .gitignore file changes underneath a watched tree.
func (s *Scanner) InvalidateGitignoreCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.gitignoreCache.Purge()
}
