package scan

import "github.com/repoctx/repoctx/internal/domain"

// Options controls scanner behavior. Fields mirror the CLI/config surface
// described in SPEC_FULL.md's ambient config layer.
type Options struct {
	IncludeExtensions []string // (a) non-empty => allow-list
	ExcludeGlobs      []string // (b)
	RespectGitignore  bool     // (c)
	FollowSymlinks    bool     // (d)
	MaxFileBytes      int64    // (e)
	IncludeMinified   bool     // (g) true => don't skip minified files
}

// Stats tracks per-filter skip counts, one named counter per filter in
// spec.md §4.1's ordered filter list.
type Stats struct {
	FilesScanned        int
	FilesSelected       int
	SkippedExtension    int // (a)
	SkippedExcludeGlob  int // (b)
	SkippedGitignore    int // (c)
	SkippedSymlink      int // (d)
	SkippedSize         int // (e)
	SkippedBinary       int // (f)
	SkippedMinified     int // (g)
	SkippedUnreadable   int
}

// Result is one filesystem entry visited by the scanner: either a selected
// file (File != nil) or a skip (Err explains why, for debug logging).
type Result struct {
	File *domain.FileInfo
	Err  error
}
