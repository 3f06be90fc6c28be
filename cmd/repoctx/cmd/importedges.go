package cmd

import (
	"sort"

	"github.com/repoctx/repoctx/internal/domain"
	"github.com/repoctx/repoctx/internal/importref"
)

// resolveImportEdges derives the file-to-file import graph persisted to
// the index's file_imports table and exported into symbol_graph.db,
// reusing the same extraction/resolution heuristic retrieval's dependency
// expansion and codeintel's symbol-link inference both depend on.
func resolveImportEdges(chunks []*domain.Chunk, lowerKnown map[string]string) []domain.ImportEdge {
	seen := map[[2]string]bool{}
	var edges []domain.ImportEdge

	for _, c := range chunks {
		for _, ref := range importref.Extract(c.Content) {
			for _, target := range importref.Resolve(ref, c.FilePath, lowerKnown) {
				if target == c.FilePath {
					continue
				}
				key := [2]string{c.FilePath, target}
				if seen[key] {
					continue
				}
				seen[key] = true
				edges = append(edges, domain.ImportEdge{SourcePath: c.FilePath, TargetPath: target})
			}
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].SourcePath != edges[j].SourcePath {
			return edges[i].SourcePath < edges[j].SourcePath
		}
		return edges[i].TargetPath < edges[j].TargetPath
	})
	return edges
}
