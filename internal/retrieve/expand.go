package retrieve

import (
	"regexp"
	"sort"
	"strings"

	"github.com/repoctx/repoctx/internal/domain"
	"github.com/repoctx/repoctx/internal/importref"
)

// DependencyExpansion is step 2: build an undirected file graph from
// import-like references found in chunk content plus symbol-definition
// co-occurrence (a chunk that mentions a name another file's `def:`/
// `type:`/`impl:` tag declares is linked to that file), seed from the
// top-5 chunks by lexical score, and propagate a decayed score outward
// (neighbor = seed*0.6, neighbor-of-neighbor = seed*0.3, max-merged
// across seeds). The per-file expanded score is blended into every
// chunk in that file as new = priority*0.8 + expanded*0.2.
func DependencyExpansion(chunks []*domain.Chunk, blendWeight float64) {
	if len(chunks) == 0 {
		return
	}

	knownFiles := map[string]bool{}
	lexicalByFile := map[string]float64{}
	for _, c := range chunks {
		knownFiles[c.FilePath] = true
		if c.LexicalScore > lexicalByFile[c.FilePath] {
			lexicalByFile[c.FilePath] = c.LexicalScore
		}
	}

	symbolDefs := symbolDefinitions(chunks)
	graph := dependencyGraph(chunks, knownFiles, symbolDefs)

	type seed struct {
		path  string
		score float64
	}
	var seeds []seed
	for path, score := range lexicalByFile {
		if score > 0 {
			seeds = append(seeds, seed{path, score})
		}
	}
	sort.Slice(seeds, func(i, j int) bool {
		if seeds[i].score != seeds[j].score {
			return seeds[i].score > seeds[j].score
		}
		return seeds[i].path < seeds[j].path
	})
	if len(seeds) > 5 {
		seeds = seeds[:5]
	}

	expanded := map[string]float64{}
	mergeMax := func(path string, value float64) {
		if value > expanded[path] {
			expanded[path] = value
		}
	}

	for _, s := range seeds {
		mergeMax(s.path, s.score)
		for neighbor := range graph[s.path] {
			mergeMax(neighbor, clamp01(s.score*0.6))
			for neighbor2 := range graph[neighbor] {
				mergeMax(neighbor2, clamp01(s.score*0.3))
			}
		}
	}

	weight := clamp01(blendWeight)
	for _, c := range chunks {
		if ex, ok := expanded[c.FilePath]; ok {
			c.ExpandedScore = ex
			c.Priority = round3(c.Priority*(1-weight) + ex*weight)
		}
	}
}

func symbolDefinitions(chunks []*domain.Chunk) map[string]map[string]bool {
	defs := map[string]map[string]bool{}
	for _, c := range chunks {
		for _, tag := range c.Tags {
			kind, name, ok := strings.Cut(tag, ":")
			if !ok || name == "" {
				continue
			}
			if kind != "def" && kind != "type" && kind != "impl" {
				continue
			}
			name = strings.ToLower(name)
			if defs[name] == nil {
				defs[name] = map[string]bool{}
			}
			defs[name][c.FilePath] = true
		}
	}
	return defs
}

func dependencyGraph(chunks []*domain.Chunk, knownFiles map[string]bool, symbolDefs map[string]map[string]bool) map[string]map[string]bool {
	graph := map[string]map[string]bool{}
	link := func(a, b string) {
		if a == b {
			return
		}
		if graph[a] == nil {
			graph[a] = map[string]bool{}
		}
		if graph[b] == nil {
			graph[b] = map[string]bool{}
		}
		graph[a][b] = true
		graph[b][a] = true
	}

	lowerKnown := map[string]string{}
	for f := range knownFiles {
		lowerKnown[strings.ToLower(f)] = f
	}

	for _, c := range chunks {
		for _, ref := range importref.Extract(c.Content) {
			for _, target := range importref.Resolve(ref, c.FilePath, lowerKnown) {
				link(c.FilePath, target)
			}
		}
		for _, token := range retrievalTokenize(c.Content) {
			for target := range symbolDefs[token] {
				link(c.FilePath, target)
			}
		}
	}
	return graph
}

var retrievalTokenRe = regexp.MustCompile(`[a-zA-Z0-9_]+`)

func retrievalTokenize(text string) []string {
	words := retrievalTokenRe.FindAllString(text, -1)
	out := make([]string, 0, len(words))
	for _, w := range words {
		lower := strings.ToLower(w)
		if len(lower) >= 2 {
			out = append(out, lower)
		}
	}
	return out
}
