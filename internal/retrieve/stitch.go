package retrieve

import (
	"context"
	"fmt"
	"sort"

	"github.com/repoctx/repoctx/internal/domain"
)

// Stitch is step 4: starting from the top-N chunks by priority (the
// seeds), pull in additional context from the persistent index — chunks
// defining a symbol the seed references, chunks the seed calls into,
// chunks that call the seed's own definitions, and chunks in other files
// that import or reference the seed's symbols — greedily packed in that
// tier order until the stitch budget (a fraction of the remaining token
// budget) is exhausted. Returns the seeds plus every stitched chunk,
// deduplicated by id.
func Stitch(ctx context.Context, seeds []*domain.Chunk, source StitchSource, stitchBudgetTokens int) []*domain.Chunk {
	if len(seeds) == 0 || source == nil || stitchBudgetTokens <= 0 {
		return seeds
	}

	included := map[string]bool{}
	out := make([]*domain.Chunk, 0, len(seeds))
	for _, s := range seeds {
		included[s.ID] = true
		out = append(out, s)
	}

	remaining := stitchBudgetTokens
	pack := func(tier domain.StitchTier, candidates []*domain.Chunk) {
		for _, c := range candidates {
			if remaining <= 0 {
				return
			}
			if included[c.ID] {
				continue
			}
			if c.TokenEstimate > remaining {
				continue
			}
			c.StitchTier = tier
			c.Tags = append(c.Tags, fmt.Sprintf("stitch:%s", tier), fmt.Sprintf("reason:stitched(%s)", tier))
			included[c.ID] = true
			out = append(out, c)
			remaining -= c.TokenEstimate
		}
	}

	seedSymbols := map[string]bool{}
	for _, s := range seeds {
		for _, tag := range s.Tags {
			if _, name, ok := cutTag(tag); ok {
				seedSymbols[name] = true
			}
		}
	}

	for _, s := range seeds {
		for sym := range symbolsForSeed(s) {
			if defs, err := source.ChunksDefining(ctx, sym); err == nil {
				pack(domain.StitchTierDefinition, defs)
			}
			if callees, err := source.ChunksCalling(ctx, sym); err == nil {
				pack(domain.StitchTierCallee, callees)
			}
		}
	}
	for _, s := range seeds {
		for sym := range symbolsDefinedBy(s) {
			if callers, err := source.ChunksCalling(ctx, sym); err == nil {
				pack(domain.StitchTierCaller, callers)
			}
		}
	}
	for _, s := range seeds {
		symbols := make([]string, 0, len(seedSymbols))
		for sym := range seedSymbols {
			symbols = append(symbols, sym)
		}
		if cross, err := source.ChunksInOtherFiles(ctx, s.FilePath, symbols); err == nil {
			pack(domain.StitchTierCrossCrate, cross)
		}
	}

	return out
}

func cutTag(tag string) (kind, name string, ok bool) {
	for i := 0; i < len(tag); i++ {
		if tag[i] == ':' {
			return tag[:i], tag[i+1:], true
		}
	}
	return "", "", false
}

func symbolsForSeed(c *domain.Chunk) map[string]bool {
	out := map[string]bool{}
	for _, tag := range c.Tags {
		if kind, name, ok := cutTag(tag); ok && name != "" {
			if kind == "def" || kind == "type" || kind == "impl" {
				continue
			}
			out[name] = true
		}
	}
	return out
}

func symbolsDefinedBy(c *domain.Chunk) map[string]bool {
	out := map[string]bool{}
	for _, tag := range c.Tags {
		if kind, name, ok := cutTag(tag); ok && name != "" {
			if kind == "def" || kind == "type" || kind == "impl" {
				out[name] = true
			}
		}
	}
	return out
}

// FinalSort is step 5: group by (seed=0, Definition=1, Callee=2,
// Caller=3, CrossCrate=4, rest=5), then priority descending, then path,
// then start line, then id.
func FinalSort(chunks []*domain.Chunk) {
	groupOf := func(c *domain.Chunk) int {
		switch c.StitchTier {
		case domain.StitchTierNone:
			return 0
		case domain.StitchTierDefinition:
			return 1
		case domain.StitchTierCallee:
			return 2
		case domain.StitchTierCaller:
			return 3
		case domain.StitchTierCrossCrate:
			return 4
		default:
			return 5
		}
	}
	sort.SliceStable(chunks, func(i, j int) bool {
		gi, gj := groupOf(chunks[i]), groupOf(chunks[j])
		if gi != gj {
			return gi < gj
		}
		if chunks[i].Priority != chunks[j].Priority {
			return chunks[i].Priority > chunks[j].Priority
		}
		if chunks[i].FilePath != chunks[j].FilePath {
			return chunks[i].FilePath < chunks[j].FilePath
		}
		if chunks[i].StartLine != chunks[j].StartLine {
			return chunks[i].StartLine < chunks[j].StartLine
		}
		return chunks[i].ID < chunks[j].ID
	})
}
