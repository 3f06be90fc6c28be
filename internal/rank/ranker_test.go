package rank

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/repoctx/repoctx/internal/domain"
)

func TestClassifyFirstMatchWins(t *testing.T) {
	require.Equal(t, TierReadme, Classify("README.md", nil))
	require.Equal(t, TierContributionDocs, Classify("CONTRIBUTING.md", nil))
	require.Equal(t, TierImportantDocs, Classify("docs/guide.md", nil))
	require.Equal(t, TierVendoredOrConfig, Classify("vendor/lib/thing.go", nil))
	require.Equal(t, TierTest, Classify("tests/test_auth.py", nil))
	require.Equal(t, TierExample, Classify("examples/basic.py", nil))
	require.Equal(t, TierCoreSource, Classify("src/auth.py", nil))
	require.Equal(t, TierDefault, Classify("NOTES.txt", nil))
}

func TestRankSortsByPriorityThenPath(t *testing.T) {
	files := []*domain.FileInfo{
		{Path: "zzz.txt"},
		{Path: "README.md"},
		{Path: "aaa.txt"},
	}
	ranked := Rank(files, nil)
	require.Equal(t, "README.md", ranked[0].Path)
	require.Equal(t, "aaa.txt", ranked[1].Path)
	require.Equal(t, "zzz.txt", ranked[2].Path)
}
