package codeintel

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	const schema = `
	CREATE TABLE files (path TEXT PRIMARY KEY, language TEXT, content_hash TEXT);
	CREATE TABLE chunks (id TEXT PRIMARY KEY, file_path TEXT, start_line INTEGER, end_line INTEGER, content TEXT);
	CREATE TABLE symbols (symbol TEXT, kind TEXT, file_path TEXT, chunk_id TEXT);
	CREATE TABLE metadata (key TEXT PRIMARY KEY, value TEXT);
	`
	_, err = db.Exec(schema)
	require.NoError(t, err)
	return db
}

func TestBuildFailsWithoutSymbolsTable(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`CREATE TABLE files (path TEXT)`)
	require.NoError(t, err)

	_, err = Build(context.Background(), db)
	require.Error(t, err)
}

func TestBuildProducesDefinitionsAndReferences(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Exec(`INSERT INTO metadata (key, value) VALUES ('repo_root', '/repo')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO files (path, language, content_hash) VALUES ('a.go', 'go', 'h1'), ('b.go', 'go', 'h2')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO chunks (id, file_path, start_line, end_line, content) VALUES
		('c1', 'a.go', 1, 5, 'func Helper() {}'),
		('c2', 'b.go', 1, 5, 'func Caller() { Helper() }')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO symbols (symbol, kind, file_path, chunk_id) VALUES ('helper', 'function', 'a.go', 'c1')`)
	require.NoError(t, err)

	doc, err := Build(context.Background(), db)
	require.NoError(t, err)

	require.Equal(t, "0.4.0", doc.SchemaVersion)
	require.Equal(t, "scip-lite", doc.Format)
	require.Equal(t, "/repo", doc.ProjectRoot)
	require.Len(t, doc.Files, 2)
	require.Len(t, doc.Symbols, 1)
	require.Equal(t, "helper", doc.Symbols[0].Symbol)

	var hasDefinition, hasReference bool
	for _, occ := range doc.Occurrences {
		if occ.Role == "definition" {
			hasDefinition = true
		}
		if occ.Role == "reference" {
			hasReference = true
		}
	}
	require.True(t, hasDefinition)
	require.True(t, hasReference)
	require.Equal(t, doc.Stats.SymbolCount, len(doc.Symbols))
}

func TestStableIDIsDeterministic(t *testing.T) {
	a := stableID("symbol:refresh_token")
	b := stableID("symbol:refresh_token")
	require.Equal(t, a, b)
	require.Len(t, a, 16)
}

func TestTokenSetPreservesSnakeCaseTerms(t *testing.T) {
	tokens := tokenSet("refresh_token(user_id)")
	require.True(t, tokens["refresh_token"])
	require.True(t, tokens["user_id"])
}

func TestInferSymbolLinksProducesCallsTestsImports(t *testing.T) {
	definitionsBySymbol := map[string]map[string]bool{
		"a": {"chunk1": true},
		"b": {"chunk2": true},
	}
	symbolsByFile := map[string]map[string]bool{
		"src/a.go":        {"a": true},
		"src/b.go":        {"b": true},
		"tests/test_a.go": {"t": true},
	}
	symbolsByChunk := map[string]map[string]bool{
		"chunk1":     {"a": true},
		"chunk_test": {"t": true},
	}
	references := []referenceOccurrence{
		{targetSymbolID: "b", path: "src/a.go", chunkID: "chunk1"},
		{targetSymbolID: "a", path: "tests/test_a.go", chunkID: "chunk_test"},
	}
	chunks := []chunkRecord{
		{path: "src/a.go", chunkID: "chunk1", startLine: 1, endLine: 10, importRefs: []string{"src.b"}},
	}

	links := inferSymbolLinks(definitionsBySymbol, symbolsByFile, symbolsByChunk, references, chunks)

	kinds := map[string]bool{}
	for _, l := range links {
		kinds[l.Kind] = true
	}
	require.True(t, kinds["calls"])
	require.True(t, kinds["tests"])
	require.True(t, kinds["imports"])
}

func TestIsTestLikeFile(t *testing.T) {
	require.True(t, isTestLikeFile("tests/foo.go"))
	require.True(t, isTestLikeFile("pkg/foo_test.go"))
	require.False(t, isTestLikeFile("pkg/foo.go"))
}
