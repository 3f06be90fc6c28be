package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/repoctx/repoctx/internal/domain"
)

// Index is the persistent, incrementally-updatable corpus store: files,
// chunks, symbols, a full-text index over chunk content, and the import
// graph. One exclusive write transaction backs each indexing run.
type Index struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// OpenIndex opens (creating if absent) the SQLite index at path in WAL
// mode with a single writer connection, matching the one-transaction,
// single-writer indexing model.
func OpenIndex(path string) (*Index, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create index directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", p, err)
		}
	}

	idx := &Index{db: db, path: path}
	if err := idx.createSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) createSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS files (
		path           TEXT PRIMARY KEY,
		language       TEXT,
		extension      TEXT,
		size           INTEGER,
		priority       REAL,
		token_estimate INTEGER,
		content_hash   TEXT,
		indexed_at     TEXT
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id             TEXT PRIMARY KEY,
		file_path      TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
		start_line     INTEGER,
		end_line       INTEGER,
		language       TEXT,
		priority       REAL,
		token_estimate INTEGER,
		tags           TEXT,
		content        TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_file_path ON chunks(file_path);

	CREATE TABLE IF NOT EXISTS symbols (
		symbol    TEXT NOT NULL,
		kind      TEXT NOT NULL,
		file_path TEXT NOT NULL,
		chunk_id  TEXT NOT NULL REFERENCES chunks(id) ON DELETE CASCADE,
		PRIMARY KEY (symbol, kind, file_path, chunk_id)
	);
	CREATE INDEX IF NOT EXISTS idx_symbols_symbol ON symbols(symbol);
	CREATE INDEX IF NOT EXISTS idx_symbols_chunk_id ON symbols(chunk_id);

	CREATE VIRTUAL TABLE IF NOT EXISTS chunk_fts USING fts5(
		id UNINDEXED,
		path UNINDEXED,
		content
	);

	CREATE TABLE IF NOT EXISTS file_imports (
		source_path TEXT NOT NULL,
		target_path TEXT NOT NULL,
		PRIMARY KEY (source_path, target_path)
	);
	CREATE INDEX IF NOT EXISTS idx_file_imports_source ON file_imports(source_path);
	CREATE INDEX IF NOT EXISTS idx_file_imports_target ON file_imports(target_path);

	CREATE TABLE IF NOT EXISTS metadata (
		key   TEXT PRIMARY KEY,
		value TEXT
	);
	`
	_, err := idx.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// DB exposes the underlying connection for callers that need read-only
// access the Index's own methods don't cover, such as the codeintel
// export walking the schema directly.
func (idx *Index) DB() *sql.DB {
	return idx.db
}

func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.db == nil {
		return nil
	}
	_, _ = idx.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return idx.db.Close()
}

// FileUpdate is one file's indexing inputs for Reconcile.
type FileUpdate struct {
	File        *domain.FileInfo
	Chunks      []*domain.Chunk
	UsageEdges  []domain.UsageEdge
	ImportPaths []string // resolved target file paths this file imports
}

// ReconcileResult reports what an indexing run did, per spec.md's
// reused/reindexed/removed accounting.
type ReconcileResult struct {
	Reused    []string
	Reindexed []string
	Removed   []string
}

// Reconcile applies one indexing run inside a single transaction: files
// whose content hash is unchanged are left alone apart from metadata
// columns ("reused"); changed or new files have their chunks, symbols,
// and FTS rows fully rebuilt ("reindexed"); files previously indexed but
// absent from the scan are deleted along with their chunks via cascade
// ("removed").
func (idx *Index) Reconcile(ctx context.Context, updates []FileUpdate, scannedPaths map[string]bool) (*ReconcileResult, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result := &ReconcileResult{}

	existingHashes, err := existingContentHashes(tx)
	if err != nil {
		return nil, err
	}

	for _, u := range updates {
		f := u.File
		prevHash, known := existingHashes[f.Path]
		if known && prevHash == f.ContentHash {
			if _, err := tx.ExecContext(ctx,
				`UPDATE files SET language=?, extension=?, size=?, priority=?, token_estimate=?, indexed_at=? WHERE path=?`,
				f.Language, f.Extension, f.SizeBytes, f.Priority, f.TokenEstimate, f.ModTime.UTC().Format("2006-01-02T15:04:05Z"), f.Path); err != nil {
				return nil, fmt.Errorf("touch file %s: %w", f.Path, err)
			}
			result.Reused = append(result.Reused, f.Path)
			continue
		}

		if err := deleteFileCascade(ctx, tx, f.Path); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO files(path, language, extension, size, priority, token_estimate, content_hash, indexed_at)
			 VALUES (?,?,?,?,?,?,?,?)`,
			f.Path, f.Language, f.Extension, f.SizeBytes, f.Priority, f.TokenEstimate, f.ContentHash,
			f.ModTime.UTC().Format("2006-01-02T15:04:05Z")); err != nil {
			return nil, fmt.Errorf("insert file %s: %w", f.Path, err)
		}

		for _, c := range u.Chunks {
			if err := insertChunk(ctx, tx, c); err != nil {
				return nil, err
			}
		}
		for _, e := range u.UsageEdges {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO symbols(symbol, kind, file_path, chunk_id) VALUES (?,?,?,?)`,
				e.Symbol, string(e.Kind), f.Path, e.ChunkID); err != nil {
				return nil, fmt.Errorf("insert symbol edge: %w", err)
			}
		}
		for _, target := range u.ImportPaths {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO file_imports(source_path, target_path) VALUES (?,?)`,
				f.Path, target); err != nil {
				return nil, fmt.Errorf("insert import edge: %w", err)
			}
		}

		result.Reindexed = append(result.Reindexed, f.Path)
	}

	for path := range existingHashes {
		if !scannedPaths[path] {
			if err := deleteFileCascade(ctx, tx, path); err != nil {
				return nil, err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE path=?`, path); err != nil {
				return nil, fmt.Errorf("delete removed file %s: %w", path, err)
			}
			result.Removed = append(result.Removed, path)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit index transaction: %w", err)
	}
	return result, nil
}

func existingContentHashes(tx *sql.Tx) (map[string]string, error) {
	rows, err := tx.Query(`SELECT path, content_hash FROM files`)
	if err != nil {
		return nil, fmt.Errorf("query existing files: %w", err)
	}
	defer rows.Close()

	hashes := map[string]string{}
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("scan existing file row: %w", err)
		}
		hashes[path] = hash
	}
	return hashes, rows.Err()
}

func deleteFileCascade(ctx context.Context, tx *sql.Tx, path string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_fts WHERE path = ?`, path); err != nil {
		return fmt.Errorf("delete fts rows for %s: %w", path, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM symbols WHERE file_path = ?`, path); err != nil {
		return fmt.Errorf("delete symbols for %s: %w", path, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM file_imports WHERE source_path = ? OR target_path = ?`, path, path); err != nil {
		return fmt.Errorf("delete import edges for %s: %w", path, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE file_path = ?`, path); err != nil {
		return fmt.Errorf("delete chunks for %s: %w", path, err)
	}
	return nil
}

func insertChunk(ctx context.Context, tx *sql.Tx, c *domain.Chunk) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chunks(id, file_path, start_line, end_line, language, priority, token_estimate, tags, content)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		c.ID, c.FilePath, c.StartLine, c.EndLine, c.Language, c.Priority, c.TokenEstimate,
		strings.Join(c.Tags, ","), c.Content); err != nil {
		return fmt.Errorf("insert chunk %s: %w", c.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chunk_fts(id, path, content) VALUES (?,?,?)`,
		c.ID, c.FilePath, c.Content); err != nil {
		return fmt.Errorf("insert fts row %s: %w", c.ID, err)
	}
	return nil
}

// QueryResult is a scored chunk returned from the persistent index.
type QueryResult struct {
	ChunkID   string
	FilePath  string
	StartLine int
	EndLine   int
	Content   string
	Score     float64
}

// Query runs an FTS5 MATCH over chunk content, converting SQLite's
// negative bm25() score into a positive 1/(1+|bm25|) value, then boosts
// any chunk whose id is recorded under symbols for one of the query
// tokens. limit bounds the number of candidates pulled from FTS before
// the symbol boost and final sort, as 5x the caller's requested N.
func (idx *Index) Query(ctx context.Context, queryTokens []string, limit int) ([]QueryResult, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(queryTokens) == 0 {
		return nil, nil
	}
	matchExpr := strings.Join(queryTokens, " OR ")

	rows, err := idx.db.QueryContext(ctx,
		`SELECT chunk_fts.id, chunks.file_path, chunks.start_line, chunks.end_line, chunks.content,
		        bm25(chunk_fts) AS raw_score
		 FROM chunk_fts
		 JOIN chunks ON chunks.id = chunk_fts.id
		 WHERE chunk_fts MATCH ?
		 ORDER BY raw_score
		 LIMIT ?`, matchExpr, limit*5)
	if err != nil {
		if strings.Contains(err.Error(), "fts5:") || strings.Contains(err.Error(), "syntax error") {
			return nil, nil
		}
		return nil, fmt.Errorf("query chunk_fts: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var r QueryResult
		var raw float64
		if err := rows.Scan(&r.ChunkID, &r.FilePath, &r.StartLine, &r.EndLine, &r.Content, &raw); err != nil {
			return nil, fmt.Errorf("scan query row: %w", err)
		}
		if raw < 0 {
			raw = -raw
		}
		r.Score = 1 / (1 + raw)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	boosted, err := idx.symbolBoostedIDs(ctx, queryTokens)
	if err != nil {
		return nil, err
	}
	for i := range results {
		if boosted[results[i].ChunkID] {
			results[i].Score += 0.25
			if results[i].Score > 1.0 {
				results[i].Score = 1.0
			}
		}
	}

	return results, nil
}

func (idx *Index) symbolBoostedIDs(ctx context.Context, tokens []string) (map[string]bool, error) {
	boosted := map[string]bool{}
	placeholders := make([]string, len(tokens))
	args := make([]any, len(tokens))
	for i, t := range tokens {
		placeholders[i] = "?"
		args[i] = t
	}
	q := fmt.Sprintf(`SELECT DISTINCT chunk_id FROM symbols WHERE symbol IN (%s)`, strings.Join(placeholders, ","))
	rows, err := idx.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query symbol boost: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		boosted[id] = true
	}
	return boosted, rows.Err()
}

// SetMetadata records a key/value pair (schema version, last index time, ...).
func (idx *Index) SetMetadata(ctx context.Context, key, value string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	_, err := idx.db.ExecContext(ctx, `INSERT INTO metadata(key, value) VALUES (?,?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

// GetMetadata reads a previously set key, returning ok=false if absent.
func (idx *Index) GetMetadata(ctx context.Context, key string) (value string, ok bool, err error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	row := idx.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key=?`, key)
	if scanErr := row.Scan(&value); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, scanErr
	}
	return value, true, nil
}

// ChunksDefining returns chunks whose tags declare symbol via a
// def:/type:/impl: tag, for thread stitching's Definition tier.
func (idx *Index) ChunksDefining(ctx context.Context, symbol string) ([]*domain.Chunk, error) {
	return idx.queryChunks(ctx,
		`SELECT id, file_path, start_line, end_line, language, priority, token_estimate, tags, content
		 FROM chunks
		 WHERE tags LIKE '%def:'||?||'%' OR tags LIKE '%type:'||?||'%' OR tags LIKE '%impl:'||?||'%'`,
		symbol, symbol, symbol)
}

// ChunksCalling returns chunks recorded as calling symbol, for thread
// stitching's Callee and Caller tiers.
func (idx *Index) ChunksCalling(ctx context.Context, symbol string) ([]*domain.Chunk, error) {
	return idx.queryChunks(ctx,
		`SELECT c.id, c.file_path, c.start_line, c.end_line, c.language, c.priority, c.token_estimate, c.tags, c.content
		 FROM chunks c
		 JOIN symbols s ON s.chunk_id = c.id
		 WHERE s.symbol = ? AND s.kind = 'call'`, symbol)
}

// ChunksInOtherFiles returns chunks outside excludePath that reference
// any of symbols via import or type-use edges, for the CrossCrate tier.
func (idx *Index) ChunksInOtherFiles(ctx context.Context, excludePath string, symbols []string) ([]*domain.Chunk, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(symbols))
	args := make([]any, 0, len(symbols)+1)
	for i, s := range symbols {
		placeholders[i] = "?"
		args = append(args, s)
	}
	args = append(args, excludePath)

	q := fmt.Sprintf(
		`SELECT c.id, c.file_path, c.start_line, c.end_line, c.language, c.priority, c.token_estimate, c.tags, c.content
		 FROM chunks c
		 JOIN symbols s ON s.chunk_id = c.id
		 WHERE s.symbol IN (%s) AND s.kind IN ('import','type_use') AND c.file_path != ?`,
		strings.Join(placeholders, ","))
	return idx.queryChunks(ctx, q, args...)
}

func (idx *Index) queryChunks(ctx context.Context, query string, args ...any) ([]*domain.Chunk, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	rows, err := idx.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var out []*domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var tags string
		if err := rows.Scan(&c.ID, &c.FilePath, &c.StartLine, &c.EndLine, &c.Language, &c.Priority, &c.TokenEstimate, &tags, &c.Content); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		if tags != "" {
			c.Tags = strings.Split(tags, ",")
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// ImportNeighbors returns the file paths directly connected to path in
// the import graph, in either direction, for dependency expansion.
func (idx *Index) ImportNeighbors(ctx context.Context, path string) ([]string, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	rows, err := idx.db.QueryContext(ctx,
		`SELECT target_path FROM file_imports WHERE source_path = ?
		 UNION
		 SELECT source_path FROM file_imports WHERE target_path = ?`, path, path)
	if err != nil {
		return nil, fmt.Errorf("query import neighbors: %w", err)
	}
	defer rows.Close()

	var neighbors []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		neighbors = append(neighbors, p)
	}
	return neighbors, rows.Err()
}
