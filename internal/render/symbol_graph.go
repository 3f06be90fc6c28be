package render

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/repoctx/repoctx/internal/domain"
)

// WriteSymbolGraph writes a standalone SQLite database at path holding
// chunks, symbols, symbol_chunks (usage edges), and file_imports for a
// single export run. This is the output artifact spec.md calls for
// "when no pre-existing index" — a lighter, export-scoped sibling of
// the persistent store.Index, not a replacement for it.
func WriteSymbolGraph(ctx context.Context, path string, chunks []*domain.Chunk, symbols []domain.Symbol, usageEdges []domain.UsageEdge, imports []domain.ImportEdge) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create symbol graph directory: %w", err)
		}
	}
	_ = os.Remove(path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open symbol graph db: %w", err)
	}
	defer db.Close()

	const schema = `
	CREATE TABLE chunks (
		id             TEXT PRIMARY KEY,
		path           TEXT,
		start_line     INTEGER,
		end_line       INTEGER,
		language       TEXT,
		priority       REAL,
		token_estimate INTEGER,
		content        TEXT
	);

	CREATE TABLE symbols (
		symbol    TEXT,
		kind      TEXT,
		file_path TEXT,
		chunk_id  TEXT REFERENCES chunks(id),
		PRIMARY KEY (symbol, file_path, chunk_id)
	);

	CREATE TABLE symbol_chunks (
		chunk_id TEXT REFERENCES chunks(id),
		symbol   TEXT,
		kind     TEXT,
		PRIMARY KEY (chunk_id, symbol, kind)
	);

	CREATE TABLE file_imports (
		source_path TEXT,
		target_path TEXT,
		PRIMARY KEY (source_path, target_path)
	);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create symbol graph schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	chunkStmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (id, path, start_line, end_line, language, priority, token_estimate, content) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer chunkStmt.Close()
	for _, c := range chunks {
		if _, err := chunkStmt.ExecContext(ctx, c.ID, c.FilePath, c.StartLine, c.EndLine, c.Language, c.Priority, c.TokenEstimate, c.Content); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}

	symStmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO symbols (symbol, kind, file_path, chunk_id) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer symStmt.Close()
	for _, s := range symbols {
		if _, err := symStmt.ExecContext(ctx, s.Name, string(s.Kind), s.FilePath, s.ChunkID); err != nil {
			return fmt.Errorf("insert symbol %s: %w", s.Name, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO symbol_chunks (chunk_id, symbol, kind) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()
	for _, e := range usageEdges {
		if _, err := edgeStmt.ExecContext(ctx, e.ChunkID, e.Symbol, string(e.Kind)); err != nil {
			return fmt.Errorf("insert usage edge %s: %w", e.Symbol, err)
		}
	}

	impStmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO file_imports (source_path, target_path) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer impStmt.Close()
	for _, e := range imports {
		if _, err := impStmt.ExecContext(ctx, e.SourcePath, e.TargetPath); err != nil {
			return fmt.Errorf("insert import edge %s->%s: %w", e.SourcePath, e.TargetPath, err)
		}
	}

	return tx.Commit()
}
