// Package sqlitevec implements internal/vectorstore.VectorStore on top of
// mattn/go-sqlite3 and the sqlite-vec extension: a local write-and-count
// backend for the background indexing pipeline, usable without any network
// dependency.
package sqlitevec

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/codenerd-labs/conversync/internal/embedding"
	"github.com/codenerd-labs/conversync/internal/logging"
	"github.com/codenerd-labs/conversync/internal/model"
	"github.com/codenerd-labs/conversync/internal/vectorstore"
)

// Store is a sqlite-backed VectorStore. A single *sql.DB serializes writes
// with an in-process mutex rather than relying on sqlite's own locking.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	engine embedding.Embedder
	vecOK  bool
}

// Open creates or attaches to a sqlite database at path and ensures the
// points table (and, when available, the sqlite-vec virtual table) exist.
func Open(path string, engine embedding.Embedder) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitevec: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitevec: ping %s: %w", path, err)
	}

	s := &Store{db: db, engine: engine}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	const schema = `
CREATE TABLE IF NOT EXISTS indexed_points (
	task_id      TEXT PRIMARY KEY,
	host_id      TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	instruction  TEXT NOT NULL,
	workspace    TEXT,
	embedding    BLOB,
	indexed_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_indexed_points_host ON indexed_points(host_id);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("sqlitevec: create schema: %w", err)
	}

	if s.engine == nil {
		logging.VectorStoreDebug("sqlitevec: no embedding engine configured, storing content without vectors")
		return nil
	}

	dim := s.engine.Dimensions()
	stmt := fmt.Sprintf("CREATE VIRTUAL TABLE IF NOT EXISTS vec_index USING vec0(embedding float[%d], task_id TEXT)", dim)
	if _, err := s.db.Exec(stmt); err != nil {
		logging.VectorStoreWarn("sqlitevec: vec0 virtual table unavailable, falling back to plain storage: %v", err)
		s.vecOK = false
		return nil
	}
	s.vecOK = true
	logging.VectorStore("sqlitevec: vec0 index initialized (dimensions=%d)", dim)
	return nil
}

// Index implements vectorstore.VectorStore.
func (s *Store) Index(ctx context.Context, content vectorstore.IndexableContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var embeddingBlob []byte
	if s.engine != nil {
		text := embedding.SkeletonText{
			Instruction:   content.Instruction,
			ChildPrefixes: content.ChildPrefixes,
		}
		vec, err := s.engine.Embed(ctx, text.Flatten())
		if err != nil {
			logging.VectorStoreError("sqlitevec: embed failed for %s: %v", content.TaskId, err)
			return fmt.Errorf("sqlitevec: embed %s: %w", content.TaskId, err)
		}
		blob, err := encodeFloat32(vec)
		if err != nil {
			return fmt.Errorf("sqlitevec: encode embedding for %s: %w", content.TaskId, err)
		}
		embeddingBlob = blob
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitevec: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO indexed_points (task_id, host_id, content_hash, instruction, workspace, embedding, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			host_id=excluded.host_id,
			content_hash=excluded.content_hash,
			instruction=excluded.instruction,
			workspace=excluded.workspace,
			embedding=excluded.embedding,
			indexed_at=excluded.indexed_at
	`, string(content.TaskId), string(content.HostId), content.ContentHash, content.Instruction,
		content.Workspace, embeddingBlob, content.CreatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("sqlitevec: upsert %s: %w", content.TaskId, err)
	}

	if s.vecOK && embeddingBlob != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM vec_index WHERE task_id = ?`, string(content.TaskId)); err != nil {
			return fmt.Errorf("sqlitevec: clear vec row %s: %w", content.TaskId, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO vec_index(rowid, embedding, task_id) VALUES ((SELECT rowid FROM indexed_points WHERE task_id = ?), ?, ?)`,
			string(content.TaskId), embeddingBlob, string(content.TaskId)); err != nil {
			logging.VectorStoreWarn("sqlitevec: vec_index insert failed for %s, keeping plain row: %v", content.TaskId, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitevec: commit %s: %w", content.TaskId, err)
	}
	logging.VectorStoreDebug("sqlitevec: indexed %s (host=%s, hash=%s)", content.TaskId, content.HostId, content.ContentHash)
	return nil
}

// CountPointsByHost implements vectorstore.VectorStore.
func (s *Store) CountPointsByHost(ctx context.Context, host model.HostId) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM indexed_points WHERE host_id = ?`, string(host)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlitevec: count by host %s: %w", host, err)
	}
	return count, nil
}

// Close implements vectorstore.VectorStore.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func encodeFloat32(vec []float32) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
