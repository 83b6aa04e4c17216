// Package sqlite provides the embedded-database MemoryStore. Cascading
// deletes ride on foreign keys, and edge replacement runs inside a single
// transaction, so callers never observe a half-applied mutation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"palantir-backend/domain/core/entities"
	"palantir-backend/domain/core/valueobjects"
	"palantir-backend/infrastructure/persistence/records"
	pkgerrors "palantir-backend/pkg/errors"
)

// Store is a SQLite-backed MemoryStore implementation
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStore opens (or creates) the database at path and ensures the schema
func NewStore(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("failed to open sqlite database", err)
	}
	// Serialize access; sqlite handles one writer at a time anyway
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	s := &Store{db: db, logger: logger}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS memory_items (
            id TEXT PRIMARY KEY,
            owner_id TEXT NOT NULL,
            paper_id TEXT NOT NULL,
            title TEXT NOT NULL DEFAULT '',
            text TEXT NOT NULL,
            source TEXT NOT NULL,
            note TEXT NOT NULL DEFAULT '',
            embedding TEXT,
            created_at INTEGER NOT NULL,
            updated_at INTEGER NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_memory_items_owner ON memory_items(owner_id);`,
		`CREATE INDEX IF NOT EXISTS idx_memory_items_paper ON memory_items(owner_id, paper_id);`,
		`CREATE TABLE IF NOT EXISTS memory_edges (
            id TEXT PRIMARY KEY,
            source_id TEXT NOT NULL REFERENCES memory_items(id) ON DELETE CASCADE,
            target_id TEXT NOT NULL REFERENCES memory_items(id) ON DELETE CASCADE,
            weight REAL NOT NULL,
            updated_at INTEGER NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_memory_edges_source ON memory_edges(source_id);`,
		`CREATE INDEX IF NOT EXISTS idx_memory_edges_target ON memory_edges(target_id);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return pkgerrors.NewDatabaseError("failed to ensure schema", err)
		}
	}
	return nil
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveItem persists a new or updated item
func (s *Store) SaveItem(ctx context.Context, item *entities.MemoryItem) error {
	rec := records.FromItem(item)

	var embedding interface{}
	if len(rec.Embedding) > 0 {
		data, err := json.Marshal(rec.Embedding)
		if err != nil {
			return pkgerrors.NewDatabaseError("failed to encode embedding", err)
		}
		embedding = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO memory_items (id, owner_id, paper_id, title, text, source, note, embedding, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            title = excluded.title,
            note = excluded.note,
            embedding = excluded.embedding,
            updated_at = excluded.updated_at`,
		rec.ID, rec.OwnerID, rec.PaperID, rec.Title, rec.Text, rec.Source, rec.Note,
		embedding, rec.CreatedAt.UnixNano(), rec.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return pkgerrors.NewDatabaseError("failed to save memory item", err)
	}
	return nil
}

// GetItem returns the item or a NOT_FOUND error
func (s *Store) GetItem(ctx context.Context, id valueobjects.ItemID) (*entities.MemoryItem, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, owner_id, paper_id, title, text, source, note, embedding, created_at, updated_at
        FROM memory_items WHERE id = ?`, id.String())

	rec, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, pkgerrors.NewNotFoundError("memory item")
	}
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("failed to read memory item", err)
	}
	return rec.ToEntity()
}

// ListItems returns an owner's items, most recently created first. A read
// failure degrades to an empty result set with a logged warning.
func (s *Store) ListItems(ctx context.Context, ownerID string) ([]*entities.MemoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, owner_id, paper_id, title, text, source, note, embedding, created_at, updated_at
        FROM memory_items WHERE owner_id = ?
        ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		s.logger.Warn("Item query failed, returning empty result set",
			zap.String("ownerID", ownerID),
			zap.Error(err),
		)
		return []*entities.MemoryItem{}, nil
	}
	defer rows.Close()

	items := make([]*entities.MemoryItem, 0)
	for rows.Next() {
		rec, err := scanItem(rows)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("failed to scan memory item", err)
		}
		item, err := rec.ToEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewDatabaseError("failed to iterate memory items", err)
	}
	return items, nil
}

// FindDuplicate returns an owner's item with identical normalized text for
// the same paper, or nil. Normalization happens in Go so unicode case
// folding matches the rest of the system.
func (s *Store) FindDuplicate(ctx context.Context, ownerID, paperID, normalizedText string) (*entities.MemoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, owner_id, paper_id, title, text, source, note, embedding, created_at, updated_at
        FROM memory_items WHERE owner_id = ? AND paper_id = ?`, ownerID, paperID)
	if err != nil {
		s.logger.Warn("Duplicate lookup failed, treating as no duplicate",
			zap.String("ownerID", ownerID),
			zap.Error(err),
		)
		return nil, nil
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanItem(rows)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("failed to scan memory item", err)
		}
		if entities.NormalizeText(rec.Text) == normalizedText {
			return rec.ToEntity()
		}
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewDatabaseError("failed to iterate memory items", err)
	}
	return nil, nil
}

// DeleteItem removes the item; edges follow through ON DELETE CASCADE
// within the same statement
func (s *Store) DeleteItem(ctx context.Context, id valueobjects.ItemID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memory_items WHERE id = ?`, id.String())
	if err != nil {
		return pkgerrors.NewDatabaseError("failed to delete memory item", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return pkgerrors.NewDatabaseError("failed to confirm delete", err)
	}
	if affected == 0 {
		return pkgerrors.NewNotFoundError("memory item")
	}
	return nil
}

// UpsertEdge inserts or replaces the edge under its canonical identifier
func (s *Store) UpsertEdge(ctx context.Context, edge *entities.Edge) error {
	rec := records.FromEdge(edge)

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO memory_edges (id, source_id, target_id, weight, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            weight = excluded.weight,
            updated_at = excluded.updated_at`,
		rec.ID, rec.SourceID, rec.TargetID, rec.Weight, rec.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return pkgerrors.NewDatabaseError("failed to upsert edge", err)
	}
	return nil
}

// ListEdges returns edges whose endpoints both belong to the owner
func (s *Store) ListEdges(ctx context.Context, ownerID string) ([]*entities.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT e.id, e.source_id, e.target_id, e.weight, e.updated_at
        FROM memory_edges e
        JOIN memory_items src ON src.id = e.source_id AND src.owner_id = ?
        JOIN memory_items dst ON dst.id = e.target_id AND dst.owner_id = ?
        ORDER BY e.id`, ownerID, ownerID)
	if err != nil {
		s.logger.Warn("Edge query failed, returning empty result set",
			zap.String("ownerID", ownerID),
			zap.Error(err),
		)
		return []*entities.Edge{}, nil
	}
	defer rows.Close()

	edges := make([]*entities.Edge, 0)
	for rows.Next() {
		var rec records.EdgeRecord
		var updatedAt int64
		if err := rows.Scan(&rec.ID, &rec.SourceID, &rec.TargetID, &rec.Weight, &updatedAt); err != nil {
			return nil, pkgerrors.NewDatabaseError("failed to scan edge", err)
		}
		rec.UpdatedAt = time.Unix(0, updatedAt)

		edge, err := rec.ToEntity()
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewDatabaseError("failed to iterate edges", err)
	}
	return edges, nil
}

// ReplaceEdges atomically swaps the owner's edge set
func (s *Store) ReplaceEdges(ctx context.Context, ownerID string, edges []*entities.Edge) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        DELETE FROM memory_edges WHERE id IN (
            SELECT e.id FROM memory_edges e
            JOIN memory_items i ON i.id = e.source_id OR i.id = e.target_id
            WHERE i.owner_id = ?
        )`, ownerID)
	if err != nil {
		return pkgerrors.NewDatabaseError("failed to clear edges", err)
	}

	for _, edge := range edges {
		rec := records.FromEdge(edge)
		_, err = tx.ExecContext(ctx, `
            INSERT INTO memory_edges (id, source_id, target_id, weight, updated_at)
            VALUES (?, ?, ?, ?, ?)`,
			rec.ID, rec.SourceID, rec.TargetID, rec.Weight, rec.UpdatedAt.UnixNano(),
		)
		if err != nil {
			return pkgerrors.NewDatabaseError("failed to insert edge", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return pkgerrors.NewDatabaseError("failed to commit edge replacement", err)
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (records.ItemRecord, error) {
	var rec records.ItemRecord
	var embedding sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.PaperID, &rec.Title, &rec.Text,
		&rec.Source, &rec.Note, &embedding, &createdAt, &updatedAt,
	)
	if err != nil {
		return rec, err
	}

	rec.CreatedAt = time.Unix(0, createdAt)
	rec.UpdatedAt = time.Unix(0, updatedAt)

	if embedding.Valid && embedding.String != "" {
		if err := json.Unmarshal([]byte(embedding.String), &rec.Embedding); err != nil {
			return rec, err
		}
	}
	return rec, nil
}
