// Package jsonfile persists the memory graph as a single JSON document:
// read whole file, mutate in memory, write whole file through an atomic
// rename. A deliberate tradeoff for small personal datasets; callers only
// see the MemoryStore interface, so swapping in a real database changes
// nothing above it.
package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"palantir-backend/domain/core/entities"
	"palantir-backend/domain/core/valueobjects"
	"palantir-backend/infrastructure/persistence/records"
	pkgerrors "palantir-backend/pkg/errors"
)

// document is the on-disk layout
type document struct {
	Items []records.ItemRecord `json:"items"`
	Edges []records.EdgeRecord `json:"edges"`
}

// Store is a file-backed MemoryStore implementation
type Store struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

// NewStore creates a store persisting to the given path. The file is
// created on first write.
func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// load reads the whole document. A missing file is an empty store; any
// other failure is reported so callers can decide whether to degrade.
func (s *Store) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &document{}, nil
		}
		return nil, pkgerrors.NewDatabaseError("failed to read store file", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, pkgerrors.NewDatabaseError("failed to parse store file", err)
	}
	return &doc, nil
}

// loadForRead degrades a read failure to an empty document plus a logged
// warning; the UI must stay usable when the file is unreadable.
func (s *Store) loadForRead() *document {
	doc, err := s.load()
	if err != nil {
		s.logger.Warn("Store read failed, returning empty result set",
			zap.String("path", s.path),
			zap.Error(err),
		)
		return &document{}
	}
	return doc
}

// save writes the whole document through a temp file and rename, so a
// crashed write never leaves a truncated store behind
func (s *Store) save(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return pkgerrors.NewDatabaseError("failed to encode store file", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".palantir-memory-*.json")
	if err != nil {
		return pkgerrors.NewDatabaseError("failed to create temp store file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return pkgerrors.NewDatabaseError("failed to write store file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return pkgerrors.NewDatabaseError("failed to close store file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return pkgerrors.NewDatabaseError("failed to replace store file", err)
	}
	return nil
}

// SaveItem persists a new or updated item
func (s *Store) SaveItem(_ context.Context, item *entities.MemoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	rec := records.FromItem(item)
	replaced := false
	for i := range doc.Items {
		if doc.Items[i].ID == rec.ID {
			doc.Items[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Items = append(doc.Items, rec)
	}

	return s.save(doc)
}

// GetItem returns the item or a NOT_FOUND error
func (s *Store) GetItem(_ context.Context, id valueobjects.ItemID) (*entities.MemoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	for _, rec := range doc.Items {
		if rec.ID == id.String() {
			return rec.ToEntity()
		}
	}
	return nil, pkgerrors.NewNotFoundError("memory item")
}

// ListItems returns an owner's items, most recently created first
func (s *Store) ListItems(_ context.Context, ownerID string) ([]*entities.MemoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.loadForRead()

	owned := make([]records.ItemRecord, 0)
	for _, rec := range doc.Items {
		if rec.OwnerID == ownerID {
			owned = append(owned, rec)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].ID < owned[j].ID
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	items := make([]*entities.MemoryItem, 0, len(owned))
	for _, rec := range owned {
		item, err := rec.ToEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// FindDuplicate returns an owner's item with identical normalized text for
// the same paper, or nil
func (s *Store) FindDuplicate(_ context.Context, ownerID, paperID, normalizedText string) (*entities.MemoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.loadForRead()

	for _, rec := range doc.Items {
		if rec.OwnerID != ownerID || rec.PaperID != paperID {
			continue
		}
		if entities.NormalizeText(rec.Text) == normalizedText {
			return rec.ToEntity()
		}
	}
	return nil, nil
}

// DeleteItem removes the item and every edge touching it in one write, so
// a partial state is never observable
func (s *Store) DeleteItem(_ context.Context, id valueobjects.ItemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	key := id.String()
	found := false
	items := doc.Items[:0]
	for _, rec := range doc.Items {
		if rec.ID == key {
			found = true
			continue
		}
		items = append(items, rec)
	}
	if !found {
		return pkgerrors.NewNotFoundError("memory item")
	}
	doc.Items = items

	edges := doc.Edges[:0]
	for _, edge := range doc.Edges {
		if edge.SourceID == key || edge.TargetID == key {
			continue
		}
		edges = append(edges, edge)
	}
	doc.Edges = edges

	return s.save(doc)
}

// UpsertEdge inserts or replaces the edge under its canonical identifier
func (s *Store) UpsertEdge(_ context.Context, edge *entities.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	rec := records.FromEdge(edge)
	replaced := false
	for i := range doc.Edges {
		if doc.Edges[i].ID == rec.ID {
			doc.Edges[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Edges = append(doc.Edges, rec)
	}

	return s.save(doc)
}

// ListEdges returns edges whose endpoints both belong to the owner
func (s *Store) ListEdges(_ context.Context, ownerID string) ([]*entities.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.loadForRead()

	owned := make(map[string]bool)
	for _, rec := range doc.Items {
		if rec.OwnerID == ownerID {
			owned[rec.ID] = true
		}
	}

	edges := make([]*entities.Edge, 0)
	for _, rec := range doc.Edges {
		if !owned[rec.SourceID] || !owned[rec.TargetID] {
			continue
		}
		edge, err := rec.ToEntity()
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

// ReplaceEdges atomically swaps the owner's edge set
func (s *Store) ReplaceEdges(_ context.Context, ownerID string, edges []*entities.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	owned := make(map[string]bool)
	for _, rec := range doc.Items {
		if rec.OwnerID == ownerID {
			owned[rec.ID] = true
		}
	}

	kept := doc.Edges[:0]
	for _, rec := range doc.Edges {
		if owned[rec.SourceID] || owned[rec.TargetID] {
			continue
		}
		kept = append(kept, rec)
	}
	doc.Edges = kept

	for _, edge := range edges {
		doc.Edges = append(doc.Edges, records.FromEdge(edge))
	}

	return s.save(doc)
}
