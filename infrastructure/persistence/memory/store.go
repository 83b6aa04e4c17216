// Package memory provides a map-backed MemoryStore for development and
// tests. All operations run under a single mutex, so the delete cascade
// and edge replacement are atomic by construction.
package memory

import (
	"context"
	"sort"
	"sync"

	"palantir-backend/domain/core/entities"
	"palantir-backend/domain/core/valueobjects"
	"palantir-backend/infrastructure/persistence/records"
	pkgerrors "palantir-backend/pkg/errors"
)

// Store is an in-memory MemoryStore implementation
type Store struct {
	mu    sync.RWMutex
	items map[string]records.ItemRecord
	edges map[string]records.EdgeRecord
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		items: make(map[string]records.ItemRecord),
		edges: make(map[string]records.EdgeRecord),
	}
}

// SaveItem persists a new or updated item
func (s *Store) SaveItem(_ context.Context, item *entities.MemoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[item.ID().String()] = records.FromItem(item)
	return nil
}

// GetItem returns the item or a NOT_FOUND error
func (s *Store) GetItem(_ context.Context, id valueobjects.ItemID) (*entities.MemoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.items[id.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("memory item")
	}
	return rec.ToEntity()
}

// ListItems returns an owner's items, most recently created first
func (s *Store) ListItems(_ context.Context, ownerID string) ([]*entities.MemoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := make([]records.ItemRecord, 0)
	for _, rec := range s.items {
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
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.items {
		if rec.OwnerID != ownerID || rec.PaperID != paperID {
			continue
		}
		if entities.NormalizeText(rec.Text) == normalizedText {
			return rec.ToEntity()
		}
	}
	return nil, nil
}

// DeleteItem removes the item and cascades edge removal under one lock
func (s *Store) DeleteItem(_ context.Context, id valueobjects.ItemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := id.String()
	if _, ok := s.items[key]; !ok {
		return pkgerrors.NewNotFoundError("memory item")
	}
	delete(s.items, key)

	for edgeID, edge := range s.edges {
		if edge.SourceID == key || edge.TargetID == key {
			delete(s.edges, edgeID)
		}
	}
	return nil
}

// UpsertEdge inserts or replaces the edge under its canonical identifier
func (s *Store) UpsertEdge(_ context.Context, edge *entities.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.edges[edge.ID()] = records.FromEdge(edge)
	return nil
}

// ListEdges returns edges whose endpoints both belong to the owner
func (s *Store) ListEdges(_ context.Context, ownerID string) ([]*entities.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := s.ownedItemIDs(ownerID)

	recs := make([]records.EdgeRecord, 0)
	for _, edge := range s.edges {
		if owned[edge.SourceID] && owned[edge.TargetID] {
			recs = append(recs, edge)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })

	edges := make([]*entities.Edge, 0, len(recs))
	for _, rec := range recs {
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

	owned := s.ownedItemIDs(ownerID)
	for edgeID, edge := range s.edges {
		if owned[edge.SourceID] || owned[edge.TargetID] {
			delete(s.edges, edgeID)
		}
	}
	for _, edge := range edges {
		s.edges[edge.ID()] = records.FromEdge(edge)
	}
	return nil
}

// ownedItemIDs collects the owner's item ids; callers must hold the lock
func (s *Store) ownedItemIDs(ownerID string) map[string]bool {
	owned := make(map[string]bool)
	for id, rec := range s.items {
		if rec.OwnerID == ownerID {
			owned[id] = true
		}
	}
	return owned
}
