// Package ports defines the interfaces between the application layer and
// infrastructure. Implementations live under infrastructure/.
package ports

import (
	"context"

	"palantir-backend/domain/core/entities"
	"palantir-backend/domain/core/valueobjects"
)

// MemoryStore is the durable record of memory items and similarity edges.
// A single interface owns both collections so that cascading mutations
// (delete item, replace an owner's edge set) are atomic from the caller's
// point of view: no read issued after DeleteItem returns may observe a
// dangling edge.
//
// Failure semantics: read failures degrade to empty results and a logged
// warning; write failures surface as DATABASE errors. A write is never
// silently dropped.
type MemoryStore interface {
	// SaveItem persists a new or updated item
	SaveItem(ctx context.Context, item *entities.MemoryItem) error

	// GetItem returns the item or a NOT_FOUND error
	GetItem(ctx context.Context, id valueobjects.ItemID) (*entities.MemoryItem, error)

	// ListItems returns an owner's items, most recently created first
	ListItems(ctx context.Context, ownerID string) ([]*entities.MemoryItem, error)

	// FindDuplicate returns an owner's item with the same normalized text
	// for the same source document, or nil when none exists
	FindDuplicate(ctx context.Context, ownerID, paperID, normalizedText string) (*entities.MemoryItem, error)

	// DeleteItem removes the item and every edge touching it, atomically.
	// Returns a NOT_FOUND error when the item does not exist.
	DeleteItem(ctx context.Context, id valueobjects.ItemID) error

	// UpsertEdge inserts the edge or, when one with the same canonical
	// identifier exists, replaces its weight and timestamp. Idempotent
	// under re-application with the same inputs.
	UpsertEdge(ctx context.Context, edge *entities.Edge) error

	// ListEdges returns the edges whose endpoints both belong to the
	// owner's current item set. Edges referencing deleted or foreign
	// items are filtered at read time, not eagerly cleaned.
	ListEdges(ctx context.Context, ownerID string) ([]*entities.Edge, error)

	// ReplaceEdges atomically swaps an owner's entire edge set, used when
	// the similarity threshold is recalculated
	ReplaceEdges(ctx context.Context, ownerID string, edges []*entities.Edge) error
}

// EmbeddingProvider turns clipped text into a fixed-length vector. The
// concrete provider is external; its failures are absorbed by the caller
// and degrade to the no-embedding path.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimensions() int
}
