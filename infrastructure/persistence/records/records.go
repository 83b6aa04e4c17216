// Package records defines the plain serializable representation of memory
// items and edges shared by the store implementations. Entities stay rich
// and encapsulated; records are what hits disk.
package records

import (
	"time"

	"palantir-backend/domain/core/entities"
	"palantir-backend/domain/core/valueobjects"
)

// ItemRecord is the persisted form of a MemoryItem
type ItemRecord struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	PaperID   string    `json:"paperId"`
	Title     string    `json:"title,omitempty"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Note      string    `json:"note,omitempty"`
	Embedding []float64 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EdgeRecord is the persisted form of an Edge
type EdgeRecord struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"source"`
	TargetID  string    `json:"target"`
	Weight    float64   `json:"weight"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromItem converts an entity into its persisted form
func FromItem(item *entities.MemoryItem) ItemRecord {
	return ItemRecord{
		ID:        item.ID().String(),
		OwnerID:   item.OwnerID(),
		PaperID:   item.PaperID(),
		Title:     item.Title(),
		Text:      item.Text(),
		Source:    string(item.Source()),
		Note:      item.Note(),
		Embedding: item.Embedding().Values(),
		CreatedAt: item.CreatedAt(),
		UpdatedAt: item.UpdatedAt(),
	}
}

// ToEntity reconstructs the MemoryItem entity
func (r ItemRecord) ToEntity() (*entities.MemoryItem, error) {
	id, err := valueobjects.NewItemIDFromString(r.ID)
	if err != nil {
		return nil, err
	}
	return entities.ReconstructMemoryItem(
		id,
		r.OwnerID,
		r.PaperID,
		r.Title,
		r.Text,
		entities.Source(r.Source),
		r.Note,
		valueobjects.NewEmbedding(r.Embedding),
		r.CreatedAt,
		r.UpdatedAt,
	)
}

// FromEdge converts an entity into its persisted form
func FromEdge(edge *entities.Edge) EdgeRecord {
	return EdgeRecord{
		ID:        edge.ID(),
		SourceID:  edge.SourceID().String(),
		TargetID:  edge.TargetID().String(),
		Weight:    edge.Weight(),
		UpdatedAt: edge.UpdatedAt(),
	}
}

// ToEntity reconstructs the Edge entity
func (r EdgeRecord) ToEntity() (*entities.Edge, error) {
	sourceID, err := valueobjects.NewItemIDFromString(r.SourceID)
	if err != nil {
		return nil, err
	}
	targetID, err := valueobjects.NewItemIDFromString(r.TargetID)
	if err != nil {
		return nil, err
	}
	return entities.ReconstructEdge(r.ID, sourceID, targetID, r.Weight, r.UpdatedAt)
}
