package entities

import (
	"time"

	"palantir-backend/domain/core/valueobjects"
	pkgerrors "palantir-backend/pkg/errors"
)

// Edge represents a similarity connection between two memory items. Edges
// are undirected: the identifier is derived from the unordered endpoint
// pair, so an edge between A and B is the same edge regardless of which
// item was inserted first. Endpoints are stored in canonical (sorted)
// order.
type Edge struct {
	id        string
	sourceID  valueobjects.ItemID
	targetID  valueobjects.ItemID
	weight    float64
	updatedAt time.Time
}

// CanonicalEdgeID derives the deterministic edge identifier for an
// unordered item pair
func CanonicalEdgeID(a, b valueobjects.ItemID) string {
	first, second := a.String(), b.String()
	if second < first {
		first, second = second, first
	}
	return first + "#" + second
}

// NewEdge creates an edge between two distinct items with the given
// similarity weight
func NewEdge(a, b valueobjects.ItemID, weight float64) (*Edge, error) {
	if a.IsZero() || b.IsZero() {
		return nil, pkgerrors.NewValidationError("edge endpoints cannot be empty")
	}
	if a.Equals(b) {
		return nil, pkgerrors.NewValidationError("edge cannot connect an item to itself")
	}
	if weight < -1 || weight > 1 {
		return nil, pkgerrors.NewValidationError("edge weight must be in [-1, 1]")
	}

	source, target := a, b
	if target.String() < source.String() {
		source, target = target, source
	}

	return &Edge{
		id:        CanonicalEdgeID(a, b),
		sourceID:  source,
		targetID:  target,
		weight:    weight,
		updatedAt: time.Now(),
	}, nil
}

// ReconstructEdge rebuilds an edge from repository data
func ReconstructEdge(
	id string,
	sourceID, targetID valueobjects.ItemID,
	weight float64,
	updatedAt time.Time,
) (*Edge, error) {
	if id == "" {
		return nil, pkgerrors.NewValidationError("edge ID cannot be empty")
	}
	if sourceID.IsZero() || targetID.IsZero() {
		return nil, pkgerrors.NewValidationError("edge endpoints cannot be empty")
	}

	return &Edge{
		id:        id,
		sourceID:  sourceID,
		targetID:  targetID,
		weight:    weight,
		updatedAt: updatedAt,
	}, nil
}

// ID returns the canonical pair-derived identifier
func (e *Edge) ID() string {
	return e.id
}

// SourceID returns the lexicographically smaller endpoint
func (e *Edge) SourceID() valueobjects.ItemID {
	return e.sourceID
}

// TargetID returns the lexicographically larger endpoint
func (e *Edge) TargetID() valueobjects.ItemID {
	return e.targetID
}

// Weight returns the cosine similarity stored on the edge
func (e *Edge) Weight() float64 {
	return e.weight
}

// UpdatedAt returns when the edge weight was last written
func (e *Edge) UpdatedAt() time.Time {
	return e.updatedAt
}

// UpdateWeight replaces the stored similarity and refreshes the timestamp
func (e *Edge) UpdateWeight(weight float64) error {
	if weight < -1 || weight > 1 {
		return pkgerrors.NewValidationError("edge weight must be in [-1, 1]")
	}
	e.weight = weight
	e.updatedAt = time.Now()
	return nil
}

// Touches reports whether the edge references the given item
func (e *Edge) Touches(id valueobjects.ItemID) bool {
	return e.sourceID.Equals(id) || e.targetID.Equals(id)
}
