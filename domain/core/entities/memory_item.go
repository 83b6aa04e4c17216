package entities

import (
	"strings"
	"time"

	"palantir-backend/domain/core/valueobjects"
	pkgerrors "palantir-backend/pkg/errors"
)

// Source tags how a memory item was captured
type Source string

const (
	SourceClip   Source = "clip"
	SourceImport Source = "import"
	SourceManual Source = "manual"
)

// MemoryItem is the main entity representing a clipped piece of text.
// Items are immutable once created except for note attachment and
// embedding backfill.
type MemoryItem struct {
	// Private fields ensure encapsulation
	id        valueobjects.ItemID
	ownerID   string
	paperID   string
	title     string
	text      string
	source    Source
	note      string
	embedding valueobjects.Embedding
	createdAt time.Time
	updatedAt time.Time
}

// NewMemoryItem creates a new memory item with business rule validation
func NewMemoryItem(
	ownerID string,
	paperID string,
	text string,
	source Source,
	title string,
	embedding valueobjects.Embedding,
) (*MemoryItem, error) {
	if ownerID == "" {
		return nil, pkgerrors.NewValidationError("ownerID cannot be empty")
	}
	if paperID == "" {
		return nil, pkgerrors.NewValidationError("paperID cannot be empty")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, pkgerrors.NewValidationError("text cannot be empty")
	}

	if source == "" {
		source = SourceClip
	}

	now := time.Now()
	return &MemoryItem{
		id:        valueobjects.NewItemID(),
		ownerID:   ownerID,
		paperID:   paperID,
		title:     strings.TrimSpace(title),
		text:      text,
		source:    source,
		embedding: embedding,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructMemoryItem rebuilds an item from repository data with
// preserved identity and timestamps
func ReconstructMemoryItem(
	id valueobjects.ItemID,
	ownerID string,
	paperID string,
	title string,
	text string,
	source Source,
	note string,
	embedding valueobjects.Embedding,
	createdAt, updatedAt time.Time,
) (*MemoryItem, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("item ID cannot be empty")
	}
	if ownerID == "" {
		return nil, pkgerrors.NewValidationError("ownerID cannot be empty")
	}
	if strings.TrimSpace(text) == "" {
		return nil, pkgerrors.NewValidationError("text cannot be empty")
	}

	return &MemoryItem{
		id:        id,
		ownerID:   ownerID,
		paperID:   paperID,
		title:     title,
		text:      text,
		source:    source,
		note:      note,
		embedding: embedding,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}, nil
}

// ID returns the item's unique identifier
func (m *MemoryItem) ID() valueobjects.ItemID {
	return m.id
}

// OwnerID returns the owner's identifier
func (m *MemoryItem) OwnerID() string {
	return m.ownerID
}

// PaperID returns the source document identifier
func (m *MemoryItem) PaperID() string {
	return m.paperID
}

// Title returns the optional display title
func (m *MemoryItem) Title() string {
	return m.title
}

// Text returns the raw clipped text
func (m *MemoryItem) Text() string {
	return m.text
}

// Source returns the provenance tag
func (m *MemoryItem) Source() Source {
	return m.source
}

// Note returns the attached note, if any
func (m *MemoryItem) Note() string {
	return m.note
}

// Embedding returns the attached embedding vector
func (m *MemoryItem) Embedding() valueobjects.Embedding {
	return m.embedding
}

// HasEmbedding reports whether an embedding is attached
func (m *MemoryItem) HasEmbedding() bool {
	return !m.embedding.IsZero()
}

// CreatedAt returns when the item was created
func (m *MemoryItem) CreatedAt() time.Time {
	return m.createdAt
}

// UpdatedAt returns when the item was last updated
func (m *MemoryItem) UpdatedAt() time.Time {
	return m.updatedAt
}

// AttachNote sets or replaces the user note on the item
func (m *MemoryItem) AttachNote(note string) {
	m.note = strings.TrimSpace(note)
	m.updatedAt = time.Now()
}

// SetEmbedding attaches or replaces the embedding vector. Used to backfill
// items created while the embedding provider was unavailable.
func (m *MemoryItem) SetEmbedding(embedding valueobjects.Embedding) error {
	if embedding.IsZero() {
		return pkgerrors.NewValidationError("embedding cannot be empty")
	}
	m.embedding = embedding
	m.updatedAt = time.Now()
	return nil
}

// NormalizedText returns the text lowered and trimmed, the form used by the
// duplicate-clip guard
func (m *MemoryItem) NormalizedText() string {
	return NormalizeText(m.text)
}

// NormalizeText lowercases and trims text for duplicate comparison
func NormalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
