package services

import (
	"context"

	"go.uber.org/zap"

	"palantir-backend/application/ports"
	"palantir-backend/domain/core/entities"
	"palantir-backend/domain/core/valueobjects"
	pkgerrors "palantir-backend/pkg/errors"
)

// MemoryService is the caller-facing workflow over the memory store: clip
// creation with duplicate guarding and embedding acquisition, deletion with
// edge cascade, read projections, note attachment and embedding backfill.
type MemoryService struct {
	store            ports.MemoryStore
	embedder         ports.EmbeddingProvider
	graph            *GraphService
	defaultThreshold float64
	logger           *zap.Logger
}

// NewMemoryService creates a new memory service
func NewMemoryService(
	store ports.MemoryStore,
	embedder ports.EmbeddingProvider,
	graph *GraphService,
	defaultThreshold float64,
	logger *zap.Logger,
) *MemoryService {
	return &MemoryService{
		store:            store,
		embedder:         embedder,
		graph:            graph,
		defaultThreshold: defaultThreshold,
		logger:           logger,
	}
}

// CreateItemInput carries everything needed to clip a piece of text
type CreateItemInput struct {
	OwnerID   string
	PaperID   string
	Text      string
	Title     string
	Source    entities.Source
	Embedding []float64 // optional precomputed vector
	Threshold float64   // 0 means use the configured default
}

// CreateItemResult is the outcome of a clip request
type CreateItemResult struct {
	Item         *entities.MemoryItem
	NewEdges     []*entities.Edge
	Deduplicated bool
	HasEmbedding bool
}

// GraphData is the read projection of an owner's graph: the owner's items
// plus only those edges whose endpoints are both in that item set
type GraphData struct {
	Nodes []*entities.MemoryItem
	Edges []*entities.Edge
}

// CreateItem runs the clip workflow. Repeated clips of the same text
// (case-insensitive, trimmed) for the same document return the existing
// item unchanged. When no embedding was supplied the provider is asked for
// one; provider failure is absorbed and the item is stored without a
// vector, forming no edges until backfilled.
func (s *MemoryService) CreateItem(ctx context.Context, input CreateItemInput) (*CreateItemResult, error) {
	threshold := input.Threshold
	if threshold == 0 {
		threshold = s.defaultThreshold
	}
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}

	// Duplicate-clip guard: repeated clip actions must not grow the graph.
	existing, err := s.store.FindDuplicate(
		ctx, input.OwnerID, input.PaperID, entities.NormalizeText(input.Text),
	)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.logger.Info("Duplicate clip, returning existing item",
			zap.String("itemID", existing.ID().String()),
			zap.String("paperID", input.PaperID),
		)
		return &CreateItemResult{
			Item:         existing,
			NewEdges:     []*entities.Edge{},
			Deduplicated: true,
			HasEmbedding: existing.HasEmbedding(),
		}, nil
	}

	embedding := valueobjects.NewEmbedding(input.Embedding)
	if embedding.IsZero() && s.embedder != nil {
		vector, err := s.embedder.Embed(ctx, input.Text)
		if err != nil {
			// Degraded path: the item still gets stored, it just forms no
			// similarity edges until its embedding is backfilled.
			s.logger.Warn("Embedding provider failed, storing item without vector",
				zap.String("ownerID", input.OwnerID),
				zap.Error(err),
			)
		} else {
			embedding = valueobjects.NewEmbedding(vector)
		}
	}

	item, err := entities.NewMemoryItem(
		input.OwnerID, input.PaperID, input.Text, input.Source, input.Title, embedding,
	)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveItem(ctx, item); err != nil {
		return nil, err
	}

	newEdges := []*entities.Edge{}
	if item.HasEmbedding() {
		newEdges, err = s.graph.ConnectItem(ctx, item, threshold)
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("Memory item created",
		zap.String("itemID", item.ID().String()),
		zap.String("ownerID", item.OwnerID()),
		zap.Bool("hasEmbedding", item.HasEmbedding()),
		zap.Int("newEdges", len(newEdges)),
	)

	return &CreateItemResult{
		Item:         item,
		NewEdges:     newEdges,
		Deduplicated: false,
		HasEmbedding: item.HasEmbedding(),
	}, nil
}

// ListItems returns an owner's items, most recently created first
func (s *MemoryService) ListItems(ctx context.Context, ownerID string) ([]*entities.MemoryItem, error) {
	return s.store.ListItems(ctx, ownerID)
}

// GetItem returns a single item or a NOT_FOUND error
func (s *MemoryService) GetItem(ctx context.Context, id valueobjects.ItemID) (*entities.MemoryItem, error) {
	return s.store.GetItem(ctx, id)
}

// GetGraph returns the owner's graph projection
func (s *MemoryService) GetGraph(ctx context.Context, ownerID string) (*GraphData, error) {
	nodes, err := s.store.ListItems(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	edges, err := s.store.ListEdges(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &GraphData{Nodes: nodes, Edges: edges}, nil
}

// DeleteItem removes the item and cascades removal of every edge touching
// it. A missing item yields a NOT_FOUND error, never silent success.
func (s *MemoryService) DeleteItem(ctx context.Context, id valueobjects.ItemID) error {
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Memory item deleted", zap.String("itemID", id.String()))
	return nil
}

// AttachNote sets or replaces the user note on an item
func (s *MemoryService) AttachNote(ctx context.Context, id valueobjects.ItemID, note string) (*entities.MemoryItem, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	item.AttachNote(note)
	if err := s.store.SaveItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// BackfillEmbedding retries embedding for an item created while the
// provider was unavailable, then connects it into the graph. Unlike the
// create path, a provider failure here is surfaced: the caller explicitly
// asked for the vector.
func (s *MemoryService) BackfillEmbedding(
	ctx context.Context,
	id valueobjects.ItemID,
	threshold float64,
) (*CreateItemResult, error) {
	if threshold == 0 {
		threshold = s.defaultThreshold
	}
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}

	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.HasEmbedding() {
		return nil, pkgerrors.NewConflictError("item already has an embedding")
	}

	if s.embedder == nil {
		return nil, pkgerrors.NewInternalError("no embedding provider configured")
	}

	vector, err := s.embedder.Embed(ctx, item.Text())
	if err != nil {
		return nil, pkgerrors.NewExternalError("embedding provider failed", err)
	}

	if err := item.SetEmbedding(valueobjects.NewEmbedding(vector)); err != nil {
		return nil, err
	}
	if err := s.store.SaveItem(ctx, item); err != nil {
		return nil, err
	}

	newEdges, err := s.graph.ConnectItem(ctx, item, threshold)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Embedding backfilled",
		zap.String("itemID", item.ID().String()),
		zap.Int("newEdges", len(newEdges)),
	)

	return &CreateItemResult{
		Item:         item,
		NewEdges:     newEdges,
		Deduplicated: false,
		HasEmbedding: true,
	}, nil
}

// AnalyzeAllPairs exposes the diagnostic pairwise recompute
func (s *MemoryService) AnalyzeAllPairs(ctx context.Context, ownerID string, threshold float64) (*AnalysisResult, error) {
	if threshold == 0 {
		threshold = s.defaultThreshold
	}
	return s.graph.AnalyzeAllPairs(ctx, ownerID, threshold)
}

// Recalculate rebuilds the owner's edge set at a new threshold
func (s *MemoryService) Recalculate(ctx context.Context, ownerID string, threshold float64) ([]*entities.Edge, error) {
	return s.graph.Recalculate(ctx, ownerID, threshold)
}
