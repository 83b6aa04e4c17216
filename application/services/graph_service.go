package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"palantir-backend/application/ports"
	"palantir-backend/domain/core/entities"
	"palantir-backend/domain/similarity"
	pkgerrors "palantir-backend/pkg/errors"
)

// GraphService maintains the similarity edges of the memory graph. Edge
// creation has no independent path: edges exist only as a side effect of
// inserting or backfilling an item with an embedding, or of a full
// recalculation at a new threshold.
type GraphService struct {
	store  ports.MemoryStore
	logger *zap.Logger
}

// NewGraphService creates a new graph service
func NewGraphService(store ports.MemoryStore, logger *zap.Logger) *GraphService {
	return &GraphService{
		store:  store,
		logger: logger,
	}
}

// PairAnalysis describes the similarity of one item pair, for diagnostics
type PairAnalysis struct {
	ItemID1    string  `json:"itemId1"`
	ItemID2    string  `json:"itemId2"`
	Text1      string  `json:"text1"`
	Text2      string  `json:"text2"`
	Similarity float64 `json:"similarity"`
	Connected  bool    `json:"connected"`
}

// AnalysisSummary aggregates a full pairwise analysis
type AnalysisSummary struct {
	TotalPairs        int     `json:"totalPairs"`
	ConnectedPairs    int     `json:"connectedPairs"`
	Threshold         float64 `json:"threshold"`
	HighestSimilarity float64 `json:"highestSimilarity"`
	LowestSimilarity  float64 `json:"lowestSimilarity"`
}

// AnalysisResult is the full output of AnalyzeAllPairs
type AnalysisResult struct {
	Pairs   []PairAnalysis  `json:"pairs"`
	Summary AnalysisSummary `json:"summary"`
}

// ValidateThreshold rejects similarity thresholds outside the open
// interval (0, 1). Out-of-range values are an input error, never clamped.
func ValidateThreshold(threshold float64) error {
	if threshold <= 0 || threshold >= 1 {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("threshold must be in (0, 1), got %g", threshold),
		)
	}
	return nil
}

// ConnectItem compares a newly inserted item against every existing item of
// the same owner and upserts an edge for each similarity strictly above the
// threshold. Existing items are visited oldest first, so the returned edges
// follow insertion order of their far endpoints.
//
// This is O(n) against the owner's item count per insertion. Acceptable for
// a personal clip collection; there is no index structure to consult.
func (s *GraphService) ConnectItem(
	ctx context.Context,
	item *entities.MemoryItem,
	threshold float64,
) ([]*entities.Edge, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	if !item.HasEmbedding() {
		return nil, nil
	}

	existing, err := s.store.ListItems(ctx, item.OwnerID())
	if err != nil {
		return nil, err
	}

	vector := item.Embedding().Values()
	edges := make([]*entities.Edge, 0)

	// ListItems is newest-first; walk backwards for oldest-first order.
	for i := len(existing) - 1; i >= 0; i-- {
		other := existing[i]
		if other.ID().Equals(item.ID()) || !other.HasEmbedding() {
			continue
		}

		score, err := similarity.Cosine(vector, other.Embedding().Values())
		if err != nil {
			// Items embedded under a different model dimension cannot be
			// compared; skip them rather than failing the whole insert.
			s.logger.Warn("Skipping incomparable item pair",
				zap.String("itemID", item.ID().String()),
				zap.String("otherID", other.ID().String()),
				zap.Error(err),
			)
			continue
		}

		if score <= threshold {
			continue
		}

		edge, err := entities.NewEdge(item.ID(), other.ID(), score)
		if err != nil {
			return nil, err
		}
		if err := s.store.UpsertEdge(ctx, edge); err != nil {
			return nil, err
		}
		edges = append(edges, edge)

		s.logger.Debug("Connected items",
			zap.String("edgeID", edge.ID()),
			zap.Float64("weight", score),
		)
	}

	if len(edges) > 0 {
		s.logger.Info("Created edges for item",
			zap.String("itemID", item.ID().String()),
			zap.Int("edgeCount", len(edges)),
		)
	}

	return edges, nil
}

// Recalculate rebuilds an owner's entire edge set from scratch at a new
// threshold, replacing whatever was stored before. Used when the caller
// adjusts similarity sensitivity interactively.
func (s *GraphService) Recalculate(
	ctx context.Context,
	ownerID string,
	threshold float64,
) ([]*entities.Edge, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}

	items, err := s.store.ListItems(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	edges := make([]*entities.Edge, 0)
	for i := 0; i < len(items); i++ {
		if !items[i].HasEmbedding() {
			continue
		}
		for j := i + 1; j < len(items); j++ {
			if !items[j].HasEmbedding() {
				continue
			}

			score, err := similarity.Cosine(
				items[i].Embedding().Values(),
				items[j].Embedding().Values(),
			)
			if err != nil {
				s.logger.Warn("Skipping incomparable item pair",
					zap.String("itemID", items[i].ID().String()),
					zap.String("otherID", items[j].ID().String()),
					zap.Error(err),
				)
				continue
			}

			if score <= threshold {
				continue
			}

			edge, err := entities.NewEdge(items[i].ID(), items[j].ID(), score)
			if err != nil {
				return nil, err
			}
			edges = append(edges, edge)
		}
	}

	if err := s.store.ReplaceEdges(ctx, ownerID, edges); err != nil {
		return nil, err
	}

	s.logger.Info("Recalculated edges",
		zap.String("ownerID", ownerID),
		zap.Float64("threshold", threshold),
		zap.Int("edgeCount", len(edges)),
	)

	return edges, nil
}

// AnalyzeAllPairs computes similarity for every pair of embedded items and
// returns all pairs sorted by similarity descending, annotated with whether
// each pair clears the threshold. This is the O(n^2) full-recompute
// diagnostic; it writes nothing.
func (s *GraphService) AnalyzeAllPairs(
	ctx context.Context,
	ownerID string,
	threshold float64,
) (*AnalysisResult, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}

	items, err := s.store.ListItems(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	pairs := make([]PairAnalysis, 0)
	for i := 0; i < len(items); i++ {
		if !items[i].HasEmbedding() {
			continue
		}
		for j := i + 1; j < len(items); j++ {
			if !items[j].HasEmbedding() {
				continue
			}

			score, err := similarity.Cosine(
				items[i].Embedding().Values(),
				items[j].Embedding().Values(),
			)
			if err != nil {
				continue
			}

			pairs = append(pairs, PairAnalysis{
				ItemID1:    items[i].ID().String(),
				ItemID2:    items[j].ID().String(),
				Text1:      items[i].Text(),
				Text2:      items[j].Text(),
				Similarity: score,
				Connected:  score > threshold,
			})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Similarity > pairs[j].Similarity
	})

	summary := AnalysisSummary{
		TotalPairs: len(pairs),
		Threshold:  threshold,
	}
	for _, p := range pairs {
		if p.Connected {
			summary.ConnectedPairs++
		}
	}
	if len(pairs) > 0 {
		summary.HighestSimilarity = pairs[0].Similarity
		summary.LowestSimilarity = pairs[len(pairs)-1].Similarity
	}

	return &AnalysisResult{Pairs: pairs, Summary: summary}, nil
}
