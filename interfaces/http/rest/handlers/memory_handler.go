package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"palantir-backend/application/services"
	"palantir-backend/domain/core/entities"
	"palantir-backend/domain/core/valueobjects"
	"palantir-backend/pkg/common"
	pkgerrors "palantir-backend/pkg/errors"
	"palantir-backend/pkg/utils"
)

const maxBodyBytes = 1 << 20

// MemoryHandler handles memory item HTTP requests
type MemoryHandler struct {
	service *services.MemoryService
	errors  *pkgerrors.ErrorHandler
	logger  *zap.Logger
}

// NewMemoryHandler creates a new memory handler
func NewMemoryHandler(service *services.MemoryService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *MemoryHandler {
	return &MemoryHandler{
		service: service,
		errors:  errorHandler,
		logger:  logger,
	}
}

// ClipRequest represents the request body for clipping text. Threshold is a
// pointer so an explicit out-of-range zero is distinguishable from the field
// being absent; absent means the configured default.
type ClipRequest struct {
	PaperID   string    `json:"paperId" validate:"required"`
	Text      string    `json:"text" validate:"required"`
	Title     string    `json:"title,omitempty" validate:"omitempty,max=200"`
	Source    string    `json:"source,omitempty" validate:"omitempty,oneof=clip import manual"`
	Embedding []float64 `json:"embedding,omitempty"`
	Threshold *float64  `json:"threshold,omitempty" validate:"omitempty,gt=0,lt=1"`
}

// NoteRequest represents the request body for attaching a note
type NoteRequest struct {
	Note string `json:"note" validate:"required,max=2000"`
}

// BackfillRequest represents the request body for embedding backfill
type BackfillRequest struct {
	Threshold *float64 `json:"threshold,omitempty" validate:"omitempty,gt=0,lt=1"`
}

// ItemResponse is the JSON shape of a memory item. The embedding vector is
// not echoed back; clients only need to know whether one exists.
type ItemResponse struct {
	ID           string `json:"id"`
	OwnerID      string `json:"ownerId"`
	PaperID      string `json:"paperId"`
	Title        string `json:"title,omitempty"`
	Text         string `json:"text"`
	Source       string `json:"source"`
	Note         string `json:"note,omitempty"`
	HasEmbedding bool   `json:"hasEmbedding"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

// EdgeResponse is the JSON shape of a graph edge
type EdgeResponse struct {
	ID        string  `json:"id"`
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	Weight    float64 `json:"weight"`
	UpdatedAt string  `json:"updatedAt"`
}

// ClipResponse is the outcome of a clip request
type ClipResponse struct {
	Item         ItemResponse   `json:"item"`
	NewEdges     []EdgeResponse `json:"newEdges"`
	Deduplicated bool           `json:"deduplicated"`
	HasEmbedding bool           `json:"hasEmbedding"`
}

// Clip handles POST /memory/clip
func (h *MemoryHandler) Clip(w http.ResponseWriter, r *http.Request) {
	var req ClipRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}

	ownerID, err := common.OwnerIDFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result, err := h.service.CreateItem(r.Context(), services.CreateItemInput{
		OwnerID:   ownerID,
		PaperID:   req.PaperID,
		Text:      req.Text,
		Title:     req.Title,
		Source:    entities.Source(req.Source),
		Embedding: req.Embedding,
		Threshold: thresholdOrDefault(req.Threshold),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Deduplicated {
		status = http.StatusOK
	}
	common.RespondJSON(w, status, toClipResponse(result))
}

// ListItems handles GET /memory/items
func (h *MemoryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerIDFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	items, err := h.service.ListItems(r.Context(), ownerID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	responses := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, toItemResponse(item))
	}
	common.RespondJSON(w, http.StatusOK, responses)
}

// DeleteItem handles DELETE /memory/items/{itemID}
func (h *MemoryHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseItemID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	if err := h.service.DeleteItem(r.Context(), id); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// AttachNote handles POST /memory/items/{itemID}/note
func (h *MemoryHandler) AttachNote(w http.ResponseWriter, r *http.Request) {
	id, err := parseItemID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req NoteRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}

	item, err := h.service.AttachNote(r.Context(), id, req.Note)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toItemResponse(item))
}

// BackfillEmbedding handles POST /memory/items/{itemID}/embedding
func (h *MemoryHandler) BackfillEmbedding(w http.ResponseWriter, r *http.Request) {
	id, err := parseItemID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req BackfillRequest
	if r.ContentLength > 0 {
		if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
			h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body: "+err.Error()))
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			h.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
			return
		}
	}

	result, err := h.service.BackfillEmbedding(r.Context(), id, thresholdOrDefault(req.Threshold))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toClipResponse(result))
}

// parseItemID extracts and validates the itemID URL parameter
func parseItemID(r *http.Request) (valueobjects.ItemID, error) {
	raw := chi.URLParam(r, "itemID")
	if raw == "" {
		return valueobjects.ItemID{}, pkgerrors.NewValidationError("item ID is required")
	}
	id, err := valueobjects.NewItemIDFromString(raw)
	if err != nil {
		return valueobjects.ItemID{}, pkgerrors.NewValidationError("invalid item ID format")
	}
	return id, nil
}

// parseThresholdQuery reads an optional threshold query parameter. An absent
// parameter returns 0, meaning the configured default; a supplied value must
// be a number in (0, 1).
func parseThresholdQuery(r *http.Request) (float64, error) {
	raw := r.URL.Query().Get("threshold")
	if raw == "" {
		return 0, nil
	}
	threshold, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, pkgerrors.NewValidationError("threshold must be a number")
	}
	if err := services.ValidateThreshold(threshold); err != nil {
		return 0, err
	}
	return threshold, nil
}

// thresholdOrDefault unwraps an optional, already validated request
// threshold; nil selects the configured default
func thresholdOrDefault(threshold *float64) float64 {
	if threshold == nil {
		return 0
	}
	return *threshold
}

func toItemResponse(item *entities.MemoryItem) ItemResponse {
	return ItemResponse{
		ID:           item.ID().String(),
		OwnerID:      item.OwnerID(),
		PaperID:      item.PaperID(),
		Title:        item.Title(),
		Text:         item.Text(),
		Source:       string(item.Source()),
		Note:         item.Note(),
		HasEmbedding: item.HasEmbedding(),
		CreatedAt:    item.CreatedAt().Format(time.RFC3339),
		UpdatedAt:    item.UpdatedAt().Format(time.RFC3339),
	}
}

func toEdgeResponse(edge *entities.Edge) EdgeResponse {
	return EdgeResponse{
		ID:        edge.ID(),
		Source:    edge.SourceID().String(),
		Target:    edge.TargetID().String(),
		Weight:    edge.Weight(),
		UpdatedAt: edge.UpdatedAt().Format(time.RFC3339),
	}
}

func toClipResponse(result *services.CreateItemResult) ClipResponse {
	edges := make([]EdgeResponse, 0, len(result.NewEdges))
	for _, edge := range result.NewEdges {
		edges = append(edges, toEdgeResponse(edge))
	}
	return ClipResponse{
		Item:         toItemResponse(result.Item),
		NewEdges:     edges,
		Deduplicated: result.Deduplicated,
		HasEmbedding: result.HasEmbedding,
	}
}
