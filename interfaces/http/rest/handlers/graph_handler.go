package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"palantir-backend/application/services"
	"palantir-backend/pkg/common"
	pkgerrors "palantir-backend/pkg/errors"
	"palantir-backend/pkg/utils"
)

// GraphHandler handles graph projection and maintenance HTTP requests
type GraphHandler struct {
	service *services.MemoryService
	errors  *pkgerrors.ErrorHandler
	logger  *zap.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(service *services.MemoryService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{
		service: service,
		errors:  errorHandler,
		logger:  logger,
	}
}

// GraphResponse is the owner's graph projection
type GraphResponse struct {
	Nodes []ItemResponse `json:"nodes"`
	Edges []EdgeResponse `json:"edges"`
}

// RecalculateRequest carries the new similarity threshold
type RecalculateRequest struct {
	Threshold float64 `json:"threshold" validate:"required,gt=0,lt=1"`
}

// RecalculateResponse reports the rebuilt edge set
type RecalculateResponse struct {
	Threshold float64        `json:"threshold"`
	Edges     []EdgeResponse `json:"edges"`
}

// GetGraph handles GET /memory/graph
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerIDFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	graph, err := h.service.GetGraph(r.Context(), ownerID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	response := GraphResponse{
		Nodes: make([]ItemResponse, 0, len(graph.Nodes)),
		Edges: make([]EdgeResponse, 0, len(graph.Edges)),
	}
	for _, node := range graph.Nodes {
		response.Nodes = append(response.Nodes, toItemResponse(node))
	}
	for _, edge := range graph.Edges {
		response.Edges = append(response.Edges, toEdgeResponse(edge))
	}

	common.RespondJSON(w, http.StatusOK, response)
}

// Analyze handles GET /memory/analyze
func (h *GraphHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerIDFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	threshold, err := parseThresholdQuery(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result, err := h.service.AnalyzeAllPairs(r.Context(), ownerID, threshold)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// Recalculate handles POST /memory/recalculate
func (h *GraphHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	ownerID, err := common.OwnerIDFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req RecalculateRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}

	edges, err := h.service.Recalculate(r.Context(), ownerID, req.Threshold)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	response := RecalculateResponse{
		Threshold: req.Threshold,
		Edges:     make([]EdgeResponse, 0, len(edges)),
	}
	for _, edge := range edges {
		response.Edges = append(response.Edges, toEdgeResponse(edge))
	}

	common.RespondJSON(w, http.StatusOK, response)
}
