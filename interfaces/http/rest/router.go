package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"palantir-backend/application/services"
	"palantir-backend/interfaces/http/rest/handlers"
	"palantir-backend/interfaces/http/rest/middleware"
	pkgerrors "palantir-backend/pkg/errors"
)

// DefaultOwnerID scopes requests that carry no X-Owner-ID header
const DefaultOwnerID = "demo-user"

// Router creates and configures the HTTP router
type Router struct {
	service      *services.MemoryService
	errorHandler *pkgerrors.ErrorHandler
	logger       *zap.Logger
	enableCORS   bool
}

// NewRouter creates a new router instance
func NewRouter(
	service *services.MemoryService,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
	enableCORS bool,
) *Router {
	return &Router{
		service:      service,
		errorHandler: errorHandler,
		logger:       logger,
		enableCORS:   enableCORS,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-Owner-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Owner(DefaultOwnerID))

		r.Route("/memory", func(r chi.Router) {
			memoryHandler := handlers.NewMemoryHandler(rt.service, rt.errorHandler, rt.logger)
			graphHandler := handlers.NewGraphHandler(rt.service, rt.errorHandler, rt.logger)

			r.Post("/clip", memoryHandler.Clip)
			r.Get("/items", memoryHandler.ListItems)
			r.Delete("/items/{itemID}", memoryHandler.DeleteItem)
			r.Post("/items/{itemID}/note", memoryHandler.AttachNote)
			r.Post("/items/{itemID}/embedding", memoryHandler.BackfillEmbedding)

			r.Get("/graph", graphHandler.GetGraph)
			r.Get("/analyze", graphHandler.Analyze)
			r.Post("/recalculate", graphHandler.Recalculate)
		})
	})

	return router
}

// healthCheck reports process liveness
func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck reports whether the service can take traffic
func (rt *Router) readinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
