package di

import (
	"io"

	"go.uber.org/zap"

	"palantir-backend/application/ports"
	"palantir-backend/application/services"
	"palantir-backend/infrastructure/config"
	pkgerrors "palantir-backend/pkg/errors"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	Store         ports.MemoryStore
	Embedder      ports.EmbeddingProvider
	GraphService  *services.GraphService
	MemoryService *services.MemoryService
	ErrorHandler  *pkgerrors.ErrorHandler
}

// Close releases resources held by the container
func (c *Container) Close() error {
	if closer, ok := c.Store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
