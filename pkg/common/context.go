package common

import (
	"context"

	pkgerrors "palantir-backend/pkg/errors"
)

type contextKey string

const ownerIDKey contextKey = "owner_id"

// WithOwnerID returns a context carrying the requesting owner's identifier
func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerIDKey, ownerID)
}

// OwnerIDFromContext extracts the owner identifier set by the owner middleware
func OwnerIDFromContext(ctx context.Context) (string, error) {
	ownerID, ok := ctx.Value(ownerIDKey).(string)
	if !ok || ownerID == "" {
		return "", pkgerrors.NewValidationError("owner ID missing from request context")
	}
	return ownerID, nil
}
