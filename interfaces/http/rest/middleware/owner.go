package middleware

import (
	"net/http"

	"palantir-backend/pkg/common"
)

// Owner resolves the owner scope for a request from the X-Owner-ID header.
// Authentication is handled outside this service; requests without the
// header fall back to the configured default owner, matching the reader
// app's single demo user.
func Owner(defaultOwnerID string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ownerID := r.Header.Get("X-Owner-ID")
			if ownerID == "" {
				ownerID = defaultOwnerID
			}

			ctx := common.WithOwnerID(r.Context(), ownerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
