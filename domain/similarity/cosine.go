// Package similarity computes cosine similarity between embedding vectors.
// It is the only place pairwise scores are produced; both the incremental
// graph maintenance on insert and the full-recompute diagnostics go
// through Cosine.
package similarity

import (
	"fmt"
	"math"

	pkgerrors "palantir-backend/pkg/errors"
)

// NewDimensionMismatchError reports two vectors of incompatible length
func NewDimensionMismatchError(lenA, lenB int) *pkgerrors.AppError {
	return pkgerrors.NewValidationError(
		fmt.Sprintf("embedding dimension mismatch: %d vs %d", lenA, lenB),
	).WithCode("DIMENSION_MISMATCH")
}

// IsDimensionMismatch checks whether err is a dimension mismatch
func IsDimensionMismatch(err error) bool {
	appErr := pkgerrors.GetAppError(err)
	return appErr != nil && appErr.Code == "DIMENSION_MISMATCH"
}

// Cosine returns the cosine similarity of two equal-length vectors: the dot
// product divided by the product of their Euclidean norms. The result is in
// [-1, 1]. A zero-norm vector yields 0 rather than a division by zero; that
// is a defined degenerate case, not an error.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, NewDimensionMismatchError(len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
