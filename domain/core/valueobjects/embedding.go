package valueobjects

// Embedding is a value object wrapping a fixed-length vector representation
// of an item's text. An item created while the provider was unavailable
// carries the zero Embedding until it is backfilled.
type Embedding struct {
	values []float64
}

// NewEmbedding creates an Embedding from a raw vector, copying the input
func NewEmbedding(values []float64) Embedding {
	if len(values) == 0 {
		return Embedding{}
	}
	v := make([]float64, len(values))
	copy(v, values)
	return Embedding{values: v}
}

// Values returns a copy of the underlying vector
func (e Embedding) Values() []float64 {
	if e.values == nil {
		return nil
	}
	v := make([]float64, len(e.values))
	copy(v, e.values)
	return v
}

// Dim returns the number of dimensions
func (e Embedding) Dim() int {
	return len(e.values)
}

// IsZero checks if no vector is attached
func (e Embedding) IsZero() bool {
	return len(e.values) == 0
}
