package vector

import "fmt"

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeAnnoy is the angular random-projection forest. Approximate, sublinear queries.
	IndexTypeAnnoy IndexType = "annoy"
	// IndexTypeFlat is exact brute-force search. Good for small collections (<10k vectors).
	IndexTypeFlat IndexType = "flat"
)

// NewBuilder returns a builder for the given index type.
// Supported types: "annoy" (default), "flat". cfg is ignored by "flat".
func NewBuilder(indexType string, cfg ForestConfig) (Builder, error) {
	switch IndexType(indexType) {
	case IndexTypeAnnoy, "":
		return NewForestBuilder(cfg), nil
	case IndexTypeFlat:
		return NewFlatBuilder(), nil
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: annoy, flat)", indexType)
	}
}
