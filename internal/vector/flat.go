package vector

import (
	"context"
	"sort"
)

// FlatBuilder builds exact brute-force indexes. Suitable for tests and small
// collections where exact results matter more than query time.
type FlatBuilder struct{}

// NewFlatBuilder returns a builder for exact indexes.
func NewFlatBuilder() *FlatBuilder {
	return &FlatBuilder{}
}

// Type returns the index type identifier.
func (b *FlatBuilder) Type() string {
	return string(IndexTypeFlat)
}

// Build copies vectors into a new FlatIndex.
func (b *FlatBuilder) Build(ctx context.Context, vectors [][]float32) (Index, error) {
	dim, err := checkDimensions(vectors)
	if err != nil {
		return nil, err
	}
	idx := &FlatIndex{dimensions: dim, vectors: make([][]float32, len(vectors))}
	for i, v := range vectors {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		vec := make([]float32, dim)
		copy(vec, v)
		idx.vectors[i] = vec
	}
	return idx, nil
}

// FlatIndex is an exact index scoring every vector on each query.
type FlatIndex struct {
	dimensions int
	vectors    [][]float32
}

// Type returns the index type identifier.
func (f *FlatIndex) Type() string {
	return string(IndexTypeFlat)
}

// Search returns the k closest vectors by angular distance; ties are broken by id.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if k <= 0 || len(f.vectors) == 0 {
		return nil, nil
	}
	if err := checkQuery(query, f.dimensions); err != nil {
		return nil, err
	}
	scores := make([]Result, len(f.vectors))
	for i, vec := range f.vectors {
		scores[i] = Result{ID: i, Distance: AngularDistance(query, vec)}
	}
	sortResults(scores)
	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

// Size returns the number of vectors in the index.
func (f *FlatIndex) Size() int {
	return len(f.vectors)
}

// Dimensions returns the vector dimension, 0 for an empty index.
func (f *FlatIndex) Dimensions() int {
	return f.dimensions
}

func sortResults(rs []Result) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Distance != rs[j].Distance {
			return rs[i].Distance < rs[j].Distance
		}
		return rs[i].ID < rs[j].ID
	})
}
