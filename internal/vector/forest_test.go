package vector

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/hyperjump/docqa/internal/errs"
)

func randomUnitVectors(n, dim int, seed uint64) [][]float32 {
	r := rand.New(rand.NewPCG(seed, seed+1))
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(r.NormFloat64())
		}
		out[i] = unit(v)
	}
	return out
}

func TestForest_SelfRetrieval(t *testing.T) {
	ctx := context.Background()
	vecs := randomUnitVectors(500, 16, 7)
	idx, err := NewForestBuilder(ForestConfig{Trees: 10, LeafSize: 8, Seed: 1}).Build(ctx, vecs)
	if err != nil {
		t.Fatal(err)
	}
	hits := 0
	for i, v := range vecs {
		res, err := idx.Search(ctx, v, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(res) == 1 && res[0].ID == i {
			hits++
		}
	}
	if recall := float64(hits) / float64(len(vecs)); recall < 0.95 {
		t.Errorf("self-retrieval recall %.3f, want >= 0.95", recall)
	}
}

func TestForest_SmallSetIsExact(t *testing.T) {
	ctx := context.Background()
	vecs := randomUnitVectors(30, 8, 3)
	forest, err := NewForestBuilder(ForestConfig{Seed: 9}).Build(ctx, vecs)
	if err != nil {
		t.Fatal(err)
	}
	flat, _ := NewFlatBuilder().Build(ctx, vecs)
	// 30 vectors with a default leaf size of dim+2=10 still need splits; compare top-5
	// against the exact answer using a generous candidate budget.
	query := randomUnitVectors(1, 8, 99)[0]
	want, _ := flat.Search(ctx, query, 5)
	got, err := forest.Search(ctx, query, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 30 {
		t.Fatalf("expected every vector to be reachable with k=N, got %d", len(got))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Errorf("rank %d: got id %d, want %d", i, got[i].ID, want[i].ID)
		}
	}
}

func TestForest_KLargerThanSize(t *testing.T) {
	ctx := context.Background()
	idx, _ := NewForestBuilder(ForestConfig{}).Build(ctx, [][]float32{{1, 0}, {0, 1}, {0.7071, 0.7071}})
	results, err := idx.Search(ctx, []float32{1, 0}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	wantOrder := []int{0, 2, 1}
	for i, r := range results {
		if r.ID != wantOrder[i] {
			t.Errorf("rank %d: got id %d, want %d", i, r.ID, wantOrder[i])
		}
		if i > 0 && results[i-1].Distance > r.Distance {
			t.Errorf("results not ascending at %d: %+v", i, results)
		}
	}
}

func TestForest_Empty(t *testing.T) {
	ctx := context.Background()
	idx, err := NewForestBuilder(ForestConfig{}).Build(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 0 {
		t.Errorf("Size=%d", idx.Size())
	}
	results, err := idx.Search(ctx, []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("empty index should not fail: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestForest_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	b := NewForestBuilder(ForestConfig{})
	if _, err := b.Build(ctx, [][]float32{{1, 0}, {1}}); !errors.Is(err, errs.ErrDimensionMismatch) {
		t.Errorf("Build: expected ErrDimensionMismatch, got %v", err)
	}
	idx, _ := b.Build(ctx, [][]float32{{1, 0}})
	if _, err := idx.Search(ctx, []float32{1, 0, 0}, 1); !errors.Is(err, errs.ErrDimensionMismatch) {
		t.Errorf("Search: expected ErrDimensionMismatch, got %v", err)
	}
}

func TestForest_Deterministic(t *testing.T) {
	ctx := context.Background()
	vecs := randomUnitVectors(200, 12, 11)
	cfg := ForestConfig{Trees: 5, LeafSize: 6, Seed: 42}
	a, _ := NewForestBuilder(cfg).Build(ctx, vecs)
	b, _ := NewForestBuilder(cfg).Build(ctx, vecs)
	query := randomUnitVectors(1, 12, 5)[0]

	ra, _ := a.Search(ctx, query, 10)
	rb, _ := b.Search(ctx, query, 10)
	again, _ := a.Search(ctx, query, 10)
	if len(ra) != len(rb) || len(ra) != len(again) {
		t.Fatalf("lengths differ: %d %d %d", len(ra), len(rb), len(again))
	}
	for i := range ra {
		if ra[i].ID != rb[i].ID || ra[i].ID != again[i].ID {
			t.Errorf("rank %d differs: %d %d %d", i, ra[i].ID, rb[i].ID, again[i].ID)
		}
	}
}

func TestForest_DuplicateVectors(t *testing.T) {
	ctx := context.Background()
	vecs := make([][]float32, 50)
	for i := range vecs {
		vecs[i] = []float32{1, 0, 0}
	}
	idx, err := NewForestBuilder(ForestConfig{LeafSize: 4, Seed: 2}).Build(ctx, vecs)
	if err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(ctx, []float32{1, 0, 0}, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 50 {
		t.Errorf("expected all duplicates to be reachable, got %d", len(results))
	}
}

func TestAngularDistance(t *testing.T) {
	if d := AngularDistance([]float32{1, 0}, []float32{2, 0}); d > 1e-6 {
		t.Errorf("same direction: got %f", d)
	}
	if d := AngularDistance([]float32{1, 0}, []float32{-1, 0}); d < 1.999 || d > 2.001 {
		t.Errorf("opposite: got %f", d)
	}
	if d := AngularDistance([]float32{0, 0}, []float32{1, 0}); d < 1.414 || d > 1.415 {
		t.Errorf("zero vector: got %f", d)
	}
}

func BenchmarkForest_Search(b *testing.B) {
	ctx := context.Background()
	vecs := randomUnitVectors(10000, 64, 1)
	idx, err := NewForestBuilder(ForestConfig{Seed: 1}).Build(ctx, vecs)
	if err != nil {
		b.Fatal(err)
	}
	query := randomUnitVectors(1, 64, 2)[0]
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, 5)
	}
}
