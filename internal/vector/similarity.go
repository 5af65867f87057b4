package vector

import "math"

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// AngularDistance returns sqrt(2 - 2cos(a, b)), the Euclidean distance between the
// normalized vectors. It is 0 for identical directions and 2 for opposite ones.
// A zero vector is at distance sqrt(2) from everything.
func AngularDistance(a, b []float32) float64 {
	pp := InnerProduct(a, a)
	qq := InnerProduct(b, b)
	pq := InnerProduct(a, b)
	d := 2.0
	if ppqq := pp * qq; ppqq > 0 {
		d = 2.0 - 2.0*pq/math.Sqrt(ppqq)
	}
	return math.Sqrt(math.Max(d, 0))
}
