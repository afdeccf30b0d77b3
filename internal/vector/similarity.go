// Package vector provides word-keyed embedding tables and cosine ranking over them.
package vector

import "gonum.org/v1/gonum/blas/blas32"

func blasVec(x []float32) blas32.Vector {
	return blas32.Vector{N: len(x), Inc: 1, Data: x}
}

// InnerProduct returns the inner product of two equal-length vectors.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return float64(blas32.Dot(blasVec(a), blasVec(b)))
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	if len(x) == 0 {
		return 0
	}
	return float64(blas32.Nrm2(blasVec(x)))
}

// Cosine returns the cosine similarity of a and b. A zero vector has similarity 0 with everything.
func Cosine(a, b []float32) float64 {
	na, nb := L2Norm(a), L2Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return InnerProduct(a, b) / (na * nb)
}
