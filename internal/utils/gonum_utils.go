package utils

import "gonum.org/v1/gonum/mat"

func SAddVec(a, b *mat.VecDense) {
	a.AddVec(a, b)
}

func ScaleVec(s float64, a *mat.VecDense) *mat.VecDense {
	ret := mat.NewVecDense(a.Len(), nil)
	ret.ScaleVec(s, a)

	return ret
}

// LEThanEps is a componentwise <= with a per-component slack, used when
// comparing recomputed utilization against solver output that carries
// numerical tolerance.
func LEThanEps(a, b *mat.VecDense, eps float64) bool {
	if a.Len() != b.Len() {
		panic("Two vectors should have the same length.")
	}

	for i := 0; i < a.Len(); i += 1 {
		if a.AtVec(i) > b.AtVec(i)+eps {
			return false
		}
	}

	return true
}
