package utils

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

func ToString(v *mat.VecDense) string {
	parts := make([]string, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		parts = append(parts, fmt.Sprintf("%g", v.AtVec(i)))
	}

	return "(" + strings.Join(parts, ", ") + ")"
}
