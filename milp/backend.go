package milp

import (
	"context"
	"fmt"
)

// Status is the normalized five-way outcome of a backend run. Backend
// implementations must map their native status vocabulary onto it;
// nothing downstream may inspect backend-specific codes.
type Status int

const (
	// OPTIMAL: proven optimal integer solution.
	OPTIMAL Status = iota
	// FEASIBLE: integer solution within the backend's relative gap,
	// global optimality not certified. Callers treat it as OPTIMAL.
	FEASIBLE
	// INFEASIBLE: proven to have no solution.
	INFEASIBLE
	// TIMEOUT: budget exhausted without a proof either way.
	TIMEOUT
	// ERROR: numerical or structural failure unrelated to feasibility.
	ERROR
)

func (s Status) String() string {
	switch s {
	case OPTIMAL:
		return "optimal"
	case FEASIBLE:
		return "feasible"
	case INFEASIBLE:
		return "infeasible"
	case TIMEOUT:
		return "timeout"
	case ERROR:
		return "error"
	}

	return fmt.Sprintf("status(%d)", int(s))
}

// Success reports whether the solution carries a usable assignment.
func (s Status) Success() bool {
	return s == OPTIMAL || s == FEASIBLE
}

type Solution struct {
	Status    Status
	Objective float64
	// Values holds one entry per model variable; nil unless Success.
	Values []float64
	// Gap is the relative optimality gap of the incumbent, zero when
	// optimality is proven.
	Gap    float64
	Reason string
}

// Backend solves one model under the deadline carried by ctx. A
// backend keeps no state between calls.
type Backend interface {
	Solve(ctx context.Context, m *Model) Solution
}
