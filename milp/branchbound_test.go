package milp

import (
	"context"
	"math"
	"testing"
)

func solve(t *testing.T, m *Model) Solution {
	t.Helper()
	return NewBranchBound().Solve(context.Background(), m)
}

func TestLinearRelaxationOnly(t *testing.T) {
	m := NewModel()
	x := m.Continuous("x")

	var lower Expr
	lower.Add(x, 1)
	m.AddConstraint(lower, GE, 2.5, "lower")

	var obj Expr
	obj.Add(x, 1)
	m.Minimize(obj)

	sol := solve(t, m)
	if sol.Status != OPTIMAL {
		t.Fatalf("expected optimal, got %s (%s)", sol.Status, sol.Reason)
	}
	if math.Abs(sol.Objective-2.5) > 1e-6 {
		t.Errorf("expected objective 2.5, got %g", sol.Objective)
	}
}

func TestKnapsackNeedsBranching(t *testing.T) {
	m := NewModel()
	x1 := m.Binary("x1")
	x2 := m.Binary("x2")
	x3 := m.Binary("x3")

	var weight Expr
	weight.Add(x1, 3)
	weight.Add(x2, 2)
	weight.Add(x3, 2)
	m.AddConstraint(weight, LE, 4, "weight")

	// Maximizing 8/5/5 value, so the relaxation takes the dense item
	// plus a fraction and branching has to discover the 5+5 pack.
	var obj Expr
	obj.Add(x1, -8)
	obj.Add(x2, -5)
	obj.Add(x3, -5)
	m.Minimize(obj)

	sol := solve(t, m)
	if !sol.Status.Success() {
		t.Fatalf("expected a solution, got %s (%s)", sol.Status, sol.Reason)
	}
	if math.Abs(sol.Objective-(-10)) > 1e-6 {
		t.Fatalf("expected objective -10, got %g", sol.Objective)
	}
	if sol.Values[x1] > 0.5 {
		t.Errorf("expected the heavy item out of the pack")
	}
	if sol.Values[x2] < 0.5 || sol.Values[x3] < 0.5 {
		t.Errorf("expected both light items in the pack, got %v", sol.Values)
	}
}

func TestAssignmentWithEqualities(t *testing.T) {
	m := NewModel()
	a1 := m.Binary("a1")
	a2 := m.Binary("a2")
	b1 := m.Binary("b1")
	b2 := m.Binary("b2")

	var rowA Expr
	rowA.Add(a1, 1)
	rowA.Add(a2, 1)
	m.AddConstraint(rowA, EQ, 1, "assign_a")

	var rowB Expr
	rowB.Add(b1, 1)
	rowB.Add(b2, 1)
	m.AddConstraint(rowB, EQ, 1, "assign_b")

	var slot1 Expr
	slot1.Add(a1, 1)
	slot1.Add(b1, 1)
	m.AddConstraint(slot1, LE, 1, "slot1")

	var slot2 Expr
	slot2.Add(a2, 1)
	slot2.Add(b2, 1)
	m.AddConstraint(slot2, LE, 1, "slot2")

	var obj Expr
	obj.Add(a1, 4)
	obj.Add(a2, 1)
	obj.Add(b1, 2)
	obj.Add(b2, 3)
	m.Minimize(obj)

	sol := solve(t, m)
	if !sol.Status.Success() {
		t.Fatalf("expected a solution, got %s (%s)", sol.Status, sol.Reason)
	}
	if math.Abs(sol.Objective-3) > 1e-6 {
		t.Errorf("expected objective 3, got %g", sol.Objective)
	}
	if sol.Values[a2] < 0.5 || sol.Values[b1] < 0.5 {
		t.Errorf("expected the cheap matching a2/b1, got %v", sol.Values)
	}
}

func TestContradictionIsInfeasible(t *testing.T) {
	m := NewModel()
	x := m.Binary("x")
	y := m.Binary("y")

	var sum Expr
	sum.Add(x, 1)
	sum.Add(y, 1)
	m.AddConstraint(sum, LE, 1, "at_most_one")
	m.Fix(x, 1, "force_x")
	m.Fix(y, 1, "force_y")

	var obj Expr
	obj.Add(x, 1)
	m.Minimize(obj)

	sol := solve(t, m)
	if sol.Status != INFEASIBLE {
		t.Fatalf("expected infeasible, got %s", sol.Status)
	}
}

// A Fix row duplicating a one-variable assignment row used to reach
// the simplex as a rank-deficient pair and blow up the whole solve.
// Presolve has to settle both copies, and report a clean INFEASIBLE
// when the settled values break another row.
func TestDependentEqualityRows(t *testing.T) {
	feasible := NewModel()
	y := feasible.Binary("y")

	var assign Expr
	assign.Add(y, 1)
	feasible.AddConstraint(assign, EQ, 1, "assign")
	feasible.Fix(y, 1, "pin")

	var obj Expr
	obj.Add(y, 1)
	feasible.Minimize(obj)

	sol := solve(t, feasible)
	if sol.Status != OPTIMAL {
		t.Fatalf("expected optimal, got %s (%s)", sol.Status, sol.Reason)
	}
	if math.Abs(sol.Objective-1) > 1e-9 {
		t.Errorf("expected objective 1, got %g", sol.Objective)
	}

	overloaded := NewModel()
	z := overloaded.Binary("z")

	var assignZ Expr
	assignZ.Add(z, 1)
	overloaded.AddConstraint(assignZ, EQ, 1, "assign")
	overloaded.Fix(z, 1, "pin")

	var ceiling Expr
	ceiling.Add(z, 2)
	overloaded.AddConstraint(ceiling, LE, 1, "ceiling")

	var objZ Expr
	objZ.Add(z, 1)
	overloaded.Minimize(objZ)

	sol = solve(t, overloaded)
	if sol.Status != INFEASIBLE {
		t.Fatalf("expected infeasible, got %s (%s)", sol.Status, sol.Reason)
	}
}

func TestPresolvePropagation(t *testing.T) {
	m := NewModel()
	a := m.Binary("a")
	b := m.Binary("b")
	c := m.Binary("c")

	var assign Expr
	assign.Add(a, 1)
	assign.Add(b, 1)
	assign.Add(c, 1)
	m.AddConstraint(assign, EQ, 1, "assign")
	m.Fix(a, 1, "pin")

	var obj Expr
	obj.Add(b, 3)
	obj.Add(c, 5)
	m.Minimize(obj)

	sol := solve(t, m)
	if sol.Status != OPTIMAL {
		t.Fatalf("expected optimal, got %s (%s)", sol.Status, sol.Reason)
	}
	if math.Abs(sol.Objective) > 1e-9 {
		t.Errorf("expected objective 0, got %g", sol.Objective)
	}
	if sol.Values[a] < 0.5 || sol.Values[b] > 0.5 || sol.Values[c] > 0.5 {
		t.Errorf("expected a=1, b=c=0, got %v", sol.Values)
	}
}

func TestMarkInfeasible(t *testing.T) {
	m := NewModel()
	x := m.Binary("x")

	var obj Expr
	obj.Add(x, 1)
	m.Minimize(obj)
	m.MarkInfeasible("poisoned")

	sol := solve(t, m)
	if sol.Status != INFEASIBLE {
		t.Fatalf("expected infeasible, got %s", sol.Status)
	}
}

func TestExpiredDeadlineIsTimeout(t *testing.T) {
	m := NewModel()
	x1 := m.Binary("x1")
	x2 := m.Binary("x2")
	x3 := m.Binary("x3")

	var weight Expr
	weight.Add(x1, 3)
	weight.Add(x2, 2)
	weight.Add(x3, 2)
	m.AddConstraint(weight, LE, 4, "weight")

	var obj Expr
	obj.Add(x1, -8)
	obj.Add(x2, -5)
	obj.Add(x3, -5)
	m.Minimize(obj)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sol := NewBranchBound().Solve(ctx, m)
	if sol.Status != TIMEOUT {
		t.Fatalf("expected timeout, got %s", sol.Status)
	}
}

func TestNodeLimitIsTimeout(t *testing.T) {
	m := NewModel()
	x1 := m.Binary("x1")
	x2 := m.Binary("x2")
	x3 := m.Binary("x3")

	var weight Expr
	weight.Add(x1, 3)
	weight.Add(x2, 2)
	weight.Add(x3, 2)
	m.AddConstraint(weight, LE, 4, "weight")

	var obj Expr
	obj.Add(x1, -8)
	obj.Add(x2, -5)
	obj.Add(x3, -5)
	m.Minimize(obj)

	bb := NewBranchBound()
	bb.MaxNodes = 1

	sol := bb.Solve(context.Background(), m)
	if sol.Status != TIMEOUT {
		t.Fatalf("expected timeout, got %s (%s)", sol.Status, sol.Reason)
	}
	if sol.Reason == "" {
		t.Errorf("expected a reason on the node limit path")
	}
}

func TestRelativeGap(t *testing.T) {
	if gap := relativeGap(10, math.Inf(-1)); !math.IsInf(gap, 1) {
		t.Errorf("expected infinite gap against an unbounded open node, got %g", gap)
	}
	if gap := relativeGap(10, math.Inf(1)); gap != 0 {
		t.Errorf("expected zero gap with nothing open, got %g", gap)
	}
	if gap := relativeGap(10, 9); math.Abs(gap-0.1) > 1e-9 {
		t.Errorf("expected gap 0.1, got %g", gap)
	}
}

func TestExprEval(t *testing.T) {
	m := NewModel()
	x := m.Binary("x")
	y := m.Continuous("y")

	var e Expr
	e.Add(x, 2)
	e.Add(y, -1)
	e.AddConst(5)
	e.Add(x, 0)

	if len(e.Terms) != 2 {
		t.Errorf("zero coefficient should not produce a term")
	}

	values := make([]float64, m.NumVars())
	values[x] = 1
	values[y] = 3
	if got := e.Eval(values); math.Abs(got-4) > 1e-12 {
		t.Errorf("expected 4, got %g", got)
	}
}
