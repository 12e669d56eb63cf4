package milp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/emirpasic/gods/trees/binaryheap"
	"github.com/nfvsched/replan/logging"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

var log = logging.Get()

const (
	unfixed    = int8(-1)
	simplexTol = 1e-10
	pruneTol   = 1e-9
	// presolveTol pads feasibility checks on rows settled by
	// substitution before they reach the simplex.
	presolveTol = 1e-9
)

// BranchBound is an exact mixed-integer backend: best-first branch and
// bound over LP relaxations solved with gonum's simplex. Binary
// variables are branched by fixing; a substitution presolve propagates
// every fixing through the rows, so child relaxations shrink as the
// search descends.
type BranchBound struct {
	// RelativeGap is the gap at which an incumbent found before the
	// deadline is accepted as FEASIBLE instead of reporting TIMEOUT.
	RelativeGap float64
	// IntegerTol is the distance from an integer below which a
	// relaxation value counts as integral.
	IntegerTol float64
	// MaxNodes bounds the search tree; zero means unlimited.
	MaxNodes int
}

func NewBranchBound() *BranchBound {
	return &BranchBound{
		RelativeGap: 1e-4,
		IntegerTol:  1e-6,
	}
}

// searchNode is one open branch: the fixings defining it plus the
// relaxation solved when it was created, kept so popping it never
// re-runs the simplex.
type searchNode struct {
	fixed  []int8
	bound  float64
	values []float64
}

func (bb *BranchBound) Solve(ctx context.Context, m *Model) Solution {
	nodeComparator := func(a, b interface{}) int {
		nodeA := a.(*searchNode)
		nodeB := b.(*searchNode)

		if nodeA.bound < nodeB.bound {
			return -1
		}
		if nodeA.bound == nodeB.bound {
			return 0
		}
		return 1
	}
	open := binaryheap.NewWith(nodeComparator)

	var (
		incumbent      []float64
		incumbentValue = math.Inf(1)
		explored       int
	)

	// offer evaluates one set of fixings exactly once: integral
	// relaxations become the incumbent on the spot, fractional ones
	// enter the open list with their values kept for branching.
	offer := func(fixed []int8) error {
		values, bound, err := bb.relax(m, fixed)
		if err != nil {
			if errors.Is(err, lp.ErrInfeasible) {
				return nil
			}
			return err
		}
		if bound >= incumbentValue-pruneTol {
			return nil
		}
		if bb.branchVar(m, values) < 0 {
			incumbentValue = bound
			incumbent = values
			log.Debug().Msgf("incumbent %g after %d nodes", bound, explored)
			return nil
		}
		open.Push(&searchNode{fixed: fixed, bound: bound, values: values})
		return nil
	}

	rootFixed := make([]int8, m.NumVars())
	for i := range rootFixed {
		rootFixed[i] = unfixed
	}
	if err := offer(rootFixed); err != nil {
		return Solution{Status: ERROR, Reason: fmt.Sprintf("root relaxation: %v", err)}
	}

	finish := func(reason string) Solution {
		bestBound := math.Inf(1)
		if top, ok := open.Peek(); ok {
			bestBound = top.(*searchNode).bound
		}
		if incumbent != nil {
			gap := relativeGap(incumbentValue, bestBound)
			if gap <= bb.RelativeGap {
				return Solution{Status: FEASIBLE, Objective: incumbentValue, Values: incumbent, Gap: gap, Reason: reason}
			}
			return Solution{Status: TIMEOUT, Gap: gap, Reason: reason}
		}
		return Solution{Status: TIMEOUT, Reason: reason}
	}

	for !open.Empty() {
		if ctx.Err() != nil {
			return finish("time budget exhausted")
		}
		if bb.MaxNodes > 0 && explored >= bb.MaxNodes {
			return finish(fmt.Sprintf("node limit %d reached", bb.MaxNodes))
		}

		raw, _ := open.Pop()
		node := raw.(*searchNode)
		explored++

		// Best-first: once the best open bound cannot beat the
		// incumbent, the incumbent is proven optimal.
		if node.bound >= incumbentValue-pruneTol {
			break
		}

		pick := bb.branchVar(m, node.values)
		for _, branch := range []int8{1, 0} {
			// The deadline is re-checked per relaxation, not per
			// node: one simplex run is the most a budget overshoot
			// can cost.
			if ctx.Err() != nil {
				return finish("time budget exhausted")
			}

			childFixed := make([]int8, len(node.fixed))
			copy(childFixed, node.fixed)
			childFixed[pick] = branch

			if err := offer(childFixed); err != nil {
				return Solution{Status: ERROR, Reason: fmt.Sprintf("node relaxation: %v", err)}
			}
		}
	}

	if incumbent == nil {
		return Solution{Status: INFEASIBLE}
	}
	return Solution{Status: OPTIMAL, Objective: incumbentValue, Values: incumbent}
}

// branchVar picks the branching variable: among binaries still away
// from integrality, prefer the one carrying the most objective weight,
// so cost indicators get decided before the assignment mass they
// summarize. Returns -1 on an integral solution.
func (bb *BranchBound) branchVar(m *Model, values []float64) Var {
	objCoef := make([]float64, m.NumVars())
	for _, term := range m.Objective.Terms {
		objCoef[term.Var] += term.Coef
	}

	best := Var(-1)
	bestScore := 0.0
	for v := 0; v < m.NumVars(); v++ {
		if m.Kind(Var(v)) != BINARY {
			continue
		}
		dist := math.Abs(values[v] - math.Round(values[v]))
		if values[v] < -bb.IntegerTol || values[v] > 1+bb.IntegerTol {
			// Outside the unit box, which can happen when the box row
			// was left implied: always branch.
			dist = 1
		}
		if dist <= bb.IntegerTol {
			continue
		}
		score := dist * (1 + math.Abs(objCoef[v]))
		if score > bestScore {
			best = Var(v)
			bestScore = score
		}
	}

	return best
}

// presolve propagates forced values to a fixpoint before any LP is
// built: an equality row with one live variable pins it, and an
// equality or <= row whose live coefficients are all positive with
// nothing left on the right pins its members to zero. Fix rows and
// the assignment rows duplicating them collapse to verified constants
// here instead of reaching the simplex as rank-deficient pairs.
func presolve(m *Model, values []float64, settled []bool) error {
	settle := func(v Var, value float64) error {
		if value < -presolveTol {
			return lp.ErrInfeasible
		}
		if m.Kind(v) == BINARY && value > 1+presolveTol {
			return lp.ErrInfeasible
		}
		if value < 0 {
			value = 0
		}
		settled[v] = true
		values[v] = value
		return nil
	}

	liveVars := make([]Var, 0, 16)
	liveCoefs := make([]float64, 0, 16)

	for changed := true; changed; {
		changed = false
		for _, cons := range m.Constraints {
			if cons.Sense == GE {
				continue
			}

			rhs := cons.Rhs - cons.Expr.Const
			liveVars = liveVars[:0]
			liveCoefs = liveCoefs[:0]
			for _, term := range cons.Expr.Terms {
				if settled[term.Var] {
					rhs -= term.Coef * values[term.Var]
					continue
				}
				merged := false
				for i, v := range liveVars {
					if v == term.Var {
						liveCoefs[i] += term.Coef
						merged = true
						break
					}
				}
				if !merged {
					liveVars = append(liveVars, term.Var)
					liveCoefs = append(liveCoefs, term.Coef)
				}
			}

			kept := 0
			allPositive := true
			for i := range liveVars {
				if liveCoefs[i] == 0 {
					continue
				}
				liveVars[kept] = liveVars[i]
				liveCoefs[kept] = liveCoefs[i]
				if liveCoefs[kept] < 0 {
					allPositive = false
				}
				kept++
			}
			liveVars = liveVars[:kept]
			liveCoefs = liveCoefs[:kept]

			switch {
			case kept == 0:
				if cons.Sense == EQ && math.Abs(rhs) > presolveTol {
					return lp.ErrInfeasible
				}
				if cons.Sense == LE && rhs < -presolveTol {
					return lp.ErrInfeasible
				}
			case cons.Sense == EQ && kept == 1:
				if err := settle(liveVars[0], rhs/liveCoefs[0]); err != nil {
					return err
				}
				changed = true
			case allPositive && rhs < presolveTol:
				// Nothing left on the right forces every live variable
				// in the row to zero; below zero the row contradicts
				// their non-negativity.
				if rhs < -presolveTol {
					return lp.ErrInfeasible
				}
				for _, v := range liveVars {
					if err := settle(v, 0); err != nil {
						return err
					}
				}
				changed = true
			}
		}
	}

	return nil
}

// relax solves the LP relaxation of the model under the given variable
// fixings, after presolve has propagated them. Free binaries range over
// [0, 1], free continuous variables over [0, +inf). Returns the
// full-length value vector and the objective bound.
func (bb *BranchBound) relax(m *Model, fixed []int8) ([]float64, float64, error) {
	n := m.NumVars()

	values := make([]float64, n)
	settled := make([]bool, n)
	for v := 0; v < n; v++ {
		if fixed[v] != unfixed {
			settled[v] = true
			values[v] = float64(fixed[v])
		}
	}

	if err := presolve(m, values, settled); err != nil {
		return nil, 0, err
	}

	// A variable enters the LP only if it survived presolve and appears
	// in at least one constraint row; columns of zeros upset the
	// simplex.
	used := make([]bool, n)
	for _, cons := range m.Constraints {
		for _, term := range cons.Expr.Terms {
			if !settled[term.Var] {
				used[term.Var] = true
			}
		}
	}

	objCoef := make([]float64, n)
	for _, term := range m.Objective.Terms {
		objCoef[term.Var] += term.Coef
	}

	colOf := make([]int, n)
	cols := 0
	for v := 0; v < n; v++ {
		colOf[v] = -1
		switch {
		case settled[v]:
		case !used[v]:
			// Dangling variable: settle it by objective sign alone.
			if objCoef[v] < 0 {
				if m.Kind(Var(v)) != BINARY {
					return nil, 0, lp.ErrUnbounded
				}
				values[v] = 1
			}
		default:
			colOf[v] = cols
			cols++
		}
	}

	// An explicit x+s=1 row is only spent on binaries nothing else
	// caps at one: an all-positive equality row bounds its members
	// already, and a positive objective coefficient keeps the minimum
	// inside the unit box (stray vertices above one are branched on).
	needsBound := make([]bool, n)
	for v := 0; v < n; v++ {
		needsBound[v] = colOf[v] >= 0 && m.Kind(Var(v)) == BINARY && objCoef[v] <= 0
	}
	for _, cons := range m.Constraints {
		if cons.Sense != EQ {
			continue
		}
		rhs := cons.Rhs - cons.Expr.Const
		capped := true
		for _, term := range cons.Expr.Terms {
			if settled[term.Var] {
				rhs -= term.Coef * values[term.Var]
			} else if term.Coef <= 0 {
				capped = false
				break
			}
		}
		if !capped {
			continue
		}
		for _, term := range cons.Expr.Terms {
			if !settled[term.Var] && rhs <= term.Coef+presolveTol {
				needsBound[term.Var] = false
			}
		}
	}

	// Standard form rows: every surviving inequality gets a slack
	// column; duplicated equality rows are folded so the matrix keeps
	// full row rank.
	type row struct {
		coefs []float64
		rhs   float64
		slack int // 0 none (equality), +1 for <=, -1 for >=
	}
	rows := make([]row, 0, len(m.Constraints))
	seenEq := make(map[string]bool)

	for _, cons := range m.Constraints {
		coefs := make([]float64, cols)
		rhs := cons.Rhs - cons.Expr.Const
		empty := true
		for _, term := range cons.Expr.Terms {
			if col := colOf[term.Var]; col >= 0 {
				coefs[col] += term.Coef
				empty = false
			} else {
				rhs -= term.Coef * values[term.Var]
			}
		}

		if empty {
			// Fully settled row: verify it instead of solving it.
			switch cons.Sense {
			case LE:
				if rhs < -presolveTol {
					return nil, 0, lp.ErrInfeasible
				}
			case GE:
				if rhs > presolveTol {
					return nil, 0, lp.ErrInfeasible
				}
			case EQ:
				if math.Abs(rhs) > presolveTol {
					return nil, 0, lp.ErrInfeasible
				}
			}
			continue
		}

		switch cons.Sense {
		case LE:
			rows = append(rows, row{coefs: coefs, rhs: rhs, slack: 1})
		case GE:
			rows = append(rows, row{coefs: coefs, rhs: rhs, slack: -1})
		case EQ:
			key := eqKey(coefs, rhs)
			if seenEq[key] {
				continue
			}
			seenEq[key] = true
			rows = append(rows, row{coefs: coefs, rhs: rhs, slack: 0})
		}
	}

	if cols == 0 {
		return values, m.Objective.Eval(values), nil
	}

	bounds := 0
	for v := 0; v < n; v++ {
		if needsBound[v] {
			bounds++
		}
	}

	slacks := 0
	for _, r := range rows {
		if r.slack != 0 {
			slacks++
		}
	}

	width := cols + slacks + bounds
	height := len(rows) + bounds
	a := mat.NewDense(height, width, nil)
	b := make([]float64, height)
	c := make([]float64, width)

	for v := 0; v < n; v++ {
		if col := colOf[v]; col >= 0 {
			c[col] = objCoef[v]
		}
	}

	slackCol := cols
	for i, r := range rows {
		for col, coef := range r.coefs {
			if coef != 0 {
				a.Set(i, col, coef)
			}
		}
		b[i] = r.rhs
		if r.slack != 0 {
			a.Set(i, slackCol, float64(r.slack))
			slackCol++
		}
	}

	boundRow := len(rows)
	for v := 0; v < n; v++ {
		if !needsBound[v] {
			continue
		}
		a.Set(boundRow, colOf[v], 1)
		a.Set(boundRow, slackCol, 1)
		b[boundRow] = 1
		boundRow++
		slackCol++
	}

	_, optX, err := lp.Simplex(c, a, b, simplexTol, nil)
	if err != nil {
		return nil, 0, err
	}

	for v := 0; v < n; v++ {
		if col := colOf[v]; col >= 0 {
			values[v] = optX[col]
		}
	}

	return values, m.Objective.Eval(values), nil
}

func eqKey(coefs []float64, rhs float64) string {
	var key strings.Builder
	fmt.Fprintf(&key, "%.12g", rhs)
	for col, coef := range coefs {
		if coef != 0 {
			fmt.Fprintf(&key, "|%d:%.12g", col, coef)
		}
	}
	return key.String()
}

func relativeGap(incumbent, bound float64) float64 {
	if math.IsInf(bound, 1) {
		// Nothing open: the incumbent is exact.
		return 0
	}
	return (incumbent - bound) / math.Max(1, math.Abs(incumbent))
}
