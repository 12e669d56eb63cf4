// Package milp holds the solver-independent intermediate model: typed
// variables, linear constraint rows and a minimization objective,
// assembled by the planners and handed opaquely to a backend. Nothing
// in here knows how the model gets solved.
package milp

import "fmt"

type Var int

type VarKind int

const (
	CONTINUOUS VarKind = iota
	BINARY
)

type varInfo struct {
	name string
	kind VarKind
}

type Term struct {
	Var  Var
	Coef float64
}

// Expr is a linear expression Σ coef·var + Const. The zero value is
// the empty expression.
type Expr struct {
	Terms []Term
	Const float64
}

func (e *Expr) Add(v Var, coef float64) {
	if coef == 0 {
		return
	}
	e.Terms = append(e.Terms, Term{Var: v, Coef: coef})
}

func (e *Expr) AddConst(c float64) {
	e.Const += c
}

func (e *Expr) AddExpr(o Expr) {
	e.Terms = append(e.Terms, o.Terms...)
	e.Const += o.Const
}

// Eval substitutes variable values into the expression.
func (e Expr) Eval(values []float64) float64 {
	ret := e.Const
	for _, term := range e.Terms {
		ret += term.Coef * values[term.Var]
	}

	return ret
}

type Sense int

const (
	LE Sense = iota
	GE
	EQ
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case GE:
		return ">="
	case EQ:
		return "="
	}

	return "?"
}

type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	Rhs   float64
}

type Model struct {
	vars        []varInfo
	Constraints []Constraint
	Objective   Expr
}

func NewModel() *Model {
	return &Model{}
}

func (m *Model) Binary(name string) Var {
	m.vars = append(m.vars, varInfo{name: name, kind: BINARY})
	return Var(len(m.vars) - 1)
}

func (m *Model) Continuous(name string) Var {
	m.vars = append(m.vars, varInfo{name: name, kind: CONTINUOUS})
	return Var(len(m.vars) - 1)
}

func (m *Model) NumVars() int {
	return len(m.vars)
}

func (m *Model) Kind(v Var) VarKind {
	return m.vars[v].kind
}

func (m *Model) Name(v Var) string {
	return m.vars[v].name
}

func (m *Model) AddConstraint(expr Expr, sense Sense, rhs float64, name string) {
	m.Constraints = append(m.Constraints, Constraint{
		Name:  name,
		Expr:  expr,
		Sense: sense,
		Rhs:   rhs,
	})
}

// Fix pins a variable to a constant value.
func (m *Model) Fix(v Var, value float64, name string) {
	var expr Expr
	expr.Add(v, 1)
	m.AddConstraint(expr, EQ, value, name)
}

// MarkInfeasible injects a row no assignment can satisfy, used when
// fixed-mode substitution already contradicts a rule before solving.
func (m *Model) MarkInfeasible(name string) {
	m.AddConstraint(Expr{}, LE, -1, name)
}

func (m *Model) Minimize(expr Expr) {
	m.Objective = expr
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s: %d terms %s %g", c.Name, len(c.Expr.Terms), c.Sense, c.Rhs)
}
