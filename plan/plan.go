// Package plan assembles margin-bounded assignment models from a
// dataset, runs them through a MILP backend and decodes the solved
// variables back into job/node placements, relocation lists and cost
// breakdowns.
package plan

import (
	"context"
	"fmt"
	"time"

	"github.com/nfvsched/replan/internal/model"
	"github.com/nfvsched/replan/internal/timeline"
	"github.com/nfvsched/replan/logging"
	"github.com/nfvsched/replan/milp"
)

var log = logging.Get()

// Session binds an immutable dataset, its temporal capacity index and
// a backend. Decision variables live only inside a single Solve call;
// no state crosses solve boundaries.
type Session struct {
	ds      *model.Dataset
	idx     *timeline.Index
	backend milp.Backend
}

func NewSession(ds *model.Dataset, backend milp.Backend) *Session {
	if backend == nil {
		backend = milp.NewBranchBound()
	}

	return &Session{
		ds:      ds,
		idx:     timeline.New(ds),
		backend: backend,
	}
}

func (s *Session) Dataset() *model.Dataset {
	return s.ds
}

func (s *Session) Index() *timeline.Index {
	return s.idx
}

// Solve runs one (mode, margin) solve under the given wall-clock
// budget and returns exactly one terminal outcome.
func (s *Session) Solve(ctx context.Context, mode model.Mode, margin float64, budget time.Duration) *model.Outcome {
	outcome := &model.Outcome{
		Mode:   mode,
		ModeS:  mode.String(),
		Margin: margin,
	}

	if margin <= 0 || margin > 1 {
		outcome.Status = model.FAILED
		outcome.Reason = fmt.Sprintf("margin %g is outside (0, 1]", margin)
		return outcome
	}

	// Built.
	m, vars := buildModel(s.ds, s.idx, mode, margin)
	log.Debug().Msgf(
		"built %s model at margin %g: %d variables, %d constraints",
		mode, margin, m.NumVars(), len(m.Constraints),
	)

	solveCtx := ctx
	if budget > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	// Solving: a synchronous blocking call into the backend.
	started := time.Now()
	sol := s.backend.Solve(solveCtx, m)
	outcome.Runtime = time.Since(started)

	switch sol.Status {
	case milp.OPTIMAL, milp.FEASIBLE:
		if err := s.extract(outcome, vars, sol, mode, margin); err != nil {
			log.Err(err).Msgf("solution rejected for %s at margin %g", mode, margin)
			outcome.Status = model.FAILED
			outcome.Reason = err.Error()
			return outcome
		}
		outcome.Status = model.SOLVED
	case milp.INFEASIBLE:
		outcome.Status = model.INFEASIBLE
	case milp.TIMEOUT:
		outcome.Status = model.TIMED_OUT
		outcome.Reason = sol.Reason
	default:
		outcome.Status = model.FAILED
		outcome.Reason = sol.Reason
	}

	log.Info().Msgf(
		"%s margin=%.3f -> %s total=%g in %s",
		mode, margin, outcome.Status, outcome.Cost.Total, outcome.Runtime,
	)

	return outcome
}
