package plan

import (
	"context"
	"time"

	"github.com/nfvsched/replan/internal/model"
	"github.com/nfvsched/replan/statistics"
)

// stepEps guards the scan loop against float drift so the stop margin
// itself is still visited.
const stepEps = 1e-9

type ScanSpec struct {
	Start float64
	Stop  float64
	Step  float64
}

// Scan walks margins downward from Start to Stop in Step decrements,
// solving at every point and recording the outcome. Monotonicity makes
// a linear scan the right tool: each intermediate cost point is useful
// output, and the first infeasible point terminates the search with
// the last feasible margin as the mode's minimum feasible margin.
func (s *Session) Scan(ctx context.Context, mode model.Mode, spec ScanSpec, budget time.Duration) *model.ScanReport {
	report := &model.ScanReport{
		Mode:  mode,
		ModeS: mode.String(),
	}

	lastCost := 0.0
	for margin := spec.Start; margin >= spec.Stop-stepEps; margin -= spec.Step {
		outcome := s.Solve(ctx, mode, margin, budget)

		report.Points = append(report.Points, model.ScanPoint{
			Margin:  margin,
			Status:  outcome.Status,
			Cost:    outcome.Cost,
			Runtime: outcome.Runtime,
		})
		statistics.Change(outcome.Status.String(), 1)

		if outcome.Status == model.INFEASIBLE {
			break
		}
		if !outcome.Feasible() {
			// A timeout or backend failure poisons one margin point,
			// not the whole scan; only proven infeasibility ends the
			// search under monotonicity.
			continue
		}

		// Tightening the ceiling can only cost more. A drop means the
		// model is non-monotonic, which is a modeling bug worth
		// surfacing rather than silently reporting.
		if len(report.Points) > 1 && outcome.Cost.Total < lastCost-1e-9 {
			log.Warn().Msgf(
				"non-monotonic cost for %s: %g at margin %.3f after %g at a looser margin",
				mode, outcome.Cost.Total, margin, lastCost,
			)
		}
		lastCost = outcome.Cost.Total

		report.MinFeasibleMargin = margin
		report.FoundFeasible = true
	}

	return report
}
