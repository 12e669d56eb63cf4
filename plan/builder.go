package plan

import (
	"fmt"

	"github.com/nfvsched/replan/internal/model"
	"github.com/nfvsched/replan/internal/timeline"
	"github.com/nfvsched/replan/milp"
)

// modelVars indexes the decision variables of one solve so the
// extractor can decode a backend value vector. Maps are nil for the
// variable set a mode holds fixed.
type modelVars struct {
	// x[job][cluster]: job assigned to cluster for its whole lifetime.
	x map[string]map[string]milp.Var
	// moved[job]: 1 iff the job left its default cluster.
	moved map[string]milp.Var
	// y[node][cluster][t]: node assigned to cluster at timeslice t.
	y map[string]map[string][]milp.Var
	// sw[node]: switch indicators for timeslices 1..H-1; sw[n][t-1] is
	// 1 iff the node's cluster at t differs from t-1.
	sw map[string][]milp.Var
}

// buildModel translates the dataset into the intermediate model for
// one (mode, margin) solve. Variables held fixed by the mode are not
// created; their values are substituted as constants, which shrinks
// the constraint set of the single-variant modes relative to Joint.
func buildModel(ds *model.Dataset, idx *timeline.Index, mode model.Mode, margin float64) (*milp.Model, *modelVars) {
	m := milp.NewModel()
	vars := &modelVars{}

	if mode.JobsFree() {
		buildJobVariables(m, vars, ds)
	}
	if mode.NodesFree() {
		buildNodeVariables(m, vars, ds)
	}

	// Fixed jobs must still respect capability rules; a violation in
	// the input makes the whole solve infeasible up front.
	if !mode.JobsFree() {
		for _, job := range ds.Jobs {
			cluster, _ := ds.ClusterById(job.DefaultCluster)
			if !cluster.Allows(job) {
				log.Warn().Msgf(
					"job %s is pinned to cluster %s which lacks a required capability",
					job.Id, cluster.Id,
				)
				m.MarkInfeasible(fmt.Sprintf("capability_fixed[%s]", job.Id))
			}
		}
	}

	buildCapacityRows(m, vars, ds, idx, mode, margin)
	buildObjective(m, vars, ds, mode)

	return m, vars
}

func buildJobVariables(m *milp.Model, vars *modelVars, ds *model.Dataset) {
	vars.x = make(map[string]map[string]milp.Var)
	vars.moved = make(map[string]milp.Var)

	for _, job := range ds.Jobs {
		byCluster := make(map[string]milp.Var)

		var assign milp.Expr
		for _, cluster := range ds.Clusters {
			v := m.Binary(fmt.Sprintf("x[%s][%s]", job.Id, cluster.Id))
			byCluster[cluster.Id] = v
			assign.Add(v, 1)

			if !cluster.Allows(job) {
				m.Fix(v, 0, fmt.Sprintf("capability[%s][%s]", job.Id, cluster.Id))
			}
		}
		m.AddConstraint(assign, milp.EQ, 1, fmt.Sprintf("job_assign[%s]", job.Id))

		// moved >= 1 - x[default]; minimization drives it to the
		// indicator value, no big-M needed.
		moved := m.Binary(fmt.Sprintf("moved[%s]", job.Id))
		var link milp.Expr
		link.Add(moved, 1)
		link.Add(byCluster[job.DefaultCluster], 1)
		m.AddConstraint(link, milp.GE, 1, fmt.Sprintf("job_moved[%s]", job.Id))

		vars.x[job.Id] = byCluster
		vars.moved[job.Id] = moved
	}
}

func buildNodeVariables(m *milp.Model, vars *modelVars, ds *model.Dataset) {
	vars.y = make(map[string]map[string][]milp.Var)
	vars.sw = make(map[string][]milp.Var)

	for _, node := range ds.Nodes {
		byCluster := make(map[string][]milp.Var)
		for _, cluster := range ds.Clusters {
			perSlice := make([]milp.Var, ds.Horizon)
			for t := 0; t < ds.Horizon; t++ {
				perSlice[t] = m.Binary(fmt.Sprintf("y[%s][%s][%d]", node.Id, cluster.Id, t))
			}
			byCluster[cluster.Id] = perSlice
		}

		for t := 0; t < ds.Horizon; t++ {
			var assign milp.Expr
			for _, cluster := range ds.Clusters {
				assign.Add(byCluster[cluster.Id][t], 1)
			}
			m.AddConstraint(assign, milp.EQ, 1, fmt.Sprintf("node_assign[%s][%d]", node.Id, t))
		}

		// Continuity baseline: at timeslice 0 every node sits at its
		// default cluster, so relocation costs are comparable between
		// modes.
		m.Fix(byCluster[node.DefaultCluster][0], 1, fmt.Sprintf("continuity[%s]", node.Id))

		switches := make([]milp.Var, 0, ds.Horizon-1)
		for t := 1; t < ds.Horizon; t++ {
			sw := m.Binary(fmt.Sprintf("switch[%s][%d]", node.Id, t))
			switches = append(switches, sw)

			// sw >= y[c][t] - y[c][t-1] for every cluster: exactly the
			// cluster gained on a switch pushes it to one.
			for _, cluster := range ds.Clusters {
				var step milp.Expr
				step.Add(byCluster[cluster.Id][t], 1)
				step.Add(byCluster[cluster.Id][t-1], -1)
				step.Add(sw, -1)
				m.AddConstraint(step, milp.LE, 0, fmt.Sprintf("switch[%s][%s][%d]", node.Id, cluster.Id, t))
			}
		}

		vars.y[node.Id] = byCluster
		vars.sw[node.Id] = switches
	}
}

// buildCapacityRows emits, for every (cluster, touched timeslice,
// resource) with non-zero demand, the rule
//
//	demand(cluster, t, r) <= margin * capacity(cluster, t, r)
//
// with whichever side the mode holds fixed substituted as a constant.
func buildCapacityRows(m *milp.Model, vars *modelVars, ds *model.Dataset, idx *timeline.Index, mode model.Mode, margin float64) {
	for _, t := range idx.TouchedSlices() {
		active := idx.Active(t)

		for _, cluster := range ds.Clusters {
			for r := 0; r < model.ResourceCount; r++ {
				var row milp.Expr
				rhs := 0.0
				hasDemand := false

				if mode.JobsFree() {
					for _, job := range active {
						demand := job.Demand.AtVec(r)
						if demand == 0 {
							continue
						}
						row.Add(vars.x[job.Id][cluster.Id], demand)
						hasDemand = true
					}
				} else {
					fixed := idx.DefaultDemand(cluster.Id, t).AtVec(r)
					if fixed > 0 {
						rhs -= fixed
						hasDemand = true
					}
				}

				if !hasDemand {
					// Capacity is non-negative in every mode; a row
					// with zero demand cannot bind.
					continue
				}

				if mode.NodesFree() {
					for _, node := range ds.Nodes {
						capacity := node.Capacity.AtVec(r)
						if capacity == 0 {
							continue
						}
						row.Add(vars.y[node.Id][cluster.Id][t], -margin*capacity)
					}
				} else {
					rhs += margin * idx.DefaultCapacity(cluster.Id).AtVec(r)
				}

				m.AddConstraint(row, milp.LE, rhs, fmt.Sprintf(
					"capacity[%s][%d][%s]", cluster.Id, t, model.ResourceNames[r],
				))
			}
		}
	}
}

func buildObjective(m *milp.Model, vars *modelVars, ds *model.Dataset, mode model.Mode) {
	var obj milp.Expr

	if mode.JobsFree() {
		for _, job := range ds.Jobs {
			obj.Add(vars.moved[job.Id], job.RelocationCost)
		}
	}
	if mode.NodesFree() {
		for _, node := range ds.Nodes {
			for _, sw := range vars.sw[node.Id] {
				obj.Add(sw, node.RelocationCost)
			}
		}
	}

	m.Minimize(obj)
}
