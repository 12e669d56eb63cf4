package plan

import (
	"fmt"
	"math"

	"github.com/nfvsched/replan/internal/model"
	"github.com/nfvsched/replan/internal/utils"
	"github.com/nfvsched/replan/milp"
	"gonum.org/v1/gonum/mat"
)

// capacityEps absorbs solver numerical tolerance when re-checking the
// decoded assignment against raw capacity.
const capacityEps = 1e-6

// extract decodes the backend value vector into assignment maps,
// relocation lists and the cost breakdown, then independently
// re-validates the margin rule against raw capacity. Fixed-mode
// variable sets decode to the default placement.
func (s *Session) extract(outcome *model.Outcome, vars *modelVars, sol milp.Solution, mode model.Mode, margin float64) error {
	outcome.JobAssignment = make(map[string]string, len(s.ds.Jobs))
	outcome.NodeAssignment = make(map[string][]string, len(s.ds.Nodes))

	for _, job := range s.ds.Jobs {
		assigned := job.DefaultCluster
		if mode.JobsFree() {
			assigned = pickAssigned(vars.x[job.Id], sol.Values)
			if assigned == "" {
				return fmt.Errorf("job %s decoded to no cluster", job.Id)
			}
		}
		outcome.JobAssignment[job.Id] = assigned

		if assigned != job.DefaultCluster {
			outcome.RelocatedJobs = append(outcome.RelocatedJobs, model.JobRelocation{
				JobId: job.Id,
				From:  job.DefaultCluster,
				To:    assigned,
				Cost:  job.RelocationCost,
			})
			outcome.Cost.JobCost += job.RelocationCost
		}
	}

	for _, node := range s.ds.Nodes {
		trajectory := make([]string, s.ds.Horizon)
		for t := 0; t < s.ds.Horizon; t++ {
			assigned := node.DefaultCluster
			if mode.NodesFree() {
				assigned = pickAssignedAt(vars.y[node.Id], t, sol.Values)
				if assigned == "" {
					return fmt.Errorf("node %s decoded to no cluster at timeslice %d", node.Id, t)
				}
			}
			trajectory[t] = assigned

			if t > 0 && trajectory[t] != trajectory[t-1] {
				outcome.NodeRelocations = append(outcome.NodeRelocations, model.NodeRelocation{
					NodeId:    node.Id,
					Timeslice: t,
					From:      trajectory[t-1],
					To:        trajectory[t],
					Cost:      node.RelocationCost,
				})
				outcome.Cost.NodeCost += node.RelocationCost
			}
		}
		outcome.NodeAssignment[node.Id] = trajectory

		if trajectory[0] != node.DefaultCluster {
			return fmt.Errorf("node %s starts at %s instead of its default %s", node.Id, trajectory[0], node.DefaultCluster)
		}
	}

	outcome.Cost.Total = outcome.Cost.JobCost + outcome.Cost.NodeCost

	// The decoded costs must agree with the solver's own objective;
	// a mismatch means the indicator rows were not driven to exactness.
	if math.Abs(outcome.Cost.Total-sol.Objective) > 1e-6*math.Max(1, math.Abs(sol.Objective)) {
		return fmt.Errorf(
			"decoded cost %g disagrees with solver objective %g",
			outcome.Cost.Total, sol.Objective,
		)
	}

	return s.revalidate(outcome, margin)
}

// revalidate recomputes per-(cluster, timeslice, resource) utilization
// and capacity from the decoded assignment and asserts the margin rule
// and capability rules hold, guarding against a nominally optimal but
// constraint-violating backend answer.
func (s *Session) revalidate(outcome *model.Outcome, margin float64) error {
	for _, job := range s.ds.Jobs {
		cluster, ok := s.ds.ClusterById(outcome.JobAssignment[job.Id])
		if !ok {
			return fmt.Errorf("job %s assigned to unknown cluster %s", job.Id, outcome.JobAssignment[job.Id])
		}
		if !cluster.Allows(job) {
			return fmt.Errorf("job %s landed on cluster %s which lacks a required capability", job.Id, cluster.Id)
		}
	}

	for t := 0; t < s.ds.Horizon; t++ {
		demand := make(map[string]*mat.VecDense, len(s.ds.Clusters))
		capacity := make(map[string]*mat.VecDense, len(s.ds.Clusters))
		for _, cluster := range s.ds.Clusters {
			demand[cluster.Id] = mat.NewVecDense(model.ResourceCount, nil)
			capacity[cluster.Id] = mat.NewVecDense(model.ResourceCount, nil)
		}

		for _, job := range s.idx.Active(t) {
			utils.SAddVec(demand[outcome.JobAssignment[job.Id]], job.Demand)
		}
		for _, node := range s.ds.Nodes {
			utils.SAddVec(capacity[outcome.NodeAssignment[node.Id][t]], node.Capacity)
		}

		for _, cluster := range s.ds.Clusters {
			ceiling := utils.ScaleVec(margin, capacity[cluster.Id])
			if !utils.LEThanEps(demand[cluster.Id], ceiling, capacityEps) {
				return fmt.Errorf(
					"cluster %s over margin at timeslice %d: demand %s > %g x capacity %s",
					cluster.Id, t,
					utils.ToString(demand[cluster.Id]), margin, utils.ToString(capacity[cluster.Id]),
				)
			}
		}
	}

	return nil
}

func pickAssigned(byCluster map[string]milp.Var, values []float64) string {
	for clusterId, v := range byCluster {
		if values[v] > 0.5 {
			return clusterId
		}
	}

	return ""
}

func pickAssignedAt(byCluster map[string][]milp.Var, t int, values []float64) string {
	for clusterId, perSlice := range byCluster {
		if values[perSlice[t]] > 0.5 {
			return clusterId
		}
	}

	return ""
}
