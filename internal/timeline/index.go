package timeline

import (
	"sort"

	"github.com/emirpasic/gods/trees/binaryheap"
	"github.com/nfvsched/replan/internal/model"
	"github.com/nfvsched/replan/internal/utils"
	"gonum.org/v1/gonum/mat"
)

// Index precomputes, per timeslice, the set of active jobs, and per
// cluster the capacity its default nodes provide. It is built once per
// dataset and shared read-only by every solve, so interval-overlap
// tests never run inside model construction.
type Index struct {
	horizon int

	active [][]*model.Job

	defaultCapacity map[string]*mat.VecDense
	defaultDemand   map[string][]*mat.VecDense
}

func New(ds *model.Dataset) *Index {
	idx := &Index{
		horizon:         ds.Horizon,
		active:          make([][]*model.Job, ds.Horizon),
		defaultCapacity: make(map[string]*mat.VecDense),
		defaultDemand:   make(map[string][]*mat.VecDense),
	}

	for _, cluster := range ds.Clusters {
		idx.defaultCapacity[cluster.Id] = mat.NewVecDense(model.ResourceCount, nil)
		perSlice := make([]*mat.VecDense, ds.Horizon)
		for t := range perSlice {
			perSlice[t] = mat.NewVecDense(model.ResourceCount, nil)
		}
		idx.defaultDemand[cluster.Id] = perSlice
	}

	for _, node := range ds.Nodes {
		utils.SAddVec(idx.defaultCapacity[node.DefaultCluster], node.Capacity)
	}

	// Sweep the horizon once: jobs enter in start order and leave
	// through an end-time heap, so each job is touched O(log n) times
	// instead of once per timeslice.
	byStart := make([]*model.Job, len(ds.Jobs))
	copy(byStart, ds.Jobs)
	sort.Slice(byStart, func(i, j int) bool { return byStart[i].Start < byStart[j].Start })

	endComparator := func(a, b interface{}) int {
		jobA := a.(*model.Job)
		jobB := b.(*model.Job)

		if jobA.End() < jobB.End() {
			return -1
		}
		if jobA.End() == jobB.End() {
			return 0
		}
		return 1
	}
	running := binaryheap.NewWith(endComparator)

	next := 0
	for t := 0; t < ds.Horizon; t++ {
		for next < len(byStart) && byStart[next].Start <= t {
			running.Push(byStart[next])
			next++
		}
		for {
			top, ok := running.Peek()
			if !ok || top.(*model.Job).End() > t {
				break
			}
			running.Pop()
		}

		slice := make([]*model.Job, 0, running.Size())
		for _, raw := range running.Values() {
			job := raw.(*model.Job)
			slice = append(slice, job)
			utils.SAddVec(idx.defaultDemand[job.DefaultCluster][t], job.Demand)
		}
		idx.active[t] = slice
	}

	return idx
}

func (idx *Index) Horizon() int {
	return idx.horizon
}

// Active returns the jobs whose interval covers timeslice t. The slice
// is shared; callers must not mutate it.
func (idx *Index) Active(t int) []*model.Job {
	return idx.active[t]
}

// TouchedSlices lists the timeslices at which at least one job is
// active; capacity rows are only generated for these.
func (idx *Index) TouchedSlices() []int {
	touched := make([]int, 0, idx.horizon)
	for t := 0; t < idx.horizon; t++ {
		if len(idx.active[t]) > 0 {
			touched = append(touched, t)
		}
	}

	return touched
}

// DefaultCapacity is the capacity the cluster's default nodes provide,
// constant over time while nodes stay home. Used as the fixed capacity
// in job-only solves and as a sanity upper bound elsewhere.
func (idx *Index) DefaultCapacity(clusterId string) *mat.VecDense {
	return idx.defaultCapacity[clusterId]
}

// DefaultDemand is the aggregate demand of jobs sitting at their
// default cluster at timeslice t; the fixed demand side of node-only
// solves.
func (idx *Index) DefaultDemand(clusterId string, t int) *mat.VecDense {
	return idx.defaultDemand[clusterId][t]
}
