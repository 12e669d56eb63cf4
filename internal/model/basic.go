package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Resource vector component indices. Every capacity and demand vector
// has exactly ResourceCount components in this order.
const (
	RES_CPU = iota
	RES_MEMORY
	RES_VF

	ResourceCount
)

var ResourceNames = [ResourceCount]string{"cpu", "memory", "vf"}

type Mode int

const (
	JOB_ONLY Mode = iota
	NODE_ONLY
	JOINT
)

func (m Mode) String() string {
	switch m {
	case JOB_ONLY:
		return "job_only"
	case NODE_ONLY:
		return "node_only"
	case JOINT:
		return "joint"
	}

	return fmt.Sprintf("mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "job_only":
		return JOB_ONLY, nil
	case "node_only":
		return NODE_ONLY, nil
	case "joint":
		return JOINT, nil
	}

	return 0, fmt.Errorf("mode %q is not recognized", s)
}

// JobsFree reports whether job assignment is a decision variable in
// this mode; otherwise every job sits at its default cluster.
func (m Mode) JobsFree() bool {
	return m != NODE_ONLY
}

// NodesFree reports whether node assignment is a decision variable in
// this mode; otherwise every node sits at its default cluster at every
// timeslice.
func (m Mode) NodesFree() bool {
	return m != JOB_ONLY
}

type Cluster struct {
	Id            string
	Name          string
	SupportsMano  bool
	SupportsSriov bool
}

type Node struct {
	Id             string
	DefaultCluster string
	Capacity       *mat.VecDense
	SupportsMano   bool
	SupportsSriov  bool
	RelocationCost float64
}

type Job struct {
	Id             string
	DefaultCluster string
	Demand         *mat.VecDense
	RequiresMano   bool
	Start          int
	Duration       int
	RelocationCost float64
}

// End is the first timeslice at which the job is no longer active.
func (j *Job) End() int {
	return j.Start + j.Duration
}

// ActiveAt reports whether the job occupies resources at timeslice t.
func (j *Job) ActiveAt(t int) bool {
	return j.Start <= t && t < j.End()
}

// RequiresSriov is implied by a non-zero virtual function demand.
func (j *Job) RequiresSriov() bool {
	return j.Demand.AtVec(RES_VF) > 0
}

// Dataset is the normalized immutable input of a planning session. It
// is built once by the ingestion boundary and shared read-only by every
// solve.
type Dataset struct {
	Horizon  int
	Clusters []*Cluster
	Nodes    []*Node
	Jobs     []*Job

	clusterById map[string]*Cluster
	nodeById    map[string]*Node
	jobById     map[string]*Job
}

func NewDataset(horizon int, clusters []*Cluster, nodes []*Node, jobs []*Job) (*Dataset, error) {
	ds := &Dataset{
		Horizon:     horizon,
		Clusters:    clusters,
		Nodes:       nodes,
		Jobs:        jobs,
		clusterById: make(map[string]*Cluster),
		nodeById:    make(map[string]*Node),
		jobById:     make(map[string]*Job),
	}

	if err := ds.validate(); err != nil {
		return nil, err
	}

	return ds, nil
}

func (ds *Dataset) validate() error {
	if ds.Horizon <= 0 {
		return fmt.Errorf("horizon must be positive, got %d", ds.Horizon)
	}
	if len(ds.Clusters) == 0 {
		return fmt.Errorf("dataset has no clusters")
	}

	for _, cluster := range ds.Clusters {
		if _, ok := ds.clusterById[cluster.Id]; ok {
			return fmt.Errorf("duplicate cluster id %q", cluster.Id)
		}
		ds.clusterById[cluster.Id] = cluster
	}

	for _, node := range ds.Nodes {
		if _, ok := ds.nodeById[node.Id]; ok {
			return fmt.Errorf("duplicate node id %q", node.Id)
		}
		if _, ok := ds.clusterById[node.DefaultCluster]; !ok {
			return fmt.Errorf("node %q defaults to unknown cluster %q", node.Id, node.DefaultCluster)
		}
		if node.Capacity == nil || node.Capacity.Len() != ResourceCount {
			return fmt.Errorf("node %q must carry a %d-component capacity vector", node.Id, ResourceCount)
		}
		if node.RelocationCost < 0 {
			return fmt.Errorf("node %q has negative relocation cost", node.Id)
		}
		ds.nodeById[node.Id] = node
	}

	for _, job := range ds.Jobs {
		if _, ok := ds.jobById[job.Id]; ok {
			return fmt.Errorf("duplicate job id %q", job.Id)
		}
		if _, ok := ds.clusterById[job.DefaultCluster]; !ok {
			return fmt.Errorf("job %q defaults to unknown cluster %q", job.Id, job.DefaultCluster)
		}
		if job.Demand == nil || job.Demand.Len() != ResourceCount {
			return fmt.Errorf("job %q must carry a %d-component demand vector", job.Id, ResourceCount)
		}
		if job.Duration <= 0 {
			return fmt.Errorf("job %q has non-positive duration %d", job.Id, job.Duration)
		}
		if job.Start < 0 || job.End() > ds.Horizon {
			return fmt.Errorf("job %q active interval [%d, %d) escapes horizon [0, %d)", job.Id, job.Start, job.End(), ds.Horizon)
		}
		if job.RelocationCost < 0 {
			return fmt.Errorf("job %q has negative relocation cost", job.Id)
		}
		ds.jobById[job.Id] = job
	}

	return nil
}

func (ds *Dataset) ClusterById(id string) (*Cluster, bool) {
	cluster, ok := ds.clusterById[id]
	return cluster, ok
}

func (ds *Dataset) NodeById(id string) (*Node, bool) {
	node, ok := ds.nodeById[id]
	return node, ok
}

func (ds *Dataset) JobById(id string) (*Job, bool) {
	job, ok := ds.jobById[id]
	return job, ok
}

// Allows reports whether a cluster offers every capability the job
// requires. Capability flags are cluster-level attributes of the input
// tables; they do not change when nodes move.
func (c *Cluster) Allows(job *Job) bool {
	if job.RequiresMano && !c.SupportsMano {
		return false
	}
	if job.RequiresSriov() && !c.SupportsSriov {
		return false
	}

	return true
}
