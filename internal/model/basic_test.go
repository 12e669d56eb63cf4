package model

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func vec(cpu, memory, vf float64) *mat.VecDense {
	return mat.NewVecDense(ResourceCount, []float64{cpu, memory, vf})
}

func baseClusters() []*Cluster {
	return []*Cluster{
		{Id: "edge", Name: "edge", SupportsMano: true, SupportsSriov: true},
		{Id: "cloud", Name: "cloud"},
	}
}

func baseNodes() []*Node {
	return []*Node{
		{Id: "n1", DefaultCluster: "edge", Capacity: vec(4, 8, 2), RelocationCost: 1},
		{Id: "n2", DefaultCluster: "cloud", Capacity: vec(8, 16, 0), RelocationCost: 1},
	}
}

func baseJobs() []*Job {
	return []*Job{
		{Id: "j1", DefaultCluster: "edge", Demand: vec(1, 2, 0), Start: 0, Duration: 3, RelocationCost: 1},
	}
}

func TestParseMode(t *testing.T) {
	for _, name := range []string{"job_only", "node_only", "joint"} {
		mode, err := ParseMode(name)
		if err != nil {
			t.Fatalf("could not parse %q: %v", name, err)
		}
		if mode.String() != name {
			t.Errorf("mode %q round-tripped to %q", name, mode.String())
		}
	}

	if _, err := ParseMode("both"); err == nil {
		t.Errorf("expected an error for an unknown mode name")
	}
}

func TestModeFreedom(t *testing.T) {
	if !JOB_ONLY.JobsFree() || JOB_ONLY.NodesFree() {
		t.Errorf("job_only must free jobs and pin nodes")
	}
	if NODE_ONLY.JobsFree() || !NODE_ONLY.NodesFree() {
		t.Errorf("node_only must pin jobs and free nodes")
	}
	if !JOINT.JobsFree() || !JOINT.NodesFree() {
		t.Errorf("joint must free both sides")
	}
}

func TestJobInterval(t *testing.T) {
	job := &Job{Start: 2, Duration: 3}

	if job.End() != 5 {
		t.Errorf("expected end 5, got %d", job.End())
	}
	if job.ActiveAt(1) {
		t.Errorf("job must not be active before its start")
	}
	if !job.ActiveAt(2) || !job.ActiveAt(4) {
		t.Errorf("job must be active over [start, end)")
	}
	if job.ActiveAt(5) {
		t.Errorf("end timeslice is exclusive")
	}
}

func TestSriovIsImplied(t *testing.T) {
	withVf := &Job{Demand: vec(1, 1, 2)}
	if !withVf.RequiresSriov() {
		t.Errorf("non-zero vf demand must imply sriov")
	}

	withoutVf := &Job{Demand: vec(1, 1, 0)}
	if withoutVf.RequiresSriov() {
		t.Errorf("zero vf demand must not imply sriov")
	}
}

func TestClusterAllows(t *testing.T) {
	plain := &Cluster{Id: "plain"}
	mano := &Cluster{Id: "mano", SupportsMano: true}
	full := &Cluster{Id: "full", SupportsMano: true, SupportsSriov: true}

	manoJob := &Job{RequiresMano: true, Demand: vec(1, 1, 0)}
	sriovJob := &Job{Demand: vec(1, 1, 2)}

	if plain.Allows(manoJob) || plain.Allows(sriovJob) {
		t.Errorf("plain cluster must reject capability jobs")
	}
	if !mano.Allows(manoJob) || mano.Allows(sriovJob) {
		t.Errorf("mano cluster must accept mano and reject sriov")
	}
	if !full.Allows(manoJob) || !full.Allows(sriovJob) {
		t.Errorf("full cluster must accept both")
	}
}

func TestDatasetValidation(t *testing.T) {
	if _, err := NewDataset(5, baseClusters(), baseNodes(), baseJobs()); err != nil {
		t.Fatalf("valid dataset rejected: %v", err)
	}

	t.Run("DuplicateId", func(t *testing.T) {
		jobs := append(baseJobs(), &Job{
			Id: "j1", DefaultCluster: "cloud", Demand: vec(1, 1, 0), Start: 0, Duration: 1, RelocationCost: 1,
		})
		if _, err := NewDataset(5, baseClusters(), baseNodes(), jobs); err == nil {
			t.Errorf("duplicate job id must be rejected")
		}
	})

	t.Run("UnknownCluster", func(t *testing.T) {
		nodes := append(baseNodes(), &Node{
			Id: "n3", DefaultCluster: "fog", Capacity: vec(1, 1, 0), RelocationCost: 1,
		})
		if _, err := NewDataset(5, baseClusters(), nodes, baseJobs()); err == nil {
			t.Errorf("unknown default cluster must be rejected")
		}
	})

	t.Run("IntervalOutsideHorizon", func(t *testing.T) {
		jobs := []*Job{{
			Id: "late", DefaultCluster: "edge", Demand: vec(1, 1, 0), Start: 4, Duration: 3, RelocationCost: 1,
		}}
		if _, err := NewDataset(5, baseClusters(), baseNodes(), jobs); err == nil {
			t.Errorf("job running past the horizon must be rejected")
		}
	})

	t.Run("NegativeCost", func(t *testing.T) {
		jobs := []*Job{{
			Id: "cheap", DefaultCluster: "edge", Demand: vec(1, 1, 0), Start: 0, Duration: 1, RelocationCost: -1,
		}}
		if _, err := NewDataset(5, baseClusters(), baseNodes(), jobs); err == nil {
			t.Errorf("negative relocation cost must be rejected")
		}
	})
}
