// Because it is a testing package, no errors are returned,
// all problems cause a panic.

package testing_tool

import (
	"fmt"

	"github.com/nfvsched/replan/internal/model"
	"gonum.org/v1/gonum/mat"
)

type ClusterDesc struct {
	Name  string
	Mano  bool
	Sriov bool
}

type NodeDesc struct {
	Name    string
	Cluster string
	Cpu     float64
	Memory  float64
	Vf      float64
	Cost    float64
}

type JobDesc struct {
	Name     string
	Cluster  string
	Cpu      float64
	Memory   float64
	Vf       float64
	Mano     bool
	Start    int
	Duration int
	Cost     float64
}

type Builder struct {
	horizon  int
	clusters []ClusterDesc
	nodes    []NodeDesc
	jobs     []JobDesc
}

func New(horizon int) *Builder {
	return &Builder{horizon: horizon}
}

func (builder *Builder) ImportClusters(descs []ClusterDesc) *Builder {
	builder.clusters = append(builder.clusters, descs...)
	return builder
}

func (builder *Builder) ImportNodes(descs []NodeDesc) *Builder {
	builder.nodes = append(builder.nodes, descs...)
	return builder
}

func (builder *Builder) ImportJobs(descs []JobDesc) *Builder {
	builder.jobs = append(builder.jobs, descs...)
	return builder
}

func (builder *Builder) GetDataset() *model.Dataset {
	clusters := make([]*model.Cluster, 0, len(builder.clusters))
	known := make(map[string]ClusterDesc)
	for _, desc := range builder.clusters {
		clusters = append(clusters, &model.Cluster{
			Id:            desc.Name,
			Name:          desc.Name,
			SupportsMano:  desc.Mano,
			SupportsSriov: desc.Sriov,
		})
		known[desc.Name] = desc
	}

	nodes := make([]*model.Node, 0, len(builder.nodes))
	for _, desc := range builder.nodes {
		home, ok := known[desc.Cluster]
		if !ok {
			panic(fmt.Sprintf("there is no cluster named %s", desc.Cluster))
		}

		cost := desc.Cost
		if cost == 0 {
			cost = 1
		}
		nodes = append(nodes, &model.Node{
			Id:             desc.Name,
			DefaultCluster: desc.Cluster,
			Capacity:       mat.NewVecDense(model.ResourceCount, []float64{desc.Cpu, desc.Memory, desc.Vf}),
			SupportsMano:   home.Mano,
			SupportsSriov:  home.Sriov,
			RelocationCost: cost,
		})
	}

	jobs := make([]*model.Job, 0, len(builder.jobs))
	for _, desc := range builder.jobs {
		if _, ok := known[desc.Cluster]; !ok {
			panic(fmt.Sprintf("there is no cluster named %s", desc.Cluster))
		}

		jobs = append(jobs, &model.Job{
			Id:             desc.Name,
			DefaultCluster: desc.Cluster,
			Demand:         mat.NewVecDense(model.ResourceCount, []float64{desc.Cpu, desc.Memory, desc.Vf}),
			RequiresMano:   desc.Mano,
			Start:          desc.Start,
			Duration:       desc.Duration,
			RelocationCost: desc.Cost,
		})
	}

	ds, err := model.NewDataset(builder.horizon, clusters, nodes, jobs)
	if err != nil {
		panic(err)
	}

	return ds
}
