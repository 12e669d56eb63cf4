// Package loader is the ingestion boundary: it reads the three-table
// yaml dataset layout into the normalized in-memory form the planning
// core consumes. The core itself never touches files.
package loader

import (
	"fmt"
	"os"

	"github.com/nfvsched/replan/internal/model"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v2"
)

type clusterRow struct {
	Id            string `yaml:"id"`
	Name          string `yaml:"name"`
	SupportsMano  bool   `yaml:"supports_mano"`
	SupportsSriov bool   `yaml:"supports_sriov"`
}

type nodeRow struct {
	Id             string   `yaml:"id"`
	DefaultCluster string   `yaml:"default_cluster"`
	Cpu            float64  `yaml:"cpu"`
	Memory         float64  `yaml:"memory"`
	Vf             float64  `yaml:"vf"`
	SupportsMano   bool     `yaml:"supports_mano"`
	SupportsSriov  bool     `yaml:"supports_sriov"`
	RelocationCost *float64 `yaml:"relocation_cost"`
}

type jobRow struct {
	Id             string  `yaml:"id"`
	DefaultCluster string  `yaml:"default_cluster"`
	Cpu            float64 `yaml:"cpu"`
	Memory         float64 `yaml:"memory"`
	Vf             float64 `yaml:"vf"`
	RequiresMano   bool    `yaml:"requires_mano"`
	StartTime      int     `yaml:"start_time"`
	Duration       int     `yaml:"duration"`
	RelocationCost float64 `yaml:"relocation_cost"`
}

type datasetFile struct {
	Horizon  int          `yaml:"horizon"`
	Clusters []clusterRow `yaml:"clusters"`
	Nodes    []nodeRow    `yaml:"nodes"`
	Jobs     []jobRow     `yaml:"jobs"`
}

func Load(path string) (*model.Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read dataset file: %w", err)
	}

	return Parse(raw)
}

func Parse(raw []byte) (*model.Dataset, error) {
	var file datasetFile
	if err := yaml.UnmarshalStrict(raw, &file); err != nil {
		return nil, fmt.Errorf("could not parse dataset: %w", err)
	}

	clusters := make([]*model.Cluster, 0, len(file.Clusters))
	for _, row := range file.Clusters {
		clusters = append(clusters, &model.Cluster{
			Id:            row.Id,
			Name:          row.Name,
			SupportsMano:  row.SupportsMano,
			SupportsSriov: row.SupportsSriov,
		})
	}

	nodes := make([]*model.Node, 0, len(file.Nodes))
	for _, row := range file.Nodes {
		cost := 1.0
		if row.RelocationCost != nil {
			cost = *row.RelocationCost
		}
		nodes = append(nodes, &model.Node{
			Id:             row.Id,
			DefaultCluster: row.DefaultCluster,
			Capacity:       mat.NewVecDense(model.ResourceCount, []float64{row.Cpu, row.Memory, row.Vf}),
			SupportsMano:   row.SupportsMano,
			SupportsSriov:  row.SupportsSriov,
			RelocationCost: cost,
		})
	}

	jobs := make([]*model.Job, 0, len(file.Jobs))
	for _, row := range file.Jobs {
		jobs = append(jobs, &model.Job{
			Id:             row.Id,
			DefaultCluster: row.DefaultCluster,
			Demand:         mat.NewVecDense(model.ResourceCount, []float64{row.Cpu, row.Memory, row.Vf}),
			RequiresMano:   row.RequiresMano,
			Start:          row.StartTime,
			Duration:       row.Duration,
			RelocationCost: row.RelocationCost,
		})
	}

	return model.NewDataset(file.Horizon, clusters, nodes, jobs)
}
