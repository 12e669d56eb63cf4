package model

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// SolveStatus is the terminal state of one solve. SOLVED covers both a
// proven optimum and a near-optimal solution the backend accepted
// within its relative gap; callers must not distinguish the two.
type SolveStatus int

const (
	SOLVED SolveStatus = iota
	INFEASIBLE
	TIMED_OUT
	FAILED
)

func (s SolveStatus) String() string {
	switch s {
	case SOLVED:
		return "solved"
	case INFEASIBLE:
		return "infeasible"
	case TIMED_OUT:
		return "timed_out"
	case FAILED:
		return "failed"
	}

	return fmt.Sprintf("status(%d)", int(s))
}

func (s SolveStatus) MarshalYAML() (interface{}, error) { return s.String(), nil }
func (s SolveStatus) MarshalJSON() ([]byte, error)      { return []byte(fmt.Sprintf("%q", s)), nil }

type JobRelocation struct {
	JobId string  `yaml:"job" json:"job"`
	From  string  `yaml:"from" json:"from"`
	To    string  `yaml:"to" json:"to"`
	Cost  float64 `yaml:"cost" json:"cost"`
}

// NodeRelocation records one switch event: the node enters cluster To
// at Timeslice, having spent Timeslice-1 in cluster From.
type NodeRelocation struct {
	NodeId    string  `yaml:"node" json:"node"`
	Timeslice int     `yaml:"timeslice" json:"timeslice"`
	From      string  `yaml:"from" json:"from"`
	To        string  `yaml:"to" json:"to"`
	Cost      float64 `yaml:"cost" json:"cost"`
}

type CostBreakdown struct {
	JobCost  float64 `yaml:"job_cost" json:"job_cost"`
	NodeCost float64 `yaml:"node_cost" json:"node_cost"`
	Total    float64 `yaml:"total" json:"total"`
}

// Outcome is the complete result of one (mode, margin) solve.
// Assignment maps are only populated on SOLVED.
type Outcome struct {
	Mode   Mode        `yaml:"-" json:"-"`
	ModeS  string      `yaml:"mode" json:"mode"`
	Margin float64     `yaml:"margin" json:"margin"`
	Status SolveStatus `yaml:"status" json:"status"`
	Reason string      `yaml:"reason,omitempty" json:"reason,omitempty"`

	Cost CostBreakdown `yaml:"cost" json:"cost"`

	// JobAssignment maps job id to its cluster for the whole lifetime.
	JobAssignment map[string]string `yaml:"job_assignment,omitempty" json:"job_assignment,omitempty"`
	// NodeAssignment maps node id to its cluster per timeslice.
	NodeAssignment map[string][]string `yaml:"node_assignment,omitempty" json:"node_assignment,omitempty"`

	RelocatedJobs   []JobRelocation  `yaml:"relocated_jobs,omitempty" json:"relocated_jobs,omitempty"`
	NodeRelocations []NodeRelocation `yaml:"node_relocations,omitempty" json:"node_relocations,omitempty"`

	Runtime time.Duration `yaml:"runtime" json:"runtime"`
}

func (o *Outcome) Feasible() bool {
	return o.Status == SOLVED
}

func (o *Outcome) String() string {
	bytes, _ := yaml.Marshal(o)
	return string(bytes[:])
}

type ScanPoint struct {
	Margin  float64       `yaml:"margin" json:"margin"`
	Status  SolveStatus   `yaml:"status" json:"status"`
	Cost    CostBreakdown `yaml:"cost" json:"cost"`
	Runtime time.Duration `yaml:"runtime" json:"runtime"`
}

// ScanReport is the ordered trace of a descending margin scan plus the
// derived minimum feasible margin for the mode.
type ScanReport struct {
	ModeS  string      `yaml:"mode" json:"mode"`
	Mode   Mode        `yaml:"-" json:"-"`
	Points []ScanPoint `yaml:"points" json:"points"`

	MinFeasibleMargin float64 `yaml:"min_feasible_margin" json:"min_feasible_margin"`
	FoundFeasible     bool    `yaml:"found_feasible" json:"found_feasible"`
}

func (r *ScanReport) String() string {
	bytes, _ := yaml.Marshal(r)
	return string(bytes[:])
}
