package config

type GeneralConfig struct {
	Name              string  `yaml:"name"`
	BackendKind       string  `yaml:"backend"`
	TimeBudgetSeconds int     `yaml:"time_budget_seconds"`
	RelativeGap       float64 `yaml:"relative_gap"`
	MarginStart       float64 `yaml:"margin_start"`
	MarginStop        float64 `yaml:"margin_stop"`
	MarginStep        float64 `yaml:"margin_step"`
	ListenAddress     string  `yaml:"listen_address"`
}

var PlannerGeneralConfig GeneralConfig

// Defaults mirror the reference study setup: scan from a fully relaxed
// ceiling down to 0.5 in 0.05 steps, two minutes per solve.
func Default() GeneralConfig {
	return GeneralConfig{
		Name:              "replan",
		BackendKind:       "branchbound",
		TimeBudgetSeconds: 120,
		RelativeGap:       1e-4,
		MarginStart:       1.0,
		MarginStop:        0.5,
		MarginStep:        0.05,
		ListenAddress:     ":8080",
	}
}
