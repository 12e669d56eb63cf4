package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/nfvsched/replan/internal/config"
	"github.com/nfvsched/replan/internal/gui"
	"github.com/nfvsched/replan/internal/loader"
	"github.com/nfvsched/replan/internal/model"
	"github.com/nfvsched/replan/logging"
	"github.com/nfvsched/replan/milp"
	"github.com/nfvsched/replan/plan"
	"github.com/nfvsched/replan/statistics"
	"gopkg.in/yaml.v2"
)

var log = logging.Get()

func main() {
	config_file_path := flag.String("config_file", "", "Path to config file")
	dataset_path := flag.String("dataset", "", "Path to dataset file")
	command := flag.String("cmd", "scan", "One of: solve, scan, serve")
	mode_name := flag.String("mode", "joint", "One of: job_only, node_only, joint")
	margin := flag.Float64("margin", 0, "Margin for a single solve (overrides margin_start)")
	flag.Parse()

	config.PlannerGeneralConfig = config.Default()
	if *config_file_path != "" {
		yamlFile, err := os.ReadFile(*config_file_path)
		if err != nil {
			log.Err(err).Msgf("could not load config")
			os.Exit(1)
		}

		if err := yaml.UnmarshalStrict(yamlFile, &config.PlannerGeneralConfig); err != nil {
			log.Err(err).Msgf("could not load config")
			os.Exit(1)
		}
	}

	if *dataset_path == "" {
		log.Error().Msg("a dataset file is required")
		os.Exit(1)
	}

	ds, err := loader.Load(*dataset_path)
	if err != nil {
		log.Err(err).Msg("could not load dataset")
		os.Exit(1)
	}

	mode, err := model.ParseMode(*mode_name)
	if err != nil {
		log.Err(err).Msg("could not parse mode")
		os.Exit(1)
	}

	cfg := config.PlannerGeneralConfig
	backend, err := newBackend(cfg)
	if err != nil {
		log.Err(err).Msg("could not set up the solver backend")
		os.Exit(1)
	}

	session := plan.NewSession(ds, backend)
	budget := time.Duration(cfg.TimeBudgetSeconds) * time.Second
	ctx := context.Background()

	switch *command {
	case "solve":
		solveMargin := cfg.MarginStart
		if *margin > 0 {
			solveMargin = *margin
		}

		outcome := session.Solve(ctx, mode, solveMargin, budget)
		display(outcome)

	case "scan":
		report := session.Scan(ctx, mode, plan.ScanSpec{
			Start: cfg.MarginStart,
			Stop:  cfg.MarginStop,
			Step:  cfg.MarginStep,
		}, budget)
		display(report)

		fmt.Println(statistics.Display())

	case "serve":
		gui.SetUp(session)
		gui.Run(cfg.ListenAddress)

	default:
		log.Error().Msgf("command %q is not recognized", *command)
		os.Exit(1)
	}
}

func newBackend(cfg config.GeneralConfig) (milp.Backend, error) {
	switch cfg.BackendKind {
	case "", "branchbound":
		backend := milp.NewBranchBound()
		if cfg.RelativeGap > 0 {
			backend.RelativeGap = cfg.RelativeGap
		}
		return backend, nil
	}

	return nil, fmt.Errorf("backend %q is not recognized", cfg.BackendKind)
}

func display(report interface{}) {
	content, err := json.MarshalIndent(report, "", " ")
	if err != nil {
		log.Err(err).Msg("could not render report")
		os.Exit(1)
	}

	fmt.Println(string(content))
}
