package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/convergence/internal/config"
	"github.com/fyrsmithlabs/convergence/internal/convergence"
	"github.com/fyrsmithlabs/convergence/internal/logging"
	"github.com/fyrsmithlabs/convergence/internal/modelclient"
	"github.com/fyrsmithlabs/convergence/internal/telemetry"
)

var (
	runGoal                string
	runContextText         string
	runMaxRounds           int
	runStabilityThreshold  float64
	runGoalDivergenceLimit int
	runConfigPath          string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a convergence session to completion",
	Long: `Run drives an in-process convergence session: a Planner/Blind Judge/
Stability Tracker/Decision Engine loop against the configured model provider,
printing round-by-round progress and the final termination reason.

Examples:
  converge run --goal "Design a rate limiter" --context "Go service, Redis-backed"
  converge run --goal "..." --max-rounds 5 --stability-threshold 0.9`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runGoal, "goal", "", "the target outcome the session converges toward (required)")
	runCmd.Flags().StringVar(&runContextText, "context", "", "background context available to the planner")
	runCmd.Flags().IntVar(&runMaxRounds, "max-rounds", 0, "override the configured max rounds (0 = use config default)")
	runCmd.Flags().Float64Var(&runStabilityThreshold, "stability-threshold", 0, "override the configured stability threshold (0 = use config default)")
	runCmd.Flags().IntVar(&runGoalDivergenceLimit, "goal-divergence-limit", 0, "override the configured goal divergence limit (0 = use config default)")
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "path to a YAML config file (when unset, configuration comes from environment variables only)")
	_ = runCmd.MarkFlagRequired("goal")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.NewDefaultConfig(), nil)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	client, err := modelclient.New(cfg.ModelClient)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}

	ctx := cmd.Context()

	telCfg := telemetry.NewDefaultConfig()
	telCfg.Enabled = cfg.Observability.EnableTelemetry
	if cfg.Observability.ServiceName != "" {
		telCfg.ServiceName = cfg.Observability.ServiceName
	}
	tel, err := telemetry.New(ctx, telCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer tel.Shutdown(ctx)

	spans := telemetry.NewRoundSpanTracker(tel.Tracer("convergence.round"))
	gauges := telemetry.NewStabilityGauges(tel.Meter("convergence.round"))

	var opts []convergence.Option
	opts = append(opts, withOverride(runMaxRounds, cfg.Orchestrator.MaxRounds, convergence.WithMaxRounds))
	opts = append(opts, withFloatOverride(runStabilityThreshold, cfg.Orchestrator.StabilityThreshold, convergence.WithStabilityThreshold))
	opts = append(opts, withOverride(runGoalDivergenceLimit, cfg.Orchestrator.GoalDivergenceLimit, convergence.WithGoalDivergenceLimit))

	opts = append(opts,
		convergence.WithOnRoundStart(func(r convergence.RoundState) {
			ctx = spans.StartRound(ctx, r.Number, string(r.Phase))
			fmt.Fprintf(os.Stderr, "round %d starting\n", r.Number)
		}),
		convergence.WithOnRoundComplete(func(r convergence.RoundState) {
			stability := 0.0
			if r.Stability != nil {
				stability = r.Stability.OverallStability
				gauges.Record(ctx, r.Stability.ContradictionRatio, r.Stability.DecisionReuseRate,
					r.Stability.PlanSimilarity, r.Stability.GoalConvergence, r.Stability.OverallStability)
			}
			fmt.Fprintf(os.Stderr, "round %d complete (stability=%.2f)\n", r.Number, stability)
		}),
		convergence.WithOnTerminate(func(result convergence.ExecutionResult) {
			spans.EndFinalRound(string(result.TerminationReason))
		}),
		convergence.WithOnLog(func(e convergence.LogEvent) {
			logger.Info(ctx, e.Message, zap.String("event_type", e.Type))
		}),
	)

	orchestrator := convergence.NewOrchestrator(client.Call, opts...)

	result, err := orchestrator.Execute(ctx, runGoal, runContextText)
	if err != nil {
		return fmt.Errorf("convergence run failed: %w", err)
	}

	fmt.Printf("\n--- result ---\n")
	fmt.Printf("success: %v\n", result.Success)
	fmt.Printf("rounds:  %d\n", result.Round)
	fmt.Printf("stability: %.2f\n", result.Stability)
	fmt.Printf("termination: %s\n", result.TerminationReason)
	if result.Output != "" {
		fmt.Printf("\n%s\n", result.Output)
	}

	if !result.Success {
		os.Exit(1)
	}
	return nil
}

func loadRunConfig() (*config.Config, error) {
	if runConfigPath != "" {
		return config.LoadWithFile(runConfigPath)
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func withOverride(flagValue, configValue int, apply func(int) convergence.Option) convergence.Option {
	if flagValue > 0 {
		return apply(flagValue)
	}
	return apply(configValue)
}

func withFloatOverride(flagValue, configValue float64, apply func(float64) convergence.Option) convergence.Option {
	if flagValue > 0 {
		return apply(flagValue)
	}
	return apply(configValue)
}
