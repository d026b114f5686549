package durable

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"

	"github.com/fyrsmithlabs/convergence/internal/config"
	"github.com/fyrsmithlabs/convergence/internal/convergence"
	"github.com/fyrsmithlabs/convergence/internal/metrics"
	"github.com/fyrsmithlabs/convergence/internal/modelclient"
	"github.com/fyrsmithlabs/convergence/internal/telemetry"
)

// RunConvergenceActivity drives a convergence.Orchestrator to
// completion inside a single Temporal activity. The model client is
// constructed from ambient configuration rather than injected as
// activity input, since credentials must never cross the workflow/
// activity history boundary.
func RunConvergenceActivity(ctx context.Context, input ConvergenceInput) (*ConvergenceResult, error) {
	client, err := modelclient.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("constructing model client: %w", err)
	}

	cfg := config.Load()
	telCfg := telemetry.NewDefaultConfig()
	telCfg.Enabled = cfg.Observability.EnableTelemetry
	if cfg.Observability.ServiceName != "" {
		telCfg.ServiceName = cfg.Observability.ServiceName
	}
	tel, err := telemetry.New(ctx, telCfg)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	defer tel.Shutdown(ctx)

	spans := telemetry.NewRoundSpanTracker(tel.Tracer("convergence.round"))
	gauges := telemetry.NewStabilityGauges(tel.Meter("convergence.round"))

	var opts []convergence.Option
	if input.MaxRounds > 0 {
		opts = append(opts, convergence.WithMaxRounds(input.MaxRounds))
	}
	if input.StabilityThreshold > 0 {
		opts = append(opts, convergence.WithStabilityThreshold(input.StabilityThreshold))
	}
	if input.GoalDivergenceLimit > 0 {
		opts = append(opts, convergence.WithGoalDivergenceLimit(input.GoalDivergenceLimit))
	}

	m := metrics.New()

	var summaries []RoundSummary
	opts = append(opts, convergence.WithOnRoundStart(func(r convergence.RoundState) {
		ctx = spans.StartRound(ctx, r.Number, string(r.Phase))
	}))
	opts = append(opts, convergence.WithOnRoundComplete(func(r convergence.RoundState) {
		phase := "refiner"
		if r.Phase == convergence.PhaseArchitect {
			phase = "architect"
		}
		stability := 0.0
		if r.Stability != nil {
			stability = r.Stability.OverallStability
			m.RoundStability.Observe(stability)
			gauges.Record(ctx, r.Stability.ContradictionRatio, r.Stability.DecisionReuseRate,
				r.Stability.PlanSimilarity, r.Stability.GoalConvergence, r.Stability.OverallStability)
		}
		m.RoundsTotal.WithLabelValues(phase).Inc()
		summaries = append(summaries, RoundSummary{
			Number:           r.Number,
			Phase:            phase,
			OverallStability: stability,
		})
		// Heartbeating here, rather than on a timer, means a worker
		// crash is detected at the next round boundary instead of
		// waiting out the full activity heartbeat timeout.
		activity.RecordHeartbeat(ctx, r.Number)
	}))
	opts = append(opts, convergence.WithOnTerminate(func(result convergence.ExecutionResult) {
		spans.EndFinalRound(string(result.TerminationReason))
	}))
	opts = append(opts, convergence.WithOnLog(func(e convergence.LogEvent) {
		if e.Type == "lockingViolation" {
			m.LockingViolations.Inc()
		}
	}))

	o := convergence.NewOrchestrator(client.Call, opts...)

	result, err := o.Execute(ctx, input.Goal, input.Context)
	if err != nil {
		m.RunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("convergence run failed: %w", err)
	}
	m.RunsTotal.WithLabelValues(string(result.TerminationReason)).Inc()

	return &ConvergenceResult{
		Success:           result.Success,
		Output:            result.Output,
		Round:             result.Round,
		Stability:         result.Stability,
		TerminationReason: string(result.TerminationReason),
		RoundsCompleted:   summaries,
	}, nil
}
