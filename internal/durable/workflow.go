// Package durable wraps the convergence orchestrator in a Temporal
// workflow so a long-running, multi-round convergence run survives
// worker restarts and can be observed like any other durable execution.
package durable

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ConvergenceInput starts a durable convergence run.
type ConvergenceInput struct {
	Goal                string
	Context             string
	MaxRounds           int
	StabilityThreshold  float64
	GoalDivergenceLimit int
}

// ConvergenceResult is the terminal outcome of a durable run.
type ConvergenceResult struct {
	Success           bool
	Output            string
	Round             int
	Stability         float64
	TerminationReason string
	RoundsCompleted   []RoundSummary
}

// RoundSummary is the durable, serializable projection of a completed
// round; it drops the in-process-only hook payloads carried by
// convergence.RoundState.
type RoundSummary struct {
	Number           int
	Phase            string
	OverallStability float64
}

// ConvergenceWorkflow delegates the full convergence run to a single
// activity, since the orchestrator's round loop is sequential and
// already synchronous; the activity heartbeats once per completed
// round so a worker crash mid-run is detected promptly and the run
// retried from scratch rather than left to time out silently.
func ConvergenceWorkflow(ctx workflow.Context, input ConvergenceInput) (*ConvergenceResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("starting convergence workflow", "goal", input.Goal)

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var result ConvergenceResult
	err := workflow.ExecuteActivity(ctx, RunConvergenceActivity, input).Get(ctx, &result)
	if err != nil {
		return nil, err
	}

	logger.Info("convergence workflow complete",
		"round", result.Round,
		"reason", result.TerminationReason,
		"stability", result.Stability,
	)
	return &result, nil
}
