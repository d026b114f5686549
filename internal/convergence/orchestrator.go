package convergence

import (
	"context"
	"fmt"
)

// CallModel is the single injected dependency: a pure request/response
// boundary from prompt to completed text. Retries, backoff, rate-limit
// handling, and provider fallback are the host's concern, not the core's.
type CallModel func(ctx context.Context, prompt string) (string, error)

// LogEvent is emitted via the onLog hook for every notable occurrence
// during a round, in the order those occurrences happen.
type LogEvent struct {
	Type    string
	Message string
	Data    map[string]interface{}
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithMaxRounds overrides the default hard upper bound on rounds.
func WithMaxRounds(n int) Option {
	return func(o *Orchestrator) { o.cfg.MaxRounds = n }
}

// WithStabilityThreshold overrides the default stabilityAchieved trigger.
func WithStabilityThreshold(threshold float64) Option {
	return func(o *Orchestrator) { o.cfg.StabilityThreshold = threshold }
}

// WithGoalDivergenceLimit overrides the default goalDiverging tail length.
func WithGoalDivergenceLimit(n int) Option {
	return func(o *Orchestrator) { o.cfg.GoalDivergenceLimit = n }
}

// WithOnRoundStart registers a hook called when a round begins. Hooks must
// not throw and must not mutate the supplied value.
func WithOnRoundStart(fn func(RoundState)) Option {
	return func(o *Orchestrator) { o.onRoundStart = fn }
}

// WithOnRoundComplete registers a hook called when a round finishes.
func WithOnRoundComplete(fn func(RoundState)) Option {
	return func(o *Orchestrator) { o.onRoundComplete = fn }
}

// WithOnTerminate registers a hook called once, when the run ends.
func WithOnTerminate(fn func(ExecutionResult)) Option {
	return func(o *Orchestrator) { o.onTerminate = fn }
}

// WithOnLog registers a hook called for every LogEvent the run emits.
func WithOnLog(fn func(LogEvent)) Option {
	return func(o *Orchestrator) { o.onLog = fn }
}

// Orchestrator is a sequential, single-run state machine that sequences
// Planner, Blind Judge, Stability Tracker, and Decision Engine across
// rounds until a termination rule fires.
type Orchestrator struct {
	callModel CallModel
	cfg       DecisionConfig

	onRoundStart    func(RoundState)
	onRoundComplete func(RoundState)
	onTerminate     func(ExecutionResult)
	onLog           func(LogEvent)

	state OrchestratorState
}

// NewOrchestrator creates an Orchestrator around the given callModel
// function, the core's only external dependency.
func NewOrchestrator(callModel CallModel, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		callModel: callModel,
		cfg:       DefaultDecisionConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns a read-only snapshot of the orchestrator's state.
func (o *Orchestrator) State() OrchestratorState {
	return o.state
}

// Execute resets the orchestrator's state and runs rounds until a
// termination rule fires or the model function fails.
func (o *Orchestrator) Execute(ctx context.Context, goal, runContext string) (ExecutionResult, error) {
	o.state = OrchestratorState{
		Goal:      goal,
		Context:   runContext,
		IsRunning: true,
	}

	var lastStability float64

	for {
		round := o.startNewRound()

		plan, err := o.generatePlan(ctx, round, goal, runContext)
		if err != nil {
			return o.fail(err, lastStability)
		}
		round.Plan = &plan

		if round.Number == 1 {
			locked := deriveLockedStructure(plan)
			round.LockedStructure = &locked
		}
		o.state.CurrentRound = round

		previousPlan := o.lastArchivedPlan()

		evalPrompt := BuildEvaluationPrompt(goal, plan, previousPlan, round.LockedStructure)
		evalText, err := o.callModel(ctx, evalPrompt)
		if err != nil {
			return o.fail(&ModelCallError{Phase: round.Phase, Err: err}, lastStability)
		}
		eval := ParseEvaluation(evalText)
		round.Evaluation = &eval
		o.log("evaluation", "evaluation parsed", map[string]interface{}{"round": round.Number})

		stability := ComputeStability(plan, previousPlan, eval)
		round.Stability = &stability
		lastStability = stability.OverallStability
		o.state.CurrentRound = round

		decision := Decide(round.Number, o.state.RoundHistory, eval, stability, o.cfg)
		for _, warning := range ValidateTerminationDecision(decision, eval) {
			o.log("decisionWarning", string(warning), map[string]interface{}{"round": round.Number})
		}

		if o.onRoundComplete != nil {
			o.onRoundComplete(round)
		}

		if decision.ShouldTerminate {
			result := ExecutionResult{
				Success:           isSuccessReason(decision.Reason),
				Output:            fmt.Sprintf("converged after round %d: %s", round.Number, decision.Reason),
				Round:             round.Number,
				Stability:         stability.OverallStability,
				Terminated:        true,
				TerminationReason: decision.Reason,
			}
			o.state.IsRunning = false
			o.state.LastResult = &result
			if o.onTerminate != nil {
				o.onTerminate(result)
			}
			return result, nil
		}
	}
}

// startNewRound archives the current round (if any) and advances to the
// next round number, carrying the locked structure forward once set.
func (o *Orchestrator) startNewRound() RoundState {
	var lockedStructure *LockedStructure
	nextNumber := 1

	if o.state.CurrentRound.Number > 0 {
		o.state.RoundHistory = append(o.state.RoundHistory, deepCopyRoundState(o.state.CurrentRound))
		nextNumber = o.state.CurrentRound.Number + 1
		lockedStructure = o.state.CurrentRound.LockedStructure
	}

	phase := PhaseArchitect
	if nextNumber > 1 {
		phase = PhaseRefiner
	}

	round := RoundState{
		Number:          nextNumber,
		Phase:           phase,
		LockedStructure: lockedStructure,
	}

	o.state.CurrentRound = round
	if o.onRoundStart != nil {
		o.onRoundStart(round)
	}
	o.log("roundStart", fmt.Sprintf("round %d (%s) starting", round.Number, round.Phase), nil)

	return round
}

// generatePlan builds the appropriate prompt, calls the model, and parses
// the result. On refiner rounds it also runs locking validation and logs
// any violations without aborting.
func (o *Orchestrator) generatePlan(ctx context.Context, round RoundState, goal, runContext string) (Plan, error) {
	var prompt string
	if round.Phase == PhaseArchitect {
		prompt = BuildArchitectPrompt(goal, runContext)
	} else {
		previous := o.lastArchivedPlan()
		prompt = BuildRefinerPrompt(goal, runContext, *round.LockedStructure, *previous)
	}

	text, err := o.callModel(ctx, prompt)
	if err != nil {
		return Plan{}, &ModelCallError{Phase: round.Phase, Err: err}
	}

	plan, err := ParsePlan(text)
	if err != nil {
		return Plan{}, err
	}

	if round.Phase == PhaseRefiner {
		violations := ValidateRefinedPlan(plan, *round.LockedStructure)
		for _, v := range violations {
			o.log("lockingViolation", v, map[string]interface{}{"round": round.Number})
		}
	}

	return plan, nil
}

// lastArchivedPlan returns the plan of the most recently archived round,
// or nil if no round has been archived yet.
func (o *Orchestrator) lastArchivedPlan() *Plan {
	if len(o.state.RoundHistory) == 0 {
		return nil
	}
	return o.state.RoundHistory[len(o.state.RoundHistory)-1].Plan
}

// fail marks the run as failed. Per the error-handling contract, a
// propagating error (ModelCallError or PlanParseError) ends the run with
// success=false and terminationReason=maxRoundsReached as a sentinel,
// while the error itself is surfaced verbatim to the caller.
func (o *Orchestrator) fail(err error, lastStability float64) (ExecutionResult, error) {
	result := ExecutionResult{
		Success:           false,
		Output:            err.Error(),
		Round:             o.state.CurrentRound.Number,
		Stability:         lastStability,
		Terminated:        true,
		TerminationReason: ReasonMaxRoundsReached,
	}
	o.state.IsRunning = false
	o.state.LastResult = &result
	o.log("error", err.Error(), nil)
	if o.onTerminate != nil {
		o.onTerminate(result)
	}
	return result, err
}

func (o *Orchestrator) log(eventType, message string, data map[string]interface{}) {
	if o.onLog != nil {
		o.onLog(LogEvent{Type: eventType, Message: message, Data: data})
	}
}

// deepCopyRoundState copies a RoundState and everything it points to, so
// archived rounds in roundHistory are immune to later mutation of the
// live round.
func deepCopyRoundState(r RoundState) RoundState {
	cp := r

	if r.Plan != nil {
		plan := *r.Plan
		plan.Goals = append([]string(nil), r.Plan.Goals...)
		plan.Constraints = append([]string(nil), r.Plan.Constraints...)
		plan.Tasks = append([]PlanTask(nil), r.Plan.Tasks...)
		cp.Plan = &plan
	}
	if r.Evaluation != nil {
		eval := *r.Evaluation
		eval.Contradictions = append([]string(nil), r.Evaluation.Contradictions...)
		eval.Missing = append([]string(nil), r.Evaluation.Missing...)
		eval.Risks = append([]string(nil), r.Evaluation.Risks...)
		cp.Evaluation = &eval
	}
	if r.Stability != nil {
		stability := *r.Stability
		cp.Stability = &stability
	}
	if r.LockedStructure != nil {
		locked := *r.LockedStructure
		locked.Goals = append([]string(nil), r.LockedStructure.Goals...)
		locked.CoreDecisions = append([]string(nil), r.LockedStructure.CoreDecisions...)
		cp.LockedStructure = &locked
	}

	return cp
}
