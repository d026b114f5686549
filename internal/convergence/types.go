package convergence

import (
	"time"

	"github.com/google/uuid"
)

// Priority is the urgency of a PlanTask.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func isValidPriority(p string) bool {
	switch Priority(p) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// TaskStatus is present for extensibility; the core never advances it.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
)

// PlanTask is a single unit of work inside a Plan.
type PlanTask struct {
	ID           string
	Description  string
	Priority     Priority
	Status       TaskStatus
	Dependencies []string
}

// Plan is produced once per round and never mutated afterward.
type Plan struct {
	ID          string
	Goals       []string
	Tasks       []PlanTask
	Constraints []string
	CreatedAt   time.Time
}

func newPlanID() string {
	return uuid.NewString()
}

func newTaskID() string {
	return uuid.NewString()
}

// LockedStructure is derived once from the round-1 Plan and is immutable
// for the rest of the run.
type LockedStructure struct {
	Goals          []string
	CoreDecisions  []string
	LockedAtRound  int
}

// deriveLockedStructure captures the goals and core decisions of the
// round-1 plan. coreDecisions is the round-1 plan's constraints verbatim.
func deriveLockedStructure(round1 Plan) LockedStructure {
	goals := make([]string, len(round1.Goals))
	copy(goals, round1.Goals)
	decisions := make([]string, len(round1.Constraints))
	copy(decisions, round1.Constraints)
	return LockedStructure{
		Goals:         goals,
		CoreDecisions: decisions,
		LockedAtRound: 1,
	}
}

// Comparison is the three-way qualitative judgment a BlindEvaluation makes.
type Comparison string

const (
	CompareBetter Comparison = "better"
	CompareSame   Comparison = "same"
	CompareWorse  Comparison = "worse"

	CompareCloser  Comparison = "closer"
	CompareFarther Comparison = "farther"
)

// BlindEvaluation is a qualitative judgment of a plan. It never contains a
// numeric field: the model is never asked for a score.
type BlindEvaluation struct {
	VsPrevious    Comparison
	VsGoal        Comparison
	Contradictions []string
	Missing        []string
	Risks          []string
}

// maxListLen caps each BlindEvaluation list field.
const maxListLen = 10

// conservativeDefault is substituted whenever the Evaluation Parser cannot
// make sense of the model's output. It never raises to the caller.
func conservativeDefault() BlindEvaluation {
	return BlindEvaluation{
		VsPrevious:     CompareSame,
		VsGoal:         CompareSame,
		Contradictions: []string{"Evaluation parsing failed"},
		Missing:        []string{},
		Risks:          []string{"Unable to properly evaluate plan"},
	}
}

// StabilityMetrics are four normalized signals in [0,1] plus their convex
// combination.
type StabilityMetrics struct {
	ContradictionRatio float64
	DecisionReuseRate  float64
	PlanSimilarity     float64
	GoalConvergence    float64
	OverallStability   float64
}

// TerminationReason is one of six outcomes, ranked by priority.
type TerminationReason string

const (
	ReasonStabilityAchieved    TerminationReason = "stabilityAchieved"
	ReasonMaxRoundsReached     TerminationReason = "maxRoundsReached"
	ReasonContradictionTrendUp TerminationReason = "contradictionTrendUp"
	ReasonGoalDiverging        TerminationReason = "goalDiverging"
	ReasonTaskComplete         TerminationReason = "taskComplete"
	ReasonContinue             TerminationReason = "continue"
)

// TerminationDecision is the Decision Engine's verdict for the current round.
type TerminationDecision struct {
	ShouldTerminate bool
	Reason          TerminationReason
	Confidence      float64
}

// Phase distinguishes the architect round (the first) from every refiner
// round that follows it.
type Phase string

const (
	PhaseArchitect Phase = "ARCHITECT"
	PhaseRefiner   Phase = "REFINER"
)

// RoundState captures everything produced during one round.
type RoundState struct {
	Number          int
	Phase           Phase
	Plan            *Plan
	Evaluation      *BlindEvaluation
	Stability       *StabilityMetrics
	LockedStructure *LockedStructure
}

// OrchestratorState is the orchestrator's complete state for one run.
type OrchestratorState struct {
	Goal         string
	Context      string
	CurrentRound RoundState
	RoundHistory []RoundState
	IsRunning    bool
	LastResult   *ExecutionResult
}

// ExecutionResult summarizes a finished (or failed) run.
type ExecutionResult struct {
	Success           bool
	Output            string
	Round             int
	Stability         float64
	Terminated        bool
	TerminationReason TerminationReason
}

// isSuccessReason reports whether a termination reason counts as success.
func isSuccessReason(r TerminationReason) bool {
	return r == ReasonStabilityAchieved || r == ReasonTaskComplete
}
