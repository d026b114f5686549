package convergence

import (
	"math"
	"strings"
)

// Weights for the convex combination in ComputeStability. They must sum
// to 1.00; init below asserts this at startup.
const (
	weightContradiction  = 0.30
	weightDecisionReuse  = 0.25
	weightPlanSimilarity = 0.25
	weightGoalConvergence = 0.20
)

func init() {
	const sum = weightContradiction + weightDecisionReuse + weightPlanSimilarity + weightGoalConvergence
	if math.Abs(sum-1.0) > 1e-9 {
		panic("convergence: stability weights must sum to 1.00")
	}
}

// Status bands for overall stability.
type Status string

const (
	StatusStable      Status = "stable"
	StatusConverging  Status = "converging"
	StatusUnstable    Status = "unstable"
)

// neutralPlanSignal is returned by decisionReuseRate and planSimilarity
// when there is no previous plan to compare against (round 1).
const neutralPlanSignal = 0.5

// ComputeStability composes the four normalized signals into a single
// stability scalar, rounded to two decimals.
func ComputeStability(current Plan, previous *Plan, eval BlindEvaluation) StabilityMetrics {
	contradictionRatio := contradictionRatio(eval)
	reuseRate := decisionReuseRate(current, previous)
	planSim := planSimilarity(current, previous)
	convergence := goalConvergence(eval)

	overall := weightContradiction*(1-contradictionRatio) +
		weightDecisionReuse*reuseRate +
		weightPlanSimilarity*planSim +
		weightGoalConvergence*convergence

	return StabilityMetrics{
		ContradictionRatio: contradictionRatio,
		DecisionReuseRate:  reuseRate,
		PlanSimilarity:     planSim,
		GoalConvergence:    convergence,
		OverallStability:   roundTo2(overall),
	}
}

// StabilityStatus bands an overall stability score.
func StabilityStatus(overall, autoTerminateThreshold float64) Status {
	switch {
	case overall >= autoTerminateThreshold:
		return StatusStable
	case overall >= 0.70:
		return StatusConverging
	default:
		return StatusUnstable
	}
}

func contradictionRatio(eval BlindEvaluation) float64 {
	const cap = 5.0
	ratio := float64(len(eval.Contradictions)) / cap
	if ratio > 1.0 {
		ratio = 1.0
	}
	return ratio
}

func decisionReuseRate(current Plan, previous *Plan) float64 {
	if previous == nil {
		return neutralPlanSignal
	}

	prevPool := flattenPlanItems(*previous)
	currItems := flattenPlanItems(current)

	if len(currItems) == 0 {
		return neutralPlanSignal
	}

	reused := 0
	for _, item := range currItems {
		if fuzzyContains(prevPool, item) {
			reused++
		}
	}

	return float64(reused) / float64(len(currItems))
}

func flattenPlanItems(p Plan) []string {
	items := make([]string, 0, len(p.Goals)+len(p.Constraints)+len(p.Tasks))
	items = append(items, p.Goals...)
	items = append(items, p.Constraints...)
	for _, t := range p.Tasks {
		items = append(items, strings.ToLower(t.Description))
	}
	return items
}

func planSimilarity(current Plan, previous *Plan) float64 {
	if previous == nil {
		return neutralPlanSignal
	}

	goalSim := jaccardSimilarity(current.Goals, previous.Goals)
	constraintSim := jaccardSimilarity(current.Constraints, previous.Constraints)

	taskCountA, taskCountB := len(current.Tasks), len(previous.Tasks)
	maxTasks := taskCountA
	if taskCountB > maxTasks {
		maxTasks = taskCountB
	}
	if maxTasks < 1 {
		maxTasks = 1
	}
	taskDiff := math.Abs(float64(taskCountA - taskCountB))
	taskSim := 1 - taskDiff/float64(maxTasks)

	return (goalSim + constraintSim + taskSim) / 3.0
}

func goalConvergence(eval BlindEvaluation) float64 {
	return 0.7*comparisonScore(eval.VsGoal) + 0.3*comparisonScore(eval.VsPrevious)
}

func comparisonScore(c Comparison) float64 {
	switch c {
	case CompareCloser, CompareBetter:
		return 1.0
	case CompareFarther, CompareWorse:
		return 0.0
	default:
		return 0.5
	}
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
