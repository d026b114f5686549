package convergence

// DecisionConfig parameterizes the Decision Engine's termination rules.
type DecisionConfig struct {
	MaxRounds           int
	StabilityThreshold  float64
	GoalDivergenceLimit int
}

// DefaultDecisionConfig returns the spec's default thresholds.
func DefaultDecisionConfig() DecisionConfig {
	return DecisionConfig{
		MaxRounds:           3,
		StabilityThreshold:  0.85,
		GoalDivergenceLimit: 2,
	}
}

const taskCompleteConfidence = 0.95
const goalDivergingConfidence = 0.85
const contradictionTrendUpConfidence = 0.75

// Decide applies the termination rules in strict priority order; the
// first matching rule determines the result.
func Decide(currentRoundNumber int, roundHistory []RoundState, latestEval BlindEvaluation, latestStability StabilityMetrics, cfg DecisionConfig) TerminationDecision {
	if len(latestEval.Missing) == 0 && len(latestEval.Contradictions) == 0 {
		return TerminationDecision{ShouldTerminate: true, Reason: ReasonTaskComplete, Confidence: taskCompleteConfidence}
	}

	if latestStability.OverallStability >= cfg.StabilityThreshold {
		return TerminationDecision{ShouldTerminate: true, Reason: ReasonStabilityAchieved, Confidence: latestStability.OverallStability}
	}

	if currentRoundNumber >= cfg.MaxRounds {
		return TerminationDecision{ShouldTerminate: true, Reason: ReasonMaxRoundsReached, Confidence: 1.0}
	}

	if goalDivergingTailLength(roundHistory, latestEval) >= cfg.GoalDivergenceLimit {
		return TerminationDecision{ShouldTerminate: true, Reason: ReasonGoalDiverging, Confidence: goalDivergingConfidence}
	}

	if contradictionTrendUp(roundHistory, latestEval) {
		return TerminationDecision{ShouldTerminate: true, Reason: ReasonContradictionTrendUp, Confidence: contradictionTrendUpConfidence}
	}

	return TerminationDecision{ShouldTerminate: false, Reason: ReasonContinue, Confidence: 1 - latestStability.OverallStability}
}

// goalDivergingTailLength counts the trailing run of evaluations (archived
// history followed by the current one) whose vsGoal is "farther".
func goalDivergingTailLength(roundHistory []RoundState, latestEval BlindEvaluation) int {
	if latestEval.VsGoal != CompareFarther {
		return 0
	}

	tail := 1
	for i := len(roundHistory) - 1; i >= 0; i-- {
		eval := roundHistory[i].Evaluation
		if eval == nil || eval.VsGoal != CompareFarther {
			break
		}
		tail++
	}
	return tail
}

// contradictionTrendUp fires only when at least two archived rounds exist,
// contradiction counts are monotonically non-decreasing across them, and
// the current round's count is strictly greater than the last archived
// round's count. A short history never vacuously satisfies this rule.
func contradictionTrendUp(roundHistory []RoundState, latestEval BlindEvaluation) bool {
	if len(roundHistory) < 2 {
		return false
	}

	last := roundHistory[len(roundHistory)-1]
	secondLast := roundHistory[len(roundHistory)-2]
	if last.Evaluation == nil || secondLast.Evaluation == nil {
		return false
	}

	secondLastCount := len(secondLast.Evaluation.Contradictions)
	lastCount := len(last.Evaluation.Contradictions)
	currentCount := len(latestEval.Contradictions)

	nonDecreasing := secondLastCount <= lastCount
	strictGrowthAtEnd := currentCount > lastCount

	return nonDecreasing && strictGrowthAtEnd
}

// Warning is a post-hoc, non-fatal observation about a termination
// decision. It never changes the decision itself.
type Warning string

const lowConfidenceThreshold = 0.7

// ValidateTerminationDecision emits warnings about a termination decision
// without altering it.
func ValidateTerminationDecision(decision TerminationDecision, eval BlindEvaluation) []Warning {
	var warnings []Warning

	if !decision.ShouldTerminate {
		return warnings
	}

	if len(eval.Missing) > 0 && decision.Reason != ReasonMaxRoundsReached {
		warnings = append(warnings, "terminating with missing items remaining")
	}
	if decision.Confidence < lowConfidenceThreshold {
		warnings = append(warnings, "terminating with low confidence")
	}
	if len(eval.Risks) > 0 {
		warnings = append(warnings, "terminating while risks exist")
	}

	return warnings
}
