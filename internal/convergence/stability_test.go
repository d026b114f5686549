package convergence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeStability_FirstRoundUsesNeutralSignalsWhereNoPrevious(t *testing.T) {
	current := Plan{Goals: []string{"A"}, Constraints: []string{"budget"}}
	eval := BlindEvaluation{VsPrevious: CompareSame, VsGoal: CompareSame}

	metrics := ComputeStability(current, nil, eval)

	assert.Equal(t, 0.5, metrics.DecisionReuseRate)
	assert.Equal(t, 0.5, metrics.PlanSimilarity)
	assert.Equal(t, 0.5, metrics.GoalConvergence)
}

func TestComputeStability_AllComponentsAreBounded(t *testing.T) {
	current := Plan{
		Goals:       []string{"A", "B"},
		Constraints: []string{"c1"},
		Tasks:       []PlanTask{{Description: "do a"}, {Description: "do b"}, {Description: "do c"}},
	}
	previous := Plan{
		Goals:       []string{"A"},
		Constraints: []string{"c1", "c2"},
		Tasks:       []PlanTask{{Description: "do a"}},
	}
	eval := BlindEvaluation{
		VsPrevious:     CompareWorse,
		VsGoal:         CompareFarther,
		Contradictions: []string{"x", "y", "z", "w", "v", "u"},
	}

	metrics := ComputeStability(current, &previous, eval)

	for _, v := range []float64{metrics.ContradictionRatio, metrics.DecisionReuseRate, metrics.PlanSimilarity, metrics.GoalConvergence, metrics.OverallStability} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestComputeStability_ContradictionRatioCapsAtOne(t *testing.T) {
	eval := BlindEvaluation{Contradictions: []string{"a", "b", "c", "d", "e", "f", "g"}}
	metrics := ComputeStability(Plan{}, nil, eval)
	assert.Equal(t, 1.0, metrics.ContradictionRatio)
}

func TestComputeStability_IdenticalPlansMaximizeReuseAndSimilarity(t *testing.T) {
	plan := Plan{
		Goals:       []string{"Ship X"},
		Constraints: []string{"budget"},
		Tasks:       []PlanTask{{Description: "do the thing"}},
	}
	eval := BlindEvaluation{VsPrevious: CompareBetter, VsGoal: CompareCloser}

	metrics := ComputeStability(plan, &plan, eval)

	assert.Equal(t, 1.0, metrics.DecisionReuseRate)
	assert.Equal(t, 1.0, metrics.PlanSimilarity)
	assert.Equal(t, 1.0, metrics.GoalConvergence)
}

func TestWeightsSumToOne(t *testing.T) {
	const sum = weightContradiction + weightDecisionReuse + weightPlanSimilarity + weightGoalConvergence
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestStabilityStatus_Bands(t *testing.T) {
	assert.Equal(t, StatusStable, StabilityStatus(0.9, 0.85))
	assert.Equal(t, StatusConverging, StabilityStatus(0.75, 0.85))
	assert.Equal(t, StatusUnstable, StabilityStatus(0.5, 0.85))
}
