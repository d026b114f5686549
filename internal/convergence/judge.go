package convergence

import (
	"fmt"
	"strings"
)

// BuildEvaluationPrompt builds the blind-judge prompt from the current
// plan, the optional previous plan, the goal, and the optional locked
// structure. The prompt is an explicit contract: qualitative assessment
// only, no numeric scores.
func BuildEvaluationPrompt(goal string, current Plan, previous *Plan, locked *LockedStructure) string {
	var b strings.Builder

	b.WriteString("You are a blind judge evaluating a plan. You must provide qualitative\n")
	b.WriteString("assessments only; do not provide numeric scores of any kind.\n\n")
	fmt.Fprintf(&b, "Goal: %s\n\n", goal)

	b.WriteString("Plan under evaluation:\n")
	b.WriteString(serializePlanForPrompt(current))

	if previous != nil {
		b.WriteString("\nPrevious round's plan, for comparison:\n")
		b.WriteString(serializePlanForPrompt(*previous))
	}

	if locked != nil {
		b.WriteString("\nLocked structure this plan must respect:\n")
		for _, g := range locked.Goals {
			fmt.Fprintf(&b, "  - goal: %s\n", g)
		}
		for _, d := range locked.CoreDecisions {
			fmt.Fprintf(&b, "  - core decision: %s\n", d)
		}
	}

	b.WriteString("\nProduce a JSON object with exactly these keys: \"vs_previous\" (better|same|worse),\n")
	b.WriteString("\"vs_goal\" (closer|same|farther), \"contradictions\" (array of strings),\n")
	b.WriteString("\"missing\" (array of strings), \"risks\" (array of strings).\n")

	return b.String()
}

// ConcernSeverity classifies how urgently a detected concern should be
// surfaced.
type ConcernSeverity string

const (
	ConcernLow    ConcernSeverity = "low"
	ConcernMedium ConcernSeverity = "medium"
	ConcernHigh   ConcernSeverity = "high"
)

// Concern is an advisory pattern detected across a window of evaluations.
// Concerns never drive termination directly: the Decision Engine computes
// its own conditions from raw state.
type Concern struct {
	Description string
	Severity    ConcernSeverity
}

const (
	manyContradictionsThreshold = 5
	manyMissingThreshold        = 10
	manyRisksThreshold          = 5
)

// DetectConcerns inspects the latest evaluation against a window of prior
// evaluations (oldest first) and emits structured, advisory concerns.
func DetectConcerns(history []BlindEvaluation, latest BlindEvaluation) []Concern {
	var concerns []Concern

	if latest.VsPrevious == CompareWorse {
		concerns = append(concerns, Concern{Description: "plan degrading", Severity: ConcernMedium})
	}
	if latest.VsGoal == CompareFarther {
		concerns = append(concerns, Concern{Description: "plan diverging", Severity: ConcernHigh})
	}

	if len(history) > 0 {
		prior := history[len(history)-1]
		if len(latest.Contradictions) > len(prior.Contradictions) {
			concerns = append(concerns, Concern{Description: "contradictions increasing", Severity: ConcernMedium})
		}
	}

	if len(latest.Contradictions) >= manyContradictionsThreshold {
		concerns = append(concerns, Concern{Description: "too many contradictions", Severity: ConcernHigh})
	}
	if len(latest.Missing) >= manyMissingThreshold {
		concerns = append(concerns, Concern{Description: "many elements missing", Severity: ConcernMedium})
	}
	if len(latest.Risks) >= manyRisksThreshold {
		concerns = append(concerns, Concern{Description: "multiple risks", Severity: ConcernMedium})
	}

	return concerns
}
