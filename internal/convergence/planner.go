package convergence

import (
	"fmt"
	"strings"
)

// BuildArchitectPrompt builds the round-1 prompt. It asks for a JSON object
// with exactly the keys goals, tasks, constraints, declares that the
// structure will be locked, and asks the model to prioritize correctness
// over completeness.
func BuildArchitectPrompt(goal, context string) string {
	var b strings.Builder

	b.WriteString("You are the architect for a multi-round planning session.\n\n")
	fmt.Fprintf(&b, "Goal: %s\n", goal)
	if context != "" {
		fmt.Fprintf(&b, "Context: %s\n", context)
	}
	b.WriteString("\nProduce a JSON object with exactly these keys: \"goals\", \"tasks\", \"constraints\".\n")
	b.WriteString("- goals: an array of goal strings\n")
	b.WriteString("- tasks: an array of objects with \"description\", \"priority\" (high|medium|low), and \"dependencies\"\n")
	b.WriteString("- constraints: an array of constraint strings\n\n")
	b.WriteString("IMPORTANT: this structure will be LOCKED after this round. Every goal and constraint\n")
	b.WriteString("you state here will bind every later round of refinement. Prioritize correctness over\n")
	b.WriteString("completeness: it is better to commit to a smaller, correct structure than a larger,\n")
	b.WriteString("speculative one.\n")

	return b.String()
}

// BuildRefinerPrompt builds a refiner-round prompt. It includes the goal,
// the locked structure with an explicit "DO NOT CHANGE" clause, and the
// previous plan, and explains what may and may not change.
//
// Calling this without both a previous plan and a locked structure is a
// programming error in the caller (the orchestrator never does so): it
// panics rather than returning a recoverable error.
func BuildRefinerPrompt(goal, context string, locked LockedStructure, previous Plan) string {
	if previous.ID == "" {
		panic("convergence: BuildRefinerPrompt called without a previous plan")
	}
	if len(locked.Goals) == 0 && len(locked.CoreDecisions) == 0 {
		panic("convergence: BuildRefinerPrompt called without a locked structure")
	}

	var b strings.Builder

	b.WriteString("You are refining a plan across multiple rounds.\n\n")
	fmt.Fprintf(&b, "Goal: %s\n", goal)
	if context != "" {
		fmt.Fprintf(&b, "Context: %s\n", context)
	}

	b.WriteString("\nLOCKED STRUCTURE (DO NOT CHANGE):\n")
	b.WriteString("Goals:\n")
	for _, g := range locked.Goals {
		fmt.Fprintf(&b, "  - %s\n", g)
	}
	b.WriteString("Core decisions:\n")
	for _, d := range locked.CoreDecisions {
		fmt.Fprintf(&b, "  - %s\n", d)
	}

	b.WriteString("\nPrevious plan:\n")
	b.WriteString(serializePlanForPrompt(previous))

	b.WriteString("\nYou may: add new tasks, change task wording or priority, add clarifying\n")
	b.WriteString("constraints. You may NOT: remove any locked goal or locked core decision.\n\n")
	b.WriteString("Produce a JSON object with exactly these keys: \"goals\", \"tasks\", \"constraints\".\n")

	return b.String()
}

func serializePlanForPrompt(p Plan) string {
	var b strings.Builder
	b.WriteString("Goals:\n")
	for _, g := range p.Goals {
		fmt.Fprintf(&b, "  - %s\n", g)
	}
	b.WriteString("Tasks:\n")
	for _, t := range p.Tasks {
		fmt.Fprintf(&b, "  - [%s] %s\n", t.Priority, t.Description)
	}
	b.WriteString("Constraints:\n")
	for _, c := range p.Constraints {
		fmt.Fprintf(&b, "  - %s\n", c)
	}
	return b.String()
}

// minKeywordTokenLen is the token length a keyword must exceed to be kept
// when checking whether a core decision's keywords still appear somewhere
// in a refined plan.
const minKeywordTokenLen = 4

// ValidateRefinedPlan checks a refined plan against the locked structure,
// returning a list of violation descriptions. It never aborts the round:
// violations are informational for the orchestrator to log.
func ValidateRefinedPlan(plan Plan, locked LockedStructure) []string {
	var violations []string

	lowerGoals := toLowerSet(plan.Goals)
	for _, goal := range locked.Goals {
		if !lowerGoals[strings.ToLower(goal)] {
			violations = append(violations, fmt.Sprintf("Locked goal removed: %q", goal))
		}
	}

	serialized := strings.ToLower(serializePlanForPrompt(plan))
	for _, decision := range locked.CoreDecisions {
		tokens := keywordTokens(decision)
		if len(tokens) == 0 {
			continue
		}
		present := 0
		for _, token := range tokens {
			if strings.Contains(serialized, token) {
				present++
			}
		}
		if present*2 < len(tokens) {
			violations = append(violations, fmt.Sprintf("Core decision may be violated: %q", decision))
		}
	}

	return violations
}

func keywordTokens(decision string) []string {
	var tokens []string
	for _, word := range strings.Fields(decision) {
		lower := strings.ToLower(word)
		if len(lower) > minKeywordTokenLen {
			tokens = append(tokens, lower)
		}
	}
	return tokens
}
