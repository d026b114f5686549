package convergence

import (
	"encoding/json"
	"time"
)

// ParsePlan extracts a structured Plan from free-form model text. It locates
// the first balanced brace block in the text and interprets it as a keyed
// structure with entries "goals", "tasks", and "constraints". Failure to
// locate a brace block, or to parse it as structured JSON, fails with a
// *PlanParseError.
func ParsePlan(text string) (Plan, error) {
	block, ok := firstBalancedBraceBlock(text)
	if !ok {
		return Plan{}, &PlanParseError{Reason: "no balanced brace block found", Raw: text}
	}

	var raw struct {
		Goals       []interface{} `json:"goals"`
		Tasks       []interface{} `json:"tasks"`
		Constraints []interface{} `json:"constraints"`
	}
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return Plan{}, &PlanParseError{Reason: "brace block is not valid structured data: " + err.Error(), Raw: block}
	}

	plan := Plan{
		ID:          newPlanID(),
		Goals:       filterStrings(raw.Goals),
		Constraints: filterStrings(raw.Constraints),
		CreatedAt:   time.Now(),
	}

	for _, rawTask := range raw.Tasks {
		plan.Tasks = append(plan.Tasks, parseTask(rawTask))
	}

	return plan, nil
}

func parseTask(raw interface{}) PlanTask {
	task := PlanTask{
		ID:          newTaskID(),
		Description: "Unknown task",
		Priority:    PriorityMedium,
		Status:      TaskStatusPending,
	}

	obj, ok := raw.(map[string]interface{})
	if !ok {
		return task
	}

	if desc, ok := obj["description"].(string); ok && desc != "" {
		task.Description = desc
	}

	if priority, ok := obj["priority"].(string); ok && isValidPriority(priority) {
		task.Priority = Priority(priority)
	}

	if deps, ok := obj["dependencies"].([]interface{}); ok {
		task.Dependencies = filterStrings(deps)
	}

	return task
}

// filterStrings keeps only the string-typed entries of a loosely-typed
// JSON array, in order.
func filterStrings(items []interface{}) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
