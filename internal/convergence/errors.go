package convergence

import "fmt"

// PlanParseError is returned by the Plan Parser when it cannot locate or
// interpret a structured plan in the model's response. It propagates: the
// run ends with success=false.
type PlanParseError struct {
	Reason string
	Raw    string
}

func (e *PlanParseError) Error() string {
	return fmt.Sprintf("plan parse failed: %s", e.Reason)
}

// ModelCallError wraps a failure from the injected callModel function. It
// propagates: the run ends with success=false.
type ModelCallError struct {
	Phase Phase
	Err   error
}

func (e *ModelCallError) Error() string {
	return fmt.Sprintf("model call failed during %s phase: %v", e.Phase, e.Err)
}

func (e *ModelCallError) Unwrap() error {
	return e.Err
}
