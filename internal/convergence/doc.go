// Package convergence implements a round-based planning core that drives a
// large language model to convergence on a plan for a user-supplied goal.
//
// # Overview
//
// Each round runs the same five steps in strict order:
//
//	Planner builds a prompt → callModel → Plan Parser
//	           ↓ (round 1 only: lock structure)
//	Blind Judge builds a prompt → callModel → Evaluation Parser
//	           ↓
//	Stability Tracker composes four signals into one scalar
//	           ↓
//	Decision Engine applies prioritized termination rules
//
// The Orchestrator sequences these steps, archives completed rounds, and
// either loops or terminates with an ExecutionResult.
//
// # Design decisions
//
//  1. Locked structure: round 1 establishes goals and core decisions that
//     every later round must preserve. This keeps the model from quietly
//     abandoning the problem it was asked to solve.
//  2. Blind judging: the evaluator never sees or produces a numeric score,
//     only qualitative enums and string lists, which resists the evaluated
//     model learning to game a metric.
//  3. Single scalar stability: four independent signals (contradiction
//     level, decision reuse, structural plan similarity, goal convergence)
//     are combined into one number so termination rules stay simple.
//  4. Fixed rule priority: six termination reasons compete; the first
//     matching rule wins, so the same state never yields two answers.
package convergence
