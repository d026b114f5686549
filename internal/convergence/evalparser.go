package convergence

import "encoding/json"

// ParseEvaluation extracts a BlindEvaluation from free-form model text. It
// locates the first balanced brace block and reads the keyed fields
// "vs_previous", "vs_goal", "contradictions", "missing", "risks". Enum
// fields fall back to the neutral middle value when absent or
// unrecognized; list fields keep only their string entries and are
// truncated to 10 entries. Unlike ParsePlan, this never returns an error: any failure to
// locate or parse a brace block yields the conservative default, since an
// unparseable evaluation is an expected, not exceptional, outcome.
func ParseEvaluation(text string) BlindEvaluation {
	block, ok := firstBalancedBraceBlock(text)
	if !ok {
		return conservativeDefault()
	}

	var raw struct {
		VsPrevious     string        `json:"vs_previous"`
		VsGoal         string        `json:"vs_goal"`
		Contradictions []interface{} `json:"contradictions"`
		Missing        []interface{} `json:"missing"`
		Risks          []interface{} `json:"risks"`
	}
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return conservativeDefault()
	}

	return BlindEvaluation{
		VsPrevious:     normalizeVsPrevious(raw.VsPrevious),
		VsGoal:         normalizeVsGoal(raw.VsGoal),
		Contradictions: truncateStrings(filterStrings(raw.Contradictions)),
		Missing:        truncateStrings(filterStrings(raw.Missing)),
		Risks:          truncateStrings(filterStrings(raw.Risks)),
	}
}

func normalizeVsPrevious(v string) Comparison {
	switch Comparison(v) {
	case CompareBetter, CompareWorse:
		return Comparison(v)
	default:
		return CompareSame
	}
}

func normalizeVsGoal(v string) Comparison {
	switch Comparison(v) {
	case CompareCloser, CompareFarther:
		return Comparison(v)
	default:
		return CompareSame
	}
}

func truncateStrings(items []string) []string {
	if len(items) > maxListLen {
		return items[:maxListLen]
	}
	return items
}
