package convergence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEvaluation_HappyPath(t *testing.T) {
	text := "```json\n" + `{
		"vs_previous": "better",
		"vs_goal": "closer",
		"contradictions": ["x", "y"],
		"missing": [],
		"risks": ["z"]
	}` + "\n```"

	eval := ParseEvaluation(text)
	assert.Equal(t, CompareBetter, eval.VsPrevious)
	assert.Equal(t, CompareCloser, eval.VsGoal)
	assert.Equal(t, []string{"x", "y"}, eval.Contradictions)
	assert.Empty(t, eval.Missing)
	assert.Equal(t, []string{"z"}, eval.Risks)
}

func TestParseEvaluation_UnrecognizedEnumFallsBackToNeutral(t *testing.T) {
	eval := ParseEvaluation(`{"vs_previous": "amazing", "vs_goal": "sideways"}`)
	assert.Equal(t, CompareSame, eval.VsPrevious)
	assert.Equal(t, CompareSame, eval.VsGoal)
}

func TestParseEvaluation_TruncatesListsToTen(t *testing.T) {
	items := make([]string, 15)
	for i := range items {
		items[i] = "\"item\""
	}
	text := `{"contradictions": [` + strings.Join(items, ",") + `]}`

	eval := ParseEvaluation(text)
	assert.Len(t, eval.Contradictions, maxListLen)
}

func TestParseEvaluation_MalformedTextNeverPanicsAndUsesConservativeDefault(t *testing.T) {
	cases := []string{
		"",
		"no braces at all",
		"{unbalanced",
		`{"vs_previous": }`,
	}
	for _, text := range cases {
		eval := ParseEvaluation(text)
		want := conservativeDefault()
		assert.Equal(t, want, eval, "input %q should yield the conservative default", text)
	}
}
