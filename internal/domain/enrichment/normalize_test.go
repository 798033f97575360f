package enrichment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLogicFlagsCoercesUnknownValues(t *testing.T) {
	flags := NormalizeLogicFlags([]RawLogicFlag{
		{ID: "x-1", Category: "permissions", Severity: "critical", Message: "RBAC gap", Source: "call"},
		{Category: "nonsense", Severity: "LOUD"},
		{ID: 7.0, Category: "Hierarchy", Severity: "Warning", Message: 42.0},
	}, "weekly.mp3")

	require.Len(t, flags, 3)
	assert.Equal(t, LogicFlag{ID: "x-1", Category: "permissions", Severity: "critical", Message: "RBAC gap", Source: "call"}, flags[0])
	assert.Equal(t, LogicFlag{ID: "lf-2", Category: "data-flow", Severity: "info", Message: "Flag", Source: "weekly.mp3"}, flags[1])
	assert.Equal(t, "7", flags[2].ID)
	assert.Equal(t, "hierarchy", flags[2].Category)
	assert.Equal(t, "warning", flags[2].Severity)
	assert.Equal(t, "Flag", flags[2].Message)
}

func TestNormalizeSegments(t *testing.T) {
	out := NormalizeSegments([]Segment{
		{Start: 5, End: 6, Text: "second"},
		{Start: 1, End: 0.5, Text: " first "},
		{Start: 3, End: 4, Text: "   "},
	})

	require.Len(t, out, 2)
	assert.Equal(t, Segment{Start: 1, End: 1, Text: "first"}, out[0])
	assert.Equal(t, "second", out[1].Text)
	for i := 1; i < len(out); i++ {
		assert.LessOrEqual(t, out[i-1].Start, out[i].Start)
	}
}

func TestParseAnalysisStripsFences(t *testing.T) {
	reply := "```json\n" + `{
  "summary": "Team agreed on the export format.",
  "keyDecisions": [{"title": "CSV export", "description": "ship first"}, "not an object"],
  "risks": [{"title": "Late data", "severity": "warning"}],
  "dependencies": [{"name": "Billing API"}],
  "logicFlags": [{"category": "import-export", "severity": "critical", "message": "Missing columns"}]
}` + "\n```"

	res := ParseAnalysis(reply, "sync.mp3")

	assert.Equal(t, "Team agreed on the export format.", res.Summary)
	require.Len(t, res.KeyDecisions, 1)
	assert.Equal(t, "CSV export", res.KeyDecisions[0].Title)
	require.Len(t, res.Risks, 1)
	assert.Equal(t, "warning", res.Risks[0].Severity)
	require.Len(t, res.Dependencies, 1)
	require.Len(t, res.LogicFlags, 1)
	assert.Equal(t, LogicFlag{ID: "lf-1", Category: "import-export", Severity: "critical", Message: "Missing columns", Source: "sync.mp3"}, res.LogicFlags[0])
}

func TestParseAnalysisFallsBackOnInvalidJSON(t *testing.T) {
	reply := strings.Repeat("é", 600)
	res := ParseAnalysis(reply, "x")

	assert.Equal(t, 500, len([]rune(res.Summary)))
	assert.NotNil(t, res.KeyDecisions)
	assert.Empty(t, res.KeyDecisions)
	assert.Empty(t, res.Risks)
	assert.Empty(t, res.Dependencies)
	assert.Empty(t, res.LogicFlags)
}

func TestParseAnalysisMalformedListsDegradeToEmpty(t *testing.T) {
	res := ParseAnalysis(`{"summary":"ok","risks":"none","logicFlags":{"id":1}}`, "x")

	assert.Equal(t, "ok", res.Summary)
	assert.Empty(t, res.Risks)
	assert.Empty(t, res.LogicFlags)
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount("   "))
	assert.Equal(t, 3, WordCount(" one two\nthree "))
}
