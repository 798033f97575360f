package enrichment

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	DefaultFlagCategory = "data-flow"
	DefaultFlagSeverity = "info"
	DefaultSourceLabel  = "Transcript analysis"

	fallbackSummaryChars = 500
)

var (
	flagCategories = map[string]bool{"permissions": true, "import-export": true, "hierarchy": true, "data-flow": true}
	flagSeverities = map[string]bool{"critical": true, "warning": true, "info": true}

	fencePattern = regexp.MustCompile("^```[A-Za-z0-9_-]*\\s*|\\s*```$")
)

// RawLogicFlag is a flag as emitted by a provider, before any checks.
type RawLogicFlag struct {
	ID       any `json:"id"`
	Category any `json:"category"`
	Severity any `json:"severity"`
	Message  any `json:"message"`
	Source   any `json:"source"`
}

// NormalizeLogicFlags coerces provider output into the stored flag schema.
// Unknown categories and severities fall back to data-flow and info, missing
// ids become lf-N (1-based position) and missing sources take sourceLabel.
func NormalizeLogicFlags(raw []RawLogicFlag, sourceLabel string) []LogicFlag {
	if sourceLabel == "" {
		sourceLabel = DefaultSourceLabel
	}
	out := make([]LogicFlag, 0, len(raw))
	for i, f := range raw {
		flag := LogicFlag{
			ID:       idString(f.ID),
			Category: strings.ToLower(asString(f.Category)),
			Severity: strings.ToLower(asString(f.Severity)),
			Message:  asString(f.Message),
			Source:   asString(f.Source),
		}
		if flag.ID == "" {
			flag.ID = fmt.Sprintf("lf-%d", i+1)
		}
		if !flagCategories[flag.Category] {
			flag.Category = DefaultFlagCategory
		}
		if !flagSeverities[flag.Severity] {
			flag.Severity = DefaultFlagSeverity
		}
		if flag.Message == "" {
			flag.Message = "Flag"
		}
		if flag.Source == "" {
			flag.Source = sourceLabel
		}
		out = append(out, flag)
	}
	return out
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func idString(v any) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%v", f)
	}
	return asString(v)
}

// NormalizeSegments drops empty segments, orders them by start and makes
// sure no segment ends before it starts.
func NormalizeSegments(in []Segment) []Segment {
	out := make([]Segment, 0, len(in))
	for _, s := range in {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			continue
		}
		if s.Start < 0 {
			s.Start = 0
		}
		if s.End < s.Start {
			s.End = s.Start
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// WordCount counts whitespace separated tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

type rawAnalysis struct {
	Summary      any             `json:"summary"`
	KeyDecisions json.RawMessage `json:"keyDecisions"`
	Risks        json.RawMessage `json:"risks"`
	Dependencies json.RawMessage `json:"dependencies"`
	LogicFlags   json.RawMessage `json:"logicFlags"`
}

// ParseAnalysis turns a provider's text reply into an AnalysisResult.
// Markdown fences are stripped first. A reply that is not a JSON object
// degrades to its first 500 characters as the summary with empty lists;
// malformed lists degrade to empty lists.
func ParseAnalysis(text, sourceLabel string) AnalysisResult {
	cleaned := strings.TrimSpace(fencePattern.ReplaceAllString(strings.TrimSpace(text), ""))

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return AnalysisResult{
			Summary:      TruncateRunes(strings.TrimSpace(text), fallbackSummaryChars),
			KeyDecisions: []Decision{},
			Risks:        []Risk{},
			Dependencies: []Dependency{},
			LogicFlags:   []LogicFlag{},
		}
	}

	res := AnalysisResult{
		Summary:      asString(raw.Summary),
		KeyDecisions: decodeList[Decision](raw.KeyDecisions),
		Risks:        decodeList[Risk](raw.Risks),
		Dependencies: decodeList[Dependency](raw.Dependencies),
	}
	res.LogicFlags = NormalizeLogicFlags(decodeList[RawLogicFlag](raw.LogicFlags), sourceLabel)
	return res
}

func decodeList[T any](msg json.RawMessage) []T {
	out := []T{}
	if len(msg) == 0 {
		return out
	}
	var items []json.RawMessage
	if err := json.Unmarshal(msg, &items); err != nil {
		return out
	}
	for _, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// TruncateRunes cuts s to at most n characters without splitting a rune.
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
