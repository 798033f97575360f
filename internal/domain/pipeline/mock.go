package pipeline

import (
	"fmt"

	"intakeflow/internal/domain/enrichment"
)

const mockModel = "mock"

func mockTranscript(filename string) *enrichment.TranscriptResult {
	lang := "zh"
	return &enrichment.TranscriptResult{
		Text:     fmt.Sprintf("[Mock] Placeholder transcript for development; no speech provider was called. File: %s", filename),
		Language: &lang,
		Segments: []enrichment.Segment{},
		Model:    mockModel,
	}
}

func mockAnalysis(sourceLabel string) *enrichment.AnalysisResult {
	return &enrichment.AnalysisResult{
		Summary:      "[Mock] Development summary; no analysis provider was called.",
		KeyDecisions: []enrichment.Decision{{Title: "Mock decision", Description: "Used to exercise the pipeline"}},
		Risks:        []enrichment.Risk{{Title: "Mock risk", Severity: "info", Description: "Test data"}},
		Dependencies: []enrichment.Dependency{{Name: "Mock dependency", Description: "Test data"}},
		LogicFlags: []enrichment.LogicFlag{{
			ID:       "mock-1",
			Category: enrichment.DefaultFlagCategory,
			Severity: enrichment.DefaultFlagSeverity,
			Message:  "Mock logic flag; no analysis provider was called",
			Source:   sourceLabel,
		}},
		Model: mockModel,
	}
}
