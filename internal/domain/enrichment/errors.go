package enrichment

import "errors"

var (
	ErrTranscriptNotFound = errors.New("transcript not found")
	ErrAnalysisNotFound   = errors.New("analysis not found")
	ErrEmptyTranscript    = errors.New("transcription returned empty text")
	ErrEmptySummary       = errors.New("analysis returned empty summary")
)
