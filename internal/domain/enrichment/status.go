package enrichment

// Status is the lifecycle state of one pipeline stage.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// AllStatuses lists every stage state, including the implicit not_started.
var AllStatuses = []Status{StatusNotStarted, StatusProcessing, StatusCompleted, StatusFailed}

// Overall folds the two stage states into one. Failure dominates, then
// in-flight work; only two completed stages count as completed.
func Overall(transcript, analysis Status) Status {
	switch {
	case transcript == StatusFailed || analysis == StatusFailed:
		return StatusFailed
	case transcript == StatusProcessing || analysis == StatusProcessing:
		return StatusProcessing
	case transcript == StatusCompleted && analysis == StatusCompleted:
		return StatusCompleted
	default:
		return StatusNotStarted
	}
}

// normalize maps stored values onto the stage state machine. Unknown values
// are treated as in flight.
func normalize(s Status) Status {
	switch s {
	case StatusCompleted, StatusFailed, StatusProcessing:
		return s
	case "":
		return StatusNotStarted
	default:
		return StatusProcessing
	}
}

// ProcessingStatus is the polling view of a file's pipeline state.
type ProcessingStatus struct {
	FileID                 string  `json:"fileId"`
	TranscriptStatus       Status  `json:"transcriptStatus"`
	AnalysisStatus         Status  `json:"analysisStatus"`
	Overall                Status  `json:"overall"`
	TranscriptErrorMessage *string `json:"transcriptErrorMessage"`
	AnalysisErrorMessage   *string `json:"analysisErrorMessage"`
}
