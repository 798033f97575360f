package intake

import (
	"time"

	"intakeflow/internal/domain/enrichment"
)

const (
	defaultLimit = 20
	maxLimit     = 100
	maxTitle     = 500
	oneLineChars = 100
)

type ListQuery struct {
	ProjectID string `form:"projectId" validate:"omitempty,max=64"`
	Status    string `form:"status" validate:"omitempty,oneof=processing completed transcript_ok_analysis_failed failed"`
	Limit     int    `form:"limit" validate:"omitempty,min=1,max=100"`
	Offset    int    `form:"offset" validate:"omitempty,min=0"`
}

func (q *ListQuery) applyDefaults() {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

type CreateRequest struct {
	Title     string `json:"title" validate:"required,max=500"`
	ProjectID string `json:"projectId" validate:"omitempty,max=64"`
}

type ListItem struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	SourceFileID   *string    `json:"sourceFileId"`
	SourceFileName *string    `json:"sourceFileName"`
	Status         Status     `json:"status"`
	SummaryOneLine *string    `json:"summaryOneLine"`
	CompletedAt    *time.Time `json:"completedAt"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type ListResult struct {
	Items  []ListItem `json:"items"`
	Total  int64      `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

type Detail struct {
	ListItem
	ProjectID         *string                 `json:"projectId"`
	CreatedBy         *string                 `json:"createdBy"`
	TranscriptID      *string                 `json:"transcriptId"`
	Transcript        *string                 `json:"transcript"`
	TranscriptStatus  enrichment.Status       `json:"transcriptStatus"`
	AnalysisID        *string                 `json:"analysisId"`
	AnalysisStatus    enrichment.Status       `json:"analysisStatus"`
	AnalysisSummary   *string                 `json:"analysisSummary"`
	KeyDecisions      []enrichment.Decision   `json:"keyDecisions"`
	Risks             []enrichment.Risk       `json:"risks"`
	Dependencies      []enrichment.Dependency `json:"dependencies"`
	LogicFlags        []enrichment.LogicFlag  `json:"logicFlags"`
	SourceFileDeleted bool                    `json:"sourceFileDeleted"`
	MeetingNoteIDs    []string                `json:"meetingNoteIds"`
}
