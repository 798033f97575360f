package intake

import (
	"time"

	"gorm.io/datatypes"

	"intakeflow/internal/domain/enrichment"
)

// Status is the collapsed, user-facing state of an intake.
type Status string

const (
	StatusProcessing                 Status = "processing"
	StatusCompleted                  Status = "completed"
	StatusTranscriptOKAnalysisFailed Status = "transcript_ok_analysis_failed"
	StatusFailed                     Status = "failed"
)

var validStatuses = map[Status]bool{
	StatusProcessing:                 true,
	StatusCompleted:                  true,
	StatusTranscriptOKAnalysisFailed: true,
	StatusFailed:                     true,
}

// Collapse derives an intake status from the two stage states.
func Collapse(transcript, analysis enrichment.Status) Status {
	switch {
	case transcript == enrichment.StatusFailed:
		return StatusFailed
	case transcript == enrichment.StatusCompleted && analysis == enrichment.StatusFailed:
		return StatusTranscriptOKAnalysisFailed
	case transcript == enrichment.StatusCompleted && analysis == enrichment.StatusCompleted:
		return StatusCompleted
	default:
		return StatusProcessing
	}
}

// Settled reports whether s is an end state that carries a completion time.
func (s Status) Settled() bool {
	return s == StatusCompleted || s == StatusTranscriptOKAnalysisFailed
}

// Intake is the queryable summary of one processed recording. Intakes
// projected from a file carry SourceFileID; manual ones do not.
type Intake struct {
	ID             string                      `gorm:"column:id;primaryKey;size:36" json:"id"`
	SourceFileID   *string                     `gorm:"column:source_file_id;size:36;uniqueIndex" json:"sourceFileId"`
	Title          string                      `gorm:"column:title;size:500;not null" json:"title"`
	Status         Status                      `gorm:"column:status;size:40;index;not null" json:"status"`
	ProjectID      *string                     `gorm:"column:project_id;size:64;index" json:"projectId"`
	CreatedBy      *string                     `gorm:"column:created_by;size:64" json:"createdBy"`
	MeetingNoteIDs datatypes.JSONSlice[string] `gorm:"column:meeting_note_ids" json:"meetingNoteIds"`
	CompletedAt    *time.Time                  `gorm:"column:completed_at" json:"completedAt"`
	CreatedAt      time.Time                   `gorm:"column:created_at;index" json:"createdAt"`
	UpdatedAt      time.Time                   `gorm:"column:updated_at" json:"updatedAt"`
}

func (Intake) TableName() string { return "intakes" }
