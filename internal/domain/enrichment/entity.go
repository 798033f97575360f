package enrichment

import (
	"time"

	"gorm.io/datatypes"
)

// Segment is one time-aligned slice of a transcript.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type Decision struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type Risk struct {
	Title       string `json:"title"`
	Severity    string `json:"severity,omitempty"`
	Description string `json:"description,omitempty"`
}

type Dependency struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type LogicFlag struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Source   string `json:"source"`
}

// Transcript is the speech-to-text result for one file. A rerun overwrites it.
type Transcript struct {
	ID           string                       `gorm:"column:id;primaryKey" json:"id"`
	FileID       string                       `gorm:"column:file_id;size:36;uniqueIndex" json:"fileId"`
	Text         string                       `gorm:"column:transcript;type:text" json:"transcript"`
	Segments     datatypes.JSONSlice[Segment] `gorm:"column:segments" json:"segments"`
	Language     *string                      `gorm:"column:language;size:20" json:"language"`
	Duration     *float64                     `gorm:"column:duration" json:"duration"`
	WordCount    int                          `gorm:"column:word_count" json:"wordCount"`
	Model        string                       `gorm:"column:model;size:100" json:"model"`
	Status       Status                       `gorm:"column:status;size:20;index" json:"status"`
	ErrorMessage *string                      `gorm:"column:error_message;type:text" json:"errorMessage"`
	CreatedAt    time.Time                    `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt    time.Time                    `gorm:"column:updated_at" json:"updatedAt"`
}

func (Transcript) TableName() string { return "file_transcripts" }

// Analysis is the structured text analysis of a transcript.
type Analysis struct {
	ID           string                          `gorm:"column:id;primaryKey" json:"id"`
	FileID       string                          `gorm:"column:file_id;size:36;uniqueIndex" json:"fileId"`
	Summary      string                          `gorm:"column:summary;type:text" json:"summary"`
	KeyDecisions datatypes.JSONSlice[Decision]   `gorm:"column:key_decisions" json:"keyDecisions"`
	Risks        datatypes.JSONSlice[Risk]       `gorm:"column:risks" json:"risks"`
	Dependencies datatypes.JSONSlice[Dependency] `gorm:"column:dependencies" json:"dependencies"`
	LogicFlags   datatypes.JSONSlice[LogicFlag]  `gorm:"column:logic_flags" json:"logicFlags"`
	Model        string                          `gorm:"column:model;size:100" json:"model"`
	Status       Status                          `gorm:"column:status;size:20;index" json:"status"`
	ErrorMessage *string                         `gorm:"column:error_message;type:text" json:"errorMessage"`
	CreatedAt    time.Time                       `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt    time.Time                       `gorm:"column:updated_at" json:"updatedAt"`
}

func (Analysis) TableName() string { return "file_analyses" }

// TranscriptResult is what a speech-to-text provider hands back.
type TranscriptResult struct {
	Text     string
	Language *string
	Duration *float64
	Segments []Segment
	Model    string
}

// AnalysisResult is what a text-analysis provider hands back.
type AnalysisResult struct {
	Summary      string
	KeyDecisions []Decision
	Risks        []Risk
	Dependencies []Dependency
	LogicFlags   []LogicFlag
	Model        string
}
