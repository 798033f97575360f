package enrichment

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists the per-file transcript and analysis rows. Every write
// is an upsert keyed by file id, so concurrent runs for one file settle on
// whichever write lands last.
type Repository interface {
	FindTranscript(ctx context.Context, fileID string) (*Transcript, error)
	StartTranscript(ctx context.Context, fileID string) error
	CompleteTranscript(ctx context.Context, fileID string, res TranscriptResult) error
	FailTranscript(ctx context.Context, fileID string, message string) error

	FindAnalysis(ctx context.Context, fileID string) (*Analysis, error)
	StartAnalysis(ctx context.Context, fileID string) error
	CompleteAnalysis(ctx context.Context, fileID string, res AnalysisResult) error
	FailAnalysis(ctx context.Context, fileID string, message string) error

	ProcessingStatus(ctx context.Context, fileID string) (*ProcessingStatus, error)
	// FailedFileIDs lists files with at least one failed stage.
	FailedFileIDs(ctx context.Context) ([]string, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func upsertOnFileID(cols ...string) clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_id"}},
		DoUpdates: clause.AssignmentColumns(append(cols, "updated_at")),
	}
}

func (r *repository) FindTranscript(ctx context.Context, fileID string) (*Transcript, error) {
	var t Transcript
	err := r.db.WithContext(ctx).Where("file_id = ?", fileID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTranscriptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repository) StartTranscript(ctx context.Context, fileID string) error {
	row := &Transcript{
		ID:     uuid.NewString(),
		FileID: fileID,
		Status: StatusProcessing,
	}
	return r.db.WithContext(ctx).Clauses(upsertOnFileID("status", "error_message")).Create(row).Error
}

func (r *repository) CompleteTranscript(ctx context.Context, fileID string, res TranscriptResult) error {
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return ErrEmptyTranscript
	}
	row := &Transcript{
		ID:        uuid.NewString(),
		FileID:    fileID,
		Text:      text,
		Segments:  NormalizeSegments(res.Segments),
		Language:  res.Language,
		Duration:  res.Duration,
		WordCount: WordCount(text),
		Model:     res.Model,
		Status:    StatusCompleted,
	}
	return r.db.WithContext(ctx).
		Clauses(upsertOnFileID("transcript", "segments", "language", "duration", "word_count", "model", "status", "error_message")).
		Create(row).Error
}

func (r *repository) FailTranscript(ctx context.Context, fileID string, message string) error {
	msg := failureMessage(message)
	row := &Transcript{
		ID:           uuid.NewString(),
		FileID:       fileID,
		Status:       StatusFailed,
		ErrorMessage: &msg,
	}
	return r.db.WithContext(ctx).Clauses(upsertOnFileID("status", "error_message")).Create(row).Error
}

func (r *repository) FindAnalysis(ctx context.Context, fileID string) (*Analysis, error) {
	var a Analysis
	err := r.db.WithContext(ctx).Where("file_id = ?", fileID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAnalysisNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) StartAnalysis(ctx context.Context, fileID string) error {
	row := &Analysis{
		ID:     uuid.NewString(),
		FileID: fileID,
		Status: StatusProcessing,
	}
	return r.db.WithContext(ctx).Clauses(upsertOnFileID("status", "error_message")).Create(row).Error
}

func (r *repository) CompleteAnalysis(ctx context.Context, fileID string, res AnalysisResult) error {
	summary := strings.TrimSpace(res.Summary)
	if summary == "" {
		return ErrEmptySummary
	}
	row := &Analysis{
		ID:           uuid.NewString(),
		FileID:       fileID,
		Summary:      summary,
		KeyDecisions: nonNil(res.KeyDecisions),
		Risks:        nonNil(res.Risks),
		Dependencies: nonNil(res.Dependencies),
		LogicFlags:   nonNil(res.LogicFlags),
		Model:        res.Model,
		Status:       StatusCompleted,
	}
	return r.db.WithContext(ctx).
		Clauses(upsertOnFileID("summary", "key_decisions", "risks", "dependencies", "logic_flags", "model", "status", "error_message")).
		Create(row).Error
}

func (r *repository) FailAnalysis(ctx context.Context, fileID string, message string) error {
	msg := failureMessage(message)
	row := &Analysis{
		ID:           uuid.NewString(),
		FileID:       fileID,
		Status:       StatusFailed,
		ErrorMessage: &msg,
	}
	return r.db.WithContext(ctx).Clauses(upsertOnFileID("status", "error_message")).Create(row).Error
}

func (r *repository) ProcessingStatus(ctx context.Context, fileID string) (*ProcessingStatus, error) {
	ps := &ProcessingStatus{
		FileID:           fileID,
		TranscriptStatus: StatusNotStarted,
		AnalysisStatus:   StatusNotStarted,
	}

	t, err := r.FindTranscript(ctx, fileID)
	switch {
	case err == nil:
		ps.TranscriptStatus = normalize(t.Status)
		ps.TranscriptErrorMessage = t.ErrorMessage
	case !errors.Is(err, ErrTranscriptNotFound):
		return nil, err
	}

	a, err := r.FindAnalysis(ctx, fileID)
	switch {
	case err == nil:
		ps.AnalysisStatus = normalize(a.Status)
		ps.AnalysisErrorMessage = a.ErrorMessage
	case !errors.Is(err, ErrAnalysisNotFound):
		return nil, err
	}

	ps.Overall = Overall(ps.TranscriptStatus, ps.AnalysisStatus)
	return ps, nil
}

func (r *repository) FailedFileIDs(ctx context.Context) ([]string, error) {
	var fromTranscripts, fromAnalyses []string
	if err := r.db.WithContext(ctx).Model(&Transcript{}).
		Where("status = ?", StatusFailed).Pluck("file_id", &fromTranscripts).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&Analysis{}).
		Where("status = ?", StatusFailed).Pluck("file_id", &fromAnalyses).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var ids []string
	for _, id := range append(fromTranscripts, fromAnalyses...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func failureMessage(message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return "unknown error"
	}
	return message
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

