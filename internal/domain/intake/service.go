package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"intakeflow/internal/domain/enrichment"
	"intakeflow/internal/domain/file"
	"intakeflow/internal/pkg/logger"
)

type Service struct {
	repo    Repository
	files   file.Repository
	results enrichment.Repository
	log     *logger.Logger
	now     func() time.Time
}

func NewService(repo Repository, files file.Repository, results enrichment.Repository, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		files:   files,
		results: results,
		log:     log.With("service", "IntakeService"),
		now:     time.Now,
	}
}

// Project recomputes the intake for fileID from its stage state. An existing
// intake only has its status (and completion time) refreshed; otherwise one
// is created from the source file.
func (s *Service) Project(ctx context.Context, fileID, actor string) error {
	ps, err := s.results.ProcessingStatus(ctx, fileID)
	if err != nil {
		return fmt.Errorf("load processing status: %w", err)
	}
	status := Collapse(ps.TranscriptStatus, ps.AnalysisStatus)

	existing, err := s.repo.FindBySourceFile(ctx, fileID)
	switch {
	case err == nil:
		if existing.Status == status {
			return nil
		}
		s.log.Debug("intake status changed", "intake_id", existing.ID, "from", existing.Status, "to", status)
		return s.repo.UpdateStatus(ctx, existing.ID, status, s.completedAt(status))
	case !errors.Is(err, ErrIntakeNotFound):
		return err
	}

	f, err := s.files.GetByIDUnscoped(ctx, fileID)
	if err != nil {
		return fmt.Errorf("load source file: %w", err)
	}
	in := &Intake{
		ID:           uuid.NewString(),
		SourceFileID: &f.ID,
		Title:        enrichment.TruncateRunes(f.OriginalFilename, maxTitle),
		Status:       status,
		ProjectID:    f.ProjectID,
		CreatedBy:    optional(actor),
		CompletedAt:  s.completedAt(status),
	}
	if err := s.repo.UpsertForFile(ctx, in); err != nil {
		return err
	}
	s.log.Info("intake projected", "file_id", fileID, "status", status)
	return nil
}

func (s *Service) completedAt(status Status) *time.Time {
	if !status.Settled() {
		return nil
	}
	now := s.now()
	return &now
}

// Create adds a manual intake with no source file.
func (s *Service) Create(ctx context.Context, req CreateRequest, actor string) (*Intake, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	in := &Intake{
		ID:        uuid.NewString(),
		Title:     enrichment.TruncateRunes(title, maxTitle),
		Status:    StatusProcessing,
		ProjectID: optional(strings.TrimSpace(req.ProjectID)),
		CreatedBy: optional(actor),
	}
	if err := s.repo.Create(ctx, in); err != nil {
		return nil, err
	}
	return in, nil
}

func (s *Service) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	q.applyDefaults()
	if q.Status != "" && !validStatuses[Status(q.Status)] {
		return nil, ErrInvalidStatus
	}

	rows, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}

	var sourceIDs []string
	for _, in := range rows {
		if in.SourceFileID != nil {
			sourceIDs = append(sourceIDs, *in.SourceFileID)
		}
	}
	files, err := s.repo.SourceFiles(ctx, sourceIDs)
	if err != nil {
		return nil, err
	}
	analyses, err := s.repo.Analyses(ctx, sourceIDs)
	if err != nil {
		return nil, err
	}

	items := make([]ListItem, 0, len(rows))
	for _, in := range rows {
		items = append(items, listItem(in, files, analyses))
	}
	return &ListResult{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

func (s *Service) Detail(ctx context.Context, id string) (*Detail, error) {
	in, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	d := &Detail{
		ProjectID:        in.ProjectID,
		CreatedBy:        in.CreatedBy,
		TranscriptStatus: enrichment.StatusNotStarted,
		AnalysisStatus:   enrichment.StatusNotStarted,
		KeyDecisions:     []enrichment.Decision{},
		Risks:            []enrichment.Risk{},
		Dependencies:     []enrichment.Dependency{},
		LogicFlags:       []enrichment.LogicFlag{},
		MeetingNoteIDs:   []string{},
	}
	if in.MeetingNoteIDs != nil {
		d.MeetingNoteIDs = in.MeetingNoteIDs
	}
	if in.SourceFileID == nil {
		d.ListItem = listItem(in, nil, nil)
		return d, nil
	}

	fileID := *in.SourceFileID
	files, err := s.repo.SourceFiles(ctx, []string{fileID})
	if err != nil {
		return nil, err
	}
	src, ok := files[fileID]
	d.SourceFileDeleted = !ok || src.DeletedAt.Valid

	var analyses map[string]*enrichment.Analysis
	if a, err := s.results.FindAnalysis(ctx, fileID); err == nil {
		analyses = map[string]*enrichment.Analysis{fileID: a}
		d.AnalysisID = &a.ID
		d.AnalysisStatus = a.Status
		if a.Summary != "" {
			d.AnalysisSummary = &a.Summary
		}
		d.KeyDecisions = append(d.KeyDecisions, a.KeyDecisions...)
		d.Risks = append(d.Risks, a.Risks...)
		d.Dependencies = append(d.Dependencies, a.Dependencies...)
		d.LogicFlags = append(d.LogicFlags, a.LogicFlags...)
	} else if !errors.Is(err, enrichment.ErrAnalysisNotFound) {
		return nil, err
	}

	if t, err := s.results.FindTranscript(ctx, fileID); err == nil {
		d.TranscriptID = &t.ID
		d.TranscriptStatus = t.Status
		if t.Text != "" {
			d.Transcript = &t.Text
		}
	} else if !errors.Is(err, enrichment.ErrTranscriptNotFound) {
		return nil, err
	}

	d.ListItem = listItem(in, files, analyses)
	return d, nil
}

func listItem(in *Intake, files map[string]*file.File, analyses map[string]*enrichment.Analysis) ListItem {
	item := ListItem{
		ID:           in.ID,
		Title:        in.Title,
		SourceFileID: in.SourceFileID,
		Status:       in.Status,
		CompletedAt:  in.CompletedAt,
		CreatedAt:    in.CreatedAt,
	}
	if in.SourceFileID == nil {
		return item
	}
	if f, ok := files[*in.SourceFileID]; ok {
		name := f.OriginalFilename
		item.SourceFileName = &name
	}
	if a, ok := analyses[*in.SourceFileID]; ok && a.Summary != "" {
		line := enrichment.TruncateRunes(a.Summary, oneLineChars)
		item.SummaryOneLine = &line
	}
	return item
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
