// Package pipeline runs transcription then analysis for stored audio files
// and keeps the derived intake up to date.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"intakeflow/internal/domain/enrichment"
	"intakeflow/internal/domain/file"
	"intakeflow/internal/metrics"
	"intakeflow/internal/pkg/logger"
	"intakeflow/internal/storage"
)

const (
	stageTranscription = "transcription"
	stageAnalysis      = "analysis"
)

// Transcriber turns audio bytes into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename, mimeType string) (*enrichment.TranscriptResult, error)
}

// Analyzer produces a structured analysis of transcript text.
type Analyzer interface {
	Analyze(ctx context.Context, transcript, sourceLabel string) (*enrichment.AnalysisResult, error)
}

// Projector refreshes the intake derived from a file's stage state.
type Projector interface {
	Project(ctx context.Context, fileID, actor string) error
}

// Notifier receives a status snapshot after every stage transition.
type Notifier interface {
	Publish(ps *enrichment.ProcessingStatus)
}

type Runner struct {
	files       file.Repository
	store       storage.Store
	results     enrichment.Repository
	transcriber Transcriber
	analyzer    Analyzer
	projector   Projector
	notifier    Notifier
	mode        *ModeSwitch
	log         *logger.Logger
}

type Deps struct {
	Files       file.Repository
	Store       storage.Store
	Results     enrichment.Repository
	Transcriber Transcriber
	Analyzer    Analyzer
	Projector   Projector
	Notifier    Notifier
	Mode        *ModeSwitch
}

func NewRunner(d Deps, log *logger.Logger) *Runner {
	if d.Mode == nil {
		d.Mode = NewModeSwitch(false)
	}
	return &Runner{
		files:       d.Files,
		store:       d.Store,
		results:     d.Results,
		transcriber: d.Transcriber,
		analyzer:    d.Analyzer,
		projector:   d.Projector,
		notifier:    d.Notifier,
		mode:        d.Mode,
		log:         log.With("service", "PipelineRunner"),
	}
}

func (r *Runner) Mode() *ModeSwitch { return r.mode }

// Run drives one file through the pipeline. Provider failures end up as a
// failed stage and are not returned; the returned error covers only a
// missing file or a storage/database fault. Non-audio files are ignored.
func (r *Runner) Run(ctx context.Context, fileID, actor string) error {
	f, err := r.files.GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	if !f.IsAudio() {
		return nil
	}

	start := time.Now()
	metrics.PipelineInflight.Inc()
	defer func() {
		metrics.PipelineInflight.Dec()
		metrics.PipelineRunDuration.Observe(time.Since(start).Seconds())
	}()

	mock := r.mode.Mock(ctx)
	log := r.log.With("file_id", fileID, "mode", modeLabel(mock))

	runErr := r.run(ctx, f, mock, log)
	if err := r.project(ctx, fileID, actor); err != nil {
		log.Error("intake projection failed", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	r.notify(ctx, fileID)
	return runErr
}

func (r *Runner) run(ctx context.Context, f *file.File, mock bool, log *logger.Logger) error {
	transcript, err := r.findTranscript(ctx, f.ID)
	if err != nil {
		return err
	}
	analysis, err := r.findAnalysis(ctx, f.ID)
	if err != nil {
		return err
	}

	if transcript != nil && transcript.Status == enrichment.StatusCompleted &&
		analysis != nil && analysis.Status == enrichment.StatusCompleted {
		log.Debug("pipeline already complete")
		return nil
	}

	var text string
	if transcript != nil && transcript.Status == enrichment.StatusCompleted {
		text = transcript.Text
		metrics.PipelineStagesTotal.WithLabelValues(stageTranscription, "skipped", modeLabel(mock)).Inc()
	} else {
		var ok bool
		text, ok, err = r.transcribe(ctx, f, mock, log)
		if err != nil || !ok {
			return err
		}
	}

	return r.analyze(ctx, f, text, mock, log)
}

// transcribe reports ok=false when the stage failed and was recorded.
func (r *Runner) transcribe(ctx context.Context, f *file.File, mock bool, log *logger.Logger) (string, bool, error) {
	if err := r.results.StartTranscript(ctx, f.ID); err != nil {
		return "", false, fmt.Errorf("start transcript: %w", err)
	}
	r.notify(ctx, f.ID)

	res, err := r.callTranscriber(ctx, f, mock)
	if err == nil {
		err = r.results.CompleteTranscript(ctx, f.ID, *res)
	}
	if err != nil {
		log.Warn("transcription failed", "error", err)
		metrics.PipelineStagesTotal.WithLabelValues(stageTranscription, "failed", modeLabel(mock)).Inc()
		if ferr := r.results.FailTranscript(ctx, f.ID, err.Error()); ferr != nil {
			return "", false, fmt.Errorf("record transcript failure: %w", ferr)
		}
		r.notify(ctx, f.ID)
		return "", false, nil
	}

	log.Info("transcription completed", "model", res.Model, "words", enrichment.WordCount(res.Text))
	metrics.PipelineStagesTotal.WithLabelValues(stageTranscription, "completed", modeLabel(mock)).Inc()
	r.notify(ctx, f.ID)
	return res.Text, true, nil
}

func (r *Runner) callTranscriber(ctx context.Context, f *file.File, mock bool) (*enrichment.TranscriptResult, error) {
	if mock {
		return mockTranscript(f.OriginalFilename), nil
	}
	if r.transcriber == nil {
		return nil, errors.New("no transcription provider configured")
	}
	audio, err := r.store.Get(ctx, f.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errors.New("audio content is missing from storage")
		}
		return nil, fmt.Errorf("read audio: %w", err)
	}
	res, err := r.transcriber.Transcribe(ctx, audio, f.OriginalFilename, f.MimeType)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, enrichment.ErrEmptyTranscript
	}
	return res, nil
}

func (r *Runner) analyze(ctx context.Context, f *file.File, text string, mock bool, log *logger.Logger) error {
	if err := r.results.StartAnalysis(ctx, f.ID); err != nil {
		return fmt.Errorf("start analysis: %w", err)
	}
	r.notify(ctx, f.ID)

	res, err := r.callAnalyzer(ctx, text, f.OriginalFilename, mock)
	if err == nil {
		err = r.results.CompleteAnalysis(ctx, f.ID, *res)
	}
	if err != nil {
		log.Warn("analysis failed", "error", err)
		metrics.PipelineStagesTotal.WithLabelValues(stageAnalysis, "failed", modeLabel(mock)).Inc()
		if ferr := r.results.FailAnalysis(ctx, f.ID, err.Error()); ferr != nil {
			return fmt.Errorf("record analysis failure: %w", ferr)
		}
		return nil
	}

	log.Info("analysis completed", "model", res.Model, "logic_flags", len(res.LogicFlags))
	metrics.PipelineStagesTotal.WithLabelValues(stageAnalysis, "completed", modeLabel(mock)).Inc()
	return nil
}

func (r *Runner) callAnalyzer(ctx context.Context, text, sourceLabel string, mock bool) (*enrichment.AnalysisResult, error) {
	if mock {
		return mockAnalysis(sourceLabel), nil
	}
	if r.analyzer == nil {
		return nil, errors.New("no analysis provider configured")
	}
	res, err := r.analyzer.Analyze(ctx, text, sourceLabel)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, enrichment.ErrEmptySummary
	}
	return res, nil
}

func (r *Runner) findTranscript(ctx context.Context, fileID string) (*enrichment.Transcript, error) {
	t, err := r.results.FindTranscript(ctx, fileID)
	if errors.Is(err, enrichment.ErrTranscriptNotFound) {
		return nil, nil
	}
	return t, err
}

func (r *Runner) findAnalysis(ctx context.Context, fileID string) (*enrichment.Analysis, error) {
	a, err := r.results.FindAnalysis(ctx, fileID)
	if errors.Is(err, enrichment.ErrAnalysisNotFound) {
		return nil, nil
	}
	return a, err
}

func (r *Runner) project(ctx context.Context, fileID, actor string) error {
	if r.projector == nil {
		return nil
	}
	return r.projector.Project(ctx, fileID, actor)
}

func (r *Runner) notify(ctx context.Context, fileID string) {
	if r.notifier == nil {
		return
	}
	ps, err := r.results.ProcessingStatus(ctx, fileID)
	if err != nil {
		r.log.Warn("status snapshot failed", "file_id", fileID, "error", err)
		return
	}
	r.notifier.Publish(ps)
}
