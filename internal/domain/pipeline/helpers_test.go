package pipeline

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"intakeflow/internal/database/dbtest"
	"intakeflow/internal/domain/enrichment"
	"intakeflow/internal/domain/file"
	"intakeflow/internal/domain/intake"
	"intakeflow/internal/pkg/logger"
	"intakeflow/internal/storage"
)

type fakeTranscriber struct {
	calls  atomic.Int32
	result *enrichment.TranscriptResult
	err    error
	got    []byte
	mu     sync.Mutex
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio []byte, _, _ string) (*enrichment.TranscriptResult, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.got = append([]byte(nil), audio...)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeAnalyzer struct {
	calls  atomic.Int32
	result *enrichment.AnalysisResult
	err    error
	label  atomic.Value
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ string, sourceLabel string) (*enrichment.AnalysisResult, error) {
	f.calls.Add(1)
	f.label.Store(sourceLabel)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []enrichment.ProcessingStatus
}

func (n *recordingNotifier) Publish(ps *enrichment.ProcessingStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, *ps)
}

func (n *recordingNotifier) snapshot() []enrichment.ProcessingStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]enrichment.ProcessingStatus(nil), n.events...)
}

var errProviderDown = errors.New("speech provider unavailable")

type testEnv struct {
	db          *gorm.DB
	files       file.Repository
	results     enrichment.Repository
	intakes     intake.Repository
	store       *storage.LocalStore
	transcriber *fakeTranscriber
	analyzer    *fakeAnalyzer
	notifier    *recordingNotifier
	mode        *ModeSwitch
	runner      *Runner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.Open(t, &file.File{}, &enrichment.Transcript{}, &enrichment.Analysis{}, &intake.Intake{})
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		db:      db,
		files:   file.NewRepository(db),
		results: enrichment.NewRepository(db),
		intakes: intake.NewRepository(db),
		store:   store,
		transcriber: &fakeTranscriber{result: &enrichment.TranscriptResult{
			Text:     "we will ship on friday",
			Segments: []enrichment.Segment{{Start: 0, End: 2.5, Text: "we will ship on friday"}},
			Model:    "whisper-1",
		}},
		analyzer: &fakeAnalyzer{result: &enrichment.AnalysisResult{
			Summary:      "Release planned for Friday",
			KeyDecisions: []enrichment.Decision{{Title: "Ship Friday"}},
			Model:        "claude",
		}},
		notifier: &recordingNotifier{},
		mode:     NewModeSwitch(false),
	}
	projector := intake.NewService(env.intakes, env.files, env.results, logger.NewNop())
	env.runner = NewRunner(Deps{
		Files:       env.files,
		Store:       store,
		Results:     env.results,
		Transcriber: env.transcriber,
		Analyzer:    env.analyzer,
		Projector:   projector,
		Notifier:    env.notifier,
		Mode:        env.mode,
	}, logger.NewNop())
	return env
}

// storeFile writes data to the store and registers a file row for it.
func (e *testEnv) storeFile(t *testing.T, name, mimeType string, data []byte) *file.File {
	t.Helper()
	ctx := context.Background()
	path := "meeting/2026/03/01/" + uuid.NewString()
	_, err := e.store.Save(ctx, path, bytes.NewReader(data))
	require.NoError(t, err)
	f := &file.File{
		ID:               uuid.NewString(),
		OriginalFilename: name,
		Filename:         path,
		FileSize:         int64(len(data)),
		MimeType:         mimeType,
		StoragePath:      path,
		StorageType:      e.store.Type(),
		FileHash:         uuid.NewString(),
		BusinessType:     file.BusinessMeeting,
	}
	require.NoError(t, e.files.Create(ctx, f))
	return f
}

func (e *testEnv) status(t *testing.T, fileID string) *enrichment.ProcessingStatus {
	t.Helper()
	ps, err := e.results.ProcessingStatus(context.Background(), fileID)
	require.NoError(t, err)
	return ps
}

func (e *testEnv) intakeFor(t *testing.T, fileID string) *intake.Intake {
	t.Helper()
	in, err := e.intakes.FindBySourceFile(context.Background(), fileID)
	require.NoError(t, err)
	return in
}

func (e *testEnv) intakeCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&intake.Intake{}).Count(&n).Error)
	return n
}
