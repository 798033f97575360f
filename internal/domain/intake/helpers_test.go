package intake

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"intakeflow/internal/database/dbtest"
	"intakeflow/internal/domain/enrichment"
	"intakeflow/internal/domain/file"
	"intakeflow/internal/pkg/logger"
)

type testEnv struct {
	db      *gorm.DB
	repo    Repository
	files   file.Repository
	results enrichment.Repository
	service *Service
	clock   time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.Open(t, &file.File{}, &enrichment.Transcript{}, &enrichment.Analysis{}, &Intake{})
	env := &testEnv{
		db:      db,
		repo:    NewRepository(db),
		files:   file.NewRepository(db),
		results: enrichment.NewRepository(db),
		clock:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	env.service = NewService(env.repo, env.files, env.results, logger.NewNop())
	env.service.now = func() time.Time { return env.clock }
	return env
}

func (e *testEnv) audioFile(t *testing.T, name string, projectID *string) *file.File {
	t.Helper()
	f := &file.File{
		ID:               uuid.NewString(),
		ProjectID:        projectID,
		OriginalFilename: name,
		Filename:         "stored.mp3",
		FileSize:         2048,
		MimeType:         "audio/mpeg",
		Extension:        strPtr("mp3"),
		StoragePath:      "meeting/2026/03/01/stored.mp3",
		StorageType:      "local",
		FileHash:         uuid.NewString(),
		BusinessType:     file.BusinessMeeting,
	}
	require.NoError(t, e.files.Create(context.Background(), f))
	return f
}

func (e *testEnv) completeTranscript(t *testing.T, fileID, text string) {
	t.Helper()
	require.NoError(t, e.results.CompleteTranscript(context.Background(), fileID, enrichment.TranscriptResult{Text: text, Model: "test"}))
}

func (e *testEnv) completeAnalysis(t *testing.T, fileID, summary string) {
	t.Helper()
	require.NoError(t, e.results.CompleteAnalysis(context.Background(), fileID, enrichment.AnalysisResult{
		Summary:      summary,
		KeyDecisions: []enrichment.Decision{{Title: "Ship it"}},
		LogicFlags:   []enrichment.LogicFlag{{ID: "lf-1", Category: "permissions", Severity: "warning", Message: "Roles unclear", Source: "test"}},
		Model:        "test",
	}))
}

func (e *testEnv) intakeCount(t *testing.T, fileID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&Intake{}).Where("source_file_id = ?", fileID).Count(&n).Error)
	return n
}

func strPtr(s string) *string { return &s }
