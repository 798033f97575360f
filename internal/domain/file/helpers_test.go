package file

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"intakeflow/internal/database/dbtest"
	"intakeflow/internal/ingest"
	"intakeflow/internal/pkg/logger"
	"intakeflow/internal/storage"
)

// intakeRow mirrors the columns of the intakes table that file listing reads.
type intakeRow struct {
	ID           string  `gorm:"primaryKey;size:36"`
	SourceFileID *string `gorm:"size:36;uniqueIndex"`
}

func (intakeRow) TableName() string { return "intakes" }

type recordingScheduler struct {
	mu    sync.Mutex
	calls []string
}

func (s *recordingScheduler) Schedule(fileID, actor string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fileID+"|"+actor)
}

func (s *recordingScheduler) scheduled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type testEnv struct {
	db        *gorm.DB
	repo      Repository
	store     *storage.LocalStore
	scheduler *recordingScheduler
	service   *Service
	tempDir   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.Open(t, &File{}, &intakeRow{})
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	repo := NewRepository(db)
	sched := &recordingScheduler{}
	return &testEnv{
		db:        db,
		repo:      repo,
		store:     store,
		scheduler: sched,
		service:   NewService(repo, store, sched, 8, logger.NewNop()),
		tempDir:   t.TempDir(),
	}
}

// stage materializes data as if the gateway had received it.
func (e *testEnv) stage(t *testing.T, filename, mimeType string, data []byte, fields map[string]string) *ingest.Upload {
	t.Helper()
	f, err := os.CreateTemp(e.tempDir, "upload-*")
	require.NoError(t, err)
	_, err = f.Write(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	sum := sha256.Sum256(data)
	if fields == nil {
		fields = map[string]string{}
	}
	return &ingest.Upload{
		TempPath: f.Name(),
		Filename: filename,
		MimeType: mimeType,
		Size:     int64(len(data)),
		Hash:     hex.EncodeToString(sum[:]),
		Fields:   fields,
	}
}

func (e *testEnv) register(t *testing.T, filename, mimeType string, data []byte, in RegisterInput) *UploadResult {
	t.Helper()
	res, err := e.service.Register(context.Background(), e.stage(t, filename, mimeType, data, nil), in)
	require.NoError(t, err)
	return res
}

func (e *testEnv) markAnalyzed(t *testing.T, fileID string) {
	t.Helper()
	id := "intake-" + fileID
	require.NoError(t, e.db.Create(&intakeRow{ID: id, SourceFileID: &fileID}).Error)
}

func leftoverFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	return matches
}

func repeat(b byte, n int) []byte {
	return bytes.Repeat([]byte{b}, n)
}
