package intake

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intakeflow/internal/domain/enrichment"
)

func TestCollapse(t *testing.T) {
	cases := []struct {
		transcript, analysis enrichment.Status
		want                 Status
	}{
		{enrichment.StatusNotStarted, enrichment.StatusNotStarted, StatusProcessing},
		{enrichment.StatusProcessing, enrichment.StatusNotStarted, StatusProcessing},
		{enrichment.StatusCompleted, enrichment.StatusProcessing, StatusProcessing},
		{enrichment.StatusCompleted, enrichment.StatusNotStarted, StatusProcessing},
		{enrichment.StatusCompleted, enrichment.StatusCompleted, StatusCompleted},
		{enrichment.StatusCompleted, enrichment.StatusFailed, StatusTranscriptOKAnalysisFailed},
		{enrichment.StatusFailed, enrichment.StatusNotStarted, StatusFailed},
		{enrichment.StatusFailed, enrichment.StatusCompleted, StatusFailed},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Collapse(tc.transcript, tc.analysis), "%s/%s", tc.transcript, tc.analysis)
	}
}

func TestProject_CreatesIntakeFromFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	long := strings.Repeat("會", 240) + ".mp3"
	f := env.audioFile(t, long, strPtr("proj-1"))
	require.NoError(t, env.results.StartTranscript(ctx, f.ID))

	require.NoError(t, env.service.Project(ctx, f.ID, "user-7"))

	in, err := env.repo.FindBySourceFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, in.Status)
	assert.Equal(t, long, in.Title)
	require.NotNil(t, in.ProjectID)
	assert.Equal(t, "proj-1", *in.ProjectID)
	require.NotNil(t, in.CreatedBy)
	assert.Equal(t, "user-7", *in.CreatedBy)
	assert.Nil(t, in.CompletedAt)
}

func TestProject_AnonymousActor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.audioFile(t, "x.mp3", nil)

	require.NoError(t, env.service.Project(ctx, f.ID, ""))

	in, err := env.repo.FindBySourceFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Nil(t, in.CreatedBy)
	assert.Nil(t, in.ProjectID)
}

func TestProject_UpdatesStatusOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.audioFile(t, "standup.mp3", nil)

	require.NoError(t, env.service.Project(ctx, f.ID, "user-1"))
	in, err := env.repo.FindBySourceFile(ctx, f.ID)
	require.NoError(t, err)
	require.NoError(t, env.db.Model(&Intake{}).Where("id = ?", in.ID).Update("title", "Renamed").Error)

	env.completeTranscript(t, f.ID, "hello there")
	env.completeAnalysis(t, f.ID, "A short meeting")
	require.NoError(t, env.service.Project(ctx, f.ID, "someone-else"))

	got, err := env.repo.GetByID(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "Renamed", got.Title)
	require.NotNil(t, got.CreatedBy)
	assert.Equal(t, "user-1", *got.CreatedBy)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(env.clock))
	assert.EqualValues(t, 1, env.intakeCount(t, f.ID))
}

func TestProject_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.audioFile(t, "retro.mp3", nil)
	env.completeTranscript(t, f.ID, "words")
	env.completeAnalysis(t, f.ID, "summary")

	require.NoError(t, env.service.Project(ctx, f.ID, ""))
	first, err := env.repo.FindBySourceFile(ctx, f.ID)
	require.NoError(t, err)

	env.clock = env.clock.Add(time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, env.service.Project(ctx, f.ID, ""))
	}

	again, err := env.repo.FindBySourceFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	require.NotNil(t, again.CompletedAt)
	assert.True(t, again.CompletedAt.Equal(*first.CompletedAt))
	assert.EqualValues(t, 1, env.intakeCount(t, f.ID))
}

func TestProject_FailureStates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	transcriptFailed := env.audioFile(t, "a.mp3", nil)
	require.NoError(t, env.results.FailTranscript(ctx, transcriptFailed.ID, "provider down"))
	require.NoError(t, env.service.Project(ctx, transcriptFailed.ID, ""))

	analysisFailed := env.audioFile(t, "b.mp3", nil)
	env.completeTranscript(t, analysisFailed.ID, "some words")
	require.NoError(t, env.results.FailAnalysis(ctx, analysisFailed.ID, "bad json"))
	require.NoError(t, env.service.Project(ctx, analysisFailed.ID, ""))

	in, err := env.repo.FindBySourceFile(ctx, transcriptFailed.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, in.Status)
	assert.Nil(t, in.CompletedAt)

	in, err = env.repo.FindBySourceFile(ctx, analysisFailed.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusTranscriptOKAnalysisFailed, in.Status)
	assert.NotNil(t, in.CompletedAt)
}

func TestProject_RerunClearsCompletedAt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.audioFile(t, "a.mp3", nil)
	env.completeTranscript(t, f.ID, "words")
	require.NoError(t, env.results.FailAnalysis(ctx, f.ID, "timeout"))
	require.NoError(t, env.service.Project(ctx, f.ID, ""))

	require.NoError(t, env.results.StartAnalysis(ctx, f.ID))
	require.NoError(t, env.service.Project(ctx, f.ID, ""))

	in, err := env.repo.FindBySourceFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, in.Status)
	assert.Nil(t, in.CompletedAt)
}

func TestProject_UnknownFile(t *testing.T) {
	env := newTestEnv(t)
	err := env.service.Project(context.Background(), "missing", "")
	require.Error(t, err)
	var n int64
	require.NoError(t, env.db.Model(&Intake{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.audioFile(t, "alpha.mp3", strPtr("p1"))
	b := env.audioFile(t, "beta.mp3", strPtr("p1"))
	c := env.audioFile(t, "gamma.mp3", strPtr("p2"))
	env.completeTranscript(t, a.ID, "words")
	env.completeAnalysis(t, a.ID, strings.Repeat("s", 150))
	for _, id := range []string{a.ID, b.ID, c.ID} {
		require.NoError(t, env.service.Project(ctx, id, ""))
	}
	require.NoError(t, env.db.Model(&Intake{}).Where("source_file_id = ?", a.ID).Update("created_at", env.clock.Add(-3*time.Hour)).Error)
	require.NoError(t, env.db.Model(&Intake{}).Where("source_file_id = ?", b.ID).Update("created_at", env.clock.Add(-2*time.Hour)).Error)
	require.NoError(t, env.db.Model(&Intake{}).Where("source_file_id = ?", c.ID).Update("created_at", env.clock.Add(-1*time.Hour)).Error)

	res, err := env.service.List(ctx, ListQuery{ProjectID: "p1"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)
	assert.Equal(t, 20, res.Limit)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "beta.mp3", res.Items[0].Title)
	assert.Nil(t, res.Items[0].SummaryOneLine)

	alpha := res.Items[1]
	require.NotNil(t, alpha.SourceFileName)
	assert.Equal(t, "alpha.mp3", *alpha.SourceFileName)
	require.NotNil(t, alpha.SummaryOneLine)
	assert.Len(t, *alpha.SummaryOneLine, 100)
	assert.Equal(t, StatusCompleted, alpha.Status)

	res, err = env.service.List(ctx, ListQuery{Status: string(StatusCompleted)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Total)

	res, err = env.service.List(ctx, ListQuery{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "beta.mp3", res.Items[0].Title)

	_, err = env.service.List(ctx, ListQuery{Status: "done"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestDetail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.audioFile(t, "planning.mp3", strPtr("p9"))
	env.completeTranscript(t, f.ID, "we agreed to ship")
	env.completeAnalysis(t, f.ID, "Team agreed to ship")
	require.NoError(t, env.service.Project(ctx, f.ID, "owner"))
	in, err := env.repo.FindBySourceFile(ctx, f.ID)
	require.NoError(t, err)

	d, err := env.service.Detail(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, "planning.mp3", d.Title)
	require.NotNil(t, d.Transcript)
	assert.Equal(t, "we agreed to ship", *d.Transcript)
	assert.Equal(t, enrichment.StatusCompleted, d.TranscriptStatus)
	require.NotNil(t, d.AnalysisSummary)
	assert.Equal(t, "Team agreed to ship", *d.AnalysisSummary)
	assert.Len(t, d.KeyDecisions, 1)
	require.Len(t, d.LogicFlags, 1)
	assert.Equal(t, "permissions", d.LogicFlags[0].Category)
	assert.Empty(t, d.Risks)
	assert.NotNil(t, d.MeetingNoteIDs)
	assert.False(t, d.SourceFileDeleted)

	require.NoError(t, env.files.SoftDelete(ctx, f.ID, "owner"))
	d, err = env.service.Detail(ctx, in.ID)
	require.NoError(t, err)
	assert.True(t, d.SourceFileDeleted)
	require.NotNil(t, d.SourceFileName)
	assert.Equal(t, "planning.mp3", *d.SourceFileName)
}

func TestDetail_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.service.Detail(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrIntakeNotFound)
}

func TestCreateManual(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	in, err := env.service.Create(ctx, CreateRequest{Title: "  Whiteboard notes  ", ProjectID: "p3"}, "user-2")
	require.NoError(t, err)
	assert.Equal(t, "Whiteboard notes", in.Title)
	assert.Nil(t, in.SourceFileID)
	assert.Equal(t, StatusProcessing, in.Status)

	_, err = env.service.Create(ctx, CreateRequest{Title: "   "}, "")
	assert.ErrorIs(t, err, ErrTitleRequired)

	second, err := env.service.Create(ctx, CreateRequest{Title: "Another"}, "")
	require.NoError(t, err)

	d, err := env.service.Detail(ctx, second.ID)
	require.NoError(t, err)
	assert.False(t, d.SourceFileDeleted)
	assert.Equal(t, enrichment.StatusNotStarted, d.TranscriptStatus)
	assert.Nil(t, d.SourceFileName)
}
