package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvas-drive-sync/internal/domain"
)

func setupTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	clock := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return l
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	l, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, l.StartRun(ctx, "r1", "drive", []int64{1}))
	require.NoError(t, l.Close())

	l, err = Open(ctx, path)
	require.NoError(t, err)
	defer l.Close()
	run, err := l.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.NotNil(t, run)
}

func TestRunLifecycle(t *testing.T) {
	l := setupTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.StartRun(ctx, "run-1", "drive", []int64{12, 13}))

	run, err := l.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "drive", run.Backend)
	assert.Equal(t, []int64{12, 13}, run.CourseIDs)
	assert.Nil(t, run.FinishedAt)

	sum := domain.Summary{Total: 3, Uploaded: 1, Skipped: 1, Failed: 1, FailedCourses: []int64{13}}
	require.NoError(t, l.FinishRun(ctx, "run-1", sum))

	run, err = l.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, run.FinishedAt)
	assert.True(t, run.FinishedAt.After(run.StartedAt))
	assert.Equal(t, sum, run.Summary)
}

func TestFinishUnknownRun(t *testing.T) {
	l := setupTestLedger(t)
	err := l.FinishRun(context.Background(), "nope", domain.Summary{})
	assert.ErrorContains(t, err, "no such run")
}

func TestGetRunUnknown(t *testing.T) {
	l := setupTestLedger(t)
	run, err := l.GetRun(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, run)
}

func TestDuplicateRunID(t *testing.T) {
	l := setupTestLedger(t)
	ctx := context.Background()
	require.NoError(t, l.StartRun(ctx, "run-1", "drive", nil))
	assert.Error(t, l.StartRun(ctx, "run-1", "drive", nil))
}

func TestHistory(t *testing.T) {
	l := setupTestLedger(t)
	ctx := context.Background()
	require.NoError(t, l.StartRun(ctx, "run-1", "sftp", []int64{1}))

	results := []domain.TransferResult{
		{CourseID: 1, ModuleName: "Week 1", Title: "Syllabus", CanvasFileID: 7, Filename: "syllabus.pdf", Size: 10,
			DestinationID: "d1", UploadSuccess: true, DuplicateSkipped: true, Status: domain.StatusSkipped},
		{CourseID: 1, ModuleName: "Week 1", Title: "Slides", CanvasFileID: 8, Filename: "slides.pdf", Size: 20,
			DestinationID: "d2", DestinationURL: "https://drive.test/d2", UploadSuccess: true, Status: domain.StatusUploaded},
		{CourseID: 1, ModuleName: "Week 2", Title: "Gone", CanvasFileID: 999, Status: domain.StatusFailed,
			Error: "file not found in Canvas: content id 999"},
	}
	for _, r := range results {
		require.NoError(t, l.RecordTransfer(ctx, "run-1", r))
	}

	got, err := l.History(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, results[2], got[0].Result)
	assert.Equal(t, results[1], got[1].Result)
	assert.Equal(t, "run-1", got[0].RunID)
	assert.True(t, got[0].RecordedAt.After(got[1].RecordedAt))

	all, err := l.History(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, results[0], all[2].Result)
}

func TestRecordRejectsUnknownStatus(t *testing.T) {
	l := setupTestLedger(t)
	err := l.RecordTransfer(context.Background(), "run-1", domain.TransferResult{Status: "pending"})
	assert.Error(t, err)
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
