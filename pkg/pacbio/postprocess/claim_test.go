package postprocess_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/quatton/qseq/pkg/kv"
	"github.com/quatton/qseq/pkg/pacbio/pacbiotest"
	"github.com/quatton/qseq/pkg/pacbio/postprocess"
	"github.com/quatton/qseq/pkg/pacbio/runfiles"
	"github.com/quatton/qseq/pkg/qlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLock(t *testing.T, path, owner string, claimedAt time.Time) {
	t.Helper()
	data, err := json.Marshal(map[string]any{"owner": owner, "claimed_at": claimedAt})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestFileClaimer(t *testing.T) {
	ctx := context.Background()
	run := pacbiotest.WriteCell(t, t.TempDir(), pacbiotest.RunName)
	c := postprocess.NewFileClaimer(time.Hour, qlog.NewQuiet())

	release, err := c.Claim(ctx, run)
	require.NoError(t, err)
	assert.FileExists(t, runfiles.ProcessingLockPath(run))

	_, err = postprocess.NewFileClaimer(time.Hour, qlog.NewQuiet()).Claim(ctx, run)
	assert.ErrorIs(t, err, postprocess.ErrClaimed)

	release()
	assert.NoFileExists(t, runfiles.ProcessingLockPath(run))
}

func TestFileClaimerNamesHolder(t *testing.T) {
	run := pacbiotest.WriteCell(t, t.TempDir(), pacbiotest.RunName)
	writeLock(t, runfiles.ProcessingLockPath(run), "worker-7/abc", time.Now().Add(-time.Minute))

	_, err := postprocess.NewFileClaimer(time.Hour, qlog.NewQuiet()).Claim(context.Background(), run)
	require.ErrorIs(t, err, postprocess.ErrClaimed)
	assert.Contains(t, err.Error(), "worker-7/abc")
}

func TestFileClaimerTakesOverStaleLock(t *testing.T) {
	ctx := context.Background()
	run := pacbiotest.WriteCell(t, t.TempDir(), pacbiotest.RunName)
	lock := runfiles.ProcessingLockPath(run)
	writeLock(t, lock, "crashed/1", time.Now().Add(-2*time.Hour))

	release, err := postprocess.NewFileClaimer(time.Hour, qlog.NewQuiet()).Claim(ctx, run)
	require.NoError(t, err)

	data, err := os.ReadFile(lock)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "crashed/1")

	release()
	assert.NoFileExists(t, lock)
}

func TestFileClaimerTakesOverStaleEmptyLock(t *testing.T) {
	run := pacbiotest.WriteCell(t, t.TempDir(), pacbiotest.RunName)
	lock := runfiles.ProcessingLockPath(run)
	require.NoError(t, os.WriteFile(lock, nil, 0o644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(lock, old, old))

	release, err := postprocess.NewFileClaimer(time.Hour, qlog.NewQuiet()).Claim(context.Background(), run)
	require.NoError(t, err)
	release()
}

func TestFileClaimerReleaseKeepsForeignLock(t *testing.T) {
	run := pacbiotest.WriteCell(t, t.TempDir(), pacbiotest.RunName)
	lock := runfiles.ProcessingLockPath(run)

	release, err := postprocess.NewFileClaimer(time.Hour, qlog.NewQuiet()).Claim(context.Background(), run)
	require.NoError(t, err)
	writeLock(t, lock, "other/2", time.Now())

	release()
	assert.FileExists(t, lock)
}

func TestPostProcessRetriesAfterStaleLock(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, postprocess.WithClaimer(postprocess.NewFileClaimer(time.Hour, qlog.NewQuiet())))
	run := pacbiotest.WriteCell(t, p.root, pacbiotest.RunName)
	writeLock(t, runfiles.ProcessingLockPath(run), "crashed/1", time.Now().Add(-3*time.Hour))

	require.NoError(t, p.service.PostProcessAllUnprocessed(ctx, false))

	assert.Equal(t, [3]int{1, 1, 1}, p.rows(t))
	assert.FileExists(t, runfiles.CompletedMarkerPath(run))
	assert.NoFileExists(t, runfiles.ProcessingLockPath(run))
}

func TestKVClaimer(t *testing.T) {
	ctx := context.Background()
	run := pacbiotest.WriteCell(t, t.TempDir(), pacbiotest.RunName)
	store := kv.NewMemoryStore()
	hostA := postprocess.NewKVClaimer(store, time.Minute, qlog.NewQuiet())
	hostB := postprocess.NewKVClaimer(store, time.Minute, qlog.NewQuiet())

	release, err := hostA.Claim(ctx, run)
	require.NoError(t, err)

	_, err = hostB.Claim(ctx, run)
	require.ErrorIs(t, err, postprocess.ErrClaimed)
	assert.Contains(t, err.Error(), "held by ")

	release()
	releaseB, err := hostB.Claim(ctx, run)
	require.NoError(t, err)
	releaseB()
}

func TestPostProcessWithKVClaimer(t *testing.T) {
	p := newPipeline(t, postprocess.WithClaimer(postprocess.NewKVClaimer(kv.NewMemoryStore(), 0, qlog.NewQuiet())))
	run := pacbiotest.WriteCell(t, p.root, pacbiotest.RunName)

	require.NoError(t, p.service.PostProcess(context.Background(), pacbiotest.RunName, false))
	assert.FileExists(t, runfiles.CompletedMarkerPath(run))
	assert.NoFileExists(t, runfiles.ProcessingLockPath(run))
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "validated", postprocess.StageValidated.String())
	assert.Equal(t, "files_registered", postprocess.StageFilesRegistered.String())
	assert.Equal(t, "unknown", postprocess.Stage(42).String())
}
