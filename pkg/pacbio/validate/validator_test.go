package validate_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/quatton/qseq/pkg/pacbio/pacbiotest"
	"github.com/quatton/qseq/pkg/pacbio/runfiles"
	"github.com/quatton/qseq/pkg/pacbio/validate"
	"github.com/quatton/qseq/pkg/qerr"
	"github.com/quatton/qseq/pkg/qlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator() *validate.Validator {
	return validate.New(runfiles.NewManager(), qlog.NewQuiet())
}

func TestEnsureValid(t *testing.T) {
	ctx := context.Background()
	run := pacbiotest.WriteCell(t, t.TempDir(), pacbiotest.RunName)

	require.NoError(t, newValidator().EnsureValid(ctx, run))

	assert.FileExists(t, runfiles.ValidatedMarkerPath(run))
	files, err := runfiles.NewManager().GetFilesToParse(run)
	require.NoError(t, err)
	assert.Len(t, files, 5)
}

func TestEnsureValidShortCircuitsOnMarker(t *testing.T) {
	ctx := context.Background()
	run := pacbiotest.WriteCell(t, t.TempDir(), pacbiotest.RunName)
	v := newValidator()
	require.NoError(t, v.EnsureValid(ctx, run))

	// Without the marker this would fail: the archive is gone.
	require.NoError(t, os.Remove(filepath.Join(runfiles.StatisticsPath(run), pacbiotest.ArchiveName)))
	assert.NoError(t, v.EnsureValid(ctx, run))
}

func TestEnsureValidMissingManifestEntry(t *testing.T) {
	ctx := context.Background()
	lines := append(pacbiotest.DefaultManifest(), "hifi_reads/m84202_240522_135641_s1.hifi_reads.bc2099.bam")
	run := pacbiotest.WriteCell(t, t.TempDir(), pacbiotest.RunName, pacbiotest.WithManifest(lines...))

	err := newValidator().EnsureValid(ctx, run)

	require.Error(t, err)
	assert.True(t, qerr.IsCode(err, qerr.CodeFileTransfer))
	assert.Contains(t, err.Error(), "bc2099")
	assert.NoFileExists(t, runfiles.ValidatedMarkerPath(run))
}

func TestEnsureValidUnknownDigest(t *testing.T) {
	ctx := context.Background()
	run := pacbiotest.WriteCell(t, t.TempDir(), pacbiotest.RunName,
		pacbiotest.WithManifest(pacbiotest.PathDigest("metadata/not-transferred.xml")))

	err := newValidator().EnsureValid(ctx, run)

	assert.True(t, qerr.IsCode(err, qerr.CodeFileTransfer))
	assert.NoFileExists(t, runfiles.ValidatedMarkerPath(run))
}

func TestEnsureValidEmptyManifest(t *testing.T) {
	run := pacbiotest.WriteCell(t, t.TempDir(), pacbiotest.RunName, pacbiotest.WithManifest("# nothing"))

	err := newValidator().EnsureValid(context.Background(), run)
	assert.True(t, qerr.IsCode(err, qerr.CodeFileTransfer))
}

func TestEnsureValidMissingManifest(t *testing.T) {
	run := pacbiotest.WriteCell(t, t.TempDir(), pacbiotest.RunName)
	require.NoError(t, os.Remove(filepath.Join(runfiles.MetadataPath(run), pacbiotest.ManifestName)))

	err := newValidator().EnsureValid(context.Background(), run)
	assert.True(t, qerr.IsCode(err, qerr.CodeFileNotFound))
	assert.NoFileExists(t, runfiles.ValidatedMarkerPath(run))
}

func TestEnsureValidCorruptArchive(t *testing.T) {
	run := pacbiotest.WriteCell(t, t.TempDir(), pacbiotest.RunName)
	archive := filepath.Join(runfiles.StatisticsPath(run), pacbiotest.ArchiveName)
	require.NoError(t, os.WriteFile(archive, []byte("not a zip"), 0o644))

	err := newValidator().EnsureValid(context.Background(), run)
	assert.True(t, qerr.IsCode(err, qerr.CodeFileTransfer))
	assert.NoFileExists(t, runfiles.ValidatedMarkerPath(run))
}

func TestUnzipRejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("../evil.json")
	require.NoError(t, err)
	_, err = w.Write([]byte("{}"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	archive := filepath.Join(dir, "bad.reports.zip")
	require.NoError(t, os.WriteFile(archive, buf.Bytes(), 0o644))

	_, err = validate.Unzip(context.Background(), archive, filepath.Join(dir, "out"))
	assert.True(t, qerr.IsCode(err, qerr.CodeFileTransfer))
	assert.NoFileExists(t, filepath.Join(dir, "evil.json"))
}

func TestReadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.transferdone")
	digest := pacbiotest.PathDigest("a/b")
	require.NoError(t, os.WriteFile(path, []byte("\n# header\nstatistics/x.zip\n"+digest+"\n"), 0o644))

	entries, err := validate.ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, []validate.ManifestEntry{
		{Path: "statistics/x.zip"},
		{Digest: digest},
	}, entries)
}
