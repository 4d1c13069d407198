package store_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/quatton/qseq/pkg/db/dbtest"
	"github.com/quatton/qseq/pkg/db/models"
	"github.com/quatton/qseq/pkg/pacbio/pacbiotest"
	"github.com/quatton/qseq/pkg/pacbio/runfiles"
	"github.com/quatton/qseq/pkg/pacbio/store"
	"github.com/quatton/qseq/pkg/pacbio/transfer"
	"github.com/quatton/qseq/pkg/qerr"
	"github.com/quatton/qseq/pkg/qlog"
	"github.com/quatton/qseq/pkg/statusdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type counts struct{ devices, runs, samples int }

func count(t *testing.T, database bun.IDB) counts {
	t.Helper()
	return counts{
		devices: dbtest.Count(t, database, (*models.RunDevice)(nil)),
		runs:    dbtest.Count(t, database, (*models.SequencingRun)(nil)),
		samples: dbtest.Count(t, database, (*models.SampleSequencingMetrics)(nil)),
	}
}

func dtos(samples int) transfer.PostProcessingDTOs {
	d := transfer.PostProcessingDTOs{
		RunDevice:     transfer.RunDevice{Type: transfer.DeviceTypeSMRTCell, InternalID: pacbiotest.CellID},
		SequencingRun: transfer.SequencingRun{SequencingRunName: pacbiotest.SequencingRun, MovieName: pacbiotest.MovieName, WellName: "A01", PlateNumber: 1},
	}
	for i := 0; i < samples; i++ {
		d.SampleSequencingMetrics = append(d.SampleSequencingMetrics, transfer.SampleSequencingMetrics{
			SampleInternalID: pacbiotest.SampleID,
			Barcode:          "bc20" + string(rune('0'+i)),
		})
	}
	return d
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	database := dbtest.New(t)
	svc := store.NewService(statusdb.NewBunStore(database), runfiles.NewManager(), qlog.NewQuiet())

	require.NoError(t, svc.Store(ctx, dtos(3), false))
	assert.Equal(t, counts{1, 1, 3}, count(t, database))

	require.NoError(t, svc.Store(ctx, dtos(2), false))
	assert.Equal(t, counts{1, 2, 5}, count(t, database))
}

func TestStoreDryRunLeavesNoRows(t *testing.T) {
	ctx := context.Background()
	database := dbtest.New(t)
	svc := store.NewService(statusdb.NewBunStore(database), runfiles.NewManager(), qlog.NewQuiet())

	require.NoError(t, svc.Store(ctx, dtos(3), true))
	assert.Equal(t, counts{}, count(t, database))
}

type failingTx struct {
	statusdb.Tx
}

func (failingTx) CreateSampleSequencingRun(context.Context, transfer.SampleSequencingMetrics, *models.SequencingRun) error {
	return errors.New("disk full")
}

// failingStore runs the real transaction but fails the sample insert.
type failingStore struct {
	*statusdb.BunStore
}

func (s failingStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx statusdb.Tx) error) error {
	return s.BunStore.RunInTx(ctx, func(ctx context.Context, tx statusdb.Tx) error {
		return fn(ctx, failingTx{Tx: tx})
	})
}

func TestStoreFailureIsAtomic(t *testing.T) {
	ctx := context.Background()
	database := dbtest.New(t)
	svc := store.NewService(failingStore{statusdb.NewBunStore(database)}, runfiles.NewManager(), qlog.NewQuiet())

	err := svc.Store(ctx, dtos(1), false)
	require.Error(t, err)
	assert.True(t, qerr.IsCode(err, qerr.CodeStoreData))
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, counts{}, count(t, database))
}

func TestStoreRun(t *testing.T) {
	ctx := context.Background()
	database := dbtest.New(t)
	svc := store.NewService(statusdb.NewBunStore(database), runfiles.NewManager(), qlog.NewQuiet())
	run := pacbiotest.WriteCell(t, t.TempDir(), pacbiotest.RunName, pacbiotest.WithUnzippedReports())

	require.NoError(t, svc.StoreRun(ctx, run, false))
	assert.Equal(t, counts{1, 1, 1}, count(t, database))

	runs, err := statusdb.NewBunStore(database).SequencingRunsForDevice(ctx, pacbiotest.CellID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(pacbiotest.HiFiReads), runs[0].HiFiReads)
	assert.Equal(t, runs[0].HiFiReads, runs[0].BarcodedHiFiReads+runs[0].UnbarcodedHiFiReads)
	assert.Equal(t, pacbiotest.RunDisplayName, runs[0].RunName)
}

func TestStoreRunWithoutRunMetadata(t *testing.T) {
	ctx := context.Background()
	database := dbtest.New(t)
	svc := store.NewService(statusdb.NewBunStore(database), runfiles.NewManager(), qlog.NewQuiet())
	run := pacbiotest.WriteCell(t, t.TempDir(), pacbiotest.RunName,
		pacbiotest.WithUnzippedReports(),
		pacbiotest.WithRunMetadata(""))

	require.NoError(t, svc.StoreRun(ctx, run, false))
	runs, err := statusdb.NewBunStore(database).SequencingRunsForDevice(ctx, pacbiotest.CellID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Empty(t, runs[0].RunName)
}

func TestStoreRunRunMetadataMismatch(t *testing.T) {
	database := dbtest.New(t)
	svc := store.NewService(statusdb.NewBunStore(database), runfiles.NewManager(), qlog.NewQuiet())
	run := pacbiotest.WriteCell(t, t.TempDir(), pacbiotest.RunName,
		pacbiotest.WithUnzippedReports(),
		pacbiotest.WithRunMetadata(strings.Replace(pacbiotest.RunMetadataXML, pacbiotest.SequencingRun, "r99999_20000101_000000", 1)))

	err := svc.StoreRun(context.Background(), run, false)
	assert.True(t, qerr.IsCode(err, qerr.CodeDataTransfer), "got %v", err)
	assert.Equal(t, counts{}, count(t, database))
}

func TestStoreRunParsingError(t *testing.T) {
	database := dbtest.New(t)
	svc := store.NewService(statusdb.NewBunStore(database), runfiles.NewManager(), qlog.NewQuiet())
	run := pacbiotest.WriteCell(t, t.TempDir(), pacbiotest.RunName,
		pacbiotest.WithUnzippedReports(),
		pacbiotest.WithReport(runfiles.ControlReport, []byte(`{}`)))

	err := svc.StoreRun(context.Background(), run, false)
	assert.True(t, qerr.IsCode(err, qerr.CodeParsing))
	assert.Equal(t, counts{}, count(t, database))
}
