package metrics_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/quatton/qseq/pkg/pacbio/metrics"
	"github.com/quatton/qseq/pkg/pacbio/pacbiotest"
	"github.com/quatton/qseq/pkg/pacbio/runfiles"
	"github.com/quatton/qseq/pkg/qerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFiles(t *testing.T, opts ...pacbiotest.Option) (metrics.RunMetrics, error) {
	t.Helper()
	opts = append(opts, pacbiotest.WithUnzippedReports())
	run := pacbiotest.WriteCell(t, t.TempDir(), pacbiotest.RunName, opts...)
	files, err := runfiles.NewManager().GetFilesToParse(run)
	require.NoError(t, err)
	return metrics.NewParser().Parse(files)
}

func TestParse(t *testing.T) {
	m, err := parseFiles(t)
	require.NoError(t, err)

	assert.Equal(t, int64(pacbiotest.HiFiReads), m.Read.HiFiReads)
	assert.Equal(t, int64(106275091861), m.Read.HiFiYield)
	assert.Equal(t, "Q34", m.Read.HiFiMedianReadQuality)
	assert.Equal(t, 94.2, m.Read.HiFiPercentQ30)
	assert.Equal(t, 16.1, m.Read.HiFiMeanReadLengthKb)
	assert.Equal(t, 9.9, m.Read.FailedMeanReadLengthKb)

	assert.Equal(t, int64(2750), m.Control.Reads)
	assert.Equal(t, 90.73, m.Control.PercentMeanReadConcordance)
	assert.Equal(t, 92.0, m.Control.PercentModeReadConcordance)

	assert.Equal(t, 24.0, m.Productivity.PercentP0)
	assert.Equal(t, 74.0, m.Productivity.PercentP1)
	assert.Equal(t, 2.0, m.Productivity.PercentP2)

	assert.Equal(t, int64(168750), m.Polymerase.ReadLengthN50)
	assert.Equal(t, int64(20750), m.Polymerase.LongestSubreadLengthN50)

	assert.Equal(t, pacbiotest.CellID, m.Dataset.CellID)
	assert.Equal(t, "A01", m.Dataset.Well)
	assert.Equal(t, 1, m.Dataset.Plate)
	assert.Equal(t, pacbiotest.MovieName, m.Dataset.MovieName)
	assert.Equal(t, time.Date(2024, 5, 22, 13, 56, 41, 0, time.UTC), m.Dataset.RunStartedAt.UTC())

	require.Len(t, m.Samples, 1)
	sample, ok := m.SampleByBarcode(pacbiotest.Barcode)
	require.True(t, ok)
	assert.Equal(t, pacbiotest.SampleID, sample.SampleInternalID)
	assert.Equal(t, int64(pacbiotest.BarcodedReads), sample.HiFiReads)
	assert.Equal(t, int64(16167), sample.HiFiMeanReadLength)

	assert.Nil(t, m.Run, "no metadata xml was passed")
}

func TestParseIsDeterministic(t *testing.T) {
	run := pacbiotest.WriteCell(t, t.TempDir(), pacbiotest.RunName, pacbiotest.WithUnzippedReports())
	files, err := runfiles.NewManager().GetFilesToParse(run)
	require.NoError(t, err)

	first, err := metrics.NewParser().Parse(files)
	require.NoError(t, err)
	second, err := metrics.NewParser().Parse(files)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseBarcodedSplit(t *testing.T) {
	m, err := parseFiles(t)
	require.NoError(t, err)

	r := m.Read
	assert.Equal(t, r.HiFiReads, r.BarcodedHiFiReads+r.UnbarcodedHiFiReads)
	assert.Equal(t, r.HiFiYield, r.BarcodedHiFiYield+r.UnbarcodedHiFiYield)
	assert.Equal(t, int64(pacbiotest.BarcodedReads), r.BarcodedHiFiReads)
	assert.Equal(t, int64(580977), r.UnbarcodedHiFiReads)
	assert.Equal(t, 91.2, r.BarcodedHiFiReadsPercentage)
	assert.Equal(t, int64(16167), r.BarcodedHiFiMeanReadLength)
}

func TestParseProductivitySumsToAboutHundred(t *testing.T) {
	m, err := parseFiles(t)
	require.NoError(t, err)

	sum := m.Productivity.PercentP0 + m.Productivity.PercentP1 + m.Productivity.PercentP2
	assert.Contains(t, []float64{99, 100, 101}, sum)
}

func TestParseZeroProductiveZMWs(t *testing.T) {
	_, err := parseFiles(t, pacbiotest.WithReport(runfiles.LoadingReport, pacbiotest.AttributesReport(map[string]any{
		"loading_xml_report.productive_zmws":  0,
		"loading_xml_report.productivity_0_n": 0,
		"loading_xml_report.productivity_1_n": 0,
		"loading_xml_report.productivity_2_n": 0,
	})))
	assert.True(t, qerr.IsCode(err, qerr.CodeParsing))
}

func TestParseMissingAttribute(t *testing.T) {
	_, err := parseFiles(t, pacbiotest.WithReport(runfiles.ControlReport, pacbiotest.AttributesReport(map[string]any{
		"control.reads_n":          2750,
		"control.readlength_mean":  69009,
		"control.concordance_mean": 0.90734,
	})))

	require.Error(t, err)
	assert.True(t, qerr.IsCode(err, qerr.CodeParsing))
	assert.Contains(t, err.Error(), "control.concordance_mode")
}

func TestParseNullAttributeCountsAsMissing(t *testing.T) {
	_, err := parseFiles(t, pacbiotest.WithReport(runfiles.RawDataReport, pacbiotest.AttributesReport(map[string]any{
		"raw_data_report.read_length":   93918,
		"raw_data_report.read_n50":      nil,
		"raw_data_report.insert_length": 18431,
		"raw_data_report.insert_n50":    20750,
	})))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "raw_data_report.read_n50")
}

func TestParseMalformedJSON(t *testing.T) {
	_, err := parseFiles(t, pacbiotest.WithReport(pacbiotest.CCSReportName, []byte(`{"attributes": [`)))
	assert.True(t, qerr.IsCode(err, qerr.CodeParsing))
}

func TestParseDatasetsWithoutCellRecord(t *testing.T) {
	_, err := parseFiles(t, pacbiotest.WithReport(runfiles.SmrtlinkDatasetsReport, []byte(`[]`)))
	assert.True(t, qerr.IsCode(err, qerr.CodeParsing))
}

func TestParseDatasetsWellSampleNameOptional(t *testing.T) {
	_, err := parseFiles(t, pacbiotest.WithReport(runfiles.SmrtlinkDatasetsReport, pacbiotest.DatasetsReport(map[string]any{
		"cellId":         pacbiotest.CellID,
		"wellName":       "A01",
		"plateNumber":    1,
		"bioSampleName":  pacbiotest.SampleID,
		"movieName":      pacbiotest.MovieName,
		"runStartedAt":   "2024-05-22T13:56:41Z",
		"runCompletedAt": "2024-05-24T08:40:40Z",
	})))
	assert.NoError(t, err)
}

func TestParseBarcodedExceedsTotal(t *testing.T) {
	_, err := parseFiles(t, pacbiotest.WithReport(runfiles.SmrtlinkDatasetsReport, pacbiotest.DatasetsReport(
		map[string]any{
			"cellId":         pacbiotest.CellID,
			"wellName":       "A01",
			"plateNumber":    1,
			"bioSampleName":  pacbiotest.SampleID,
			"movieName":      pacbiotest.MovieName,
			"runStartedAt":   "2024-05-22T13:56:41Z",
			"runCompletedAt": "2024-05-24T08:40:40Z",
		},
		map[string]any{
			"bioSampleName":  pacbiotest.SampleID,
			"dnaBarcodeName": pacbiotest.Barcode,
			"numRecords":     pacbiotest.HiFiReads + 1,
			"totalLength":    1,
		},
	)))
	assert.True(t, qerr.IsCode(err, qerr.CodeParsing))
}

func TestParseRejectsUnknownAndMissingFiles(t *testing.T) {
	run := pacbiotest.WriteCell(t, t.TempDir(), pacbiotest.RunName, pacbiotest.WithUnzippedReports())
	files, err := runfiles.NewManager().GetFilesToParse(run)
	require.NoError(t, err)

	stray := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(stray, []byte("x"), 0o644))

	_, err = metrics.NewParser().Parse(append(files, stray))
	assert.True(t, qerr.IsCode(err, qerr.CodeParsing))

	_, err = metrics.NewParser().Parse(files[:4])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smrtlink datasets report")

	_, err = metrics.NewParser().Parse(append(files, files[0]))
	assert.True(t, qerr.IsCode(err, qerr.CodeParsing))
}

func TestParseWithRunMetadata(t *testing.T) {
	run := pacbiotest.WriteCell(t, t.TempDir(), pacbiotest.RunName, pacbiotest.WithUnzippedReports())
	mgr := runfiles.NewManager()
	files, err := mgr.GetFilesToParse(run)
	require.NoError(t, err)
	xmlPath, err := mgr.GetRunMetadataFile(run)
	require.NoError(t, err)

	m, err := metrics.NewParser().Parse(append(files, xmlPath))
	require.NoError(t, err)
	require.NotNil(t, m.Run)
	assert.Equal(t, pacbiotest.RunDisplayName, m.Run.Name)
	assert.Equal(t, pacbiotest.SequencingRun, m.Run.TimeStampedName)
	assert.Equal(t, "Complete", m.Run.Status)
}

func TestParseRunMetadataErrors(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"no run":     `<PacBioDataModel><Runs/></PacBioDataModel>`,
		"no name":    `<Run TimeStampedName="r1"/>`,
		"broken xml": `<Run Name="x" TimeStampedName="r1"`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".metadata.xml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := metrics.ParseRunMetadata(path)
			assert.True(t, qerr.IsCode(err, qerr.CodeParsing))
		})
	}
}
