// Package pacbiotest writes complete SMRT cell directories for tests.
package pacbiotest

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/quatton/qseq/pkg/pacbio/rundata"
	"github.com/quatton/qseq/pkg/pacbio/runfiles"
)

const (
	RunName        = "r84202_20240522_133539/1_A01"
	SequencingRun  = "r84202_20240522_133539"
	MovieName      = "m84202_240522_135641_s1"
	CellID         = "EA094834"
	SampleID       = "1247014000119"
	Barcode        = "bc2004"
	HiFiReads      = 6580977
	BarcodedReads  = 6000000
	BarcodedYield  = 97000000000
	RunDisplayName = "Run 2024-05-22"
)

var (
	CCSReportName  = MovieName + ".ccs_report.json"
	ArchiveName    = MovieName + runfiles.ReportsArchiveSuffix
	ManifestName   = MovieName + runfiles.TransferManifestSuffix
	MetadataName   = MovieName + runfiles.RunMetadataSuffix
	SampleBAMName  = MovieName + ".hifi_reads." + Barcode + ".bam"
	UnassignedName = MovieName + ".hifi_reads.unassigned.bam"
)

type options struct {
	unzipped  bool
	metadata  *string
	overrides map[string][]byte
	omit      map[string]bool
	manifest  []string
}

type Option func(*options)

// WithUnzippedReports writes the reports into statistics/unzipped_reports as
// if the validator had already run.
func WithUnzippedReports() Option {
	return func(o *options) { o.unzipped = true }
}

// WithReport replaces one report's content (by file name) in the archive and
// the unzipped directory.
func WithReport(name string, content []byte) Option {
	return func(o *options) { o.overrides[name] = content }
}

// WithoutReport leaves a report out of the archive and unzipped directory.
func WithoutReport(name string) Option {
	return func(o *options) { o.omit[name] = true }
}

// WithRunMetadata replaces the run metadata XML. An empty document leaves
// the file out. By default the XML names the cell's own run directory.
func WithRunMetadata(xml string) Option {
	return func(o *options) { o.metadata = &xml }
}

// WithManifest replaces the generated transfer manifest lines.
func WithManifest(lines ...string) Option {
	return func(o *options) { o.manifest = lines }
}

// WriteCell creates root/<runName> populated like a transferred Revio cell.
func WriteCell(t testing.TB, root, runName string, opts ...Option) rundata.RunData {
	t.Helper()
	o := &options{overrides: map[string][]byte{}, omit: map[string]bool{}}
	for _, opt := range opts {
		opt(o)
	}

	run, err := rundata.Parse(root, runName)
	if err != nil {
		t.Fatalf("parse run name: %v", err)
	}

	reports := map[string][]byte{}
	for name, content := range DefaultReports() {
		if o.omit[name] {
			continue
		}
		if override, ok := o.overrides[name]; ok {
			content = override
		}
		reports[name] = content
	}

	write(t, filepath.Join(runfiles.StatisticsPath(run), ArchiveName), zipReports(t, reports))
	if o.unzipped {
		for name, content := range reports {
			write(t, filepath.Join(runfiles.ReportsPath(run), name), content)
		}
	}

	metadata := strings.Replace(RunMetadataXML, SequencingRun, run.SequencingRunName, 1)
	if o.metadata != nil {
		metadata = *o.metadata
	}
	if metadata != "" {
		write(t, filepath.Join(runfiles.MetadataPath(run), MetadataName), []byte(metadata))
	}
	write(t, filepath.Join(runfiles.HiFiReadsPath(run), SampleBAMName), []byte("BAM\x01sample"))
	write(t, filepath.Join(runfiles.HiFiReadsPath(run), UnassignedName), []byte("BAM\x01unassigned"))

	manifest := o.manifest
	if manifest == nil {
		manifest = DefaultManifest()
	}
	write(t, filepath.Join(runfiles.MetadataPath(run), ManifestName), []byte(strings.Join(manifest, "\n")+"\n"))

	return run
}

// DefaultManifest lists the transferred files, one of them by path digest.
func DefaultManifest() []string {
	return []string{
		filepath.Join(runfiles.StatisticsDir, ArchiveName),
		filepath.Join(runfiles.HiFiReadsDir, SampleBAMName),
		filepath.Join(runfiles.HiFiReadsDir, UnassignedName),
		PathDigest(filepath.Join(runfiles.MetadataDir, MetadataName)),
	}
}

// PathDigest is the md5 hex digest of a cell-relative path.
func PathDigest(rel string) string {
	sum := md5.Sum([]byte(filepath.ToSlash(rel)))
	return hex.EncodeToString(sum[:])
}

// DefaultReports returns the five well-formed reports keyed by file name.
func DefaultReports() map[string][]byte {
	return map[string][]byte{
		CCSReportName: AttributesReport(map[string]any{
			"ccs2.number_of_ccs_reads":         HiFiReads,
			"ccs2.total_number_of_ccs_bases":   106275091861,
			"ccs2.mean_ccs_readlength":         16149,
			"ccs2.median_accuracy":             "Q34",
			"ccs2.percent_ccs_bases_q30":       0.9423,
			"ccs2.failed_ccs_read_count":       1152146,
			"ccs2.failed_ccs_yield":            11420312451,
			"ccs2.failed_ccs_mean_read_length": 9912,
		}),
		runfiles.ControlReport: AttributesReport(map[string]any{
			"control.reads_n":          2750,
			"control.readlength_mean":  69009,
			"control.concordance_mean": 0.90734,
			"control.concordance_mode": 0.92,
		}),
		runfiles.LoadingReport: AttributesReport(map[string]any{
			"loading_xml_report.productive_zmws":  25165824,
			"loading_xml_report.productivity_0_n": 6035979,
			"loading_xml_report.productivity_1_n": 18721040,
			"loading_xml_report.productivity_2_n": 408805,
		}),
		runfiles.RawDataReport: AttributesReport(map[string]any{
			"raw_data_report.read_length":   93918,
			"raw_data_report.read_n50":      168750,
			"raw_data_report.insert_length": 18431,
			"raw_data_report.insert_n50":    20750,
		}),
		runfiles.SmrtlinkDatasetsReport: DatasetsReport(
			map[string]any{
				"cellId":         CellID,
				"wellName":       "A01",
				"plateNumber":    1,
				"bioSampleName":  SampleID,
				"wellSampleName": "pool-1",
				"movieName":      MovieName,
				"runStartedAt":   "2024-05-22T13:56:41Z",
				"runCompletedAt": "2024-05-24T08:40:40Z",
				"numRecords":     HiFiReads,
				"totalLength":    106275091861,
			},
			map[string]any{
				"cellId":         CellID,
				"bioSampleName":  SampleID,
				"dnaBarcodeName": Barcode,
				"numRecords":     BarcodedReads,
				"totalLength":    BarcodedYield,
			},
		),
	}
}

// AttributesReport renders {"attributes":[{"id":..,"value":..}]} with ids in
// sorted order.
func AttributesReport(values map[string]any) []byte {
	type attribute struct {
		ID    string `json:"id"`
		Value any    `json:"value"`
	}
	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	doc := struct {
		Attributes []attribute `json:"attributes"`
	}{}
	for _, id := range ids {
		doc.Attributes = append(doc.Attributes, attribute{ID: id, Value: values[id]})
	}
	out, _ := json.MarshalIndent(doc, "", "  ")
	return out
}

// DatasetsReport renders the SMRT Link datasets array.
func DatasetsReport(records ...map[string]any) []byte {
	out, _ := json.MarshalIndent(records, "", "  ")
	return out
}

const RunMetadataXML = `<?xml version="1.0" encoding="utf-8"?>
<PacBioDataModel xmlns="http://pacificbiosciences.com/PacBioDataModel.xsd">
  <ExperimentContainer>
    <Runs>
      <Run Name="Run 2024-05-22" TimeStampedName="r84202_20240522_133539" Status="Complete" CreatedBy="lab-user">
        <Outputs/>
      </Run>
    </Runs>
  </ExperimentContainer>
</PacBioDataModel>
`

func zipReports(t testing.TB, reports map[string][]byte) []byte {
	t.Helper()
	names := make([]string, 0, len(reports))
	for name := range reports {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write(reports[name]); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func write(t testing.TB, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
