// Package metrics parses the Revio report files of a SMRT cell into typed
// records.
package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/quatton/qseq/pkg/qerr"
)

type reportKind string

const (
	kindCCS         reportKind = "ccs report"
	kindControl     reportKind = "control report"
	kindLoading     reportKind = "loading report"
	kindRawData     reportKind = "raw data report"
	kindDatasets    reportKind = "smrtlink datasets report"
	kindRunMetadata reportKind = "run metadata"
)

// Evaluated top to bottom against the file's base name.
var reportRules = []struct {
	pattern *regexp.Regexp
	kind    reportKind
}{
	{regexp.MustCompile(`ccs_report\.json$`), kindCCS},
	{regexp.MustCompile(`^control\.report\.json$`), kindControl},
	{regexp.MustCompile(`^loading\.report\.json$`), kindLoading},
	{regexp.MustCompile(`^raw_data\.report\.json$`), kindRawData},
	{regexp.MustCompile(`^smrtlink-datasets\.json$`), kindDatasets},
	{regexp.MustCompile(`\.metadata\.xml$`), kindRunMetadata},
}

var requiredKinds = []reportKind{kindCCS, kindControl, kindLoading, kindRawData, kindDatasets}

func classify(path string) (reportKind, bool) {
	base := filepath.Base(path)
	for _, rule := range reportRules {
		if rule.pattern.MatchString(base) {
			return rule.kind, true
		}
	}
	return "", false
}

// Parser is stateless; parsing the same files twice gives equal RunMetrics.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse reads every file and assembles one RunMetrics. The five reports are
// required; a run metadata XML is parsed when present in files.
func (p *Parser) Parse(files []string) (RunMetrics, error) {
	var m RunMetrics
	seen := map[reportKind]string{}

	for _, path := range files {
		kind, ok := classify(path)
		if !ok {
			return RunMetrics{}, qerr.Newf(qerr.CodeParsing, "unrecognised report file %s", path)
		}
		if prev, dup := seen[kind]; dup {
			return RunMetrics{}, qerr.Newf(qerr.CodeParsing, "two %s files: %s and %s", kind, prev, path)
		}
		seen[kind] = path

		var err error
		switch kind {
		case kindCCS:
			m.Read, err = ParseReadMetrics(path)
		case kindControl:
			m.Control, err = ParseControlMetrics(path)
		case kindLoading:
			m.Productivity, err = ParseProductivityMetrics(path)
		case kindRawData:
			m.Polymerase, err = ParsePolymeraseMetrics(path)
		case kindDatasets:
			m.Dataset, m.Samples, err = ParseDatasets(path)
		case kindRunMetadata:
			var run RunMetadata
			run, err = ParseRunMetadata(path)
			m.Run = &run
		}
		if err != nil {
			return RunMetrics{}, err
		}
	}

	for _, kind := range requiredKinds {
		if _, ok := seen[kind]; !ok {
			return RunMetrics{}, qerr.Newf(qerr.CodeParsing, "no %s among the parsed files", kind)
		}
	}

	if err := deriveBarcodedReads(&m.Read, m.Samples); err != nil {
		return RunMetrics{}, err
	}
	return m, nil
}

func ParseReadMetrics(path string) (ReadMetrics, error) {
	var m ReadMetrics
	if err := decodeReport(path, &m); err != nil {
		return ReadMetrics{}, err
	}
	m.HiFiPercentQ30 = percent(m.HiFiPercentQ30, 1)
	m.HiFiMeanReadLengthKb = kilobases(m.HiFiMeanReadLength)
	m.FailedMeanReadLengthKb = kilobases(m.FailedMeanReadLength)
	return m, nil
}

func ParseControlMetrics(path string) (ControlMetrics, error) {
	var m ControlMetrics
	if err := decodeReport(path, &m); err != nil {
		return ControlMetrics{}, err
	}
	m.PercentMeanReadConcordance = percent(m.PercentMeanReadConcordance, 2)
	m.PercentModeReadConcordance = percent(m.PercentModeReadConcordance, 2)
	return m, nil
}

func ParseProductivityMetrics(path string) (ProductivityMetrics, error) {
	var m ProductivityMetrics
	if err := decodeReport(path, &m); err != nil {
		return ProductivityMetrics{}, err
	}
	if m.ProductiveZMWs <= 0 {
		return ProductivityMetrics{}, qerr.Newf(qerr.CodeParsing, "%s reports %d productive ZMWs", path, m.ProductiveZMWs)
	}
	m.PercentP0 = share(m.P0, m.ProductiveZMWs, 0)
	m.PercentP1 = share(m.P1, m.ProductiveZMWs, 0)
	m.PercentP2 = share(m.P2, m.ProductiveZMWs, 0)
	return m, nil
}

func ParsePolymeraseMetrics(path string) (PolymeraseMetrics, error) {
	var m PolymeraseMetrics
	if err := decodeReport(path, &m); err != nil {
		return PolymeraseMetrics{}, err
	}
	return m, nil
}

// ParseDatasets validates element 0 of the datasets array as the cell record
// and returns every element with a barcode as a sample.
func ParseDatasets(path string) (SmrtlinkDatasetsMetrics, []SampleMetrics, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SmrtlinkDatasetsMetrics{}, nil, qerr.New(qerr.CodeFileNotFound, err)
	}

	var records []map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return SmrtlinkDatasetsMetrics{}, nil, qerr.New(qerr.CodeParsing, fmt.Errorf("decode %s: %w", path, err))
	}
	if len(records) == 0 {
		return SmrtlinkDatasetsMetrics{}, nil, qerr.Newf(qerr.CodeParsing, "%s contains no datasets", path)
	}

	var cell SmrtlinkDatasetsMetrics
	if err := decodeRecord(path+"[0]", records[0], &cell, "wellSampleName"); err != nil {
		return SmrtlinkDatasetsMetrics{}, nil, err
	}

	var samples []SampleMetrics
	for i, record := range records {
		if barcode, _ := record["dnaBarcodeName"].(string); barcode == "" {
			continue
		}
		var sample SampleMetrics
		if err := decodeRecord(fmt.Sprintf("%s[%d]", path, i), record, &sample); err != nil {
			return SmrtlinkDatasetsMetrics{}, nil, err
		}
		if _, dup := findSample(samples, sample.Barcode); dup {
			return SmrtlinkDatasetsMetrics{}, nil, qerr.Newf(qerr.CodeParsing, "%s lists barcode %s twice", path, sample.Barcode)
		}
		sample.HiFiMeanReadLength = meanLength(sample.HiFiYield, sample.HiFiReads)
		samples = append(samples, sample)
	}
	return cell, samples, nil
}

func decodeReport(path string, out any) error {
	values, err := readAttributes(path)
	if err != nil {
		return err
	}
	return decodeRecord(path, values, out)
}

func findSample(samples []SampleMetrics, barcode string) (SampleMetrics, bool) {
	return RunMetrics{Samples: samples}.SampleByBarcode(barcode)
}

// deriveBarcodedReads splits the HiFi totals into the barcoded share (sum of
// the samples) and the rest.
func deriveBarcodedReads(read *ReadMetrics, samples []SampleMetrics) error {
	var reads, yield int64
	for _, s := range samples {
		reads += s.HiFiReads
		yield += s.HiFiYield
	}
	if reads > read.HiFiReads || yield > read.HiFiYield {
		return qerr.Newf(qerr.CodeParsing,
			"barcoded HiFi reads (%d) or yield (%d) exceed the cell totals (%d, %d)",
			reads, yield, read.HiFiReads, read.HiFiYield)
	}

	read.BarcodedHiFiReads = reads
	read.BarcodedHiFiYield = yield
	read.BarcodedHiFiMeanReadLength = meanLength(yield, reads)
	read.BarcodedHiFiReadsPercentage = share(reads, read.HiFiReads, 1)
	read.BarcodedHiFiYieldPercentage = share(yield, read.HiFiYield, 1)
	read.UnbarcodedHiFiReads = read.HiFiReads - reads
	read.UnbarcodedHiFiYield = read.HiFiYield - yield
	read.UnbarcodedHiFiMeanReadLength = meanLength(read.UnbarcodedHiFiYield, read.UnbarcodedHiFiReads)
	return nil
}
