// Package runfiles resolves the files of a SMRT cell directory that the
// post-processing pipeline reads and stores.
package runfiles

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/quatton/qseq/pkg/pacbio/rundata"
	"github.com/quatton/qseq/pkg/qerr"
)

// Manager only reads the filesystem.
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

func StatisticsPath(run rundata.RunData) string {
	return filepath.Join(run.FullPath, StatisticsDir)
}

func ReportsPath(run rundata.RunData) string {
	return filepath.Join(run.FullPath, StatisticsDir, UnzippedReportsDir)
}

func MetadataPath(run rundata.RunData) string {
	return filepath.Join(run.FullPath, MetadataDir)
}

func HiFiReadsPath(run rundata.RunData) string {
	return filepath.Join(run.FullPath, HiFiReadsDir)
}

// GetFilesToParse returns the CCS, control, loading, raw data and SMRT Link
// datasets reports, in that order.
func (m *Manager) GetFilesToParse(run rundata.RunData) ([]string, error) {
	reportsDir := ReportsPath(run)

	ccsReport, err := findOneBySuffix(reportsDir, CCSReportSuffix)
	if err != nil {
		return nil, err
	}

	files := []string{ccsReport}
	for _, name := range []string{ControlReport, LoadingReport, RawDataReport, SmrtlinkDatasetsReport} {
		path := filepath.Join(reportsDir, name)
		if err := requireFile(path); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

// GetMetricsFiles returns the files the cell metrics are parsed from: the
// reports of GetFilesToParse plus the run metadata XML when the cell has one.
func (m *Manager) GetMetricsFiles(run rundata.RunData) ([]string, error) {
	files, err := m.GetFilesToParse(run)
	if err != nil {
		return nil, err
	}
	metadata, err := m.GetRunMetadataFile(run)
	if err != nil {
		return nil, err
	}
	if metadata != "" {
		files = append(files, metadata)
	}
	return files, nil
}

// GetFilesToStore returns the report files plus every HiFi BAM except the
// unassigned bucket.
func (m *Manager) GetFilesToStore(run rundata.RunData) ([]string, error) {
	files, err := m.GetFilesToParse(run)
	if err != nil {
		return nil, err
	}
	bams, err := m.GetHiFiReadFiles(run)
	if err != nil {
		return nil, err
	}
	return append(files, bams...), nil
}

// GetHiFiReadFiles lists the per-barcode BAM files, sorted by name.
func (m *Manager) GetHiFiReadFiles(run rundata.RunData) ([]string, error) {
	dir := HiFiReadsPath(run)
	if err := requireDir(dir); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*"+BAMSuffix))
	if err != nil {
		return nil, qerr.New(qerr.CodeFileNotFound, err)
	}

	bams := make([]string, 0, len(matches))
	for _, path := range matches {
		if IsUnassigned(path) {
			continue
		}
		bams = append(bams, path)
	}
	return bams, nil
}

// GetTransferManifest returns the metadata/*.transferdone file.
func (m *Manager) GetTransferManifest(run rundata.RunData) (string, error) {
	return findOneBySuffix(MetadataPath(run), TransferManifestSuffix)
}

// GetReportsArchive returns the statistics/*.reports.zip file.
func (m *Manager) GetReportsArchive(run rundata.RunData) (string, error) {
	return findOneBySuffix(StatisticsPath(run), ReportsArchiveSuffix)
}

// GetRunMetadataFile returns metadata/*.metadata.xml, or "" when the cell
// has none.
func (m *Manager) GetRunMetadataFile(run rundata.RunData) (string, error) {
	path, err := findOneBySuffix(MetadataPath(run), RunMetadataSuffix)
	if qerr.IsCode(err, qerr.CodeFileNotFound) {
		return "", nil
	}
	return path, err
}

// IsUnassigned reports whether path is the bucket of reads without a barcode.
func IsUnassigned(path string) bool {
	return strings.Contains(filepath.Base(path), UnassignedToken)
}

func findOneBySuffix(dir, suffix string) (string, error) {
	if err := requireDir(dir); err != nil {
		return "", err
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*"+suffix))
	if err != nil {
		return "", qerr.New(qerr.CodeFileNotFound, err)
	}
	switch len(matches) {
	case 0:
		return "", qerr.Newf(qerr.CodeFileNotFound, "no file ending in %q in %s", suffix, dir)
	case 1:
		return matches[0], nil
	default:
		return "", qerr.Newf(qerr.CodeFileNotFound, "expected one file ending in %q in %s, found %d", suffix, dir, len(matches))
	}
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return qerr.Newf(qerr.CodeFileNotFound, "file %s does not exist", path)
		}
		return qerr.New(qerr.CodeFileNotFound, err)
	}
	if info.IsDir() {
		return qerr.Newf(qerr.CodeFileNotFound, "%s is a directory", path)
	}
	return nil
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return qerr.Newf(qerr.CodeFileNotFound, "directory %s does not exist", path)
		}
		return qerr.New(qerr.CodeFileNotFound, err)
	}
	if !info.IsDir() {
		return qerr.New(qerr.CodeFileNotFound, fmt.Errorf("%s is not a directory", path))
	}
	return nil
}
