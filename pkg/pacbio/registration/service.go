// Package registration files a cell's reports and HiFi reads into the tagged
// file store: reports under the SMRT cell bundle, BAMs under the bundle of
// the sample whose barcode they carry.
package registration

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/quatton/qseq/pkg/housekeeper"
	"github.com/quatton/qseq/pkg/pacbio/metrics"
	"github.com/quatton/qseq/pkg/pacbio/rundata"
	"github.com/quatton/qseq/pkg/qerr"
	"github.com/quatton/qseq/pkg/qlog"
)

// FileLister resolves the files registration needs.
type FileLister interface {
	GetMetricsFiles(run rundata.RunData) ([]string, error)
	GetFilesToStore(run rundata.RunData) ([]string, error)
}

// Registration is one file and where it goes.
type Registration struct {
	Path   string
	Bundle string
	Type   BundleType
	Tags   []string
}

type Service struct {
	files  FileLister
	store  housekeeper.FileStore
	parser *metrics.Parser
	logger *qlog.Logger
}

func NewService(files FileLister, store housekeeper.FileStore, logger *qlog.Logger) *Service {
	return &Service{
		files:  files,
		store:  store,
		parser: metrics.NewParser(),
		logger: qlog.OrDefault(logger),
	}
}

// RegisterRun re-parses the cell metrics for sample ownership and registers
// every file to store. A dry run only logs the plan.
func (s *Service) RegisterRun(ctx context.Context, run rundata.RunData, dryRun bool) error {
	parseFiles, err := s.files.GetMetricsFiles(run)
	if err != nil {
		return qerr.New(qerr.CodeStoreFile, err)
	}
	m, err := s.parser.Parse(parseFiles)
	if err != nil {
		return qerr.New(qerr.CodeStoreFile, err)
	}
	files, err := s.files.GetFilesToStore(run)
	if err != nil {
		return qerr.New(qerr.CodeStoreFile, err)
	}
	return s.RegisterFiles(ctx, m, files, dryRun)
}

// RegisterFiles resolves every file before registering any, so an unowned
// BAM leaves the file store untouched.
func (s *Service) RegisterFiles(ctx context.Context, m metrics.RunMetrics, files []string, dryRun bool) error {
	plan, err := Plan(m, files)
	if err != nil {
		return err
	}

	for _, r := range plan {
		logger := s.logger.With("bundle", r.Bundle, "file", filepath.Base(r.Path))
		if dryRun {
			logger.Info("dry run, would register file", "tags", r.Tags)
			continue
		}
		if err := s.store.CreateBundleAndAddFileWithTags(ctx, r.Bundle, r.Path, r.Tags); err != nil {
			return qerr.New(qerr.CodeStoreFile, fmt.Errorf("register %s in %s: %w", r.Path, r.Bundle, err))
		}
		logger.Debug("registered file")
	}
	return nil
}

// Plan decides bundle and tags for each file. Tags always include the bundle
// name.
func Plan(m metrics.RunMetrics, files []string) ([]Registration, error) {
	plan := make([]Registration, 0, len(files))
	for _, path := range files {
		tags, ok := tagsFor(path)
		if !ok {
			return nil, qerr.Newf(qerr.CodeStoreFile, "no tags defined for %s", filepath.Base(path))
		}
		kind, ok := bundleTypeFor(path)
		if !ok {
			return nil, qerr.Newf(qerr.CodeStoreFile, "no bundle type defined for %s", filepath.Base(path))
		}

		bundle, err := bundleName(m, kind, path)
		if err != nil {
			return nil, err
		}
		plan = append(plan, Registration{
			Path:   path,
			Bundle: bundle,
			Type:   kind,
			Tags:   append(tags, bundle),
		})
	}
	return plan, nil
}

func bundleName(m metrics.RunMetrics, kind BundleType, path string) (string, error) {
	switch kind {
	case BundleSMRTCell:
		if m.Dataset.CellID == "" {
			return "", qerr.Newf(qerr.CodeStoreFile, "no SMRT cell id to bundle %s under", filepath.Base(path))
		}
		return m.Dataset.CellID, nil
	case BundleSample:
		tokens := barcodeTokens(path)
		if len(tokens) == 0 {
			return "", qerr.Newf(qerr.CodeStoreFile, "no barcode in %s", filepath.Base(path))
		}
		for _, token := range tokens {
			if sample, ok := m.SampleByBarcode(token); ok {
				return sample.SampleInternalID, nil
			}
		}
		return "", qerr.Newf(qerr.CodeStoreFile, "no sample with barcode %s for %s", tokens[0], filepath.Base(path))
	default:
		return "", qerr.Newf(qerr.CodeStoreFile, "unknown bundle type %s", kind)
	}
}
