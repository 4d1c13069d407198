// Package store persists the metrics of one SMRT cell in a single
// transaction.
package store

import (
	"context"
	"errors"

	"github.com/quatton/qseq/pkg/pacbio/metrics"
	"github.com/quatton/qseq/pkg/pacbio/rundata"
	"github.com/quatton/qseq/pkg/pacbio/transfer"
	"github.com/quatton/qseq/pkg/qerr"
	"github.com/quatton/qseq/pkg/qlog"
	"github.com/quatton/qseq/pkg/statusdb"
)

var errDryRun = errors.New("dry run")

// FileLister returns the report and run metadata files a cell is parsed
// from.
type FileLister interface {
	GetMetricsFiles(run rundata.RunData) ([]string, error)
}

type Service struct {
	db       statusdb.Store
	files    FileLister
	parser   *metrics.Parser
	transfer *transfer.Service
	logger   *qlog.Logger
}

func NewService(db statusdb.Store, files FileLister, logger *qlog.Logger) *Service {
	return &Service{
		db:       db,
		files:    files,
		parser:   metrics.NewParser(),
		transfer: transfer.NewService(),
		logger:   qlog.OrDefault(logger),
	}
}

// StoreRun parses the cell's reports, maps them and stores the result.
func (s *Service) StoreRun(ctx context.Context, run rundata.RunData, dryRun bool) error {
	files, err := s.files.GetMetricsFiles(run)
	if err != nil {
		return err
	}
	m, err := s.parser.Parse(files)
	if err != nil {
		return err
	}
	dtos, err := s.transfer.GetPostProcessingDTOs(m, run)
	if err != nil {
		return err
	}
	return s.Store(ctx, dtos, dryRun)
}

// Store creates or reuses the run device, then adds a sequencing run and its
// sample rows. With dryRun every row is built and the transaction rolled back.
func (s *Service) Store(ctx context.Context, dtos transfer.PostProcessingDTOs, dryRun bool) error {
	logger := s.logger.With("device", dtos.RunDevice.InternalID, "run", dtos.SequencingRun.SequencingRunName)

	err := s.db.RunInTx(ctx, func(ctx context.Context, tx statusdb.Tx) error {
		device, err := tx.CreateOrGetRunDevice(ctx, dtos.RunDevice)
		if err != nil {
			return err
		}
		run, err := tx.CreateSequencingRun(ctx, dtos.SequencingRun, device)
		if err != nil {
			return err
		}
		for _, sample := range dtos.SampleSequencingMetrics {
			if err := tx.CreateSampleSequencingRun(ctx, sample, run); err != nil {
				return err
			}
		}
		if dryRun {
			return errDryRun
		}
		return nil
	})

	if errors.Is(err, errDryRun) {
		logger.Info("dry run, rolled back sequencing run", "samples", len(dtos.SampleSequencingMetrics))
		return nil
	}
	if err != nil {
		return qerr.New(qerr.CodeStoreData, err)
	}
	logger.Info("stored sequencing run", "samples", len(dtos.SampleSequencingMetrics))
	return nil
}
