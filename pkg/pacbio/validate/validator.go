// Package validate checks that a SMRT cell was completely transferred from
// the instrument and unpacks its reports archive.
package validate

import (
	"context"
	"fmt"

	"github.com/quatton/qseq/pkg/pacbio/rundata"
	"github.com/quatton/qseq/pkg/pacbio/runfiles"
	"github.com/quatton/qseq/pkg/qerr"
	"github.com/quatton/qseq/pkg/qlog"
)

// FileLocator is the subset of runfiles.Manager the validator needs.
type FileLocator interface {
	GetTransferManifest(run rundata.RunData) (string, error)
	GetReportsArchive(run rundata.RunData) (string, error)
}

type Validator struct {
	files  FileLocator
	logger *qlog.Logger
}

func New(files FileLocator, logger *qlog.Logger) *Validator {
	return &Validator{files: files, logger: qlog.OrDefault(logger)}
}

// EnsureValid is a no-op when the cell already carries the validated marker.
// Otherwise it checks the transfer manifest, unzips the reports and writes
// the marker last, so a failure never leaves one behind.
func (v *Validator) EnsureValid(ctx context.Context, run rundata.RunData) error {
	marker := runfiles.ValidatedMarkerPath(run)
	if runfiles.HasMarker(marker) {
		v.logger.Debug("run already validated", "run", run.Name())
		return nil
	}

	manifest, err := v.files.GetTransferManifest(run)
	if err != nil {
		return err
	}
	archive, err := v.files.GetReportsArchive(run)
	if err != nil {
		return err
	}

	if err := ValidateTransfer(run.FullPath, manifest); err != nil {
		return err
	}

	n, err := Unzip(ctx, archive, runfiles.ReportsPath(run))
	if err != nil {
		return err
	}
	v.logger.Debug("reports unzipped", "run", run.Name(), "files", n)

	if _, err := runfiles.CreateMarker(marker); err != nil {
		return qerr.New(qerr.CodeFileTransfer, fmt.Errorf("create validation marker: %w", err))
	}
	v.logger.Info("run validated", "run", run.Name())
	return nil
}
