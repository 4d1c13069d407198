package services

import (
	"context"

	"github.com/quatton/qseq/pkg/db/models"
)

// PostProcessor is implemented by postprocess.Service.
type PostProcessor interface {
	PostProcess(ctx context.Context, runName string, dryRun bool) error
}

// RunReader is implemented by statusdb.BunStore.
type RunReader interface {
	SequencingRunsForDevice(ctx context.Context, internalID string) ([]models.SequencingRun, error)
}

type Services struct {
	PostProcess PostProcessor
	Runs        RunReader
}

func NewServices(pp PostProcessor, runs RunReader) *Services {
	return &Services{
		PostProcess: pp,
		Runs:        runs,
	}
}

func EmptyServices() *Services {
	return &Services{
		PostProcess: nil,
		Runs:        nil,
	}
}
