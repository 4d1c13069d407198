package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/qseq/pkg/db/models"
	"github.com/quatton/qseq/pkg/pacbio/postprocess"
	"github.com/quatton/qseq/pkg/qapi/schemas"
	"github.com/quatton/qseq/pkg/qapi/services"
	"github.com/quatton/qseq/pkg/qerr"
)

// PostProcessInput names one SMRT cell, split into run and cell segments
type PostProcessInput struct {
	Run    string `path:"run" doc:"Sequencing run directory, e.g. r84202_20240522_133539"`
	Well   string `path:"well" doc:"Cell directory, <plate>_<well>, e.g. 1_A01"`
	DryRun bool   `query:"dry_run" doc:"Roll back database changes and skip file registration"`
}

type PostProcessOutput struct {
	Body schemas.PostProcessResponse
}

type ListSequencingRunsInput struct {
	InternalID string `path:"internal_id" doc:"SMRT cell id"`
}

type ListSequencingRunsOutput struct {
	Body struct {
		SequencingRuns []schemas.SequencingRunResponse `json:"sequencing_runs" doc:"Runs of the cell, oldest first"`
	}
}

// RegisterPostProcessing registers the post-processing trigger
func RegisterPostProcessing(api huma.API, pp services.PostProcessor) {
	huma.Register(api, huma.Operation{
		OperationID:   "post-process-run",
		Method:        http.MethodPost,
		Path:          "/api/runs/{run}/{well}/post-process",
		Summary:       "Post-process a SMRT cell",
		Description:   "Validate, parse, store and register one SMRT cell. Completed cells are left untouched.",
		Tags:          []string{TagPostProcessing.String()},
		DefaultStatus: http.StatusOK,
	}, func(ctx context.Context, input *PostProcessInput) (*PostProcessOutput, error) {
		if pp == nil {
			return nil, huma.Error503ServiceUnavailable("post-processing is not configured")
		}

		runName := input.Run + "/" + input.Well
		if err := pp.PostProcess(ctx, runName, input.DryRun); err != nil {
			return nil, toHTTPError(err)
		}

		resp := &PostProcessOutput{}
		resp.Body.Run = runName
		resp.Body.DryRun = input.DryRun
		resp.Body.Status = postprocess.StageComplete.String()
		if input.DryRun {
			resp.Body.Status = "dry_run"
		}
		return resp, nil
	})
}

// RegisterSequencingRuns registers read access to stored metrics
func RegisterSequencingRuns(api huma.API, runs services.RunReader) {
	huma.Register(api, huma.Operation{
		OperationID: "list-sequencing-runs",
		Method:      http.MethodGet,
		Path:        "/api/run-devices/{internal_id}/sequencing-runs",
		Summary:     "List sequencing runs of a SMRT cell",
		Tags:        []string{TagSequencingRuns.String()},
	}, func(ctx context.Context, input *ListSequencingRunsInput) (*ListSequencingRunsOutput, error) {
		if runs == nil {
			return nil, huma.Error503ServiceUnavailable("status database is not configured")
		}

		stored, err := runs.SequencingRunsForDevice(ctx, input.InternalID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to read sequencing runs", err)
		}
		if len(stored) == 0 {
			return nil, huma.Error404NotFound("no sequencing runs for " + input.InternalID)
		}

		resp := &ListSequencingRunsOutput{}
		resp.Body.SequencingRuns = make([]schemas.SequencingRunResponse, 0, len(stored))
		for _, run := range stored {
			resp.Body.SequencingRuns = append(resp.Body.SequencingRuns, toSequencingRunResponse(run))
		}
		return resp, nil
	})
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, postprocess.ErrClaimed):
		return huma.Error409Conflict("run is being processed elsewhere", err)
	case qerr.IsCode(err, qerr.CodeRunNameFormat):
		return huma.Error400BadRequest("invalid run name", err)
	case qerr.IsCode(err, qerr.CodeFileNotFound):
		return huma.Error404NotFound("run files not found", err)
	case errors.Is(err, context.Canceled):
		return huma.Error503ServiceUnavailable("request cancelled", err)
	default:
		return huma.Error422UnprocessableEntity("post-processing failed", err)
	}
}

func toSequencingRunResponse(run models.SequencingRun) schemas.SequencingRunResponse {
	resp := schemas.SequencingRunResponse{
		ID:                   run.ID,
		SequencingRunName:    run.SequencingRunName,
		RunName:              run.RunName,
		MovieName:            run.MovieName,
		WellName:             run.WellName,
		PlateNumber:          run.PlateNumber,
		StartedAt:            run.StartedAt,
		CompletedAt:          run.CompletedAt,
		HiFiReads:            run.HiFiReads,
		HiFiYield:            run.HiFiYield,
		HiFiMeanReadLengthKb: run.HiFiMeanReadLengthKb,
		PercentQ30:           run.PercentQ30,
		BarcodedHiFiReads:    run.BarcodedHiFiReads,
		UnbarcodedHiFiReads:  run.UnbarcodedHiFiReads,
		P0Percent:            run.P0Percent,
		P1Percent:            run.P1Percent,
		P2Percent:            run.P2Percent,
		Samples:              []schemas.SampleMetrics{},
	}
	if run.Device != nil {
		resp.DeviceInternalID = run.Device.InternalID
	}
	for _, s := range run.Samples {
		resp.Samples = append(resp.Samples, schemas.SampleMetrics{
			SampleInternalID:   s.SampleInternalID,
			Barcode:            s.Barcode,
			HiFiReads:          s.HiFiReads,
			HiFiYield:          s.HiFiYield,
			HiFiMeanReadLength: s.HiFiMeanReadLength,
		})
	}
	return resp
}
