package qapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quatton/qseq/pkg/db/models"
	"github.com/quatton/qseq/pkg/pacbio/postprocess"
	"github.com/quatton/qseq/pkg/qapi"
	"github.com/quatton/qseq/pkg/qapi/schemas"
	"github.com/quatton/qseq/pkg/qapi/services"
	"github.com/quatton/qseq/pkg/qerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePostProcessor struct {
	err    error
	run    string
	dryRun bool
}

func (f *fakePostProcessor) PostProcess(_ context.Context, runName string, dryRun bool) error {
	f.run = runName
	f.dryRun = dryRun
	return f.err
}

type fakeRuns struct {
	runs []models.SequencingRun
	err  error
}

func (f fakeRuns) SequencingRunsForDevice(context.Context, string) ([]models.SequencingRun, error) {
	return f.runs, f.err
}

func do(t *testing.T, api *qapi.Api, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	api.Router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, qapi.NewApi(nil), http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, stripSchema(t, rec.Body.Bytes()))
}

func TestPostProcess(t *testing.T) {
	pp := &fakePostProcessor{}
	api := qapi.NewApi(services.NewServices(pp, nil))

	rec := do(t, api, http.MethodPost, "/api/runs/r84202_20240522_133539/1_A01/post-process?dry_run=true")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body schemas.PostProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "r84202_20240522_133539/1_A01", pp.run)
	assert.True(t, pp.dryRun)
	assert.Equal(t, "r84202_20240522_133539/1_A01", body.Run)
	assert.Equal(t, "dry_run", body.Status)

	rec = do(t, api, http.MethodPost, "/api/runs/r84202_20240522_133539/1_A01/post-process")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, pp.dryRun)
	assert.Equal(t, "complete", body.Status)
}

func TestPostProcessErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{qerr.Newf(qerr.CodeRunNameFormat, "bad name"), http.StatusBadRequest},
		{fmt.Errorf("run x: %w", postprocess.ErrClaimed), http.StatusConflict},
		{qerr.Newf(qerr.CodeFileNotFound, "no such run"), http.StatusNotFound},
		{qerr.New(qerr.CodePostProcessing, qerr.Newf(qerr.CodeParsing, "broken report")), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(string(qerr.CodeOf(tt.err)), func(t *testing.T) {
			api := qapi.NewApi(services.NewServices(&fakePostProcessor{err: tt.err}, nil))
			rec := do(t, api, http.MethodPost, "/api/runs/r1/1_A01/post-process")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestUnconfiguredServices(t *testing.T) {
	api := qapi.NewApi(nil)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, api, http.MethodPost, "/api/runs/r1/1_A01/post-process").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, api, http.MethodGet, "/api/run-devices/m84202_240522_135445_s1/sequencing-runs").Code)
}

func TestListSequencingRuns(t *testing.T) {
	started := time.Date(2024, 5, 22, 13, 54, 45, 0, time.UTC)
	runs := fakeRuns{runs: []models.SequencingRun{{
		ID:                1,
		Device:            &models.RunDevice{InternalID: "EA094834", Type: "pacbio_smrt_cell"},
		SequencingRunName: "r84202_20240522_133539",
		MovieName:         "m84202_240522_135445_s1",
		WellName:          "A01",
		PlateNumber:       1,
		StartedAt:         started,
		HiFiReads:         6580977,
		PercentQ30:        94.2,
		Samples: []*models.SampleSequencingMetrics{
			{SampleInternalID: "1247014000119", Barcode: "bc2004", HiFiReads: 6000000},
		},
	}}}
	api := qapi.NewApi(services.NewServices(nil, runs))

	rec := do(t, api, http.MethodGet, "/api/run-devices/EA094834/sequencing-runs")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		SequencingRuns []schemas.SequencingRunResponse `json:"sequencing_runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.SequencingRuns, 1)
	got := body.SequencingRuns[0]
	assert.Equal(t, "EA094834", got.DeviceInternalID)
	assert.Equal(t, int64(6580977), got.HiFiReads)
	assert.True(t, started.Equal(got.StartedAt))
	require.Len(t, got.Samples, 1)
	assert.Equal(t, "bc2004", got.Samples[0].Barcode)
}

func TestListSequencingRunsErrors(t *testing.T) {
	api := qapi.NewApi(services.NewServices(nil, fakeRuns{}))
	assert.Equal(t, http.StatusNotFound, do(t, api, http.MethodGet, "/api/run-devices/unknown/sequencing-runs").Code)

	api = qapi.NewApi(services.NewServices(nil, fakeRuns{err: errors.New("connection refused")}))
	assert.Equal(t, http.StatusInternalServerError, do(t, api, http.MethodGet, "/api/run-devices/EA094834/sequencing-runs").Code)
}

func TestOpenAPIDocument(t *testing.T) {
	doc := qapi.NewApi(nil).Api.OpenAPI()
	for _, path := range []string{
		"/health",
		"/api/runs/{run}/{well}/post-process",
		"/api/run-devices/{internal_id}/sequencing-runs",
	} {
		assert.Contains(t, doc.Paths, path)
	}
}

// huma adds a $schema link to response bodies.
func stripSchema(t *testing.T, raw []byte) string {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	delete(m, "$schema")
	out, err := json.Marshal(m)
	require.NoError(t, err)
	return string(out)
}
