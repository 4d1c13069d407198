package schemas

import "time"

// PostProcessResponse reports the outcome of a post-processing request
type PostProcessResponse struct {
	Run    string `json:"run" doc:"Run name, <run>/<plate>_<well>"`
	DryRun bool   `json:"dry_run" doc:"Whether changes were rolled back"`
	Status string `json:"status" doc:"complete, or dry_run"`
}

// SampleMetrics is one barcoded sample of a sequencing run
type SampleMetrics struct {
	SampleInternalID   string `json:"sample_internal_id" doc:"Sample internal id"`
	Barcode            string `json:"barcode" doc:"Barcode name, e.g. bc2004"`
	HiFiReads          int64  `json:"hifi_reads"`
	HiFiYield          int64  `json:"hifi_yield"`
	HiFiMeanReadLength int64  `json:"hifi_mean_read_length"`
}

// SequencingRunResponse is a stored cell-level metric snapshot
type SequencingRunResponse struct {
	ID                int64     `json:"id"`
	DeviceInternalID  string    `json:"device_internal_id" doc:"SMRT cell id"`
	SequencingRunName string    `json:"sequencing_run_name"`
	RunName           string    `json:"run_name,omitempty"`
	MovieName         string    `json:"movie_name"`
	WellName          string    `json:"well_name"`
	PlateNumber       int       `json:"plate_number"`
	StartedAt         time.Time `json:"started_at"`
	CompletedAt       time.Time `json:"completed_at"`

	HiFiReads            int64   `json:"hifi_reads"`
	HiFiYield            int64   `json:"hifi_yield"`
	HiFiMeanReadLengthKb float64 `json:"hifi_mean_read_length_kb"`
	PercentQ30           float64 `json:"percent_q30"`
	BarcodedHiFiReads    int64   `json:"barcoded_hifi_reads"`
	UnbarcodedHiFiReads  int64   `json:"unbarcoded_hifi_reads"`
	P0Percent            float64 `json:"p0_percent"`
	P1Percent            float64 `json:"p1_percent"`
	P2Percent            float64 `json:"p2_percent"`

	Samples []SampleMetrics `json:"samples"`
}
