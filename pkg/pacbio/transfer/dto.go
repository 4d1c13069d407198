package transfer

import "time"

// DeviceTypeSMRTCell is the run device type of every Revio cell.
const DeviceTypeSMRTCell = "pacbio_smrt_cell"

// PostProcessingDTOs is what the store service persists for one cell.
type PostProcessingDTOs struct {
	RunDevice               RunDevice                 `json:"run_device"`
	SequencingRun           SequencingRun             `json:"sequencing_run"`
	SampleSequencingMetrics []SampleSequencingMetrics `json:"sample_sequencing_metrics"`
}

type RunDevice struct {
	Type       string `json:"type"`
	InternalID string `json:"internal_id"`
}

// SequencingRun is the cell-level metric snapshot.
type SequencingRun struct {
	SequencingRunName string     `json:"sequencing_run_name"`
	RunName           string     `json:"run_name,omitempty"`
	MovieName         string     `json:"movie_name"`
	WellName          string     `json:"well_name"`
	PlateNumber       int        `json:"plate_number"`
	WellSampleName    string     `json:"well_sample_name,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       time.Time  `json:"completed_at"`

	HiFiReads             int64   `json:"hifi_reads"`
	HiFiYield             int64   `json:"hifi_yield"`
	HiFiMeanReadLength    int64   `json:"hifi_mean_read_length"`
	HiFiMeanReadLengthKb  float64 `json:"hifi_mean_read_length_kb"`
	HiFiMedianReadQuality string  `json:"hifi_median_read_quality"`
	PercentQ30            float64 `json:"percent_q30"`

	BarcodedHiFiReads            int64   `json:"barcoded_hifi_reads"`
	BarcodedHiFiReadsPercentage  float64 `json:"barcoded_hifi_reads_percentage"`
	BarcodedHiFiYield            int64   `json:"barcoded_hifi_yield"`
	BarcodedHiFiYieldPercentage  float64 `json:"barcoded_hifi_yield_percentage"`
	BarcodedHiFiMeanReadLength   int64   `json:"barcoded_hifi_mean_read_length"`
	UnbarcodedHiFiReads          int64   `json:"unbarcoded_hifi_reads"`
	UnbarcodedHiFiYield          int64   `json:"unbarcoded_hifi_yield"`
	UnbarcodedHiFiMeanReadLength int64   `json:"unbarcoded_hifi_mean_read_length"`

	FailedReads            int64   `json:"failed_reads"`
	FailedYield            int64   `json:"failed_yield"`
	FailedMeanReadLength   int64   `json:"failed_mean_read_length"`
	FailedMeanReadLengthKb float64 `json:"failed_mean_read_length_kb"`

	ProductiveZMWs int64   `json:"productive_zmws"`
	P0Percent      float64 `json:"p0_percent"`
	P1Percent      float64 `json:"p1_percent"`
	P2Percent      float64 `json:"p2_percent"`

	ControlReads                      int64   `json:"control_reads"`
	ControlMeanReadLength             int64   `json:"control_mean_read_length"`
	ControlPercentMeanReadConcordance float64 `json:"control_percent_mean_read_concordance"`
	ControlPercentModeReadConcordance float64 `json:"control_percent_mode_read_concordance"`

	PolymeraseMeanReadLength           int64 `json:"polymerase_mean_read_length"`
	PolymeraseReadLengthN50            int64 `json:"polymerase_read_length_n50"`
	PolymeraseMeanLongestSubreadLength int64 `json:"polymerase_mean_longest_subread_length"`
	PolymeraseLongestSubreadLengthN50  int64 `json:"polymerase_longest_subread_length_n50"`
}

// SampleSequencingMetrics is one barcoded sample of the cell.
type SampleSequencingMetrics struct {
	SampleInternalID   string `json:"sample_internal_id"`
	Barcode            string `json:"barcode"`
	HiFiReads          int64  `json:"hifi_reads"`
	HiFiYield          int64  `json:"hifi_yield"`
	HiFiMeanReadLength int64  `json:"hifi_mean_read_length"`
}
