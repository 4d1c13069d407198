package models

import (
	"time"

	"github.com/uptrace/bun"
)

type RunDevice struct {
	bun.BaseModel `bun:"table:run_devices,alias:rd"`

	ID         int64  `bun:",pk,autoincrement"`
	Type       string `bun:",notnull"`
	InternalID string `bun:",unique,notnull"`

	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// SequencingRun is one processing of a SMRT cell. Rows are never updated.
type SequencingRun struct {
	bun.BaseModel `bun:"table:sequencing_runs,alias:sr"`

	ID       int64      `bun:",pk,autoincrement"`
	DeviceID int64      `bun:",notnull"`
	Device   *RunDevice `bun:"rel:belongs-to,join:device_id=id"`

	SequencingRunName string    `bun:",notnull"`
	RunName           string    `bun:",nullzero"`
	MovieName         string    `bun:",notnull"`
	WellName          string    `bun:",notnull"`
	PlateNumber       int       `bun:",notnull"`
	WellSampleName    string    `bun:",nullzero"`
	StartedAt         time.Time `bun:",nullzero"`
	CompletedAt       time.Time `bun:",nullzero"`

	HiFiReads             int64   `bun:"hifi_reads"`
	HiFiYield             int64   `bun:"hifi_yield"`
	HiFiMeanReadLength    int64   `bun:"hifi_mean_read_length"`
	HiFiMeanReadLengthKb  float64 `bun:"hifi_mean_read_length_kb"`
	HiFiMedianReadQuality string  `bun:"hifi_median_read_quality"`
	PercentQ30            float64 `bun:"percent_q30"`

	BarcodedHiFiReads            int64   `bun:"barcoded_hifi_reads"`
	BarcodedHiFiReadsPercentage  float64 `bun:"barcoded_hifi_reads_percentage"`
	BarcodedHiFiYield            int64   `bun:"barcoded_hifi_yield"`
	BarcodedHiFiYieldPercentage  float64 `bun:"barcoded_hifi_yield_percentage"`
	BarcodedHiFiMeanReadLength   int64   `bun:"barcoded_hifi_mean_read_length"`
	UnbarcodedHiFiReads          int64   `bun:"unbarcoded_hifi_reads"`
	UnbarcodedHiFiYield          int64   `bun:"unbarcoded_hifi_yield"`
	UnbarcodedHiFiMeanReadLength int64   `bun:"unbarcoded_hifi_mean_read_length"`

	FailedReads            int64
	FailedYield            int64
	FailedMeanReadLength   int64
	FailedMeanReadLengthKb float64

	ProductiveZMWs int64 `bun:"productive_zmws"`
	P0Percent      float64
	P1Percent      float64
	P2Percent      float64

	ControlReads                      int64
	ControlMeanReadLength             int64
	ControlPercentMeanReadConcordance float64
	ControlPercentModeReadConcordance float64

	PolymeraseMeanReadLength           int64
	PolymeraseReadLengthN50            int64 `bun:"polymerase_read_length_n50"`
	PolymeraseMeanLongestSubreadLength int64
	PolymeraseLongestSubreadLengthN50  int64 `bun:"polymerase_longest_subread_length_n50"`

	Samples []*SampleSequencingMetrics `bun:"rel:has-many,join:id=sequencing_run_id"`

	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

type SampleSequencingMetrics struct {
	bun.BaseModel `bun:"table:sample_sequencing_metrics,alias:ssm"`

	ID              int64 `bun:",pk,autoincrement"`
	SequencingRunID int64 `bun:",notnull"`

	SampleInternalID   string `bun:",notnull"`
	Barcode            string `bun:",notnull"`
	HiFiReads          int64  `bun:"hifi_reads"`
	HiFiYield          int64  `bun:"hifi_yield"`
	HiFiMeanReadLength int64  `bun:"hifi_mean_read_length"`

	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
