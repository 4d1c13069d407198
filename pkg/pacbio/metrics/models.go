package metrics

import "time"

// ReadMetrics come from the CCS report. Fields tagged "-" are derived after
// decoding.
type ReadMetrics struct {
	HiFiReads             int64   `mapstructure:"ccs2.number_of_ccs_reads"`
	HiFiYield             int64   `mapstructure:"ccs2.total_number_of_ccs_bases"`
	HiFiMeanReadLength    int64   `mapstructure:"ccs2.mean_ccs_readlength"`
	HiFiMedianReadQuality string  `mapstructure:"ccs2.median_accuracy"`
	HiFiPercentQ30        float64 `mapstructure:"ccs2.percent_ccs_bases_q30"`
	FailedReads           int64   `mapstructure:"ccs2.failed_ccs_read_count"`
	FailedYield           int64   `mapstructure:"ccs2.failed_ccs_yield"`
	FailedMeanReadLength  int64   `mapstructure:"ccs2.failed_ccs_mean_read_length"`

	HiFiMeanReadLengthKb   float64 `mapstructure:"-"`
	FailedMeanReadLengthKb float64 `mapstructure:"-"`

	BarcodedHiFiReads            int64   `mapstructure:"-"`
	BarcodedHiFiYield            int64   `mapstructure:"-"`
	BarcodedHiFiMeanReadLength   int64   `mapstructure:"-"`
	BarcodedHiFiReadsPercentage  float64 `mapstructure:"-"`
	BarcodedHiFiYieldPercentage  float64 `mapstructure:"-"`
	UnbarcodedHiFiReads          int64   `mapstructure:"-"`
	UnbarcodedHiFiYield          int64   `mapstructure:"-"`
	UnbarcodedHiFiMeanReadLength int64   `mapstructure:"-"`
}

// ControlMetrics describe the spike-in control reads.
type ControlMetrics struct {
	Reads                      int64   `mapstructure:"control.reads_n"`
	MeanReadLength             int64   `mapstructure:"control.readlength_mean"`
	PercentMeanReadConcordance float64 `mapstructure:"control.concordance_mean"`
	PercentModeReadConcordance float64 `mapstructure:"control.concordance_mode"`
}

// ProductivityMetrics is the ZMW loading distribution. The percentages are
// shares of ProductiveZMWs.
type ProductivityMetrics struct {
	ProductiveZMWs int64 `mapstructure:"loading_xml_report.productive_zmws"`
	P0             int64 `mapstructure:"loading_xml_report.productivity_0_n"`
	P1             int64 `mapstructure:"loading_xml_report.productivity_1_n"`
	P2             int64 `mapstructure:"loading_xml_report.productivity_2_n"`

	PercentP0 float64 `mapstructure:"-"`
	PercentP1 float64 `mapstructure:"-"`
	PercentP2 float64 `mapstructure:"-"`
}

// PolymeraseMetrics describe raw polymerase read lengths.
type PolymeraseMetrics struct {
	MeanReadLength           int64 `mapstructure:"raw_data_report.read_length"`
	ReadLengthN50            int64 `mapstructure:"raw_data_report.read_n50"`
	MeanLongestSubreadLength int64 `mapstructure:"raw_data_report.insert_length"`
	LongestSubreadLengthN50  int64 `mapstructure:"raw_data_report.insert_n50"`
}

// SmrtlinkDatasetsMetrics is the cell-level record of the datasets report.
type SmrtlinkDatasetsMetrics struct {
	CellID           string    `mapstructure:"cellId"`
	Well             string    `mapstructure:"wellName"`
	Plate            int       `mapstructure:"plateNumber"`
	SampleInternalID string    `mapstructure:"bioSampleName"`
	MovieName        string    `mapstructure:"movieName"`
	WellSampleName   string    `mapstructure:"wellSampleName"`
	RunStartedAt     time.Time `mapstructure:"runStartedAt"`
	RunCompletedAt   time.Time `mapstructure:"runCompletedAt"`
}

// SampleMetrics is one barcoded sample of a multiplexed cell.
type SampleMetrics struct {
	SampleInternalID string `mapstructure:"bioSampleName"`
	Barcode          string `mapstructure:"dnaBarcodeName"`
	HiFiReads        int64  `mapstructure:"numRecords"`
	HiFiYield        int64  `mapstructure:"totalLength"`

	HiFiMeanReadLength int64 `mapstructure:"-"`
}

// RunMetadata is read from the <Run> element of the run metadata XML.
type RunMetadata struct {
	Name            string `xml:"Name,attr"`
	TimeStampedName string `xml:"TimeStampedName,attr"`
	Status          string `xml:"Status,attr"`
	CreatedBy       string `xml:"CreatedBy,attr"`
}

// RunMetrics is everything parsed for one SMRT cell.
type RunMetrics struct {
	Read         ReadMetrics
	Control      ControlMetrics
	Productivity ProductivityMetrics
	Polymerase   PolymeraseMetrics
	Dataset      SmrtlinkDatasetsMetrics
	Samples      []SampleMetrics
	// Run is nil when no run metadata XML was parsed.
	Run *RunMetadata
}

// SampleByBarcode returns the sample whose barcode equals barcode.
func (m RunMetrics) SampleByBarcode(barcode string) (SampleMetrics, bool) {
	for _, s := range m.Samples {
		if s.Barcode == barcode {
			return s, true
		}
	}
	return SampleMetrics{}, false
}
