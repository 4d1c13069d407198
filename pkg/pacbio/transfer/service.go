// Package transfer maps parsed cell metrics onto the records the store
// service persists.
package transfer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/quatton/qseq/pkg/pacbio/metrics"
	"github.com/quatton/qseq/pkg/pacbio/rundata"
	"github.com/quatton/qseq/pkg/qerr"
)

type Service struct{}

func NewService() *Service {
	return &Service{}
}

// GetPostProcessingDTOs is a pure mapping. Identifiers the database keys on
// must be present, and metadata parsed from the run XML must agree with the
// run directory.
func (s *Service) GetPostProcessingDTOs(m metrics.RunMetrics, run rundata.RunData) (PostProcessingDTOs, error) {
	if err := checkIdentifiers(m, run); err != nil {
		return PostProcessingDTOs{}, qerr.New(qerr.CodeDataTransfer, err)
	}

	dtos := PostProcessingDTOs{
		RunDevice: RunDevice{
			Type:       DeviceTypeSMRTCell,
			InternalID: m.Dataset.CellID,
		},
		SequencingRun: sequencingRun(m, run),
	}
	for _, sample := range m.Samples {
		dtos.SampleSequencingMetrics = append(dtos.SampleSequencingMetrics, SampleSequencingMetrics{
			SampleInternalID:   sample.SampleInternalID,
			Barcode:            sample.Barcode,
			HiFiReads:          sample.HiFiReads,
			HiFiYield:          sample.HiFiYield,
			HiFiMeanReadLength: sample.HiFiMeanReadLength,
		})
	}
	return dtos, nil
}

func checkIdentifiers(m metrics.RunMetrics, run rundata.RunData) error {
	var errs []error
	required := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is empty", field))
		}
	}
	required("cell id", m.Dataset.CellID)
	required("movie name", m.Dataset.MovieName)
	required("well name", m.Dataset.Well)
	required("sequencing run name", run.SequencingRunName)
	for i, sample := range m.Samples {
		required(fmt.Sprintf("sample %d internal id", i), sample.SampleInternalID)
		required(fmt.Sprintf("sample %d barcode", i), sample.Barcode)
	}

	if m.Dataset.Well != "" && run.WellName != "" && m.Dataset.Well != run.WellName {
		errs = append(errs, fmt.Errorf("datasets report well %s does not match run well %s", m.Dataset.Well, run.WellName))
	}
	if m.Run != nil && m.Run.TimeStampedName != run.SequencingRunName {
		errs = append(errs, fmt.Errorf("run metadata names %s, directory is %s", m.Run.TimeStampedName, run.SequencingRunName))
	}
	return errors.Join(errs...)
}

func sequencingRun(m metrics.RunMetrics, run rundata.RunData) SequencingRun {
	r := m.Read
	sr := SequencingRun{
		SequencingRunName: run.SequencingRunName,
		MovieName:         m.Dataset.MovieName,
		WellName:          m.Dataset.Well,
		PlateNumber:       m.Dataset.Plate,
		WellSampleName:    m.Dataset.WellSampleName,
		StartedAt:         m.Dataset.RunStartedAt,
		CompletedAt:       m.Dataset.RunCompletedAt,

		HiFiReads:             r.HiFiReads,
		HiFiYield:             r.HiFiYield,
		HiFiMeanReadLength:    r.HiFiMeanReadLength,
		HiFiMeanReadLengthKb:  r.HiFiMeanReadLengthKb,
		HiFiMedianReadQuality: r.HiFiMedianReadQuality,
		PercentQ30:            r.HiFiPercentQ30,

		BarcodedHiFiReads:            r.BarcodedHiFiReads,
		BarcodedHiFiReadsPercentage:  r.BarcodedHiFiReadsPercentage,
		BarcodedHiFiYield:            r.BarcodedHiFiYield,
		BarcodedHiFiYieldPercentage:  r.BarcodedHiFiYieldPercentage,
		BarcodedHiFiMeanReadLength:   r.BarcodedHiFiMeanReadLength,
		UnbarcodedHiFiReads:          r.UnbarcodedHiFiReads,
		UnbarcodedHiFiYield:          r.UnbarcodedHiFiYield,
		UnbarcodedHiFiMeanReadLength: r.UnbarcodedHiFiMeanReadLength,

		FailedReads:            r.FailedReads,
		FailedYield:            r.FailedYield,
		FailedMeanReadLength:   r.FailedMeanReadLength,
		FailedMeanReadLengthKb: r.FailedMeanReadLengthKb,

		ProductiveZMWs: m.Productivity.ProductiveZMWs,
		P0Percent:      m.Productivity.PercentP0,
		P1Percent:      m.Productivity.PercentP1,
		P2Percent:      m.Productivity.PercentP2,

		ControlReads:                      m.Control.Reads,
		ControlMeanReadLength:             m.Control.MeanReadLength,
		ControlPercentMeanReadConcordance: m.Control.PercentMeanReadConcordance,
		ControlPercentModeReadConcordance: m.Control.PercentModeReadConcordance,

		PolymeraseMeanReadLength:           m.Polymerase.MeanReadLength,
		PolymeraseReadLengthN50:            m.Polymerase.ReadLengthN50,
		PolymeraseMeanLongestSubreadLength: m.Polymerase.MeanLongestSubreadLength,
		PolymeraseLongestSubreadLengthN50:  m.Polymerase.LongestSubreadLengthN50,
	}
	if m.Run != nil {
		sr.RunName = m.Run.Name
	}
	return sr
}
