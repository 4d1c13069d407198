// Package statusdb persists run devices, sequencing runs and their per-sample
// metrics.
package statusdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/quatton/qseq/pkg/db/models"
	"github.com/quatton/qseq/pkg/pacbio/transfer"
	"github.com/uptrace/bun"
)

// Store opens transactions. Rows created through a Tx become visible only if
// fn returns nil.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	SequencingRunsForDevice(ctx context.Context, internalID string) ([]models.SequencingRun, error)
}

type Tx interface {
	CreateOrGetRunDevice(ctx context.Context, dto transfer.RunDevice) (*models.RunDevice, error)
	CreateSequencingRun(ctx context.Context, dto transfer.SequencingRun, device *models.RunDevice) (*models.SequencingRun, error)
	CreateSampleSequencingRun(ctx context.Context, dto transfer.SampleSequencingMetrics, run *models.SequencingRun) error
}

type BunStore struct {
	db *bun.DB
}

func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

func (s *BunStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &bunTx{tx: tx})
	})
}

// SequencingRunsForDevice lists the runs of one SMRT cell, oldest first, with
// their samples.
func (s *BunStore) SequencingRunsForDevice(ctx context.Context, internalID string) ([]models.SequencingRun, error) {
	var runs []models.SequencingRun
	err := s.db.NewSelect().
		Model(&runs).
		Relation("Device").
		Relation("Samples", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("ssm.barcode ASC")
		}).
		Where("device.internal_id = ?", internalID).
		Order("sr.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select sequencing runs of %s: %w", internalID, err)
	}
	return runs, nil
}

type bunTx struct {
	tx bun.Tx
}

func (t *bunTx) CreateOrGetRunDevice(ctx context.Context, dto transfer.RunDevice) (*models.RunDevice, error) {
	device := &models.RunDevice{Type: dto.Type, InternalID: dto.InternalID}
	_, err := t.tx.NewInsert().
		Model(device).
		On("CONFLICT (internal_id) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("insert run device %s: %w", dto.InternalID, err)
	}

	existing := new(models.RunDevice)
	err = t.tx.NewSelect().Model(existing).Where("internal_id = ?", dto.InternalID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run device %s vanished after insert", dto.InternalID)
	}
	if err != nil {
		return nil, fmt.Errorf("select run device %s: %w", dto.InternalID, err)
	}
	if existing.Type != dto.Type {
		return nil, fmt.Errorf("run device %s is a %s, not a %s", dto.InternalID, existing.Type, dto.Type)
	}
	return existing, nil
}

func (t *bunTx) CreateSequencingRun(ctx context.Context, dto transfer.SequencingRun, device *models.RunDevice) (*models.SequencingRun, error) {
	run := &models.SequencingRun{
		DeviceID: device.ID,

		SequencingRunName: dto.SequencingRunName,
		RunName:           dto.RunName,
		MovieName:         dto.MovieName,
		WellName:          dto.WellName,
		PlateNumber:       dto.PlateNumber,
		WellSampleName:    dto.WellSampleName,
		StartedAt:         dto.StartedAt,
		CompletedAt:       dto.CompletedAt,

		HiFiReads:             dto.HiFiReads,
		HiFiYield:             dto.HiFiYield,
		HiFiMeanReadLength:    dto.HiFiMeanReadLength,
		HiFiMeanReadLengthKb:  dto.HiFiMeanReadLengthKb,
		HiFiMedianReadQuality: dto.HiFiMedianReadQuality,
		PercentQ30:            dto.PercentQ30,

		BarcodedHiFiReads:            dto.BarcodedHiFiReads,
		BarcodedHiFiReadsPercentage:  dto.BarcodedHiFiReadsPercentage,
		BarcodedHiFiYield:            dto.BarcodedHiFiYield,
		BarcodedHiFiYieldPercentage:  dto.BarcodedHiFiYieldPercentage,
		BarcodedHiFiMeanReadLength:   dto.BarcodedHiFiMeanReadLength,
		UnbarcodedHiFiReads:          dto.UnbarcodedHiFiReads,
		UnbarcodedHiFiYield:          dto.UnbarcodedHiFiYield,
		UnbarcodedHiFiMeanReadLength: dto.UnbarcodedHiFiMeanReadLength,

		FailedReads:            dto.FailedReads,
		FailedYield:            dto.FailedYield,
		FailedMeanReadLength:   dto.FailedMeanReadLength,
		FailedMeanReadLengthKb: dto.FailedMeanReadLengthKb,

		ProductiveZMWs: dto.ProductiveZMWs,
		P0Percent:      dto.P0Percent,
		P1Percent:      dto.P1Percent,
		P2Percent:      dto.P2Percent,

		ControlReads:                      dto.ControlReads,
		ControlMeanReadLength:             dto.ControlMeanReadLength,
		ControlPercentMeanReadConcordance: dto.ControlPercentMeanReadConcordance,
		ControlPercentModeReadConcordance: dto.ControlPercentModeReadConcordance,

		PolymeraseMeanReadLength:           dto.PolymeraseMeanReadLength,
		PolymeraseReadLengthN50:            dto.PolymeraseReadLengthN50,
		PolymeraseMeanLongestSubreadLength: dto.PolymeraseMeanLongestSubreadLength,
		PolymeraseLongestSubreadLengthN50:  dto.PolymeraseLongestSubreadLengthN50,
	}
	if _, err := t.tx.NewInsert().Model(run).Returning("id").Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert sequencing run %s: %w", dto.SequencingRunName, err)
	}
	run.Device = device
	return run, nil
}

func (t *bunTx) CreateSampleSequencingRun(ctx context.Context, dto transfer.SampleSequencingMetrics, run *models.SequencingRun) error {
	sample := &models.SampleSequencingMetrics{
		SequencingRunID:    run.ID,
		SampleInternalID:   dto.SampleInternalID,
		Barcode:            dto.Barcode,
		HiFiReads:          dto.HiFiReads,
		HiFiYield:          dto.HiFiYield,
		HiFiMeanReadLength: dto.HiFiMeanReadLength,
	}
	if _, err := t.tx.NewInsert().Model(sample).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("insert metrics of sample %s: %w", dto.SampleInternalID, err)
	}
	run.Samples = append(run.Samples, sample)
	return nil
}
