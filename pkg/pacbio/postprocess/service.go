// Package postprocess drives a SMRT cell from run name to stored metrics and
// registered files, once per cell.
package postprocess

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/quatton/qseq/pkg/pacbio/rundata"
	"github.com/quatton/qseq/pkg/pacbio/runfiles"
	"github.com/quatton/qseq/pkg/qlog"
	"golang.org/x/sync/errgroup"
)

type Validator interface {
	EnsureValid(ctx context.Context, run rundata.RunData) error
}

type RunStorer interface {
	StoreRun(ctx context.Context, run rundata.RunData, dryRun bool) error
}

type Registrar interface {
	RegisterRun(ctx context.Context, run rundata.RunData, dryRun bool) error
}

type Service struct {
	generator *rundata.Generator
	validator Validator
	store     RunStorer
	registrar Registrar
	claimer   Claimer
	workers   int
	logger    *qlog.Logger
}

type Option func(*Service)

// WithWorkers bounds how many runs PostProcessAll handles at once.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithClaimer(c Claimer) Option {
	return func(s *Service) { s.claimer = c }
}

func NewService(generator *rundata.Generator, validator Validator, store RunStorer, registrar Registrar, logger *qlog.Logger, opts ...Option) *Service {
	s := &Service{
		generator: generator,
		validator: validator,
		store:     store,
		registrar: registrar,
		workers:   1,
		logger:    qlog.OrDefault(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.claimer == nil {
		s.claimer = NewFileClaimer(DefaultClaimTTL, s.logger)
	}
	return s
}

// outcome is how a run that did not fail left PostProcessAll.
type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeAlreadyComplete
	outcomeClaimed
)

func (o outcome) String() string {
	switch o {
	case outcomeProcessed:
		return "processed"
	case outcomeAlreadyComplete:
		return "already_complete"
	case outcomeClaimed:
		return "claimed_elsewhere"
	default:
		return "unknown"
	}
}

// PostProcess runs every stage for runName. A run with the completion marker
// is a no-op. The marker is written only after a full run without dryRun.
func (s *Service) PostProcess(ctx context.Context, runName string, dryRun bool) error {
	out, err := s.postProcess(ctx, runName, dryRun)
	if out == outcomeClaimed {
		return newError(runName, StageNameParsed, err)
	}
	return err
}

func (s *Service) postProcess(ctx context.Context, runName string, dryRun bool) (outcome, error) {
	logger := s.logger.With("run", runName)
	stage := StageNotStarted

	run, err := s.generator.GetRunData(runName)
	if err != nil {
		return outcomeProcessed, newError(runName, stage, err)
	}
	stage = StageNameParsed

	completed := runfiles.CompletedMarkerPath(run)
	if runfiles.HasMarker(completed) {
		logger.Info("already post-processed, skipping")
		return outcomeAlreadyComplete, nil
	}

	release, err := s.claimer.Claim(ctx, run)
	if errors.Is(err, ErrClaimed) {
		logger.Warn("run is being processed elsewhere", "reason", err)
		return outcomeClaimed, err
	}
	if err != nil {
		return outcomeProcessed, newError(runName, stage, fmt.Errorf("claim run: %w", err))
	}
	defer release()

	// another worker may have finished between the check and the claim
	if runfiles.HasMarker(completed) {
		logger.Info("already post-processed, skipping")
		return outcomeAlreadyComplete, nil
	}

	logger.Info("post-processing run", "dry_run", dryRun)

	if err := s.validator.EnsureValid(ctx, run); err != nil {
		return outcomeProcessed, newError(runName, stage, err)
	}
	stage = StageValidated
	logger.Debug("stage reached", "stage", stage)

	if err := s.store.StoreRun(ctx, run, dryRun); err != nil {
		return outcomeProcessed, newError(runName, stage, err)
	}
	stage = StageStored
	logger.Debug("stage reached", "stage", stage)

	if err := s.registrar.RegisterRun(ctx, run, dryRun); err != nil {
		return outcomeProcessed, newError(runName, stage, err)
	}
	stage = StageFilesRegistered
	logger.Debug("stage reached", "stage", stage)

	if dryRun {
		logger.Info("dry run finished, completion marker not written")
		return outcomeProcessed, nil
	}

	created, err := runfiles.CreateMarker(completed)
	if err != nil {
		return outcomeProcessed, newError(runName, stage, fmt.Errorf("write completion marker: %w", err))
	}
	if !created {
		logger.Warn("completion marker appeared while processing")
	}
	logger.Info("post-processing complete", "stage", StageComplete)
	return outcomeProcessed, nil
}

// PostProcessAll processes every run, up to the configured number at once.
// A failing run never stops the others; the failures are joined and returned
// once the whole batch is done. Runs claimed elsewhere are skipped.
// Cancelling ctx stops new runs from starting.
func (s *Service) PostProcessAll(ctx context.Context, runNames []string, dryRun bool) error {
	errs := make([]error, len(runNames))
	var (
		mu      sync.Mutex
		summary = map[outcome]int{}
	)

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, name := range runNames {
		if err := ctx.Err(); err != nil {
			errs[i] = newError(name, StageNotStarted, err)
			continue
		}
		i, name := i, name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = newError(name, StageNotStarted, err)
				return nil
			}
			out, err := s.postProcess(ctx, name, dryRun)
			if err != nil && out != outcomeClaimed {
				s.logger.Error("run failed", "run", name, "error", err)
				errs[i] = err
				return nil
			}
			mu.Lock()
			summary[out]++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	err := errors.Join(errs...)
	failed := 0
	for _, e := range errs {
		if e != nil {
			failed++
		}
	}
	args := []any{"runs", len(runNames)}
	for _, o := range []outcome{outcomeProcessed, outcomeAlreadyComplete, outcomeClaimed} {
		args = append(args, o.String(), summary[o])
	}
	s.logger.Info("batch finished", append(args, "failed", failed)...)
	return err
}

// DiscoverRuns lists every <run>/<plate>_<well> directory under the
// sequencing directory whose name parses as a run name, sorted.
func (s *Service) DiscoverRuns(ctx context.Context) ([]string, error) {
	root := s.generator.SequencingDir()
	runDirs, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read sequencing directory: %w", err)
	}

	var names []string
	for _, runDir := range runDirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !runDir.IsDir() {
			continue
		}
		cells, err := os.ReadDir(filepath.Join(root, runDir.Name()))
		if err != nil {
			return nil, fmt.Errorf("read run directory %s: %w", runDir.Name(), err)
		}
		for _, cell := range cells {
			if !cell.IsDir() {
				continue
			}
			name := runDir.Name() + "/" + cell.Name()
			if _, err := s.generator.GetRunData(name); err != nil {
				s.logger.Debug("ignoring directory", "path", name, "reason", err)
				continue
			}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// PostProcessAllUnprocessed discovers runs without a completion marker and
// processes them.
func (s *Service) PostProcessAllUnprocessed(ctx context.Context, dryRun bool) error {
	names, err := s.DiscoverRuns(ctx)
	if err != nil {
		return err
	}

	var pending []string
	for _, name := range names {
		run, err := s.generator.GetRunData(name)
		if err != nil {
			continue
		}
		if !runfiles.HasMarker(runfiles.CompletedMarkerPath(run)) {
			pending = append(pending, name)
		}
	}
	s.logger.Info("discovered runs", "total", len(names), "pending", len(pending))
	return s.PostProcessAll(ctx, pending, dryRun)
}
