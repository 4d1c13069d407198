package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/quatton/qseq/pkg/config"
	"github.com/quatton/qseq/pkg/db"
	"github.com/quatton/qseq/pkg/housekeeper"
	"github.com/quatton/qseq/pkg/kv"
	"github.com/quatton/qseq/pkg/pacbio/postprocess"
	"github.com/quatton/qseq/pkg/pacbio/registration"
	"github.com/quatton/qseq/pkg/pacbio/rundata"
	"github.com/quatton/qseq/pkg/pacbio/runfiles"
	"github.com/quatton/qseq/pkg/pacbio/store"
	"github.com/quatton/qseq/pkg/pacbio/validate"
	"github.com/quatton/qseq/pkg/qart"
	"github.com/quatton/qseq/pkg/qlog"
	"github.com/quatton/qseq/pkg/statusdb"
	"github.com/uptrace/bun"
)

// app holds the services one command invocation needs.
type app struct {
	cfg         *config.Config
	logger      *qlog.Logger
	db          *bun.DB
	statusDB    *statusdb.BunStore
	postProcess *postprocess.Service

	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func loadEnv() (*config.Env, error) {
	if envFile != "" {
		return config.LoadEnv(envFile)
	}
	return config.LoadEnv()
}

func newLogger(cfg *config.Config) (*qlog.Logger, error) {
	return qlog.NewFromLevel(cfg.LogLevel, os.Stderr)
}

// newApp connects to the database, blob store and, for the valkey claim
// backend, Valkey, and builds the post-processing pipeline on top.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	env, err := loadEnv()
	if err != nil {
		return nil, err
	}
	if err := env.Validate(cfg.ClaimBackend); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	env.Print(func(format string, args ...any) { logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...))) })

	a := &app{cfg: cfg, logger: logger}

	database, err := db.New(ctx, env.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.db = database
	a.closers = append(a.closers, database.Close)

	blobs, err := qart.NewS3Store(env.S3)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to ensure bucket %s: %w", env.S3.Bucket, err)
	}

	claimer, err := a.newClaimer(ctx, env)
	if err != nil {
		a.Close()
		return nil, err
	}

	files := runfiles.NewManager()
	a.statusDB = statusdb.NewBunStore(database)
	a.postProcess = postprocess.NewService(
		rundata.NewGenerator(cfg.SequencingDir),
		validate.New(files, logger),
		store.NewService(a.statusDB, files, logger),
		registration.NewService(files, housekeeper.New(database, blobs, logger), logger),
		logger,
		postprocess.WithWorkers(cfg.Workers),
		postprocess.WithClaimer(claimer),
	)
	return a, nil
}

func (a *app) newClaimer(ctx context.Context, env *config.Env) (postprocess.Claimer, error) {
	if a.cfg.ClaimBackend != config.ClaimBackendValkey {
		return postprocess.NewFileClaimer(a.cfg.ClaimTTL, a.logger), nil
	}
	store, err := kv.NewValkeyStore(ctx, env.Valkey)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey at %s: %w", env.Valkey.Addr, err)
	}
	a.closers = append(a.closers, store.Close)
	return postprocess.NewKVClaimer(store, a.cfg.ClaimTTL, a.logger), nil
}
