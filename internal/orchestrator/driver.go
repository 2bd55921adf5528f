package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/askiada/go-medallion/internal/credentials"
	"github.com/askiada/go-medallion/internal/engine"
	"github.com/askiada/go-medallion/internal/layout"
	"github.com/askiada/go-medallion/internal/telemetry"
)

// Stage names, in execution order.
const (
	StageDownload = "download"
	StageBronze   = "bronze"
	StageSilver   = "silver"
	StageGold     = "gold"
)

// Downloader copies the raw files of a container to destDir and returns how
// many files it wrote.
type Downloader interface {
	Download(ctx context.Context, account, container, token, destDir string) (int, error)
}

// Stage builds the layer stored in outputDir from the one stored in inputDir.
type Stage interface {
	Run(ctx context.Context, sess *engine.Session, inputDir, outputDir string) error
}

// StageFunc adapts a function to a Stage.
type StageFunc func(ctx context.Context, sess *engine.Session, inputDir, outputDir string) error

func (f StageFunc) Run(ctx context.Context, sess *engine.Session, inputDir, outputDir string) error {
	return f(ctx, sess, inputDir, outputDir)
}

// SessionFactory returns the session of a run. The driver stops it once the
// run is over.
type SessionFactory func(ctx context.Context) (*engine.Session, error)

// CredentialResolver completes the credentials given on the command line.
type CredentialResolver func(explicit credentials.Credentials) (credentials.Credentials, error)

// Recorder receives the figures of a run. Implemented by metrics.Collector.
type Recorder interface {
	ObserveStage(stage string, elapsed time.Duration)
	SetFilesDownloaded(count int)
}

// Config describes one run.
type Config struct {
	// Base is the root of the data directories. Empty means ".".
	Base string
	// Download fetches the raw files before building the layers.
	Download bool

	Account   string
	Container string
	// SASToken is the shared access signature, leading "?" included.
	SASToken string
}

// Options holds the collaborators of a Driver.
type Options struct {
	Downloader Downloader
	Bronze     Stage
	Silver     Stage
	Gold       Stage
	Sessions   SessionFactory
	// Resolve defaults to credentials.Resolve on the process environment and
	// the default .env file.
	Resolve  CredentialResolver
	Recorder Recorder
	Logger   *slog.Logger
}

// StageResult is the outcome of a stage that completed.
type StageResult struct {
	Name      string
	InputDir  string
	OutputDir string
	Duration  time.Duration
}

// Report summarises a run. It is returned even when the run fails, holding
// what completed.
type Report struct {
	RunID           string
	Layout          layout.Layout
	FilesDownloaded int
	Stages          []StageResult
}

// Driver runs the pipeline.
type Driver struct {
	downloader Downloader
	stages     [3]Stage
	sessions   SessionFactory
	resolve    CredentialResolver
	recorder   Recorder
	logger     *slog.Logger
}

// New creates a driver.
func New(opts Options) *Driver {
	if opts.Resolve == nil {
		opts.Resolve = func(explicit credentials.Credentials) (credentials.Credentials, error) {
			return credentials.Resolve(explicit, nil, credentials.DefaultEnvFile)
		}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Driver{
		downloader: opts.Downloader,
		stages:     [3]Stage{opts.Bronze, opts.Silver, opts.Gold},
		sessions:   opts.Sessions,
		resolve:    opts.Resolve,
		recorder:   opts.Recorder,
		logger:     opts.Logger,
	}
}

func (d *Driver) check(cfg Config) error {
	if cfg.Download && d.downloader == nil {
		return errors.WithStack(ErrDownloaderMustBeSet)
	}
	if d.sessions == nil {
		return errors.WithStack(ErrSessionMustBeSet)
	}
	for _, stage := range d.stages {
		if stage == nil {
			return errors.WithStack(ErrStageMustBeSet)
		}
	}

	return nil
}

// Run executes download (when requested), bronze, silver and gold in this
// order and stops at the first error. The session is stopped on every path.
// Output written by the stages that completed is left in place.
func (d *Driver) Run(ctx context.Context, cfg Config) (report *Report, err error) {
	if err := d.check(cfg); err != nil {
		return nil, err
	}

	report = &Report{
		RunID:  uuid.NewString(),
		Layout: layout.Resolve(cfg.Base),
	}
	logger := telemetry.WithRunID(d.logger, report.RunID)
	ctx = telemetry.WithLogger(ctx, logger)
	dirs := report.Layout

	logger.Info("pipeline starting", "base", cfg.Base, "download", cfg.Download)

	if cfg.Download {
		err = d.download(ctx, cfg, report)
		if err != nil {
			return report, err
		}
	} else {
		logger.Info("download skipped, using local raw files", "dir", dirs.Raw)
	}

	sess, err := d.sessions(ctx)
	if err != nil {
		return report, errors.Wrap(err, "unable to get engine session")
	}
	if sess == nil {
		return report, errors.WithStack(ErrSessionMustBeSet)
	}
	defer func() {
		stopErr := sess.Stop()
		if stopErr != nil && err == nil {
			err = errors.Wrap(stopErr, "unable to stop engine session")
		}
	}()

	steps := []struct {
		name    string
		input   string
		output  string
		builder Stage
	}{
		{StageBronze, dirs.Raw, dirs.Bronze, d.stages[0]},
		{StageSilver, dirs.Bronze, dirs.Silver, d.stages[1]},
		{StageGold, dirs.Silver, dirs.Gold, d.stages[2]},
	}

	for _, step := range steps {
		stageLogger := telemetry.WithStage(logger, step.name)
		stageLogger.Info("stage starting", "input", step.input, "output", step.output)

		start := time.Now()
		err = step.builder.Run(telemetry.WithLogger(ctx, stageLogger), sess, step.input, step.output)
		if err != nil {
			return report, errors.Wrapf(err, "%s stage failed", step.name)
		}
		elapsed := time.Since(start)

		report.Stages = append(report.Stages, StageResult{
			Name:      step.name,
			InputDir:  step.input,
			OutputDir: step.output,
			Duration:  elapsed,
		})
		d.observe(step.name, elapsed)
		stageLogger.Info("stage finished", "duration", elapsed)
	}

	logger.Info("pipeline finished", "gold", dirs.Gold)

	return report, nil
}

func (d *Driver) download(ctx context.Context, cfg Config, report *Report) error {
	logger := telemetry.WithStage(telemetry.FromContext(ctx), StageDownload)

	creds, err := d.resolve(credentials.Credentials{
		Account:   cfg.Account,
		Container: cfg.Container,
		SASToken:  cfg.SASToken,
	})
	if err != nil {
		return errors.Wrap(err, "configuration error")
	}

	logger.Info("downloading raw files", "account", creds.Account, "container", creds.Container, "dir", report.Layout.Raw)

	start := time.Now()
	count, err := d.downloader.Download(telemetry.WithLogger(ctx, logger), creds.Account, creds.Container, creds.SASToken, report.Layout.Raw)
	if err != nil {
		return errors.Wrapf(err, "%s stage failed", StageDownload)
	}
	elapsed := time.Since(start)

	report.FilesDownloaded = count
	report.Stages = append(report.Stages, StageResult{
		Name:      StageDownload,
		OutputDir: report.Layout.Raw,
		Duration:  elapsed,
	})
	d.observe(StageDownload, elapsed)
	if d.recorder != nil {
		d.recorder.SetFilesDownloaded(count)
	}
	logger.Info("download finished", "files", count, "duration", elapsed)

	return nil
}

func (d *Driver) observe(stage string, elapsed time.Duration) {
	if d.recorder != nil {
		d.recorder.ObserveStage(stage, elapsed)
	}
}
