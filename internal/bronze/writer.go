package bronze

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-medallion/internal/engine"
	"github.com/askiada/go-medallion/internal/telemetry"
	"github.com/askiada/go-medallion/pkg/pipeline"
	"github.com/askiada/go-medallion/pkg/pipeline/drawer"
	"github.com/askiada/go-medallion/pkg/pipeline/measure"
	"github.com/askiada/go-medallion/pkg/pipeline/model"
)

// Layer is the name of the bronze layer in metrics.
const Layer = "bronze"

// DefaultWorkers is the number of files parsed at the same time.
const DefaultWorkers = 4

// Recorder receives the row count of every table written.
type Recorder interface {
	SetTableRows(layer, table string, rows int64)
}

// Options configures a Writer.
type Options struct {
	Workers int
	// Measure records the durations of the load steps.
	Measure measure.Measure
	// Drawer, when set, draws the load steps once they are done, labelled
	// with Measure when it is set as well.
	Drawer   drawer.Drawer
	Recorder Recorder
	// Now defaults to time.Now.
	Now func() time.Time
}

// Writer loads the raw layer into the bronze layer.
type Writer struct {
	workers  int
	measure  measure.Measure
	drawer   drawer.Drawer
	recorder Recorder
	now      func() time.Time
}

func New(opts Options) *Writer {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Writer{
		workers:  opts.Workers,
		measure:  opts.Measure,
		drawer:   opts.Drawer,
		recorder: opts.Recorder,
		now:      opts.Now,
	}
}

func (w *Writer) pipelineOptions() []model.PipelineOption {
	var opts []model.PipelineOption
	if w.measure != nil {
		opts = append(opts, measure.PipelineMeasure(w.measure))
	}
	if w.drawer != nil {
		opts = append(opts, drawer.PipelineDrawer(w.drawer, w.measure))
	}

	return opts
}

// Run writes one bronze table per CSV file found under rawDir. Files sharing
// a name are appended to the same table.
func (w *Writer) Run(ctx context.Context, sess *engine.Session, rawDir, bronzeDir string) error {
	logger := telemetry.FromContext(ctx)

	files, err := discover(rawDir)
	if err != nil {
		return err
	}
	logger.Info("raw files found", "count", len(files), "dir", rawDir)

	alias, err := sess.Attach(ctx, bronzeDir)
	if err != nil {
		return err
	}

	ingestedAt := w.now().UTC().Format(time.RFC3339)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pipe, err := pipeline.New(ctx, w.pipelineOptions()...)
	if err != nil {
		return errors.Wrap(err, "unable to create bronze pipeline")
	}

	found, err := pipeline.AddRootStep(pipe, "discover", func(ctx context.Context, out chan<- rawFile) error {
		for _, file := range files {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- file:
			}
		}

		return nil
	})
	if err != nil {
		return errors.Wrap(err, "unable to add discover step")
	}

	parsed, err := pipeline.AddStepOneToOne(pipe, "parse", found, func(_ context.Context, file rawFile) (parsedFile, error) {
		return parse(file, ingestedAt)
	}, pipeline.StepConcurrency(w.workers))
	if err != nil {
		return errors.Wrap(err, "unable to add parse step")
	}

	written := make(map[string]bool)
	err = pipeline.AddSink(pipe, "write", parsed, func(ctx context.Context, file parsedFile) error {
		if file.columns == nil {
			logger.Warn("empty raw file skipped", "file", file.rel)
			return nil
		}

		mode := engine.Overwrite
		if written[file.table] {
			mode = engine.Append
		}

		version, err := sess.WriteRows(ctx, alias, file.table, file.columns, file.rows, mode)
		if err != nil {
			return errors.Wrapf(err, "unable to load %s", file.rel)
		}
		written[file.table] = true

		if w.recorder != nil {
			w.recorder.SetTableRows(Layer, file.table, version.Rows)
		}
		logger.Info("bronze table written",
			"table", file.table, "file", file.rel, "version", version.Version, "rows", version.Rows, "mode", mode.String())

		return nil
	})
	if err != nil {
		return errors.Wrap(err, "unable to add write sink")
	}

	return pipe.Run()
}
