package ingest

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/askiada/go-medallion/internal/telemetry"
	"github.com/askiada/go-medallion/pkg/pipeline"
	"github.com/askiada/go-medallion/pkg/pipeline/measure"
	"github.com/askiada/go-medallion/pkg/pipeline/model"
)

// DefaultWorkers is the number of files downloaded at the same time.
const DefaultWorkers = 4

// Options configures a Downloader.
type Options struct {
	// Opener defaults to OpenAzureBucket.
	Opener  BucketOpener
	Workers int
	// Measure, when set, records the durations of the download steps.
	Measure measure.Measure
}

// Downloader copies the CSV objects of a container to a local directory.
type Downloader struct {
	open    BucketOpener
	workers int
	measure measure.Measure
}

func New(opts Options) *Downloader {
	if opts.Opener == nil {
		opts.Opener = OpenAzureBucket
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}

	return &Downloader{
		open:    opts.Opener,
		workers: opts.Workers,
		measure: opts.Measure,
	}
}

// IsCSV reports whether key names a CSV file.
func IsCSV(key string) bool {
	return strings.HasSuffix(strings.ToLower(key), ".csv")
}

// Download copies every CSV object of the container to destDir/<key> and
// returns the number of files written. destDir and the sub-directories of
// the keys are created when needed.
func (d *Downloader) Download(ctx context.Context, account, containerName, token, destDir string) (int, error) {
	logger := telemetry.FromContext(ctx)

	bucket, err := d.open(ctx, account, containerName, token)
	if err != nil {
		return 0, err
	}
	defer bucket.Close()

	err = os.MkdirAll(destDir, 0o755)
	if err != nil {
		return 0, errors.Wrapf(err, "unable to create %s", destDir)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var opts []model.PipelineOption
	if d.measure != nil {
		opts = append(opts, measure.PipelineMeasure(d.measure))
	}
	pipe, err := pipeline.New(ctx, opts...)
	if err != nil {
		return 0, errors.Wrap(err, "unable to create download pipeline")
	}

	keys, err := pipeline.AddRootStep(pipe, "list", func(ctx context.Context, out chan<- string) error {
		return listCSV(ctx, bucket, out)
	})
	if err != nil {
		return 0, errors.Wrap(err, "unable to add list step")
	}

	files, err := pipeline.AddStepOneToOne(pipe, "download", keys, func(ctx context.Context, key string) (string, error) {
		return copyObject(ctx, bucket, key, destDir)
	}, pipeline.StepConcurrency(d.workers))
	if err != nil {
		return 0, errors.Wrap(err, "unable to add download step")
	}

	count := 0
	err = pipeline.AddSink(pipe, "count", files, func(_ context.Context, path string) error {
		count++
		logger.Debug("file downloaded", "path", path)

		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "unable to add count sink")
	}

	err = pipe.Run()
	if err != nil {
		return 0, err
	}

	return count, nil
}

func listCSV(ctx context.Context, bucket *blob.Bucket, out chan<- string) error {
	iter := bucket.List(nil)
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrap(classify(err), "unable to list container")
		}
		if obj.IsDir || !IsCSV(obj.Key) {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- obj.Key:
		}
	}
}

// localPath maps an object key to a path under destDir.
func localPath(destDir, key string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Wrap(ErrInvalidKey, key)
	}

	return filepath.Join(destDir, rel), nil
}

func copyObject(ctx context.Context, bucket *blob.Bucket, key, destDir string) (string, error) {
	path, err := localPath(destDir, key)
	if err != nil {
		return "", err
	}

	err = os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return "", errors.Wrapf(err, "unable to create directory of %s", path)
	}

	reader, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return "", errors.Wrapf(err, "unable to read %s", key)
	}
	defer reader.Close()

	file, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "unable to create %s", path)
	}

	_, err = io.Copy(file, reader)
	if err != nil {
		file.Close()
		return "", errors.Wrapf(err, "unable to copy %s", key)
	}

	err = file.Close()
	if err != nil {
		return "", errors.Wrapf(err, "unable to close %s", path)
	}

	return path, nil
}

// classify maps the listing errors a caller can act on to sentinels. The
// storage error stays in the chain.
func classify(err error) error {
	switch gcerrors.Code(err) {
	case gcerrors.NotFound:
		return errors.WithStack(&listError{kind: ErrContainerNotFound, err: err})
	case gcerrors.PermissionDenied:
		return errors.WithStack(&listError{kind: ErrAccessDenied, err: err})
	default:
		return err
	}
}

// listError matches both its sentinel and the storage error it carries.
type listError struct {
	kind error
	err  error
}

func (e *listError) Error() string {
	return e.kind.Error() + ": " + e.err.Error()
}

func (e *listError) Unwrap() []error {
	return []error{e.kind, e.err}
}
