package orchestrator_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-medallion/internal/credentials"
	"github.com/askiada/go-medallion/internal/engine"
	"github.com/askiada/go-medallion/internal/orchestrator"
)

var errBoom = errors.New("boom")

// calls records the collaborator calls of a run, in order.
type calls struct {
	mu  sync.Mutex
	log []string
}

func (c *calls) add(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = append(c.log, call)
}

func (c *calls) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.log...)
}

type fakeDownloader struct {
	calls *calls
	count int
	err   error
}

func (f *fakeDownloader) Download(_ context.Context, account, container, token, destDir string) (int, error) {
	f.calls.add("download " + account + " " + container + " " + token + " " + destDir)

	return f.count, f.err
}

func recordingStage(c *calls, name string, err error) orchestrator.StageFunc {
	return func(_ context.Context, sess *engine.Session, inputDir, outputDir string) error {
		if sess == nil || sess.Stopped() {
			c.add(name + " without live session")
		}
		c.add(name + " " + inputDir + " -> " + outputDir)

		return err
	}
}

type fakeRecorder struct {
	mu     sync.Mutex
	stages []string
	files  int
}

func (r *fakeRecorder) ObserveStage(stage string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func (r *fakeRecorder) SetFilesDownloaded(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = count
}

type harness struct {
	calls      *calls
	downloader *fakeDownloader
	recorder   *fakeRecorder
	sessions   []*engine.Session
	resolved   int
	opts       orchestrator.Options
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		calls:    &calls{},
		recorder: &fakeRecorder{},
	}
	h.downloader = &fakeDownloader{calls: h.calls, count: 2}
	h.opts = orchestrator.Options{
		Downloader: h.downloader,
		Bronze:     recordingStage(h.calls, "bronze", nil),
		Silver:     recordingStage(h.calls, "silver", nil),
		Gold:       recordingStage(h.calls, "gold", nil),
		Sessions: func(ctx context.Context) (*engine.Session, error) {
			h.calls.add("session")
			sess, err := engine.New(ctx, engine.DefaultConfig())
			if err != nil {
				return nil, err
			}
			h.sessions = append(h.sessions, sess)

			return sess, nil
		},
		Resolve: func(explicit credentials.Credentials) (credentials.Credentials, error) {
			h.resolved++

			return credentials.Resolve(explicit, func(string) string { return "" }, "")
		},
		Recorder: h.recorder,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	return h
}

func (h *harness) assertSessionsStopped(t *testing.T) {
	t.Helper()
	for _, sess := range h.sessions {
		assert.True(t, sess.Stopped())
	}
}

func TestRunWithoutDownload(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	report, err := orchestrator.New(h.opts).Run(context.Background(), orchestrator.Config{Base: "/tmp/x"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"session",
		"bronze /tmp/x/data/raw -> /tmp/x/data/bronze",
		"silver /tmp/x/data/bronze -> /tmp/x/data/silver",
		"gold /tmp/x/data/silver -> /tmp/x/data/gold",
	}, h.calls.all())
	assert.Zero(t, h.resolved)
	require.Len(t, h.sessions, 1)
	h.assertSessionsStopped(t)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "/tmp/x/data/gold", report.Layout.Gold)
	assert.Zero(t, report.FilesDownloaded)
	require.Len(t, report.Stages, 3)
	assert.Equal(t, orchestrator.StageBronze, report.Stages[0].Name)
	assert.Equal(t, orchestrator.StageGold, report.Stages[2].Name)
	assert.Equal(t, []string{"bronze", "silver", "gold"}, h.recorder.stages)
}

func TestRunWithDownload(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	report, err := orchestrator.New(h.opts).Run(context.Background(), orchestrator.Config{
		Base:      ".",
		Download:  true,
		Account:   "acc1",
		Container: "c1",
		SASToken:  "?tok",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"download acc1 c1 ?tok ./data/raw",
		"session",
		"bronze ./data/raw -> ./data/bronze",
		"silver ./data/bronze -> ./data/silver",
		"gold ./data/silver -> ./data/gold",
	}, h.calls.all())
	assert.Equal(t, 1, h.resolved)
	assert.Equal(t, 2, report.FilesDownloaded)
	assert.Equal(t, 2, h.recorder.files)
	require.Len(t, report.Stages, 4)
	assert.Equal(t, orchestrator.StageDownload, report.Stages[0].Name)
	h.assertSessionsStopped(t)
}

func TestRunMissingCredentials(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, err := orchestrator.New(h.opts).Run(context.Background(), orchestrator.Config{
		Base:      "/tmp/x",
		Download:  true,
		Account:   "acc1",
		Container: "c1",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, credentials.ErrMissingCredentials)
	assert.Contains(t, err.Error(), "configuration error")
	assert.Empty(t, h.calls.all())
	assert.Empty(t, h.sessions)
}

func TestRunDownloadError(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.downloader.err = errBoom
	_, err := orchestrator.New(h.opts).Run(context.Background(), orchestrator.Config{
		Download:  true,
		Account:   "a",
		Container: "c",
		SASToken:  "t",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "download stage failed")
	assert.Equal(t, []string{"download a c t ./data/raw"}, h.calls.all())
	assert.Empty(t, h.sessions)
}

func TestRunStageErrorStopsSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.opts.Silver = recordingStage(h.calls, "silver", errBoom)
	report, err := orchestrator.New(h.opts).Run(context.Background(), orchestrator.Config{Base: "/tmp/x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "silver stage failed")

	assert.Equal(t, []string{
		"session",
		"bronze /tmp/x/data/raw -> /tmp/x/data/bronze",
		"silver /tmp/x/data/bronze -> /tmp/x/data/silver",
	}, h.calls.all())
	require.Len(t, h.sessions, 1)
	h.assertSessionsStopped(t)
	require.NotNil(t, report)
	require.Len(t, report.Stages, 1)
	assert.Equal(t, orchestrator.StageBronze, report.Stages[0].Name)
}

func TestRunSessionError(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.opts.Sessions = func(context.Context) (*engine.Session, error) {
		return nil, errBoom
	}
	_, err := orchestrator.New(h.opts).Run(context.Background(), orchestrator.Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, h.calls.all())
}

func TestRunNilSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.opts.Sessions = func(context.Context) (*engine.Session, error) {
		return nil, nil
	}
	report, err := orchestrator.New(h.opts).Run(context.Background(), orchestrator.Config{})
	require.ErrorIs(t, err, orchestrator.ErrSessionMustBeSet)
	require.NotNil(t, report)
	assert.Empty(t, report.Stages)
	assert.Empty(t, h.calls.all())
}

func TestRunStageSeesStoppedSession(t *testing.T) {
	t.Parallel()

	// a session stopped by a stage is not a failure of the run
	h := newHarness(t)
	h.opts.Bronze = orchestrator.StageFunc(func(_ context.Context, sess *engine.Session, _, _ string) error {
		return sess.Stop()
	})
	_, err := orchestrator.New(h.opts).Run(context.Background(), orchestrator.Config{})
	require.NoError(t, err)
	h.assertSessionsStopped(t)
}

func TestRunMissingCollaborators(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		edit func(*orchestrator.Options)
		cfg  orchestrator.Config
		want error
	}{
		"no downloader": {
			edit: func(o *orchestrator.Options) { o.Downloader = nil },
			cfg:  orchestrator.Config{Download: true},
			want: orchestrator.ErrDownloaderMustBeSet,
		},
		"no sessions": {
			edit: func(o *orchestrator.Options) { o.Sessions = nil },
			want: orchestrator.ErrSessionMustBeSet,
		},
		"no gold": {
			edit: func(o *orchestrator.Options) { o.Gold = nil },
			want: orchestrator.ErrStageMustBeSet,
		},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			tc.edit(&h.opts)
			_, err := orchestrator.New(h.opts).Run(context.Background(), tc.cfg)
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, h.calls.all())
		})
	}
}

func TestRunNoDownloaderNeededWithoutDownload(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.opts.Downloader = nil
	_, err := orchestrator.New(h.opts).Run(context.Background(), orchestrator.Config{})
	require.NoError(t, err)
}
