package cli_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-medallion/internal/cli"
	"github.com/askiada/go-medallion/internal/config"
)

func execute(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()

	var got *config.Config
	cmd := cli.NewRootCmd(func(_ context.Context, cfg config.Config) error {
		got = &cfg
		return nil
	}, "test")
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.ExecuteContext(context.Background())

	return got, err
}

func TestRootCmdDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := execute(t)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, config.Default(), *cfg)
}

func TestRootCmdFlags(t *testing.T) {
	t.Parallel()

	cfg, err := execute(t,
		"--base", "/tmp/x",
		"--azure",
		"--account", "acc1",
		"--container", "c1",
		"--sas", "?tok",
		"--env-file", "/etc/medallion.env",
		"--app-name", "nightly",
		"--workers", "2",
		"--draw", "bronze.dot",
		"--metrics-file", "medallion.prom",
		"--gold-model", "model.yaml",
	)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, config.Config{
		Base:        "/tmp/x",
		Azure:       true,
		Account:     "acc1",
		Container:   "c1",
		SASToken:    "?tok",
		EnvFile:     "/etc/medallion.env",
		AppName:     "nightly",
		Workers:     2,
		Draw:        "bronze.dot",
		MetricsFile: "medallion.prom",
		GoldModel:   "model.yaml",
	}, *cfg)
}

func TestRootCmdFlagsOverrideFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "medallion.yaml")
	content := "base: /srv/lake\nworkers: 8\nazure: true\naccount: from-file\ncontainer: c-file\ndraw: file.dot\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	tcs := map[string]struct {
		args   []string
		expect func(t *testing.T, cfg *config.Config)
	}{
		"file only": {
			expect: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "/srv/lake", cfg.Base)
				assert.Equal(t, 8, cfg.Workers)
				assert.True(t, cfg.Azure)
				assert.Equal(t, "from-file", cfg.Account)
				assert.Equal(t, "c-file", cfg.Container)
			},
		},
		"string flag": {
			args: []string{"--account", "from-flag"},
			expect: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "from-flag", cfg.Account)
				assert.Equal(t, "c-file", cfg.Container)
				assert.Equal(t, 8, cfg.Workers)
			},
		},
		"azure turned off": {
			args: []string{"--azure=false"},
			expect: func(t *testing.T, cfg *config.Config) {
				assert.False(t, cfg.Azure)
				assert.Equal(t, "from-file", cfg.Account)
			},
		},
		"empty flag clears the file value": {
			args: []string{"--draw", ""},
			expect: func(t *testing.T, cfg *config.Config) {
				assert.Empty(t, cfg.Draw)
			},
		},
	}
	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg, err := execute(t, append([]string{"--config", path}, tc.args...)...)
			require.NoError(t, err)
			require.NotNil(t, cfg)
			tc.expect(t, cfg)
		})
	}
}

func TestRootCmdInvalid(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		args []string
		want error
	}{
		"zero workers":   {args: []string{"--workers", "0"}, want: config.ErrInvalidConfig},
		"missing config": {args: []string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}},
		"positional arg": {args: []string{"extra"}},
	}
	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg, err := execute(t, tc.args...)
			require.Error(t, err)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
			}
			assert.Nil(t, cfg)
		})
	}
}
