package credentials_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-medallion/internal/credentials"
)

func lookupFrom(env map[string]string) credentials.LookupFunc {
	return func(key string) string {
		return env[key]
	}
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestResolveExplicitOnly(t *testing.T) {
	t.Parallel()

	explicit := credentials.Credentials{Account: "acc1", Container: "c1", SASToken: "?tok"}
	got, err := credentials.Resolve(explicit, lookupFrom(map[string]string{
		credentials.EnvAccount: "env-account",
	}), writeEnvFile(t, "ACCOUNT_NAME=file-account\n"))
	require.NoError(t, err)
	assert.Equal(t, explicit, got)
}

func TestResolvePrecedencePerField(t *testing.T) {
	t.Parallel()

	envFile := writeEnvFile(t, `ACCOUNT_NAME="file-account"
CONTAINER_NAME="file-container"
AZURE_SAS_TOKEN="?file-token"
`)

	tests := []struct {
		name     string
		explicit credentials.Credentials
		env      map[string]string
		expected credentials.Credentials
	}{
		{
			name:     "explicit account file container environment token",
			explicit: credentials.Credentials{Account: "flag-account"},
			env:      map[string]string{credentials.EnvSASToken: "?env-token"},
			expected: credentials.Credentials{Account: "flag-account", Container: "file-container", SASToken: "?env-token"},
		},
		{
			name: "environment beats file",
			env: map[string]string{
				credentials.EnvAccount:   "env-account",
				credentials.EnvContainer: "env-container",
			},
			expected: credentials.Credentials{Account: "env-account", Container: "env-container", SASToken: "?file-token"},
		},
		{
			name:     "explicit beats environment",
			explicit: credentials.Credentials{Container: "flag-container", SASToken: "?flag-token"},
			env: map[string]string{
				credentials.EnvContainer: "env-container",
				credentials.EnvSASToken:  "?env-token",
			},
			expected: credentials.Credentials{Account: "file-account", Container: "flag-container", SASToken: "?flag-token"},
		},
		{
			name:     "file only",
			expected: credentials.Credentials{Account: "file-account", Container: "file-container", SASToken: "?file-token"},
		},
		{
			name:     "empty environment value is unset",
			env:      map[string]string{credentials.EnvAccount: ""},
			expected: credentials.Credentials{Account: "file-account", Container: "file-container", SASToken: "?file-token"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := credentials.Resolve(tt.explicit, lookupFrom(tt.env), envFile)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolveMissingField(t *testing.T) {
	t.Parallel()

	envFile := writeEnvFile(t, "ACCOUNT_NAME=file-account\n")
	got, err := credentials.Resolve(
		credentials.Credentials{Container: "c1"},
		lookupFrom(nil),
		envFile,
	)
	require.ErrorIs(t, err, credentials.ErrMissingCredentials)
	assert.Empty(t, got)
	assert.Contains(t, err.Error(), "--account")
	assert.Contains(t, err.Error(), "--container")
	assert.Contains(t, err.Error(), "--sas")
}

func TestResolveNothingAvailable(t *testing.T) {
	t.Parallel()

	_, err := credentials.Resolve(credentials.Credentials{}, lookupFrom(nil), filepath.Join(t.TempDir(), ".env"))
	assert.ErrorIs(t, err, credentials.ErrMissingCredentials)
}

func TestResolveQuotedFileValue(t *testing.T) {
	t.Parallel()

	envFile := writeEnvFile(t, "ACCOUNT_NAME=\"foo\"\nCONTAINER_NAME='bar'\nAZURE_SAS_TOKEN=?tok\n")
	got, err := credentials.Resolve(credentials.Credentials{}, lookupFrom(nil), envFile)
	require.NoError(t, err)
	assert.Equal(t, "foo", got.Account)
	assert.Equal(t, "bar", got.Container)
}

func TestResolveEmptyFileValueThenSet(t *testing.T) {
	t.Parallel()

	envFile := writeEnvFile(t, "ACCOUNT_NAME=\nACCOUNT_NAME=foo\nCONTAINER_NAME=c\nAZURE_SAS_TOKEN=?t\n")
	got, err := credentials.Resolve(credentials.Credentials{}, lookupFrom(nil), envFile)
	require.NoError(t, err)
	assert.Equal(t, credentials.Credentials{Account: "foo", Container: "c", SASToken: "?t"}, got)
}

func TestResolveUnreadableEnvFile(t *testing.T) {
	t.Parallel()

	// a directory cannot be read as a file
	_, err := credentials.Resolve(credentials.Credentials{}, lookupFrom(nil), t.TempDir())
	require.Error(t, err)
	assert.NotErrorIs(t, err, credentials.ErrMissingCredentials)
}
