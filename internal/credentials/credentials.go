package credentials

import (
	"os"

	"github.com/pkg/errors"
)

const (
	EnvAccount   = "ACCOUNT_NAME"
	EnvContainer = "CONTAINER_NAME"
	EnvSASToken  = "AZURE_SAS_TOKEN"

	// DefaultEnvFile is looked up relative to the working directory.
	DefaultEnvFile = ".env"
)

// Credentials identifies a blob container and grants read access to it.
type Credentials struct {
	Account   string
	Container string
	SASToken  string
}

// Complete reports whether every field is set.
func (c Credentials) Complete() bool {
	return c.Account != "" && c.Container != "" && c.SASToken != ""
}

// fill sets the empty fields of c from values, keyed by environment names.
func (c *Credentials) fill(values func(string) string) {
	if c.Account == "" {
		c.Account = values(EnvAccount)
	}
	if c.Container == "" {
		c.Container = values(EnvContainer)
	}
	if c.SASToken == "" {
		c.SASToken = values(EnvSASToken)
	}
}

// LookupFunc returns the value of an environment variable, or "" when unset.
type LookupFunc func(key string) string

// Resolve completes explicit with the environment, then with envFile. The file
// is only read when a field is still missing; a missing file is ignored.
func Resolve(explicit Credentials, lookup LookupFunc, envFile string) (Credentials, error) {
	creds := explicit
	if lookup == nil {
		lookup = os.Getenv
	}

	if !creds.Complete() {
		creds.fill(lookup)
	}

	if !creds.Complete() && envFile != "" {
		values, err := readEnvFile(envFile)
		if err != nil {
			return Credentials{}, err
		}
		creds.fill(func(key string) string { return values[key] })
	}

	if !creds.Complete() {
		return Credentials{}, errors.WithStack(ErrMissingCredentials)
	}

	return creds, nil
}

func readEnvFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}

		return nil, errors.Wrapf(err, "unable to open %s", path)
	}
	defer file.Close()

	values, err := ParseDotenv(file)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse %s", path)
	}

	return values, nil
}
