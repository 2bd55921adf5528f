package bronze

import "github.com/pkg/errors"

var ErrNoInputFiles = errors.New("no CSV file found")
