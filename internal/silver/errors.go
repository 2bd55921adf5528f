package silver

import "github.com/pkg/errors"

var ErrNoInputTables = errors.New("no bronze table found")
