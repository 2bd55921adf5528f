package gold

import "github.com/pkg/errors"

var (
	ErrInvalidModel  = errors.New("invalid gold model")
	ErrNoInputTables = errors.New("no silver table found")
)
