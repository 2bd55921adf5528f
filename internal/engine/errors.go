package engine

import "github.com/pkg/errors"

var (
	ErrSessionStopped = errors.New("session stopped")
	ErrStoreNotFound  = errors.New("store not attached")
	ErrTableNotFound  = errors.New("table not found")
	ErrSchemaMismatch = errors.New("columns do not match the current table version")
	ErrRowWidth       = errors.New("row width does not match columns")
	ErrNoColumns      = errors.New("at least one column is required")
)
