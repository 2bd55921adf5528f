package ingest

import "github.com/pkg/errors"

var (
	ErrContainerNotFound = errors.New("container not found")
	ErrAccessDenied      = errors.New("access to container denied")
	ErrInvalidKey        = errors.New("object key escapes the destination directory")
)
