package orchestrator

import "github.com/pkg/errors"

var (
	ErrDownloaderMustBeSet = errors.New("downloader must be set when download is requested")
	ErrSessionMustBeSet    = errors.New("session factory must be set")
	ErrStageMustBeSet      = errors.New("bronze, silver and gold stages must be set")
)
