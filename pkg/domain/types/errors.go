package types

import "github.com/m-mizutani/goerr/v2"

// Error tags classify pipeline failures. Components tag the errors they
// return; the orchestrator only reads the tags.
var (
	// ErrTagNetwork marks unreachable hosts, non-success statuses and transport failures.
	ErrTagNetwork = goerr.NewTag("network")
	// ErrTagFileSystem marks create/open/read/write/copy/remove failures.
	ErrTagFileSystem = goerr.NewTag("filesystem")
	// ErrTagParse marks malformed catalog or detail responses.
	ErrTagParse = goerr.NewTag("parse")
	// ErrTagCanceled marks runs stopped by context cancellation.
	ErrTagCanceled = goerr.NewTag("canceled")
	// ErrTagNotFound marks lookups that found nothing (game install, run id).
	ErrTagNotFound = goerr.NewTag("not_found")
)
