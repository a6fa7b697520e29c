package eventstore

import (
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Sentinel errors for store operations. ClassifiedError.Is compares category
// and message, so wrapped copies still match with errors.Is.
var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = errors.IOError("could not open build history database").Build()

	// ErrInitializeSchemaFailed indicates the database schema could not be initialized.
	ErrInitializeSchemaFailed = errors.IOError("failed to initialize build history schema").Build()

	// ErrRecordFailed indicates writing a build failed.
	ErrRecordFailed = errors.IOError("failed to record build").Build()

	// ErrQueryFailed indicates reading builds failed.
	ErrQueryFailed = errors.IOError("failed to query build history").Build()

	// ErrBuildNotFound indicates an unknown build id.
	ErrBuildNotFound = errors.NotFoundError("build not found").Build()
)

func wrap(sentinel *errors.ClassifiedError, cause error) error {
	return errors.NewError(sentinel.Category(), sentinel.Message()).WithCause(cause).Build()
}
