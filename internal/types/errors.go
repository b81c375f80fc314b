package types

import "errors"

// Errors surfaced by export and import. Callers classify them with errors.Is;
// UserMessage turns them into the text shown to the user.
var (
	// ErrNotRecognizedFormat is returned when a line-oriented file does not
	// start with the logbook preamble.
	ErrNotRecognizedFormat = errors.New("not a logbook export")

	// ErrFormat is returned when a file is recognisable but structurally
	// broken: a section anchor is missing, or the structured document has the
	// wrong shape or field types.
	ErrFormat = errors.New("malformed export")

	// ErrAccess is returned when the source bytes could not be read.
	ErrAccess = errors.New("cannot read source")

	// ErrStorageCommit is returned when the final commit of an import fails.
	// Nothing from the import is persisted.
	ErrStorageCommit = errors.New("storage commit failed")

	// ErrOperationInProgress is returned when an export or import of the same
	// kind is already running.
	ErrOperationInProgress = errors.New("operation already in progress")

	// ErrUnknownFormat is returned for a declared format other than json or csv.
	ErrUnknownFormat = errors.New("unknown format")
)

// UserMessage returns a human readable sentence for err.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotRecognizedFormat):
		return "This file is not an export from this application."
	case errors.Is(err, ErrFormat):
		return "The file is corrupted or incomplete."
	case errors.Is(err, ErrAccess):
		return "The file could not be accessed."
	case errors.Is(err, ErrStorageCommit):
		return "Import failed, no changes were made."
	case errors.Is(err, ErrOperationInProgress):
		return "Another operation is still running. Try again when it finishes."
	case errors.Is(err, ErrUnknownFormat):
		return "Unsupported file format. Use .json or .csv."
	default:
		return err.Error()
	}
}

// IsRetryable reports whether retrying the same operation may succeed.
// Storage and access failures can be transient; format problems cannot.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrStorageCommit) ||
		errors.Is(err, ErrAccess) ||
		errors.Is(err, ErrOperationInProgress)
}
