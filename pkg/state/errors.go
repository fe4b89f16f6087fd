package state

import "errors"

var (
	// errFailedOpenLock indicates the sibling lock file could not be opened.
	errFailedOpenLock = errors.New("failed to open state lock file")
	// errFailedAcquireLock indicates the advisory lock could not be taken.
	errFailedAcquireLock = errors.New("failed to acquire state lock")
	// errFailedCreateDir indicates the state directory could not be created.
	errFailedCreateDir = errors.New("failed to create state directory")
	// errFailedMarshal indicates the state map could not be encoded.
	errFailedMarshal = errors.New("failed to encode state")
	// errFailedWriteTemp indicates the temporary state file could not be written.
	errFailedWriteTemp = errors.New("failed to write temporary state file")
	// errFailedRename indicates the temporary file could not replace the state file.
	errFailedRename = errors.New("failed to replace state file")
	// errMissingField indicates a state entry lacks a required field.
	errMissingField = errors.New("state entry is missing a required field")
)
