package actions

import "errors"

// Errors for inventory lookups.
var (
	// errListContainersFailed indicates containers could not be listed.
	errListContainersFailed = errors.New("failed to list containers")
)

// Errors for container replacement.
var (
	// errInspectFailed indicates the container to replace could not be inspected.
	errInspectFailed = errors.New("failed to inspect container")
	// errStopFailed indicates the container to replace could not be stopped.
	errStopFailed = errors.New("failed to stop container")
	// errBackupFailed indicates the container could not be renamed to its backup name.
	errBackupFailed = errors.New("failed to rename container to backup")
	// errCreateFailed indicates the replacement container could not be created.
	errCreateFailed = errors.New("failed to create replacement container")
	// errStartFailed indicates the replacement container could not be started.
	errStartFailed = errors.New("failed to start replacement container")
)

// Errors for the update cycle.
var (
	// errUnresolved indicates no version tag shares the base tag's digest.
	errUnresolved = errors.New("could not resolve base tag to a version tag")
	// errMissingPattern indicates the configured regex has no compiled pattern.
	errMissingPattern = errors.New("no compiled pattern for regex")
	// errPullFailed indicates the base tag could not be pulled.
	errPullFailed = errors.New("failed to pull image")
	// errAllReplacementsFailed indicates no container could be moved to the new image.
	errAllReplacementsFailed = errors.New("all container replacements failed")
	// errSaveStateFailed indicates the state file could not be written.
	errSaveStateFailed = errors.New("failed to save state")
)
