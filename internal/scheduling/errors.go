package scheduling

import "errors"

var (
	// errInvalidInterval indicates an interval shorter than one second.
	errInvalidInterval = errors.New("interval must be at least one second")
	// errScheduleFailed indicates the cron scheduler rejected the interval.
	errScheduleFailed = errors.New("failed to schedule updates")
)
