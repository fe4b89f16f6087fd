package types

import (
	"time"
)

// UpdateParams defines options for one update cycle.
type UpdateParams struct {
	DryRun         bool          // Log actions instead of performing them.
	StopTimeout    time.Duration // Grace period when stopping a container.
	Platform       string        // Optional os/arch for platform-scoped digests.
	NotifyNoUpdate bool          // Deliver no_update events to notifiers.
}
