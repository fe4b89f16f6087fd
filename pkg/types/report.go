package types

// Report defines the results of one update cycle.
type Report interface {
	Checked() []ImageReport // Images resolved this cycle.
	Updated() []ImageReport // Updates or rebuilds found.
	Applied() []ImageReport // Updates applied to the host.
	Failed() []ImageReport  // Updates whose application failed.
	Skipped() []ImageReport // Images that could not be resolved.
	Fresh() []ImageReport   // Images without changes.
	All() []ImageReport     // Every image once, by most significant outcome.
}

// ImageReport defines an image's outcome in a cycle.
type ImageReport interface {
	Image() string                  // Configured image.
	BaseTag() string                // Tracked base tag.
	OldTag() string                 // Version before the cycle, or "unknown".
	NewTag() string                 // Resolved version.
	Digest() string                 // Resolved digest.
	Classification() Classification // Outcome of the comparison.
	AutoUpdate() bool               // Whether the update was to be applied.
	FailedContainers() []string     // Containers whose replacement failed.
	Error() string                  // Error message, if any.
	State() string                  // Human-readable state.
}
