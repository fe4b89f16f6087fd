package session

import (
	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

// UnknownTag is reported when the previous version of an image cannot be determined.
const UnknownTag = "unknown"

// State enum values.
const (
	UnknownState State = iota // Uninitialized state.
	SkippedState              // Image could not be resolved.
	FreshState                // Base tag digest unchanged.
	FoundState                // Update found, not applied.
	AppliedState              // Update applied.
	FailedState               // Update application failed.
)

// State indicates the outcome of an image in the current cycle.
type State int

// ImageStatus holds an image's outcome during a cycle.
//
//nolint:errname // ImageStatus is not an error type, it contains an error field.
type ImageStatus struct {
	image            string               // Configured image.
	baseTag          string               // Tracked base tag.
	oldTag           string               // Version before the cycle.
	newTag           string               // Resolved version.
	digest           string               // Resolved digest.
	classification   types.Classification // Comparison outcome.
	autoUpdate       bool                 // Update was to be applied.
	failedContainers []string             // Containers whose replacement failed.
	imageError       error                // Error encountered, if any.
	state            State                // Current state.
}

// Image returns the configured image.
func (u *ImageStatus) Image() string {
	return u.image
}

// BaseTag returns the tracked base tag.
func (u *ImageStatus) BaseTag() string {
	return u.baseTag
}

// OldTag returns the version before the cycle.
func (u *ImageStatus) OldTag() string {
	return u.oldTag
}

// NewTag returns the resolved version.
func (u *ImageStatus) NewTag() string {
	return u.newTag
}

// Digest returns the resolved digest.
func (u *ImageStatus) Digest() string {
	return u.digest
}

// Classification returns the comparison outcome.
func (u *ImageStatus) Classification() types.Classification {
	return u.classification
}

// AutoUpdate returns whether the update was to be applied.
func (u *ImageStatus) AutoUpdate() bool {
	return u.autoUpdate
}

// FailedContainers returns the containers whose replacement failed.
func (u *ImageStatus) FailedContainers() []string {
	return u.failedContainers
}

// Error returns the error message, if any.
//
// Returns:
//   - string: Error message or empty if none.
func (u *ImageStatus) Error() string {
	if u.imageError == nil {
		return ""
	}

	return u.imageError.Error()
}

// State returns the human-readable state name.
//
// Returns:
//   - string: State as a string (e.g., "Applied").
func (u *ImageStatus) State() string {
	switch u.state {
	case UnknownState:
		return "Unknown"
	case SkippedState:
		return "Skipped"
	case FreshState:
		return "Fresh"
	case FoundState:
		return "Found"
	case AppliedState:
		return "Applied"
	case FailedState:
		return "Failed"
	default:
		return "Unknown"
	}
}
