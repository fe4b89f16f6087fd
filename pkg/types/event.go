package types

// EventKind identifies a progress step or classified outcome.
type EventKind string

// Event kinds emitted during a cycle.
const (
	EventCheckingImage EventKind = "checking_image"
	EventUpdateFound   EventKind = "update_found"
	EventImageRebuilt  EventKind = "image_rebuilt"
	EventNoUpdate      EventKind = "no_update"
)

// Classification is the outcome of comparing a resolution against stored state.
type Classification int

const (
	NoUpdate      Classification = iota // Base tag digest unchanged.
	VersionUpdate                       // Base tag now points to a different version tag.
	Rebuild                             // Same version tag with a new digest.
)

// String returns the classification name.
func (c Classification) String() string {
	switch c {
	case NoUpdate:
		return "no_update"
	case VersionUpdate:
		return "version_update"
	case Rebuild:
		return "rebuild"
	default:
		return "unknown"
	}
}

// EventKind returns the event reported for the classification.
func (c Classification) EventKind() EventKind {
	switch c {
	case VersionUpdate:
		return EventUpdateFound
	case Rebuild:
		return EventImageRebuilt
	default:
		return EventNoUpdate
	}
}

// Event describes a step or outcome for one image.
type Event struct {
	Kind       EventKind `json:"event"`
	Image      string    `json:"image"`
	BaseTag    string    `json:"base_tag,omitempty"`
	OldVersion string    `json:"old_version,omitempty"`
	NewVersion string    `json:"new_version,omitempty"`
	Digest     string    `json:"digest,omitempty"`
	AutoUpdate bool      `json:"auto_update"`
	// Progress and Total position a checking_image event within the cycle.
	Progress int `json:"progress,omitempty"`
	Total    int `json:"total,omitempty"`
}

// ProgressFunc receives events as a cycle advances.
type ProgressFunc func(event Event)
