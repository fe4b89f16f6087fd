package session

import (
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

// Progress tracks image statuses during a cycle, keyed by configured image.
type Progress map[string]*ImageStatus

func newStatus(cfg types.TagConfig, state State) *ImageStatus {
	return &ImageStatus{
		image:      cfg.Image,
		baseTag:    cfg.BaseTag,
		autoUpdate: cfg.AutoUpdate,
		state:      state,
	}
}

// AddSkipped records an image that could not be resolved.
//
// Parameters:
//   - cfg: Configuration of the image.
//   - err: Skip reason.
func (m Progress) AddSkipped(cfg types.TagConfig, err error) {
	status := newStatus(cfg, SkippedState)
	status.imageError = err
	m.Add(status)
}

// AddFresh records an image whose base tag digest did not change.
func (m Progress) AddFresh(cfg types.TagConfig, tag, digest string) {
	status := newStatus(cfg, FreshState)
	status.oldTag = tag
	status.newTag = tag
	status.digest = digest
	status.classification = types.NoUpdate
	m.Add(status)
}

// AddFound records a version update or rebuild.
//
// Parameters:
//   - cfg: Configuration of the image.
//   - oldTag: Version before the cycle.
//   - newTag: Resolved version.
//   - digest: Resolved digest.
//   - classification: VersionUpdate or Rebuild.
//
// Returns:
//   - *ImageStatus: The recorded status.
func (m Progress) AddFound(
	cfg types.TagConfig,
	oldTag, newTag, digest string,
	classification types.Classification,
) *ImageStatus {
	status := newStatus(cfg, FoundState)
	status.oldTag = oldTag
	status.newTag = newTag
	status.digest = digest
	status.classification = classification
	m.Add(status)

	return status
}

// MarkApplied sets an image's state to applied. failed lists containers whose
// replacement failed although the update as a whole succeeded.
func (m Progress) MarkApplied(image string, failed []string) {
	status, exists := m[image]
	if !exists {
		logrus.WithField("image", image).Debug("Attempted to mark unknown image as applied")

		return
	}

	status.state = AppliedState
	status.failedContainers = slices.Clone(failed)
}

// MarkFailed sets an image's state to failed.
func (m Progress) MarkFailed(image string, err error, failed []string) {
	status, exists := m[image]
	if !exists {
		logrus.WithField("image", image).Debug("Attempted to mark unknown image as failed")

		return
	}

	status.state = FailedState
	status.imageError = err
	status.failedContainers = slices.Clone(failed)

	logrus.WithField("image", image).WithError(err).Debug("Marked image update as failed")
}

// Add inserts an image status into the progress map.
func (m Progress) Add(status *ImageStatus) {
	m[status.image] = status
	logrus.WithFields(logrus.Fields{
		"image": status.image,
		"state": status.State(),
	}).Debug("Added image status to progress map")
}

// Report generates a report from the progress data.
//
// Returns:
//   - types.Report: New report instance.
func (m Progress) Report() types.Report {
	return NewReport(m)
}
