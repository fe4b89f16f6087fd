package actions

import (
	"context"
	"fmt"
	"regexp"

	"github.com/distribution/reference"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/tagwatch/pkg/container"
	"github.com/nicholas-fedor/tagwatch/pkg/matcher"
	"github.com/nicholas-fedor/tagwatch/pkg/sorter"
)

// FindContainers returns every container, in any state, running image, oldest first.
//
// Parameters:
//   - ctx: Context for runtime requests.
//   - client: Container runtime client.
//   - image: Configured image reference.
//
// Returns:
//   - []container.Container: Matching containers.
//   - error: Non-nil if containers could not be listed.
func FindContainers(ctx context.Context, client container.Client, image string) ([]container.Container, error) {
	all, err := client.ListContainers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errListContainersFailed, err)
	}

	var matched []container.Container

	for _, c := range all {
		if container.ImageMatches(image, c.ImageRef) {
			matched = append(matched, c)
		}
	}

	sorter.SortByCreated(matched)

	logrus.WithFields(logrus.Fields{
		"image": image,
		"count": len(matched),
	}).Debug("Found containers for image")

	return matched, nil
}

// CurrentTag looks up the version tag of the image a container runs by finding a
// local tag of the same image ID that matches pattern in full.
//
// Parameters:
//   - ctx: Context for runtime requests.
//   - client: Container runtime client.
//   - target: Container to inspect.
//   - pattern: Version tag pattern.
//
// Returns:
//   - string: Matching tag.
//   - bool: False when the container, its image or a matching tag is unavailable.
func CurrentTag(
	ctx context.Context,
	client container.Client,
	target container.Container,
	pattern *regexp.Regexp,
) (string, bool) {
	clog := logrus.WithField("container", target.Name)

	if pattern == nil {
		return "", false
	}

	info, err := client.InspectContainer(ctx, target.Name)
	if err != nil {
		clog.WithError(err).Debug("Could not inspect container for current tag")

		return "", false
	}

	images, err := client.ListImages(ctx, repository(target.ImageRef))
	if err != nil {
		clog.WithError(err).Debug("Could not list images for current tag")

		return "", false
	}

	anchored := matcher.Anchor(pattern)

	for _, img := range images {
		if img.ID != info.Image {
			continue
		}

		for _, tag := range img.Tags() {
			if anchored.MatchString(tag) {
				clog.WithField("tag", tag).Debug("Found current tag from local image")

				return tag, true
			}
		}
	}

	return "", false
}

// repository returns the familiar repository name of ref without tag or digest, the
// form accepted by the runtime's reference filter.
func repository(ref string) string {
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return ref
	}

	return reference.FamiliarName(named)
}
