package actions

import (
	"context"
	"errors"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/tagwatch/pkg/container"
)

type localTag struct {
	ref     string
	created int64
}

// Prune removes all but the keep newest local tags of image.
//
// Tags are ordered by the creation time of the image they point to. Removal
// conflicts with running containers are expected and logged at debug level; other
// failures are logged as warnings. Nothing is removed in dry-run mode.
//
// Parameters:
//   - ctx: Context for runtime requests.
//   - client: Container runtime client.
//   - image: Image repository.
//   - keep: Number of tags to keep, at least one.
//   - dryRun: Log removals instead of performing them.
//
// Returns:
//   - []string: References removed, or that would be removed in dry-run mode.
func Prune(ctx context.Context, client container.Client, image string, keep int, dryRun bool) []string {
	clog := logrus.WithField("image", image)

	images, err := client.ListImages(ctx, image)
	if err != nil {
		clog.WithError(err).Warn("Failed to list images for cleanup")

		return nil
	}

	var tags []localTag

	for _, img := range images {
		for _, repoTag := range img.RepoTags {
			if tag := container.TagOf(repoTag); tag != "" && tag != container.NoneTag {
				tags = append(tags, localTag{ref: repoTag, created: img.Created})
			}
		}
	}

	keep = max(keep, 1)
	if len(tags) <= keep {
		clog.WithField("count", len(tags)).Debug("Nothing to clean up")

		return nil
	}

	sort.SliceStable(tags, func(i, j int) bool { return tags[i].created > tags[j].created })

	var removed []string

	for _, stale := range tags[keep:] {
		rlog := clog.WithField("ref", stale.ref)

		if dryRun {
			rlog.WithField("dry_run", true).Info("Would remove image")

			removed = append(removed, stale.ref)

			continue
		}

		if err := client.RemoveImage(ctx, stale.ref); err != nil {
			if errors.Is(err, container.ErrImageInUse) {
				rlog.Debug("Image in use, skipping removal")
			} else {
				rlog.WithError(err).Warn("Failed to remove image")
			}

			continue
		}

		rlog.Info("Removed image")

		removed = append(removed, stale.ref)
	}

	return removed
}
