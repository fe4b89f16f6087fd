package container

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/sirupsen/logrus"

	cerrdefs "github.com/containerd/errdefs"
	dockerImageType "github.com/docker/docker/api/types/image"

	"github.com/nicholas-fedor/tagwatch/pkg/registry"
)

// PullImage pulls image:tag, attaching registry credentials when known.
//
// The pull response is a stream of JSON progress messages; the pull fails if any of
// them carries an error, even though the request itself succeeded.
//
// Parameters:
//   - ctx: Context for the pull.
//   - image: Repository to pull.
//   - tag: Tag to pull.
//
// Returns:
//   - error: Non-nil if the pull could not be started or reported an error.
func (c *client) PullImage(ctx context.Context, image, tag string) error {
	ref := image + ":" + tag
	clog := logrus.WithField("image", ref)

	opts, err := registry.GetPullOptions(ref)
	if err != nil {
		clog.WithError(err).Debug("Failed to load authentication credentials")

		return fmt.Errorf("%w: %s: %w", errPullImageFailed, ref, err)
	}

	clog.Debug("Initiating image pull")

	response, err := c.api.ImagePull(ctx, ref, opts)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errPullImageFailed, ref, err)
	}
	defer response.Close()

	if err := jsonmessage.DisplayJSONMessagesStream(response, io.Discard, 0, false, nil); err != nil {
		return fmt.Errorf("%w: %s: %w", errReadPullResponseFailed, ref, err)
	}

	clog.Debug("Image pull completed")

	return nil
}

// ListImages returns the local images whose reference matches reference.
func (c *client) ListImages(ctx context.Context, reference string) ([]Image, error) {
	summaries, err := c.api.ImageList(ctx, dockerImageType.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", reference)),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errListImagesFailed, reference, err)
	}

	images := make([]Image, 0, len(summaries))
	for _, summary := range summaries {
		images = append(images, Image{
			ID:       summary.ID,
			RepoTags: summary.RepoTags,
			Created:  summary.Created,
		})
	}

	logrus.WithFields(logrus.Fields{
		"reference": reference,
		"count":     len(images),
	}).Debug("Listed images")

	return images, nil
}

// RemoveImage removes an image reference without forcing, so images used by a
// container are kept and reported as ErrImageInUse.
func (c *client) RemoveImage(ctx context.Context, ref string) error {
	clog := logrus.WithField("image", ref)

	items, err := c.api.ImageRemove(ctx, ref, dockerImageType.RemoveOptions{PruneChildren: true})
	if err != nil {
		if cerrdefs.IsConflict(err) {
			return fmt.Errorf("%w: %s: %w", ErrImageInUse, ref, err)
		}

		return fmt.Errorf("%w: %s: %w", errRemoveImageFailed, ref, err)
	}

	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		deleted := make([]string, 0, len(items))
		untagged := make([]string, 0, len(items))

		for _, item := range items {
			if item.Deleted != "" {
				deleted = append(deleted, ShortID(item.Deleted))
			}

			if item.Untagged != "" {
				untagged = append(untagged, item.Untagged)
			}
		}

		clog.WithFields(logrus.Fields{
			"deleted":  strings.Join(deleted, ", "),
			"untagged": strings.Join(untagged, ", "),
		}).Debug("Image removal details")
	}

	return nil
}
