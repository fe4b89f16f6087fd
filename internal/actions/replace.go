package actions

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/tagwatch/pkg/container"
	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

// BackupName returns the name a container is renamed to while it is replaced.
func BackupName(name string, now time.Time) string {
	return fmt.Sprintf("%s_backup_%d", name, now.Unix())
}

// Replace recreates the container name on image:tag.
//
// The container is stopped and renamed to a backup name, then a container with the
// same configuration is created under the original name and started. When creation or
// start fails the replacement is removed and the backup is renamed back and started.
// After a successful start the additional networks of the original are attached and
// the backup is removed; failures in these steps are only logged.
//
// Parameters:
//   - ctx: Context for runtime requests.
//   - client: Container runtime client.
//   - name: Container to replace.
//   - image: Image repository.
//   - tag: Image tag.
//   - params: Dry run and stop timeout.
//
// Returns:
//   - error: Non-nil if the container was not replaced.
func Replace(
	ctx context.Context,
	client container.Client,
	name, image, tag string,
	params types.UpdateParams,
) error {
	imageRef := image + ":" + tag
	clog := logrus.WithFields(logrus.Fields{
		"container": name,
		"image":     imageRef,
	})

	if params.DryRun {
		clog.WithField("dry_run", true).Info("Would update container")

		return nil
	}

	info, err := client.InspectContainer(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: %w", errInspectFailed, err)
	}

	spec := container.BuildCreateSpec(info, imageRef)
	backup := BackupName(name, time.Now())

	clog.Info("Stopping container")

	if err := client.StopContainer(ctx, name, params.StopTimeout); err != nil {
		return fmt.Errorf("%w: %w", errStopFailed, err)
	}

	if err := client.RenameContainer(ctx, name, backup); err != nil {
		if startErr := client.StartContainer(ctx, name); startErr != nil {
			clog.WithError(startErr).Error("Failed to restart container after rename failure")
		}

		return fmt.Errorf("%w: %w", errBackupFailed, err)
	}

	clog.WithField("backup", backup).Debug("Renamed container to backup")

	newID, err := client.CreateContainer(ctx, name, spec)
	if err != nil {
		rollback(ctx, client, name, backup, "")

		return fmt.Errorf("%w: %w", errCreateFailed, err)
	}

	if err := client.StartContainer(ctx, name); err != nil {
		rollback(ctx, client, name, backup, newID)

		return fmt.Errorf("%w: %w", errStartFailed, err)
	}

	clog.WithField("id", container.ShortID(newID)).Info("Started new container")

	connectNetworks(ctx, client, newID, spec, clog)

	if err := client.RemoveContainer(ctx, backup); err != nil {
		clog.WithError(err).WithField("backup", backup).Warn("Failed to remove backup container")
	}

	return nil
}

func connectNetworks(
	ctx context.Context,
	client container.Client,
	containerID string,
	spec container.CreateSpec,
	clog *logrus.Entry,
) {
	for _, network := range slices.Sorted(maps.Keys(spec.ExtraNetworks)) {
		if err := client.ConnectNetwork(ctx, network, containerID, spec.ExtraNetworks[network]); err != nil {
			clog.WithError(err).WithField("network", network).Warn("Failed to connect network")

			continue
		}

		clog.WithField("network", network).Debug("Connected network")
	}
}

// rollback restores the backup container under its original name. The backup is
// left in place when any step fails.
func rollback(ctx context.Context, client container.Client, name, backup, newID string) {
	clog := logrus.WithFields(logrus.Fields{
		"container": name,
		"backup":    backup,
	})

	clog.Warn("Rolling back container")

	if newID != "" {
		if err := client.RemoveContainer(ctx, newID); err != nil {
			clog.WithError(err).Error("Failed to remove replacement container, backup preserved")

			return
		}
	}

	if err := client.RenameContainer(ctx, backup, name); err != nil {
		clog.WithError(err).Error("Failed to restore backup name, backup preserved")

		return
	}

	if err := client.StartContainer(ctx, name); err != nil {
		clog.WithError(err).Error("Failed to restart original container")

		return
	}

	clog.Info("Rolled back container")
}

// UpdateMany replaces each named container in turn and never stops on a failure.
//
// Returns:
//   - map[string]bool: Success per container name.
func UpdateMany(
	ctx context.Context,
	client container.Client,
	names []string,
	image, tag string,
	params types.UpdateParams,
) map[string]bool {
	results := make(map[string]bool, len(names))
	succeeded := 0

	for _, name := range names {
		err := Replace(ctx, client, name, image, tag, params)
		if err != nil {
			logrus.WithError(err).WithField("container", name).Error("Failed to update container")
		} else {
			succeeded++
		}

		results[name] = err == nil
	}

	clog := logrus.WithFields(logrus.Fields{
		"image":     image,
		"succeeded": succeeded,
		"total":     len(names),
	})

	if succeeded == len(names) {
		clog.Infof("Container update summary: %d/%d succeeded", succeeded, len(names))
	} else {
		clog.Warnf("Container update summary: %d/%d succeeded", succeeded, len(names))
	}

	return results
}
