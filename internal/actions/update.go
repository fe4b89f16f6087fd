package actions

import (
	"context"
	"fmt"
	"regexp"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/tagwatch/pkg/container"
	"github.com/nicholas-fedor/tagwatch/pkg/matcher"
	"github.com/nicholas-fedor/tagwatch/pkg/registry/helpers"
	"github.com/nicholas-fedor/tagwatch/pkg/session"
	"github.com/nicholas-fedor/tagwatch/pkg/state"
	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

// Resolver resolves a base tag to the version tag sharing its digest.
type Resolver interface {
	Resolve(
		ctx context.Context,
		image, baseTag string,
		pattern *regexp.Regexp,
		registryOverride string,
	) (matcher.Result, bool)
}

// StateStore persists the last seen resolution per image.
type StateStore interface {
	Load() map[string]state.ImageState
	Save(states map[string]state.ImageState) error
}

// Updater runs update cycles over configured images.
type Updater struct {
	client   container.Client
	resolver Resolver
	store    StateStore
	notifier types.Notifier
	patterns types.Patterns
	progress types.ProgressFunc
}

// NewUpdater creates an Updater. notifier may be nil.
func NewUpdater(
	client container.Client,
	resolver Resolver,
	store StateStore,
	notifier types.Notifier,
	patterns types.Patterns,
) *Updater {
	return &Updater{
		client:   client,
		resolver: resolver,
		store:    store,
		notifier: notifier,
		patterns: patterns,
	}
}

// OnProgress registers fn to receive every event of a cycle.
func (u *Updater) OnProgress(fn types.ProgressFunc) *Updater {
	u.progress = fn

	return u
}

// CheckAndUpdate checks every image once, sequentially, and applies updates for
// images with auto-update enabled.
//
// State is loaded once before the first image and saved once after the last. An
// image's state is only replaced when its update is not to be applied, or was applied
// successfully, so failed updates are retried next cycle.
//
// Parameters:
//   - ctx: Context for the cycle; images not yet checked are skipped once it is done.
//   - images: Tracked images.
//   - params: Cycle options.
//
// Returns:
//   - types.Report: Outcome per image.
//   - error: Non-nil if the state could not be saved.
func (u *Updater) CheckAndUpdate(
	ctx context.Context,
	images []types.TagConfig,
	params types.UpdateParams,
) (types.Report, error) {
	if params.DryRun {
		logrus.WithField("dry_run", true).Info("=== DRY RUN MODE ===")
	}

	states := u.store.Load()
	progress := session.Progress{}

	for i, cfg := range images {
		if ctx.Err() != nil {
			logrus.WithError(ctx.Err()).Warn("Cycle cancelled, skipping remaining images")

			break
		}

		u.checkImage(ctx, withDefaults(cfg), i+1, len(images), states, progress, params)
	}

	var err error
	if saveErr := u.store.Save(states); saveErr != nil {
		logrus.WithError(saveErr).Error("Failed to save state")

		err = fmt.Errorf("%w: %w", errSaveStateFailed, saveErr)
	}

	report := progress.Report()
	logSummary(report)

	return report, err
}

func withDefaults(cfg types.TagConfig) types.TagConfig {
	if cfg.BaseTag == "" {
		cfg.BaseTag = types.DefaultBaseTag
	}

	if cfg.KeepVersions < 1 {
		cfg.KeepVersions = types.DefaultKeepVersions
	}

	return cfg
}

func (u *Updater) checkImage(
	ctx context.Context,
	cfg types.TagConfig,
	position, total int,
	states map[string]state.ImageState,
	progress session.Progress,
	params types.UpdateParams,
) {
	clog := logrus.WithFields(logrus.Fields{
		"image":    cfg.Image,
		"base_tag": cfg.BaseTag,
	})

	u.emit(types.Event{
		Kind:     types.EventCheckingImage,
		Image:    cfg.Image,
		BaseTag:  cfg.BaseTag,
		Progress: position,
		Total:    total,
	})

	clog.Infof("Checking image (%d/%d)", position, total)

	pattern, ok := u.patterns.Lookup(cfg.Regex)
	if !ok {
		clog.WithField("regex", cfg.Regex).Error("No compiled pattern for image, skipping")
		progress.AddSkipped(cfg, fmt.Errorf("%w: %q", errMissingPattern, cfg.Regex))

		return
	}

	result, ok := u.resolver.Resolve(ctx, cfg.Image, cfg.BaseTag, pattern, cfg.Registry)
	if !ok {
		clog.Warn("Could not resolve base tag, skipping image")
		progress.AddSkipped(cfg, errUnresolved)

		return
	}

	stored, known := states[cfg.Image]
	if known && stored.Digest == result.Digest {
		clog.WithFields(logrus.Fields{
			"tag":    result.Tag,
			"digest": helpers.ShortDigest(result.Digest),
		}).Info("No update")

		event := types.Event{Kind: types.EventNoUpdate, Image: cfg.Image, BaseTag: cfg.BaseTag}
		u.emit(event)
		u.notify(event)
		progress.AddFresh(cfg, result.Tag, result.Digest)

		return
	}

	oldTag := u.previousTag(ctx, cfg, stored, known, pattern)

	classification := types.VersionUpdate
	if oldTag == result.Tag {
		classification = types.Rebuild
	}

	event := types.Event{
		Kind:       classification.EventKind(),
		Image:      cfg.Image,
		BaseTag:    cfg.BaseTag,
		OldVersion: oldTag,
		NewVersion: result.Tag,
		Digest:     result.Digest,
		AutoUpdate: cfg.AutoUpdate,
	}

	flog := clog.WithFields(logrus.Fields{
		"old_tag": oldTag,
		"new_tag": result.Tag,
		"digest":  helpers.ShortDigest(result.Digest),
	})

	if classification == types.Rebuild {
		flog.Info("Image rebuilt under the same tag")
	} else {
		flog.Info("Found new version")
	}

	u.emit(event)
	u.notify(event)
	progress.AddFound(cfg, oldTag, result.Tag, result.Digest, classification)

	if !cfg.AutoUpdate {
		states[cfg.Image] = state.New(cfg.BaseTag, result.Tag, result.Digest)

		return
	}

	failed, err := u.apply(ctx, cfg, result.Tag, params)
	if err != nil {
		flog.WithError(err).Error("Update failed, will retry next cycle")
		progress.MarkFailed(cfg.Image, err, failed)

		return
	}

	if len(failed) > 0 {
		flog.WithField("failed", failed).Warn("Some containers could not be updated")
	}

	progress.MarkApplied(cfg.Image, failed)
	states[cfg.Image] = state.New(cfg.BaseTag, result.Tag, result.Digest)
}

// previousTag returns the stored tag, else the tag of the image the first container
// of cfg.Image runs, else session.UnknownTag.
func (u *Updater) previousTag(
	ctx context.Context,
	cfg types.TagConfig,
	stored state.ImageState,
	known bool,
	pattern *regexp.Regexp,
) string {
	if known && stored.Tag != "" {
		return stored.Tag
	}

	containers, err := FindContainers(ctx, u.client, cfg.Image)
	if err != nil {
		logrus.WithError(err).WithField("image", cfg.Image).Debug("Could not look up running containers")

		return session.UnknownTag
	}

	if len(containers) > 0 {
		if tag, ok := CurrentTag(ctx, u.client, containers[0], pattern); ok {
			return tag
		}
	}

	return session.UnknownTag
}

// apply pulls the new image, replaces every container running it and prunes old
// tags. It fails when the base tag cannot be pulled or no replacement succeeded.
//
// Returns:
//   - []string: Containers whose replacement failed.
//   - error: Non-nil if the update must be retried.
func (u *Updater) apply(
	ctx context.Context,
	cfg types.TagConfig,
	tag string,
	params types.UpdateParams,
) ([]string, error) {
	if err := u.pull(ctx, cfg.Image, cfg.BaseTag, params.DryRun); err != nil {
		return nil, fmt.Errorf("%w: %w", errPullFailed, err)
	}

	if tag != cfg.BaseTag {
		if err := u.pull(ctx, cfg.Image, tag, params.DryRun); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"image": cfg.Image,
				"tag":   tag,
			}).Warn("Failed to pull version tag")
		}
	}

	containers, err := FindContainers(ctx, u.client, cfg.Image)
	if err != nil {
		return nil, err
	}

	var failed []string

	if len(containers) == 0 {
		logrus.WithField("image", cfg.Image).Info("No containers use image, updated image only")
	} else {
		names := make([]string, len(containers))
		for i, c := range containers {
			names[i] = c.Name
		}

		results := UpdateMany(ctx, u.client, names, cfg.Image, tag, params)

		for _, name := range names {
			if !results[name] {
				failed = append(failed, name)
			}
		}

		if len(failed) == len(names) {
			return failed, errAllReplacementsFailed
		}
	}

	if cfg.CleanupOldImages {
		Prune(ctx, u.client, cfg.Image, cfg.KeepVersions, params.DryRun)
	}

	return failed, nil
}

func (u *Updater) pull(ctx context.Context, image, tag string, dryRun bool) error {
	clog := logrus.WithFields(logrus.Fields{
		"image": image,
		"tag":   tag,
	})

	if dryRun {
		clog.WithField("dry_run", true).Info("Would pull image")

		return nil
	}

	clog.Info("Pulling image")

	if err := u.client.PullImage(ctx, image, tag); err != nil {
		return fmt.Errorf("%s:%s: %w", image, tag, err)
	}

	return nil
}

func (u *Updater) emit(event types.Event) {
	if u.progress != nil {
		u.progress(event)
	}
}

func (u *Updater) notify(event types.Event) {
	if u.notifier != nil {
		u.notifier.Notify(event)
	}
}

func logSummary(report types.Report) {
	logrus.Info("=== Update Summary ===")

	updated := report.Updated()
	if len(updated) == 0 {
		logrus.Info("No updates found")

		return
	}

	for _, update := range updated {
		logrus.WithFields(logrus.Fields{
			"classification": update.Classification().String(),
			"state":          update.State(),
		}).Infof("%s: %s -> %s", update.Image(), update.OldTag(), update.NewTag())
	}
}
