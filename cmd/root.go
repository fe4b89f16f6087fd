package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nicholas-fedor/tagwatch/internal/actions"
	internalAPI "github.com/nicholas-fedor/tagwatch/internal/api"
	"github.com/nicholas-fedor/tagwatch/internal/config"
	"github.com/nicholas-fedor/tagwatch/internal/flags"
	"github.com/nicholas-fedor/tagwatch/internal/logging"
	"github.com/nicholas-fedor/tagwatch/internal/meta"
	"github.com/nicholas-fedor/tagwatch/internal/scheduling"
	"github.com/nicholas-fedor/tagwatch/pkg/container"
	"github.com/nicholas-fedor/tagwatch/pkg/matcher"
	"github.com/nicholas-fedor/tagwatch/pkg/metrics"
	"github.com/nicholas-fedor/tagwatch/pkg/notifications"
	"github.com/nicholas-fedor/tagwatch/pkg/registry"
	"github.com/nicholas-fedor/tagwatch/pkg/registry/helpers"
	"github.com/nicholas-fedor/tagwatch/pkg/state"
	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

// client is the container runtime client used for discovery, pulls and replacement.
var client container.Client

// notifier receives classified events of every cycle.
var notifier types.Notifier

// updater runs update cycles over the configured images.
var updater *actions.Updater

// cfg holds the loaded tag configuration.
var cfg *config.Config

// params holds the per-cycle options read from flags.
var params types.UpdateParams

// rootCmd is the entry point for all tagwatch commands.
var rootCmd = NewRootCommand()

// NewRootCommand creates the root command for the tagwatch CLI.
//
// Returns:
//   - *cobra.Command: Root command, ready for flag registration and execution.
func NewRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tagwatch",
		Short: "Resolves moving image tags to versions and updates running containers",
		Long: "\nTagwatch tracks a moving tag such as \"latest\", finds the version tag sharing its digest\n" +
			"and, when enabled, replaces running containers with the resolved version.",
		Run:    run,
		PreRun: preRun,
		Args:   cobra.NoArgs,
	}
}

func init() {
	flags.SetDefaults()
	flags.RegisterDockerFlags(rootCmd)
	flags.RegisterSystemFlags(rootCmd)
	flags.RegisterNotificationFlags(rootCmd)
}

// Execute runs the root command, exiting on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("Failed to execute root command")
	}
}

// preRun configures logging and builds every collaborator of the update cycle.
//
// Configuration problems are fatal: an invalid image reference or unsafe regex stops
// startup before any registry or runtime call is made.
func preRun(cmd *cobra.Command, _ []string) {
	flagsSet := cmd.PersistentFlags()
	flags.ProcessFlagAliases(flagsSet)

	if err := flags.SetupLogging(flagsSet); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize logging")
	}

	flags.GetSecretsFromFiles(cmd)
	params = flags.ReadUpdateParams(cmd)

	if params.StopTimeout < 0 {
		logrus.Fatal("Please specify a positive value for stop timeout.")
	}

	if err := flags.EnvConfig(cmd); err != nil {
		logrus.WithError(err).Fatal("Failed to configure Docker environment")
	}

	configPath, _ := flagsSet.GetString("config")

	var err error

	cfg, err = config.Load(afero.NewOsFs(), configPath)
	if err != nil {
		logrus.WithError(err).WithField("path", configPath).Fatal("Failed to load configuration")
	}

	client, err = container.NewClient()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create Docker client")
	}

	reg, err := newRegistryClient(flagsSet)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create registry client")
	}

	notifier, err = newNotifier(flagsSet, cfg.Notifications, params.NotifyNoUpdate)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure notifications")
	}

	statePath, _ := flagsSet.GetString("state-file")

	updater = actions.NewUpdater(
		client,
		matcher.New(reg, matcher.WithPlatform(params.Platform)),
		state.NewStore(statePath, params.DryRun),
		notifier,
		cfg.Patterns,
	).OnProgress(logProgress)
}

// run dispatches to the requested run mode and exits with its status.
func run(c *cobra.Command, _ []string) {
	runCfg, err := flags.ReadRunConfig(c)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid run configuration")
	}

	runCfg.Command = c

	if exitCode := runMain(runCfg); exitCode != 0 {
		logrus.WithField("exit_code", exitCode).Debug("Exiting with non-zero status")
		os.Exit(exitCode)
	}
}

// runMain runs update cycles according to the run mode.
//
// --run-once performs one cycle and exits. --daemon performs a cycle immediately and then
// one every interval, serving the HTTP API alongside when enabled. Without either flag the
// update API, when enabled, serves requests in the foreground; otherwise a single cycle runs.
//
// Parameters:
//   - runCfg: Run mode and HTTP API settings.
//
// Returns:
//   - int: Exit code, non-zero when a single cycle failed to apply an update or startup failed.
func runMain(runCfg types.RunConfig) int {
	defer metrics.Default().Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	updateLock := scheduling.NewLock()
	startup := newStartup(runCfg)

	switch {
	case runCfg.RunOnce || (!runCfg.Daemon && !runCfg.EnableUpdateAPI):
		logging.WriteStartupMessage(startup)

		var last *metrics.Metric

		scheduling.RunLocked(ctx, updateLock, func(ctx context.Context) *metrics.Metric {
			last = runCycle(ctx, nil)

			return last
		})
		notifier.Close()

		if last != nil && last.Failed > 0 {
			return 1
		}

		return 0

	case runCfg.Daemon:
		if err := internalAPI.SetupAndStartAPI(ctx, runCfg, updateLock, runCycle, false); err != nil {
			logrus.WithError(err).Error("Failed to start HTTP API")

			return 1
		}

		err := scheduling.RunOnSchedule(
			ctx,
			runCfg.Interval,
			updateLock,
			func(ctx context.Context) *metrics.Metric { return runCycle(ctx, nil) },
			func(next time.Time) {
				startup.Next = next
				logging.WriteStartupMessage(startup)
			},
			notifier,
		)
		if err != nil {
			logrus.WithError(err).Error("Failed to schedule update cycles")

			return 1
		}

		return 0

	default:
		logging.WriteStartupMessage(startup)

		err := internalAPI.SetupAndStartAPI(ctx, runCfg, updateLock, runCycle, true)

		scheduling.WaitForRunningUpdate(context.Background(), updateLock)
		notifier.Close()

		if err != nil {
			logrus.WithError(err).Error("HTTP API stopped with an error")

			return 1
		}

		return 0
	}
}

// runCycle runs one update cycle over the configured images, or over the named subset.
func runCycle(ctx context.Context, names []string) *metrics.Metric {
	images := selectImages(cfg.Images, names)
	if len(names) > 0 && len(images) == 0 {
		logrus.WithField("images", names).Warn("None of the requested images is configured")
	}

	return actions.RunUpdatesWithNotifications(ctx, updater, images, params)
}

// selectImages returns the configured images whose reference equals one of names, or all
// images when names is empty.
func selectImages(images []types.TagConfig, names []string) []types.TagConfig {
	if len(names) == 0 {
		return images
	}

	wanted := lo.Map(names, func(name string, _ int) string {
		return helpers.ParseImageReference(name).String()
	})

	return lo.Filter(images, func(image types.TagConfig, _ int) bool {
		return lo.Contains(wanted, helpers.ParseImageReference(image.Image).String())
	})
}

// newRegistryClient builds a registry client from the registry flags.
func newRegistryClient(flagsSet *pflag.FlagSet) (*registry.Client, error) {
	timeout, err := flagsSet.GetDuration("registry-timeout")
	if err != nil {
		return nil, err
	}

	useCredentials, err := flagsSet.GetBool("registry-auth")
	if err != nil {
		return nil, err
	}

	return registry.NewClient(registry.Options{
		Timeout:        timeout,
		UseCredentials: useCredentials,
		UserAgent:      meta.UserAgent,
	}), nil
}

// newNotifier combines the configured channels with URLs passed on the command line.
func newNotifier(
	flagsSet *pflag.FlagSet,
	channels notifications.Config,
	notifyNoUpdate bool,
) (types.Notifier, error) {
	urls, err := flagsSet.GetStringArray("notification-url")
	if err != nil {
		return nil, err
	}

	channels.URLs = lo.Uniq(append(append([]string{}, channels.URLs...), urls...))

	return notifications.NewNotifier(channels, notifications.WithNoUpdate(notifyNoUpdate))
}

func newStartup(runCfg types.RunConfig) logging.Startup {
	configPath, _ := runCfg.Command.PersistentFlags().GetString("config")
	statePath, _ := runCfg.Command.PersistentFlags().GetString("state-file")

	return logging.Startup{
		Version:    meta.Version,
		ConfigPath: configPath,
		StateFile:  statePath,
		Images:     len(cfg.Images),
		DryRun:     params.DryRun,
		Platform:   params.Platform,
		Run:        runCfg,
		Notifier:   notifier,
	}
}

// logProgress reports cycle progress at debug level.
func logProgress(event types.Event) {
	if event.Kind != types.EventCheckingImage {
		return
	}

	logrus.WithFields(logrus.Fields{
		"image":    event.Image,
		"base_tag": event.BaseTag,
		"progress": event.Progress,
		"total":    event.Total,
	}).Debug("Checking image")
}
