package flags

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

// DockerAPIMinVersion specifies the minimum Docker API version used when none is negotiated.
const DockerAPIMinVersion string = "1.44"

// defaultIntervalSeconds is the daemon interval in seconds (1 hour).
const defaultIntervalSeconds = 3600

// defaultStopTimeoutSeconds is the grace period for stopping containers.
const defaultStopTimeoutSeconds = 10

// defaultRegistryTimeoutSeconds bounds each registry request.
const defaultRegistryTimeoutSeconds = 30

// errInvalidLogFormat indicates an invalid log format was specified.
var errInvalidLogFormat = errors.New("invalid log format specified")

// errInvalidLogLevel indicates an invalid log level was specified.
var errInvalidLogLevel = errors.New("invalid log level specified")

// errSetEnvFailed indicates a failure to set an environment variable.
var errSetEnvFailed = errors.New("failed to set environment variable")

// errOpenFileFailed indicates a failure to open a file for reading secrets.
var errOpenFileFailed = errors.New("failed to open secret file")

// errReplaceSliceFailed indicates a failure to replace a slice value in a flag.
var errReplaceSliceFailed = errors.New("failed to replace slice value in flag")

// errReadFileFailed indicates a failure to read a secret file.
var errReadFileFailed = errors.New("failed to read secret file")

// errSetFlagFailed indicates a failure to read or set a flag value.
var errSetFlagFailed = errors.New("failed to set flag value")

// errInvalidInterval indicates a non-positive daemon interval.
var errInvalidInterval = errors.New("interval must be a positive number of seconds")

// RegisterDockerFlags adds flags used directly by the Docker API client to the root command.
func RegisterDockerFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.StringP("host", "H", envString("DOCKER_HOST"), "daemon socket to connect to")
	flags.BoolP("tlsverify", "v", envBool("DOCKER_TLS_VERIFY"), "use TLS and verify the remote")
	flags.StringP(
		"api-version",
		"a",
		envString("DOCKER_API_VERSION"),
		"api version to use by docker client",
	)
}

// RegisterSystemFlags adds flags that control the update cycle, scheduling and logging.
func RegisterSystemFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.StringP(
		"config",
		"c",
		envString("TAGWATCH_CONFIG"),
		"Path to the image configuration file (json or yaml)")

	flags.StringP(
		"state-file",
		"s",
		envString("TAGWATCH_STATE_FILE"),
		"Path to the file storing resolved versions between runs")

	flags.BoolP(
		"dry-run",
		"",
		envBool("TAGWATCH_DRY_RUN"),
		"Log what would be done without pulling, replacing containers or saving state")

	flags.BoolP(
		"daemon",
		"d",
		envBool("TAGWATCH_DAEMON"),
		"Keep running and check for updates every interval")

	flags.IntP(
		"interval",
		"i",
		envInt("TAGWATCH_INTERVAL"),
		"Seconds between checks in daemon mode")

	flags.BoolP(
		"run-once",
		"R",
		envBool("TAGWATCH_RUN_ONCE"),
		"Run a single check and exit, even if daemon mode is enabled")

	flags.StringP(
		"platform",
		"",
		envString("TAGWATCH_PLATFORM"),
		"Resolve digests for this os/arch instead of the manifest list")

	flags.DurationP(
		"registry-timeout",
		"",
		envDuration("TAGWATCH_REGISTRY_TIMEOUT"),
		"Timeout for each registry request")

	flags.DurationP(
		"stop-timeout",
		"t",
		envDuration("TAGWATCH_STOP_TIMEOUT"),
		"Timeout before a container is forcefully stopped")

	flags.BoolP(
		"registry-auth",
		"",
		envBool("TAGWATCH_REGISTRY_AUTH"),
		"Send docker CLI credentials when requesting registry tokens")

	flags.BoolP(
		"no-startup-message",
		"",
		envBool("TAGWATCH_NO_STARTUP_MESSAGE"),
		"Prevents the startup summary from being logged")

	flags.BoolP(
		"http-api-update",
		"",
		envBool("TAGWATCH_HTTP_API_UPDATE"),
		"Runs an update cycle when the HTTP update endpoint is called")

	flags.BoolP(
		"http-api-metrics",
		"",
		envBool("TAGWATCH_HTTP_API_METRICS"),
		"Runs the HTTP API and exposes Prometheus metrics")

	flags.StringP(
		"http-api-token",
		"",
		envString("TAGWATCH_HTTP_API_TOKEN"),
		"Sets an authentication token for HTTP API requests")

	flags.StringP(
		"http-api-port",
		"",
		envString("TAGWATCH_HTTP_API_PORT"),
		"Sets the port of the HTTP API server")

	flags.BoolP(
		"no-color",
		"",
		viper.IsSet("NO_COLOR"),
		"Disable ANSI color escape codes in log output")

	flags.StringP(
		"log-format",
		"l",
		viper.GetString("TAGWATCH_LOG_FORMAT"),
		"Sets what logging format to use for console output. Possible values: Auto, LogFmt, Pretty, JSON")

	flags.BoolP(
		"debug",
		"",
		envBool("TAGWATCH_DEBUG"),
		"Enable debug mode with verbose logging")

	flags.BoolP(
		"trace",
		"",
		envBool("TAGWATCH_TRACE"),
		"Enable trace mode with very verbose logging - caution, exposes credentials")

	flags.StringP(
		"log-level",
		"",
		envString("TAGWATCH_LOG_LEVEL"),
		"The maximum log level that will be written to STDERR. Possible values: panic, fatal, error, warn, info, debug or trace")
}

// RegisterNotificationFlags adds notification flags to the root command.
func RegisterNotificationFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.StringArrayP(
		"notification-url",
		"",
		envStringSlice("TAGWATCH_NOTIFICATION_URL"),
		"Shoutrrr URL to send update notifications to, in addition to the configuration file")

	flags.BoolP(
		"notify-no-update",
		"",
		envBool("TAGWATCH_NOTIFY_NO_UPDATE"),
		"Also notify when a checked image is unchanged")
}

// envString retrieves a string value from an environment variable via Viper.
func envString(key string) string {
	viper.MustBindEnv(key)

	return viper.GetString(key)
}

// envStringSlice retrieves a string slice from an environment variable via Viper.
func envStringSlice(key string) []string {
	viper.MustBindEnv(key)

	return viper.GetStringSlice(key)
}

// envInt retrieves an integer value from an environment variable via Viper.
func envInt(key string) int {
	viper.MustBindEnv(key)

	return viper.GetInt(key)
}

// envBool retrieves a boolean value from an environment variable via Viper.
func envBool(key string) bool {
	viper.MustBindEnv(key)

	return viper.GetBool(key)
}

// envDuration retrieves a duration value from an environment variable via Viper.
func envDuration(key string) time.Duration {
	viper.MustBindEnv(key)

	return viper.GetDuration(key)
}

// SetDefaults configures default values for environment variables.
func SetDefaults() {
	viper.AutomaticEnv()
	viper.SetDefault("DOCKER_HOST", "unix:///var/run/docker.sock")
	viper.SetDefault("DOCKER_API_VERSION", DockerAPIMinVersion)
	viper.SetDefault("TAGWATCH_CONFIG", "config.json")
	viper.SetDefault("TAGWATCH_STATE_FILE", "image_update_state.json")
	viper.SetDefault("TAGWATCH_INTERVAL", defaultIntervalSeconds)
	viper.SetDefault("TAGWATCH_STOP_TIMEOUT", time.Second*defaultStopTimeoutSeconds)
	viper.SetDefault("TAGWATCH_REGISTRY_TIMEOUT", time.Second*defaultRegistryTimeoutSeconds)
	viper.SetDefault("TAGWATCH_HTTP_API_PORT", "8080")
	viper.SetDefault("TAGWATCH_NOTIFICATION_URL", []string{})
	viper.SetDefault("TAGWATCH_LOG_LEVEL", "info")
	viper.SetDefault("TAGWATCH_LOG_FORMAT", "auto")
}

// EnvConfig exports the Docker connection flags to the environment read by the Docker client.
func EnvConfig(cmd *cobra.Command) error {
	flags := cmd.PersistentFlags()

	host, err := flags.GetString("host")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	tls, err := flags.GetBool("tlsverify")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	version, err := flags.GetString("api-version")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if err = setEnvOptStr("DOCKER_HOST", host); err != nil {
		return err
	}

	if err = setEnvOptBool("DOCKER_TLS_VERIFY", tls); err != nil {
		return err
	}

	return setEnvOptStr("DOCKER_API_VERSION", version)
}

// ReadUpdateParams collects the per-cycle options from the parsed flags, exiting on error.
func ReadUpdateParams(cmd *cobra.Command) types.UpdateParams {
	flags := cmd.PersistentFlags()

	dryRun, err := flags.GetBool("dry-run")
	if err != nil {
		logrus.Fatal(err)
	}

	stopTimeout, err := flags.GetDuration("stop-timeout")
	if err != nil {
		logrus.Fatal(err)
	}

	platform, err := flags.GetString("platform")
	if err != nil {
		logrus.Fatal(err)
	}

	notifyNoUpdate, err := flags.GetBool("notify-no-update")
	if err != nil {
		logrus.Fatal(err)
	}

	return types.UpdateParams{
		DryRun:         dryRun,
		StopTimeout:    stopTimeout,
		Platform:       strings.TrimSpace(platform),
		NotifyNoUpdate: notifyNoUpdate,
	}
}

// ReadRunConfig collects scheduling and HTTP API settings from the parsed flags.
//
// Parameters:
//   - cmd: Command whose flags were parsed.
//
// Returns:
//   - types.RunConfig: Loop settings.
//   - error: Non-nil if a flag is missing or the interval is not positive.
func ReadRunConfig(cmd *cobra.Command) (types.RunConfig, error) {
	flags := cmd.PersistentFlags()
	cfg := types.RunConfig{Command: cmd}

	var err error

	if cfg.RunOnce, err = flags.GetBool("run-once"); err != nil {
		return cfg, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if cfg.Daemon, err = flags.GetBool("daemon"); err != nil {
		return cfg, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	seconds, err := flags.GetInt("interval")
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if seconds <= 0 {
		return cfg, fmt.Errorf("%w: %d", errInvalidInterval, seconds)
	}

	cfg.Interval = time.Duration(seconds) * time.Second

	if cfg.EnableUpdateAPI, err = flags.GetBool("http-api-update"); err != nil {
		return cfg, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if cfg.EnableMetricsAPI, err = flags.GetBool("http-api-metrics"); err != nil {
		return cfg, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if cfg.APIToken, err = flags.GetString("http-api-token"); err != nil {
		return cfg, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if cfg.APIPort, err = flags.GetString("http-api-port"); err != nil {
		return cfg, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if cfg.NoStartupMessage, err = flags.GetBool("no-startup-message"); err != nil {
		return cfg, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	// --run-once wins over --daemon.
	if cfg.RunOnce {
		cfg.Daemon = false
	}

	return cfg, nil
}

// setEnvOptStr sets an environment variable unless the value is empty or already current.
func setEnvOptStr(env string, opt string) error {
	if opt == "" || opt == os.Getenv(env) {
		return nil
	}

	if err := os.Setenv(env, opt); err != nil {
		return fmt.Errorf("%w: %s: %w", errSetEnvFailed, env, err)
	}

	return nil
}

// setEnvOptBool sets an environment variable to "1" if the boolean is true.
func setEnvOptBool(env string, opt bool) error {
	if opt {
		return setEnvOptStr(env, "1")
	}

	return nil
}

// GetSecretsFromFiles replaces flag values with file contents if they reference files.
func GetSecretsFromFiles(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	secrets := []string{
		"notification-url",
		"http-api-token",
	}
	for _, secret := range secrets {
		if err := getSecretFromFile(flags, secret); err != nil {
			logrus.Fatalf("failed to get secret from flag %v: %s", secret, err)
		}
	}
}

// getSecretFromFile updates a flag's value with file contents if it references a file.
// Slice flags read one value per non-empty line.
func getSecretFromFile(flags *pflag.FlagSet, secret string) error {
	flag := flags.Lookup(secret)
	if sliceValue, ok := flag.Value.(pflag.SliceValue); ok {
		oldValues := sliceValue.GetSlice()
		values := make([]string, 0, len(oldValues))

		for _, value := range oldValues {
			if value == "" || !isFilePath(value) {
				values = append(values, value)

				continue
			}

			lines, err := readLines(value)
			if err != nil {
				return err
			}

			values = append(values, lines...)
		}

		if err := sliceValue.Replace(values); err != nil {
			return fmt.Errorf("%w: %w", errReplaceSliceFailed, err)
		}

		return nil
	}

	value := flag.Value.String()
	if value != "" && isFilePath(value) {
		content, err := os.ReadFile(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errReadFileFailed, err)
		}

		if err := flags.Set(secret, strings.TrimSpace(string(content))); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	return nil
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errOpenFileFailed, err)
	}
	defer file.Close()

	var lines []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errReadFileFailed, err)
	}

	return lines, nil
}

// isFilePath determines if a string likely represents a file path.
// It checks for file existence, avoiding false positives from URLs or invalid Windows paths.
func isFilePath(path string) bool {
	firstColon := strings.IndexRune(path, ':')
	if firstColon != 1 && firstColon != -1 {
		// A colon anywhere but after a drive letter means a URL.
		return false
	}

	_, err := os.Stat(path)

	return !errors.Is(err, os.ErrNotExist)
}

// ProcessFlagAliases maps the --debug and --trace shorthands onto --log-level.
func ProcessFlagAliases(flags *pflag.FlagSet) {
	if flagIsEnabled(flags, "debug") {
		if err := flags.Set("log-level", "debug"); err != nil {
			logrus.Errorf("Failed to set log-level flag: %v", err)
		}
	}

	if flagIsEnabled(flags, "trace") {
		if err := flags.Set("log-level", "trace"); err != nil {
			logrus.Errorf("Failed to set log-level flag: %v", err)
		}
	}
}

// SetupLogging configures the global logger based on log-related flags.
func SetupLogging(flags *pflag.FlagSet) error {
	logFormat, err := flags.GetString("log-format")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	noColor, err := flags.GetBool("no-color")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if err := configureLogFormat(logFormat, noColor); err != nil {
		return err
	}

	rawLogLevel, err := flags.GetString("log-level")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	logLevel, err := logrus.ParseLevel(rawLogLevel)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	logrus.SetLevel(logLevel)

	return nil
}

// configureLogFormat sets the logrus formatter based on the specified format and color preference.
func configureLogFormat(logFormat string, noColor bool) error {
	switch strings.ToLower(logFormat) {
	case "auto":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors:             noColor,
			EnvironmentOverrideColors: true,
		})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "logfmt":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	case "pretty":
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !noColor,
			FullTimestamp: false,
		})
	default:
		return fmt.Errorf("%w: %s", errInvalidLogFormat, logFormat)
	}

	return nil
}

// flagIsEnabled checks if a boolean flag is set to true, exiting if it is not defined.
func flagIsEnabled(flags *pflag.FlagSet, name string) bool {
	value, err := flags.GetBool(name)
	if err != nil {
		logrus.Fatalf("The flag %q is not defined", name)
	}

	return value
}
