// Package flags manages command-line flags and environment variables for tagwatch.
// Every flag has a TAGWATCH_* (or DOCKER_*) environment default bound through Viper.
//
// Key components:
//   - RegisterDockerFlags: Adds Docker API client flags.
//   - RegisterSystemFlags: Adds cycle, scheduling, API and logging flags.
//   - RegisterNotificationFlags: Adds notification settings.
//   - ReadUpdateParams / ReadRunConfig: Collect parsed flags into typed settings.
//   - SetupLogging: Configures logrus based on flags.
package flags
