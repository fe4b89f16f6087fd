// Package cmd contains the command-line interface definitions and execution logic for tagwatch.
//
// Key components:
//   - rootCmd: Runs update cycles once, as a daemon, or on request through the HTTP API.
//   - detect: Subcommand suggesting version patterns and base tags for an image.
//
// Usage examples:
//   - Run the CLI from main.go:
//     cmd.Execute()
//   - Check the configured images every ten minutes:
//     tagwatch --daemon --interval 600
//   - Suggest a regex for an image:
//     tagwatch detect linuxserver/sonarr
//
// The package integrates the actions, config, container, registry, notifications and
// flags packages, using Cobra for CLI parsing and logrus for logging.
package cmd
