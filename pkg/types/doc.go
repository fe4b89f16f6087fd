// Package types defines the value types and interfaces shared by tagwatch packages.
//
// Key components:
//   - TagConfig: One tracked image with its version pattern and update policy.
//   - Patterns: Compiled version patterns owned by the loaded configuration.
//   - Event: A classified outcome or progress step of an update cycle.
//   - Notifier: Sink receiving events, never failing the cycle.
//   - Report: Per-cycle results grouped by outcome.
//   - UpdateParams: Options for one update cycle.
//   - RunConfig: Settings resolved from the command line for the main loop.
package types
