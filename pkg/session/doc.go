// Package session tracks the outcome of every configured image during one update
// cycle and groups the outcomes into a report.
//
// Key components:
//   - State: Enum for image outcomes (e.g., Applied, Failed).
//   - ImageStatus: Tracks one image's resolution and outcome.
//   - Progress: Maps image statuses during a cycle.
//   - Report: Categorizes and sorts image outcomes.
//
// Usage example:
//
//	progress := session.Progress{}
//	status := progress.AddFound(cfg, "1.2.2", "1.2.3", digest, types.VersionUpdate)
//	progress.MarkApplied(cfg.Image, nil)
//	report := progress.Report()
//	applied := report.Applied()
package session
