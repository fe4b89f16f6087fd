// Package actions implements tagwatch's update cycle.
//
// Key components:
//   - Updater.CheckAndUpdate: resolves every configured image, classifies the result
//     against stored state, notifies, and applies updates when enabled.
//   - Replace / UpdateMany: swap containers onto a new image with rollback.
//   - Prune: removes old local tags of an image.
//   - FindContainers / CurrentTag: container inventory lookups.
//   - RunUpdatesWithNotifications: runs one cycle and converts the report into metrics.
//
// Usage example:
//
//	updater := actions.NewUpdater(client, resolver, store, notifier, patterns)
//	report, err := updater.CheckAndUpdate(ctx, images, params)
package actions
