// Package notifications delivers image update events to ntfy topics, outgoing
// webhooks and any additional Shoutrrr service URL.
//
// Key components:
//   - Configuration: ntfy, webhook and URL channels (config.go).
//   - Channels: per-event URL and body rendering (ntfy.go, webhook.go, url.go).
//   - Delivery: an asynchronous queue sending through Shoutrrr (shoutrrr.go).
//   - Templates: title and message text for each event kind (common_templates.go).
//
// Usage example:
//
//	notifier := notifications.NewNotifier(cfg, notifications.WithNoUpdate(false))
//	notifier.Notify(event)
//	notifier.Close()
//
// Delivery never blocks the update cycle. Failures are logged as warnings and dropped.
package notifications
