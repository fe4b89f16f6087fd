package types

// Notifier defines the common interface for notification services.
type Notifier interface {
	Notify(event Event) // Queue an event for delivery; never blocks on delivery.
	GetNames() []string // Service names.
	GetURLs() []string  // Service URLs.
	Close()             // Flush queued events and stop.
}
