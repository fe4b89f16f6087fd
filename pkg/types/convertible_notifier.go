package types

// ConvertibleNotifier is a notification channel that is delivered through a shoutrrr service URL.
type ConvertibleNotifier interface {
	// GetURL renders the channel settings as a shoutrrr URL.
	GetURL() (string, error)
}
