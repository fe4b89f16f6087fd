package notifications

import (
	"strings"

	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

// urlTypeNotifier forwards the ntfy-style title and message to an arbitrary
// Shoutrrr service URL.
type urlTypeNotifier struct {
	serviceURL string
}

func (n *urlTypeNotifier) name() string {
	return GetScheme(n.serviceURL)
}

// GetURL returns the configured service URL.
func (n *urlTypeNotifier) GetURL() (string, error) {
	return n.serviceURL, nil
}

func (n *urlTypeNotifier) render(event types.Event) (delivery, error) {
	return delivery{url: n.serviceURL, title: Title(event), message: Message(event)}, nil
}

// GetScheme extracts the scheme part of a Shoutrrr URL.
// It returns "invalid" if no scheme is found.
func GetScheme(url string) string {
	schemeEnd := strings.Index(url, ":")
	if schemeEnd <= 0 {
		return "invalid"
	}

	return url[:schemeEnd]
}
