package notifications

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

const (
	ntfyType = "ntfy"

	// DefaultNtfyPriority is used when no or an unknown priority is configured.
	DefaultNtfyPriority = "default"

	ntfyTags = "package"
)

var ntfyPriorities = map[string]bool{
	"min":     true,
	"low":     true,
	"default": true,
	"high":    true,
	"urgent":  true,
}

// ntfyTypeNotifier posts plain text messages to an ntfy topic.
type ntfyTypeNotifier struct {
	topicURL string
	priority string
	headers  map[string]string
}

// newNtfyNotifier creates an ntfy channel from cfg.
//
// Parameters:
//   - cfg: ntfy configuration.
//
// Returns:
//   - *ntfyTypeNotifier: New ntfy channel.
func newNtfyNotifier(cfg NtfyConfig) *ntfyTypeNotifier {
	priority := strings.ToLower(strings.TrimSpace(cfg.Priority))
	if !ntfyPriorities[priority] {
		if priority != "" {
			logrus.WithField("priority", cfg.Priority).
				Warn("Unknown ntfy priority, using default")
		}

		priority = DefaultNtfyPriority
	}

	return &ntfyTypeNotifier{
		topicURL: strings.TrimSpace(cfg.URL),
		priority: priority,
		headers:  cfg.Headers,
	}
}

func (n *ntfyTypeNotifier) name() string {
	return ntfyType
}

// GetURL generates the Shoutrrr URL posting to the topic with the configured headers.
//
// Returns:
//   - string: Shoutrrr generic service URL.
//   - error: Non-nil if the topic URL is invalid.
func (n *ntfyTypeNotifier) GetURL() (string, error) {
	headers := map[string]string{
		"Priority": n.priority,
		"Tags":     ntfyTags,
	}
	for key, value := range n.headers {
		headers[key] = value
	}

	serviceURL, err := genericURL(n.topicURL, genericOptions{
		contentType: "text/plain",
		headers:     headers,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate ntfy URL: %w", err)
	}

	return serviceURL, nil
}

func (n *ntfyTypeNotifier) render(event types.Event) (delivery, error) {
	serviceURL, err := n.GetURL()
	if err != nil {
		return delivery{}, err
	}

	serviceURL, err = withHeader(serviceURL, "Title", Title(event))
	if err != nil {
		return delivery{}, err
	}

	return delivery{
		url:     serviceURL,
		title:   Title(event),
		message: Message(event),
	}, nil
}

// genericOptions configures a Shoutrrr generic webhook URL.
type genericOptions struct {
	method      string
	contentType string
	headers     map[string]string
}

// genericURL converts an http(s) endpoint into a Shoutrrr generic service URL.
//
// Headers are carried as "@Name" query parameters and a Content-Type header is
// moved to the contenttype option.
func genericURL(endpoint string, opts genericOptions) (string, error) {
	target, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidEndpoint, err)
	}

	if target.Scheme != "http" && target.Scheme != "https" {
		return "", fmt.Errorf("%w: %q must start with http:// or https://", errInvalidEndpoint, endpoint)
	}

	if target.Host == "" {
		return "", fmt.Errorf("%w: %q has no host", errInvalidEndpoint, endpoint)
	}

	query := target.Query()

	if target.Scheme == "http" {
		query.Set("disabletls", "yes")
	}

	if opts.method != "" {
		query.Set("method", opts.method)
	}

	contentType := opts.contentType

	for key, value := range opts.headers {
		if strings.EqualFold(key, "Content-Type") {
			contentType = value

			continue
		}

		query.Set("@"+key, value)
	}

	if contentType != "" {
		query.Set("contenttype", contentType)
	}

	target.Scheme = "generic"
	target.RawQuery = query.Encode()

	return target.String(), nil
}

// withHeader adds a per-message header to a generic service URL.
func withHeader(serviceURL, key, value string) (string, error) {
	parsed, err := url.Parse(serviceURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidEndpoint, err)
	}

	query := parsed.Query()
	query.Set("@"+key, value)
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}
