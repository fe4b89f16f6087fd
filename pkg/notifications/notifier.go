package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

// Option adjusts how NewNotifier builds a notifier.
type Option func(*options)

type options struct {
	notifyNoUpdate bool
	timeout        time.Duration
	factory        routerFactory
}

// WithNoUpdate enables delivery of no_update events.
func WithNoUpdate(enabled bool) Option {
	return func(o *options) { o.notifyNoUpdate = enabled }
}

// WithTimeout bounds the delivery of one event to one channel.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

func withRouterFactory(factory routerFactory) Option {
	return func(o *options) { o.factory = factory }
}

// NewNotifier creates a notifier for every channel in cfg.
//
// A configuration without channels yields a notifier that discards events.
// Every service URL is validated up front.
//
// Parameters:
//   - cfg: Notification channels.
//   - opts: Delivery options.
//
// Returns:
//   - types.Notifier: Notifier delivering asynchronously.
//   - error: Non-nil if a channel is misconfigured.
func NewNotifier(cfg Config, opts ...Option) (types.Notifier, error) {
	settings := options{timeout: DefaultTimeout, factory: newShoutrrrRouter}
	for _, opt := range opts {
		opt(&settings)
	}

	channels, err := buildChannels(cfg)
	if err != nil {
		return nil, err
	}

	for _, ch := range channels {
		serviceURL, err := ch.GetURL()
		if err != nil {
			return nil, err
		}

		if _, err := settings.factory(serviceURL); err != nil {
			return nil, fmt.Errorf("%s: %w", ch.name(), err)
		}

		logrus.WithField("service", ch.name()).Debug("Configured notification channel")
	}

	return newShoutrrrNotifier(channels, settings.factory, settings.timeout, settings.notifyNoUpdate), nil
}

func buildChannels(cfg Config) ([]channel, error) {
	var channels []channel

	if cfg.Ntfy != nil && strings.TrimSpace(cfg.Ntfy.URL) != "" {
		channels = append(channels, newNtfyNotifier(*cfg.Ntfy))
	}

	if cfg.Webhook != nil && strings.TrimSpace(cfg.Webhook.URL) != "" {
		webhook, err := newWebhookNotifier(*cfg.Webhook)
		if err != nil {
			return nil, err
		}

		channels = append(channels, webhook)
	}

	for _, serviceURL := range cfg.URLs {
		if serviceURL = strings.TrimSpace(serviceURL); serviceURL != "" {
			channels = append(channels, &urlTypeNotifier{serviceURL: serviceURL})
		}
	}

	return channels, nil
}
