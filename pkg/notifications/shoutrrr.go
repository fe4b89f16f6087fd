package notifications

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/sirupsen/logrus"

	shoutrrrTypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

// LocalLog is a logrus entry marking delivery logs so they are never forwarded.
var LocalLog = logrus.WithField("notify", "no")

const (
	// DefaultTimeout bounds the delivery of one event to one channel.
	DefaultTimeout = 10 * time.Second

	// queueSize is the number of events buffered before new ones are dropped.
	queueSize = 64
)

// router defines the interface for sending Shoutrrr notifications.
// It abstracts the underlying service implementation.
type router interface {
	Send(message string, params *shoutrrrTypes.Params) []error
}

// routerFactory creates a router for a single service URL.
type routerFactory func(serviceURL string) (router, error)

// channel renders events for one configured destination.
type channel interface {
	types.ConvertibleNotifier

	name() string
	render(event types.Event) (delivery, error)
}

// delivery is one rendered message for one service URL.
type delivery struct {
	url     string
	title   string
	message string
}

// shoutrrrTypeNotifier queues events and delivers them to every channel from a
// background goroutine.
type shoutrrrTypeNotifier struct {
	channels       []channel
	newRouter      routerFactory
	timeout        time.Duration
	notifyNoUpdate bool

	mu       sync.Mutex
	closed   bool
	messages chan types.Event
	done     chan struct{}
}

// newShoutrrrRouter creates a Shoutrrr sender logging at trace level.
func newShoutrrrRouter(serviceURL string) (router, error) {
	logger := log.New(logrus.StandardLogger().WriterLevel(logrus.TraceLevel), "Shoutrrr: ", 0)

	sender, err := shoutrrr.NewSender(logger, serviceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedCreateSender, err)
	}

	return sender, nil
}

func newShoutrrrNotifier(
	channels []channel,
	factory routerFactory,
	timeout time.Duration,
	notifyNoUpdate bool,
) *shoutrrrTypeNotifier {
	notifier := &shoutrrrTypeNotifier{
		channels:       channels,
		newRouter:      factory,
		timeout:        timeout,
		notifyNoUpdate: notifyNoUpdate,
		messages:       make(chan types.Event, queueSize),
		done:           make(chan struct{}),
	}

	go sendNotifications(notifier)

	return notifier
}

// GetNames returns the names of the configured channels.
func (n *shoutrrrTypeNotifier) GetNames() []string {
	names := make([]string, len(n.channels))
	for i, ch := range n.channels {
		names[i] = ch.name()
	}

	return names
}

// GetURLs returns the Shoutrrr URLs of the configured channels.
func (n *shoutrrrTypeNotifier) GetURLs() []string {
	urls := make([]string, 0, len(n.channels))

	for _, ch := range n.channels {
		if serviceURL, err := ch.GetURL(); err == nil {
			urls = append(urls, serviceURL)
		}
	}

	return urls
}

// Notify queues event for delivery.
//
// Progress events are ignored and no_update events are only delivered when enabled.
// The call never blocks: when the queue is full the event is dropped.
func (n *shoutrrrTypeNotifier) Notify(event types.Event) {
	switch event.Kind {
	case types.EventUpdateFound, types.EventImageRebuilt:
	case types.EventNoUpdate:
		if !n.notifyNoUpdate {
			return
		}
	default:
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		LocalLog.WithField("image", event.Image).Debug("Notifier closed, dropping event")

		return
	}

	select {
	case n.messages <- event:
	default:
		LocalLog.WithFields(logrus.Fields{
			"image": event.Image,
			"event": event.Kind,
		}).Warn("Notification queue full, dropping event")
	}
}

// Close prevents further events from being queued and waits until all queued events are sent.
func (n *shoutrrrTypeNotifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()

		return
	}

	n.closed = true
	close(n.messages)
	n.mu.Unlock()

	LocalLog.Debug("Waiting for the notification goroutine to finish")

	<-n.done
}

// sendNotifications delivers queued events until the queue is closed.
func sendNotifications(notifier *shoutrrrTypeNotifier) {
	defer close(notifier.done)

	for event := range notifier.messages {
		for _, ch := range notifier.channels {
			notifier.deliver(ch, event)
		}
	}
}

func (n *shoutrrrTypeNotifier) deliver(ch channel, event types.Event) {
	clog := LocalLog.WithFields(logrus.Fields{
		"service": ch.name(),
		"image":   event.Image,
		"event":   event.Kind,
	})

	msg, err := ch.render(event)
	if err != nil {
		clog.WithError(err).Warn("Failed to build notification")

		return
	}

	sender, err := n.newRouter(msg.url)
	if err != nil {
		clog.WithError(err).Warn("Failed to create notification sender")

		return
	}

	params := &shoutrrrTypes.Params{}
	params.SetTitle(msg.title)

	result := make(chan []error, 1)

	go func() {
		result <- sender.Send(msg.message, params)
	}()

	select {
	case errs := <-result:
		failed := false

		for _, err := range errs {
			if err != nil {
				failed = true

				clog.WithError(err).Warn("Failed to send notification")
			}
		}

		if !failed {
			clog.Info("Notification sent")
		}
	case <-time.After(n.timeout):
		clog.WithField("timeout", n.timeout).Warn("Timed out sending notification")
	}
}
