package notifications

import (
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
	"github.com/sirupsen/logrus"

	shoutrrrTypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

type sentMessage struct {
	url     string
	message string
	title   string
}

// mockRouter records every message sent through routers it creates.
type mockRouter struct {
	mu      sync.Mutex
	sent    []sentMessage
	created []string
	err     error
	delay   time.Duration
}

func (m *mockRouter) factory(serviceURL string) (router, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.created = append(m.created, serviceURL)

	return &boundRouter{mock: m, url: serviceURL}, nil
}

func (m *mockRouter) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]sentMessage(nil), m.sent...)
}

type boundRouter struct {
	mock *mockRouter
	url  string
}

func (b *boundRouter) Send(message string, params *shoutrrrTypes.Params) []error {
	time.Sleep(b.mock.delay)

	title, _ := params.Title()

	b.mock.mu.Lock()
	defer b.mock.mu.Unlock()

	b.mock.sent = append(b.mock.sent, sentMessage{url: b.url, message: message, title: title})

	return []error{b.mock.err}
}

func queryOf(serviceURL string) url.Values {
	parsed, err := url.Parse(serviceURL)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	return parsed.Query()
}

var updateEvent = types.Event{
	Kind:       types.EventUpdateFound,
	Image:      "linuxserver/sonarr",
	BaseTag:    "latest",
	OldVersion: "4.0.1",
	NewVersion: "4.0.2",
	Digest:     "sha256:abc",
	AutoUpdate: true,
}

var rebuildEvent = types.Event{
	Kind:       types.EventImageRebuilt,
	Image:      "linuxserver/sonarr",
	OldVersion: "4.0.2",
	NewVersion: "4.0.2",
	Digest:     "sha256:def",
}

var _ = ginkgo.Describe("the shoutrrr notifier", func() {
	var (
		mock   *mockRouter
		logBuf *gbytes.Buffer
	)

	ginkgo.BeforeEach(func() {
		mock = &mockRouter{}
		logBuf = gbytes.NewBuffer()
		logrus.SetOutput(logBuf)
	})

	ginkgo.AfterEach(func() {
		logrus.SetOutput(ginkgo.GinkgoWriter)
	})

	newNotifier := func(cfg Config, opts ...Option) types.Notifier {
		notifier, err := NewNotifier(cfg, append(opts, withRouterFactory(mock.factory))...)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		return notifier
	}

	ginkgo.It("should deliver to every configured channel", func() {
		notifier := newNotifier(Config{
			Ntfy:    &NtfyConfig{URL: "https://ntfy.sh/updates", Priority: "high"},
			Webhook: &WebhookConfig{URL: "http://hooks.local/notify"},
			URLs:    []string{"logger://"},
		})

		gomega.Expect(notifier.GetNames()).To(gomega.Equal([]string{"ntfy", "webhook", "logger"}))

		notifier.Notify(updateEvent)
		notifier.Close()

		sent := mock.messages()
		gomega.Expect(sent).To(gomega.HaveLen(3))

		gomega.Expect(sent[0].message).To(gomega.Equal("4.0.1 → 4.0.2 (auto-update applied)"))
		gomega.Expect(queryOf(sent[0].url).Get("@Title")).To(gomega.Equal("tagwatch: linuxserver/sonarr update available"))
		gomega.Expect(queryOf(sent[0].url).Get("@Priority")).To(gomega.Equal("high"))

		gomega.Expect(sent[1].message).To(gomega.MatchJSON(`{
			"event": "update_found",
			"image": "linuxserver/sonarr",
			"old_version": "4.0.1",
			"new_version": "4.0.2",
			"digest": "sha256:abc",
			"auto_update": true
		}`))

		gomega.Expect(sent[2].url).To(gomega.Equal("logger://"))
		gomega.Expect(sent[2].title).To(gomega.Equal("tagwatch: linuxserver/sonarr update available"))
		gomega.Expect(sent[2].message).To(gomega.Equal("4.0.1 → 4.0.2 (auto-update applied)"))
	})

	ginkgo.It("should describe rebuilds", func() {
		notifier := newNotifier(Config{URLs: []string{"logger://"}})

		notifier.Notify(rebuildEvent)
		notifier.Close()

		sent := mock.messages()
		gomega.Expect(sent).To(gomega.HaveLen(1))
		gomega.Expect(sent[0].title).To(gomega.Equal("tagwatch: linuxserver/sonarr rebuilt"))
		gomega.Expect(sent[0].message).To(gomega.Equal("4.0.2 was rebuilt under the same tag (new digest)."))
	})

	ginkgo.It("should only deliver no_update events when enabled", func() {
		noUpdate := types.Event{Kind: types.EventNoUpdate, Image: "nginx", BaseTag: "latest"}

		quiet := newNotifier(Config{URLs: []string{"logger://"}})
		quiet.Notify(noUpdate)
		quiet.Notify(types.Event{Kind: types.EventCheckingImage, Image: "nginx", Progress: 1, Total: 1})
		quiet.Close()
		gomega.Expect(mock.messages()).To(gomega.BeEmpty())

		chatty := newNotifier(Config{URLs: []string{"logger://"}}, WithNoUpdate(true))
		chatty.Notify(noUpdate)
		chatty.Close()

		sent := mock.messages()
		gomega.Expect(sent).To(gomega.HaveLen(1))
		gomega.Expect(sent[0].title).To(gomega.Equal("tagwatch: nginx up to date"))
		gomega.Expect(sent[0].message).To(gomega.Equal("latest is unchanged."))
	})

	ginkgo.It("should log failures as warnings", func() {
		mock.err = errors.New("connection refused")
		notifier := newNotifier(Config{URLs: []string{"logger://"}})

		notifier.Notify(updateEvent)
		notifier.Close()

		gomega.Expect(logBuf).To(gbytes.Say(`level=warning msg="Failed to send notification"`))
	})

	ginkgo.It("should give up on slow services", func() {
		mock.delay = 200 * time.Millisecond
		notifier := newNotifier(Config{URLs: []string{"logger://"}}, WithTimeout(10*time.Millisecond))

		notifier.Notify(updateEvent)
		notifier.Close()

		gomega.Expect(logBuf).To(gbytes.Say("Timed out sending notification"))
	})

	ginkgo.It("should not block or panic after close", func() {
		notifier := newNotifier(Config{URLs: []string{"logger://"}})
		notifier.Close()

		gomega.Expect(func() {
			notifier.Notify(updateEvent)
			notifier.Close()
		}).NotTo(gomega.Panic())
		gomega.Expect(mock.messages()).To(gomega.BeEmpty())
	})

	ginkgo.It("should discard events without channels", func() {
		notifier := newNotifier(Config{})
		gomega.Expect(notifier.GetNames()).To(gomega.BeEmpty())

		notifier.Notify(updateEvent)
		notifier.Close()
		gomega.Expect(mock.messages()).To(gomega.BeEmpty())
	})

	ginkgo.It("should reject invalid configuration", func() {
		_, err := NewNotifier(Config{Webhook: &WebhookConfig{URL: "http://x", Method: "DELETE"}})
		gomega.Expect(err).To(gomega.MatchError(errInvalidMethod))

		_, err = NewNotifier(Config{Ntfy: &NtfyConfig{URL: "ftp://ntfy.sh/topic"}})
		gomega.Expect(err).To(gomega.MatchError(errInvalidEndpoint))
	})
})
