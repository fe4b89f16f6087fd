package notifications

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

var _ = ginkgo.Describe("channel URLs", func() {
	ginkgo.Describe("ntfy", func() {
		ginkgo.It("should post plain text with priority and tags", func() {
			serviceURL, err := newNtfyNotifier(NtfyConfig{
				URL:      "https://ntfy.sh/updates",
				Priority: "URGENT",
				Headers:  map[string]string{"Authorization": "Bearer tk"},
			}).GetURL()
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			gomega.Expect(serviceURL).To(gomega.HavePrefix("generic://ntfy.sh/updates?"))

			query := queryOf(serviceURL)
			gomega.Expect(query.Get("@Priority")).To(gomega.Equal("urgent"))
			gomega.Expect(query.Get("@Tags")).To(gomega.Equal("package"))
			gomega.Expect(query.Get("@Authorization")).To(gomega.Equal("Bearer tk"))
			gomega.Expect(query.Get("contenttype")).To(gomega.Equal("text/plain"))
			gomega.Expect(query.Has("disabletls")).To(gomega.BeFalse())
		})

		ginkgo.It("should fall back to the default priority", func() {
			for _, priority := range []string{"", "loud"} {
				serviceURL, err := newNtfyNotifier(NtfyConfig{URL: "http://ntfy.local/t", Priority: priority}).GetURL()
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
				gomega.Expect(queryOf(serviceURL).Get("@Priority")).To(gomega.Equal("default"))
				gomega.Expect(queryOf(serviceURL).Get("disabletls")).To(gomega.Equal("yes"))
			}
		})

		ginkgo.It("should set the title per event", func() {
			msg, err := newNtfyNotifier(NtfyConfig{URL: "https://ntfy.sh/updates"}).render(rebuildEvent)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(queryOf(msg.url).Get("@Title")).To(gomega.Equal("tagwatch: linuxserver/sonarr rebuilt"))
		})
	})

	ginkgo.Describe("webhook", func() {
		ginkgo.It("should carry the method and headers", func() {
			webhook, err := newWebhookNotifier(WebhookConfig{
				URL:     "https://hooks.example.com/services/x?key=1",
				Method:  "put",
				Headers: map[string]string{"X-Token": "s3cret", "Content-Type": "text/plain"},
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			serviceURL, err := webhook.GetURL()
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(serviceURL).To(gomega.HavePrefix("generic://hooks.example.com/services/x?"))

			query := queryOf(serviceURL)
			gomega.Expect(query.Get("method")).To(gomega.Equal("PUT"))
			gomega.Expect(query.Get("@X-Token")).To(gomega.Equal("s3cret"))
			gomega.Expect(query.Get("contenttype")).To(gomega.Equal("text/plain"))
			gomega.Expect(query.Get("key")).To(gomega.Equal("1"))
			gomega.Expect(query.Has("@Content-Type")).To(gomega.BeFalse())
		})

		ginkgo.It("should render the body template", func() {
			webhook, err := newWebhookNotifier(WebhookConfig{
				URL:          "https://hooks.example.com/x",
				BodyTemplate: `{"text":"$image $old_version -> $new_version ($event, auto=$auto_update) $missing"}`,
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			msg, err := webhook.render(updateEvent)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(msg.message).To(gomega.Equal(
				`{"text":"linuxserver/sonarr 4.0.1 -> 4.0.2 (update_found, auto=true) $missing"}`,
			))
		})

		ginkgo.It("should send the raw payload without a template", func() {
			webhook, err := newWebhookNotifier(WebhookConfig{URL: "https://hooks.example.com/x"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			msg, err := webhook.render(types.Event{Kind: types.EventImageRebuilt, Image: "nginx", NewVersion: "1.27"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(msg.message).To(gomega.MatchJSON(`{
				"event": "image_rebuilt",
				"image": "nginx",
				"old_version": "",
				"new_version": "1.27",
				"digest": "",
				"auto_update": false
			}`))
		})
	})

	ginkgo.It("should extract schemes", func() {
		gomega.Expect(GetScheme("ntfy://ntfy.sh/x")).To(gomega.Equal("ntfy"))
		gomega.Expect(GetScheme("no-scheme")).To(gomega.Equal("invalid"))
		gomega.Expect(GetScheme(":x")).To(gomega.Equal("invalid"))
	})
})
