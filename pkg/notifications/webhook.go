package notifications

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/nicholas-fedor/tagwatch/pkg/notifications/templates"
	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

const webhookType = "webhook"

// Payload is the JSON body sent to webhooks without a body template.
type Payload struct {
	Event      types.EventKind `json:"event"`
	Image      string          `json:"image"`
	OldVersion string          `json:"old_version"`
	NewVersion string          `json:"new_version"`
	Digest     string          `json:"digest"`
	AutoUpdate bool            `json:"auto_update"`
}

// NewPayload builds the webhook payload of event.
func NewPayload(event types.Event) Payload {
	return Payload{
		Event:      event.Kind,
		Image:      event.Image,
		OldVersion: event.OldVersion,
		NewVersion: event.NewVersion,
		Digest:     event.Digest,
		AutoUpdate: event.AutoUpdate,
	}
}

// Vars returns the placeholder values available to body templates.
func (p Payload) Vars() map[string]string {
	return map[string]string{
		"event":       string(p.Event),
		"image":       p.Image,
		"old_version": p.OldVersion,
		"new_version": p.NewVersion,
		"digest":      p.Digest,
		"auto_update": strconv.FormatBool(p.AutoUpdate),
	}
}

// webhookTypeNotifier sends event payloads to an outgoing webhook.
type webhookTypeNotifier struct {
	endpoint     string
	method       string
	headers      map[string]string
	bodyTemplate string
}

func newWebhookNotifier(cfg WebhookConfig) (*webhookTypeNotifier, error) {
	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method == "" {
		method = http.MethodPost
	}

	if method != http.MethodPost && method != http.MethodPut {
		return nil, fmt.Errorf("%w: %q", errInvalidMethod, cfg.Method)
	}

	return &webhookTypeNotifier{
		endpoint:     strings.TrimSpace(cfg.URL),
		method:       method,
		headers:      cfg.Headers,
		bodyTemplate: cfg.BodyTemplate,
	}, nil
}

func (n *webhookTypeNotifier) name() string {
	return webhookType
}

// GetURL generates the Shoutrrr generic service URL for the webhook.
//
// Returns:
//   - string: Shoutrrr generic service URL.
//   - error: Non-nil if the webhook URL is invalid.
func (n *webhookTypeNotifier) GetURL() (string, error) {
	serviceURL, err := genericURL(n.endpoint, genericOptions{
		method:      n.method,
		contentType: "application/json",
		headers:     n.headers,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate webhook URL: %w", err)
	}

	return serviceURL, nil
}

func (n *webhookTypeNotifier) render(event types.Event) (delivery, error) {
	serviceURL, err := n.GetURL()
	if err != nil {
		return delivery{}, err
	}

	body, err := n.body(event)
	if err != nil {
		return delivery{}, err
	}

	return delivery{url: serviceURL, title: Title(event), message: body}, nil
}

// body renders the request body: the body template when configured, the JSON
// payload otherwise.
func (n *webhookTypeNotifier) body(event types.Event) (string, error) {
	payload := NewPayload(event)

	if n.bodyTemplate != "" {
		return templates.Expand(n.bodyTemplate, payload.Vars()), nil
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errFailedMarshalPayload, err)
	}

	return string(encoded), nil
}
