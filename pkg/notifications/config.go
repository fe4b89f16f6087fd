package notifications

// Config holds every configured notification channel.
type Config struct {
	Ntfy    *NtfyConfig    `json:"ntfy,omitempty"    mapstructure:"ntfy"`
	Webhook *WebhookConfig `json:"webhook,omitempty" mapstructure:"webhook"`
	// URLs are additional Shoutrrr service URLs.
	URLs []string `json:"urls,omitempty" mapstructure:"urls"`
}

// NtfyConfig configures delivery to an ntfy topic.
type NtfyConfig struct {
	URL      string            `json:"url"                mapstructure:"url"`
	Priority string            `json:"priority,omitempty" mapstructure:"priority"`
	Headers  map[string]string `json:"headers,omitempty"  mapstructure:"headers"`
}

// WebhookConfig configures delivery to an outgoing webhook.
type WebhookConfig struct {
	URL          string            `json:"url"                     mapstructure:"url"`
	Method       string            `json:"method,omitempty"        mapstructure:"method"`
	Headers      map[string]string `json:"headers,omitempty"       mapstructure:"headers"`
	BodyTemplate string            `json:"body_template,omitempty" mapstructure:"body_template"`
}

// Empty reports whether no channel is configured.
func (c Config) Empty() bool {
	return (c.Ntfy == nil || c.Ntfy.URL == "") &&
		(c.Webhook == nil || c.Webhook.URL == "") &&
		len(c.URLs) == 0
}
