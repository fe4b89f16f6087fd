package types

import (
	"regexp"
	"time"

	"github.com/spf13/cobra"
)

const (
	// DefaultBaseTag is tracked when a TagConfig names none.
	DefaultBaseTag = "latest"
	// DefaultKeepVersions is the number of local image tags kept by cleanup.
	DefaultKeepVersions = 3
)

// TagConfig describes one tracked image.
type TagConfig struct {
	// Image is the repository, optionally prefixed with a registry host.
	Image string `json:"image" mapstructure:"image"`
	// Regex selects version tags; it must match the whole tag to be useful.
	Regex string `json:"regex" mapstructure:"regex"`
	// BaseTag is the moving tag to resolve.
	BaseTag string `json:"base_tag" mapstructure:"base_tag"`
	// AutoUpdate pulls the new version and replaces containers running the image.
	AutoUpdate bool `json:"auto_update" mapstructure:"auto_update"`
	// Registry overrides the registry host parsed from Image.
	Registry string `json:"registry,omitempty" mapstructure:"registry"`
	// CleanupOldImages prunes local tags of the image after a successful update.
	CleanupOldImages bool `json:"cleanup_old_images" mapstructure:"cleanup_old_images"`
	// KeepVersions is the number of newest local tags cleanup keeps.
	KeepVersions int `json:"keep_versions" mapstructure:"keep_versions"`
}

// Patterns maps a regex source to its compiled form. It is filled once when the
// configuration is loaded and only read afterwards.
type Patterns map[string]*regexp.Regexp

// Lookup returns the compiled pattern for source.
func (p Patterns) Lookup(source string) (*regexp.Regexp, bool) {
	pattern, ok := p[source]

	return pattern, ok && pattern != nil
}

// RunConfig encapsulates the settings resolved from the command line for the main loop.
type RunConfig struct {
	// Command is the executed cobra command, providing access to parsed flags.
	Command *cobra.Command
	// RunOnce performs a single cycle and exits, overriding Daemon.
	RunOnce bool
	// Daemon repeats the cycle every Interval.
	Daemon bool
	// Interval between cycles in daemon mode.
	Interval time.Duration
	// EnableUpdateAPI exposes the HTTP update trigger.
	EnableUpdateAPI bool
	// EnableMetricsAPI exposes Prometheus metrics over HTTP.
	EnableMetricsAPI bool
	// APIToken authenticates HTTP API requests.
	APIToken string
	// APIPort is the port of the HTTP API server.
	APIPort string
	// NoStartupMessage suppresses the startup summary.
	NoStartupMessage bool
}
