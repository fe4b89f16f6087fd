package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/nicholas-fedor/tagwatch/pkg/notifications"
	"github.com/nicholas-fedor/tagwatch/pkg/registry/helpers"
	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

// DefaultPath is the configuration file read when no path is given.
const DefaultPath = "config.json"

// Config is the validated content of a configuration file.
type Config struct {
	// Path is the file the configuration was read from.
	Path string
	// Images are the tracked images in file order, with defaults applied.
	Images []types.TagConfig
	// Notifications configures the outbound notification channels.
	Notifications notifications.Config
	// Patterns holds the compiled regex of every image, keyed by source.
	Patterns types.Patterns
}

// document mirrors the file layout. Pointer fields distinguish absent keys
// from zero values.
type document struct {
	Images        *[]imageEntry        `mapstructure:"images"`
	Notifications notifications.Config `mapstructure:"notifications"`
}

type imageEntry struct {
	Image            string `mapstructure:"image"`
	Regex            string `mapstructure:"regex"`
	BaseTag          string `mapstructure:"base_tag"`
	AutoUpdate       bool   `mapstructure:"auto_update"`
	Registry         string `mapstructure:"registry"`
	CleanupOldImages bool   `mapstructure:"cleanup_old_images"`
	KeepVersions     *int   `mapstructure:"keep_versions"`
}

// Option adjusts how Load validates a file.
type Option func(*loader)

type loader struct {
	regexTimeout time.Duration
}

// WithRegexTimeout overrides the bound on the regex safety check.
func WithRegexTimeout(timeout time.Duration) Option {
	return func(l *loader) {
		l.regexTimeout = timeout
	}
}

// Load reads and validates the configuration file at path.
//
// Parameters:
//   - fs: Filesystem holding the file.
//   - path: File path; the extension selects json or yaml.
//   - opts: Validation options.
//
// Returns:
//   - *Config: Validated configuration.
//   - error: Non-nil if the file is missing, malformed or fails validation.
func Load(fs afero.Fs, path string, opts ...Option) (*Config, error) {
	l := loader{regexTimeout: DefaultRegexTimeout}
	for _, opt := range opts {
		opt(&l)
	}

	format, err := formatOf(path)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	v.SetConfigType(format)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w %s: %w", errReadFailed, path, err)
	}

	var doc document
	if err := v.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", errDecodeFailed, err)
	}

	if doc.Images == nil {
		return nil, errNoImages
	}

	cfg := &Config{
		Path:          path,
		Images:        make([]types.TagConfig, 0, len(*doc.Images)),
		Notifications: doc.Notifications,
		Patterns:      types.Patterns{},
	}

	for index, entry := range *doc.Images {
		tagConfig, err := entry.validate()
		if err != nil {
			return nil, fmt.Errorf("images[%d]: %w", index, err)
		}

		if _, ok := cfg.Patterns[tagConfig.Regex]; !ok {
			compiled, err := CompilePattern(tagConfig.Regex, l.regexTimeout)
			if err != nil {
				return nil, fmt.Errorf("images[%d]: %w", index, err)
			}

			cfg.Patterns[tagConfig.Regex] = compiled
		}

		cfg.Images = append(cfg.Images, tagConfig)
	}

	logrus.WithFields(logrus.Fields{
		"path":   path,
		"images": len(cfg.Images),
	}).Debug("Loaded configuration")

	return cfg, nil
}

func (e imageEntry) validate() (types.TagConfig, error) {
	image := strings.TrimSpace(e.Image)
	if image == "" {
		return types.TagConfig{}, errMissingImage
	}

	if e.Regex == "" {
		return types.TagConfig{}, fmt.Errorf("%w for %s", errMissingRegex, image)
	}

	if err := helpers.ValidateImageName(image); err != nil {
		return types.TagConfig{}, fmt.Errorf("%w %q: %w", errInvalidImage, image, err)
	}

	keep := types.DefaultKeepVersions
	if e.KeepVersions != nil {
		keep = *e.KeepVersions
	}

	if keep < 1 {
		return types.TagConfig{}, fmt.Errorf("%w (%s: %d)", errInvalidKeepVersions, image, keep)
	}

	baseTag := e.BaseTag
	if baseTag == "" {
		baseTag = types.DefaultBaseTag
	}

	return types.TagConfig{
		Image:            image,
		Regex:            e.Regex,
		BaseTag:          baseTag,
		AutoUpdate:       e.AutoUpdate,
		Registry:         strings.TrimSpace(e.Registry),
		CleanupOldImages: e.CleanupOldImages,
		KeepVersions:     keep,
	}, nil
}

func formatOf(path string) (string, error) {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "json":
		return "json", nil
	case "yaml", "yml":
		return "yaml", nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, path)
	}
}
