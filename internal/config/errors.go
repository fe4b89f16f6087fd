package config

import "errors"

var (
	// errReadFailed indicates the configuration file could not be read or parsed.
	errReadFailed = errors.New("failed to read configuration file")
	// errDecodeFailed indicates the parsed document does not fit the configuration schema.
	errDecodeFailed = errors.New("failed to decode configuration")
	// errUnsupportedFormat indicates an unknown configuration file extension.
	errUnsupportedFormat = errors.New("unsupported configuration format")
	// errNoImages indicates the configuration has no images key.
	errNoImages = errors.New("configuration must define images")
	// errMissingImage indicates an entry without an image reference.
	errMissingImage = errors.New("image is required")
	// errMissingRegex indicates an entry without a version pattern.
	errMissingRegex = errors.New("regex is required")
	// errInvalidImage indicates an entry whose image is not a valid repository reference.
	errInvalidImage = errors.New("invalid image reference")
	// errInvalidKeepVersions indicates keep_versions below one.
	errInvalidKeepVersions = errors.New("keep_versions must be at least 1")

	// ErrInvalidRegex indicates a pattern that does not compile.
	ErrInvalidRegex = errors.New("invalid regex pattern")
	// ErrUnsafeRegex indicates a pattern whose test match did not finish in time.
	ErrUnsafeRegex = errors.New("regex pattern is too expensive")
)
