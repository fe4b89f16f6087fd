package helpers

import "errors"

var (
	// errUnexpectedTag indicates a configured image name carries a tag.
	errUnexpectedTag = errors.New("image name must not include a tag")
	// errUnexpectedDigest indicates a configured image name carries a digest.
	errUnexpectedDigest = errors.New("image name must not include a digest")
)
