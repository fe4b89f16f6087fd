// Package helpers provides image reference parsing and registry constants shared by the
// registry client, its auth strategies and the tag matcher.
package helpers

import (
	"fmt"
	"strings"

	"github.com/distribution/reference"
)

// Registry and namespace defaults applied when an image reference omits them.
const (
	// DefaultRegistry is the host used for references without an explicit registry.
	DefaultRegistry = "registry-1.docker.io"
	// DefaultNamespace is the implicit namespace for single-segment repositories.
	DefaultNamespace = "library"
	// DefaultRegistryDomain is the canonical domain reported by distribution/reference.
	DefaultRegistryDomain = "docker.io"
	// LegacyDefaultRegistryDomain is the historical index host of the default registry.
	LegacyDefaultRegistryDomain = "index.docker.io"
	// DefaultBaseTag is the moving tag tracked when none is configured.
	DefaultBaseTag = "latest"
)

// ImageReference identifies a repository on a registry.
type ImageReference struct {
	Registry   string
	Namespace  string
	Repository string
}

// Path returns the repository path "namespace/repository" used in registry URLs.
func (r ImageReference) Path() string {
	return r.Namespace + "/" + r.Repository
}

// String renders the reference as "registry/namespace/repository".
func (r ImageReference) String() string {
	return r.Registry + "/" + r.Path()
}

// IsDefaultRegistry reports whether the reference points at the default public registry.
func (r ImageReference) IsDefaultRegistry() bool {
	return IsDefaultRegistry(r.Registry)
}

// WithRegistry returns a copy of the reference with its registry replaced. An empty
// override leaves the reference unchanged.
func (r ImageReference) WithRegistry(registry string) ImageReference {
	if registry == "" {
		return r
	}

	r.Registry = canonicalRegistry(registry)

	return r
}

// ParseImageReference splits an image string into registry, namespace and repository.
//
// The first path segment is treated as a registry when it contains a dot or a colon
// (port), or is literally "localhost". Otherwise the default registry is assumed. The
// remaining path is split once on "/" into namespace and repository; a single-segment
// path gets the default namespace. Aliases of the default registry such as "docker.io"
// resolve to DefaultRegistry. Tags and digests are not expected in the input.
func ParseImageReference(image string) ImageReference {
	image = strings.TrimPrefix(strings.TrimPrefix(image, "https://"), "http://")

	registry := DefaultRegistry
	remaining := image

	first, rest, found := strings.Cut(image, "/")
	if found && IsRegistryHost(first) {
		registry = canonicalRegistry(first)
		remaining = rest
	}

	namespace, repository, found := strings.Cut(remaining, "/")
	if !found {
		namespace = DefaultNamespace
		repository = remaining
	}

	return ImageReference{
		Registry:   registry,
		Namespace:  namespace,
		Repository: repository,
	}
}

// IsRegistryHost reports whether a path segment names a registry host rather than a
// namespace.
func IsRegistryHost(segment string) bool {
	return strings.ContainsAny(segment, ".:") || segment == "localhost"
}

// IsDefaultRegistry reports whether host is one of the aliases of the default public
// registry.
func IsDefaultRegistry(host string) bool {
	switch host {
	case DefaultRegistry, DefaultRegistryDomain, LegacyDefaultRegistryDomain:
		return true
	default:
		return false
	}
}

// canonicalRegistry maps the aliases of the default registry to DefaultRegistry.
func canonicalRegistry(host string) string {
	if IsDefaultRegistry(host) {
		return DefaultRegistry
	}

	return host
}

// ValidateImageName checks that image is a well-formed repository name without tag or
// digest.
func ValidateImageName(image string) error {
	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return fmt.Errorf("failed to parse image reference: %w", err)
	}

	if _, tagged := named.(reference.Tagged); tagged {
		return fmt.Errorf("%w: %s", errUnexpectedTag, image)
	}

	if _, digested := named.(reference.Digested); digested {
		return fmt.Errorf("%w: %s", errUnexpectedDigest, image)
	}

	return nil
}

// GetRegistryAddress returns the registry host an image is pulled from, using the
// legacy index host for the default registry as credential stores key it that way.
func GetRegistryAddress(imageRef string) (string, error) {
	normalizedRef, err := reference.ParseNormalizedNamed(imageRef)
	if err != nil {
		return "", fmt.Errorf("failed to parse image reference: %w", err)
	}

	address := reference.Domain(normalizedRef)
	if address == DefaultRegistryDomain {
		address = LegacyDefaultRegistryDomain
	}

	return address, nil
}

// CredentialHost maps a registry host onto the key docker credential stores use for it.
func CredentialHost(registry string) string {
	if IsDefaultRegistry(registry) {
		return LegacyDefaultRegistryDomain
	}

	return registry
}

// ShortDigest shortens a digest for log output.
func ShortDigest(digest string) string {
	const shortLen = 19 // "sha256:" plus 12 hex characters

	if len(digest) <= shortLen {
		return digest
	}

	return digest[:shortLen]
}
