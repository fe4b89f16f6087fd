package container

import (
	"strings"

	"github.com/nicholas-fedor/tagwatch/pkg/registry/helpers"
)

const libraryPrefix = helpers.DefaultNamespace + "/"

// NormalizeImageRef reduces an image reference to its repository path.
//
// Digest qualifiers and tags are stripped (a colon only counts as a tag separator
// after the last "/", so registry ports survive), leading registry hosts are dropped
// and single-segment names receive the implicit "library/" namespace:
//
//	NormalizeImageRef("nginx")                               == "library/nginx"
//	NormalizeImageRef("lscr.io/linuxserver/sonarr:latest")   == "linuxserver/sonarr"
//	NormalizeImageRef("localhost:5000/app:1.0@sha256:...")   == "library/app"
func NormalizeImageRef(ref string) string {
	path := stripQualifiers(ref)

	for host := "x"; host != ""; {
		host, path = splitRegistry(path)
	}

	if !strings.Contains(path, "/") {
		return libraryPrefix + path
	}

	return path
}

// ImageMatches reports whether a container started from containerImage runs the
// configured image.
//
// Repository paths are compared after normalization, with or without the "library/"
// namespace. A configured image naming a registry only matches containers pulled from
// that registry; one without a registry matches the path on any registry.
func ImageMatches(configImage, containerImage string) bool {
	configRegistry, _ := splitRegistry(stripQualifiers(configImage))
	containerRegistry, _ := splitRegistry(stripQualifiers(containerImage))

	if canonicalRegistry(configRegistry) != "" &&
		canonicalRegistry(configRegistry) != canonicalRegistry(containerRegistry) {
		return false
	}

	normalizedConfig := NormalizeImageRef(configImage)
	normalizedContainer := NormalizeImageRef(containerImage)

	return normalizedConfig == normalizedContainer ||
		strings.TrimPrefix(normalizedConfig, libraryPrefix) ==
			strings.TrimPrefix(normalizedContainer, libraryPrefix)
}

// stripQualifiers removes "@digest" and a trailing ":tag".
func stripQualifiers(ref string) string {
	if at := strings.Index(ref, "@"); at != -1 {
		ref = ref[:at]
	}

	if lastColon := strings.LastIndex(ref, ":"); lastColon > strings.LastIndex(ref, "/") {
		ref = ref[:lastColon]
	}

	return ref
}

// splitRegistry separates a leading registry host from the repository path.
func splitRegistry(ref string) (string, string) {
	first, rest, found := strings.Cut(ref, "/")
	if found && helpers.IsRegistryHost(first) {
		return first, rest
	}

	return "", ref
}

// canonicalRegistry maps every alias of the default registry to the empty string.
func canonicalRegistry(host string) string {
	if host == "" || helpers.IsDefaultRegistry(host) {
		return ""
	}

	return strings.ToLower(host)
}
