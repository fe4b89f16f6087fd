// Package manifest builds registry API URLs and content negotiation headers for
// manifest and tag lookups.
package manifest

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	ggcrTypes "github.com/google/go-containerregistry/pkg/v1/types"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/nicholas-fedor/tagwatch/pkg/registry/helpers"
)

// DefaultScheme is the URL scheme used to reach registries.
const DefaultScheme = "https"

// DefaultHubURL is the base of the Docker Hub repositories API used for recency listings.
const DefaultHubURL = "https://hub.docker.com"

// HubPageSize is the number of tags requested per Hub API page.
const HubPageSize = 100

// AcceptedMediaTypes lists manifest media types in preference order: multi-arch
// manifest lists first, then single manifests, Docker formats before OCI formats.
var AcceptedMediaTypes = []string{
	string(ggcrTypes.DockerManifestList),
	string(ggcrTypes.DockerManifestSchema2),
	ocispec.MediaTypeImageIndex,
	ocispec.MediaTypeImageManifest,
}

// AcceptHeader returns the value for the Accept header of manifest requests.
func AcceptHeader() string {
	return strings.Join(AcceptedMediaTypes, ",")
}

// IsIndexMediaType reports whether a Content-Type denotes a manifest list or OCI index.
func IsIndexMediaType(contentType string) bool {
	return strings.Contains(contentType, "manifest.list") || strings.Contains(contentType, "image.index")
}

// BuildManifestURL returns the manifest endpoint for a tag of the referenced repository.
//
// Parameters:
//   - ref: Parsed image reference.
//   - tag: Tag or digest to address.
//   - scheme: URL scheme, usually "https".
//
// Returns:
//   - string: Absolute manifest URL.
func BuildManifestURL(ref helpers.ImageReference, tag, scheme string) string {
	manifestURL := url.URL{
		Scheme: scheme,
		Host:   ref.Registry,
		Path:   fmt.Sprintf("/v2/%s/manifests/%s", ref.Path(), tag),
	}

	urlStr := manifestURL.String()

	logrus.WithFields(logrus.Fields{
		"registry": ref.Registry,
		"path":     ref.Path(),
		"tag":      tag,
		"url":      urlStr,
	}).Trace("Built manifest URL")

	return urlStr
}

// BuildTagsURL returns the tag listing endpoint of the referenced repository.
func BuildTagsURL(ref helpers.ImageReference, scheme string) string {
	tagsURL := url.URL{
		Scheme: scheme,
		Host:   ref.Registry,
		Path:   fmt.Sprintf("/v2/%s/tags/list", ref.Path()),
	}

	return tagsURL.String()
}

// BuildHubTagsURL returns the first page of the Hub tag listing ordered by last update.
func BuildHubTagsURL(hubURL string, ref helpers.ImageReference) string {
	query := url.Values{}
	query.Set("page_size", fmt.Sprintf("%d", HubPageSize))
	query.Set("ordering", "last_updated")

	return fmt.Sprintf(
		"%s/v2/repositories/%s/tags?%s",
		strings.TrimSuffix(hubURL, "/"),
		ref.Path(),
		query.Encode(),
	)
}
