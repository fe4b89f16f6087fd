// Package digest retrieves manifest digests from registries with HEAD and GET
// requests, selecting platform-specific entries from manifest lists when asked.
package digest

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	v1 "github.com/google/go-containerregistry/pkg/v1"
	godigest "github.com/opencontainers/go-digest"

	"github.com/nicholas-fedor/tagwatch/pkg/registry/helpers"
	"github.com/nicholas-fedor/tagwatch/pkg/registry/manifest"
)

// ContentDigestHeader is the response header carrying the manifest digest.
const ContentDigestHeader = "Docker-Content-Digest"

// DefaultUserAgent is sent with manifest requests when the fetcher has none configured.
const DefaultUserAgent = "tagwatch/unknown"

var (
	// errFailedCreateRequest indicates the manifest request could not be built.
	errFailedCreateRequest = errors.New("failed to create request")
	// errFailedExecuteRequest indicates the manifest request failed in transit.
	errFailedExecuteRequest = errors.New("failed to execute request")
	// errUnexpectedStatus indicates the registry answered with a non-success status.
	errUnexpectedStatus = errors.New("registry returned unexpected status")
	// errMissingDigest indicates the response carried no usable digest.
	errMissingDigest = errors.New("registry response did not include a digest")
	// errInvalidDigest indicates the registry reported a malformed digest.
	errInvalidDigest = errors.New("registry returned an invalid digest")
	// errFailedParseIndex indicates a manifest list body could not be decoded.
	errFailedParseIndex = errors.New("failed to parse manifest list")
	// errInvalidPlatform indicates the requested platform string is malformed.
	errInvalidPlatform = errors.New("invalid platform")
)

// Fetcher issues manifest requests against registries.
type Fetcher struct {
	client    *http.Client
	scheme    string
	userAgent string
}

// NewFetcher creates a Fetcher using client, the given URL scheme and User-Agent header.
// Empty values fall back to manifest.DefaultScheme and DefaultUserAgent.
func NewFetcher(client *http.Client, scheme, userAgent string) *Fetcher {
	if scheme == "" {
		scheme = manifest.DefaultScheme
	}

	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Fetcher{client: client, scheme: scheme, userAgent: userAgent}
}

// Head returns the registry-reported digest of a tag without transferring the body.
//
// For multi-architecture images this is the digest of the manifest list itself.
//
// Parameters:
//   - ctx: Context for the request.
//   - ref: Repository reference.
//   - tag: Tag to resolve.
//   - token: Bearer token, or empty for anonymous access.
//
// Returns:
//   - string: Digest such as "sha256:...".
//   - error: Non-nil if the request failed or no digest was reported.
func (f *Fetcher) Head(ctx context.Context, ref helpers.ImageReference, tag, token string) (string, error) {
	resp, err := f.do(ctx, http.MethodHead, ref, tag, token)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	return headerDigest(resp)
}

// Full fetches the manifest body and returns the digest to compare for a platform.
//
// When the body is a manifest list, the entry whose platform matches is returned; with
// no platform, or no matching entry, the first entry is used. For a single manifest the
// header digest is returned.
//
// Parameters:
//   - ctx: Context for the request.
//   - ref: Repository reference.
//   - tag: Tag to resolve.
//   - token: Bearer token, or empty for anonymous access.
//   - platform: Optional "os/arch[/variant]" selector.
//
// Returns:
//   - string: Selected digest.
//   - error: Non-nil if the request failed or no digest could be determined.
func (f *Fetcher) Full(
	ctx context.Context,
	ref helpers.ImageReference,
	tag, token, platform string,
) (string, error) {
	var want *v1.Platform

	if platform != "" {
		parsed, err := v1.ParsePlatform(platform)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %w", errInvalidPlatform, platform, err)
		}

		want = parsed
	}

	resp, err := f.do(ctx, http.MethodGet, ref, tag, token)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if !manifest.IsIndexMediaType(resp.Header.Get("Content-Type")) {
		return headerDigest(resp)
	}

	index, err := v1.ParseIndexManifest(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errFailedParseIndex, err)
	}

	if len(index.Manifests) == 0 {
		return headerDigest(resp)
	}

	if want != nil {
		for _, desc := range index.Manifests {
			if platformMatches(desc.Platform, want) {
				logrus.WithFields(logrus.Fields{
					"image":    ref.Path(),
					"tag":      tag,
					"platform": platform,
					"digest":   desc.Digest.String(),
				}).Debug("Selected platform manifest")

				return desc.Digest.String(), nil
			}
		}

		logrus.WithFields(logrus.Fields{
			"image":    ref.Path(),
			"tag":      tag,
			"platform": platform,
		}).Debug("No manifest for platform, using first entry")
	}

	return index.Manifests[0].Digest.String(), nil
}

func (f *Fetcher) do(
	ctx context.Context,
	method string,
	ref helpers.ImageReference,
	tag, token string,
) (*http.Response, error) {
	manifestURL := manifest.BuildManifestURL(ref, tag, f.scheme)

	req, err := http.NewRequestWithContext(ctx, method, manifestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedCreateRequest, err)
	}

	req.Header.Set("Accept", manifest.AcceptHeader())
	req.Header.Set("User-Agent", f.userAgent)

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedExecuteRequest, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		resp.Body.Close()

		return nil, fmt.Errorf("%w: %s %s: %s", errUnexpectedStatus, method, manifestURL, resp.Status)
	}

	return resp, nil
}

func headerDigest(resp *http.Response) (string, error) {
	value := resp.Header.Get(ContentDigestHeader)
	if value == "" {
		return "", errMissingDigest
	}

	parsed, err := godigest.Parse(value)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", errInvalidDigest, value, err)
	}

	return parsed.String(), nil
}

func platformMatches(have, want *v1.Platform) bool {
	if have == nil {
		return false
	}

	if have.OS != want.OS || have.Architecture != want.Architecture {
		return false
	}

	return want.Variant == "" || have.Variant == want.Variant
}
