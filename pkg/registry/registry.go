package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/tagwatch/pkg/registry/auth"
	"github.com/nicholas-fedor/tagwatch/pkg/registry/digest"
	"github.com/nicholas-fedor/tagwatch/pkg/registry/helpers"
	"github.com/nicholas-fedor/tagwatch/pkg/registry/manifest"
)

// DefaultTimeout bounds every registry request.
const DefaultTimeout = 30 * time.Second

// MaxRecencyTags caps the number of tags collected from the Hub recency API.
const MaxRecencyTags = 500

// maxTagPages caps how many Link-paginated tag pages are followed.
const maxTagPages = 50

var (
	// errUnexpectedStatus indicates a registry answered with a non-success status.
	errUnexpectedStatus = errors.New("registry returned unexpected status")
	// errFailedDecode indicates a registry response body could not be decoded.
	errFailedDecode = errors.New("failed to decode registry response")
)

// Options configures a Client.
type Options struct {
	// HTTPClient overrides the HTTP client; Timeout is ignored when set.
	HTTPClient *http.Client
	// Timeout bounds each request; DefaultTimeout when zero.
	Timeout time.Duration
	// Scheme used for registry URLs; "https" when empty.
	Scheme string
	// HubURL is the base of the Hub repositories API.
	HubURL string
	// UseCredentials attaches docker CLI or environment credentials to token requests.
	UseCredentials bool
	// Realms overrides token service URLs per strategy variant.
	Realms map[auth.Kind]string
	// UserAgent sent with requests.
	UserAgent string
}

// Client talks to container registries. Every operation reports failure as an empty
// result and logs it; nothing is returned as an error.
type Client struct {
	http      *http.Client
	scheme    string
	hubURL    string
	auth      *auth.Authenticator
	digests   *digest.Fetcher
	userAgent string
}

// NewClient creates a registry client from opts.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}

		httpClient = &http.Client{Timeout: timeout}
	}

	scheme := lo.Ternary(opts.Scheme == "", manifest.DefaultScheme, opts.Scheme)
	hubURL := lo.Ternary(opts.HubURL == "", manifest.DefaultHubURL, opts.HubURL)

	authOpts := []auth.Option{auth.WithScheme(scheme)}
	for kind, realm := range opts.Realms {
		authOpts = append(authOpts, auth.WithRealm(kind, realm))
	}

	if opts.UseCredentials {
		authOpts = append(authOpts, auth.WithCredentials(BasicCredentials))
	}

	userAgent := lo.Ternary(opts.UserAgent == "", digest.DefaultUserAgent, opts.UserAgent)
	authOpts = append(authOpts, auth.WithUserAgent(userAgent))

	return &Client{
		http:      httpClient,
		scheme:    scheme,
		hubURL:    hubURL,
		auth:      auth.New(httpClient, authOpts...),
		digests:   digest.NewFetcher(httpClient, scheme, userAgent),
		userAgent: userAgent,
	}
}

// GetToken obtains a pull-scoped bearer token, or an empty string on failure.
func (c *Client) GetToken(ctx context.Context, ref helpers.ImageReference) string {
	return c.auth.GetToken(ctx, ref)
}

// GetDigestHead returns the digest reported for tag by a HEAD request, or an empty
// string when unavailable.
func (c *Client) GetDigestHead(ctx context.Context, ref helpers.ImageReference, tag, token string) string {
	value, err := c.digests.Head(ctx, ref, tag, token)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"image": ref.String(),
			"tag":   tag,
		}).Debug("Failed to get manifest digest")

		return ""
	}

	return value
}

// GetDigestFull returns the digest of tag from the full manifest, scoped to platform
// when given, or an empty string when unavailable.
func (c *Client) GetDigestFull(
	ctx context.Context,
	ref helpers.ImageReference,
	tag, token, platform string,
) string {
	value, err := c.digests.Full(ctx, ref, tag, token, platform)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"image":    ref.String(),
			"tag":      tag,
			"platform": platform,
		}).Warn("Failed to get manifest")

		return ""
	}

	return value
}

type tagList struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// ListTags returns every tag of the repository, following Link pagination.
func (c *Client) ListTags(ctx context.Context, ref helpers.ImageReference, token string) []string {
	clog := logrus.WithField("image", ref.String())

	var tags []string

	next := manifest.BuildTagsURL(ref, c.scheme)

	for page := 0; next != "" && page < maxTagPages; page++ {
		var body tagList

		header, err := c.getJSON(ctx, next, token, &body)
		if err != nil {
			clog.WithError(err).Error("Failed to get tags")

			return tags
		}

		tags = append(tags, body.Tags...)
		next = nextLink(next, header.Get("Link"))
	}

	clog.WithField("count", len(tags)).Debug("Listed tags")

	return tags
}

type hubTag struct {
	Name          string `json:"name"`
	TagLastPushed string `json:"tag_last_pushed"`
}

type hubTagPage struct {
	Next    string   `json:"next"`
	Results []hubTag `json:"results"`
}

// ListTagsByRecency returns tags ordered by push time ascending, so the last element is
// the most recently pushed.
//
// Only the default public registry offers a recency API; other registries, and a Hub
// failure on the first page, fall back to ListTags. At most MaxRecencyTags tags are read.
func (c *Client) ListTagsByRecency(ctx context.Context, ref helpers.ImageReference) []string {
	if !ref.IsDefaultRegistry() {
		return c.ListTags(ctx, ref, c.GetToken(ctx, ref))
	}

	clog := logrus.WithField("image", ref.String())

	var collected []hubTag

	next := manifest.BuildHubTagsURL(c.hubURL, ref)

	for next != "" && len(collected) < MaxRecencyTags {
		var page hubTagPage

		if _, err := c.getJSON(ctx, next, "", &page); err != nil {
			clog.WithError(err).Error("Failed to get tags from Hub API")

			if len(collected) == 0 {
				return c.ListTags(ctx, ref, c.GetToken(ctx, ref))
			}

			break
		}

		for _, result := range page.Results {
			if result.Name != "" {
				collected = append(collected, result)
			}
		}

		next = page.Next
	}

	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].TagLastPushed < collected[j].TagLastPushed
	})

	return lo.Map(collected, func(tag hubTag, _ int) string { return tag.Name })
}

func (c *Client) getJSON(ctx context.Context, url, token string, target any) (http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s: %s", errUnexpectedStatus, url, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedDecode, err)
	}

	return resp.Header, nil
}
