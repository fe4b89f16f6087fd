// Package auth obtains pull-scoped bearer tokens from registry token services.
//
// The token endpoint is chosen by registry host through a small set of strategy
// variants: the default public registry, the family of registries that delegate token
// issuance to ghcr.io, and a generic "{registry}/v2/auth" fallback. New registries are
// supported by extending the delegated table rather than adding conditionals.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/tagwatch/pkg/registry/helpers"
)

// Kind tags a token strategy variant.
type Kind int

// Strategy variants.
const (
	// KindDefault targets the default public registry's token service.
	KindDefault Kind = iota
	// KindDelegated targets registries whose tokens are issued by another host.
	KindDelegated
	// KindGeneric targets the registry's own /v2/auth endpoint.
	KindGeneric
)

// String returns the variant name used in log fields.
func (k Kind) String() string {
	switch k {
	case KindDefault:
		return "default"
	case KindDelegated:
		return "delegated"
	case KindGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

// Token service locations.
const (
	// DefaultRealm is the token service of the default public registry.
	DefaultRealm = "https://auth.docker.io/token"
	// DefaultService is the service name the default token service expects.
	DefaultService = "registry.docker.io"
	// GHCRRealm is the token service shared by ghcr.io and registries delegating to it.
	GHCRRealm = "https://ghcr.io/token"
	// GHCRService is the service name expected by the ghcr.io token service.
	GHCRService = "ghcr.io"
)

// Strategy describes where and how to request a token for one registry.
type Strategy struct {
	Kind    Kind
	Realm   string
	Service string
}

// delegatedRegistries maps registry hosts onto the token service that serves them.
var delegatedRegistries = map[string]Strategy{
	"ghcr.io": {Kind: KindDelegated, Realm: GHCRRealm, Service: GHCRService},
	"lscr.io": {Kind: KindDelegated, Realm: GHCRRealm, Service: GHCRService},
}

// ResolveStrategy selects the token strategy for a registry host.
func ResolveStrategy(registry, scheme string) Strategy {
	if helpers.IsDefaultRegistry(registry) {
		return Strategy{Kind: KindDefault, Realm: DefaultRealm, Service: DefaultService}
	}

	if strategy, ok := delegatedRegistries[registry]; ok {
		return strategy
	}

	return Strategy{
		Kind:    KindGeneric,
		Realm:   fmt.Sprintf("%s://%s/v2/auth", scheme, registry),
		Service: registry,
	}
}

// TokenURL returns the token request URL for pull access to the referenced repository.
func (s Strategy) TokenURL(ref helpers.ImageReference) string {
	query := url.Values{}
	query.Set("service", s.Service)
	query.Set("scope", fmt.Sprintf("repository:%s:pull", ref.Path()))

	return s.Realm + "?" + query.Encode()
}

// CredentialsFunc returns basic credentials for a registry host, if any are known.
type CredentialsFunc func(registry string) (username, password string, found bool)

// TokenResponse is the body returned by token services.
type TokenResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
}

// Authenticator fetches tokens using the strategy matching each registry.
type Authenticator struct {
	client      *http.Client
	scheme      string
	userAgent   string
	realms      map[Kind]string
	credentials CredentialsFunc
}

// Option customises an Authenticator.
type Option func(*Authenticator)

// WithScheme sets the scheme used for generic /v2/auth endpoints.
func WithScheme(scheme string) Option {
	return func(a *Authenticator) { a.scheme = scheme }
}

// WithRealm overrides the token service URL of a strategy variant.
func WithRealm(kind Kind, realm string) Option {
	return func(a *Authenticator) { a.realms[kind] = realm }
}

// WithCredentials attaches basic credentials to token requests when available.
func WithCredentials(fn CredentialsFunc) Option {
	return func(a *Authenticator) { a.credentials = fn }
}

// WithUserAgent sets the User-Agent header of token requests.
func WithUserAgent(userAgent string) Option {
	return func(a *Authenticator) { a.userAgent = userAgent }
}

// New creates an Authenticator sending requests through client.
func New(client *http.Client, opts ...Option) *Authenticator {
	authenticator := &Authenticator{
		client: client,
		scheme: "https",
		realms: make(map[Kind]string),
	}

	for _, opt := range opts {
		opt(authenticator)
	}

	return authenticator
}

// Strategy returns the strategy used for a registry, honouring realm overrides.
func (a *Authenticator) Strategy(registry string) Strategy {
	strategy := ResolveStrategy(registry, a.scheme)
	if realm, ok := a.realms[strategy.Kind]; ok {
		strategy.Realm = realm
	}

	return strategy
}

// GetToken requests a pull-scoped token for the referenced repository.
//
// Any failure yields an empty token; callers then proceed unauthenticated.
//
// Parameters:
//   - ctx: Context for the request.
//   - ref: Repository to request pull access for.
//
// Returns:
//   - string: Bearer token, or empty when none could be obtained.
func (a *Authenticator) GetToken(ctx context.Context, ref helpers.ImageReference) string {
	strategy := a.Strategy(ref.Registry)
	tokenURL := strategy.TokenURL(ref)

	clog := logrus.WithFields(logrus.Fields{
		"registry": ref.Registry,
		"image":    ref.Path(),
		"strategy": strategy.Kind.String(),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenURL, nil)
	if err != nil {
		clog.WithError(err).Debug("Failed to create token request")

		return ""
	}

	req.Header.Set("Accept", "application/json")

	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	if a.credentials != nil {
		if username, password, found := a.credentials(ref.Registry); found {
			clog.WithField("username", username).Debug("Using registry credentials for token request")
			req.SetBasicAuth(username, password)
		}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		clog.WithError(err).Warn("Failed to request registry token")

		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		clog.WithField("status", resp.Status).Debug("Token service rejected request, continuing anonymously")

		return ""
	}

	var tokenResponse TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		clog.WithError(err).Debug("Failed to decode token response")

		return ""
	}

	token := tokenResponse.Token
	if token == "" {
		token = tokenResponse.AccessToken
	}

	clog.WithField("has_token", token != "").Debug("Completed token request")

	return token
}
