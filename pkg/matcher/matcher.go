// Package matcher resolves which version tag a moving base tag currently points to by
// comparing manifest digests.
package matcher

import (
	"context"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/nicholas-fedor/tagwatch/pkg/registry/helpers"
)

// MaxConcurrentChecks bounds simultaneous candidate digest requests.
const MaxConcurrentChecks = 10

// Registry is the subset of the registry client the matcher needs.
type Registry interface {
	GetToken(ctx context.Context, ref helpers.ImageReference) string
	GetDigestHead(ctx context.Context, ref helpers.ImageReference, tag, token string) string
	GetDigestFull(ctx context.Context, ref helpers.ImageReference, tag, token, platform string) string
	ListTags(ctx context.Context, ref helpers.ImageReference, token string) []string
}

// Result is a resolved version tag and the digest it shares with the base tag.
type Result struct {
	Tag    string
	Digest string
}

// Anchor returns pattern restricted to matching a whole tag.
func Anchor(pattern *regexp.Regexp) *regexp.Regexp {
	return regexp.MustCompile(`^(?:` + pattern.String() + `)$`)
}

// Matcher resolves base tags against version tags.
type Matcher struct {
	registry Registry
	platform string
	workers  int
}

// Option customises a Matcher.
type Option func(*Matcher)

// WithPlatform compares platform-specific digests taken from full manifests instead of
// the digests reported by HEAD requests.
func WithPlatform(platform string) Option {
	return func(m *Matcher) { m.platform = platform }
}

// WithWorkers overrides the check pool size, capped at MaxConcurrentChecks.
func WithWorkers(workers int) Option {
	return func(m *Matcher) {
		if workers > 0 {
			m.workers = min(workers, MaxConcurrentChecks)
		}
	}
}

// New creates a Matcher backed by registry.
func New(registry Registry, opts ...Option) *Matcher {
	m := &Matcher{registry: registry, workers: MaxConcurrentChecks}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Resolve finds the tag matching pattern whose digest equals the digest of baseTag.
//
// Candidates are tags the whole of which matches pattern. They are checked in reverse
// lexicographic order on a pool of at most MaxConcurrentChecks workers. The first match
// in that order wins: once a candidate matches, no later candidate is dispatched and
// requests for later candidates are cancelled, while earlier ones still in flight are
// awaited.
//
// Parameters:
//   - ctx: Context for registry requests.
//   - image: Configured image name.
//   - baseTag: Moving tag to resolve.
//   - pattern: Compiled version tag pattern.
//   - registryOverride: Registry host replacing the one parsed from image, if set.
//
// Returns:
//   - Result: Matching tag and digest.
//   - bool: False when the base digest, tags or a matching candidate are unavailable.
func (m *Matcher) Resolve(
	ctx context.Context,
	image, baseTag string,
	pattern *regexp.Regexp,
	registryOverride string,
) (Result, bool) {
	clog := logrus.WithFields(logrus.Fields{
		"image":    image,
		"base_tag": baseTag,
	})

	if pattern == nil {
		clog.Error("No compiled pattern for image")

		return Result{}, false
	}

	ref := helpers.ParseImageReference(image).WithRegistry(registryOverride)
	token := m.registry.GetToken(ctx, ref)

	baseDigest := m.digest(ctx, ref, baseTag, token)
	if baseDigest == "" {
		clog.Error("Could not get digest for base tag")

		return Result{}, false
	}

	tags := m.registry.ListTags(ctx, ref, token)
	if len(tags) == 0 {
		clog.Error("Could not get tags")

		return Result{}, false
	}

	anchored := Anchor(pattern)
	candidates := lo.Filter(tags, func(tag string, _ int) bool { return anchored.MatchString(tag) })
	clog.WithField("count", len(candidates)).Debug("Found tags matching pattern")

	if len(candidates) == 0 {
		clog.WithField("regex", pattern.String()).Warn("No tags matching pattern")

		return Result{}, false
	}

	sort.Sort(sort.Reverse(sort.StringSlice(candidates)))

	tag, found := m.firstMatch(ctx, ref, token, baseDigest, candidates)
	if !found {
		clog.WithField("regex", pattern.String()).
			Warn("No tag matching pattern found with same digest as base tag")

		return Result{}, false
	}

	clog.WithFields(logrus.Fields{
		"tag":    tag,
		"digest": helpers.ShortDigest(baseDigest),
	}).Debug("Found matching tag")

	return Result{Tag: tag, Digest: baseDigest}, true
}

// firstMatch returns the lowest-index candidate whose digest equals baseDigest, so the
// result does not depend on which request finishes first. A match cancels only the
// requests for higher-index candidates and stops dispatching; lower-index requests still in
// flight are awaited.
func (m *Matcher) firstMatch(
	ctx context.Context,
	ref helpers.ImageReference,
	token, baseDigest string,
	candidates []string,
) (string, bool) {
	var (
		group   errgroup.Group
		best    atomic.Int64
		mu      sync.Mutex
		cancels = make([]context.CancelFunc, len(candidates))
	)

	group.SetLimit(m.workers)
	best.Store(int64(len(candidates)))

	for i, candidate := range candidates {
		index := int64(i)
		if index > best.Load() || ctx.Err() != nil {
			break
		}

		checkCtx, checkCancel := context.WithCancel(ctx)

		mu.Lock()
		cancels[i] = checkCancel
		mu.Unlock()

		group.Go(func() error {
			defer checkCancel()

			if index > best.Load() {
				return nil
			}

			if m.digest(checkCtx, ref, candidate, token) != baseDigest {
				return nil
			}

			for {
				current := best.Load()
				if index >= current {
					return nil
				}

				if best.CompareAndSwap(current, index) {
					break
				}
			}

			mu.Lock()
			for _, cancel := range cancels[i+1:] {
				if cancel != nil {
					cancel()
				}
			}
			mu.Unlock()

			return nil
		})
	}

	_ = group.Wait()

	winner := best.Load()
	if winner >= int64(len(candidates)) {
		return "", false
	}

	return candidates[winner], true
}

func (m *Matcher) digest(ctx context.Context, ref helpers.ImageReference, tag, token string) string {
	if m.platform != "" {
		return m.registry.GetDigestFull(ctx, ref, tag, token, m.platform)
	}

	return m.registry.GetDigestHead(ctx, ref, tag, token)
}
