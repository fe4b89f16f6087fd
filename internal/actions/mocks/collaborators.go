package mocks

import (
	"context"
	"maps"
	"regexp"
	"sync"

	"github.com/nicholas-fedor/tagwatch/pkg/matcher"
	"github.com/nicholas-fedor/tagwatch/pkg/state"
	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

// Resolver returns preset results per image.
type Resolver struct {
	Results map[string]matcher.Result
	Calls   int
}

// Resolve returns the preset result of image.
func (r *Resolver) Resolve(
	_ context.Context,
	image, _ string,
	_ *regexp.Regexp,
	_ string,
) (matcher.Result, bool) {
	r.Calls++
	result, ok := r.Results[image]

	return result, ok
}

// Store keeps state in memory.
type Store struct {
	States map[string]state.ImageState
	Saves  int
	DryRun bool
}

// Load returns a copy of the stored state.
func (s *Store) Load() map[string]state.ImageState {
	if s.States == nil {
		return map[string]state.ImageState{}
	}

	return maps.Clone(s.States)
}

// Save replaces the stored state unless in dry-run mode.
func (s *Store) Save(states map[string]state.ImageState) error {
	if s.DryRun {
		return nil
	}

	s.Saves++
	s.States = maps.Clone(states)

	return nil
}

// Notifier records notified events.
type Notifier struct {
	mu     sync.Mutex
	Events []types.Event
	Closed bool
}

// Notify records event.
func (n *Notifier) Notify(event types.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.Events = append(n.Events, event)
}

// GetNames returns a fixed service name.
func (n *Notifier) GetNames() []string { return []string{"mock"} }

// GetURLs returns a fixed service URL.
func (n *Notifier) GetURLs() []string { return []string{"logger://"} }

// Close marks the notifier closed.
func (n *Notifier) Close() { n.Closed = true }

// Kinds returns the kinds of the recorded events.
func (n *Notifier) Kinds() []types.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()

	kinds := make([]types.EventKind, len(n.Events))
	for i, event := range n.Events {
		kinds[i] = event.Kind
	}

	return kinds
}
