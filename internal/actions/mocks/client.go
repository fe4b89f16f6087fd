// Package mocks provides in-memory implementations of the collaborators of the
// update cycle for testing.
package mocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	cerrdefs "github.com/containerd/errdefs"

	dockerContainerType "github.com/docker/docker/api/types/container"
	dockerNetworkType "github.com/docker/docker/api/types/network"

	"github.com/nicholas-fedor/tagwatch/pkg/container"
)

var (
	// ErrNotFound is returned for unknown containers.
	ErrNotFound = cerrdefs.ErrNotFound
	// ErrConflict is returned when a container name is taken.
	ErrConflict = cerrdefs.ErrConflict
	// ErrInjected is returned by operations configured to fail.
	ErrInjected = errors.New("injected failure")
)

// MockContainer is a container held by MockClient.
type MockContainer struct {
	ID       string
	Name     string
	ImageRef string // Reference the container was created from.
	ImageID  string // ID of the image the reference pointed to.
	Running  bool
	Created  int64 // Creation time in seconds since the epoch.
	Networks map[string]*dockerNetworkType.EndpointSettings
	Spec     *container.CreateSpec // Request the container was created with, if any.
}

// MockClient is an in-memory container runtime.
type MockClient struct {
	mu         sync.Mutex
	containers map[string]*MockContainer
	images     []container.Image
	nextID     int

	// PullErrors fails pulls of "image:tag" references.
	PullErrors map[string]error
	// FailCreate fails creation of containers with these names.
	FailCreate map[string]bool
	// FailStartImages fails starting containers created from these references.
	FailStartImages map[string]bool
	// FailConnect fails attaching these networks.
	FailConnect map[string]bool
	// InUse reports these image references as used by a container on removal.
	InUse map[string]bool

	// Pulled lists pulled "image:tag" references in order.
	Pulled []string
	// RemovedImages lists removed image references in order.
	RemovedImages []string
	// Calls records every runtime operation as "op name".
	Calls []string
}

// NewMockClient creates a MockClient holding containers and images.
func NewMockClient(containers []*MockContainer, images []container.Image) *MockClient {
	client := &MockClient{
		containers:      make(map[string]*MockContainer, len(containers)),
		images:          images,
		PullErrors:      map[string]error{},
		FailCreate:      map[string]bool{},
		FailStartImages: map[string]bool{},
		FailConnect:     map[string]bool{},
		InUse:           map[string]bool{},
	}

	for _, c := range containers {
		if c.ID == "" {
			c.ID = client.newID()
		}

		client.containers[c.Name] = c
	}

	return client
}

func (m *MockClient) newID() string {
	m.nextID++

	return fmt.Sprintf("%064x", m.nextID)
}

func (m *MockClient) record(op, name string) {
	m.Calls = append(m.Calls, op+" "+name)
}

// lookup finds a container by name or ID. The caller holds the lock.
func (m *MockClient) lookup(name string) (*MockContainer, error) {
	if c, ok := m.containers[name]; ok {
		return c, nil
	}

	for _, c := range m.containers {
		if c.ID == name {
			return c, nil
		}
	}

	return nil, fmt.Errorf("%w: no such container: %s", ErrNotFound, name)
}

// Container returns the container currently named name.
func (m *MockClient) Container(name string) (*MockContainer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.containers[name]

	return c, ok
}

// Names returns the names of all containers, sorted.
func (m *MockClient) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.containers))
	for name := range m.containers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// ListContainers returns every container sorted by name.
func (m *MockClient) ListContainers(_ context.Context) ([]container.Container, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("list", "")

	result := make([]container.Container, 0, len(m.containers))

	for _, c := range m.containers {
		state := "exited"
		if c.Running {
			state = "running"
		}

		result = append(result, container.Container{
			Name:     c.Name,
			ID:       c.ID,
			State:    state,
			ImageRef: c.ImageRef,
			Created:  c.Created,
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	return result, nil
}

// InspectContainer returns a minimal inspect response for a container.
func (m *MockClient) InspectContainer(
	_ context.Context,
	name string,
) (dockerContainerType.InspectResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("inspect", name)

	c, err := m.lookup(name)
	if err != nil {
		return dockerContainerType.InspectResponse{}, err
	}

	return dockerContainerType.InspectResponse{
		ContainerJSONBase: &dockerContainerType.ContainerJSONBase{
			ID:    c.ID,
			Name:  "/" + c.Name,
			Image: c.ImageID,
			State: &dockerContainerType.State{Running: c.Running},
			HostConfig: &dockerContainerType.HostConfig{
				NetworkMode: "bridge",
			},
		},
		Config: &dockerContainerType.Config{
			Image:    c.ImageRef,
			Hostname: container.ShortID(c.ID),
			Env:      []string{"PATH=/usr/bin", "TZ=UTC"},
		},
		NetworkSettings: &dockerContainerType.NetworkSettings{Networks: c.Networks},
	}, nil
}

// StopContainer marks a container as stopped.
func (m *MockClient) StopContainer(_ context.Context, name string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("stop", name)

	c, err := m.lookup(name)
	if err != nil {
		return err
	}

	c.Running = false

	return nil
}

// RenameContainer renames a container.
func (m *MockClient) RenameContainer(_ context.Context, name, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("rename", name+" "+newName)

	c, err := m.lookup(name)
	if err != nil {
		return err
	}

	if _, taken := m.containers[newName]; taken {
		return fmt.Errorf("%w: name %s is in use", ErrConflict, newName)
	}

	delete(m.containers, c.Name)
	c.Name = newName
	m.containers[newName] = c

	return nil
}

// CreateContainer adds a stopped container named name.
func (m *MockClient) CreateContainer(_ context.Context, name string, spec container.CreateSpec) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("create", name)

	if m.FailCreate[name] {
		return "", ErrInjected
	}

	if _, taken := m.containers[name]; taken {
		return "", fmt.Errorf("%w: name %s is in use", ErrConflict, name)
	}

	networks := map[string]*dockerNetworkType.EndpointSettings{}
	if spec.Networking != nil {
		for network, endpoint := range spec.Networking.EndpointsConfig {
			networks[network] = endpoint
		}
	}

	c := &MockContainer{
		ID:       m.newID(),
		Name:     name,
		ImageRef: spec.Config.Image,
		ImageID:  "sha256:" + spec.Config.Image,
		Networks: networks,
		Spec:     &spec,
	}
	m.containers[name] = c

	return c.ID, nil
}

// StartContainer marks a container as running.
func (m *MockClient) StartContainer(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("start", name)

	c, err := m.lookup(name)
	if err != nil {
		return err
	}

	if m.FailStartImages[c.ImageRef] {
		return ErrInjected
	}

	c.Running = true

	return nil
}

// RemoveContainer deletes a container.
func (m *MockClient) RemoveContainer(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("remove", name)

	c, err := m.lookup(name)
	if err != nil {
		return err
	}

	delete(m.containers, c.Name)

	return nil
}

// ConnectNetwork attaches a network to a container.
func (m *MockClient) ConnectNetwork(
	_ context.Context,
	network, containerID string,
	endpoint *dockerNetworkType.EndpointSettings,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("connect", network)

	if m.FailConnect[network] {
		return ErrInjected
	}

	c, err := m.lookup(containerID)
	if err != nil {
		return err
	}

	if c.Networks == nil {
		c.Networks = map[string]*dockerNetworkType.EndpointSettings{}
	}

	c.Networks[network] = endpoint

	return nil
}

// PullImage records a pull.
func (m *MockClient) PullImage(_ context.Context, image, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref := image + ":" + tag
	m.record("pull", ref)

	if err := m.PullErrors[ref]; err != nil {
		return err
	}

	m.Pulled = append(m.Pulled, ref)

	return nil
}

// ListImages returns images with a tag in the repository named by reference.
func (m *MockClient) ListImages(_ context.Context, reference string) ([]container.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []container.Image

	for _, img := range m.images {
		for _, repoTag := range img.RepoTags {
			if strings.HasPrefix(repoTag, reference+":") {
				result = append(result, img)

				break
			}
		}
	}

	return result, nil
}

// RemoveImage removes a repository tag.
func (m *MockClient) RemoveImage(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("rmi", ref)

	if m.InUse[ref] {
		return fmt.Errorf("%w: %s", container.ErrImageInUse, ref)
	}

	m.RemovedImages = append(m.RemovedImages, ref)

	return nil
}
