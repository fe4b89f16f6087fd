package container

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	dockerContainerType "github.com/docker/docker/api/types/container"
	dockerNetworkType "github.com/docker/docker/api/types/network"
	dockerClient "github.com/docker/docker/client"
)

// Client is the container runtime surface used to discover and replace containers.
type Client interface {
	// ListContainers returns every container on the host, in any state.
	ListContainers(ctx context.Context) ([]Container, error)
	// InspectContainer returns the full configuration of a container.
	InspectContainer(ctx context.Context, name string) (dockerContainerType.InspectResponse, error)
	// StopContainer stops a container, waiting up to timeout before it is killed.
	StopContainer(ctx context.Context, name string, timeout time.Duration) error
	// RenameContainer renames a container.
	RenameContainer(ctx context.Context, name, newName string) error
	// CreateContainer creates a container named name from spec and returns its ID.
	CreateContainer(ctx context.Context, name string, spec CreateSpec) (string, error)
	// StartContainer starts a container.
	StartContainer(ctx context.Context, name string) error
	// RemoveContainer force-removes a container.
	RemoveContainer(ctx context.Context, name string) error
	// ConnectNetwork attaches a container to an additional network.
	ConnectNetwork(
		ctx context.Context,
		network, containerID string,
		endpoint *dockerNetworkType.EndpointSettings,
	) error
	// PullImage pulls image:tag, failing when the pull stream reports an error.
	PullImage(ctx context.Context, image, tag string) error
	// ListImages returns local images matching a repository reference.
	ListImages(ctx context.Context, reference string) ([]Image, error)
	// RemoveImage removes an image by reference. ErrImageInUse is returned when a
	// container still uses it.
	RemoveImage(ctx context.Context, ref string) error
}

// client implements Client over the Docker Engine API.
type client struct {
	api dockerClient.APIClient
}

// NewClient initializes a Client from the environment (DOCKER_HOST, DOCKER_API_VERSION,
// DOCKER_CERT_PATH), negotiating the API version unless one is forced.
//
// Returns:
//   - Client: Initialized client.
//   - error: Non-nil if the Docker client could not be created.
func NewClient() (Client, error) {
	opts := []dockerClient.Opt{dockerClient.FromEnv}

	if version := strings.Trim(os.Getenv("DOCKER_API_VERSION"), "\""); version == "" {
		opts = append(opts, dockerClient.WithAPIVersionNegotiation())
	}

	cli, err := dockerClient.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedCreateClient, err)
	}

	ctx := context.Background()

	if serverVersion, err := cli.ServerVersion(ctx); err != nil {
		logrus.WithFields(logrus.Fields{
			"error":    err,
			"endpoint": "/version",
		}).Warn("Failed to retrieve server version")
	} else {
		logrus.WithFields(logrus.Fields{
			"client_version": cli.ClientVersion(),
			"server_version": serverVersion.APIVersion,
		}).Debug("Initialized Docker client")
	}

	return &client{api: cli}, nil
}

// NewClientWithAPI wraps an existing Docker API client.
func NewClientWithAPI(api dockerClient.APIClient) Client {
	return &client{api: api}
}

func (c *client) ListContainers(ctx context.Context) ([]Container, error) {
	summaries, err := c.api.ContainerList(ctx, dockerContainerType.ListOptions{All: true})
	if err != nil {
		logrus.WithError(err).Debug("Failed to list containers")

		return nil, fmt.Errorf("%w: %w", errListContainersFailed, err)
	}

	containers := make([]Container, 0, len(summaries))

	for _, summary := range summaries {
		var name string
		if len(summary.Names) > 0 {
			name = strings.TrimPrefix(summary.Names[0], "/")
		}

		containers = append(containers, Container{
			Name:     name,
			ID:       summary.ID,
			State:    string(summary.State),
			ImageRef: summary.Image,
			Created:  summary.Created,
		})
	}

	logrus.WithField("count", len(containers)).Debug("Listed containers")

	return containers, nil
}

func (c *client) InspectContainer(
	ctx context.Context,
	name string,
) (dockerContainerType.InspectResponse, error) {
	info, err := c.api.ContainerInspect(ctx, name)
	if err != nil {
		logrus.WithError(err).WithField("container", name).Debug("Failed to inspect container")

		return dockerContainerType.InspectResponse{}, fmt.Errorf(
			"%w: %s: %w",
			errInspectContainerFailed,
			name,
			err,
		)
	}

	return info, nil
}

func (c *client) StopContainer(ctx context.Context, name string, timeout time.Duration) error {
	seconds := int(timeout.Seconds())

	if err := c.api.ContainerStop(ctx, name, dockerContainerType.StopOptions{Timeout: &seconds}); err != nil {
		return fmt.Errorf("%w: %s: %w", errStopContainerFailed, name, err)
	}

	logrus.WithFields(logrus.Fields{
		"container": name,
		"timeout":   timeout,
	}).Debug("Stopped container")

	return nil
}

func (c *client) RenameContainer(ctx context.Context, name, newName string) error {
	if err := c.api.ContainerRename(ctx, name, newName); err != nil {
		return fmt.Errorf("%w: %s -> %s: %w", errRenameContainerFailed, name, newName, err)
	}

	logrus.WithFields(logrus.Fields{
		"container": name,
		"new_name":  newName,
	}).Debug("Renamed container")

	return nil
}

func (c *client) CreateContainer(ctx context.Context, name string, spec CreateSpec) (string, error) {
	created, err := c.api.ContainerCreate(ctx, spec.Config, spec.HostConfig, spec.Networking, nil, name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", errCreateContainerFailed, name, err)
	}

	for _, warning := range created.Warnings {
		logrus.WithField("container", name).Warn(warning)
	}

	logrus.WithFields(logrus.Fields{
		"container": name,
		"id":        ShortID(created.ID),
	}).Debug("Created container")

	return created.ID, nil
}

func (c *client) StartContainer(ctx context.Context, name string) error {
	if err := c.api.ContainerStart(ctx, name, dockerContainerType.StartOptions{}); err != nil {
		return fmt.Errorf("%w: %s: %w", errStartContainerFailed, name, err)
	}

	logrus.WithField("container", name).Debug("Started container")

	return nil
}

func (c *client) RemoveContainer(ctx context.Context, name string) error {
	if err := c.api.ContainerRemove(ctx, name, dockerContainerType.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("%w: %s: %w", errRemoveContainerFailed, name, err)
	}

	logrus.WithField("container", name).Debug("Removed container")

	return nil
}

func (c *client) ConnectNetwork(
	ctx context.Context,
	network, containerID string,
	endpoint *dockerNetworkType.EndpointSettings,
) error {
	if err := c.api.NetworkConnect(ctx, network, containerID, endpoint); err != nil {
		return fmt.Errorf("%w: %s: %w", errConnectNetworkFailed, network, err)
	}

	logrus.WithFields(logrus.Fields{
		"network": network,
		"id":      ShortID(containerID),
	}).Debug("Connected container to network")

	return nil
}
