package container

import "errors"

// ErrImageInUse indicates an image could not be removed because a container uses it.
var ErrImageInUse = errors.New("image is in use")

// Errors for client initialization.
var (
	// errFailedCreateClient indicates the Docker API client could not be initialized.
	errFailedCreateClient = errors.New("failed to initialize docker client")
)

// Errors for container operations in client.go.
var (
	// errListContainersFailed indicates a failure to list containers from the host.
	errListContainersFailed = errors.New("failed to list containers")
	// errInspectContainerFailed indicates a failure to inspect a container.
	errInspectContainerFailed = errors.New("failed to inspect container")
	// errStopContainerFailed indicates a failure to stop a container.
	errStopContainerFailed = errors.New("failed to stop container")
	// errRenameContainerFailed indicates a failure to rename a container.
	errRenameContainerFailed = errors.New("failed to rename container")
	// errCreateContainerFailed indicates a failure to create a container.
	errCreateContainerFailed = errors.New("failed to create container")
	// errStartContainerFailed indicates a failure to start a container.
	errStartContainerFailed = errors.New("failed to start container")
	// errRemoveContainerFailed indicates a failure to remove a container.
	errRemoveContainerFailed = errors.New("failed to remove container")
	// errConnectNetworkFailed indicates a failure to attach a container to a network.
	errConnectNetworkFailed = errors.New("failed to connect container to network")
)

// Errors for image operations in image.go.
var (
	// errPullImageFailed indicates a failure to start an image pull.
	errPullImageFailed = errors.New("failed to pull image")
	// errReadPullResponseFailed indicates the pull stream reported an error or broke off.
	errReadPullResponseFailed = errors.New("failed to read pull response")
	// errListImagesFailed indicates a failure to list local images.
	errListImagesFailed = errors.New("failed to list images")
	// errRemoveImageFailed indicates a failure to remove an image.
	errRemoveImageFailed = errors.New("failed to remove image")
)
