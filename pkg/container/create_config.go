package container

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/docker/docker/api/types/mount"
	"github.com/docker/go-connections/nat"

	dockerContainerType "github.com/docker/docker/api/types/container"
	dockerNetworkType "github.com/docker/docker/api/types/network"
)

const (
	// runtimeLabelPrefix is the label namespace reserved by the runtime.
	runtimeLabelPrefix = "com.docker."
	// defaultNetworkMode is reported for containers on the default bridge.
	defaultNetworkMode = "default"
	// bridgeNetwork is the network backing the default network mode.
	bridgeNetwork = "bridge"
)

// preservedLabelPrefixes are runtime-namespace labels that record stack membership and
// must survive a replacement.
var preservedLabelPrefixes = []string{
	"com.docker.compose.",
	"com.docker.stack.",
}

// injectedEnvPrefixes are environment entries set by the runtime itself.
var injectedEnvPrefixes = []string{"PATH=", "HOSTNAME="}

// CreateSpec is a container creation request derived from an existing container.
type CreateSpec struct {
	Config     *dockerContainerType.Config
	HostConfig *dockerContainerType.HostConfig
	Networking *dockerNetworkType.NetworkingConfig
	// ExtraNetworks are attached after the container was created.
	ExtraNetworks map[string]*dockerNetworkType.EndpointSettings
}

// BuildCreateSpec synthesizes the request that recreates info on image.
//
// Only the configuration surface that defines how the container runs is carried over:
// identity and process settings, environment, labels, restart policy, ports, mounts,
// networks, capabilities, devices, resource limits, security options and the runtime.
// Settings that are invalid when the network namespace is shared with the host or
// another container (hostname, port bindings, extra networks) are dropped in that case.
//
// Parameters:
//   - info: Inspected source container.
//   - image: Image reference for the new container.
//
// Returns:
//   - CreateSpec: Creation request for the replacement.
func BuildCreateSpec(info dockerContainerType.InspectResponse, image string) CreateSpec {
	config := info.Config
	if config == nil {
		config = &dockerContainerType.Config{}
	}

	hostConfig := &dockerContainerType.HostConfig{}
	if info.ContainerJSONBase != nil && info.HostConfig != nil {
		hostConfig = info.HostConfig
	}

	networkMode := hostConfig.NetworkMode
	containerNetwork := networkMode.IsContainer()
	sharesNamespace := networkMode.IsHost() || containerNetwork

	newConfig := &dockerContainerType.Config{
		Image:      image,
		User:       config.User,
		WorkingDir: config.WorkingDir,
		Env:        filterEnv(config.Env),
		Labels:     filterLabels(config.Labels),
	}

	if !sharesNamespace && config.Hostname != "" && config.Hostname != ShortID(containerID(info)) {
		newConfig.Hostname = config.Hostname
	}

	if len(config.Cmd) > 0 {
		newConfig.Cmd = slices.Clone(config.Cmd)
	}

	newHostConfig := &dockerContainerType.HostConfig{
		Binds:       mountBinds(info.Mounts),
		Privileged:  hostConfig.Privileged,
		CapAdd:      slices.Clone(hostConfig.CapAdd),
		CapDrop:     slices.Clone(hostConfig.CapDrop),
		SecurityOpt: slices.Clone(hostConfig.SecurityOpt),
		Runtime:     hostConfig.Runtime,
		Resources: dockerContainerType.Resources{
			Memory:    hostConfig.Memory,
			CPUShares: hostConfig.CPUShares,
			CPUQuota:  hostConfig.CPUQuota,
			Devices:   slices.Clone(hostConfig.Devices),
		},
	}

	if hostConfig.RestartPolicy.Name != "" {
		newHostConfig.RestartPolicy = hostConfig.RestartPolicy
	}

	if networkMode != "" && string(networkMode) != defaultNetworkMode {
		newHostConfig.NetworkMode = networkMode
	}

	if !sharesNamespace && len(hostConfig.PortBindings) > 0 {
		newHostConfig.PortBindings = clonePortMap(hostConfig.PortBindings)
		newConfig.ExposedPorts = exposedPorts(hostConfig.PortBindings)
	}

	spec := CreateSpec{
		Config:     newConfig,
		HostConfig: newHostConfig,
	}

	if containerNetwork {
		return spec
	}

	networks := attachedNetworks(info)
	primary := primaryNetwork(networkMode)

	if endpoint, ok := networks[primary]; ok && endpoint != nil {
		spec.Networking = &dockerNetworkType.NetworkingConfig{
			EndpointsConfig: map[string]*dockerNetworkType.EndpointSettings{
				primary: endpointConfig(endpoint),
			},
		}
	}

	if sharesNamespace {
		return spec
	}

	for name, endpoint := range networks {
		if name == primary || endpoint == nil {
			continue
		}

		if spec.ExtraNetworks == nil {
			spec.ExtraNetworks = make(map[string]*dockerNetworkType.EndpointSettings)
		}

		spec.ExtraNetworks[name] = endpointConfig(endpoint)
	}

	return spec
}

// SharesNetworkNamespace reports whether a container runs in the host's or another
// container's network namespace.
func SharesNetworkNamespace(info dockerContainerType.InspectResponse) bool {
	if info.ContainerJSONBase == nil || info.HostConfig == nil {
		return false
	}

	return info.HostConfig.NetworkMode.IsHost() || info.HostConfig.NetworkMode.IsContainer()
}

func containerID(info dockerContainerType.InspectResponse) string {
	if info.ContainerJSONBase == nil {
		return ""
	}

	return info.ID
}

func attachedNetworks(info dockerContainerType.InspectResponse) map[string]*dockerNetworkType.EndpointSettings {
	if info.NetworkSettings == nil {
		return nil
	}

	return info.NetworkSettings.Networks
}

func primaryNetwork(mode dockerContainerType.NetworkMode) string {
	if mode == "" || string(mode) == defaultNetworkMode {
		return bridgeNetwork
	}

	return string(mode)
}

func filterEnv(env []string) []string {
	filtered := make([]string, 0, len(env))

	for _, entry := range env {
		if !hasAnyPrefix(entry, injectedEnvPrefixes) {
			filtered = append(filtered, entry)
		}
	}

	return filtered
}

func filterLabels(labels map[string]string) map[string]string {
	filtered := make(map[string]string, len(labels))

	for key, value := range labels {
		if strings.HasPrefix(key, runtimeLabelPrefix) && !hasAnyPrefix(key, preservedLabelPrefixes) {
			continue
		}

		filtered[key] = value
	}

	return filtered
}

// mountBinds renders bind and named-volume mounts as "source:destination[:mode]".
func mountBinds(mounts []dockerContainerType.MountPoint) []string {
	var binds []string

	for _, point := range mounts {
		var source string

		switch point.Type {
		case mount.TypeBind:
			source = point.Source
		case mount.TypeVolume:
			source = point.Name
		default:
			continue
		}

		bind := fmt.Sprintf("%s:%s", source, point.Destination)
		if point.Mode != "" {
			bind += ":" + point.Mode
		}

		binds = append(binds, bind)
	}

	return binds
}

// endpointConfig keeps the user-controlled part of an endpoint: static addressing,
// aliases, links and driver options. Runtime-assigned IDs and addresses are dropped.
func endpointConfig(endpoint *dockerNetworkType.EndpointSettings) *dockerNetworkType.EndpointSettings {
	settings := &dockerNetworkType.EndpointSettings{
		Links:   slices.Clone(endpoint.Links),
		Aliases: slices.Clone(endpoint.Aliases),
	}

	if endpoint.IPAMConfig != nil {
		ipam := *endpoint.IPAMConfig
		settings.IPAMConfig = &ipam
	}

	if len(endpoint.DriverOpts) > 0 {
		settings.DriverOpts = maps.Clone(endpoint.DriverOpts)
	}

	return settings
}

func clonePortMap(ports nat.PortMap) nat.PortMap {
	cloned := make(nat.PortMap, len(ports))
	for port, bindings := range ports {
		cloned[port] = slices.Clone(bindings)
	}

	return cloned
}

func exposedPorts(ports nat.PortMap) nat.PortSet {
	exposed := make(nat.PortSet, len(ports))
	for port := range ports {
		exposed[port] = struct{}{}
	}

	return exposed
}

func hasAnyPrefix(value string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}

	return false
}
