package container_test

import (
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/go-connections/nat"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	dockerContainerType "github.com/docker/docker/api/types/container"
	dockerNetworkType "github.com/docker/docker/api/types/network"

	"github.com/nicholas-fedor/tagwatch/pkg/container"
)

const sourceID = "0123456789abcdef0123456789abcdef"

func inspected(networkMode string, networks map[string]*dockerNetworkType.EndpointSettings) dockerContainerType.InspectResponse {
	return dockerContainerType.InspectResponse{
		ContainerJSONBase: &dockerContainerType.ContainerJSONBase{
			ID:   sourceID,
			Name: "/web",
			HostConfig: &dockerContainerType.HostConfig{
				NetworkMode:   dockerContainerType.NetworkMode(networkMode),
				RestartPolicy: dockerContainerType.RestartPolicy{Name: dockerContainerType.RestartPolicyUnlessStopped},
				PortBindings: nat.PortMap{
					"80/tcp": []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: "8080"}},
				},
				CapAdd:      []string{"NET_ADMIN"},
				SecurityOpt: []string{"no-new-privileges"},
				Runtime:     "runc",
				Resources: dockerContainerType.Resources{
					Memory:    512 * 1024 * 1024,
					CPUShares: 512,
					Devices: []dockerContainerType.DeviceMapping{
						{PathOnHost: "/dev/dri", PathInContainer: "/dev/dri", CgroupPermissions: "rwm"},
					},
				},
			},
		},
		Config: &dockerContainerType.Config{
			Hostname:   "webhost",
			User:       "1000:1000",
			WorkingDir: "/srv",
			Env:        []string{"PATH=/usr/bin", "HOSTNAME=abc", "TZ=UTC"},
			Cmd:        []string{"nginx", "-g", "daemon off;"},
			Labels: map[string]string{
				"com.docker.compose.project": "site",
				"com.docker.internal.thing":  "drop",
				"org.example.team":           "web",
			},
		},
		Mounts: []dockerContainerType.MountPoint{
			{Type: mount.TypeBind, Source: "/srv/www", Destination: "/usr/share/nginx/html", Mode: "ro"},
			{Type: mount.TypeVolume, Name: "cache", Source: "/var/lib/docker/volumes/cache/_data", Destination: "/cache"},
			{Type: mount.TypeTmpfs, Destination: "/tmp"},
		},
		NetworkSettings: &dockerContainerType.NetworkSettings{Networks: networks},
	}
}

var _ = ginkgo.Describe("BuildCreateSpec", func() {
	ginkgo.When("the container has its own network namespace", func() {
		var spec container.CreateSpec

		ginkgo.BeforeEach(func() {
			spec = container.BuildCreateSpec(inspected("frontend", map[string]*dockerNetworkType.EndpointSettings{
				"frontend": {
					Aliases:    []string{"web"},
					IPAMConfig: &dockerNetworkType.EndpointIPAMConfig{IPv4Address: "172.20.0.10"},
					IPAddress:  "172.20.0.10",
					EndpointID: "runtime-assigned",
				},
				"backend": {Aliases: []string{"web-internal"}},
			}), "nginx:1.28")
		})

		ginkgo.It("should carry over process settings", func() {
			gomega.Expect(spec.Config.Image).To(gomega.Equal("nginx:1.28"))
			gomega.Expect(spec.Config.Hostname).To(gomega.Equal("webhost"))
			gomega.Expect(spec.Config.User).To(gomega.Equal("1000:1000"))
			gomega.Expect(spec.Config.WorkingDir).To(gomega.Equal("/srv"))
			gomega.Expect([]string(spec.Config.Cmd)).To(gomega.Equal([]string{"nginx", "-g", "daemon off;"}))
		})

		ginkgo.It("should drop runtime-injected environment variables", func() {
			gomega.Expect(spec.Config.Env).To(gomega.Equal([]string{"TZ=UTC"}))
		})

		ginkgo.It("should drop runtime labels but keep compose labels", func() {
			gomega.Expect(spec.Config.Labels).To(gomega.Equal(map[string]string{
				"com.docker.compose.project": "site",
				"org.example.team":           "web",
			}))
		})

		ginkgo.It("should translate bind and volume mounts", func() {
			gomega.Expect(spec.HostConfig.Binds).To(gomega.Equal([]string{
				"/srv/www:/usr/share/nginx/html:ro",
				"cache:/cache",
			}))
		})

		ginkgo.It("should carry over host settings", func() {
			gomega.Expect(spec.HostConfig.RestartPolicy.Name).To(gomega.Equal(dockerContainerType.RestartPolicyUnlessStopped))
			gomega.Expect(spec.HostConfig.PortBindings).To(gomega.HaveKey(nat.Port("80/tcp")))
			gomega.Expect(spec.Config.ExposedPorts).To(gomega.HaveKey(nat.Port("80/tcp")))
			gomega.Expect([]string(spec.HostConfig.CapAdd)).To(gomega.Equal([]string{"NET_ADMIN"}))
			gomega.Expect(spec.HostConfig.SecurityOpt).To(gomega.Equal([]string{"no-new-privileges"}))
			gomega.Expect(spec.HostConfig.Runtime).To(gomega.Equal("runc"))
			gomega.Expect(spec.HostConfig.Memory).To(gomega.Equal(int64(512 * 1024 * 1024)))
			gomega.Expect(spec.HostConfig.CPUShares).To(gomega.Equal(int64(512)))
			gomega.Expect(spec.HostConfig.Devices).To(gomega.HaveLen(1))
			gomega.Expect(string(spec.HostConfig.NetworkMode)).To(gomega.Equal("frontend"))
		})

		ginkgo.It("should keep user-controlled endpoint settings of the primary network", func() {
			gomega.Expect(spec.Networking).NotTo(gomega.BeNil())
			endpoint := spec.Networking.EndpointsConfig["frontend"]
			gomega.Expect(endpoint).NotTo(gomega.BeNil())
			gomega.Expect(endpoint.Aliases).To(gomega.Equal([]string{"web"}))
			gomega.Expect(endpoint.IPAMConfig.IPv4Address).To(gomega.Equal("172.20.0.10"))
			gomega.Expect(endpoint.EndpointID).To(gomega.BeEmpty())
			gomega.Expect(endpoint.IPAddress).To(gomega.BeEmpty())
		})

		ginkgo.It("should attach the remaining networks afterwards", func() {
			gomega.Expect(spec.ExtraNetworks).To(gomega.HaveLen(1))
			gomega.Expect(spec.ExtraNetworks).To(gomega.HaveKey("backend"))
		})
	})

	ginkgo.It("should not carry over the auto-generated hostname", func() {
		info := inspected("bridge", nil)
		info.Config.Hostname = sourceID[:12]

		spec := container.BuildCreateSpec(info, "nginx:1.28")
		gomega.Expect(spec.Config.Hostname).To(gomega.BeEmpty())
	})

	ginkgo.It("should treat the default network mode as the bridge network", func() {
		spec := container.BuildCreateSpec(inspected("default", map[string]*dockerNetworkType.EndpointSettings{
			"bridge": {},
		}), "nginx:1.28")

		gomega.Expect(string(spec.HostConfig.NetworkMode)).To(gomega.BeEmpty())
		gomega.Expect(spec.Networking.EndpointsConfig).To(gomega.HaveKey("bridge"))
		gomega.Expect(spec.ExtraNetworks).To(gomega.BeEmpty())
	})

	ginkgo.It("should drop hostname and port bindings in host network mode", func() {
		info := inspected("host", map[string]*dockerNetworkType.EndpointSettings{"host": {}})

		spec := container.BuildCreateSpec(info, "nginx:1.28")
		gomega.Expect(container.SharesNetworkNamespace(info)).To(gomega.BeTrue())
		gomega.Expect(spec.Config.Hostname).To(gomega.BeEmpty())
		gomega.Expect(spec.HostConfig.PortBindings).To(gomega.BeEmpty())
		gomega.Expect(spec.Config.ExposedPorts).To(gomega.BeEmpty())
		gomega.Expect(spec.ExtraNetworks).To(gomega.BeEmpty())
		gomega.Expect(string(spec.HostConfig.NetworkMode)).To(gomega.Equal("host"))
	})

	ginkgo.It("should drop networks too when sharing another container's namespace", func() {
		info := inspected("container:vpn", map[string]*dockerNetworkType.EndpointSettings{
			"frontend": {Aliases: []string{"web"}},
		})

		spec := container.BuildCreateSpec(info, "nginx:1.28")
		gomega.Expect(spec.Config.Hostname).To(gomega.BeEmpty())
		gomega.Expect(spec.HostConfig.PortBindings).To(gomega.BeEmpty())
		gomega.Expect(spec.Networking).To(gomega.BeNil())
		gomega.Expect(spec.ExtraNetworks).To(gomega.BeEmpty())
		gomega.Expect(string(spec.HostConfig.NetworkMode)).To(gomega.Equal("container:vpn"))
	})

	ginkgo.It("should tolerate sparse inspect responses", func() {
		spec := container.BuildCreateSpec(dockerContainerType.InspectResponse{}, "nginx:1.28")

		gomega.Expect(spec.Config.Image).To(gomega.Equal("nginx:1.28"))
		gomega.Expect(spec.HostConfig.Binds).To(gomega.BeEmpty())
	})
})
