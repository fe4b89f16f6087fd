package container_test

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	dockerContainerType "github.com/docker/docker/api/types/container"
	dockerImageType "github.com/docker/docker/api/types/image"
	dockerNetworkType "github.com/docker/docker/api/types/network"
	dockerClient "github.com/docker/docker/client"

	"github.com/nicholas-fedor/tagwatch/pkg/container"
	"github.com/nicholas-fedor/tagwatch/pkg/container/mocks"
)

var _ = ginkgo.Describe("the client", func() {
	var (
		mockServer *ghttp.Server
		client     container.Client
		ctx        context.Context
	)

	ginkgo.BeforeEach(func() {
		mockServer = ghttp.NewServer()
		docker, err := dockerClient.NewClientWithOpts(
			dockerClient.WithHost(mockServer.URL()),
			dockerClient.WithHTTPClient(mockServer.HTTPTestServer.Client()))
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		client = container.NewClientWithAPI(docker)
		ctx = context.Background()
	})

	ginkgo.AfterEach(func() {
		mockServer.Close()
	})

	ginkgo.Describe("ListContainers", func() {
		ginkgo.It("should list containers in every state with their first name", func() {
			mockServer.AppendHandlers(mocks.ListContainersHandler(
				dockerContainerType.Summary{
					ID:      "aaaaaaaaaaaaaaaa",
					Names:   []string{"/web"},
					Image:   "nginx:1.27",
					State:   "running",
					Created: 1700000000,
				},
				dockerContainerType.Summary{
					ID:    "bbbbbbbbbbbbbbbb",
					Names: []string{"/db"},
					Image: "postgres:16",
					State: "exited",
				},
			))

			containers, err := client.ListContainers(ctx)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(containers).To(gomega.Equal([]container.Container{
				{Name: "web", ID: "aaaaaaaaaaaaaaaa", State: "running", ImageRef: "nginx:1.27", Created: 1700000000},
				{Name: "db", ID: "bbbbbbbbbbbbbbbb", State: "exited", ImageRef: "postgres:16"},
			}))
		})

		ginkgo.It("should return an error when the runtime fails", func() {
			mockServer.AppendHandlers(mocks.ErrorResponse(http.StatusInternalServerError, "boom"))

			_, err := client.ListContainers(ctx)
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("InspectContainer", func() {
		ginkgo.It("should fail for a missing container", func() {
			mockServer.AppendHandlers(mocks.InspectContainerHandler("ghost", nil))

			_, err := client.InspectContainer(ctx, "ghost")
			gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("ghost")))
		})
	})

	ginkgo.Describe("container lifecycle calls", func() {
		ginkgo.It("should stop, rename, create, start, connect and remove", func() {
			mockServer.AppendHandlers(
				mocks.StopContainerHandler("web", mocks.Found),
				mocks.RenameContainerHandler("web", "web_backup_1"),
				mocks.CreateContainerHandler("web", "cccccccccccccccc", func(request dockerContainerType.CreateRequest) {
					gomega.Expect(request.Image).To(gomega.Equal("nginx:1.28"))
				}),
				mocks.StartContainerHandler("cccccccccccccccc", mocks.Found),
				mocks.ConnectNetworkHandler("backend", mocks.Found),
				mocks.RemoveContainerHandler("web_backup_1", mocks.Found),
			)

			gomega.Expect(client.StopContainer(ctx, "web", 10*time.Second)).To(gomega.Succeed())
			gomega.Expect(client.RenameContainer(ctx, "web", "web_backup_1")).To(gomega.Succeed())

			id, err := client.CreateContainer(ctx, "web", container.CreateSpec{
				Config:     &dockerContainerType.Config{Image: "nginx:1.28"},
				HostConfig: &dockerContainerType.HostConfig{},
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(id).To(gomega.Equal("cccccccccccccccc"))

			gomega.Expect(client.StartContainer(ctx, id)).To(gomega.Succeed())
			gomega.Expect(client.ConnectNetwork(ctx, "backend", id, &dockerNetworkType.EndpointSettings{})).
				To(gomega.Succeed())
			gomega.Expect(client.RemoveContainer(ctx, "web_backup_1")).To(gomega.Succeed())
		})

		ginkgo.It("should surface start failures", func() {
			mockServer.AppendHandlers(mocks.StartContainerHandler("web", mocks.Missing))

			gomega.Expect(client.StartContainer(ctx, "web")).NotTo(gomega.Succeed())
		})
	})

	ginkgo.Describe("PullImage", func() {
		ginkgo.It("should succeed when the stream carries no error", func() {
			mockServer.AppendHandlers(mocks.PullImageHandler(
				`{"status":"Pulling from library/nginx","id":"1.28"}`,
				`{"status":"Digest: sha256:abc"}`,
				`{"status":"Status: Downloaded newer image for nginx:1.28"}`,
			))

			gomega.Expect(client.PullImage(ctx, "nginx", "1.28")).To(gomega.Succeed())
		})

		ginkgo.It("should fail when the stream reports an error", func() {
			mockServer.AppendHandlers(mocks.PullImageHandler(
				`{"status":"Pulling from library/nginx","id":"9.99"}`,
				`{"errorDetail":{"message":"manifest unknown"},"error":"manifest unknown"}`,
			))

			gomega.Expect(client.PullImage(ctx, "nginx", "9.99")).
				To(gomega.MatchError(gomega.ContainSubstring("manifest unknown")))
		})
	})

	ginkgo.Describe("images", func() {
		ginkgo.It("should list images for a reference", func() {
			mockServer.AppendHandlers(mocks.ListImagesHandler(
				dockerImageType.Summary{ID: "sha256:1111", RepoTags: []string{"nginx:1.27", "nginx:latest"}, Created: 100},
			))

			images, err := client.ListImages(ctx, "nginx")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(images).To(gomega.HaveLen(1))
			gomega.Expect(images[0].Tags()).To(gomega.Equal([]string{"1.27", "latest"}))

			gomega.Expect(mockServer.ReceivedRequests()[0].URL.Query().Get("filters")).
				To(gomega.ContainSubstring(`"reference"`))
		})

		ginkgo.It("should report images still in use", func() {
			mockServer.AppendHandlers(mocks.RemoveImageHandler("nginx:1.26", http.StatusConflict))

			err := client.RemoveImage(ctx, "nginx:1.26")
			gomega.Expect(errors.Is(err, container.ErrImageInUse)).To(gomega.BeTrue())
		})

		ginkgo.It("should remove unused images", func() {
			mockServer.AppendHandlers(mocks.RemoveImageHandler("nginx:1.25", http.StatusOK))

			gomega.Expect(client.RemoveImage(ctx, "nginx:1.25")).To(gomega.Succeed())
		})
	})
})
