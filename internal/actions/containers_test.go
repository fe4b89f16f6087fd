package actions_test

import (
	"context"
	"regexp"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/tagwatch/internal/actions"
	"github.com/nicholas-fedor/tagwatch/internal/actions/mocks"
	"github.com/nicholas-fedor/tagwatch/pkg/container"
)

var _ = ginkgo.Describe("container inventory", func() {
	var (
		ctx    context.Context
		client *mocks.MockClient
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		client = mocks.NewMockClient([]*mocks.MockContainer{
			{Name: "sonarr", ImageRef: "lscr.io/linuxserver/sonarr:latest", ImageID: "sha256:s1", Running: true},
			{Name: "sonarr-old", ImageRef: "linuxserver/sonarr:4.0.0", ImageID: "sha256:s0"},
			{Name: "db", ImageRef: "postgres:14", ImageID: "sha256:p1", Running: true},
			{Name: "local", ImageRef: "localhost:5000/sonarr:dev", ImageID: "sha256:l1"},
		}, []container.Image{
			{ID: "sha256:s1", RepoTags: []string{"lscr.io/linuxserver/sonarr:latest", "lscr.io/linuxserver/sonarr:4.0.2"}},
			{ID: "sha256:s0", RepoTags: []string{"linuxserver/sonarr:4.0.0"}},
		})
	})

	ginkgo.Describe("FindContainers", func() {
		ginkgo.It("should match the repository on any registry and in any state", func() {
			found, err := actions.FindContainers(ctx, client, "linuxserver/sonarr")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(found).To(gomega.HaveLen(2))
			gomega.Expect(found[0].Name).To(gomega.Equal("sonarr"))
			gomega.Expect(found[1].Name).To(gomega.Equal("sonarr-old"))
		})

		ginkgo.It("should order containers oldest first", func() {
			client = mocks.NewMockClient([]*mocks.MockContainer{
				{Name: "app-a", ImageRef: "acme/app:latest", Created: 300},
				{Name: "app-b", ImageRef: "acme/app:1.0.0", Created: 100},
				{Name: "app-c", ImageRef: "acme/app:latest", Created: 200},
			}, nil)

			found, err := actions.FindContainers(ctx, client, "acme/app")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(found).To(gomega.HaveLen(3))
			gomega.Expect([]string{found[0].Name, found[1].Name, found[2].Name}).
				To(gomega.Equal([]string{"app-b", "app-c", "app-a"}))
		})

		ginkgo.It("should apply the implicit library namespace", func() {
			found, err := actions.FindContainers(ctx, client, "library/postgres")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(found).To(gomega.HaveLen(1))
			gomega.Expect(found[0].Name).To(gomega.Equal("db"))
		})

		ginkgo.It("should require the configured registry", func() {
			found, err := actions.FindContainers(ctx, client, "lscr.io/linuxserver/sonarr")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(found).To(gomega.HaveLen(1))
			gomega.Expect(found[0].Name).To(gomega.Equal("sonarr"))
		})
	})

	ginkgo.Describe("CurrentTag", func() {
		pattern := regexp.MustCompile(`^\d+\.\d+\.\d+$`)

		ginkgo.It("should find the version tag of the running image", func() {
			found, err := actions.FindContainers(ctx, client, "linuxserver/sonarr")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			tag, ok := actions.CurrentTag(ctx, client, found[0], pattern)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(tag).To(gomega.Equal("4.0.2"))

			tag, ok = actions.CurrentTag(ctx, client, found[1], pattern)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(tag).To(gomega.Equal("4.0.0"))
		})

		ginkgo.It("should only accept tags matched as a whole", func() {
			client = mocks.NewMockClient([]*mocks.MockContainer{
				{Name: "app", ImageRef: "acme/app:latest", ImageID: "sha256:a1", Running: true},
			}, []container.Image{
				{ID: "sha256:a1", RepoTags: []string{"acme/app:latest", "acme/app:v1.2.3", "acme/app:1.2.3-rc1", "acme/app:1.2.3"}},
			})

			tag, ok := actions.CurrentTag(ctx, client, container.Container{Name: "app", ImageRef: "acme/app:latest"},
				regexp.MustCompile(`\d+\.\d+\.\d+`))
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(tag).To(gomega.Equal("1.2.3"))
		})

		ginkgo.It("should fail without a matching local tag", func() {
			_, ok := actions.CurrentTag(ctx, client, container.Container{Name: "db", ImageRef: "postgres:14"}, pattern)
			gomega.Expect(ok).To(gomega.BeFalse())

			_, ok = actions.CurrentTag(ctx, client, container.Container{Name: "gone", ImageRef: "postgres:14"}, pattern)
			gomega.Expect(ok).To(gomega.BeFalse())
		})
	})
})
