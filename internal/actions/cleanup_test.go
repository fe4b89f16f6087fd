package actions_test

import (
	"context"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/tagwatch/internal/actions"
	"github.com/nicholas-fedor/tagwatch/internal/actions/mocks"
	"github.com/nicholas-fedor/tagwatch/pkg/container"
)

var _ = ginkgo.Describe("image cleanup", func() {
	var (
		ctx    context.Context
		client *mocks.MockClient
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		client = mocks.NewMockClient(nil, []container.Image{
			{ID: "sha256:a", RepoTags: []string{"app:1.0"}, Created: 100},
			{ID: "sha256:c", RepoTags: []string{"app:1.2"}, Created: 300},
			{ID: "sha256:b", RepoTags: []string{"app:1.1", "app:latest"}, Created: 200},
			{ID: "sha256:d", RepoTags: []string{"other:9.9"}, Created: 400},
		})
	})

	ginkgo.It("should keep the newest tags and remove the rest", func() {
		removed := actions.Prune(ctx, client, "app", 2, false)

		gomega.Expect(removed).To(gomega.Equal([]string{"app:latest", "app:1.0"}))
		gomega.Expect(client.RemovedImages).To(gomega.Equal([]string{"app:latest", "app:1.0"}))
	})

	ginkgo.It("should skip images still in use", func() {
		client.InUse["app:latest"] = true

		gomega.Expect(actions.Prune(ctx, client, "app", 2, false)).To(gomega.Equal([]string{"app:1.0"}))
		gomega.Expect(client.Calls).To(gomega.ContainElement("rmi app:latest"))
	})

	ginkgo.It("should do nothing when there are no more tags than kept", func() {
		gomega.Expect(actions.Prune(ctx, client, "app", 4, false)).To(gomega.BeEmpty())
		gomega.Expect(client.Calls).To(gomega.BeEmpty())
	})

	ginkgo.It("should keep at least one tag", func() {
		gomega.Expect(actions.Prune(ctx, client, "app", 0, false)).To(gomega.HaveLen(3))
		gomega.Expect(client.RemovedImages).NotTo(gomega.ContainElement("app:1.2"))
	})

	ginkgo.It("should only log in dry-run mode", func() {
		gomega.Expect(actions.Prune(ctx, client, "app", 2, true)).To(gomega.HaveLen(2))
		gomega.Expect(client.RemovedImages).To(gomega.BeEmpty())
	})
})
