package actions_test

import (
	"context"
	"strings"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	dockerNetworkType "github.com/docker/docker/api/types/network"

	"github.com/nicholas-fedor/tagwatch/internal/actions"
	"github.com/nicholas-fedor/tagwatch/internal/actions/mocks"
	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

func webContainer(name string) *mocks.MockContainer {
	return &mocks.MockContainer{
		Name:     name,
		ImageRef: "nginx:1.26",
		ImageID:  "sha256:old",
		Running:  true,
		Networks: map[string]*dockerNetworkType.EndpointSettings{
			"bridge":  {Aliases: []string{name}},
			"backend": {Aliases: []string{name + "-api"}},
		},
	}
}

func hasBackup(names []string) bool {
	for _, name := range names {
		if strings.Contains(name, "_backup_") {
			return true
		}
	}

	return false
}

var _ = ginkgo.Describe("container replacement", func() {
	var (
		ctx    context.Context
		client *mocks.MockClient
		params types.UpdateParams
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		client = mocks.NewMockClient([]*mocks.MockContainer{webContainer("web")}, nil)
		params = types.UpdateParams{StopTimeout: time.Second}
	})

	ginkgo.It("should name backups after the container and the time", func() {
		gomega.Expect(actions.BackupName("web", time.Unix(1700000000, 0))).To(gomega.Equal("web_backup_1700000000"))
	})

	ginkgo.When("everything succeeds", func() {
		ginkgo.It("should run the new image under the original name", func() {
			gomega.Expect(actions.Replace(ctx, client, "web", "nginx", "1.27", params)).To(gomega.Succeed())

			gomega.Expect(client.Names()).To(gomega.Equal([]string{"web"}))

			web, _ := client.Container("web")
			gomega.Expect(web.ImageRef).To(gomega.Equal("nginx:1.27"))
			gomega.Expect(web.Running).To(gomega.BeTrue())
			gomega.Expect(web.Networks).To(gomega.HaveKey("bridge"))
			gomega.Expect(web.Networks).To(gomega.HaveKey("backend"))
			gomega.Expect(web.Spec.Config.Env).To(gomega.Equal([]string{"TZ=UTC"}))
		})

		ginkgo.It("should stop and back up the original before creating the replacement", func() {
			gomega.Expect(actions.Replace(ctx, client, "web", "nginx", "1.27", params)).To(gomega.Succeed())

			gomega.Expect(client.Calls[0]).To(gomega.Equal("inspect web"))
			gomega.Expect(client.Calls[1]).To(gomega.Equal("stop web"))
			gomega.Expect(client.Calls[2]).To(gomega.HavePrefix("rename web web_backup_"))
			gomega.Expect(client.Calls[3]).To(gomega.Equal("create web"))
			gomega.Expect(client.Calls[4]).To(gomega.Equal("start web"))
			gomega.Expect(client.Calls[5]).To(gomega.Equal("connect backend"))
			gomega.Expect(client.Calls[6]).To(gomega.HavePrefix("remove web_backup_"))
		})
	})

	ginkgo.When("creation fails", func() {
		ginkgo.It("should restore and restart the original container", func() {
			client.FailCreate["web"] = true

			gomega.Expect(actions.Replace(ctx, client, "web", "nginx", "1.27", params)).NotTo(gomega.Succeed())

			gomega.Expect(client.Names()).To(gomega.Equal([]string{"web"}))
			gomega.Expect(hasBackup(client.Names())).To(gomega.BeFalse())

			web, _ := client.Container("web")
			gomega.Expect(web.ImageRef).To(gomega.Equal("nginx:1.26"))
			gomega.Expect(web.Running).To(gomega.BeTrue())
		})
	})

	ginkgo.When("the replacement does not start", func() {
		ginkgo.It("should remove it and restore the original container", func() {
			client.FailStartImages["nginx:1.27"] = true

			err := actions.Replace(ctx, client, "web", "nginx", "1.27", params)
			gomega.Expect(err).To(gomega.MatchError(mocks.ErrInjected))

			gomega.Expect(client.Names()).To(gomega.Equal([]string{"web"}))
			gomega.Expect(hasBackup(client.Names())).To(gomega.BeFalse())

			web, _ := client.Container("web")
			gomega.Expect(web.ImageRef).To(gomega.Equal("nginx:1.26"))
			gomega.Expect(web.Running).To(gomega.BeTrue())
		})
	})

	ginkgo.When("an additional network cannot be attached", func() {
		ginkgo.It("should still report success and remove the backup", func() {
			client.FailConnect["backend"] = true

			gomega.Expect(actions.Replace(ctx, client, "web", "nginx", "1.27", params)).To(gomega.Succeed())
			gomega.Expect(client.Names()).To(gomega.Equal([]string{"web"}))
		})
	})

	ginkgo.When("the container does not exist", func() {
		ginkgo.It("should fail without side effects", func() {
			gomega.Expect(actions.Replace(ctx, client, "missing", "nginx", "1.27", params)).NotTo(gomega.Succeed())
			gomega.Expect(client.Calls).To(gomega.Equal([]string{"inspect missing"}))
		})
	})

	ginkgo.When("running dry", func() {
		ginkgo.It("should report success without touching the runtime", func() {
			params.DryRun = true

			gomega.Expect(actions.Replace(ctx, client, "web", "nginx", "1.27", params)).To(gomega.Succeed())
			gomega.Expect(client.Calls).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("UpdateMany", func() {
		ginkgo.It("should continue past failures", func() {
			client = mocks.NewMockClient([]*mocks.MockContainer{webContainer("a"), webContainer("b"), webContainer("c")}, nil)
			client.FailCreate["b"] = true

			results := actions.UpdateMany(ctx, client, []string{"a", "b", "c"}, "nginx", "1.27", params)
			gomega.Expect(results).To(gomega.Equal(map[string]bool{"a": true, "b": false, "c": true}))

			c, _ := client.Container("c")
			gomega.Expect(c.ImageRef).To(gomega.Equal("nginx:1.27"))
			b, _ := client.Container("b")
			gomega.Expect(b.ImageRef).To(gomega.Equal("nginx:1.26"))
		})
	})
})
