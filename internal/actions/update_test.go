package actions_test

import (
	"context"
	"errors"
	"regexp"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/tagwatch/internal/actions"
	"github.com/nicholas-fedor/tagwatch/internal/actions/mocks"
	"github.com/nicholas-fedor/tagwatch/pkg/container"
	"github.com/nicholas-fedor/tagwatch/pkg/matcher"
	"github.com/nicholas-fedor/tagwatch/pkg/state"
	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

const (
	sonarr       = "linuxserver/sonarr"
	semverRegex  = `^\d+\.\d+\.\d+$`
	digestBefore = "sha256:aaaa"
	digestAfter  = "sha256:bbbb"
)

var _ = ginkgo.Describe("the update cycle", func() {
	var (
		ctx      context.Context
		client   *mocks.MockClient
		resolver *mocks.Resolver
		store    *mocks.Store
		notifier *mocks.Notifier
		events   []types.Event
		updater  *actions.Updater
		cfg      types.TagConfig
		params   types.UpdateParams
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		client = mocks.NewMockClient(nil, nil)
		resolver = &mocks.Resolver{Results: map[string]matcher.Result{}}
		store = &mocks.Store{}
		notifier = &mocks.Notifier{}
		events = nil
		cfg = types.TagConfig{Image: sonarr, Regex: semverRegex, BaseTag: "latest", KeepVersions: 1}
		params = types.UpdateParams{}
	})

	run := func() types.Report {
		patterns := types.Patterns{semverRegex: regexp.MustCompile(semverRegex)}
		updater = actions.NewUpdater(client, resolver, store, notifier, patterns).
			OnProgress(func(event types.Event) { events = append(events, event) })

		report, err := updater.CheckAndUpdate(ctx, []types.TagConfig{cfg}, params)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		return report
	}

	storeTag := func(tag, digest string) state.ImageState {
		stored := state.New("latest", tag, digest)
		store.States = map[string]state.ImageState{sonarr: stored}

		return stored
	}

	ginkgo.When("the base tag digest is unchanged", func() {
		ginkgo.It("should report no update and leave the state alone", func() {
			stored := storeTag("4.0.1", digestBefore)
			resolver.Results[sonarr] = matcher.Result{Tag: "4.0.1", Digest: digestBefore}

			report := run()

			gomega.Expect(report.Fresh()).To(gomega.HaveLen(1))
			gomega.Expect(report.Updated()).To(gomega.BeEmpty())
			gomega.Expect(store.States[sonarr]).To(gomega.Equal(stored))
			gomega.Expect(notifier.Kinds()).To(gomega.Equal([]types.EventKind{types.EventNoUpdate}))
			gomega.Expect(events).To(gomega.HaveLen(2))
			gomega.Expect(events[0]).To(gomega.Equal(types.Event{
				Kind: types.EventCheckingImage, Image: sonarr, BaseTag: "latest", Progress: 1, Total: 1,
			}))
			gomega.Expect(events[1].Kind).To(gomega.Equal(types.EventNoUpdate))
		})
	})

	ginkgo.When("the base tag moved to another version", func() {
		ginkgo.It("should report a version update and record the new state", func() {
			storeTag("4.0.1", digestBefore)
			resolver.Results[sonarr] = matcher.Result{Tag: "4.0.2", Digest: digestAfter}

			report := run()

			gomega.Expect(report.Updated()).To(gomega.HaveLen(1))
			gomega.Expect(report.Updated()[0].Classification()).To(gomega.Equal(types.VersionUpdate))
			gomega.Expect(notifier.Events).To(gomega.Equal([]types.Event{{
				Kind:       types.EventUpdateFound,
				Image:      sonarr,
				BaseTag:    "latest",
				OldVersion: "4.0.1",
				NewVersion: "4.0.2",
				Digest:     digestAfter,
			}}))
			gomega.Expect(store.States[sonarr].Tag).To(gomega.Equal("4.0.2"))
			gomega.Expect(store.States[sonarr].Digest).To(gomega.Equal(digestAfter))
			gomega.Expect(client.Pulled).To(gomega.BeEmpty())
		})
	})

	ginkgo.When("the version was rebuilt in place", func() {
		ginkgo.It("should report a rebuild", func() {
			storeTag("4.0.2", digestBefore)
			resolver.Results[sonarr] = matcher.Result{Tag: "4.0.2", Digest: digestAfter}

			report := run()

			gomega.Expect(report.Updated()).To(gomega.HaveLen(1))
			gomega.Expect(report.Updated()[0].Classification()).To(gomega.Equal(types.Rebuild))
			gomega.Expect(notifier.Kinds()).To(gomega.Equal([]types.EventKind{types.EventImageRebuilt}))
			gomega.Expect(store.States[sonarr].Digest).To(gomega.Equal(digestAfter))
		})
	})

	ginkgo.When("there is no stored state", func() {
		ginkgo.BeforeEach(func() {
			resolver.Results[sonarr] = matcher.Result{Tag: "4.0.2", Digest: digestAfter}
		})

		ginkgo.It("should take the previous version from the running container", func() {
			client = mocks.NewMockClient(
				[]*mocks.MockContainer{{Name: "sonarr", ImageRef: "linuxserver/sonarr:latest", ImageID: "sha256:img1", Running: true}},
				[]container.Image{{ID: "sha256:img1", RepoTags: []string{"linuxserver/sonarr:latest", "linuxserver/sonarr:4.0.1"}}},
			)

			run()

			gomega.Expect(notifier.Events).To(gomega.HaveLen(1))
			gomega.Expect(notifier.Events[0].OldVersion).To(gomega.Equal("4.0.1"))
		})

		ginkgo.It("should fall back to an unknown previous version", func() {
			report := run()

			gomega.Expect(notifier.Events).To(gomega.HaveLen(1))
			gomega.Expect(notifier.Events[0].Kind).To(gomega.Equal(types.EventUpdateFound))
			gomega.Expect(notifier.Events[0].OldVersion).To(gomega.Equal("unknown"))
			gomega.Expect(report.Updated()[0].OldTag()).To(gomega.Equal("unknown"))
		})
	})

	ginkgo.When("the base tag cannot be resolved", func() {
		ginkgo.It("should skip the image", func() {
			stored := storeTag("4.0.1", digestBefore)

			report := run()

			gomega.Expect(report.Skipped()).To(gomega.HaveLen(1))
			gomega.Expect(notifier.Events).To(gomega.BeEmpty())
			gomega.Expect(store.States[sonarr]).To(gomega.Equal(stored))
		})
	})

	ginkgo.When("the regex has no compiled pattern", func() {
		ginkgo.It("should skip the image without resolving it", func() {
			cfg.Regex = "^other$"

			report := run()

			gomega.Expect(report.Skipped()).To(gomega.HaveLen(1))
			gomega.Expect(resolver.Calls).To(gomega.BeZero())
		})
	})

	ginkgo.Describe("auto-update", func() {
		ginkgo.BeforeEach(func() {
			cfg.AutoUpdate = true
			storeTag("4.0.1", digestBefore)
			resolver.Results[sonarr] = matcher.Result{Tag: "4.0.2", Digest: digestAfter}
			client = mocks.NewMockClient([]*mocks.MockContainer{
				{Name: "sonarr", ImageRef: "lscr.io/linuxserver/sonarr:latest", ImageID: "sha256:img1", Running: true},
				{Name: "sonarr-2", ImageRef: "linuxserver/sonarr:4.0.1", ImageID: "sha256:img1", Running: true},
				{Name: "db", ImageRef: "postgres:14", ImageID: "sha256:pg", Running: true},
			}, []container.Image{
				{ID: "sha256:new", RepoTags: []string{"linuxserver/sonarr:4.0.2", "linuxserver/sonarr:latest"}, Created: 300},
				{ID: "sha256:img1", RepoTags: []string{"linuxserver/sonarr:4.0.1"}, Created: 200},
			})
		})

		ginkgo.It("should pull, replace every container and persist the state", func() {
			report := run()

			gomega.Expect(client.Pulled).To(gomega.Equal([]string{"linuxserver/sonarr:latest", "linuxserver/sonarr:4.0.2"}))

			for _, name := range []string{"sonarr", "sonarr-2"} {
				replaced, ok := client.Container(name)
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(replaced.ImageRef).To(gomega.Equal("linuxserver/sonarr:4.0.2"))
				gomega.Expect(replaced.Running).To(gomega.BeTrue())
			}

			db, _ := client.Container("db")
			gomega.Expect(db.ImageRef).To(gomega.Equal("postgres:14"))

			gomega.Expect(report.Applied()).To(gomega.HaveLen(1))
			gomega.Expect(store.States[sonarr].Tag).To(gomega.Equal("4.0.2"))
			gomega.Expect(notifier.Events[0].AutoUpdate).To(gomega.BeTrue())
			gomega.Expect(client.RemovedImages).To(gomega.BeEmpty())
		})

		ginkgo.It("should not persist the state when the base tag cannot be pulled", func() {
			client.PullErrors["linuxserver/sonarr:latest"] = errors.New("manifest unknown")

			report := run()

			gomega.Expect(report.Failed()).To(gomega.HaveLen(1))
			gomega.Expect(store.States[sonarr].Tag).To(gomega.Equal("4.0.1"))
			gomega.Expect(store.States[sonarr].Digest).To(gomega.Equal(digestBefore))

			sonarrContainer, _ := client.Container("sonarr")
			gomega.Expect(sonarrContainer.ImageRef).To(gomega.Equal("lscr.io/linuxserver/sonarr:latest"))

			// The next cycle reports the same update again.
			notifier.Events = nil
			run()
			gomega.Expect(notifier.Events).To(gomega.HaveLen(1))
			gomega.Expect(notifier.Events[0].Kind).To(gomega.Equal(types.EventUpdateFound))
			gomega.Expect(notifier.Events[0].OldVersion).To(gomega.Equal("4.0.1"))
		})

		ginkgo.It("should count a partial replacement as success", func() {
			client.FailCreate["sonarr-2"] = true

			report := run()

			gomega.Expect(report.Applied()).To(gomega.HaveLen(1))
			gomega.Expect(report.Applied()[0].FailedContainers()).To(gomega.Equal([]string{"sonarr-2"}))
			gomega.Expect(store.States[sonarr].Tag).To(gomega.Equal("4.0.2"))
		})

		ginkgo.It("should fail when every replacement fails", func() {
			client.FailCreate["sonarr"] = true
			client.FailCreate["sonarr-2"] = true

			report := run()

			gomega.Expect(report.Failed()).To(gomega.HaveLen(1))
			gomega.Expect(store.States[sonarr].Tag).To(gomega.Equal("4.0.1"))
		})

		ginkgo.It("should succeed with no containers to replace", func() {
			client = mocks.NewMockClient(nil, nil)

			report := run()

			gomega.Expect(report.Applied()).To(gomega.HaveLen(1))
			gomega.Expect(client.Pulled).To(gomega.HaveLen(2))
			gomega.Expect(store.States[sonarr].Tag).To(gomega.Equal("4.0.2"))
		})

		ginkgo.It("should prune old tags when enabled", func() {
			cfg.CleanupOldImages = true

			run()

			gomega.Expect(client.RemovedImages).To(gomega.Equal([]string{"linuxserver/sonarr:latest", "linuxserver/sonarr:4.0.1"}))
		})

		ginkgo.It("should change nothing in dry-run mode", func() {
			params.DryRun = true
			store.DryRun = true
			cfg.CleanupOldImages = true

			report := run()

			gomega.Expect(report.Applied()).To(gomega.HaveLen(1))
			gomega.Expect(client.Pulled).To(gomega.BeEmpty())
			gomega.Expect(client.RemovedImages).To(gomega.BeEmpty())
			gomega.Expect(client.Calls).NotTo(gomega.ContainElement("stop sonarr"))
			gomega.Expect(store.States[sonarr].Tag).To(gomega.Equal("4.0.1"))
		})
	})

	ginkgo.It("should check images in order and report each once", func() {
		other := types.TagConfig{Image: "library/nginx", Regex: semverRegex}
		resolver.Results[sonarr] = matcher.Result{Tag: "4.0.2", Digest: digestAfter}

		patterns := types.Patterns{semverRegex: regexp.MustCompile(semverRegex)}
		updater = actions.NewUpdater(client, resolver, store, nil, patterns).
			OnProgress(func(event types.Event) { events = append(events, event) })

		report, err := updater.CheckAndUpdate(ctx, []types.TagConfig{cfg, other}, params)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		gomega.Expect(report.All()).To(gomega.HaveLen(2))
		gomega.Expect(events[0].Image).To(gomega.Equal(sonarr))
		gomega.Expect(events[len(events)-1]).To(gomega.Equal(types.Event{
			Kind: types.EventCheckingImage, Image: "library/nginx", BaseTag: "latest", Progress: 2, Total: 2,
		}))
		gomega.Expect(store.Saves).To(gomega.Equal(1))
	})
})
