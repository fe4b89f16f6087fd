package sorter_test

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/tagwatch/pkg/container"
	"github.com/nicholas-fedor/tagwatch/pkg/sorter"
)

func names(containers []container.Container) []string {
	result := make([]string, len(containers))
	for i, c := range containers {
		result[i] = c.Name
	}

	return result
}

var _ = ginkgo.Describe("SortByCreated", func() {
	ginkgo.It("should order containers oldest first", func() {
		containers := []container.Container{
			{Name: "c", Created: 300},
			{Name: "a", Created: 100},
			{Name: "b", Created: 200},
		}

		sorter.SortByCreated(containers)

		gomega.Expect(names(containers)).To(gomega.Equal([]string{"a", "b", "c"}))
	})

	ginkgo.It("should order containers created together by name", func() {
		containers := []container.Container{
			{Name: "web-2", Created: 100},
			{Name: "web-1", Created: 100},
		}

		sorter.SortByCreated(containers)

		gomega.Expect(names(containers)).To(gomega.Equal([]string{"web-1", "web-2"}))
	})

	ginkgo.It("should place containers without a creation time last", func() {
		containers := []container.Container{
			{Name: "unknown", ID: "0123456789abcdef"},
			{Name: "old", Created: 1},
		}

		sorter.SortByCreated(containers)

		gomega.Expect(names(containers)).To(gomega.Equal([]string{"old", "unknown"}))
	})

	ginkgo.It("should accept an empty slice", func() {
		var containers []container.Container

		gomega.Expect(func() { sorter.SortByCreated(containers) }).NotTo(gomega.Panic())
	})
})
