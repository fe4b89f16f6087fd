package sorter

import (
	"cmp"
	"math"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/tagwatch/pkg/container"
)

// SortByCreated sorts containers in place by creation time, oldest first. Containers
// created in the same second are ordered by name, and containers without a creation
// time are placed last.
//
// Parameters:
//   - containers: Slice to sort in place.
func SortByCreated(containers []container.Container) {
	slices.SortStableFunc(containers, func(a, b container.Container) int {
		if byTime := cmp.Compare(createdKey(a), createdKey(b)); byTime != 0 {
			return byTime
		}

		return cmp.Compare(a.Name, b.Name)
	})

	logrus.WithField("count", len(containers)).Trace("Sorted containers by creation time")
}

// createdKey maps a missing creation time to the far end of the ordering.
func createdKey(c container.Container) int64 {
	if c.Created <= 0 {
		logrus.WithFields(logrus.Fields{
			"container_id": c.ShortID(),
			"name":         c.Name,
		}).Trace("Container has no creation time, ordering it last")

		return math.MaxInt64
	}

	return c.Created
}
