package actions

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/tagwatch/pkg/metrics"
	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

// RunUpdatesWithNotifications performs one update cycle and returns its metric.
//
// Notifications are queued by the updater as images are classified; this only
// converts the cycle report into a metric and logs the outcome.
//
// Parameters:
//   - ctx: Context for the cycle.
//   - updater: Updater carrying the runtime client, resolver, state store and notifier.
//   - images: Tracked images.
//   - params: Cycle options.
//
// Returns:
//   - *metrics.Metric: Counts of the cycle.
func RunUpdatesWithNotifications(
	ctx context.Context,
	updater *Updater,
	images []types.TagConfig,
	params types.UpdateParams,
) *metrics.Metric {
	report, err := updater.CheckAndUpdate(ctx, images, params)
	if err != nil {
		logrus.WithError(err).Warn("Update cycle completed with errors")
	}

	metric := metrics.NewMetric(report)

	logrus.WithFields(logrus.Fields{
		"checked":  metric.Checked,
		"updates":  metric.Updates,
		"rebuilds": metric.Rebuilds,
		"failed":   metric.Failed,
		"skipped":  len(report.Skipped()),
	}).Info("Update cycle completed")

	return metric
}
