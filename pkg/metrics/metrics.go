package metrics

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

var (
	metrics     *Metrics
	defaultOnce sync.Once
)

// Metric holds data points from one update cycle.
type Metric struct {
	Checked  int // Number of images resolved.
	Updates  int // Number of version updates found.
	Rebuilds int // Number of same-tag rebuilds found.
	Failed   int // Number of updates whose application failed.
}

// Metrics handles processing and exposing cycle metrics.
type Metrics struct {
	channel      chan *Metric       // Channel for queuing metrics.
	checked      prometheus.Gauge   // Gauge for checked images.
	updates      prometheus.Gauge   // Gauge for version updates found.
	rebuilds     prometheus.Gauge   // Gauge for rebuilds found.
	failed       prometheus.Gauge   // Gauge for failed updates.
	total        prometheus.Counter // Counter for total cycles.
	skipped      prometheus.Counter // Counter for skipped cycles.
	dropped      prometheus.Counter // Counter for dropped metrics.
	stopCh       chan struct{}      // Channel for shutdown signaling.
	shutdownOnce sync.Once          // Ensures shutdown is called only once.
	//nolint:containedctx
	ctx    context.Context    // Context for cancellation.
	cancel context.CancelFunc // Cancel function for the context.
}

// NewWithRegistry creates a new Metrics handler with a custom Prometheus registry.
//
// Parameters:
//   - registry: Prometheus registerer to use for metric registration.
//
// Returns:
//   - (*Metrics, error): Metrics handler with Prometheus metrics and goroutine, or an error if registration fails.
func NewWithRegistry(registry prometheus.Registerer) (*Metrics, error) {
	// channelBufferSize sets the metrics channel capacity.
	const channelBufferSize = 10

	ctx, cancel := context.WithCancel(context.Background())

	metrics := &Metrics{
		checked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tagwatch_images_checked",
			Help: "Number of images resolved by tagwatch during the last cycle",
		}),
		updates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tagwatch_updates_found",
			Help: "Number of version updates found during the last cycle",
		}),
		rebuilds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tagwatch_rebuilds_found",
			Help: "Number of images rebuilt under the same tag found during the last cycle",
		}),
		failed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tagwatch_updates_failed",
			Help: "Number of updates that could not be applied during the last cycle",
		}),
		total: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tagwatch_cycles_total",
			Help: "Number of update cycles since tagwatch started",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tagwatch_cycles_skipped_total",
			Help: "Number of skipped update cycles since tagwatch started",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tagwatch_metrics_dropped_total",
			Help: "Number of metrics dropped due to full channel",
		}),
		channel: make(chan *Metric, channelBufferSize),
		stopCh:  make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}

	for _, collector := range []prometheus.Collector{
		metrics.checked,
		metrics.updates,
		metrics.rebuilds,
		metrics.failed,
		metrics.total,
		metrics.skipped,
		metrics.dropped,
	} {
		if err := registry.Register(collector); err != nil {
			cancel()

			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	go metrics.HandleUpdate()

	return metrics, nil
}

// NewMetric creates a Metric from a cycle report.
//
// Parameters:
//   - report: Cycle report.
//
// Returns:
//   - *Metric: New metric instance.
func NewMetric(report types.Report) *Metric {
	metric := &Metric{
		Checked: len(report.Checked()),
		Failed:  len(report.Failed()),
	}

	for _, update := range report.Updated() {
		if update.Classification() == types.Rebuild {
			metric.Rebuilds++
		} else {
			metric.Updates++
		}
	}

	return metric
}

// QueueIsEmpty checks if the metrics channel is empty.
func (m *Metrics) QueueIsEmpty() bool {
	return len(m.channel) == 0
}

// Register attempts to enqueue a metric for processing. A nil metric records a
// skipped cycle. If the channel is full, the metric is dropped and counted.
//
// Parameters:
//   - metric: Metric to register.
func (m *Metrics) Register(metric *Metric) {
	select {
	case m.channel <- metric:
	default:
		m.dropped.Inc()
	}
}

// Default initializes or returns the singleton Metrics handler. It panics on
// registration failure against the default registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		var err error

		metrics, err = NewWithRegistry(prometheus.DefaultRegisterer)
		if err != nil {
			panic(err)
		}
	})

	return metrics
}

// RegisterCycle enqueues a cycle metric.
func (m *Metrics) RegisterCycle(metric *Metric) {
	m.Register(metric)
}

// Shutdown stops the metrics processing goroutine. It is safe to call repeatedly.
func (m *Metrics) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.stopCh)
		m.cancel()
	})
}

// HandleUpdate processes metrics from the channel.
func (m *Metrics) HandleUpdate() {
	for {
		select {
		case change, ok := <-m.channel:
			if !ok {
				return
			}

			m.total.Inc()

			if change == nil {
				// Cycle was skipped because another one was running.
				m.skipped.Inc()
				m.checked.Set(0)
				m.updates.Set(0)
				m.rebuilds.Set(0)
				m.failed.Set(0)

				continue
			}

			m.checked.Set(float64(change.Checked))
			m.updates.Set(float64(change.Updates))
			m.rebuilds.Set(float64(change.Rebuilds))
			m.failed.Set(float64(change.Failed))
		case <-m.stopCh:
			return
		case <-m.ctx.Done():
			return
		}
	}
}
