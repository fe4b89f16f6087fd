// Package metrics tracks update cycle outcomes and exposes them to Prometheus.
//
// Key components:
//   - Metrics: Handles metric queuing and updates.
//   - NewMetric: Creates metrics from cycle reports.
//
// Usage example:
//
//	m := metrics.Default()
//	m.RegisterCycle(metrics.NewMetric(report))
package metrics
