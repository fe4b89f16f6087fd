// Package api wires the HTTP API endpoints to the update cycle.
package api

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/nicholas-fedor/tagwatch/pkg/api"
	metricsAPI "github.com/nicholas-fedor/tagwatch/pkg/api/metrics"
	"github.com/nicholas-fedor/tagwatch/pkg/api/update"
	"github.com/nicholas-fedor/tagwatch/pkg/metrics"
	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

// TargetedCycle runs one update cycle, restricted to the given images when non-empty.
type TargetedCycle func(ctx context.Context, images []string) *metrics.Metric

// GetAPIAddr formats the listen address for host and port.
func GetAPIAddr(host, port string) string {
	if host != "" && strings.Contains(host, ":") && net.ParseIP(host) != nil {
		return "[" + host + "]:" + port
	}

	return host + ":" + port
}

// SetupAndStartAPI registers the enabled endpoints and starts the server.
//
// Parameters:
//   - ctx: Server lifecycle.
//   - run: Resolved HTTP API settings.
//   - updateLock: Lock shared with the scheduler.
//   - cycle: Function running an update cycle.
//   - block: Serve in the foreground until ctx is cancelled.
//   - server: Optional server replacement for tests.
//
// Returns:
//   - error: Non-nil if the server cannot start.
func SetupAndStartAPI(
	ctx context.Context,
	run types.RunConfig,
	updateLock chan bool,
	cycle TargetedCycle,
	block bool,
	server ...api.HTTPServer,
) error {
	if !run.EnableUpdateAPI && !run.EnableMetricsAPI {
		return nil
	}

	httpAPI := api.New(run.APIToken, GetAPIAddr("", run.APIPort), server...)

	if run.EnableUpdateAPI {
		handler := update.New(func(images []string) *metrics.Metric {
			metric := cycle(ctx, images)
			metrics.Default().RegisterCycle(metric)

			return metric
		}, updateLock)
		httpAPI.RegisterFunc(handler.Path, handler.Handle)
	}

	if run.EnableMetricsAPI {
		handler := metricsAPI.New()
		httpAPI.RegisterHandler(handler.Path, handler.Handle)
	}

	if err := httpAPI.Start(ctx, block); err != nil {
		return fmt.Errorf("failed to start HTTP API: %w", err)
	}

	return nil
}
