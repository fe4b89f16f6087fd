package update

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/tagwatch/pkg/metrics"
)

// retryAfterSeconds is suggested to clients rejected while a cycle runs.
const retryAfterSeconds = "30"

// Handler triggers update cycles via HTTP.
type Handler struct {
	fn   func(images []string) *metrics.Metric
	Path string
	lock chan bool
}

// New creates a Handler for /v1/update.
//
// Parameters:
//   - updateFn: Runs one cycle; images restricts it to matching configured images when non-empty.
//   - updateLock: Lock shared with the scheduler, or nil to create one.
//
// Returns:
//   - *Handler: Initialized handler.
func New(updateFn func(images []string) *metrics.Metric, updateLock chan bool) *Handler {
	lock := updateLock
	if lock == nil {
		lock = make(chan bool, 1)
		lock <- true
	}

	return &Handler{
		fn:   updateFn,
		Path: "/v1/update",
		lock: lock,
	}
}

// Handle runs an update cycle.
//
// A targeted request (one or more "image" query parameters) waits for the lock.
// A full request answers 429 Too Many Requests while another cycle runs.
func (handle *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	logrus.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Info("Received HTTP API update request")

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	if _, err := io.Copy(io.Discard, r.Body); err != nil {
		logrus.WithError(err).Debug("Failed to read request body")
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)

		return
	}

	var images []string

	for _, value := range r.URL.Query()["image"] {
		for image := range strings.SplitSeq(value, ",") {
			if image = strings.TrimSpace(image); image != "" {
				images = append(images, image)
			}
		}
	}

	if len(images) > 0 {
		select {
		case v := <-handle.lock:
			defer func() { handle.lock <- v }()
		case <-r.Context().Done():
			http.Error(w, "request cancelled", http.StatusServiceUnavailable)

			return
		}

		logrus.WithField("images", images).Info("Executing targeted update")
	} else {
		select {
		case v := <-handle.lock:
			defer func() { handle.lock <- v }()
		default:
			logrus.Debug("Skipped update, another update already in progress")
			w.Header().Set("Retry-After", retryAfterSeconds)
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":       "another update is already running",
				"api_version": "v1",
				"timestamp":   time.Now().UTC().Format(time.RFC3339),
			})

			return
		}

		logrus.Info("Executing full update")
	}

	start := time.Now()
	metric := handle.fn(images)
	duration := time.Since(start)

	if metric == nil {
		metric = &metrics.Metric{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"summary": map[string]any{
			"checked":  metric.Checked,
			"updates":  metric.Updates,
			"rebuilds": metric.Rebuilds,
			"failed":   metric.Failed,
		},
		"timing": map[string]any{
			"duration_ms": duration.Milliseconds(),
			"duration":    duration.String(),
		},
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"api_version": "v1",
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		logrus.WithError(err).Error("Failed to encode JSON response")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(append(payload, '\n')); err != nil {
		logrus.WithError(err).Error("Failed to write response")
	}
}
