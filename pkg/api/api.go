package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// readHeaderTimeout bounds reading request headers.
	readHeaderTimeout = 10 * time.Second
	// shutdownTimeout bounds graceful server shutdown.
	shutdownTimeout = 5 * time.Second
)

// errEmptyToken indicates the API was started without a token.
var errEmptyToken = errors.New("api token is empty or unset")

// HTTPServer is the subset of http.Server used by the API.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// API is the token-protected HTTP API server.
type API struct {
	Token      string
	Addr       string
	registered bool
	mux        *http.ServeMux
	server     HTTPServer
}

// New creates an API listening on addr. The optional server replaces the
// http.Server built by Start.
func New(token, addr string, server ...HTTPServer) *API {
	api := &API{
		Token: token,
		Addr:  addr,
		mux:   http.NewServeMux(),
	}

	if len(server) > 0 {
		api.server = server[0]
	}

	return api
}

// RegisterFunc registers a token-protected handler function for path.
func (a *API) RegisterFunc(path string, handler http.HandlerFunc) {
	a.mux.Handle(path, a.RequireToken(handler))
	a.registered = true
}

// RegisterHandler registers a token-protected handler for path.
func (a *API) RegisterHandler(path string, handler http.Handler) {
	a.mux.Handle(path, a.RequireToken(handler.ServeHTTP))
	a.registered = true
}

// Handler returns the routing handler, mainly for tests.
func (a *API) Handler() http.Handler {
	return a.mux
}

// Start serves the registered handlers until ctx is cancelled.
//
// Parameters:
//   - ctx: Server lifecycle.
//   - block: Serve in the foreground and return only on shutdown or failure.
//
// Returns:
//   - error: errEmptyToken, or the serve error in blocking mode.
func (a *API) Start(ctx context.Context, block bool) error {
	if !a.registered {
		logrus.Debug("No HTTP API handlers registered, skipping API start")

		return nil
	}

	if a.Token == "" {
		return errEmptyToken
	}

	server := a.server
	if server == nil {
		server = &http.Server{
			Addr:              a.Addr,
			Handler:           a.mux,
			ReadHeaderTimeout: readHeaderTimeout,
			BaseContext:       func(net.Listener) context.Context { return ctx },
		}
	}

	logrus.WithField("addr", a.Addr).Info("Starting HTTP API server")

	if block {
		return RunHTTPServer(ctx, server)
	}

	go func() {
		if err := RunHTTPServer(ctx, server); err != nil {
			logrus.WithError(err).Error("HTTP API server failed")
		}
	}()

	return nil
}

// RequireToken wraps a handler function with bearer token authentication.
func (a *API) RequireToken(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != a.Token {
			logrus.WithField("path", r.URL.Path).Debug("Rejected unauthorized API request")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)

			return
		}

		handler(w, r)
	}
}

// RunHTTPServer serves until the server fails or ctx is cancelled, then shuts
// the server down gracefully. A clean shutdown returns nil.
func RunHTTPServer(ctx context.Context, server HTTPServer) error {
	errChan := make(chan error, 1)

	go func() {
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("http api server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		return nil
	}
}
