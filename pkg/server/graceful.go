// Package server runs the HTTP listener and tears the process down in order
// when it is asked to stop.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-commgraph/pkg/logging"
)

// DefaultShutdownTimeout bounds connection draining plus shutdown hooks.
const DefaultShutdownTimeout = 30 * time.Second

// ConfigReloadFunc is a function that reloads configuration
type ConfigReloadFunc func() error

type shutdownHook struct {
	name string
	fn   func(ctx context.Context) error
}

// GracefulServer wraps an HTTP server with graceful shutdown capabilities.
// On shutdown it stops accepting requests, drains in-flight ones and then
// runs the registered hooks in reverse registration order.
type GracefulServer struct {
	server  *http.Server
	logger  logging.Logger
	timeout time.Duration

	shutdownCh   chan struct{}
	doneCh       chan struct{}
	shutdownOnce sync.Once
	shutdownErr  error

	mu             sync.RWMutex
	hooks          []shutdownHook
	configReloadFn ConfigReloadFunc
	addr           net.Addr
}

// NewGracefulServer creates a new graceful HTTP server
func NewGracefulServer(addr string, handler http.Handler, logger logging.Logger) *GracefulServer {
	return &GracefulServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		logger:     logging.OrNop(logger).With(logging.Component("server")),
		timeout:    DefaultShutdownTimeout,
		shutdownCh: make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// SetShutdownTimeout overrides DefaultShutdownTimeout.
func (gs *GracefulServer) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		gs.timeout = d
	}
}

// OnShutdown registers fn to run after the listener has drained. Hooks run
// last-registered first, so register dependencies before their users.
func (gs *GracefulServer) OnShutdown(name string, fn func(ctx context.Context) error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, shutdownHook{name: name, fn: fn})
}

// Start listens on the configured address and serves until ctx is done or a
// termination signal arrives. It returns once shutdown has completed.
func (gs *GracefulServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return err
	}
	return gs.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (gs *GracefulServer) Serve(ctx context.Context, ln net.Listener) error {
	gs.mu.Lock()
	gs.addr = ln.Addr()
	gs.mu.Unlock()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGINT,  // Ctrl+C
		syscall.SIGTERM, // Termination signal (systemd, docker, k8s)
		syscall.SIGHUP,  // Reload configuration
	)
	defer signal.Stop(sigCh)
	go gs.watch(ctx, sigCh)

	gs.logger.Info("http server listening", logging.String("addr", ln.Addr().String()))
	if err := gs.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-gs.doneCh
	return gs.shutdownErr
}

// Addr is the bound address once Serve has started.
func (gs *GracefulServer) Addr() net.Addr {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.addr
}

func (gs *GracefulServer) watch(ctx context.Context, sigCh <-chan os.Signal) {
	for {
		select {
		case <-gs.shutdownCh:
			return
		case <-ctx.Done():
			gs.logger.Info("context done, starting graceful shutdown")
			gs.Shutdown()
			return
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				gs.ReloadConfig()
			default:
				gs.logger.Info("signal received, starting graceful shutdown", logging.String("signal", sig.String()))
				gs.Shutdown()
				return
			}
		}
	}
}

// Shutdown drains the listener and runs the shutdown hooks within the
// shutdown timeout. Later calls wait for the first and return its result.
func (gs *GracefulServer) Shutdown() error {
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)
		defer close(gs.doneCh)

		ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
		defer cancel()

		timer := logging.StartTimer(gs.logger, "shutdown complete", logging.Duration("timeout", gs.timeout))

		var errs []error
		if err := gs.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}

		gs.mu.RLock()
		hooks := append([]shutdownHook(nil), gs.hooks...)
		gs.mu.RUnlock()

		for i := len(hooks) - 1; i >= 0; i-- {
			h := hooks[i]
			if err := h.fn(ctx); err != nil {
				gs.logger.Error("shutdown hook failed", logging.String("hook", h.name), logging.Error(err))
				errs = append(errs, err)
			}
		}

		gs.shutdownErr = errors.Join(errs...)
		if gs.shutdownErr != nil {
			timer.EndError(gs.shutdownErr)
		} else {
			timer.End()
		}
	})

	<-gs.doneCh
	return gs.shutdownErr
}

// IsShuttingDown returns true if shutdown has been initiated
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel returns a channel that closes when shutdown is initiated
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}

// SetConfigReloadFunc sets the function to call when configuration reload is triggered
func (gs *GracefulServer) SetConfigReloadFunc(fn ConfigReloadFunc) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.configReloadFn = fn
}

// ReloadConfig triggers a configuration reload
func (gs *GracefulServer) ReloadConfig() error {
	gs.mu.RLock()
	reloadFn := gs.configReloadFn
	gs.mu.RUnlock()

	if reloadFn == nil {
		gs.logger.Info("configuration reload requested, but no reload function configured")
		return nil
	}

	if err := reloadFn(); err != nil {
		gs.logger.Error("configuration reload failed", logging.Error(err))
		return err
	}

	gs.logger.Info("configuration reloaded")
	return nil
}
