package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dd0wney/cluso-commgraph/pkg/logging"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func startServer(t *testing.T, ctx context.Context, gs *GracefulServer) <-chan error {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	errCh := make(chan error, 1)
	go func() { errCh <- gs.Serve(ctx, ln) }()
	return errCh
}

func waitFor(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not stop")
		return nil
	}
}

func TestGracefulServer_ServesUntilContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gs := NewGracefulServer("", okHandler(), nil)
	errCh := startServer(t, ctx, gs)

	// Serve sets Addr before it starts accepting.
	var addr net.Addr
	for i := 0; i < 100 && addr == nil; i++ {
		addr = gs.Addr()
		time.Sleep(5 * time.Millisecond)
	}
	if addr == nil {
		t.Fatal("Server never bound")
	}

	resp, err := http.Get("http://" + addr.String() + "/")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}

	cancel()
	if err := waitFor(t, errCh); err != nil {
		t.Errorf("Serve() error = %v", err)
	}
	if !gs.IsShuttingDown() {
		t.Error("Expected shutdown to be initiated")
	}
}

func TestGracefulServer_HooksRunInReverse(t *testing.T) {
	logger := logging.NewRecorder()
	gs := NewGracefulServer("", okHandler(), logger)

	var mu sync.Mutex
	var order []string
	hook := func(name string, err error) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return err
		}
	}
	boom := errors.New("close failed")
	gs.OnShutdown("store", hook("store", nil))
	gs.OnShutdown("blocklist", hook("blocklist", boom))
	gs.OnShutdown("jobs", hook("jobs", nil))

	errCh := startServer(t, context.Background(), gs)
	go gs.Shutdown()

	err := waitFor(t, errCh)
	if !errors.Is(err, boom) {
		t.Errorf("Expected hook error, got %v", err)
	}

	want := []string{"jobs", "blocklist", "store"}
	if len(order) != len(want) {
		t.Fatalf("Expected hooks %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Hook %d: expected %s, got %s", i, want[i], order[i])
		}
	}

	if len(logger.Messages("shutdown hook failed")) != 1 {
		t.Error("Expected the failing hook to be logged")
	}

	// A second call returns the first result without rerunning hooks.
	if err := gs.Shutdown(); !errors.Is(err, boom) {
		t.Errorf("Expected repeated Shutdown to return the first error, got %v", err)
	}
	if len(order) != 3 {
		t.Errorf("Hooks ran again: %v", order)
	}
}

func TestGracefulServer_ReloadConfig(t *testing.T) {
	gs := NewGracefulServer(":0", okHandler(), nil)

	if err := gs.ReloadConfig(); err != nil {
		t.Errorf("ReloadConfig() without a func error = %v", err)
	}

	reloadCalled := false
	gs.SetConfigReloadFunc(func() error {
		reloadCalled = true
		return nil
	})
	if err := gs.ReloadConfig(); err != nil {
		t.Errorf("ReloadConfig() error = %v", err)
	}
	if !reloadCalled {
		t.Error("Config reload function was not called")
	}
}

func TestGracefulServer_ReloadConfigWithError(t *testing.T) {
	gs := NewGracefulServer(":0", okHandler(), nil)
	gs.SetConfigReloadFunc(func() error {
		return http.ErrServerClosed
	})

	if err := gs.ReloadConfig(); err != http.ErrServerClosed {
		t.Errorf("ReloadConfig() error = %v, want %v", err, http.ErrServerClosed)
	}
}
