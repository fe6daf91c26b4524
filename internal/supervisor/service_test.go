package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// TestFakeDaemonInterface verifies FakeDaemon satisfies suture.Service, the
// same interface controldaemon.Daemon, maintenance.Loop, and alerts.Loop
// implement.
func TestFakeDaemonInterface(t *testing.T) {
	var _ suture.Service = (*FakeDaemon)(nil)
}

// TestFakeDaemon validates the test double's own bookkeeping.
func TestFakeDaemon(t *testing.T) {
	t.Run("runs until context canceled", func(t *testing.T) {
		svc := NewFakeDaemon("test")
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		err := svc.Serve(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected context.DeadlineExceeded, got %v", err)
		}
		if svc.StartCount() != 1 {
			t.Errorf("expected 1 start, got %d", svc.StartCount())
		}
	})

	t.Run("returns error on simulated failure", func(t *testing.T) {
		svc := NewFakeDaemon("failing")
		svc.SetError(errors.New("simulated failure"))

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		err := svc.Serve(ctx)
		if err == nil || err.Error() != "simulated failure" {
			t.Errorf("expected simulated failure, got %v", err)
		}
	})

	t.Run("returns ErrDoNotRestart for permanent completion", func(t *testing.T) {
		svc := NewFakeDaemon("one-shot")
		svc.SetError(suture.ErrDoNotRestart)

		ctx := context.Background()
		err := svc.Serve(ctx)
		if !errors.Is(err, suture.ErrDoNotRestart) {
			t.Errorf("expected ErrDoNotRestart, got %v", err)
		}
	})

	t.Run("fails N times then succeeds", func(t *testing.T) {
		svc := NewFakeDaemon("retry-test")
		svc.SetFailCount(2)

		err := svc.Serve(context.Background())
		if err == nil || err.Error() != "simulated failure" {
			t.Errorf("first call should fail, got %v", err)
		}

		err = svc.Serve(context.Background())
		if err == nil || err.Error() != "simulated failure" {
			t.Errorf("second call should fail, got %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		err = svc.Serve(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("third call should succeed until timeout, got %v", err)
		}

		if svc.StartCount() != 3 {
			t.Errorf("expected 3 starts, got %d", svc.StartCount())
		}
	})

	t.Run("String returns daemon name", func(t *testing.T) {
		svc := NewFakeDaemon("my-daemon")
		if svc.String() != "my-daemon" {
			t.Errorf("expected 'my-daemon', got %q", svc.String())
		}
	})
}

// testTreeLogger returns a logger quiet enough not to spam test output.
func testTreeLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestSupervisorTreeFailureIsolation exercises the failure-isolation
// guarantee tree.go documents: a crashing control-layer daemon (standing in
// for a controldaemon.Daemon that can't resolve its backup server) must not
// affect a healthy background-layer service (standing in for
// maintenance.Loop), and vice versa.
func TestSupervisorTreeFailureIsolation(t *testing.T) {
	t.Run("crashing control daemon does not stop background service", func(t *testing.T) {
		tree, err := NewSupervisorTree(testTreeLogger(), TreeConfig{
			FailureThreshold: 10,
			FailureBackoff:   10 * time.Millisecond,
			ShutdownTimeout:  time.Second,
		})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}

		crashingControl := NewFakeDaemon("crashing-control")
		crashingControl.SetFailCount(3)
		steadyBackground := NewFakeDaemon("steady-background")

		tree.AddControlDaemon(crashingControl)
		tree.AddBackgroundService(steadyBackground)

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		go tree.Serve(ctx)
		time.Sleep(200 * time.Millisecond)

		if crashingControl.StartCount() < 4 {
			t.Errorf("expected control daemon to be restarted at least 4 times, got %d", crashingControl.StartCount())
		}
		if steadyBackground.StopCount() != 0 {
			t.Errorf("background service should never have stopped, stopped %d times", steadyBackground.StopCount())
		}
	})

	t.Run("background service terminating the tree stops the control layer too", func(t *testing.T) {
		tree, err := NewSupervisorTree(testTreeLogger(), TreeConfig{
			FailureThreshold: 10,
			ShutdownTimeout:  time.Second,
		})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}

		terminating := NewFakeDaemon("terminating-background")
		terminating.SetError(suture.ErrTerminateSupervisorTree)
		longRunningControl := NewFakeDaemon("long-running-control")

		tree.AddBackgroundService(terminating)
		tree.AddControlDaemon(longRunningControl)

		ctx := context.Background()
		errCh := make(chan error, 1)
		go func() { errCh <- tree.Serve(ctx) }()

		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
			t.Fatal("tree did not terminate after ErrTerminateSupervisorTree")
		}
	})
}
