package supervisor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// FakeDaemon is a test double for the suture.Service shapes pgbackman adds to
// a SupervisorTree: controldaemon.Daemon in the control layer, and
// maintenance.Loop / alerts.Loop in the background layer. It lets tree_test.go
// and service_test.go drive start/fail/restart scenarios without spinning up
// a real catalog connection or SMTP server.
type FakeDaemon struct {
	name       string
	startCount atomic.Int32
	stopCount  atomic.Int32
	failCount  atomic.Int32
	maxFails   int32
	err        error
	mu         sync.Mutex
}

// NewFakeDaemon creates a fake daemon identified by name (shown in suture's
// event-hook log lines the same way controldaemon.Daemon.String() and
// maintenance.Loop.String() are).
func NewFakeDaemon(name string) *FakeDaemon {
	return &FakeDaemon{name: name}
}

// Serve implements suture.Service. The signature matches suture v4's
// Service interface exactly: Serve(ctx context.Context) error.
func (d *FakeDaemon) Serve(ctx context.Context) error {
	d.startCount.Add(1)
	defer d.stopCount.Add(1)

	d.mu.Lock()
	err := d.err
	maxFails := d.maxFails
	d.mu.Unlock()

	// Fail the configured number of times before succeeding, mirroring a
	// daemon that can't reach the catalog on its first few ticks.
	if maxFails > 0 {
		current := d.failCount.Add(1)
		if current <= maxFails {
			return errors.New("simulated failure")
		}
	}

	if err != nil {
		return err
	}

	<-ctx.Done()
	return ctx.Err()
}

// SetError configures the daemon to return this error immediately, e.g. to
// simulate suture.ErrDoNotRestart (a one-shot job) or
// suture.ErrTerminateSupervisorTree (an unrecoverable condition).
func (d *FakeDaemon) SetError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// SetFailCount configures the daemon to fail n times before succeeding,
// simulating a control daemon that can't resolve its backup server until the
// catalog comes up.
func (d *FakeDaemon) SetFailCount(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.maxFails = int32(n)
}

// StartCount returns how many times Serve was called.
func (d *FakeDaemon) StartCount() int32 {
	return d.startCount.Load()
}

// StopCount returns how many times Serve returned.
func (d *FakeDaemon) StopCount() int32 {
	return d.stopCount.Load()
}

// String implements fmt.Stringer; suture uses this to identify services in
// its event-hook log lines.
func (d *FakeDaemon) String() string {
	return d.name
}
