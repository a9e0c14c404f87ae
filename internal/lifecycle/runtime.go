package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

// Component is anything with a managed start/stop pair: the webhook server,
// the expiry sweep.
type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runtime starts components in registration order and stops them in
// reverse, so consumers shut down before the things they consume.
type Runtime struct {
	components  []Component
	stopTimeout time.Duration
}

func NewRuntime(components ...Component) *Runtime {
	return &Runtime{components: components, stopTimeout: 15 * time.Second}
}

func (r *Runtime) Register(component Component) {
	if component == nil {
		return
	}
	r.components = append(r.components, component)
}

func (r *Runtime) Start(ctx context.Context) error {
	started := make([]Component, 0, len(r.components))
	for _, component := range r.components {
		if err := component.Start(ctx); err != nil {
			// Unwind whatever already came up.
			_ = stopAll(ctx, started)
			return fmt.Errorf("start component: %w", err)
		}
		started = append(started, component)
	}
	return nil
}

func (r *Runtime) Stop(ctx context.Context) error {
	return stopAll(ctx, r.components)
}

// RunUntilSignal starts the runtime, blocks until SIGINT/SIGTERM or context
// cancellation, then stops everything with a bounded grace period.
func (r *Runtime) RunUntilSignal(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}

	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-signalCtx.Done()
	log.Info("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), r.stopTimeout)
	defer cancel()
	return r.Stop(stopCtx)
}

func stopAll(ctx context.Context, components []Component) error {
	var stopErr error
	for i := len(components) - 1; i >= 0; i-- {
		if err := components[i].Stop(ctx); err != nil {
			stopErr = errors.Join(stopErr, fmt.Errorf("stop component: %w", err))
		}
	}
	return stopErr
}
