package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// Invoker is anything that performs one gated invocation.
type Invoker interface {
	Invoke(ctx context.Context, opts InvokeOptions) (domain.RunResult, error)
}

// Scheduler wires the periodic driver and on-demand triggers to the gate.
// Overlapping triggers inside one process share a single invocation.
type Scheduler struct {
	driver ports.Scheduler
	gate   Invoker
	group  singleflight.Group
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, gate Invoker, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, gate: gate, logger: logger}
}

// Trigger runs one invocation, joining an identical one already in flight.
// The shared run is detached from the caller's cancellation.
func (s *Scheduler) Trigger(ctx context.Context, opts InvokeOptions) (domain.RunResult, error) {
	v, err, shared := s.group.Do(flightKey(opts), func() (any, error) {
		return s.gate.Invoke(context.WithoutCancel(ctx), opts)
	})
	if shared {
		s.logger.Debug("joined in-flight run", "force", opts.Force, "dry_run", opts.DryRun)
	}
	result, _ := v.(domain.RunResult)
	return result, err
}

func flightKey(opts InvokeOptions) string {
	if !opts.DryRun {
		return fmt.Sprintf("run:%t", opts.Force)
	}
	return fmt.Sprintf("dry-run:%t", opts.Force)
}

// Start registers periodic invocations with the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.gate == nil {
		return nil
	}

	job := func(tick time.Time) {
		result, err := s.Trigger(ctx, InvokeOptions{})
		if err != nil {
			s.logger.Error("scheduled run failed", "tick", tick, "error", err)
			return
		}
		s.logger.Info("scheduled run", "tick", tick, "exit_reason", result.ExitReason, "run_id", result.RunID)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
