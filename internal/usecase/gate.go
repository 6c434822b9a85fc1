package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

const defaultLockTTL = 10 * time.Minute

// Runner is the part of the Orchestrator the gate drives.
type Runner interface {
	Run(ctx context.Context, state domain.GlobalScheduleState, opts RunOptions) (domain.RunResult, error)
}

// InvokeOptions are the caller-facing flags of one invocation.
type InvokeOptions struct {
	Force  bool
	DryRun bool
}

// GateDeps wires the gate.
type GateDeps struct {
	Schedule       ports.ScheduleStore
	Lease          ports.Lease
	Runner         Runner
	RunLogs        ports.RunLogRepository
	Recorder       ports.RunRecorder
	Location       *time.Location
	LockTTL        time.Duration
	MaxPostsPerDay int
	Clock          func() time.Time
	NewID          func() string
	Logger         *slog.Logger
}

// Gate decides whether an invocation may run and guards it with the lease.
type Gate struct {
	schedule ports.ScheduleStore
	lease    ports.Lease
	runner   Runner
	runLogs  ports.RunLogRepository
	recorder ports.RunRecorder
	loc      *time.Location
	lockTTL  time.Duration
	maxPosts int
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
}

// NewGate builds the gate; a nil lease falls back to the store-backed one.
func NewGate(deps GateDeps) *Gate {
	g := &Gate{
		schedule: deps.Schedule,
		lease:    deps.Lease,
		runner:   deps.Runner,
		runLogs:  deps.RunLogs,
		recorder: deps.Recorder,
		loc:      deps.Location,
		lockTTL:  deps.LockTTL,
		maxPosts: deps.MaxPostsPerDay,
		now:      deps.Clock,
		newID:    deps.NewID,
		logger:   deps.Logger,
	}
	if g.lease == nil {
		g.lease = NewStoreLease(deps.Schedule)
	}
	if g.loc == nil {
		g.loc = time.UTC
	}
	if g.lockTTL <= 0 {
		g.lockTTL = defaultLockTTL
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.newID == nil {
		g.newID = uuid.NewString
	}
	if g.logger == nil {
		g.logger = slog.New(slog.DiscardHandler)
	}
	return g
}

// Invoke runs the scheduling checks and, when they pass, one orchestrator run.
// The lease is released on every path, panics included.
func (g *Gate) Invoke(ctx context.Context, opts InvokeOptions) (result domain.RunResult, err error) {
	run := RunOptions{
		Force:     opts.Force,
		DryRun:    opts.DryRun,
		RunID:     g.newID(),
		StartedAt: g.now(),
	}
	log := g.logger.With("run_id", run.RunID)

	defer func() {
		if g.recorder != nil {
			g.recorder.RecordRun(result)
		}
	}()

	state, err := g.schedule.LoadSchedule(ctx)
	if err != nil {
		return g.fail(ctx, run, fmt.Errorf("load schedule: %w", err))
	}

	active, err := g.lease.Active(ctx, run.StartedAt)
	if err != nil {
		return g.fail(ctx, run, err)
	}
	if active {
		return g.skip(ctx, run, domain.ExitLockActive)
	}

	if !run.DryRun {
		token, ok, err := g.lease.Acquire(ctx, run.StartedAt, g.lockTTL)
		if err != nil {
			return g.fail(ctx, run, err)
		}
		if !ok {
			return g.skip(ctx, run, domain.ExitLockActive)
		}
		defer g.release(ctx, token, log)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("run panicked", "panic", r)
			result, err = g.fail(ctx, run, fmt.Errorf("run panicked: %v", r))
		}
	}()

	now := run.StartedAt
	if !run.Force {
		if !CheckStartWindow(state.StartTime, now, g.loc) {
			return g.skip(ctx, run, domain.ExitBeforeStartTime)
		}
		if !CheckCooldown(state.LastPostedAt, state.UpdateIntervalMinutes, now) {
			return g.skip(ctx, run, domain.ExitCooldown)
		}
	}

	today := LocalDate(now, g.loc)
	if state.LastResetDate != today {
		log.Info("daily reset", "date", today, "previous", state.LastResetDate)
		if !run.DryRun {
			if err := g.schedule.ResetDaily(ctx, today); err != nil {
				return g.fail(ctx, run, fmt.Errorf("daily reset: %w", err))
			}
		}
		state.LastResetDate = today
		state.PostsToday = 0
		state.DisabledSources = nil
	}

	if !run.Force && g.maxPosts > 0 && state.PostsToday >= g.maxPosts {
		return g.skip(ctx, run, domain.ExitDailyQuota)
	}

	result, err = g.runner.Run(ctx, state, run)
	if err != nil {
		log.Error("run failed", "error", err)
		return g.fail(ctx, run, err)
	}
	return result, nil
}

func (g *Gate) skip(ctx context.Context, run RunOptions, reason domain.ExitReason) (domain.RunResult, error) {
	result := domain.RunResult{
		RunID:      run.RunID,
		Skipped:    true,
		ExitReason: reason,
		DurationMs: g.now().Sub(run.StartedAt).Milliseconds(),
	}
	g.logger.Info("run skipped", "run_id", run.RunID, "exit_reason", reason, "dry_run", run.DryRun)
	g.appendLog(ctx, run, result)
	return result, nil
}

func (g *Gate) fail(ctx context.Context, run RunOptions, cause error) (domain.RunResult, error) {
	result := domain.RunResult{
		RunID:      run.RunID,
		ExitReason: domain.ExitError,
		DurationMs: g.now().Sub(run.StartedAt).Milliseconds(),
	}
	g.appendLog(ctx, run, result)
	return result, cause
}

func (g *Gate) appendLog(ctx context.Context, run RunOptions, result domain.RunResult) {
	if run.DryRun || g.runLogs == nil {
		return
	}
	if err := g.runLogs.AppendRunLog(context.WithoutCancel(ctx), result.Log(run.StartedAt)); err != nil {
		g.logger.Error("append run log", "run_id", run.RunID, "error", err)
	}
}

func (g *Gate) release(ctx context.Context, token domain.LeaseToken, log *slog.Logger) {
	if err := g.lease.Release(context.WithoutCancel(ctx), token); err != nil {
		log.Warn("release lease", "error", err)
	}
}
