package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"NewsRelay/internal/ports"
)

// CronScheduler fires the job on a cron expression evaluated in a fixed timezone.
type CronScheduler struct {
	spec   string
	loc    *time.Location
	logger cron.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler; a nil printf logger silences cron.
func NewCronScheduler(spec string, loc *time.Location, printf *log.Logger) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	logger := cron.DiscardLogger
	if printf != nil {
		logger = cron.PrintfLogger(printf)
	}
	return &CronScheduler{spec: spec, loc: loc, logger: logger}
}

// Start registers the job and begins ticking until Stop or ctx cancellation.
// Ticks that arrive while the previous job still runs are skipped.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	cr := cron.New(
		cron.WithLocation(c.loc),
		cron.WithLogger(c.logger),
		cron.WithChain(cron.Recover(c.logger), cron.SkipIfStillRunning(c.logger)),
	)
	if _, err := cr.AddFunc(c.spec, func() { job(time.Now().In(c.loc)) }); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", c.spec, err)
	}
	cr.Start()
	c.cron = cr

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()

	return nil
}

// Stop halts the scheduler and waits for a running job, bounded by ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	cr := c.cron
	c.cron = nil
	c.mu.Unlock()

	if cr == nil {
		return nil
	}

	select {
	case <-cr.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
