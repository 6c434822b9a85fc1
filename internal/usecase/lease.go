package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// StoreLease keeps the lock as a bare timestamp in the schedule row.
// Release clears the lock unconditionally, whoever wrote it; a run that outlives its TTL
// can therefore clear a lock taken by a later run.
type StoreLease struct {
	store ports.ScheduleStore
}

var _ ports.Lease = (*StoreLease)(nil)

// NewStoreLease wraps the schedule store.
func NewStoreLease(store ports.ScheduleStore) *StoreLease {
	return &StoreLease{store: store}
}

// Active reports whether an unexpired lock exists. Expired locks count as released.
func (l *StoreLease) Active(ctx context.Context, now time.Time) (bool, error) {
	state, err := l.store.LoadSchedule(ctx)
	if err != nil {
		return false, fmt.Errorf("load lock: %w", err)
	}
	return state.Locked(now), nil
}

// Acquire writes now+ttl. The check-then-write is not atomic.
func (l *StoreLease) Acquire(ctx context.Context, now time.Time, ttl time.Duration) (domain.LeaseToken, bool, error) {
	token := domain.LeaseToken{Owner: uuid.NewString(), Until: now.Add(ttl)}
	if err := l.store.SetLock(ctx, &token.Until, token.Owner); err != nil {
		return domain.LeaseToken{}, false, fmt.Errorf("write lock: %w", err)
	}
	return token, true, nil
}

// Release clears the lock.
func (l *StoreLease) Release(ctx context.Context, _ domain.LeaseToken) error {
	if err := l.store.SetLock(ctx, nil, ""); err != nil {
		return fmt.Errorf("clear lock: %w", err)
	}
	return nil
}
