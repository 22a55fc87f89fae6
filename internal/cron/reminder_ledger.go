package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	reminderScope     = "installment-reminder"
	reminderLedgerTTL = 7 * 24 * time.Hour
)

// ReminderLedger remembers which installment reminders already went out.
// Claim reports false when the key was claimed before. Forget drops a claim
// whose send failed so the next run retries it.
type ReminderLedger interface {
	Claim(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

type idempotencyStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// RedisReminderLedger keeps claims in redis so a restarted or second worker
// does not mail the same installment twice.
type RedisReminderLedger struct {
	store idempotencyStore
	ttl   time.Duration
}

func NewRedisReminderLedger(store idempotencyStore, ttl time.Duration) (*RedisReminderLedger, error) {
	if store == nil {
		return nil, errors.New("redis store required")
	}
	if ttl <= 0 {
		ttl = reminderLedgerTTL
	}
	return &RedisReminderLedger{store: store, ttl: ttl}, nil
}

func (l *RedisReminderLedger) Claim(ctx context.Context, key string) (bool, error) {
	first, err := l.store.SetNX(ctx, l.store.IdempotencyKey(reminderScope, key), time.Now().UTC().Format(time.RFC3339), l.ttl)
	if err != nil {
		return false, fmt.Errorf("claim reminder %s: %w", key, err)
	}
	return first, nil
}

func (l *RedisReminderLedger) Forget(ctx context.Context, key string) error {
	if err := l.store.Del(ctx, l.store.IdempotencyKey(reminderScope, key)); err != nil {
		return fmt.Errorf("forget reminder %s: %w", key, err)
	}
	return nil
}

// MemoryReminderLedger dedupes within one process. Used when redis is not
// configured.
type MemoryReminderLedger struct {
	mu      sync.Mutex
	claimed map[string]struct{}
}

func NewMemoryReminderLedger() *MemoryReminderLedger {
	return &MemoryReminderLedger{claimed: make(map[string]struct{})}
}

func (l *MemoryReminderLedger) Claim(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.claimed[key]; ok {
		return false, nil
	}
	l.claimed[key] = struct{}{}
	return true, nil
}

func (l *MemoryReminderLedger) Forget(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.claimed, key)
	l.mu.Unlock()
	return nil
}
