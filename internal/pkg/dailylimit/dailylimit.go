package dailylimit

import (
	"context"
	"fmt"
	"time"

	"github.com/jgmap/core/internal/pkg/redis"
)

// Kind identifies a daily-limited activity.
type Kind string

const (
	KindPlaces  Kind = "places"
	KindReports Kind = "reports"
)

// Counter keys live for two days so a refund issued shortly after midnight
// still finds yesterday's key.
const keyTTL = 48 * time.Hour

// Limiter enforces per-user daily quotas backed by Redis counters.
type Limiter struct {
	r      *redis.Client
	limits map[Kind]int
}

func New(r *redis.Client, placesPerDay, reportsPerDay int) *Limiter {
	return &Limiter{
		r: r,
		limits: map[Kind]int{
			KindPlaces:  placesPerDay,
			KindReports: reportsPerDay,
		},
	}
}

// Limit returns the configured daily quota for a kind (0 = unlimited).
func (l *Limiter) Limit(kind Kind) int {
	return l.limits[kind]
}

func key(kind Kind, userID string, day time.Time) string {
	return redis.Key("daily_limit", string(kind), userID, day.Format("2006-01-02"))
}

// Consume takes one unit of today's quota. It reports whether the action is
// allowed and how many units remain afterwards.
func (l *Limiter) Consume(ctx context.Context, kind Kind, userID string) (bool, int, error) {
	limit := l.limits[kind]
	if limit <= 0 || l.r == nil {
		return true, -1, nil
	}

	k := key(kind, userID, time.Now())
	n, err := l.r.Raw().Incr(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("daily limit incr: %w", err)
	}
	if n == 1 {
		_ = l.r.Raw().Expire(ctx, k, keyTTL).Err()
	}
	if n > int64(limit) {
		// Undo the overshoot so refunds elsewhere stay accurate.
		_ = l.r.Raw().Decr(ctx, k).Err()
		return false, 0, nil
	}
	return true, limit - int(n), nil
}

// Refund returns one unit to today's quota, used when a moderator rejects a
// submission the same day. The counter never goes negative.
func (l *Limiter) Refund(ctx context.Context, kind Kind, userID string) error {
	if l.limits[kind] <= 0 || l.r == nil {
		return nil
	}
	k := key(kind, userID, time.Now())
	n, err := l.r.Raw().Decr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("daily limit refund: %w", err)
	}
	if n < 0 {
		_ = l.r.Raw().Incr(ctx, k).Err()
	}
	return nil
}

// Remaining reports how many units are left today.
func (l *Limiter) Remaining(ctx context.Context, kind Kind, userID string) (int, error) {
	limit := l.limits[kind]
	if limit <= 0 || l.r == nil {
		return -1, nil
	}
	raw, err := l.r.Get(ctx, key(kind, userID, time.Now()))
	if err != nil {
		return 0, err
	}
	used := 0
	if raw != "" {
		fmt.Sscanf(raw, "%d", &used)
	}
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
