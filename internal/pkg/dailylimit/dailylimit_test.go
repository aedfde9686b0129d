package dailylimit

import (
	"context"
	"testing"
	"time"
)

func TestKeyFormat(t *testing.T) {
	day := time.Date(2026, 8, 31, 15, 4, 5, 0, time.UTC)
	got := key(KindPlaces, "user-1", day)
	want := "jgmap:daily_limit:places:user-1:2026-08-31"
	if got != want {
		t.Errorf("key = %q, want %q", got, want)
	}
}

func TestUnlimitedWithoutRedis(t *testing.T) {
	l := New(nil, 5, 5)
	ok, remaining, err := l.Consume(context.Background(), KindReports, "user-1")
	if err != nil || !ok {
		t.Fatalf("consume without redis: ok=%v err=%v", ok, err)
	}
	if remaining != -1 {
		t.Errorf("remaining = %d, want -1 (unknown)", remaining)
	}
	if err := l.Refund(context.Background(), KindReports, "user-1"); err != nil {
		t.Errorf("refund without redis: %v", err)
	}
}

func TestZeroLimitMeansUnlimited(t *testing.T) {
	l := New(nil, 0, 0)
	if got := l.Limit(KindPlaces); got != 0 {
		t.Errorf("limit = %d, want 0", got)
	}
	ok, _, err := l.Consume(context.Background(), KindPlaces, "user-1")
	if err != nil || !ok {
		t.Errorf("zero limit should always allow: ok=%v err=%v", ok, err)
	}
}
