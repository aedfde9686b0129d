package cron

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunSyncReportsJobError(t *testing.T) {
	s := New()
	s.Register(Job{
		Name:     "broken",
		Interval: time.Hour,
		Fn: func(ctx context.Context) error {
			return errors.New("boom")
		},
	})

	if err := s.RunSync(context.Background(), "broken"); err == nil {
		t.Fatal("expected error from failing job")
	}
	task, err := s.GetTask("broken")
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != StatusReject || task.Message != "boom" {
		t.Errorf("task = %+v, want rejected with message", task)
	}
}

func TestRunSyncSuccessClearsMessage(t *testing.T) {
	s := New()
	calls := 0
	s.Register(Job{
		Name:     "ok",
		Interval: time.Hour,
		Fn: func(ctx context.Context) error {
			calls++
			return nil
		},
	})

	if err := s.RunSync(context.Background(), "ok"); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("job ran %d times, want 1", calls)
	}
	task, _ := s.GetTask("ok")
	if task.Status != StatusFulfill || task.Message != "" {
		t.Errorf("task = %+v, want fulfilled", task)
	}
}

func TestRunUnknownJob(t *testing.T) {
	s := New()
	if err := s.Run(context.Background(), "ghost"); err == nil {
		t.Error("expected error for unknown job")
	}
	if err := s.RunSync(context.Background(), "ghost"); err == nil {
		t.Error("expected error for unknown job")
	}
}

func TestListIsSorted(t *testing.T) {
	s := New()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		s.Register(Job{Name: name, Interval: time.Hour, Fn: func(ctx context.Context) error { return nil }})
	}
	items := s.List()
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	if items[0].Name != "alpha" || items[2].Name != "zeta" {
		t.Errorf("list not sorted: %v, %v, %v", items[0].Name, items[1].Name, items[2].Name)
	}
}
