package models

import "testing"

func TestSyncPriorities(t *testing.T) {
	cases := map[SyncEventType]int{
		SyncPointDeleted:     30,
		SyncPointApproved:    25,
		SyncDeletionApproved: 25,
		SyncPointCreated:     20,
		SyncReportAdded:      20,
		SyncEditSubmitted:    15,
		SyncPointUpdated:     15,
		"unknown_event":      DefaultSyncPriority,
	}
	for typ, want := range cases {
		if got := SyncPriority(typ); got != want {
			t.Errorf("priority(%s) = %d, want %d", typ, got, want)
		}
	}
}

func TestApplyFailureRetryCeiling(t *testing.T) {
	e := SyncEventModel{Status: SyncStatusProcessing}

	if !e.ApplyFailure("timeout") {
		t.Fatal("first failure should apply")
	}
	if e.Status != SyncStatusPending || e.RetryCount != 1 {
		t.Fatalf("after 1 failure: status=%s retry=%d", e.Status, e.RetryCount)
	}

	e.Status = SyncStatusProcessing
	e.ApplyFailure("timeout")
	if e.Status != SyncStatusPending || e.RetryCount != 2 {
		t.Fatalf("after 2 failures: status=%s retry=%d", e.Status, e.RetryCount)
	}

	e.Status = SyncStatusProcessing
	e.ApplyFailure("timeout")
	if e.Status != SyncStatusFailed || e.RetryCount != 3 {
		t.Fatalf("after 3 failures: status=%s retry=%d, want terminal failed", e.Status, e.RetryCount)
	}

	// Fourth failure is a no-op on a terminal event.
	if e.ApplyFailure("timeout") {
		t.Error("failure on terminal event should not apply")
	}
	if e.RetryCount != 3 {
		t.Errorf("retry count grew past ceiling: %d", e.RetryCount)
	}

	done := SyncEventModel{Status: SyncStatusCompleted}
	if done.ApplyFailure("late failure") {
		t.Error("completed event must stay completed")
	}
}

func TestVoteToggle(t *testing.T) {
	cases := []struct {
		current, requested, want VoteType
	}{
		{"", VoteUp, VoteUp},
		{"", VoteDown, VoteDown},
		{VoteUp, VoteUp, ""},
		{VoteDown, VoteDown, ""},
		{VoteUp, VoteDown, VoteDown},
		{VoteDown, VoteUp, VoteUp},
	}
	for _, c := range cases {
		if got := ResolveVoteToggle(c.current, c.requested); got != c.want {
			t.Errorf("toggle(%q, %q) = %q, want %q", c.current, c.requested, got, c.want)
		}
	}
}
