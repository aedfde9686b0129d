package models

import "testing"

func TestValidatePayload(t *testing.T) {
	edit := &EditProposal{Title: "Nowa nazwa"}
	del := &DeletionProposal{Reason: "duplikat"}

	cases := []struct {
		name  string
		entry HistoryModel
		ok    bool
	}{
		{"edit with edit payload", HistoryModel{Action: HistoryActionEdit, Edit: edit}, true},
		{"deletion with deletion payload", HistoryModel{Action: HistoryActionDeleteRequest, Deletion: del}, true},
		{"edit without payload", HistoryModel{Action: HistoryActionEdit}, false},
		{"edit with deletion payload too", HistoryModel{Action: HistoryActionEdit, Edit: edit, Deletion: del}, false},
		{"deletion with edit payload", HistoryModel{Action: HistoryActionDeleteRequest, Edit: edit}, false},
		{"unknown action", HistoryModel{Action: "rename", Edit: edit}, false},
	}
	for _, c := range cases {
		err := c.entry.ValidatePayload()
		if c.ok && err != nil {
			t.Errorf("%s: unexpected error %v", c.name, err)
		}
		if !c.ok && err == nil {
			t.Errorf("%s: expected error", c.name)
		}
	}
}

func TestMergeImagesCap(t *testing.T) {
	mk := func(n int, prefix string) []Image {
		out := make([]Image, n)
		for i := range out {
			out[i] = Image{Full: prefix + string(rune('a'+i))}
		}
		return out
	}

	existing := mk(5, "old-")
	incoming := mk(3, "new-")
	merged := MergeImages(existing, incoming, 6)
	if len(merged) != 6 {
		t.Fatalf("merged length = %d, want 6", len(merged))
	}
	// Existing images keep their slots; only the first incoming fits.
	for i := 0; i < 5; i++ {
		if merged[i] != existing[i] {
			t.Errorf("slot %d: existing image displaced", i)
		}
	}
	if merged[5] != incoming[0] {
		t.Errorf("slot 5 = %v, want first incoming image", merged[5])
	}

	merged = MergeImages(nil, incoming, 6)
	if len(merged) != 3 {
		t.Errorf("merge into empty = %d images, want 3", len(merged))
	}

	// Sponsored cap admits more.
	merged = MergeImages(mk(8, "old-"), mk(8, "new-"), 12)
	if len(merged) != 12 {
		t.Errorf("sponsored merge = %d images, want 12", len(merged))
	}
}

func TestHistoryStatusResolved(t *testing.T) {
	if HistoryStatusPending.Resolved() {
		t.Error("pending must not be resolved")
	}
	if !HistoryStatusApproved.Resolved() || !HistoryStatusRejected.Resolved() {
		t.Error("approved and rejected are resolved states")
	}
}
