package core

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/afitree-ship-it/deentracker/internal/checklist"
)

// fakeClock lets tests move time past grace windows deterministically.
type fakeClock struct {
	current time.Time
}

func (f *fakeClock) now() time.Time { return f.current }

func (f *fakeClock) advance(d time.Duration) { f.current = f.current.Add(d) }

// recorder captures listener callbacks.
type recorder struct {
	cells    []string
	statuses []Status
	merges   int
}

func (r *recorder) CellChanged(date, memberID, taskID string, value bool) {
	r.cells = append(r.cells, date+"/"+memberID+"/"+taskID)
}

func (r *recorder) StatusChanged(status Status) { r.statuses = append(r.statuses, status) }

func (r *recorder) SnapshotMerged() { r.merges++ }

// newTestCore builds a memory-only engine with a controllable clock.
func newTestCore(t *testing.T, member string) (*Core, *fakeClock) {
	t.Helper()
	clock := &fakeClock{current: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := New(nil, nil, Options{
		ActiveMember:  member,
		GraceDuration: 30 * time.Second,
		Now:           clock.now,
	})
	return c, clock
}

func TestToggleFlipsCell(t *testing.T) {
	c, _ := newTestCore(t, "m1")
	rec := &recorder{}
	c.Subscribe(rec)

	v, err := c.Toggle("2024-06-01", "m1", "t1")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !v {
		t.Error("first toggle of absent cell should yield true")
	}

	v, err = c.Toggle("2024-06-01", "m1", "t1")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if v {
		t.Error("second toggle should yield false")
	}

	if got, recorded := c.Snapshot().Get("2024-06-01", "m1", "t1"); got || !recorded {
		t.Errorf("cell = (%v, %v), want explicit false", got, recorded)
	}
	if c.PendingCount() != 2 {
		t.Errorf("PendingCount = %d, want 2 (queue is append-only)", c.PendingCount())
	}
	if len(rec.cells) != 2 {
		t.Errorf("listener saw %d cell changes, want 2", len(rec.cells))
	}
}

func TestToggleAuthorization(t *testing.T) {
	c, _ := newTestCore(t, "m1")

	if _, err := c.Toggle("2024-06-01", "m2", "t1"); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("toggle of another member's row: err = %v, want ErrNotAuthorized", err)
	}
	if c.PendingCount() != 0 {
		t.Error("rejected toggle must not enqueue an edit")
	}
	if _, recorded := c.Snapshot().Get("2024-06-01", "m2", "t1"); recorded {
		t.Error("rejected toggle must not mutate the map")
	}

	c.SetActiveMember("")
	if _, err := c.Toggle("2024-06-01", "m1", "t1"); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("toggle without identity: err = %v, want ErrNoIdentity", err)
	}
}

func TestToggleValidation(t *testing.T) {
	c, _ := newTestCore(t, "m1")

	if _, err := c.Toggle("june 1st", "m1", "t1"); err == nil {
		t.Error("invalid date should be rejected")
	}
	if _, err := c.Toggle("2024-06-01", "m1", ""); err == nil {
		t.Error("empty task id should be rejected")
	}
}

func TestDrainCollapsesQueue(t *testing.T) {
	c, clock := newTestCore(t, "m1")

	// true, false, true on t1 plus a single toggle on t2.
	for i := 0; i < 3; i++ {
		if _, err := c.Toggle("2024-06-01", "m1", "t1"); err != nil {
			t.Fatal(err)
		}
		clock.advance(time.Second)
	}
	if _, err := c.Toggle("2024-06-01", "m1", "t2"); err != nil {
		t.Fatal(err)
	}

	batch := c.DrainSnapshot()
	if len(batch.Edits) != 2 {
		t.Fatalf("batch has %d edits, want 2 (one per cell)", len(batch.Edits))
	}
	if len(batch.IDs) != 4 {
		t.Errorf("batch covers %d raw edits, want 4", len(batch.IDs))
	}

	byTask := map[string]bool{}
	for _, e := range batch.Edits {
		byTask[e.TaskID] = e.Value
	}
	if !byTask["t1"] {
		t.Error("t1 should collapse to true (last value wins)")
	}
	if !byTask["t2"] {
		t.Error("t2 should be true")
	}

	// Drain does not consume: the queue stays until Confirm.
	if c.PendingCount() != 4 {
		t.Errorf("PendingCount after drain = %d, want 4", c.PendingCount())
	}
}

func TestDrainEmptyQueue(t *testing.T) {
	c, _ := newTestCore(t, "m1")
	if batch := c.DrainSnapshot(); !batch.Empty() {
		t.Errorf("empty queue should drain to an empty batch, got %d edits", len(batch.Edits))
	}
}

func TestConfirmRemovesOnlyDelivered(t *testing.T) {
	c, clock := newTestCore(t, "m1")

	if _, err := c.Toggle("2024-06-01", "m1", "t1"); err != nil {
		t.Fatal(err)
	}
	batch := c.DrainSnapshot()

	// A toggle lands while the batch is in flight.
	clock.advance(time.Second)
	if _, err := c.Toggle("2024-06-01", "m1", "t2"); err != nil {
		t.Fatal(err)
	}

	if err := c.Confirm(batch.IDs); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if c.PendingCount() != 1 {
		t.Errorf("PendingCount = %d, want 1 (in-flight toggle must survive)", c.PendingCount())
	}

	next := c.DrainSnapshot()
	if len(next.Edits) != 1 || next.Edits[0].TaskID != "t2" {
		t.Errorf("next batch = %+v, want the surviving t2 edit", next.Edits)
	}
}

func TestFailedPushRetainsQueue(t *testing.T) {
	c, _ := newTestCore(t, "m1")

	if _, err := c.Toggle("2024-06-01", "m1", "t1"); err != nil {
		t.Fatal(err)
	}

	first := c.DrainSnapshot()
	// Push fails: no Confirm. A later drain must deliver the same set.
	second := c.DrainSnapshot()

	if len(second.Edits) != len(first.Edits) || len(second.IDs) != len(first.IDs) {
		t.Fatalf("redrain differs: first %d/%d, second %d/%d",
			len(first.Edits), len(first.IDs), len(second.Edits), len(second.IDs))
	}
	if second.Edits[0].ID != first.Edits[0].ID {
		t.Error("redrain should deliver the same collapsed edit")
	}
}

func TestGraceWindowShieldsFreshToggle(t *testing.T) {
	c, clock := newTestCore(t, "m1")

	if _, err := c.Toggle("2024-06-01", "m1", "t1"); err != nil {
		t.Fatal(err)
	}
	batch := c.DrainSnapshot()
	if err := c.Confirm(batch.IDs); err != nil {
		t.Fatal(err)
	}

	// A stale snapshot says the cell is false. Inside the window the local
	// true must survive.
	stale := make(checklist.CompletionMap)
	stale.Set("2024-06-01", "m1", "t1", false)

	clock.advance(10 * time.Second)
	c.ApplyRemoteSnapshot(stale.Clone())
	if v, _ := c.Snapshot().Get("2024-06-01", "m1", "t1"); !v {
		t.Fatal("grace window failed: fresh toggle reverted by stale snapshot")
	}

	// Past the window (and with the queue confirmed) the remote wins.
	clock.advance(30 * time.Second)
	c.ApplyRemoteSnapshot(stale.Clone())
	if v, _ := c.Snapshot().Get("2024-06-01", "m1", "t1"); v {
		t.Error("expired grace window should let the remote value through")
	}
}

func TestPendingEditShieldsBeyondGrace(t *testing.T) {
	c, clock := newTestCore(t, "m1")

	if _, err := c.Toggle("2024-06-01", "m1", "t1"); err != nil {
		t.Fatal(err)
	}

	// Grace expired, but the edit was never delivered. The undelivered edit
	// keeps shielding its cell.
	clock.advance(5 * time.Minute)

	stale := make(checklist.CompletionMap)
	stale.Set("2024-06-01", "m1", "t1", false)
	c.ApplyRemoteSnapshot(stale)

	if v, _ := c.Snapshot().Get("2024-06-01", "m1", "t1"); !v {
		t.Error("cell with pending edit must not be overwritten by remote")
	}
}

func TestMergeKeepsCellsAbsentFromRemote(t *testing.T) {
	c, clock := newTestCore(t, "m1")

	if _, err := c.Toggle("2024-06-01", "m1", "t1"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Toggle("2024-06-01", "m1", "t1"); err != nil { // back to explicit false
		t.Fatal(err)
	}
	batch := c.DrainSnapshot()
	if err := c.Confirm(batch.IDs); err != nil {
		t.Fatal(err)
	}
	clock.advance(5 * time.Minute) // no shields remain

	// Remote knows about a different member only; our cell is absent there.
	remote := make(checklist.CompletionMap)
	remote.Set("2024-06-01", "m2", "t1", true)
	c.ApplyRemoteSnapshot(remote)

	snap := c.Snapshot()
	if v, recorded := snap.Get("2024-06-01", "m1", "t1"); v || !recorded {
		t.Errorf("locally recorded cell absent from remote = (%v, %v), want explicit false kept", v, recorded)
	}
	if v, _ := snap.Get("2024-06-01", "m2", "t1"); !v {
		t.Error("remote cell should be adopted")
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	c, _ := newTestCore(t, "m1")
	if _, err := c.Toggle("2024-06-01", "m1", "t1"); err != nil {
		t.Fatal(err)
	}

	snap := c.Snapshot()
	snap.Set("2024-06-01", "m1", "t1", false)
	snap.Set("2024-06-02", "m1", "t1", true)

	if v, _ := c.Snapshot().Get("2024-06-01", "m1", "t1"); !v {
		t.Error("mutating a snapshot changed engine state")
	}
	if _, recorded := c.Snapshot().Get("2024-06-02", "m1", "t1"); recorded {
		t.Error("mutating a snapshot added cells to engine state")
	}
}

func TestStatusTransitions(t *testing.T) {
	c, _ := newTestCore(t, "m1")
	rec := &recorder{}
	c.Subscribe(rec)

	if c.Status() != StatusIdle {
		t.Errorf("initial status = %s, want idle", c.Status())
	}

	c.SetStatus(StatusSyncing, nil)
	c.SetStatus(StatusError, errors.New("push failed"))
	if c.Status() != StatusError {
		t.Errorf("status = %s, want error", c.Status())
	}
	if c.LastError() != "push failed" {
		t.Errorf("LastError = %q, want push failure message", c.LastError())
	}

	c.SetStatus(StatusSuccess, nil)
	if c.LastError() != "" {
		t.Error("success should clear the last error")
	}

	// Repeated identical transitions do not re-notify.
	c.SetStatus(StatusSuccess, nil)
	want := []Status{StatusSyncing, StatusError, StatusSuccess}
	if len(rec.statuses) != len(want) {
		t.Fatalf("listener saw %d transitions %v, want %v", len(rec.statuses), rec.statuses, want)
	}
	for i := range want {
		if rec.statuses[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, rec.statuses[i], want[i])
		}
	}
}

// failingPersister rejects every write.
type failingPersister struct{}

func (failingPersister) SaveCellContext(ctx context.Context, date, memberID, taskID string, value bool) error {
	return errors.New("disk full")
}
func (failingPersister) ReplaceCompletionContext(ctx context.Context, m checklist.CompletionMap) error {
	return errors.New("disk full")
}
func (failingPersister) AppendEditContext(ctx context.Context, edit checklist.Edit) error {
	return errors.New("disk full")
}
func (failingPersister) DeleteEditsContext(ctx context.Context, ids []string) error {
	return errors.New("disk full")
}

func TestPersistenceFailureDegradesDurabilityOnly(t *testing.T) {
	c := New(nil, nil, Options{
		ActiveMember: "m1",
		Store:        failingPersister{},
		Logger:       log.New(io.Discard, "", 0),
	})

	v, err := c.Toggle("2024-06-01", "m1", "t1")
	if err != nil {
		t.Fatalf("Toggle with failing store: %v", err)
	}
	if !v {
		t.Error("toggle should apply in memory despite persistence failure")
	}
	if c.PendingCount() != 1 {
		t.Errorf("PendingCount = %d, want 1", c.PendingCount())
	}

	remote := make(checklist.CompletionMap)
	remote.Set("2024-06-01", "m2", "t1", true)
	c.ApplyRemoteSnapshot(remote)
	if v, _ := c.Snapshot().Get("2024-06-01", "m2", "t1"); !v {
		t.Error("merge should apply in memory despite persistence failure")
	}
}

// TestToggleDuringSyncCycle walks the full optimistic flow: a toggle lands,
// gets drained and pushed, and a snapshot that does not yet reflect it comes
// back. The user must keep seeing their toggle while another member's
// explicit value is adopted.
func TestToggleDuringSyncCycle(t *testing.T) {
	c, clock := newTestCore(t, "m1")
	rec := &recorder{}
	c.Subscribe(rec)

	if _, err := c.Toggle("2024-06-01", "m1", "t1"); err != nil {
		t.Fatal(err)
	}

	batch := c.DrainSnapshot()
	if len(batch.Edits) != 1 {
		t.Fatalf("batch has %d edits, want 1", len(batch.Edits))
	}
	// Push succeeds.
	if err := c.Confirm(batch.IDs); err != nil {
		t.Fatal(err)
	}

	// The immediate pull returns a snapshot written before our push landed:
	// our cell is missing and m2 has an explicit false.
	clock.advance(2 * time.Second)
	remote := make(checklist.CompletionMap)
	remote.Set("2024-06-01", "m2", "t1", false)
	c.ApplyRemoteSnapshot(remote)

	snap := c.Snapshot()
	if v, _ := snap.Get("2024-06-01", "m1", "t1"); !v {
		t.Error("own toggle reverted by a stale pull")
	}
	if v, recorded := snap.Get("2024-06-01", "m2", "t1"); v || !recorded {
		t.Errorf("m2/t1 = (%v, %v), want explicit false adopted", v, recorded)
	}
	if rec.merges != 1 {
		t.Errorf("listener saw %d merges, want 1", rec.merges)
	}
}
