package store

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/afitree-ship-it/deentracker/internal/checklist"
)

// setupTestStore creates a temporary database for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	if err := st.InitSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	return st
}

func TestSaveAndLoadCompletion(t *testing.T) {
	st := setupTestStore(t)

	if err := st.SaveCell("2024-01-01", "m1", "t1", true); err != nil {
		t.Fatalf("SaveCell: %v", err)
	}
	if err := st.SaveCell("2024-01-01", "m2", "t1", false); err != nil {
		t.Fatalf("SaveCell: %v", err)
	}

	m, err := st.LoadCompletion()
	if err != nil {
		t.Fatalf("LoadCompletion: %v", err)
	}

	if v, recorded := m.Get("2024-01-01", "m1", "t1"); !v || !recorded {
		t.Errorf("m1/t1 = (%v, %v), want (true, true)", v, recorded)
	}
	if v, recorded := m.Get("2024-01-01", "m2", "t1"); v || !recorded {
		t.Errorf("m2/t1 = (%v, %v), want (false, true)", v, recorded)
	}
}

func TestSaveCellUpsert(t *testing.T) {
	st := setupTestStore(t)

	if err := st.SaveCell("2024-01-01", "m1", "t1", true); err != nil {
		t.Fatalf("SaveCell: %v", err)
	}
	if err := st.SaveCell("2024-01-01", "m1", "t1", false); err != nil {
		t.Fatalf("SaveCell (update): %v", err)
	}

	m, err := st.LoadCompletion()
	if err != nil {
		t.Fatalf("LoadCompletion: %v", err)
	}
	if v, _ := m.Get("2024-01-01", "m1", "t1"); v {
		t.Error("cell should be false after upsert")
	}

	count, err := st.CellCount()
	if err != nil {
		t.Fatalf("CellCount: %v", err)
	}
	if count != 1 {
		t.Errorf("CellCount = %d, want 1 (upsert must not duplicate)", count)
	}
}

func TestReplaceCompletion(t *testing.T) {
	st := setupTestStore(t)

	if err := st.SaveCell("2024-01-01", "m1", "t1", true); err != nil {
		t.Fatal(err)
	}

	replacement := make(checklist.CompletionMap)
	replacement.Set("2024-02-01", "m2", "t2", true)
	replacement.Set("2024-02-01", "m2", "t3", false)

	if err := st.ReplaceCompletion(replacement); err != nil {
		t.Fatalf("ReplaceCompletion: %v", err)
	}

	m, err := st.LoadCompletion()
	if err != nil {
		t.Fatalf("LoadCompletion: %v", err)
	}
	if !m.Equal(replacement) {
		t.Errorf("loaded mirror differs from replacement: got %v", m)
	}
}

func TestPendingEditQueue(t *testing.T) {
	st := setupTestStore(t)

	e1 := checklist.NewEdit("2024-01-01", "m1", "t1", true)
	time.Sleep(time.Millisecond) // distinct logged_at ordering
	e2 := checklist.NewEdit("2024-01-01", "m1", "t1", false)

	if err := st.AppendEdit(e1); err != nil {
		t.Fatalf("AppendEdit: %v", err)
	}
	if err := st.AppendEdit(e2); err != nil {
		t.Fatalf("AppendEdit: %v", err)
	}

	edits, err := st.PendingEdits()
	if err != nil {
		t.Fatalf("PendingEdits: %v", err)
	}
	if len(edits) != 2 {
		t.Fatalf("PendingEdits returned %d edits, want 2", len(edits))
	}
	if edits[0].ID != e1.ID || edits[1].ID != e2.ID {
		t.Errorf("edits out of order: got [%s, %s]", edits[0].ID, edits[1].ID)
	}
	if !edits[0].LoggedAt.Before(edits[1].LoggedAt) {
		t.Error("logged_at ordering lost in round trip")
	}

	// Confirm the first, keep the second.
	if err := st.DeleteEdits([]string{e1.ID}); err != nil {
		t.Fatalf("DeleteEdits: %v", err)
	}

	count, err := st.PendingCount()
	if err != nil {
		t.Fatalf("PendingCount: %v", err)
	}
	if count != 1 {
		t.Errorf("PendingCount = %d, want 1", count)
	}

	// Deleting unknown IDs is idempotent.
	if err := st.DeleteEdits([]string{"no-such-id"}); err != nil {
		t.Errorf("DeleteEdits with unknown id: %v", err)
	}
}

func TestAppendEditRejectsInvalid(t *testing.T) {
	st := setupTestStore(t)

	bad := checklist.Edit{ID: "x", Date: "not-a-date", MemberID: "m1", TaskID: "t1", LoggedAt: time.Now()}
	if err := st.AppendEdit(bad); err == nil {
		t.Error("expected error for invalid edit, got nil")
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "persist.db")

	st, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.InitSchema(); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}

	edit := checklist.NewEdit("2024-01-01", "m1", "t1", true)
	if err := st.SaveCell("2024-01-01", "m1", "t1", true); err != nil {
		t.Fatal(err)
	}
	if err := st.AppendEdit(edit); err != nil {
		t.Fatal(err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen and verify both the map and the queue survived.
	st, err = Open(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	if err := st.InitSchema(); err != nil {
		t.Fatalf("InitSchema after reopen: %v", err)
	}

	m, err := st.LoadCompletion()
	if err != nil {
		t.Fatalf("LoadCompletion: %v", err)
	}
	if v, _ := m.Get("2024-01-01", "m1", "t1"); !v {
		t.Error("completion cell lost across reopen")
	}

	edits, err := st.PendingEdits()
	if err != nil {
		t.Fatalf("PendingEdits: %v", err)
	}
	if len(edits) != 1 || edits[0].ID != edit.ID {
		t.Errorf("pending edit lost across reopen: got %v", edits)
	}
}

func TestSeed(t *testing.T) {
	st := setupTestStore(t)
	roster := checklist.DefaultRoster()

	rng := rand.New(rand.NewSource(42))
	written, err := st.Seed(context.Background(), roster, SeedOptions{
		Days:           3,
		CompletionRate: 0.5,
		Rand:           rng,
	})
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}

	want := 3 * len(roster.Members) * len(roster.Tasks)
	if written != want {
		t.Errorf("Seed wrote %d cells, want %d", written, want)
	}

	count, err := st.CellCount()
	if err != nil {
		t.Fatalf("CellCount: %v", err)
	}
	if count != want {
		t.Errorf("CellCount = %d, want %d", count, want)
	}

	if _, err := st.Seed(context.Background(), roster, SeedOptions{Days: 0}); err == nil {
		t.Error("Seed with zero days should fail")
	}
}
