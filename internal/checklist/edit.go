package checklist

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Edit is a single local toggle awaiting delivery to the remote store.
//
// Edits are immutable once created. Re-toggling the same cell produces a new
// Edit with a later LoggedAt; the queue resolves supersession by timestamp at
// drain time, never by mutating an existing entry.
type Edit struct {
	ID       string    `json:"id"`
	Date     string    `json:"date"`
	MemberID string    `json:"member_id"`
	TaskID   string    `json:"task_id"`
	Value    bool      `json:"value"`
	LoggedAt time.Time `json:"logged_at"`
}

// NewEdit creates an edit for a cell with a fresh ID and the current time.
func NewEdit(date, memberID, taskID string, value bool) Edit {
	return Edit{
		ID:       uuid.NewString(),
		Date:     date,
		MemberID: memberID,
		TaskID:   taskID,
		Value:    value,
		LoggedAt: time.Now(),
	}
}

// Validate checks that the edit addresses a well-formed cell.
func (e *Edit) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("edit id is required")
	}
	if !ValidDate(e.Date) {
		return fmt.Errorf("edit %s: invalid date %q", e.ID, e.Date)
	}
	if e.MemberID == "" {
		return fmt.Errorf("edit %s: member id is required", e.ID)
	}
	if e.TaskID == "" {
		return fmt.Errorf("edit %s: task id is required", e.ID)
	}
	if e.LoggedAt.IsZero() {
		return fmt.Errorf("edit %s: logged_at is required", e.ID)
	}
	return nil
}

// Key returns the cell key used for drain collapse and grace-window lookups.
func (e *Edit) Key() CellKey {
	return CellKey{Date: e.Date, MemberID: e.MemberID, TaskID: e.TaskID}
}

// CellKey identifies a single (date, member, task) cell.
type CellKey struct {
	Date     string
	MemberID string
	TaskID   string
}

// String renders the key for logging.
func (k CellKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Date, k.MemberID, k.TaskID)
}

// Collapse reduces a queue of edits to the latest entry per cell.
//
// Older superseded entries for the same cell are dropped; only final state
// matters to the remote store. Relative order of surviving entries follows
// their first appearance in the input, so delivery order stays stable.
func Collapse(edits []Edit) []Edit {
	latest := make(map[CellKey]int, len(edits))
	var out []Edit

	for _, e := range edits {
		key := e.Key()
		if i, ok := latest[key]; ok {
			if !e.LoggedAt.Before(out[i].LoggedAt) {
				out[i] = e
			}
			continue
		}
		latest[key] = len(out)
		out = append(out, e)
	}

	return out
}
