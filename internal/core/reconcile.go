package core

import (
	"context"

	"github.com/afitree-ship-it/deentracker/internal/checklist"
)

// Batch is a delivery unit produced by DrainSnapshot: the collapsed edits to
// push plus the IDs of every raw queue entry the batch covers. Confirm takes
// the IDs back once delivery succeeds; edits enqueued after the drain carry
// different IDs and survive untouched.
type Batch struct {
	Edits []checklist.Edit
	IDs   []string
}

// Empty reports whether there is nothing to deliver.
func (b Batch) Empty() bool {
	return len(b.Edits) == 0
}

// DrainSnapshot collapses the pending queue to one edit per cell (latest
// timestamp wins) and returns the batch. The queue itself is NOT modified:
// delivery may fail, and until Confirm is called every entry stays durable
// and keeps shielding its cell during merges.
func (c *Core) DrainSnapshot() Batch {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 {
		return Batch{}
	}

	ids := make([]string, len(c.pending))
	for i := range c.pending {
		ids[i] = c.pending[i].ID
	}

	return Batch{
		Edits: checklist.Collapse(c.pending),
		IDs:   ids,
	}
}

// Confirm removes delivered edits from the queue, in memory and durably.
// Unknown IDs are ignored so a crashed-then-replayed confirmation is safe.
func (c *Core) Confirm(ids []string) error {
	return c.ConfirmContext(context.Background(), ids)
}

// ConfirmContext removes delivered edits with context support.
func (c *Core) ConfirmContext(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	delivered := make(map[string]bool, len(ids))
	for _, id := range ids {
		delivered[id] = true
	}

	c.mu.Lock()
	kept := c.pending[:0]
	for _, e := range c.pending {
		if !delivered[e.ID] {
			kept = append(kept, e)
		}
	}
	c.pending = kept
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.DeleteEditsContext(ctx, ids); err != nil {
			c.logger.Printf("Warning: confirmed edits not removed from cache, will re-deliver after restart: %v", err)
		}
	}

	return nil
}

// ApplyRemoteSnapshot reconciles a successfully fetched remote snapshot into
// the local view. The remote map is the base; three classes of cells keep
// their local value instead:
//
//   - cells recorded locally but absent from the snapshot (the store may
//     return partial data, and absence is not an explicit false)
//   - cells inside a live grace window
//   - cells with an edit still pending delivery
//
// The merge is atomic from a reader's perspective: Snapshot never observes a
// half-merged map. Callers must not invoke this after a failed fetch; a
// failed fetch leaves local state exactly as it was.
//
// The snapshot is not copied, so the caller must not retain it.
func (c *Core) ApplyRemoteSnapshot(snap checklist.CompletionMap) {
	c.ApplyRemoteSnapshotContext(context.Background(), snap)
}

// ApplyRemoteSnapshotContext reconciles a snapshot with context support for
// the persistence write.
func (c *Core) ApplyRemoteSnapshotContext(ctx context.Context, snap checklist.CompletionMap) {
	if snap == nil {
		snap = make(checklist.CompletionMap)
	}

	c.mu.Lock()
	c.pruneGraceLocked()

	shielded := make(map[checklist.CellKey]bool, len(c.grace)+len(c.pending))
	for key := range c.grace {
		shielded[key] = true
	}
	for i := range c.pending {
		shielded[c.pending[i].Key()] = true
	}

	merged := snap
	for date, day := range c.completion {
		for memberID, member := range day {
			for taskID, value := range member {
				key := checklist.CellKey{Date: date, MemberID: memberID, TaskID: taskID}
				if _, recorded := merged.Get(date, memberID, taskID); !recorded || shielded[key] {
					merged.Set(date, memberID, taskID, value)
				}
			}
		}
	}

	c.completion = merged
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.ReplaceCompletionContext(ctx, merged); err != nil {
			c.logger.Printf("Warning: merged snapshot not persisted: %v", err)
		}
	}

	for _, l := range listeners {
		l.SnapshotMerged()
	}
}
