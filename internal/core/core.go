// Package core implements the synchronization engine for DeenTracker.
//
// A Core owns the in-memory completion map, the queue of pending edits, and
// the per-cell grace windows that keep fresh local toggles from being visibly
// reverted by stale remote snapshots. All state lives on the Core instance
// and all mutation goes through its methods under a single mutex; there are
// no package-level variables.
//
// The Core does not talk to the network. A scheduler drives it: drain the
// queue, push the batch through the sheet client, confirm delivery, fetch a
// snapshot, apply it. The Core's job is to make each of those steps safe to
// interleave with concurrent user toggles.
package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/afitree-ship-it/deentracker/internal/checklist"
)

// DefaultGraceDuration is how long a freshly toggled cell resists being
// overwritten by remote snapshot values.
const DefaultGraceDuration = 30 * time.Second

// Status describes the engine's relationship with the remote store.
type Status string

const (
	// StatusIdle means no sync cycle is in flight and none has run yet.
	StatusIdle Status = "idle"
	// StatusSyncing means a drain or pull is in progress.
	StatusSyncing Status = "syncing"
	// StatusSuccess means the most recent cycle completed cleanly.
	StatusSuccess Status = "success"
	// StatusError means the most recent cycle failed; local state is intact.
	StatusError Status = "error"
	// StatusOffline means no remote URL is configured; the engine runs
	// locally and the queue grows unbounded by design.
	StatusOffline Status = "offline"
)

// ErrNoIdentity is returned by Toggle when no active member has been chosen.
var ErrNoIdentity = errors.New("no active member selected")

// ErrNotAuthorized is returned by Toggle when the target row belongs to a
// different member than the active identity.
var ErrNotAuthorized = errors.New("cannot toggle another member's checklist")

// Listener receives engine events. Callbacks run outside the engine lock but
// on the mutating goroutine, so implementations should hand off quickly.
type Listener interface {
	// CellChanged fires for each local toggle.
	CellChanged(date, memberID, taskID string, value bool)
	// StatusChanged fires when the sync status moves.
	StatusChanged(status Status)
	// SnapshotMerged fires after a remote snapshot has been reconciled in.
	SnapshotMerged()
}

// Persister is the durable mirror the engine writes through. *store.Store
// satisfies it. A nil Persister means memory-only operation.
type Persister interface {
	SaveCellContext(ctx context.Context, date, memberID, taskID string, value bool) error
	ReplaceCompletionContext(ctx context.Context, m checklist.CompletionMap) error
	AppendEditContext(ctx context.Context, edit checklist.Edit) error
	DeleteEditsContext(ctx context.Context, ids []string) error
}

// Options configures a Core.
type Options struct {
	// Store is the durable mirror. Nil disables persistence.
	Store Persister

	// GraceDuration is the shield window for fresh local toggles.
	// Zero means DefaultGraceDuration.
	GraceDuration time.Duration

	// ActiveMember is the identity whose row may be toggled.
	ActiveMember string

	// Logger receives warnings about degraded persistence. Nil means a
	// default stderr logger.
	Logger *log.Logger

	// Now overrides the clock, for tests. Nil means time.Now.
	Now func() time.Time
}

type graceRecord struct {
	value     bool
	expiresAt time.Time
}

// Core is the synchronization engine. Create one with New; the zero value is
// not usable.
type Core struct {
	mu         sync.Mutex
	completion checklist.CompletionMap
	pending    []checklist.Edit
	grace      map[checklist.CellKey]graceRecord

	activeMember string
	status       Status
	lastError    string

	graceDuration time.Duration
	store         Persister
	logger        *log.Logger
	now           func() time.Time

	listeners []Listener
}

// New creates an engine seeded with previously persisted state. Both
// arguments may be nil/empty for a fresh start; the completion map is not
// copied, so the caller must not retain it.
func New(completion checklist.CompletionMap, pending []checklist.Edit, opts Options) *Core {
	if completion == nil {
		completion = make(checklist.CompletionMap)
	}
	if opts.GraceDuration <= 0 {
		opts.GraceDuration = DefaultGraceDuration
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Core{
		completion:    completion,
		pending:       append([]checklist.Edit(nil), pending...),
		grace:         make(map[checklist.CellKey]graceRecord),
		activeMember:  opts.ActiveMember,
		status:        StatusIdle,
		graceDuration: opts.GraceDuration,
		store:         opts.Store,
		logger:        opts.Logger,
		now:           opts.Now,
	}
}

// Subscribe registers a listener for engine events.
func (c *Core) Subscribe(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// ActiveMember returns the identity whose row may be toggled.
func (c *Core) ActiveMember() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeMember
}

// SetActiveMember switches the active identity. Pending edits from the
// previous identity remain queued; they were valid when made.
func (c *Core) SetActiveMember(memberID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeMember = memberID
}

// Toggle flips one cell of the active member's checklist and returns the new
// value. The flip is applied optimistically: the in-memory map, the grace
// record, and the queued edit all update before any network delivery. A
// persistence failure is logged and degrades durability only.
func (c *Core) Toggle(date, memberID, taskID string) (bool, error) {
	return c.ToggleContext(context.Background(), date, memberID, taskID)
}

// ToggleContext flips a cell with context support for the persistence write.
func (c *Core) ToggleContext(ctx context.Context, date, memberID, taskID string) (bool, error) {
	if !checklist.ValidDate(date) {
		return false, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", date)
	}
	if taskID == "" {
		return false, fmt.Errorf("task id is required")
	}

	c.mu.Lock()

	if c.activeMember == "" {
		c.mu.Unlock()
		return false, ErrNoIdentity
	}
	if memberID != c.activeMember {
		c.mu.Unlock()
		return false, fmt.Errorf("%w: active member is %s", ErrNotAuthorized, c.activeMember)
	}

	current, _ := c.completion.Get(date, memberID, taskID) // absent reads as false
	next := !current

	edit := checklist.NewEdit(date, memberID, taskID, next)
	edit.LoggedAt = c.now()

	c.completion.Set(date, memberID, taskID, next)
	c.grace[edit.Key()] = graceRecord{value: next, expiresAt: c.now().Add(c.graceDuration)}
	c.pending = append(c.pending, edit)
	c.pruneGraceLocked()

	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SaveCellContext(ctx, date, memberID, taskID, next); err != nil {
			c.logger.Printf("Warning: cell not persisted, toggle survives in memory only: %v", err)
		}
		if err := c.store.AppendEditContext(ctx, edit); err != nil {
			c.logger.Printf("Warning: edit not persisted, delivery not restart-safe: %v", err)
		}
	}

	for _, l := range listeners {
		l.CellChanged(date, memberID, taskID, next)
	}

	return next, nil
}

// Snapshot returns a deep copy of the completion map for presentation.
func (c *Core) Snapshot() checklist.CompletionMap {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completion.Clone()
}

// PendingCount returns the number of edits awaiting delivery.
func (c *Core) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Status returns the current sync status.
func (c *Core) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastError returns the message of the most recent failed cycle, empty when
// the last cycle succeeded.
func (c *Core) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// SetStatus records a status transition and notifies listeners. err may be
// nil; it is kept only for StatusError.
func (c *Core) SetStatus(status Status, err error) {
	c.mu.Lock()
	if c.status == status && (err == nil || c.lastError == err.Error()) {
		c.mu.Unlock()
		return
	}
	c.status = status
	if status == StatusError && err != nil {
		c.lastError = err.Error()
	} else if status == StatusSuccess || status == StatusIdle {
		c.lastError = ""
	}
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l.StatusChanged(status)
	}
}

// pruneGraceLocked drops expired grace records. Caller holds the lock.
func (c *Core) pruneGraceLocked() {
	now := c.now()
	for key, rec := range c.grace {
		if !rec.expiresAt.After(now) {
			delete(c.grace, key)
		}
	}
}
