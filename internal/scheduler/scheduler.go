// Package scheduler drives the sync engine's pull/push cycle.
//
// The scheduler:
// 1. Pulls a remote snapshot on a fixed interval
// 2. Drains the pending edit queue before pulling when edits are waiting
// 3. Pulls immediately after a successful drain
// 4. Coalesces user-triggered kicks so cycles never overlap
//
// All remote failures are reported through the engine's sync status and then
// retried on the next tick; the scheduler itself never gives up.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/afitree-ship-it/deentracker/internal/checklist"
	"github.com/afitree-ship-it/deentracker/internal/core"
)

// Remote is the snapshot store the scheduler syncs against.
// *sheet.Client satisfies it.
type Remote interface {
	FetchSnapshot(ctx context.Context) (checklist.CompletionMap, error)
	PushEdits(ctx context.Context, edits []checklist.Edit) error
	Configured() bool
}

// Config holds configuration for the scheduler.
type Config struct {
	// PullInterval is how often to fetch a remote snapshot.
	PullInterval time.Duration

	// MinRetryInterval is the shortest gap between drain attempts after a
	// failed push. Ticker pulls continue regardless.
	MinRetryInterval time.Duration

	// Logger for scheduler activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		PullInterval:     20 * time.Second,
		MinRetryInterval: 5 * time.Second,
		Logger:           log.New(os.Stderr, "[sched] ", log.LstdFlags),
	}
}

// Scheduler owns the periodic sync loop around a Core and a Remote.
type Scheduler struct {
	engine *core.Core
	remote Remote
	config *Config

	// kicks and pulls are buffered at 1: posting to a full channel is a
	// no-op, which coalesces bursts into a single cycle.
	kicks chan struct{}
	pulls chan struct{}

	failMu        sync.Mutex
	lastDrainFail time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler with default configuration.
func New(engine *core.Core, remote Remote) (*Scheduler, error) {
	return NewWithConfig(engine, remote, DefaultConfig())
}

// NewWithConfig creates a scheduler with custom configuration.
func NewWithConfig(engine *core.Core, remote Remote, config *Config) (*Scheduler, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if remote == nil {
		return nil, fmt.Errorf("remote cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.PullInterval <= 0 {
		config.PullInterval = 20 * time.Second
	}
	if config.MinRetryInterval < 0 {
		config.MinRetryInterval = 0
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[sched] ", log.LstdFlags)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		engine: engine,
		remote: remote,
		config: config,
		kicks:  make(chan struct{}, 1),
		pulls:  make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start runs the sync loop. Blocks until ctx is cancelled or Stop is called.
//
// With no remote configured the engine is marked offline and the loop idles:
// toggles keep accumulating in the durable queue.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.remote.Configured() {
		s.config.Logger.Println("No sheet URL configured, running offline")
		s.engine.SetStatus(core.StatusOffline, nil)
		select {
		case <-ctx.Done():
			return s.Stop()
		case <-s.ctx.Done():
			return nil
		}
	}

	s.config.Logger.Printf("Starting sync loop (pull every %s)", s.config.PullInterval)

	s.wg.Add(1)
	go s.run()

	select {
	case <-ctx.Done():
		s.config.Logger.Println("Shutdown signal received")
		return s.Stop()
	case <-s.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.cancel()
	s.wg.Wait()
	s.config.Logger.Println("Sync loop stopped")
	return nil
}

// Kick requests a full cycle (drain then pull) soon. Called after a toggle.
// Bursts of kicks coalesce into one cycle; Kick never blocks.
func (s *Scheduler) Kick() {
	select {
	case s.kicks <- struct{}{}:
	default:
	}
}

// PullNow requests an immediate snapshot pull without draining first.
// Used for manual refresh. Never blocks.
func (s *Scheduler) PullNow() {
	select {
	case s.pulls <- struct{}{}:
	default:
	}
}

// SyncOnce runs one synchronous cycle: drain if anything is pending, then
// pull. Used by one-shot CLI commands that have no running loop. Returns the
// engine's resulting status.
func (s *Scheduler) SyncOnce() core.Status {
	if !s.remote.Configured() {
		s.engine.SetStatus(core.StatusOffline, nil)
		return core.StatusOffline
	}
	s.cycle()
	return s.engine.Status()
}

// run is the single worker goroutine. Cycles are serialized here, which is
// what makes drain and pull single-flight.
func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PullInterval)
	defer ticker.Stop()

	// Initial cycle so a restart delivers any queued edits right away.
	s.cycle()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.cycle()
		case <-s.kicks:
			s.cycle()
		case <-s.pulls:
			s.pull()
		}
	}
}

// cycle drains the queue if needed, then pulls. A successful drain always
// pulls immediately so the view converges with what other devices pushed in
// the meantime.
func (s *Scheduler) cycle() {
	if s.engine.PendingCount() > 0 {
		if !s.drainAllowed() {
			s.pull()
			return
		}
		if err := s.drain(); err != nil {
			s.config.Logger.Printf("Drain failed: %v", err)
			s.engine.SetStatus(core.StatusError, err)
			return
		}
	}
	s.pull()
}

// drainAllowed enforces the minimum gap between drain attempts after a
// failure.
func (s *Scheduler) drainAllowed() bool {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	return time.Since(s.lastDrainFail) >= s.config.MinRetryInterval
}

// drain pushes the collapsed queue and confirms delivery. The queue stays
// intact on failure so the same collapsed set is re-delivered later.
func (s *Scheduler) drain() error {
	batch := s.engine.DrainSnapshot()
	if batch.Empty() {
		return nil
	}

	s.engine.SetStatus(core.StatusSyncing, nil)
	s.config.Logger.Printf("Pushing %d collapsed edits (%d queued)", len(batch.Edits), len(batch.IDs))

	if err := s.remote.PushEdits(s.ctx, batch.Edits); err != nil {
		s.failMu.Lock()
		s.lastDrainFail = time.Now()
		s.failMu.Unlock()
		return fmt.Errorf("push failed: %w", err)
	}

	if err := s.engine.ConfirmContext(s.ctx, batch.IDs); err != nil {
		return fmt.Errorf("confirm failed: %w", err)
	}
	return nil
}

// pull fetches a snapshot and reconciles it in. A failed fetch changes
// nothing except the status.
func (s *Scheduler) pull() {
	s.engine.SetStatus(core.StatusSyncing, nil)

	snap, err := s.remote.FetchSnapshot(s.ctx)
	if err != nil {
		s.config.Logger.Printf("Pull failed: %v", err)
		s.engine.SetStatus(core.StatusError, err)
		return
	}

	s.engine.ApplyRemoteSnapshotContext(s.ctx, snap)
	s.engine.SetStatus(core.StatusSuccess, nil)
}
