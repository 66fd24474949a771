package scheduler

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/afitree-ship-it/deentracker/internal/core"
	"github.com/afitree-ship-it/deentracker/internal/identity"
)

// Watcher propagates identity changes made by concurrent processes into a
// running daemon. When `deen member` rewrites member.json while the daemon is
// up, the daemon switches its active identity and refreshes the view without
// a restart.
type Watcher struct {
	watcher      *fsnotify.Watcher
	engine       *core.Core
	sched        *Scheduler
	identityPath string
	logger       *log.Logger

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher over the data directory. sched may be nil
// when no sync loop is running; identity changes then update the engine only.
func NewWatcher(dataDir string, engine *core.Core, sched *Scheduler, logger *log.Logger) (*Watcher, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[watch] ", log.LstdFlags)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(dataDir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch data directory: %w", err)
	}

	return &Watcher{
		watcher:      fw,
		engine:       engine,
		sched:        sched,
		identityPath: identity.Path(dataDir),
		logger:       logger,
		done:         make(chan struct{}),
	}, nil
}

// Start begins processing filesystem events. Non-blocking; call Stop to
// shut down.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.watchEvents()
}

// Stop shuts the watcher down and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) watchEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// identity.Save writes a temp file then renames over the real
			// one, so the interesting ops on the final path are Create and
			// Rename; Write covers direct edits.
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Base(event.Name) != identity.FileName {
				continue
			}
			w.reloadIdentity()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("Watch error: %v", err)
		}
	}
}

func (w *Watcher) reloadIdentity() {
	id, err := identity.Load(w.identityPath)
	if err != nil {
		w.logger.Printf("Failed to reload identity: %v", err)
		return
	}
	if id == "" || id == w.engine.ActiveMember() {
		return
	}

	w.logger.Printf("Active member changed to %s", id)
	w.engine.SetActiveMember(id)
	if w.sched != nil {
		w.sched.PullNow()
	}
}
