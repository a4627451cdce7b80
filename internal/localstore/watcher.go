package localstore

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// EventOp represents the type of file system operation on the todo blob.
type EventOp int

const (
	// OpModify indicates the blob was created or rewritten.
	OpModify EventOp = iota
	// OpDelete indicates the blob was removed.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op EventOp) String() string {
	switch op {
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// BlobEvent signals an out-of-band change to the todo blob file.
type BlobEvent struct {
	// Path is the path to the blob that changed.
	Path string
	// Op is the operation that occurred.
	Op EventOp
}

// Watcher watches the local store directory for changes to the todo blob.
// It uses fsnotify for cross-platform file system event monitoring and lets
// the server rebroadcast edits made outside the HTTP API while the mirror
// store is active.
type Watcher struct {
	watcher *fsnotify.Watcher
	dir     string
	events  chan BlobEvent
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewWatcher creates a Watcher for the given store directory.
// The watcher must be started with Start() before it will emit events.
func NewWatcher(dir string) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher: watcher,
		dir:     dir,
		events:  make(chan BlobEvent, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching the store directory for blob changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch store directory %s: %w", w.dir, err)
	}

	w.running = true
	w.wg.Add(1)
	go w.processEvents()

	return nil
}

// Stop stops watching and cleans up resources.
// It blocks until the event processing goroutine has exited.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.wg.Wait()

	close(w.events)
	close(w.errors)

	return nil
}

// Events returns the channel that emits blob change notifications.
// This channel is closed when the watcher is stopped.
func (w *Watcher) Events() <-chan BlobEvent {
	return w.events
}

// Errors returns the channel that emits error notifications.
// This channel is closed when the watcher is stopped.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// processEvents converts fsnotify events into BlobEvent notifications.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if blobEvent, ok := w.convertEvent(event); ok {
				select {
				case w.events <- blobEvent:
				case <-w.done:
					return
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			select {
			case w.errors <- err:
			case <-w.done:
				return
			}
		}
	}
}

// convertEvent filters fsnotify events down to todo blob changes.
func (w *Watcher) convertEvent(event fsnotify.Event) (BlobEvent, bool) {
	if filepath.Base(event.Name) != TodosFile {
		return BlobEvent{}, false
	}

	switch {
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		return BlobEvent{Path: event.Name, Op: OpDelete}, true
	case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
		return BlobEvent{Path: event.Name, Op: OpModify}, true
	default:
		return BlobEvent{}, false
	}
}
