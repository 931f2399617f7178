package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/topicseek/internal/logger"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 2 * time.Second

// ErrWatcherClosed is returned by Watch after Close.
var ErrWatcherClosed = errors.New("watcher closed")

// Watcher reports tenants whose transcript files were created or rewritten.
// Bursts of events are coalesced: each emission lists the distinct tenant
// ids touched since the previous one, sorted. The flat layout reports "".
type Watcher struct {
	dir      string
	debounce time.Duration

	mu     sync.Mutex
	fsw    *fsnotify.Watcher
	closed bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before an emission.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher over the transcripts directory.
func NewWatcher(dir string, opts ...WatcherOption) *Watcher {
	w := &Watcher{dir: dir, debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch starts watching and returns the emission channel. The channel is
// closed when ctx is done or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan []string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrWatcherClosed
	}
	if w.fsw != nil {
		return nil, errors.New("watcher already running")
	}

	info, err := os.Stat(w.dir)
	if err != nil {
		return nil, fmt.Errorf("transcripts dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("transcripts dir: %s is not a directory", w.dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", w.dir, err)
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("read transcripts dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() && !isHidden(e.Name()) {
			if err := fsw.Add(filepath.Join(w.dir, e.Name())); err != nil {
				logger.Warn("watch tenant dir %s: %v", e.Name(), err)
			}
		}
	}

	w.fsw = fsw
	out := make(chan []string)
	go w.loop(ctx, fsw, out)
	return out, nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- []string) {
	defer close(out)

	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			tenant, changed := w.handleEvent(fsw, event)
			if !changed {
				continue
			}
			pending[tenant] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch error: %v", err)

		case <-fire:
			fire = nil
			tenants := make([]string, 0, len(pending))
			for t := range pending {
				tenants = append(tenants, t)
			}
			sort.Strings(tenants)
			clear(pending)

			select {
			case out <- tenants:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handleEvent returns the tenant a transcript event belongs to. New tenant
// directories are added to the watch set; their files are reported on the
// next write.
func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}

	name := filepath.Base(event.Name)
	if isHidden(name) {
		return "", false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if filepath.Dir(event.Name) == filepath.Clean(w.dir) && fsw != nil {
				logger.Debug("watching new tenant dir %s", name)
				if err := fsw.Add(event.Name); err != nil {
					logger.Warn("watch tenant dir %s: %v", name, err)
				}
			}
			return "", false
		}
	}

	if _, ok := unitIDFromName(name); !ok {
		return "", false
	}
	return tenantFromPath(w.dir, event.Name), true
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}
