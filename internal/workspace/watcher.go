package workspace

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors the workspace for file system changes and feeds
// debounced create/write/remove events back into an Indexer, matching
// spec.md §5's "the watcher is just another writer contending for the
// same committer" shape.
type Watcher struct {
	fsw     *fsnotify.Watcher
	indexer *Indexer

	debounce time.Duration
	mu       sync.Mutex
	pending  map[string]fsnotify.Op
	timer    *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher wires a Watcher over ix's root, debouncing bursts of events
// (an editor save often fires write+chmod in quick succession) into one
// reindex per settled path.
func NewWatcher(ix *Indexer, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		fsw:      fsw,
		indexer:  ix,
		debounce: debounce,
		pending:  map[string]fsnotify.Op{},
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start adds recursive watches under root and begins processing events.
func (w *Watcher) Start(root string) error {
	if err := w.addWatches(root); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop tears down the watcher and waits for its goroutine to exit.
// Events still pending in the debounce window are dropped: the index is
// being torn down along with the watcher, so there is nothing left to
// apply them to.
func (w *Watcher) Stop() {
	w.cancel()
	_ = w.fsw.Close()
	w.wg.Wait()
}

func (w *Watcher) addWatches(root string) error {
	visited := map[string]bool{}
	dirCfg := w.indexer.Cfg
	dirCfg.Include = nil // directories are pruned by the exclude list only
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		real, rerr := filepath.EvalSymlinks(path)
		if rerr != nil {
			return nil
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		rel, rerr2 := filepath.Rel(root, path)
		if rerr2 == nil && rel != "." && !dirCfg.ShouldIndex(filepath.ToSlash(rel)+"/") {
			return filepath.SkipDir
		}
		_ = w.fsw.Add(path)
		return nil
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.indexer.log.Printf("watch error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if _, ok := languageFor(ev.Name); !ok {
		if ev.Op&fsnotify.Create != 0 {
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				_ = w.fsw.Add(ev.Name)
			}
		}
		return
	}
	rel, err := filepath.Rel(w.indexer.Root, ev.Name)
	if err != nil || !w.indexer.Cfg.ShouldIndex(filepath.ToSlash(rel)) {
		return
	}

	w.mu.Lock()
	w.pending[ev.Name] |= ev.Op
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	events := w.pending
	w.pending = map[string]fsnotify.Op{}
	w.mu.Unlock()

	for path, op := range events {
		lang, ok := languageFor(path)
		if !ok {
			continue
		}
		if op&fsnotify.Remove != 0 || op&fsnotify.Rename != 0 {
			w.indexer.Index.RemoveFile(w.indexer.FileID(path))
			if w.indexer.Cache != nil {
				w.indexer.Cache.Invalidate(path)
			}
			continue
		}
		f := File{Path: path, Language: lang}
		var r fileResult
		if lang == "javascript" {
			r = w.indexer.processJS(f)
		} else {
			r = w.indexer.processHTML(f)
		}
		w.indexer.commit(r)
	}
}
