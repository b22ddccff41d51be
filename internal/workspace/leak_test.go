//go:build leaktests
// +build leaktests

package workspace

import (
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/standardbeagle/angularjs-lsp/internal/ajconfig"
	"github.com/standardbeagle/angularjs-lsp/internal/ajindex"
)

// TestWatcherStopReleasesGoroutines verifies Stop() leaves no goroutine
// running past its return, matching the fsnotify event loop's lifetime
// to the Watcher's own.
func TestWatcherStopReleasesGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	cfg := ajconfig.Default()
	cfg.Root = root
	idx := ajindex.New()
	ix := NewIndexer(root, cfg, idx, nil)

	w, err := NewWatcher(ix, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := w.Start(root); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	w.Stop()
}
