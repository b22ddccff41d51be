// Package ajcache persists the Index to disk keyed by file content
// hash, per spec.md §4.5. Cache lives under
// <workspace>/.angularjs-lsp/cache/, one entry per indexed file plus a
// manifest recording the format version; a version mismatch discards
// the whole cache.
package ajcache

import (
	"bytes"
	"encoding/gob"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/angularjs-lsp/internal/ajerrors"
	"github.com/standardbeagle/angularjs-lsp/internal/ajtypes"
)

// FormatVersion is bumped whenever the encoded Entry shape changes. A
// manifest mismatch discards the whole cache directory rather than
// attempting a partial migration.
const FormatVersion = 1

const cacheDirName = ".angularjs-lsp/cache"
const manifestName = "manifest"

// Entry is what gets serialized per file.
type Entry struct {
	Path       string
	ContentSum uint64
	Symbols    []*ajtypes.Symbol
	References []*ajtypes.Reference
	Modules    []ajtypes.Module
}

// Cache wraps the on-disk directory described above. It is safe for
// concurrent use: each file's entry is an independent file on disk, and
// writes are to a temp file renamed into place.
type Cache struct {
	dir string
}

// Open resolves <root>/.angularjs-lsp/cache, creating it and checking
// the manifest version. A missing or stale manifest resets the
// directory (spec.md §4.5 "a version mismatch discards the whole
// cache").
func Open(root string) (*Cache, error) {
	dir := filepath.Join(root, cacheDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ajerrors.NewCacheError(dir, "mkdir", err)
	}
	c := &Cache{dir: dir}

	manifestPath := filepath.Join(dir, manifestName)
	data, err := os.ReadFile(manifestPath)
	if err != nil || string(data) != formatVersionString() {
		c.reset()
		_ = os.WriteFile(manifestPath, []byte(formatVersionString()), 0o644)
	}
	return c, nil
}

func formatVersionString() string {
	return "angularjs-lsp-cache-v" + itoa(FormatVersion)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func (c *Cache) reset() {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.Name() == manifestName {
			continue
		}
		_ = os.Remove(filepath.Join(c.dir, e.Name()))
	}
}

// ContentHash computes the xxhash64 cache key for file content.
func ContentHash(content []byte) uint64 {
	return xxhash.Sum64(content)
}

func (c *Cache) entryPath(path string, sum uint64) string {
	h := xxhash.Sum64String(path)
	name := hex.EncodeToString(uint64ToBytes(h)) + "-" + hex.EncodeToString(uint64ToBytes(sum))
	return filepath.Join(c.dir, name)
}

func uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// Load reads a cache entry for (path, contentSum). A cache miss (file
// not present, or corrupt/undecodable) returns ok=false and is never an
// error to the caller: spec.md §4.5/§7 require silent per-entry
// discard, falling back to re-parsing from source.
func (c *Cache) Load(path string, contentSum uint64) (*Entry, bool) {
	data, err := os.ReadFile(c.entryPath(path, contentSum))
	if err != nil {
		return nil, false
	}
	var e Entry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&e); err != nil {
		return nil, false
	}
	if e.ContentSum != contentSum || e.Path != path {
		return nil, false
	}
	return &e, true
}

// Store writes a cache entry, replacing any prior entry for path under
// a different content hash.
func (c *Cache) Store(e *Entry) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return ajerrors.NewCacheError(e.Path, "encode", err)
	}

	c.Invalidate(e.Path)
	target := c.entryPath(e.Path, e.ContentSum)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return ajerrors.NewCacheError(e.Path, "write", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return ajerrors.NewCacheError(e.Path, "rename", err)
	}
	return nil
}

// Invalidate removes every cache entry for a file, regardless of the
// content hash it was stored under — used when a file is deleted.
func (c *Cache) Invalidate(path string) {
	prefix := hex.EncodeToString(uint64ToBytes(xxhash.Sum64String(path)))
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if len(e.Name()) >= len(prefix) && e.Name()[:len(prefix)] == prefix {
			_ = os.Remove(filepath.Join(c.dir, e.Name()))
		}
	}
}
