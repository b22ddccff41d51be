// Package workspace discovers workspace files, runs the fan-out/fan-in
// indexing pipeline described in spec.md §5, and wires the Syntax,
// Extractor, Template Analyzer, Cache and Index components together.
package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/standardbeagle/angularjs-lsp/internal/ajconfig"
)

// File is one file discovered within the workspace scope.
type File struct {
	Path     string // absolute path
	RelPath  string // workspace-root-relative, forward-slashed
	Language string // "javascript" | "html"
}

func languageFor(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js":
		return "javascript", true
	case ".html", ".htm":
		return "html", true
	}
	return "", false
}

// Discover walks root and returns every file in configured scope.
func Discover(root string, cfg ajconfig.Config) ([]File, error) {
	// Directories are pruned by the exclude list only; the include list
	// is matched against file paths.
	dirCfg := cfg
	dirCfg.Include = nil
	var out []File
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // a stat error on one entry does not abort the walk
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && !dirCfg.ShouldIndex(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		lang, ok := languageFor(path)
		if !ok {
			return nil
		}
		if !cfg.ShouldIndex(rel) {
			return nil
		}
		out = append(out, File{Path: path, RelPath: rel, Language: lang})
		return nil
	})
	return out, err
}
