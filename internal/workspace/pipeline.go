package workspace

import (
	"context"
	"log"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/angularjs-lsp/internal/ajcache"
	"github.com/standardbeagle/angularjs-lsp/internal/ajconfig"
	"github.com/standardbeagle/angularjs-lsp/internal/ajerrors"
	"github.com/standardbeagle/angularjs-lsp/internal/ajindex"
	"github.com/standardbeagle/angularjs-lsp/internal/ajtypes"
	"github.com/standardbeagle/angularjs-lsp/internal/extractor"
	"github.com/standardbeagle/angularjs-lsp/internal/syntax"
	"github.com/standardbeagle/angularjs-lsp/internal/templateanalyzer"
)

// Indexer owns the workspace-wide file-id allocation and wires Syntax,
// Extractor/Template Analyzer, Cache and Index together.
type Indexer struct {
	Root  string
	Cfg   ajconfig.Config
	Index *ajindex.Index
	Cache *ajcache.Cache // nil when ajsconfig.json disables the cache

	mu      sync.Mutex
	fileIDs map[string]ajtypes.FileID
	nextID  ajtypes.FileID

	log *log.Logger
}

// NewIndexer wires a fresh Indexer for root.
func NewIndexer(root string, cfg ajconfig.Config, idx *ajindex.Index, cache *ajcache.Cache) *Indexer {
	return &Indexer{
		Root:    root,
		Cfg:     cfg,
		Index:   idx,
		Cache:   cache,
		fileIDs: map[string]ajtypes.FileID{},
		log:     log.New(os.Stderr, "workspace: ", log.LstdFlags),
	}
}

// FileID returns the stable id for path, allocating one on first use.
func (ix *Indexer) FileID(path string) ajtypes.FileID {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if id, ok := ix.fileIDs[path]; ok {
		return id
	}
	ix.nextID++
	ix.fileIDs[path] = ix.nextID
	return ix.nextID
}

type fileResult struct {
	file        File
	fileID      ajtypes.FileID
	symbols     []*ajtypes.Symbol
	references  []*ajtypes.Reference
	modules     []ajtypes.Module
	diagnostics []*ajtypes.Diagnostic
	contentSum  uint64
	err         error
}

// IndexAll performs the initial workspace scan: parse each file on a
// worker (bounded by CPU count), each worker emits its completed
// per-file result to a bounded channel, and a single committer
// goroutine serializes Index.ReplaceFile calls — the fan-out/fan-in
// shape from spec.md §5. JavaScript files are indexed before HTML
// templates so the Template Analyzer's diagnostics can resolve
// RouteBinding-assigned controllers already in the Index.
func (ix *Indexer) IndexAll(ctx context.Context) error {
	files, err := Discover(ix.Root, ix.Cfg)
	if err != nil {
		return err
	}

	var jsFiles, htmlFiles []File
	for _, f := range files {
		if f.Language == "javascript" {
			jsFiles = append(jsFiles, f)
		} else {
			htmlFiles = append(htmlFiles, f)
		}
	}

	if err := ix.indexBatch(ctx, jsFiles, ix.processJS); err != nil {
		return err
	}
	return ix.indexBatch(ctx, htmlFiles, ix.processHTML)
}

func (ix *Indexer) indexBatch(ctx context.Context, files []File, process func(File) fileResult) error {
	if len(files) == 0 {
		return nil
	}
	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}

	results := make(chan fileResult, workers*2)
	g, gctx := errgroup.WithContext(ctx)

	work := make(chan File)
	g.Go(func() error {
		defer close(work)
		for _, f := range files {
			select {
			case work <- f:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for f := range work {
				select {
				case results <- process(f):
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	committerDone := make(chan struct{})
	go func() {
		defer close(committerDone)
		for r := range results {
			ix.commit(r)
		}
	}()

	err := g.Wait()
	close(results)
	<-committerDone
	return err
}

// commit is the single committer: it owns the Index write end and
// applies each file's result as one atomic swap.
func (ix *Indexer) commit(r fileResult) {
	if r.err != nil {
		ix.log.Printf("index %s: %v", r.file.Path, r.err)
		return
	}
	if err := ix.Index.ReplaceFile(r.fileID, r.file.Path, r.symbols, r.references, r.modules); err != nil {
		ix.log.Printf("commit %s: %v", r.file.Path, err)
		return
	}
	if ix.Cache != nil {
		_ = ix.Cache.Store(&ajcache.Entry{
			Path:       r.file.Path,
			ContentSum: r.contentSum,
			Symbols:    r.symbols,
			References: r.references,
			Modules:    r.modules,
		})
	}
}

func (ix *Indexer) processJS(f File) fileResult {
	content, err := os.ReadFile(f.Path)
	if err != nil {
		return fileResult{file: f, err: err}
	}
	return ix.processJSContent(f, content)
}

func (ix *Indexer) processJSContent(f File, content []byte) fileResult {
	fileID := ix.FileID(f.Path)
	sum := ajcache.ContentHash(content)

	if ix.Cache != nil {
		if entry, ok := ix.Cache.Load(f.Path, sum); ok {
			return fileResult{file: f, fileID: fileID, symbols: entry.Symbols, references: entry.References, modules: entry.Modules, contentSum: sum}
		}
	}

	tree, err := syntax.ParseJS(content)
	if err != nil {
		return fileResult{file: f, fileID: fileID, contentSum: sum, err: ajerrors.NewParseError(f.Path, 0, 0, err)}
	}
	defer tree.Close()

	res := extractor.Extract(fileID, f.Path, content, tree.Root())
	return fileResult{file: f, fileID: fileID, symbols: res.Symbols, references: res.References, modules: res.Modules, contentSum: sum}
}

func (ix *Indexer) processHTML(f File) fileResult {
	content, err := os.ReadFile(f.Path)
	if err != nil {
		return fileResult{file: f, err: err}
	}
	return ix.processHTMLContent(f, content)
}

func (ix *Indexer) processHTMLContent(f File, content []byte) fileResult {
	fileID := ix.FileID(f.Path)
	sum := ajcache.ContentHash(content)

	tree, err := syntax.ParseHTML(content)
	if err != nil {
		return fileResult{file: f, fileID: fileID, contentSum: sum, err: ajerrors.NewParseError(f.Path, 0, 0, err)}
	}

	opts := templateanalyzer.Options{
		StartSymbol:        ix.Cfg.Interpolate.StartSymbol,
		EndSymbol:          ix.Cfg.Interpolate.EndSymbol,
		DiagnosticsEnabled: ix.Cfg.Diagnostics.Enabled,
		Severity:           severityFromConfig(ix.Cfg.Diagnostics.Severity),
	}
	res := templateanalyzer.Analyze(fileID, f.Path, tree, opts, ix.Index)
	return fileResult{file: f, fileID: fileID, references: res.References, diagnostics: res.Diagnostics, contentSum: sum}
}

// IndexContent re-indexes one file from in-memory editor content rather
// than disk, for textDocument/didOpen and textDocument/didChange, and
// returns the diagnostics produced (empty for JavaScript files, which
// never carry diagnostics per spec.md §7).
func (ix *Indexer) IndexContent(path, language string, content []byte) []*ajtypes.Diagnostic {
	f := File{Path: path, Language: language}
	var r fileResult
	if language == "javascript" {
		r = ix.processJSContent(f, content)
	} else {
		r = ix.processHTMLContent(f, content)
	}
	ix.commit(r)
	return r.diagnostics
}

func severityFromConfig(s ajconfig.Severity) ajtypes.Severity {
	switch s {
	case ajconfig.SeverityError:
		return ajtypes.SeverityError
	case ajconfig.SeverityHint:
		return ajtypes.SeverityHint
	case ajconfig.SeverityInformation:
		return ajtypes.SeverityInformation
	default:
		return ajtypes.SeverityWarning
	}
}
