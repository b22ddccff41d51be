// Package ajindex is the workspace-wide store of Symbols and References,
// per spec.md §4.4. Update is file-atomic: re-indexing file F removes
// every Symbol/Reference whose file is F, then inserts the new set,
// under a single exclusive lock, so readers never observe a partial
// swap (spec.md §5 "Shared-resource policy").
package ajindex

import (
	"sync"

	"github.com/standardbeagle/angularjs-lsp/internal/ajerrors"
	"github.com/standardbeagle/angularjs-lsp/internal/ajtypes"
)

// Index is the single shared mutable resource described in spec.md §5.
// Many concurrent readers; a writer takes the exclusive lock only for
// the duration of one file's atomic swap.
type Index struct {
	mu sync.RWMutex

	// files holds the authoritative source of truth per file.
	files map[ajtypes.FileID]*fileEntry

	// byNameKind indexes every live symbol for name+kind lookups.
	byNameKind map[nameKindKey][]*ajtypes.Symbol

	// byOwner indexes scope/this/binding members by their owning symbol.
	byOwner map[ajtypes.SymbolID][]*ajtypes.Symbol

	// byID supports O(1) symbol lookup by id (definition/hover/rename).
	byID map[ajtypes.SymbolID]*ajtypes.Symbol

	// modules accumulates every angular.module(...) declaration seen,
	// never merged across files or re-declarations (spec.md §3).
	modules []ajtypes.Module

	// routeByController / routeByTemplate support CodeLens/definition
	// queries in both directions (spec.md §3 "RouteBinding").
	routeByController map[string][]*ajtypes.Symbol
	routeByTemplate    map[string][]*ajtypes.Symbol
}

type nameKindKey struct {
	name string
	kind ajtypes.Kind
}

type fileEntry struct {
	path       string
	symbols    []*ajtypes.Symbol
	references []*ajtypes.Reference
}

// New creates an empty Index.
func New() *Index {
	return &Index{
		files:             map[ajtypes.FileID]*fileEntry{},
		byNameKind:        map[nameKindKey][]*ajtypes.Symbol{},
		byOwner:           map[ajtypes.SymbolID][]*ajtypes.Symbol{},
		byID:              map[ajtypes.SymbolID]*ajtypes.Symbol{},
		routeByController: map[string][]*ajtypes.Symbol{},
		routeByTemplate:   map[string][]*ajtypes.Symbol{},
	}
}

// ReplaceFile performs the file-atomic swap: every Symbol/Reference
// whose file is fileID is removed, then symbols/refs/modules from this
// file are inserted. Returns an *ajerrors.IndexInvariantError if
// symbols contains a duplicate id (a programming bug, never a user
// error — per spec.md §7 this fails fast and is logged, not retried).
func (idx *Index) ReplaceFile(fileID ajtypes.FileID, path string, symbols []*ajtypes.Symbol, references []*ajtypes.Reference, modules []ajtypes.Module) error {
	seen := map[ajtypes.SymbolID]bool{}
	for _, s := range symbols {
		if seen[s.ID] {
			return ajerrors.NewIndexInvariantError("ReplaceFile", "duplicate symbol id "+s.ID.String())
		}
		seen[s.ID] = true
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeFileLocked(fileID)
	idx.insertFileLocked(fileID, path, symbols, references)

	if modules != nil {
		idx.modules = append(withoutFileModules(idx.modules, path), modules...)
	}
	return nil
}

func withoutFileModules(mods []ajtypes.Module, path string) []ajtypes.Module {
	out := mods[:0:0]
	for _, m := range mods {
		if m.Location.File != path {
			out = append(out, m)
		}
	}
	return out
}

func (idx *Index) removeFileLocked(fileID ajtypes.FileID) {
	entry, ok := idx.files[fileID]
	if !ok {
		return
	}
	for _, s := range entry.symbols {
		delete(idx.byID, s.ID)
		key := nameKindKey{s.Name, s.Kind}
		idx.byNameKind[key] = removeSymbol(idx.byNameKind[key], s.ID)
		if s.Owner != nil {
			idx.byOwner[*s.Owner] = removeSymbol(idx.byOwner[*s.Owner], s.ID)
		}
		if s.Kind == ajtypes.KindRouteBinding && s.Route != nil {
			if s.Route.ControllerName != "" {
				idx.routeByController[s.Route.ControllerName] = removeSymbol(idx.routeByController[s.Route.ControllerName], s.ID)
			}
			if s.Route.TemplateURL != "" {
				idx.routeByTemplate[s.Route.TemplateURL] = removeSymbol(idx.routeByTemplate[s.Route.TemplateURL], s.ID)
			}
		}
	}
	delete(idx.files, fileID)
}

func (idx *Index) insertFileLocked(fileID ajtypes.FileID, path string, symbols []*ajtypes.Symbol, references []*ajtypes.Reference) {
	entry := &fileEntry{path: path, symbols: symbols, references: references}
	idx.files[fileID] = entry

	for _, s := range symbols {
		idx.byID[s.ID] = s
		key := nameKindKey{s.Name, s.Kind}
		idx.byNameKind[key] = append(idx.byNameKind[key], s)
		if s.Owner != nil {
			idx.byOwner[*s.Owner] = append(idx.byOwner[*s.Owner], s)
		}
		if s.Kind == ajtypes.KindRouteBinding && s.Route != nil {
			if s.Route.ControllerName != "" {
				idx.routeByController[s.Route.ControllerName] = append(idx.routeByController[s.Route.ControllerName], s)
			}
			if s.Route.TemplateURL != "" {
				idx.routeByTemplate[s.Route.TemplateURL] = append(idx.routeByTemplate[s.Route.TemplateURL], s)
			}
		}
	}
}

func removeSymbol(list []*ajtypes.Symbol, id ajtypes.SymbolID) []*ajtypes.Symbol {
	out := list[:0:0]
	for _, s := range list {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}

// RemoveFile drops every Symbol/Reference for a deleted file.
func (idx *Index) RemoveFile(fileID ajtypes.FileID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeFileLocked(fileID)
}

// ByNameAndKind returns every live symbol matching name and kind.
func (idx *Index) ByNameAndKind(name string, kind ajtypes.Kind) []*ajtypes.Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]*ajtypes.Symbol(nil), idx.byNameKind[nameKindKey{name, kind}]...)
}

// ByName returns every live symbol with the given name, any kind.
func (idx *Index) ByName(name string) []*ajtypes.Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var out []*ajtypes.Symbol
	for k, v := range idx.byNameKind {
		if k.name == name {
			out = append(out, v...)
		}
	}
	return out
}

// ByFile returns every symbol defined in fileID, in extraction order —
// used for documentSymbol and as the basis of incremental replacement.
func (idx *Index) ByFile(fileID ajtypes.FileID) []*ajtypes.Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	entry, ok := idx.files[fileID]
	if !ok {
		return nil
	}
	return append([]*ajtypes.Symbol(nil), entry.symbols...)
}

// ReferencesInFile returns every reference emitted from fileID.
func (idx *Index) ReferencesInFile(fileID ajtypes.FileID) []*ajtypes.Reference {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	entry, ok := idx.files[fileID]
	if !ok {
		return nil
	}
	return append([]*ajtypes.Reference(nil), entry.references...)
}

// ByOwner returns the children of a given controller/service/component
// symbol — used for `$scope.`/`vm.` completion.
func (idx *Index) ByOwner(owner ajtypes.SymbolID) []*ajtypes.Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]*ajtypes.Symbol(nil), idx.byOwner[owner]...)
}

// BySymbolID returns the symbol with the given id, if still live.
func (idx *Index) BySymbolID(id ajtypes.SymbolID) (*ajtypes.Symbol, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	s, ok := idx.byID[id]
	return s, ok
}

// ReferencesOf recomputes, lazily, every live Reference whose name
// matches sym's name and whose Hint (if not HintAny) is compatible with
// sym's kind. This is intentionally recomputed on each call rather than
// cached, per spec.md §4.4 "References-of is recomputed lazily".
func (idx *Index) ReferencesOf(sym *ajtypes.Symbol) []*ajtypes.Reference {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []*ajtypes.Reference
	for _, entry := range idx.files {
		for _, ref := range entry.references {
			if ref.Name != sym.Name {
				continue
			}
			if !hintCompatible(ref.Hint, sym.Kind) {
				continue
			}
			out = append(out, ref)
		}
	}
	return out
}

func hintCompatible(hint ajtypes.ReferenceKindHint, kind ajtypes.Kind) bool {
	switch hint {
	case ajtypes.HintAny:
		return true
	case ajtypes.HintFilter:
		return kind == ajtypes.KindFilter
	case ajtypes.HintController:
		return kind == ajtypes.KindController
	case ajtypes.HintScopeMember:
		return kind.IsScopeMember()
	case ajtypes.HintService:
		return kind == ajtypes.KindService || kind == ajtypes.KindFactory || kind == ajtypes.KindProvider
	default:
		return true
	}
}

// AllSymbols returns every live symbol — used for workspace/symbol.
func (idx *Index) AllSymbols() []*ajtypes.Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var out []*ajtypes.Symbol
	for _, s := range idx.byID {
		out = append(out, s)
	}
	return out
}

// Modules returns every Module declaration/extension seen, preserving
// spec.md §3's "multiple declarations... are kept as-is" behavior.
func (idx *Index) Modules() []ajtypes.Module {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]ajtypes.Module(nil), idx.modules...)
}

// RouteBindingsForController returns RouteBindings whose ControllerName
// matches name — used by CodeLens on a Controller symbol.
func (idx *Index) RouteBindingsForController(name string) []*ajtypes.Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]*ajtypes.Symbol(nil), idx.routeByController[name]...)
}

// RouteBindingsForTemplate returns RouteBindings whose TemplateURL
// matches path — used by CodeLens on a template file.
func (idx *Index) RouteBindingsForTemplate(path string) []*ajtypes.Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]*ajtypes.Symbol(nil), idx.routeByTemplate[path]...)
}

// HasScopeMember implements templateanalyzer.ScopeLookup.
func (idx *Index) HasScopeMember(ownerName, name string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var owners []ajtypes.SymbolID
	for k, syms := range idx.byNameKind {
		if k.name != ownerName {
			continue
		}
		switch k.kind {
		case ajtypes.KindController, ajtypes.KindComponent:
			for _, s := range syms {
				owners = append(owners, s.ID)
			}
		}
	}
	for _, o := range owners {
		for _, m := range idx.byOwner[o] {
			if m.Name == name {
				return true
			}
		}
	}
	return false
}

// HasFilter implements templateanalyzer.ScopeLookup.
func (idx *Index) HasFilter(name string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byNameKind[nameKindKey{name, ajtypes.KindFilter}]) > 0
}

// ControllerForTemplate implements templateanalyzer.ScopeLookup.
func (idx *Index) ControllerForTemplate(templatePath string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	routes := idx.routeByTemplate[templatePath]
	if len(routes) == 0 {
		return "", false
	}
	return routes[0].Route.ControllerName, routes[0].Route.ControllerName != ""
}
