// Package resolver answers the editor-facing questions — definition,
// references, hover, completion, rename, documentSymbol,
// workspaceSymbol, codeLens and signatureHelp — against the live
// Index. It never touches a parse tree itself: cursor-to-identifier
// resolution happens in this package's cursor helpers, fed by whatever
// Syntax tree the caller already has open.
package resolver

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/angularjs-lsp/internal/ajerrors"
	"github.com/standardbeagle/angularjs-lsp/internal/ajindex"
	"github.com/standardbeagle/angularjs-lsp/internal/ajtypes"
)

// Resolver is a thin, stateless query layer over an Index.
type Resolver struct {
	idx *ajindex.Index
}

// New wires a Resolver to idx.
func New(idx *ajindex.Index) *Resolver {
	return &Resolver{idx: idx}
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

// DIVisibility carries the dependency list of the DI-bearing construct
// enclosing the cursor, so service-name resolution can be gated to
// only the services that construct actually injects. Known is false
// when the cursor sits outside any DI-bearing construct (e.g. a
// top-level script reference), in which case no gating is applied.
type DIVisibility struct {
	Known bool
	Deps  []string
}

// VisibilityFor looks up the Deps list of the DI-bearing construct
// named ownerName/ownerKind, for building a DIVisibility to pass to
// Definition/DefinitionSymbols.
func (r *Resolver) VisibilityFor(ownerName string, ownerKind ajtypes.Kind) DIVisibility {
	if ownerName == "" {
		return DIVisibility{}
	}
	for _, s := range r.idx.ByNameAndKind(ownerName, ownerKind) {
		return DIVisibility{Known: true, Deps: s.Deps}
	}
	return DIVisibility{}
}

func isServiceLikeKind(k ajtypes.Kind) bool {
	return k == ajtypes.KindService || k == ajtypes.KindFactory || k == ajtypes.KindProvider
}

func containsName(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

// visible reports whether s should be offered as a candidate given vis:
// a service/factory/provider is only visible inside a construct whose
// Deps actually names it; every other kind is unaffected by DI
// visibility (scope members, routes, etc. resolve by name alone).
func visible(s *ajtypes.Symbol, vis DIVisibility) bool {
	if !vis.Known || !isServiceLikeKind(s.Kind) {
		return true
	}
	return containsName(vis.Deps, s.Name)
}

// Definition returns the defining locations of every live symbol named
// name whose kind is compatible with hint and, when vis.Known, visible
// to the enclosing DI-bearing construct. Multiple results are
// possible: AngularJS has no static guarantee of a single definition
// per name (e.g. a service re-registered across modules for testing).
func (r *Resolver) Definition(name string, hint ajtypes.ReferenceKindHint, vis DIVisibility) []ajtypes.Location {
	var out []ajtypes.Location
	for _, s := range r.idx.ByName(name) {
		if hintCompatible(hint, s.Kind) && visible(s, vis) {
			out = append(out, s.Location)
		}
	}
	return out
}

// DefinitionSymbols is Definition but returns the Symbols themselves,
// for callers (hover, completion) that need more than a Location.
func (r *Resolver) DefinitionSymbols(name string, hint ajtypes.ReferenceKindHint, vis DIVisibility) []*ajtypes.Symbol {
	var out []*ajtypes.Symbol
	for _, s := range r.idx.ByName(name) {
		if hintCompatible(hint, s.Kind) && visible(s, vis) {
			out = append(out, s)
		}
	}
	return out
}

// References returns every use of sym, preceded by sym's own Location
// when includeDeclaration is set.
func (r *Resolver) References(sym *ajtypes.Symbol, includeDeclaration bool) []ajtypes.Location {
	var out []ajtypes.Location
	if includeDeclaration {
		out = append(out, sym.Location)
	}
	for _, ref := range r.idx.ReferencesOf(sym) {
		out = append(out, ref.Location)
	}
	return out
}

// Hover renders a short description of sym: its kind, owning module,
// dependency list and doc comment, in that order.
func (r *Resolver) Hover(sym *ajtypes.Symbol) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** `%s`", sym.Kind, sym.Name)
	if sym.ModuleName != "" {
		fmt.Fprintf(&b, " (module `%s`)", sym.ModuleName)
	}
	if len(sym.Deps) > 0 {
		fmt.Fprintf(&b, "\n\ninjects: %s", strings.Join(sym.Deps, ", "))
	}
	if sym.Directive != nil {
		fmt.Fprintf(&b, "\n\nrestrict: %q", sym.Directive.Restrict)
		if sym.Directive.ScopeShape != "" {
			fmt.Fprintf(&b, ", scope: %s", sym.Directive.ScopeShape)
		}
	}
	if sym.Component != nil {
		fmt.Fprintf(&b, "\n\ncontrollerAs: `%s`", sym.Component.ControllerAs)
		if sym.Component.TemplateURL != "" {
			fmt.Fprintf(&b, ", template: %s", sym.Component.TemplateURL)
		}
	}
	if sym.DocComment != "" {
		fmt.Fprintf(&b, "\n\n%s", sym.DocComment)
	}
	return b.String()
}

// SignatureHelp reports the dependency-injection parameter list for a
// DI-bearing symbol — the set of $injectables a controller, service,
// factory, directive, component, filter or provider constructor
// receives, in declared order. It returns ok=false for symbols that do
// not carry a Deps list.
func (r *Resolver) SignatureHelp(sym *ajtypes.Symbol) (params []string, ok bool) {
	if sym == nil || !sym.Kind.IsDIBearing() {
		return nil, false
	}
	return sym.Deps, true
}

// DocumentSymbol returns every symbol defined in fileID, in the order
// the Extractor produced them (which follows source order).
func (r *Resolver) DocumentSymbol(fileID ajtypes.FileID) []*ajtypes.Symbol {
	return r.idx.ByFile(fileID)
}

// CodeLensForController returns the RouteBindings that route to
// controllerName — shown as a CodeLens above the controller's
// registration.
func (r *Resolver) CodeLensForController(controllerName string) []*ajtypes.Symbol {
	return r.idx.RouteBindingsForController(controllerName)
}

// CodeLensForTemplate returns the RouteBindings that route to a
// template — shown as a CodeLens at the top of the template file.
func (r *Resolver) CodeLensForTemplate(templatePath string) []*ajtypes.Symbol {
	return r.idx.RouteBindingsForTemplate(templatePath)
}

// Completion returns the scope/controllerAs members owned by the
// symbol named ownerName (a Controller or Component) whose name has
// prefix as a case-insensitive prefix.
func (r *Resolver) Completion(ownerName, prefix string) []*ajtypes.Symbol {
	var owners []*ajtypes.Symbol
	for _, kind := range []ajtypes.Kind{ajtypes.KindController, ajtypes.KindComponent} {
		owners = append(owners, r.idx.ByNameAndKind(ownerName, kind)...)
	}

	lowerPrefix := strings.ToLower(prefix)
	var out []*ajtypes.Symbol
	for _, owner := range owners {
		for _, member := range r.idx.ByOwner(owner.ID) {
			if strings.HasPrefix(strings.ToLower(member.Name), lowerPrefix) {
				out = append(out, member)
			}
		}
	}
	return out
}

// CompletionServices returns every service-like symbol (Service,
// Factory, Provider, Constant, Value) whose name case-insensitively
// starts with prefix — used for DI array/parameter-name completion.
func (r *Resolver) CompletionServices(prefix string) []*ajtypes.Symbol {
	lowerPrefix := strings.ToLower(prefix)
	var out []*ajtypes.Symbol
	for _, s := range r.idx.AllSymbols() {
		switch s.Kind {
		case ajtypes.KindService, ajtypes.KindFactory, ajtypes.KindProvider, ajtypes.KindConstant, ajtypes.KindValue:
			if strings.HasPrefix(strings.ToLower(s.Name), lowerPrefix) {
				out = append(out, s)
			}
		}
	}
	return out
}

var validIdentifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// RenameEdit collects every location that must change text when sym is
// renamed to newName: the definition plus every reference. It refuses
// a newName that is not a syntactically valid JavaScript identifier,
// and refuses the whole rename if isReadOnly (when non-nil) reports
// true for any site's file — a rename must never write into a
// vendored/generated source even though definitions and references
// inside it still resolve normally.
func (r *Resolver) RenameEdit(sym *ajtypes.Symbol, newName string, isReadOnly func(file string) bool) (map[string][]ajtypes.Range, error) {
	if !validIdentifier.MatchString(newName) {
		return nil, ajerrors.NewIndexInvariantError("RenameEdit", fmt.Sprintf("%q is not a valid identifier", newName))
	}
	refs := r.idx.ReferencesOf(sym)
	if isReadOnly != nil {
		if isReadOnly(sym.Location.File) {
			return nil, ajerrors.NewIndexInvariantError("RenameEdit", fmt.Sprintf("%s is read-only", sym.Location.File))
		}
		for _, ref := range refs {
			if isReadOnly(ref.Location.File) {
				return nil, ajerrors.NewIndexInvariantError("RenameEdit", fmt.Sprintf("%s is read-only", ref.Location.File))
			}
		}
	}
	edits := map[string][]ajtypes.Range{}
	edits[sym.Location.File] = append(edits[sym.Location.File], sym.DefRange)
	for _, ref := range refs {
		edits[ref.Location.File] = append(edits[ref.Location.File], ref.Location.Range)
	}
	return edits, nil
}

type scoredSymbol struct {
	sym   *ajtypes.Symbol
	score float64
}

// WorkspaceSymbol fuzzily ranks every live symbol against query using
// Jaro-Winkler similarity, returning at most limit results above a
// minimum similarity threshold. An empty query returns every symbol,
// unranked, truncated to limit.
func (r *Resolver) WorkspaceSymbol(query string, limit int) []*ajtypes.Symbol {
	all := r.idx.AllSymbols()
	if query == "" {
		sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
		if limit > 0 && len(all) > limit {
			all = all[:limit]
		}
		return all
	}

	const minSimilarity = 0.55
	scored := make([]scoredSymbol, 0, len(all))
	for _, s := range all {
		score, err := edlib.StringsSimilarity(strings.ToLower(query), strings.ToLower(s.Name), edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(s.Name), strings.ToLower(query)) {
			score = 1.0
		}
		if float64(score) >= minSimilarity {
			scored = append(scored, scoredSymbol{sym: s, score: float64(score)})
		}
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].sym.Name < scored[j].sym.Name
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	out := make([]*ajtypes.Symbol, len(scored))
	for i, s := range scored {
		out[i] = s.sym
	}
	return out
}
