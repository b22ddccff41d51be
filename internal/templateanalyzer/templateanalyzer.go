// Package templateanalyzer walks a parsed HTML template and emits
// Reference records for interpolation expressions, directive attribute
// expressions and ng-* directive bindings, plus diagnostics for
// undefined scope members, per spec.md §4.3.
package templateanalyzer

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/standardbeagle/angularjs-lsp/internal/ajtypes"
	"github.com/standardbeagle/angularjs-lsp/internal/syntax"
)

// ScopeLookup lets the Template Analyzer ask the Index whether an
// identifier is a known scope member of a controller/component, without
// depending on the Index's concrete type.
type ScopeLookup interface {
	// ControllerForTemplate returns the controller name bound to
	// templatePath via a RouteBinding, if any.
	ControllerForTemplate(templatePath string) (string, bool)
	// HasScopeMember reports whether name is a ScopeProperty, ScopeMethod,
	// ControllerAsProperty or ControllerAsMethod owned by a symbol named
	// ownerName.
	HasScopeMember(ownerName, name string) bool
	// HasFilter reports whether name is a known Filter symbol.
	HasFilter(name string) bool
}

// globallyKnown identifiers are always in scope, per spec.md §4.3
// "Diagnostics".
var globallyKnown = map[string]bool{
	"$rootScope": true, "angular": true, "$window": true, "$location": true,
	"$index": true, "true": true, "false": true, "null": true, "undefined": true, "this": true,
}

// Options configures delimiters and diagnostics per ajsconfig.json.
type Options struct {
	StartSymbol        string
	EndSymbol          string
	DiagnosticsEnabled bool
	Severity           ajtypes.Severity
}

// Result is everything the Template Analyzer produced for one file.
type Result struct {
	References  []*ajtypes.Reference
	Diagnostics []*ajtypes.Diagnostic
}

type scopeCtx struct {
	owner  string          // controller/component name backing $scope/vm.* resolution
	alias  string          // controller-as alias currently in scope, "" if none
	locals map[string]bool // ng-repeat/ as-alias locals visible in this subtree
}

func (s scopeCtx) withLocals(names ...string) scopeCtx {
	next := scopeCtx{owner: s.owner, alias: s.alias, locals: map[string]bool{}}
	for k := range s.locals {
		next.locals[k] = true
	}
	for _, n := range names {
		next.locals[n] = true
	}
	return next
}

// Analyze walks tree and produces references/diagnostics. templatePath
// is used to look up a RouteBinding-assigned controller as the initial
// scope owner.
func Analyze(file ajtypes.FileID, templatePath string, tree *syntax.HTMLTree, opts Options, lookup ScopeLookup) *Result {
	res := &Result{}
	if tree == nil || tree.Root == nil {
		return res
	}
	a := &analyzerState{file: file, path: templatePath, tree: tree, opts: opts, lookup: lookup, res: res}

	initial := scopeCtx{locals: map[string]bool{}}
	if lookup != nil {
		if ctrl, ok := lookup.ControllerForTemplate(templatePath); ok {
			initial.owner = ctrl
		}
	}
	a.walk(tree.Root, initial)
	return res
}

type analyzerState struct {
	file   ajtypes.FileID
	path   string
	tree   *syntax.HTMLTree
	opts   Options
	lookup ScopeLookup
	res    *Result
}

func (a *analyzerState) walk(n *html.Node, ctx scopeCtx) {
	switch n.Type {
	case html.TextNode:
		a.extractInterpolations(n, ctx)
	case html.ElementNode:
		ctx = a.handleElement(n, ctx)
		for _, attr := range n.Attr {
			a.handleAttribute(n, attr, ctx)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		a.walk(c, ctx)
	}
}

// handleElement applies ng-controller and ng-repeat scope-introduction
// rules and returns the context visible to this element's subtree.
func (a *analyzerState) handleElement(n *html.Node, ctx scopeCtx) scopeCtx {
	if v, ok := syntax.AttrValue(n, "ng-controller"); ok {
		name, alias := parseControllerAs(v)
		ctx = scopeCtx{owner: name, alias: alias, locals: cloneLocals(ctx.locals)}
		if alias != "" {
			ctx = ctx.withLocals(alias)
		}
	}
	if v, ok := syntax.AttrValue(n, "ng-repeat"); ok {
		locals, collectionExpr := parseNgRepeat(v)
		a.emitIdentifierRef(resolveHeadName(collectionExpr, ctx), n, ctx)
		ctx = ctx.withLocals(locals...)
	}
	return ctx
}

func cloneLocals(m map[string]bool) map[string]bool {
	out := map[string]bool{}
	for k := range m {
		out[k] = true
	}
	return out
}

// parseControllerAs splits `Name as alias` / `Name`.
func parseControllerAs(v string) (name, alias string) {
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return "", ""
	}
	name = fields[0]
	if len(fields) == 3 && fields[1] == "as" {
		alias = fields[2]
	}
	return name, alias
}

var repeatLocals = []string{"$index", "$first", "$last", "$middle", "$even", "$odd"}

// parseNgRepeat parses `item in items track by k [as alias]` and returns
// the locals it introduces plus the collection expression (for the
// owning-scope reference).
func parseNgRepeat(v string) (locals []string, collectionExpr string) {
	expr := v
	alias := ""
	if idx := strings.Index(expr, " as "); idx >= 0 {
		rest := strings.TrimSpace(expr[idx+4:])
		alias = strings.Fields(rest)[0]
		expr = expr[:idx]
	}
	if idx := strings.Index(expr, " track by "); idx >= 0 {
		expr = expr[:idx]
	}
	parts := strings.SplitN(expr, " in ", 2)
	if len(parts) != 2 {
		return append(append([]string{}, repeatLocals...)), ""
	}
	item := strings.TrimSpace(parts[0])
	item = strings.Trim(item, "()")
	itemNames := strings.Split(item, ",")
	for i := range itemNames {
		itemNames[i] = strings.TrimSpace(itemNames[i])
	}
	locals = append(locals, itemNames...)
	locals = append(locals, repeatLocals...)
	if alias != "" {
		locals = append(locals, alias)
	}
	collectionExpr = strings.TrimSpace(parts[1])
	return locals, collectionExpr
}

var ngExpressionAttrs = map[string]bool{
	"ng-click": true, "ng-if": true, "ng-show": true, "ng-hide": true,
	"ng-model": true, "ng-class": true, "ng-change": true, "ng-submit": true,
	"ng-disabled": true, "ng-checked": true, "ng-value": true, "ng-style": true,
}

func (a *analyzerState) handleAttribute(n *html.Node, attr html.Attribute, ctx scopeCtx) {
	if attr.Key == "ng-controller" || attr.Key == "ng-repeat" {
		return // already consumed by handleElement
	}
	if ngExpressionAttrs[attr.Key] {
		a.emitExpressionRefs(attr.Val, n, ctx)
		return
	}
	// Custom directive/component bindings: two-way (=) and callback (&)
	// attribute values are scope expressions; one-way text (@) bindings
	// are literal strings and are skipped. Without the component's
	// binding-mode map in hand, a kebab-case attribute whose value looks
	// like an identifier path is treated as a binding expression; this
	// mirrors the teacher's open-by-default extraction policy.
	if strings.Contains(attr.Key, "-") && looksLikeExpression(attr.Val) {
		a.emitExpressionRefs(attr.Val, n, ctx)
	}
}

func looksLikeExpression(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	r := rune(v[0])
	return r == '!' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '$' || r == '_'
}

// extractInterpolations scans a text node for {{ expr }} (or configured
// delimiters), emitting a reference for the head identifier and for any
// pipeline filter names.
func (a *analyzerState) extractInterpolations(n *html.Node, ctx scopeCtx) {
	start, end := a.opts.StartSymbol, a.opts.EndSymbol
	if start == "" {
		start = "{{"
	}
	if end == "" {
		end = "}}"
	}
	text := n.Data
	for {
		i := strings.Index(text, start)
		if i < 0 {
			return
		}
		j := strings.Index(text[i+len(start):], end)
		if j < 0 {
			return
		}
		expr := text[i+len(start) : i+len(start)+j]
		a.emitExpressionRefs(expr, n, ctx)
		text = text[i+len(start)+j+len(end):]
	}
}

// emitExpressionRefs tokenizes a single AngularJS expression: resolves
// the left-most dotted path's head identifier against ctx, and treats
// anything right of a top-level `|` as filter names.
func (a *analyzerState) emitExpressionRefs(expr string, n *html.Node, ctx scopeCtx) {
	segments := strings.Split(expr, "|")
	a.emitIdentifierRef(resolveHeadName(segments[0], ctx), n, ctx)
	for _, f := range segments[1:] {
		name := headIdentifier(strings.TrimSpace(f))
		if name == "" {
			continue
		}
		if a.lookup == nil || a.lookup.HasFilter(name) {
			a.res.References = append(a.res.References, &ajtypes.Reference{
				FromFile: a.file,
				Name:     name,
				Hint:     ajtypes.HintFilter,
				Location: ajtypes.Location{File: a.path, Range: a.tree.RangeOfHTML(n)},
			})
		}
	}
}

func headIdentifier(expr string) string {
	expr = strings.TrimSpace(expr)
	expr = strings.TrimLeft(expr, "!(")
	if expr == "" {
		return ""
	}
	end := identifierRunLength(expr)
	return expr[:end]
}

func identifierRunLength(s string) int {
	end := 0
	for end < len(s) {
		c := s[end]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '$' {
			end++
			continue
		}
		break
	}
	return end
}

// nextDottedSegment returns the identifier immediately following expr's
// leading identifier and a `.` (e.g. "items" in "vm.items"), and
// whether one was found.
func nextDottedSegment(expr string) (string, bool) {
	expr = strings.TrimSpace(expr)
	expr = strings.TrimLeft(expr, "!(")
	head := identifierRunLength(expr)
	rest := expr[head:]
	if !strings.HasPrefix(rest, ".") {
		return "", false
	}
	rest = rest[1:]
	end := identifierRunLength(rest)
	if end == 0 {
		return "", false
	}
	return rest[:end], true
}

// resolveHeadName extracts the identifier an expression's leading
// dotted path should be checked/diagnosed/referenced against: when the
// head is the live controller-as alias in ctx, the member immediately
// after the dot (e.g. "items" in "vm.items") resolves against the
// controller's own members via HasScopeMember, not the alias itself.
func resolveHeadName(expr string, ctx scopeCtx) string {
	head := headIdentifier(expr)
	if head == "" {
		return ""
	}
	if ctx.alias != "" && head == ctx.alias {
		if member, ok := nextDottedSegment(expr); ok {
			return member
		}
	}
	return head
}

func (a *analyzerState) emitIdentifierRef(name string, n *html.Node, ctx scopeCtx) {
	if name == "" {
		return
	}
	a.res.References = append(a.res.References, &ajtypes.Reference{
		FromFile: a.file,
		Name:     name,
		Hint:     ajtypes.HintScopeMember,
		Location: ajtypes.Location{File: a.path, Range: a.tree.RangeOfHTML(n)},
	})

	if !a.opts.DiagnosticsEnabled || a.lookup == nil {
		return
	}
	if globallyKnown[name] || ctx.locals[name] {
		return
	}
	if ctx.owner != "" && a.lookup.HasScopeMember(ctx.owner, name) {
		return
	}
	a.res.Diagnostics = append(a.res.Diagnostics, &ajtypes.Diagnostic{
		Location: ajtypes.Location{File: a.path, Range: a.tree.RangeOfHTML(n)},
		Severity: a.opts.Severity,
		Message:  fmt.Sprintf("%q is not a visible scope member, local variable, or global", name),
		Code:     "undefined-scope-member",
	})
}
