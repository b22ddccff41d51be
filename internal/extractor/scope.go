package extractor

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/angularjs-lsp/internal/ajtypes"
	"github.com/standardbeagle/angularjs-lsp/internal/syntax"
)

var controllerAsAliases = map[string]bool{
	"vm": true, "self": true, "ctrl": true, "_this": true,
}

// extractBody walks a DI-bearing construct's implementation body for
// $scope/this assignments, nested function declarations and
// $watch/$on/$broadcast/$emit usage. owner is the enclosing construct;
// deps/params are its resolved dependency list and formal parameters
// (array-DSL deps take precedence per spec, but $scope visibility is
// checked against the name appearing in either).
func (e *extractorState) extractBody(body *sitter.Node, owner ajtypes.SymbolID, deps, params []string) {
	if body == nil {
		return
	}
	hasScope := containsName(deps, "$scope") || containsName(params, "$scope")
	alias := e.findControllerAsAlias(body)

	syntax.Walk(body, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "assignment_expression":
			e.visitBodyAssignment(n, owner, hasScope, alias)
		case "call_expression":
			e.visitWatchOrEventCall(n, owner)
		}
		return true
	})
}

func containsName(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

// findControllerAsAlias scans body for `var/let/const ALIAS = this`.
func (e *extractorState) findControllerAsAlias(body *sitter.Node) string {
	found := ""
	syntax.Walk(body, func(n *sitter.Node) bool {
		if found != "" {
			return false
		}
		if n.Kind() != "variable_declarator" {
			return true
		}
		nameNode := syntax.FieldChild(n, "name")
		valueNode := syntax.FieldChild(n, "value")
		if nameNode == nil || valueNode == nil {
			return true
		}
		if nameNode.Kind() != "identifier" || valueNode.Kind() != "this" {
			return true
		}
		name := syntax.GetNodeText(nameNode, e.content)
		if controllerAsAliases[name] {
			found = name
			return false
		}
		return true
	})
	return found
}

// visitBodyAssignment emits a ScopeProperty/ScopeMethod for
// `$scope.name = expr` (first level only) when hasScope is true, and a
// ControllerAsProperty/ControllerAsMethod for `ALIAS.name = expr` or
// `this.name = expr`.
func (e *extractorState) visitBodyAssignment(assign *sitter.Node, owner ajtypes.SymbolID, hasScope bool, alias string) {
	left := syntax.FieldChild(assign, "left")
	right := syntax.FieldChild(assign, "right")
	if left == nil || right == nil || left.Kind() != "member_expression" {
		return
	}
	object := syntax.FieldChild(left, "object")
	property := syntax.FieldChild(left, "property")
	if object == nil || property == nil || property.Kind() != "property_identifier" {
		return
	}
	name := syntax.GetNodeText(property, e.content)

	switch {
	case object.Kind() == "identifier" && syntax.GetNodeText(object, e.content) == "$scope" && hasScope:
		e.emitMember(owner, ajtypes.KindScopeProperty, ajtypes.KindScopeMethod, name, left, right)
	case object.Kind() == "this":
		e.emitMember(owner, ajtypes.KindControllerAsProperty, ajtypes.KindControllerAsMethod, name, left, right)
	case object.Kind() == "identifier" && alias != "" && syntax.GetNodeText(object, e.content) == alias:
		e.emitMember(owner, ajtypes.KindControllerAsProperty, ajtypes.KindControllerAsMethod, name, left, right)
	case object.Kind() == "identifier" && syntax.GetNodeText(object, e.content) == "$rootScope":
		e.emitRootScopeMember(name, left, right)
	}
}

func (e *extractorState) emitMember(owner ajtypes.SymbolID, propKind, methodKind ajtypes.Kind, name string, left, right *sitter.Node) {
	kind := propKind
	if isFunctionLike(right) {
		kind = methodKind
	}
	ownerCopy := owner
	sym := &ajtypes.Symbol{
		ID:       e.res.nextID(e.file),
		Kind:     kind,
		Name:     name,
		Owner:    &ownerCopy,
		Location: ajtypes.Location{File: e.path, Range: syntax.RangeOf(left)},
		DefRange: ajtypes.Location{File: e.path, Range: syntax.RangeOf(left)}.Range,
	}
	e.res.addSymbol(sym)
}

// emitRootScopeMember handles `$rootScope.name = ...` assignments, which
// per the design notes are treated as globally visible regardless of
// where they are assigned (typically inside a `.run()` block).
func (e *extractorState) emitRootScopeMember(name string, left, right *sitter.Node) {
	kind := ajtypes.KindRootScopeProperty
	if isFunctionLike(right) {
		kind = ajtypes.KindRootScopeMethod
	}
	sym := &ajtypes.Symbol{
		ID:       e.res.nextID(e.file),
		Kind:     kind,
		Name:     name,
		Location: ajtypes.Location{File: e.path, Range: syntax.RangeOf(left)},
		DefRange: ajtypes.Location{File: e.path, Range: syntax.RangeOf(left)}.Range,
	}
	e.res.addSymbol(sym)
}

func isFunctionLike(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind() {
	case "function_expression", "arrow_function", "generator_function", "class", "class_expression":
		return true
	}
	return false
}

// visitWatchOrEventCall emits a Reference (never a Symbol) for
// `$scope.$watch(...)`, `.$on(...)`, `.$broadcast(...)`, `.$emit(...)`.
func (e *extractorState) visitWatchOrEventCall(call *sitter.Node, owner ajtypes.SymbolID) {
	callee := syntax.FieldChild(call, "function")
	if callee == nil || callee.Kind() != "member_expression" {
		return
	}
	prop := syntax.FieldChild(callee, "property")
	if prop == nil {
		return
	}
	name := syntax.GetNodeText(prop, e.content)
	switch name {
	case "$watch", "$on", "$broadcast", "$emit":
	default:
		return
	}
	args := directArgumentNodes(syntax.FieldChild(call, "arguments"))
	if len(args) == 0 {
		return
	}
	if v, ok := syntax.StringValue(args[0], e.content); ok {
		e.res.addReference(&ajtypes.Reference{
			From:     owner,
			FromFile: e.file,
			Name:     v,
			Hint:     ajtypes.HintAny,
			Location: ajtypes.Location{File: e.path, Range: syntax.RangeOf(args[0])},
		})
	}
}

// leadingDocComment returns the text of the JSDoc `/** ... */` block
// immediately preceding node, if any.
func (e *extractorState) leadingDocComment(node *sitter.Node) string {
	prev := node.PrevSibling()
	for prev != nil && prev.Kind() != "comment" {
		prev = prev.PrevSibling()
		break
	}
	if prev == nil || prev.Kind() != "comment" {
		return ""
	}
	text := syntax.GetNodeText(prev, e.content)
	if !strings.HasPrefix(text, "/**") {
		return ""
	}
	return text
}
