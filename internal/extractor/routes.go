package extractor

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/angularjs-lsp/internal/ajtypes"
	"github.com/standardbeagle/angularjs-lsp/internal/syntax"
)

// visitConfigBlock handles `.config(...)`. When the registrant injects
// $routeProvider or $stateProvider, its body is scanned for chained
// `.when(path, cfg)` / `.state(name, cfg)` calls and RouteBinding
// symbols are emitted per spec.md §4.2 "Route bindings".
func (e *extractorState) visitConfigBlock(call *sitter.Node) {
	args := directArgumentNodes(syntax.FieldChild(call, "arguments"))
	if len(args) == 0 {
		return
	}
	reg := e.decodeRegistrant(args[0])
	if reg == nil || reg.body == nil {
		return
	}

	routeVar, kind := providerVariable(reg.deps, reg.params, "$routeProvider")
	if routeVar == "" {
		routeVar, kind = providerVariable(reg.deps, reg.params, "$stateProvider")
	}
	if routeVar == "" {
		return
	}

	syntax.Walk(reg.body, func(n *sitter.Node) bool {
		if n.Kind() != "call_expression" {
			return true
		}
		callee := syntax.FieldChild(n, "function")
		if callee == nil || callee.Kind() != "member_expression" {
			return true
		}
		object := syntax.FieldChild(callee, "object")
		property := syntax.FieldChild(callee, "property")
		if object == nil || property == nil || object.Kind() != "identifier" {
			return true
		}
		if syntax.GetNodeText(object, e.content) != routeVar {
			return true
		}
		method := syntax.GetNodeText(property, e.content)
		switch {
		case kind == "$routeProvider" && method == "when":
			e.emitRouteWhen(n)
		case kind == "$stateProvider" && method == "state":
			e.emitRouteState(n)
		}
		return true
	})
}

// providerVariable finds which formal parameter a given $routeProvider/
// $stateProvider DI name was bound to.
func providerVariable(deps, params []string, want string) (string, string) {
	for i, d := range deps {
		if d == want && i < len(params) {
			return params[i], want
		}
	}
	return "", ""
}

func (e *extractorState) emitRouteWhen(call *sitter.Node) {
	args := directArgumentNodes(syntax.FieldChild(call, "arguments"))
	if len(args) < 2 {
		return
	}
	path, ok := syntax.StringValue(args[0], e.content)
	if !ok || args[1].Kind() != "object" {
		return
	}
	pairs := e.objectPairs(args[1])
	meta := &ajtypes.RouteMetadata{Path: path}
	if v, ok := pairs["controller"]; ok {
		meta.ControllerName, _ = syntax.StringValue(v, e.content)
	}
	if v, ok := pairs["templateUrl"]; ok {
		meta.TemplateURL, _ = syntax.StringValue(v, e.content)
	}
	e.addRouteBinding(call, meta)
}

func (e *extractorState) emitRouteState(call *sitter.Node) {
	args := directArgumentNodes(syntax.FieldChild(call, "arguments"))
	if len(args) < 2 {
		return
	}
	name, ok := syntax.StringValue(args[0], e.content)
	if !ok || args[1].Kind() != "object" {
		return
	}
	pairs := e.objectPairs(args[1])
	meta := &ajtypes.RouteMetadata{StateName: name}
	if v, ok := pairs["controller"]; ok {
		meta.ControllerName, _ = syntax.StringValue(v, e.content)
	}
	if v, ok := pairs["templateUrl"]; ok {
		meta.TemplateURL, _ = syntax.StringValue(v, e.content)
	}
	e.addRouteBinding(call, meta)
}

func (e *extractorState) addRouteBinding(call *sitter.Node, meta *ajtypes.RouteMetadata) {
	name := meta.ControllerName
	if name == "" {
		name = meta.TemplateURL
	}
	sym := &ajtypes.Symbol{
		ID:       e.res.nextID(e.file),
		Kind:     ajtypes.KindRouteBinding,
		Name:     name,
		Location: ajtypes.Location{File: e.path, Range: syntax.RangeOf(call)},
		DefRange: ajtypes.Location{File: e.path, Range: syntax.RangeOf(call)}.Range,
		Route:    meta,
	}
	e.res.addSymbol(sym)
}
