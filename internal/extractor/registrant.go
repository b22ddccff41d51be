package extractor

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/angularjs-lsp/internal/ajtypes"
	"github.com/standardbeagle/angularjs-lsp/internal/syntax"
)

// collectInjectBackpatches scans the whole file for `Name.$inject = [...]`
// assignments, independent of traversal order, so resolution of the
// registrant shapes below never cares whether the assignment appears
// before or after the angular.module(...) registration call.
func (e *extractorState) collectInjectBackpatches(root *sitter.Node) {
	e.inject = map[string][]string{}
	syntax.Walk(root, func(n *sitter.Node) bool {
		if n.Kind() != "assignment_expression" {
			return true
		}
		left := syntax.FieldChild(n, "left")
		right := syntax.FieldChild(n, "right")
		if left == nil || right == nil || left.Kind() != "member_expression" {
			return true
		}
		obj := syntax.FieldChild(left, "object")
		prop := syntax.FieldChild(left, "property")
		if obj == nil || prop == nil || obj.Kind() != "identifier" {
			return true
		}
		if syntax.GetNodeText(prop, e.content) != "$inject" || right.Kind() != "array" {
			return true
		}
		name := syntax.GetNodeText(obj, e.content)
		e.inject[name] = stringArrayValues(right, e.content)
		return true
	})
}

// registrant is the decoded shape of a DI-bearing registrant argument.
type registrant struct {
	deps   []string
	body   *sitter.Node // the statement/expression list to extract scope members from
	params []string     // formal parameter names, for bare-function/array/class-constructor forms
	// for component config-object shape
	configObject *sitter.Node
}

// decodeRegistrant handles all the shapes in spec.md §4.2 rule "DI-bearing
// constructs": array DSL, $inject-bearing identifier, bare function, and
// class expression/reference, optionally wrapped by the first two.
func (e *extractorState) decodeRegistrant(arg *sitter.Node) *registrant {
	if arg == nil {
		return nil
	}
	switch arg.Kind() {
	case "array":
		return e.decodeArrayDSL(arg)
	case "identifier":
		name := syntax.GetNodeText(arg, e.content)
		return &registrant{deps: e.inject[name]}
	case "function_expression", "function_declaration", "generator_function":
		return e.decodeFunctionLike(arg, nil)
	case "class", "class_expression":
		return e.decodeClassLike(arg, nil)
	case "object":
		// Component config object shape; handled by the caller.
		return &registrant{configObject: arg}
	}
	return nil
}

// decodeArrayDSL handles `[dep1, dep2, ..., function(p1,p2){...}]` and
// `[dep1, ..., ClassRef]` / `[dep1, ..., Identifier]`.
func (e *extractorState) decodeArrayDSL(array *sitter.Node) *registrant {
	var deps []string
	var last *sitter.Node
	for i := uint(0); i < array.ChildCount(); i++ {
		el := array.Child(i)
		if el == nil {
			continue
		}
		switch el.Kind() {
		case "[", "]", ",":
			continue
		}
		last = el
		if v, ok := syntax.StringValue(el, e.content); ok {
			deps = append(deps, v)
		}
	}
	if last == nil {
		return &registrant{deps: deps}
	}
	switch last.Kind() {
	case "function_expression", "function_declaration", "generator_function", "arrow_function":
		r := e.decodeFunctionLike(last, nil)
		r.deps = deps
		return r
	case "class", "class_expression":
		r := e.decodeClassLike(last, nil)
		r.deps = deps
		return r
	case "identifier":
		name := syntax.GetNodeText(last, e.content)
		if inj, ok := e.inject[name]; ok && len(deps) == 0 {
			deps = inj
		}
		return &registrant{deps: deps}
	}
	return &registrant{deps: deps}
}

// decodeFunctionLike handles the bare-function shape: deps = formal
// parameter names. preDeps, if non-nil, overrides deps (array DSL
// already supplied them).
func (e *extractorState) decodeFunctionLike(fn *sitter.Node, preDeps []string) *registrant {
	params := syntax.FieldChild(fn, "parameters")
	names := formalParameterNames(params, e.content)
	deps := names
	if preDeps != nil {
		deps = preDeps
	}
	return &registrant{deps: deps, params: names, body: syntax.FieldChild(fn, "body")}
}

// decodeClassLike handles a class expression/declaration registrant:
// deps = constructor parameter names, body = constructor body.
func (e *extractorState) decodeClassLike(class *sitter.Node, preDeps []string) *registrant {
	body := syntax.FieldChild(class, "body")
	if body == nil {
		return &registrant{deps: preDeps}
	}
	for i := uint(0); i < body.ChildCount(); i++ {
		member := body.Child(i)
		if member == nil || member.Kind() != "method_definition" {
			continue
		}
		nameNode := syntax.FieldChild(member, "name")
		if nameNode == nil || syntax.GetNodeText(nameNode, e.content) != "constructor" {
			continue
		}
		params := syntax.FieldChild(member, "parameters")
		names := formalParameterNames(params, e.content)
		deps := names
		if preDeps != nil {
			deps = preDeps
		}
		return &registrant{deps: deps, params: names, body: syntax.FieldChild(member, "body")}
	}
	return &registrant{deps: preDeps}
}

func formalParameterNames(params *sitter.Node, content []byte) []string {
	if params == nil {
		return nil
	}
	var names []string
	for i := uint(0); i < params.ChildCount(); i++ {
		p := params.Child(i)
		if p == nil {
			continue
		}
		switch p.Kind() {
		case "identifier":
			names = append(names, syntax.GetNodeText(p, content))
		case "required_parameter", "assignment_pattern":
			if id := syntax.FindChildByType(p, "identifier"); id != nil {
				names = append(names, syntax.GetNodeText(id, content))
			}
		}
	}
	return names
}

// visitRegistrant handles controller|service|factory|directive|component|
// filter|provider registration: `module.<kind>(name, registrant)`.
func (e *extractorState) visitRegistrant(call *sitter.Node, moduleName string, kind ajtypes.Kind, propertyNode *sitter.Node) {
	args := syntax.FieldChild(call, "arguments")
	nodes := directArgumentNodes(args)
	if len(nodes) < 2 {
		return
	}
	name, ok := syntax.StringValue(nodes[0], e.content)
	if !ok {
		return
	}

	var component *ajtypes.ComponentMetadata
	var deps []string
	var body *sitter.Node
	var params []string

	if kind == ajtypes.KindComponent && nodes[1].Kind() == "object" {
		component = e.decodeComponentConfig(nodes[1])
	} else {
		reg := e.decodeRegistrant(nodes[1])
		if reg == nil {
			return
		}
		if reg.configObject != nil && kind == ajtypes.KindComponent {
			component = e.decodeComponentConfig(reg.configObject)
		}
		deps, body, params = reg.deps, reg.body, reg.params
	}

	sym := &ajtypes.Symbol{
		ID:         e.res.nextID(e.file),
		Kind:       kind,
		Name:       name,
		ModuleName: moduleName,
		Location:   ajtypes.Location{File: e.path, Range: syntax.RangeOf(call)},
		DefRange:   ajtypes.Location{File: e.path, Range: syntax.RangeOf(nodes[0])}.Range,
		Deps:       deps,
		Component:  component,
		DocComment: e.leadingDocComment(call),
	}
	if kind == ajtypes.KindDirective {
		sym.Directive = e.decodeDirectiveMetadataFromBody(body)
	}
	e.res.addSymbol(sym)
	e.res.symbolIndex[kind.String()+":"+name] = sym

	if body != nil {
		owner := ownerFor(sym)
		e.extractBody(body, owner, deps, params)
	}
	if component != nil {
		e.extractComponentBindings(sym, component)
	}
}

func ownerFor(sym *ajtypes.Symbol) ajtypes.SymbolID { return sym.ID }

// visitConstantOrValue handles `.constant(name, value)`/`.value(name, value)`.
func (e *extractorState) visitConstantOrValue(call *sitter.Node, moduleName string, kind ajtypes.Kind, _ *sitter.Node) {
	args := syntax.FieldChild(call, "arguments")
	nodes := directArgumentNodes(args)
	if len(nodes) < 1 {
		return
	}
	name, ok := syntax.StringValue(nodes[0], e.content)
	if !ok {
		return
	}
	sym := &ajtypes.Symbol{
		ID:         e.res.nextID(e.file),
		Kind:       kind,
		Name:       name,
		ModuleName: moduleName,
		Location:   ajtypes.Location{File: e.path, Range: syntax.RangeOf(call)},
		DefRange:   ajtypes.Location{File: e.path, Range: syntax.RangeOf(nodes[0])}.Range,
	}
	e.res.addSymbol(sym)
}

// visitDecorator handles `.decorator(name, fn)`: per the open question in
// spec.md §9, this is emitted only as a Reference, not as a new Symbol.
func (e *extractorState) visitDecorator(call *sitter.Node) {
	args := syntax.FieldChild(call, "arguments")
	nodes := directArgumentNodes(args)
	if len(nodes) < 1 {
		return
	}
	name, ok := syntax.StringValue(nodes[0], e.content)
	if !ok {
		return
	}
	e.res.addReference(&ajtypes.Reference{
		FromFile: e.file,
		Name:     name,
		Hint:     ajtypes.HintService,
		Location: ajtypes.Location{File: e.path, Range: syntax.RangeOf(nodes[0])},
	})
}
