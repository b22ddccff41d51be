// Package extractor walks a parsed JavaScript tree and emits the Symbol
// and Reference records for every recognized AngularJS construct, per
// spec.md §4.2. It is deliberately open-world: unrecognized call shapes
// are silently skipped (see design note "Open-world pattern matching"),
// so the dispatch is a table keyed by callee name rather than a
// monolithic visitor.
package extractor

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/angularjs-lsp/internal/ajtypes"
	"github.com/standardbeagle/angularjs-lsp/internal/syntax"
)

// registrantMethods is the closed catalog of chained calls that attach a
// construct to a module handle.
var registrantMethods = map[string]ajtypes.Kind{
	"controller": ajtypes.KindController,
	"service":    ajtypes.KindService,
	"factory":    ajtypes.KindFactory,
	"directive":  ajtypes.KindDirective,
	"component":  ajtypes.KindComponent,
	"filter":     ajtypes.KindFilter,
	"provider":   ajtypes.KindProvider,
}

// Result is everything the Extractor produced for one file.
type Result struct {
	Modules     []ajtypes.Module
	Symbols     []*ajtypes.Symbol
	References  []*ajtypes.Reference
	nextSeq     uint32
	symbolIndex map[string]*ajtypes.Symbol // "kind:name" -> symbol, within this file, for owner lookups
}

func newResult() *Result {
	return &Result{symbolIndex: map[string]*ajtypes.Symbol{}}
}

func (r *Result) nextID(file ajtypes.FileID) ajtypes.SymbolID {
	r.nextSeq++
	return ajtypes.SymbolID{File: file, Seq: r.nextSeq}
}

func (r *Result) addSymbol(s *ajtypes.Symbol) {
	r.Symbols = append(r.Symbols, s)
}

func (r *Result) addReference(ref *ajtypes.Reference) {
	r.References = append(r.References, ref)
}

// Extract walks root and returns every Symbol/Reference/Module found in
// it. file identifies the owning file for generated symbol ids.
func Extract(file ajtypes.FileID, path string, content []byte, root *sitter.Node) *Result {
	res := newResult()
	if root == nil {
		return res
	}
	e := &extractorState{file: file, path: path, content: content, res: res}
	e.collectInjectBackpatches(root)
	syntax.Walk(root, func(n *sitter.Node) bool {
		if n.Kind() != "call_expression" {
			return true
		}
		e.visitCall(n)
		return true
	})
	return res
}

type extractorState struct {
	file    ajtypes.FileID
	path    string
	content []byte
	res     *Result
	// inject maps a function/class identifier name to its $inject list,
	// collected file-wide before the main walk so forward and backward
	// references both resolve (spec: "$inject... assigned at any point
	// in the same file prior to or after registration").
	inject map[string][]string
}

// visitCall dispatches a single call_expression: either a module
// declaration, or a registrant method chained off a module handle.
func (e *extractorState) visitCall(call *sitter.Node) {
	callee := syntax.FieldChild(call, "function")
	if callee == nil || callee.Kind() != "member_expression" {
		return
	}
	object := syntax.FieldChild(callee, "object")
	property := syntax.FieldChild(callee, "property")
	if object == nil || property == nil {
		return
	}
	propName := syntax.GetNodeText(property, e.content)

	if object.Kind() == "identifier" && syntax.GetNodeText(object, e.content) == "angular" && propName == "module" {
		e.visitModuleDeclaration(call)
		return
	}

	if kind, ok := registrantMethods[propName]; ok {
		moduleName, ok := e.resolveModuleChainName(object)
		if !ok {
			return
		}
		e.visitRegistrant(call, moduleName, kind, property)
		return
	}

	switch propName {
	case "constant":
		if moduleName, ok := e.resolveModuleChainName(object); ok {
			e.visitConstantOrValue(call, moduleName, ajtypes.KindConstant, property)
		}
	case "value":
		if moduleName, ok := e.resolveModuleChainName(object); ok {
			e.visitConstantOrValue(call, moduleName, ajtypes.KindValue, property)
		}
	case "config":
		e.visitConfigBlock(call)
	case "decorator":
		e.visitDecorator(call)
	case "run":
		e.visitRunBlock(call)
	}
}

// visitRunBlock handles `.run(registrant)`. A run block has no name of
// its own and is never addressable as a Symbol, but its body is the
// canonical place `$rootScope.x = ...` assignments are made, so it is
// walked the same way a controller/service body is.
func (e *extractorState) visitRunBlock(call *sitter.Node) {
	args := directArgumentNodes(syntax.FieldChild(call, "arguments"))
	if len(args) == 0 {
		return
	}
	reg := e.decodeRegistrant(args[0])
	if reg == nil || reg.body == nil {
		return
	}
	e.extractBody(reg.body, ajtypes.SymbolID{}, reg.deps, reg.params)
}

// visitModuleDeclaration handles angular.module(STR, ARRAY?).
func (e *extractorState) visitModuleDeclaration(call *sitter.Node) {
	args := syntax.FieldChild(call, "arguments")
	if args == nil {
		return
	}
	argNodes := directArgumentNodes(args)
	if len(argNodes) == 0 {
		return
	}
	name, ok := syntax.StringValue(argNodes[0], e.content)
	if !ok {
		return
	}

	mod := ajtypes.Module{
		Name:     name,
		Location: ajtypes.Location{File: e.path, Range: syntax.RangeOf(call)},
	}
	if len(argNodes) >= 2 && argNodes[1].Kind() == "array" {
		mod.Declared = true
		mod.Deps = stringArrayValues(argNodes[1], e.content)
	}
	e.res.Modules = append(e.res.Modules, mod)
}

// resolveModuleChainName walks up an arbitrarily long chain of
// `.controller(...)`/etc calls back to the angular.module(...) root and
// returns the module name the chain is attached to.
func (e *extractorState) resolveModuleChainName(object *sitter.Node) (string, bool) {
	if object == nil {
		return "", false
	}
	if object.Kind() != "call_expression" {
		return "", false
	}
	callee := syntax.FieldChild(object, "function")
	if callee == nil || callee.Kind() != "member_expression" {
		return "", false
	}
	inner := syntax.FieldChild(callee, "object")
	prop := syntax.FieldChild(callee, "property")
	if inner == nil || prop == nil {
		return "", false
	}
	propName := syntax.GetNodeText(prop, e.content)

	if inner.Kind() == "identifier" && syntax.GetNodeText(inner, e.content) == "angular" && propName == "module" {
		args := syntax.FieldChild(object, "arguments")
		nodes := directArgumentNodes(args)
		if len(nodes) == 0 {
			return "", false
		}
		return syntax.StringValue(nodes[0], e.content)
	}

	if _, chained := registrantMethods[propName]; chained || propName == "constant" || propName == "value" || propName == "config" || propName == "run" || propName == "decorator" {
		return e.resolveModuleChainName(inner)
	}
	return "", false
}

// directArgumentNodes returns the non-punctuation children of an
// `arguments` node (the actual expression arguments).
func directArgumentNodes(args *sitter.Node) []*sitter.Node {
	if args == nil {
		return nil
	}
	var out []*sitter.Node
	for i := uint(0); i < args.ChildCount(); i++ {
		c := args.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "(", ")", ",":
			continue
		}
		out = append(out, c)
	}
	return out
}

// stringArrayValues returns the string contents of an `array` node's
// string-literal elements, in order, skipping any non-string elements.
func stringArrayValues(array *sitter.Node, content []byte) []string {
	var out []string
	for i := uint(0); i < array.ChildCount(); i++ {
		el := array.Child(i)
		if el == nil {
			continue
		}
		if v, ok := syntax.StringValue(el, content); ok {
			out = append(out, v)
		}
	}
	return out
}
