package extractor

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/angularjs-lsp/internal/ajtypes"
	"github.com/standardbeagle/angularjs-lsp/internal/syntax"
)

// objectPairs returns the key/value node pairs of an `object` literal,
// with the key's textual name (property_identifier or string value).
func (e *extractorState) objectPairs(obj *sitter.Node) map[string]*sitter.Node {
	out := map[string]*sitter.Node{}
	if obj == nil {
		return out
	}
	for i := uint(0); i < obj.ChildCount(); i++ {
		pair := obj.Child(i)
		if pair == nil || pair.Kind() != "pair" {
			continue
		}
		key := syntax.FieldChild(pair, "key")
		value := syntax.FieldChild(pair, "value")
		if key == nil || value == nil {
			continue
		}
		var name string
		switch key.Kind() {
		case "property_identifier":
			name = syntax.GetNodeText(key, e.content)
		case "string":
			name, _ = syntax.StringValue(key, e.content)
		default:
			continue
		}
		out[name] = value
	}
	return out
}

// decodeComponentConfig handles the component config-object registrant
// shape: { controller, controllerAs, bindings, templateUrl, template }.
func (e *extractorState) decodeComponentConfig(obj *sitter.Node) *ajtypes.ComponentMetadata {
	pairs := e.objectPairs(obj)
	meta := &ajtypes.ComponentMetadata{ControllerAs: "$ctrl", Bindings: map[string]string{}}

	if v, ok := pairs["controllerAs"]; ok {
		if s, ok := syntax.StringValue(v, e.content); ok {
			meta.ControllerAs = s
		}
	}
	if v, ok := pairs["templateUrl"]; ok {
		if s, ok := syntax.StringValue(v, e.content); ok {
			meta.TemplateURL = s
		}
	}
	if v, ok := pairs["controller"]; ok {
		switch v.Kind() {
		case "string":
			meta.InlineControl, _ = syntax.StringValue(v, e.content)
		case "identifier":
			meta.InlineControl = syntax.GetNodeText(v, e.content)
		}
	}
	if v, ok := pairs["bindings"]; ok && v.Kind() == "object" {
		for name, valNode := range e.objectPairs(v) {
			if mode, ok := syntax.StringValue(valNode, e.content); ok {
				meta.Bindings[name] = mode
			}
		}
	}
	return meta
}

// extractComponentBindings emits a ControllerAsProperty symbol per
// `bindings` entry, owned by the component symbol, per spec.md §3
// invariant "Component bindings create ControllerAsProperty symbols".
func (e *extractorState) extractComponentBindings(component *ajtypes.Symbol, meta *ajtypes.ComponentMetadata) {
	owner := component.ID
	for name := range meta.Bindings {
		sym := &ajtypes.Symbol{
			ID:       e.res.nextID(e.file),
			Kind:     ajtypes.KindControllerAsProperty,
			Name:     name,
			Owner:    &owner,
			Location: component.Location,
			DefRange: component.DefRange,
		}
		e.res.addSymbol(sym)
	}
}

// decodeDirectiveMetadataFromBody looks for a `return { restrict: ...,
// scope: ... }` inside a directive's link/factory body.
func (e *extractorState) decodeDirectiveMetadataFromBody(body *sitter.Node) *ajtypes.DirectiveMetadata {
	if body == nil {
		return nil
	}
	var meta *ajtypes.DirectiveMetadata
	syntax.Walk(body, func(n *sitter.Node) bool {
		if meta != nil {
			return false
		}
		if n.Kind() != "return_statement" {
			return true
		}
		var obj *sitter.Node
		for i := uint(0); i < n.ChildCount(); i++ {
			c := n.Child(i)
			if c != nil && c.Kind() == "object" {
				obj = c
			}
		}
		if obj == nil {
			return true
		}
		pairs := e.objectPairs(obj)
		m := &ajtypes.DirectiveMetadata{}
		if v, ok := pairs["restrict"]; ok {
			if s, ok := syntax.StringValue(v, e.content); ok {
				m.Restrict = s
			}
		}
		if v, ok := pairs["scope"]; ok {
			switch v.Kind() {
			case "object":
				m.ScopeShape = "isolate"
			case "true":
				m.ScopeShape = "inherit"
			}
		}
		meta = m
		return false
	})
	return meta
}
