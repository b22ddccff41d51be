package resolver

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/angularjs-lsp/internal/ajtypes"
	"github.com/standardbeagle/angularjs-lsp/internal/syntax"
)

// Cursor identifies the name under the editor cursor along with a hint
// about what kind of symbol it is likely to resolve to.
type Cursor struct {
	Name  string
	Hint  ajtypes.ReferenceKindHint
	Range ajtypes.Range

	// EnclosingOwnerName/EnclosingOwnerKind identify the DI-bearing
	// construct whose registrant body the cursor sits in (e.g. the
	// Controller registered as `module.controller('MainController', ...)`),
	// for gating service-name resolution against that construct's Deps.
	// EnclosingOwnerName is "" when the cursor isn't inside one.
	EnclosingOwnerName string
	EnclosingOwnerKind ajtypes.Kind
}

// diBearingMethods is the set of module-chained calls whose second
// argument is a DI-bearing registrant, mirrored from the Extractor's
// own dispatch table since cursor resolution needs the same shape
// recognized without re-running extraction.
var diBearingMethods = map[string]ajtypes.Kind{
	"controller": ajtypes.KindController,
	"service":    ajtypes.KindService,
	"factory":    ajtypes.KindFactory,
	"directive":  ajtypes.KindDirective,
	"component":  ajtypes.KindComponent,
	"filter":     ajtypes.KindFilter,
	"provider":   ajtypes.KindProvider,
}

// enclosingRegistrant walks the parent chain of node looking for the
// nearest `module.<method>('Name', registrant)` call that node sits
// inside of, the same owner construct extractBody attributes scope
// members to during extraction.
func enclosingRegistrant(node *sitter.Node, content []byte) (name string, kind ajtypes.Kind, ok bool) {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Kind() != "call_expression" {
			continue
		}
		callee := syntax.FieldChild(p, "function")
		if callee == nil || callee.Kind() != "member_expression" {
			continue
		}
		property := syntax.FieldChild(callee, "property")
		if property == nil {
			continue
		}
		k, known := diBearingMethods[syntax.GetNodeText(property, content)]
		if !known {
			continue
		}
		args := syntax.FieldChild(p, "arguments")
		first := syntax.FindChildByType(args, "string")
		if n, ok2 := syntax.StringValue(first, content); ok2 {
			return n, k, true
		}
	}
	return "", ajtypes.KindUnknown, false
}

var scopeAliasIdentifiers = map[string]bool{
	"$scope": true, "$rootScope": true, "vm": true, "self": true, "ctrl": true, "_this": true, "this": true,
}

// AtJS resolves the identifier under byteOffset in a parsed JavaScript
// document, classifying it by the grammar shape it sits in:
//
//   - a string_fragment/string inside an array literal: a DI dependency
//     name (the array-DSL or $inject form), hint HintService unless a
//     `$filter('name')` call wraps it, in which case HintFilter.
//   - a property_identifier on the right of `$scope.`/`vm.`/`this.`:
//     a scope member reference, hint HintScopeMember.
//   - a bare identifier: a free-standing reference, hint HintAny.
func AtJS(tree *syntax.JSTree, byteOffset int) (Cursor, bool) {
	if tree == nil {
		return Cursor{}, false
	}
	node := syntax.NodeAt(tree.Root(), byteOffset)
	if node == nil {
		return Cursor{}, false
	}
	ownerName, ownerKind, _ := enclosingRegistrant(node, tree.Source)

	if s, ok := syntax.StringValue(node, tree.Source); ok {
		return Cursor{Name: s, Hint: diStringHint(node, tree.Source), Range: syntax.RangeOf(node), EnclosingOwnerName: ownerName, EnclosingOwnerKind: ownerKind}, true
	}
	if node.Kind() == "string_fragment" {
		if parent := node.Parent(); parent != nil {
			if s, ok := syntax.StringValue(parent, tree.Source); ok {
				return Cursor{Name: s, Hint: diStringHint(parent, tree.Source), Range: syntax.RangeOf(parent), EnclosingOwnerName: ownerName, EnclosingOwnerKind: ownerKind}, true
			}
		}
	}

	if node.Kind() == "property_identifier" {
		name := syntax.GetNodeText(node, tree.Source)
		if parent := node.Parent(); parent != nil && parent.Kind() == "member_expression" {
			if object := syntax.FieldChild(parent, "object"); object != nil {
				objName := syntax.GetNodeText(object, tree.Source)
				if scopeAliasIdentifiers[objName] {
					return Cursor{Name: name, Hint: ajtypes.HintScopeMember, Range: syntax.RangeOf(node), EnclosingOwnerName: ownerName, EnclosingOwnerKind: ownerKind}, true
				}
			}
		}
		return Cursor{Name: name, Hint: ajtypes.HintAny, Range: syntax.RangeOf(node), EnclosingOwnerName: ownerName, EnclosingOwnerKind: ownerKind}, true
	}

	if node.Kind() == "identifier" {
		name := syntax.GetNodeText(node, tree.Source)
		return Cursor{Name: name, Hint: ajtypes.HintAny, Range: syntax.RangeOf(node), EnclosingOwnerName: ownerName, EnclosingOwnerKind: ownerKind}, true
	}

	return Cursor{}, false
}

// EnclosingOwnerJS resolves the name of the DI-bearing construct whose
// registrant body contains byteOffset in a parsed JavaScript document —
// the JS-side counterpart of ControllerForTemplate, used to offer
// `$scope.`/`vm.`/`this.` member completion inside a controller or
// service body.
func EnclosingOwnerJS(tree *syntax.JSTree, byteOffset int) (string, bool) {
	if tree == nil {
		return "", false
	}
	node := syntax.NodeAt(tree.Root(), byteOffset)
	if node == nil {
		return "", false
	}
	name, _, ok := enclosingRegistrant(node, tree.Source)
	return name, ok
}

// diStringHint inspects whether a string literal node sits as the
// argument of a `$filter('name')` call, which narrows the hint to
// HintFilter; otherwise a string inside a DI array is treated as a
// service/factory/provider reference.
func diStringHint(strNode *sitter.Node, content []byte) ajtypes.ReferenceKindHint {
	call := syntax.EnclosingCall(strNode)
	if call == nil {
		return ajtypes.HintService
	}
	if callee := syntax.FieldChild(call, "function"); callee != nil && callee.Kind() == "identifier" {
		if syntax.GetNodeText(callee, content) == "$filter" {
			return ajtypes.HintFilter
		}
	}
	return ajtypes.HintService
}
