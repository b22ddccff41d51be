// Package syntax wraps the two concrete parser backends (tree-sitter for
// JavaScript, golang.org/x/net/html for templates) behind the small set
// of cursor helpers the Extractor, Template Analyzer and Resolver share:
// parse, node-at-offset, enclosing-call, string-literal-value and
// range-of. Trees are treated as immutable once parsed.
package syntax

import (
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tsjavascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"

	"github.com/standardbeagle/angularjs-lsp/internal/ajtypes"
)

// JSTree is an immutable parsed JavaScript document.
type JSTree struct {
	Source []byte
	tree   *sitter.Tree
}

// Root returns the root node of the parse tree.
func (t *JSTree) Root() *sitter.Node {
	if t.tree == nil {
		return nil
	}
	return t.tree.RootNode()
}

// Close releases the underlying tree-sitter tree.
func (t *JSTree) Close() {
	if t.tree != nil {
		t.tree.Close()
	}
}

var (
	jsLangOnce sync.Once
	jsLang     *sitter.Language
)

func javascriptLanguage() *sitter.Language {
	jsLangOnce.Do(func() {
		jsLang = sitter.NewLanguage(tsjavascript.Language())
	})
	return jsLang
}

// ParseJS parses JavaScript source into a JSTree. A syntactically
// malformed file still yields a tree (tree-sitter's own error recovery);
// whatever nodes are reachable are what the Extractor walks, so it
// yields whatever symbols were reachable before the malformed region.
func ParseJS(content []byte) (*JSTree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(javascriptLanguage()); err != nil {
		return nil, err
	}
	tree := parser.Parse(content, nil)
	return &JSTree{Source: content, tree: tree}, nil
}

// GetNodeText extracts the source text spanned by node.
func GetNodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start > uint(len(content)) || end > uint(len(content)) || start > end {
		return ""
	}
	return string(content[start:end])
}

// RangeOf converts a tree-sitter node's position into an ajtypes.Range.
func RangeOf(node *sitter.Node) ajtypes.Range {
	if node == nil {
		return ajtypes.Range{}
	}
	startPos := node.StartPosition()
	endPos := node.EndPosition()
	return ajtypes.Range{
		StartByte: int(node.StartByte()),
		EndByte:   int(node.EndByte()),
		Start:     ajtypes.Position{Line: int(startPos.Row), Character: int(startPos.Column)},
		End:       ajtypes.Position{Line: int(endPos.Row), Character: int(endPos.Column)},
	}
}

// FindChildByType returns the first direct child with the given kind.
func FindChildByType(node *sitter.Node, kind string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

// FindChildrenByType returns every direct child with the given kind.
func FindChildrenByType(node *sitter.Node, kind string) []*sitter.Node {
	if node == nil {
		return nil
	}
	var out []*sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == kind {
			out = append(out, child)
		}
	}
	return out
}

// FieldChild returns the direct child reachable under the grammar's
// named field (e.g. "function"/"arguments" on call_expression).
func FieldChild(node *sitter.Node, field string) *sitter.Node {
	if node == nil {
		return nil
	}
	return node.ChildByFieldName(field)
}

// Walk visits node and every descendant in pre-order. visitor returning
// false skips that node's children.
func Walk(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil || !visitor(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		Walk(node.Child(i), visitor)
	}
}

// NodeAt returns the smallest node whose range contains byteOffset.
func NodeAt(root *sitter.Node, byteOffset int) *sitter.Node {
	if root == nil {
		return nil
	}
	off := uint(byteOffset)
	if off < root.StartByte() || off >= root.EndByte() {
		if off == root.StartByte() && root.StartByte() == root.EndByte() {
			// zero-width node at the exact offset
		} else if off >= root.EndByte() {
			return nil
		}
	}
	best := root
	for {
		advanced := false
		for i := uint(0); i < best.ChildCount(); i++ {
			child := best.Child(i)
			if child == nil {
				continue
			}
			if off >= child.StartByte() && off < child.EndByte() {
				best = child
				advanced = true
				break
			}
		}
		if !advanced {
			return best
		}
	}
}

// EnclosingCall walks parents of node until a call_expression is found.
func EnclosingCall(node *sitter.Node) *sitter.Node {
	for n := node; n != nil; n = n.Parent() {
		if n.Kind() == "call_expression" {
			return n
		}
	}
	return nil
}

// StringValue returns the unquoted value of a `string` node, and
// whether node was in fact a string literal.
func StringValue(node *sitter.Node, content []byte) (string, bool) {
	if node == nil {
		return "", false
	}
	kind := node.Kind()
	if kind != "string" {
		return "", false
	}
	// A `string` node wraps a `string_fragment` child between quote
	// tokens; fall back to trimming the raw text by one rune on each
	// side if the fragment child is absent.
	if frag := FindChildByType(node, "string_fragment"); frag != nil {
		return GetNodeText(frag, content), true
	}
	text := GetNodeText(node, content)
	if len(text) >= 2 {
		return text[1 : len(text)-1], true
	}
	return "", true
}
