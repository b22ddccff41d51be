package resolver

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/standardbeagle/angularjs-lsp/internal/ajtypes"
	"github.com/standardbeagle/angularjs-lsp/internal/syntax"
)

// AtHTML resolves the identifier under byteOffset in a parsed template.
// Byte offsets are only recovered at tag/text granularity (see
// syntax.HTMLTree), so within an attribute value or a long text node
// this returns the head identifier of the first AngularJS expression
// found there rather than the exact sub-span under the cursor — good
// enough for hover/definition, where the whole attribute resolves to
// one symbol anyway.
func AtHTML(tree *syntax.HTMLTree, byteOffset int) (Cursor, bool) {
	if tree == nil || tree.Root == nil {
		return Cursor{}, false
	}

	var found *html.Node
	syntax.WalkHTML(tree.Root, func(n *html.Node) bool {
		r := tree.RangeOfHTML(n)
		if r.StartByte == 0 && r.EndByte == 0 {
			return true
		}
		if r.Contains(byteOffset) {
			found = n
		}
		return true
	})
	if found == nil {
		return Cursor{}, false
	}

	r := tree.RangeOfHTML(found)
	alias := enclosingControllerAsAlias(found)
	if found.Type == html.TextNode {
		if name, ok := headIdentifierInText(found.Data, alias); ok {
			return Cursor{Name: name, Hint: ajtypes.HintScopeMember, Range: r}, true
		}
		return Cursor{}, false
	}
	if found.Type == html.ElementNode {
		for _, attr := range found.Attr {
			if !strings.HasPrefix(attr.Key, "ng-") && !strings.Contains(attr.Key, "-") {
				continue
			}
			if name, ok := headIdentifierInText(attr.Val, alias); ok {
				return Cursor{Name: name, Hint: ajtypes.HintScopeMember, Range: r}, true
			}
		}
	}
	return Cursor{}, false
}

// enclosingControllerAsAlias walks n's ancestors for the nearest
// `ng-controller="Name as alias"` binding, returning alias ("" if the
// attribute is absent or has no "as" clause).
func enclosingControllerAsAlias(n *html.Node) string {
	for p := n; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if v, ok := syntax.AttrValue(p, "ng-controller"); ok {
			fields := strings.Fields(v)
			if len(fields) == 3 && fields[1] == "as" {
				return fields[2]
			}
			return ""
		}
	}
	return ""
}

func identifierRunLength(s string) int {
	i := 0
	for i < len(s) {
		c := s[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '$' {
			i++
			continue
		}
		break
	}
	return i
}

// headIdentifierInText extracts the identifier an AngularJS expression
// embedded in text should resolve against: ordinarily its leading
// identifier, but when that identifier is the live controller-as alias
// in scope, the member immediately after the dot instead (e.g. "items"
// in "vm.items"), mirroring how the Template Analyzer resolves the
// same expression shape.
func headIdentifierInText(text string, alias string) (string, bool) {
	start := strings.Index(text, "{{")
	expr := text
	if start >= 0 {
		end := strings.Index(text[start+2:], "}}")
		if end < 0 {
			return "", false
		}
		expr = text[start+2 : start+2+end]
	}
	expr = strings.TrimSpace(expr)
	expr = strings.TrimLeft(expr, "!(")
	i := identifierRunLength(expr)
	if i == 0 {
		return "", false
	}
	head := expr[:i]
	if alias != "" && head == alias && strings.HasPrefix(expr[i:], ".") {
		rest := expr[i+1:]
		j := identifierRunLength(rest)
		if j > 0 {
			return rest[:j], true
		}
	}
	return head, true
}
