package syntax

import (
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

func TestParseJSRoot(t *testing.T) {
	src := []byte(`angular.module('app', []);`)
	tree, err := ParseJS(src)
	if err != nil {
		t.Fatalf("ParseJS failed: %v", err)
	}
	defer tree.Close()

	root := tree.Root()
	if root == nil {
		t.Fatalf("Root() returned nil")
	}
	if root.Kind() != "program" {
		t.Errorf("Root().Kind() = %q, want program", root.Kind())
	}
}

func TestFindCallExpressionAndArguments(t *testing.T) {
	src := []byte(`angular.module('app', ['ngRoute']);`)
	tree, err := ParseJS(src)
	if err != nil {
		t.Fatalf("ParseJS failed: %v", err)
	}
	defer tree.Close()

	var call *sitter.Node
	Walk(tree.Root(), func(n *sitter.Node) bool {
		if n.Kind() == "call_expression" && call == nil {
			call = n
		}
		return true
	})
	if call == nil {
		t.Fatalf("no call_expression found")
	}

	callee := FieldChild(call, "function")
	if callee == nil || callee.Kind() != "member_expression" {
		t.Fatalf("function field = %v, want a member_expression", callee)
	}

	object := FieldChild(callee, "object")
	property := FieldChild(callee, "property")
	if object.Kind() != "identifier" || GetNodeText(object, src) != "angular" {
		t.Errorf("object = %q, want identifier angular", GetNodeText(object, src))
	}
	if property.Kind() != "property_identifier" || GetNodeText(property, src) != "module" {
		t.Errorf("property = %q, want property_identifier module", GetNodeText(property, src))
	}

	args := FieldChild(call, "arguments")
	if args == nil || args.Kind() != "arguments" {
		t.Fatalf("arguments field = %v, want an arguments node", args)
	}
}

func TestStringValue(t *testing.T) {
	src := []byte(`angular.module('app', []);`)
	tree, err := ParseJS(src)
	if err != nil {
		t.Fatalf("ParseJS failed: %v", err)
	}
	defer tree.Close()

	var strNode *sitter.Node
	Walk(tree.Root(), func(n *sitter.Node) bool {
		if n.Kind() == "string" && strNode == nil {
			strNode = n
		}
		return true
	})
	if strNode == nil {
		t.Fatalf("no string literal found")
	}

	val, ok := StringValue(strNode, src)
	if !ok || val != "app" {
		t.Errorf("StringValue = (%q, %v), want (app, true)", val, ok)
	}
}

func TestStringValueRejectsNonString(t *testing.T) {
	src := []byte(`angular.module('app', []);`)
	tree, err := ParseJS(src)
	if err != nil {
		t.Fatalf("ParseJS failed: %v", err)
	}
	defer tree.Close()

	_, ok := StringValue(tree.Root(), src)
	if ok {
		t.Errorf("StringValue on the program root should report ok=false")
	}
}

func TestEnclosingCall(t *testing.T) {
	src := []byte(`angular.module('app', []);`)
	tree, err := ParseJS(src)
	if err != nil {
		t.Fatalf("ParseJS failed: %v", err)
	}
	defer tree.Close()

	var strNode *sitter.Node
	Walk(tree.Root(), func(n *sitter.Node) bool {
		if n.Kind() == "string" && strNode == nil {
			strNode = n
		}
		return true
	})
	if strNode == nil {
		t.Fatalf("no string literal found")
	}

	call := EnclosingCall(strNode)
	if call == nil || call.Kind() != "call_expression" {
		t.Errorf("EnclosingCall = %v, want the enclosing call_expression", call)
	}
}

func TestNodeAtOffset(t *testing.T) {
	src := []byte(`angular.module('app', []);`)
	tree, err := ParseJS(src)
	if err != nil {
		t.Fatalf("ParseJS failed: %v", err)
	}
	defer tree.Close()

	// offset 16 lands inside the 'app' string literal (index of 'a' in 'app').
	offset := indexOf(src, "app")
	node := NodeAt(tree.Root(), offset)
	if node == nil {
		t.Fatalf("NodeAt returned nil")
	}
	// The smallest node at that offset is the string_fragment or string node.
	if node.Kind() != "string_fragment" && node.Kind() != "string" {
		t.Errorf("NodeAt(%d).Kind() = %q, want string_fragment or string", offset, node.Kind())
	}
}

func TestRangeOfRoot(t *testing.T) {
	src := []byte(`angular.module('app', []);`)
	tree, err := ParseJS(src)
	if err != nil {
		t.Fatalf("ParseJS failed: %v", err)
	}
	defer tree.Close()

	r := RangeOf(tree.Root())
	if r.StartByte != 0 || r.EndByte != len(src) {
		t.Errorf("RangeOf(root) = %+v, want StartByte=0 EndByte=%d", r, len(src))
	}
}

func TestGetNodeTextWholeSource(t *testing.T) {
	src := []byte(`angular.module('app', []);`)
	tree, err := ParseJS(src)
	if err != nil {
		t.Fatalf("ParseJS failed: %v", err)
	}
	defer tree.Close()

	if got := GetNodeText(tree.Root(), src); got != string(src) {
		t.Errorf("GetNodeText(root) = %q, want %q", got, src)
	}
}

func indexOf(src []byte, needle string) int {
	for i := 0; i+len(needle) <= len(src); i++ {
		if string(src[i:i+len(needle)]) == needle {
			return i
		}
	}
	return -1
}
