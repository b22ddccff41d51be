package syntax

import (
	"bytes"
	"io"

	"golang.org/x/net/html"

	"github.com/standardbeagle/angularjs-lsp/internal/ajtypes"
)

// HTMLTree is an immutable parsed HTML document. Byte offsets for each
// node are recovered from x/net/html's token stream (the parser itself
// does not retain offsets), which also gives the tolerant "skip
// malformed tags" behavior spec.md requires: the tokenizer never aborts
// on a broken tag, it just emits an error token and continues.
type HTMLTree struct {
	Source []byte
	Root   *html.Node
	// offsets maps a *html.Node to the byte range of its opening tag (or
	// its text content for text nodes), recovered by re-scanning the
	// source with html.NewTokenizer in lockstep with html.Parse.
	offsets map[*html.Node]ajtypes.Range
}

// ParseHTML parses an HTML template. Malformed tags are not aborted on;
// whatever the tokenizer recovers is what's returned.
func ParseHTML(content []byte) (*HTMLTree, error) {
	root, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	t := &HTMLTree{Source: content, Root: root, offsets: map[*html.Node]ajtypes.Range{}}
	t.recoverOffsets(content)
	return t, nil
}

// recoverOffsets walks the source with a tokenizer and assigns each
// token's byte range to the corresponding DOM node in document order.
// html.Parse discards offsets; the tokenizer preserves them, and both
// visit elements/text in the same order, so a parallel walk of the DOM
// tree alongside a token stream recovers them without re-implementing
// a parser.
func (t *HTMLTree) recoverOffsets(content []byte) {
	z := html.NewTokenizer(bytes.NewReader(content))
	var nodes []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode || n.Type == html.TextNode || n.Type == html.CommentNode {
			nodes = append(nodes, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(t.Root)

	idx := 0
	pos := 0
	for idx < len(nodes) {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err == io.EOF {
				break
			}
			break
		}
		raw := z.Raw()
		start := pos
		end := pos + len(raw)
		pos = end

		// html.Parse inserts <html>/<head>/<body> when the source omits
		// them; such nodes have no token of their own, so they are
		// skipped unless this token is that very tag.
		tag, _ := z.TagName()
		if tt == html.StartTagToken || tt == html.SelfClosingTagToken || tt == html.TextToken {
			for idx < len(nodes) && nodes[idx].Type == html.ElementNode && impliedTags[nodes[idx].Data] && nodes[idx].Data != string(tag) {
				idx++
			}
		}
		if idx >= len(nodes) {
			break
		}
		n := nodes[idx]
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			if n.Type == html.ElementNode && n.Data == string(tag) {
				t.offsets[n] = byteRange(content, start, end)
				idx++
			}
		case html.TextToken:
			if n.Type == html.TextNode {
				t.offsets[n] = byteRange(content, start, end)
				idx++
			}
		case html.CommentToken:
			if n.Type == html.CommentNode {
				t.offsets[n] = byteRange(content, start, end)
				idx++
			}
		}
	}
}

var impliedTags = map[string]bool{"html": true, "head": true, "body": true}

func byteRange(content []byte, start, end int) ajtypes.Range {
	sl, sc := lineColAt(content, start)
	el, ec := lineColAt(content, end)
	return ajtypes.Range{
		StartByte: start,
		EndByte:   end,
		Start:     ajtypes.Position{Line: sl, Character: sc},
		End:       ajtypes.Position{Line: el, Character: ec},
	}
}

func lineColAt(content []byte, offset int) (line, col int) {
	if offset > len(content) {
		offset = len(content)
	}
	for i := 0; i < offset; i++ {
		if content[i] == '\n' {
			line++
			col = 0
		} else {
			col++
		}
	}
	return line, col
}

// RangeOfHTML returns the recovered range for node, or a zero Range if
// no offset was recovered for it (e.g. synthetic nodes html.Parse
// inserts, like an implied <html>/<body>).
func (t *HTMLTree) RangeOfHTML(n *html.Node) ajtypes.Range {
	return t.offsets[n]
}

// AttrValue returns the value of attribute name on n, and whether it
// was present.
func AttrValue(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// WalkHTML visits n and every descendant in document order. visitor
// returning false skips that node's children.
func WalkHTML(n *html.Node, visitor func(*html.Node) bool) {
	if n == nil || !visitor(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		WalkHTML(c, visitor)
	}
}
