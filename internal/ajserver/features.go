package ajserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/standardbeagle/angularjs-lsp/internal/ajtypes"
	"github.com/standardbeagle/angularjs-lsp/internal/resolver"
	"github.com/standardbeagle/angularjs-lsp/internal/syntax"
	"github.com/standardbeagle/angularjs-lsp/pkg/pathutil"
)

// lspPosition is the zero-based line/character pair LSP sends and
// expects. Character is counted in bytes, not UTF-16 code units —
// offsetFromPosition adds it to the line's byte offset, tree-sitter
// columns are bytes too, and AngularJS sources are overwhelmingly ASCII
// identifiers, so the distinction practically never bites.
type lspPosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type lspRange struct {
	Start lspPosition `json:"start"`
	End   lspPosition `json:"end"`
}

type lspLocation struct {
	URI   string   `json:"uri"`
	Range lspRange `json:"range"`
}

type lspDiagnostic struct {
	Range    lspRange `json:"range"`
	Severity int      `json:"severity"`
	Message  string   `json:"message"`
	Code     string   `json:"code,omitempty"`
}

func toLSPRange(r ajtypes.Range) lspRange {
	return lspRange{
		Start: lspPosition{Line: r.Start.Line, Character: r.Start.Character},
		End:   lspPosition{Line: r.End.Line, Character: r.End.Character},
	}
}

func toLSPLocation(loc ajtypes.Location) lspLocation {
	return lspLocation{URI: pathToURI(loc.File), Range: toLSPRange(loc.Range)}
}

func toLSPDiagnostic(d *ajtypes.Diagnostic) lspDiagnostic {
	return lspDiagnostic{Range: toLSPRange(d.Location.Range), Severity: int(d.Severity), Message: d.Message, Code: d.Code}
}

// offsetFromPosition converts a line/character position into a byte
// offset into content.
func offsetFromPosition(content []byte, pos lspPosition) int {
	line, col := 0, 0
	for i, b := range content {
		if line == pos.Line && col == pos.Character {
			return i
		}
		if b == '\n' {
			line++
			col = 0
			continue
		}
		col++
	}
	return len(content)
}

type textDocumentPositionParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
	Position lspPosition `json:"position"`
}

func (s *Server) cursorAt(p textDocumentPositionParams) (resolver.Cursor, bool) {
	doc, ok := s.getDoc(p.TextDocument.URI)
	if !ok {
		return resolver.Cursor{}, false
	}
	offset := offsetFromPosition(doc.Content, p.Position)

	if doc.Language == "html" {
		tree, err := syntax.ParseHTML(doc.Content)
		if err != nil {
			return resolver.Cursor{}, false
		}
		return resolver.AtHTML(tree, offset)
	}
	tree, err := syntax.ParseJS(doc.Content)
	if err != nil {
		return resolver.Cursor{}, false
	}
	defer tree.Close()
	return resolver.AtJS(tree, offset)
}

// --- textDocument/definition --------------------------------------------

func (s *Server) handleDefinition(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p textDocumentPositionParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	cur, ok := s.cursorAt(p)
	if !ok {
		return s.forwardOrEmpty(ctx, "textDocument/definition", params)
	}
	locs := s.Res.Definition(cur.Name, cur.Hint, s.Res.VisibilityFor(cur.EnclosingOwnerName, cur.EnclosingOwnerKind))
	if len(locs) == 0 {
		return s.forwardOrEmpty(ctx, "textDocument/definition", params)
	}
	out := make([]lspLocation, len(locs))
	for i, l := range locs {
		out[i] = toLSPLocation(l)
	}
	return out, nil
}

// forwardOrEmpty forwards a request to the fallback proxy when the
// local resolver found nothing to answer with, and returns an empty
// slice (rather than an error) if the proxy is unavailable — an
// AngularJS-unaware query should degrade gracefully, not fail the
// client.
func (s *Server) forwardOrEmpty(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	if s.Proxy == nil || s.Proxy.Disabled() {
		return []lspLocation{}, nil
	}
	raw, err := s.Proxy.Forward(ctx, method, params)
	if err != nil {
		return []lspLocation{}, nil
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return []lspLocation{}, nil
	}
	return out, nil
}

// --- textDocument/references ---------------------------------------------

type referenceParams struct {
	textDocumentPositionParams
	Context struct {
		IncludeDeclaration bool `json:"includeDeclaration"`
	} `json:"context"`
}

func (s *Server) handleReferences(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p referenceParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	cur, ok := s.cursorAt(p.textDocumentPositionParams)
	if !ok {
		return []lspLocation{}, nil
	}
	syms := s.Res.DefinitionSymbols(cur.Name, cur.Hint, s.Res.VisibilityFor(cur.EnclosingOwnerName, cur.EnclosingOwnerKind))
	var out []lspLocation
	for _, sym := range syms {
		for _, loc := range s.Res.References(sym, p.Context.IncludeDeclaration) {
			out = append(out, toLSPLocation(loc))
		}
	}
	if out == nil {
		out = []lspLocation{}
	}
	return out, nil
}

// --- textDocument/hover ----------------------------------------------------

type hoverResult struct {
	Contents string `json:"contents"`
}

func (s *Server) handleHover(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p textDocumentPositionParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	cur, ok := s.cursorAt(p)
	if !ok {
		return nil, nil
	}
	syms := s.Res.DefinitionSymbols(cur.Name, cur.Hint, s.Res.VisibilityFor(cur.EnclosingOwnerName, cur.EnclosingOwnerKind))
	if len(syms) == 0 {
		return nil, nil
	}
	return hoverResult{Contents: s.Res.Hover(syms[0])}, nil
}

// --- textDocument/completion -----------------------------------------------

type completionItem struct {
	Label string `json:"label"`
	Kind  int    `json:"kind"`
}

// lspSymbolKind maps an AngularJS construct kind onto the closest LSP
// SymbolKind, per the mapping table in the domain-stack design.
func lspSymbolKind(k ajtypes.Kind) int {
	switch k {
	case ajtypes.KindModule:
		return 3 // Namespace
	case ajtypes.KindController, ajtypes.KindService, ajtypes.KindFactory, ajtypes.KindProvider:
		return 5 // Class
	case ajtypes.KindDirective, ajtypes.KindComponent:
		return 11 // Interface
	case ajtypes.KindFilter:
		return 12 // Function
	case ajtypes.KindScopeMethod, ajtypes.KindControllerAsMethod:
		return 6 // Method
	case ajtypes.KindScopeProperty, ajtypes.KindControllerAsProperty:
		return 7 // Property
	case ajtypes.KindConstant:
		return 14 // Constant
	case ajtypes.KindValue:
		return 13 // Variable
	case ajtypes.KindRouteBinding:
		return 24 // Event
	case ajtypes.KindRootScopeProperty:
		return 7
	case ajtypes.KindRootScopeMethod:
		return 6
	default:
		return 13
	}
}

func (s *Server) handleCompletion(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p textDocumentPositionParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	doc, ok := s.getDoc(p.TextDocument.URI)
	if !ok {
		return []completionItem{}, nil
	}
	offset := offsetFromPosition(doc.Content, p.Position)
	prefix := identifierPrefixBefore(doc.Content, offset)

	var syms []*ajtypes.Symbol
	if owner, ok := s.enclosingOwnerName(doc, offset); ok {
		syms = append(syms, s.Res.Completion(owner, prefix)...)
	}
	syms = append(syms, s.Res.CompletionServices(prefix)...)

	items := make([]completionItem, 0, len(syms))
	seen := map[string]bool{}
	for _, sym := range syms {
		if seen[sym.Name] {
			continue
		}
		seen[sym.Name] = true
		items = append(items, completionItem{Label: sym.Name, Kind: lspSymbolKind(sym.Kind)})
	}
	return items, nil
}

func identifierPrefixBefore(content []byte, offset int) string {
	start := offset
	for start > 0 {
		c := content[start-1]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '$' {
			start--
			continue
		}
		break
	}
	if start > offset || start > len(content) {
		return ""
	}
	return string(content[start:offset])
}

// enclosingOwnerName guesses the controller/component backing the
// cursor position: for a template, the RouteBinding-assigned
// controller for that file; for a JavaScript file, the DI-bearing
// construct whose registrant body the cursor sits in, found by the
// same ancestor walk the Resolver uses to gate DI visibility.
func (s *Server) enclosingOwnerName(doc *openDoc, offset int) (string, bool) {
	if doc.Language == "html" {
		return s.Index.ControllerForTemplate(doc.Path)
	}
	tree, err := syntax.ParseJS(doc.Content)
	if err != nil {
		return "", false
	}
	defer tree.Close()
	return resolver.EnclosingOwnerJS(tree, offset)
}

// --- textDocument/documentSymbol --------------------------------------------

type documentSymbolItem struct {
	Name  string   `json:"name"`
	Kind  int      `json:"kind"`
	Range lspRange `json:"range"`
}

func (s *Server) handleDocumentSymbol(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		TextDocument struct {
			URI string `json:"uri"`
		} `json:"textDocument"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	doc, ok := s.getDoc(p.TextDocument.URI)
	if !ok {
		return []documentSymbolItem{}, nil
	}
	fileID := s.Indexer.FileID(doc.Path)
	syms := s.Res.DocumentSymbol(fileID)
	out := make([]documentSymbolItem, len(syms))
	for i, sym := range syms {
		out[i] = documentSymbolItem{Name: sym.Name, Kind: lspSymbolKind(sym.Kind), Range: toLSPRange(sym.Location.Range)}
	}
	return out, nil
}

// --- textDocument/rename -----------------------------------------------------

type renameParams struct {
	textDocumentPositionParams
	NewName string `json:"newName"`
}

type workspaceEdit struct {
	Changes map[string][]textEdit `json:"changes"`
}

type textEdit struct {
	Range   lspRange `json:"range"`
	NewText string   `json:"newText"`
}

func (s *Server) handleRename(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p renameParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	cur, ok := s.cursorAt(p.textDocumentPositionParams)
	if !ok {
		return nil, nil
	}
	syms := s.Res.DefinitionSymbols(cur.Name, cur.Hint, s.Res.VisibilityFor(cur.EnclosingOwnerName, cur.EnclosingOwnerKind))
	if len(syms) == 0 {
		return nil, nil
	}

	changes := map[string][]textEdit{}
	for _, sym := range syms {
		edits, err := s.Res.RenameEdit(sym, p.NewName, func(file string) bool {
			return s.Cfg.IsReadOnly(pathutil.ToRelative(file, s.Cfg.Root))
		})
		if err != nil {
			return nil, err
		}
		for file, ranges := range edits {
			uri := pathToURI(file)
			for _, r := range ranges {
				changes[uri] = append(changes[uri], textEdit{Range: toLSPRange(r), NewText: p.NewName})
			}
		}
	}
	return workspaceEdit{Changes: changes}, nil
}

// --- textDocument/codeLens ---------------------------------------------------

type codeLens struct {
	Range lspRange `json:"range"`
	Title string   `json:"title"`
}

func (s *Server) handleCodeLens(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		TextDocument struct {
			URI string `json:"uri"`
		} `json:"textDocument"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	doc, ok := s.getDoc(p.TextDocument.URI)
	if !ok {
		return []codeLens{}, nil
	}

	var lenses []codeLens
	if doc.Language == "html" {
		for _, route := range s.Res.CodeLensForTemplate(doc.Path) {
			lenses = append(lenses, codeLens{Range: zeroRange(), Title: "routed from " + routeLabel(route)})
		}
		return emptyIfNil(lenses), nil
	}

	fileID := s.Indexer.FileID(doc.Path)
	for _, sym := range s.Res.DocumentSymbol(fileID) {
		if sym.Kind != ajtypes.KindController {
			continue
		}
		routes := s.Res.CodeLensForController(sym.Name)
		if len(routes) == 0 {
			continue
		}
		lenses = append(lenses, codeLens{Range: toLSPRange(sym.Location.Range), Title: s.routesSummary(routes)})
	}
	return emptyIfNil(lenses), nil
}

func zeroRange() lspRange { return lspRange{} }

func emptyIfNil(l []codeLens) []codeLens {
	if l == nil {
		return []codeLens{}
	}
	return l
}

func routeLabel(route *ajtypes.Symbol) string {
	if route.Route == nil {
		return route.Name
	}
	if route.Route.StateName != "" {
		return route.Route.StateName
	}
	return route.Route.Path
}

func (s *Server) routesSummary(routes []*ajtypes.Symbol) string {
	labels := make([]string, len(routes))
	for i, r := range routes {
		label := routeLabel(r)
		if r.Route != nil && r.Route.TemplateURL != "" {
			label += " (" + pathutil.ToRelative(r.Route.TemplateURL, s.Root) + ")"
		}
		labels[i] = label
	}
	return strings.Join(labels, ", ")
}

// --- textDocument/signatureHelp ------------------------------------------

type signatureHelpResult struct {
	Signatures []signatureInfo `json:"signatures"`
}

type signatureInfo struct {
	Label      string   `json:"label"`
	Parameters []string `json:"parameters"`
}

func (s *Server) handleSignatureHelp(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p textDocumentPositionParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	cur, ok := s.cursorAt(p)
	if !ok {
		return signatureHelpResult{}, nil
	}
	syms := s.Res.DefinitionSymbols(cur.Name, ajtypes.HintAny, s.Res.VisibilityFor(cur.EnclosingOwnerName, cur.EnclosingOwnerKind))
	var sigs []signatureInfo
	for _, sym := range syms {
		deps, ok := s.Res.SignatureHelp(sym)
		if !ok {
			continue
		}
		sigs = append(sigs, signatureInfo{Label: sym.Name + "(" + strings.Join(deps, ", ") + ")", Parameters: deps})
	}
	return signatureHelpResult{Signatures: sigs}, nil
}

// --- workspace/symbol --------------------------------------------------------

type workspaceSymbolParams struct {
	Query string `json:"query"`
}

type workspaceSymbolItem struct {
	Name     string      `json:"name"`
	Kind     int         `json:"kind"`
	Location lspLocation `json:"location"`
}

func (s *Server) handleWorkspaceSymbol(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p workspaceSymbolParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	syms := s.Res.WorkspaceSymbol(p.Query, 200)
	out := make([]workspaceSymbolItem, len(syms))
	for i, sym := range syms {
		out[i] = workspaceSymbolItem{Name: sym.Name, Kind: lspSymbolKind(sym.Kind), Location: toLSPLocation(sym.Location)}
	}
	return out, nil
}
