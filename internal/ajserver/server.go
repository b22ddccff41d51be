// Package ajserver wires the Index, Cache, Resolver, fallback Proxy and
// RPC transport into the actual LSP method handlers: initialize,
// textDocument/* document sync and language features, workspace/symbol,
// and the angularjs-lsp custom commands.
package ajserver

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/standardbeagle/angularjs-lsp/internal/ajconfig"
	"github.com/standardbeagle/angularjs-lsp/internal/ajindex"
	"github.com/standardbeagle/angularjs-lsp/internal/ajtypes"
	"github.com/standardbeagle/angularjs-lsp/internal/proxy"
	"github.com/standardbeagle/angularjs-lsp/internal/resolver"
	"github.com/standardbeagle/angularjs-lsp/internal/rpc"
	"github.com/standardbeagle/angularjs-lsp/internal/syntax"
	"github.com/standardbeagle/angularjs-lsp/internal/workspace"
)

// openDoc is one editor-held buffer, kept separately from disk content
// so didChange can re-analyze without a round-trip through the
// filesystem.
type openDoc struct {
	Path     string
	Language string
	Content  []byte
}

// Server ties every component together behind the rpc.Server transport.
type Server struct {
	Root    string
	Cfg     ajconfig.Config
	Index   *ajindex.Index
	Indexer *workspace.Indexer
	Watcher *workspace.Watcher
	Res     *resolver.Resolver
	Proxy   *proxy.Proxy

	rpc *rpc.Server
	log *log.Logger

	mu   sync.RWMutex
	docs map[string]*openDoc
}

// New constructs a Server. Callers still need to call Serve to start
// reading from conn.
func New(root string, cfg ajconfig.Config, idx *ajindex.Index, indexer *workspace.Indexer, px *proxy.Proxy, conn *rpc.Conn) *Server {
	s := &Server{
		Root:    root,
		Cfg:     cfg,
		Index:   idx,
		Indexer: indexer,
		Res:     resolver.New(idx),
		Proxy:   px,
		rpc:     rpc.NewServer(conn),
		log:     log.New(os.Stderr, "ajserver: ", log.LstdFlags),
		docs:    map[string]*openDoc{},
	}
	s.registerHandlers()
	return s
}

// Serve runs the request/notification dispatch loop until the client
// disconnects.
func (s *Server) Serve(ctx context.Context) error {
	return s.rpc.Serve(ctx)
}

func (s *Server) registerHandlers() {
	s.rpc.HandleRequest("initialize", s.handleInitialize)
	s.rpc.HandleRequest("shutdown", s.handleShutdown)
	s.rpc.HandleNotification("initialized", func(json.RawMessage) {})
	s.rpc.HandleNotification("exit", func(json.RawMessage) { os.Exit(0) })

	s.rpc.HandleNotification("textDocument/didOpen", s.handleDidOpen)
	s.rpc.HandleNotification("textDocument/didChange", s.handleDidChange)
	s.rpc.HandleNotification("textDocument/didClose", s.handleDidClose)

	s.rpc.HandleRequest("textDocument/definition", s.handleDefinition)
	s.rpc.HandleRequest("textDocument/references", s.handleReferences)
	s.rpc.HandleRequest("textDocument/hover", s.handleHover)
	s.rpc.HandleRequest("textDocument/completion", s.handleCompletion)
	s.rpc.HandleRequest("textDocument/documentSymbol", s.handleDocumentSymbol)
	s.rpc.HandleRequest("textDocument/rename", s.handleRename)
	s.rpc.HandleRequest("textDocument/codeLens", s.handleCodeLens)
	s.rpc.HandleRequest("textDocument/signatureHelp", s.handleSignatureHelp)
	s.rpc.HandleRequest("workspace/symbol", s.handleWorkspaceSymbol)

	s.rpc.HandleRequest("angularjs-lsp/refreshIndex", s.handleRefreshIndex)
}

// --- URI helpers -----------------------------------------------------

func uriToPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

func pathToURI(path string) string {
	if strings.HasPrefix(path, "file://") {
		return path
	}
	return "file://" + path
}

func languageForURI(uri string) string {
	switch strings.ToLower(filepath.Ext(uriToPath(uri))) {
	case ".html", ".htm":
		return "html"
	default:
		return "javascript"
	}
}

// --- document store ----------------------------------------------------

func (s *Server) putDoc(uri, language string, content []byte) {
	s.mu.Lock()
	s.docs[uri] = &openDoc{Path: uriToPath(uri), Language: language, Content: content}
	s.mu.Unlock()
}

func (s *Server) getDoc(uri string) (*openDoc, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[uri]
	return d, ok
}

func (s *Server) dropDoc(uri string) {
	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()
}

// --- lifecycle ---------------------------------------------------------

type initializeResult struct {
	Capabilities serverCapabilities `json:"capabilities"`
}

type serverCapabilities struct {
	TextDocumentSync   int                    `json:"textDocumentSync"`
	DefinitionProvider bool                   `json:"definitionProvider"`
	ReferencesProvider bool                   `json:"referencesProvider"`
	HoverProvider      bool                   `json:"hoverProvider"`
	CompletionProvider map[string]interface{} `json:"completionProvider"`
	DocumentSymbol     bool                   `json:"documentSymbolProvider"`
	RenameProvider     bool                   `json:"renameProvider"`
	CodeLensProvider   map[string]interface{} `json:"codeLensProvider"`
	SignatureHelp      map[string]interface{} `json:"signatureHelpProvider"`
	WorkspaceSymbol    bool                   `json:"workspaceSymbolProvider"`
}

func (s *Server) handleInitialize(ctx context.Context, params json.RawMessage) (interface{}, error) {
	go func() {
		if err := s.Indexer.IndexAll(ctx); err != nil {
			s.log.Printf("initial index: %v", err)
		}
		if s.Watcher != nil {
			if err := s.Watcher.Start(s.Root); err != nil {
				s.log.Printf("watcher start: %v", err)
			}
		}
	}()

	return initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync:   1, // full: each change carries the whole document text
			DefinitionProvider: true,
			ReferencesProvider: true,
			HoverProvider:      true,
			CompletionProvider: map[string]interface{}{"triggerCharacters": []string{".", "'", "\""}},
			DocumentSymbol:     true,
			RenameProvider:     true,
			CodeLensProvider:   map[string]interface{}{"resolveProvider": false},
			SignatureHelp:      map[string]interface{}{"triggerCharacters": []string{"(", ","}},
			WorkspaceSymbol:    true,
		},
	}, nil
}

func (s *Server) handleShutdown(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if s.Watcher != nil {
		s.Watcher.Stop()
	}
	if s.Proxy != nil {
		s.Proxy.Close()
	}
	return nil, nil
}

// --- document sync -------------------------------------------------------

type didOpenParams struct {
	TextDocument struct {
		URI     string `json:"uri"`
		Text    string `json:"text"`
		Version int    `json:"version"`
	} `json:"textDocument"`
}

func (s *Server) handleDidOpen(raw json.RawMessage) {
	var p didOpenParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	s.reindexAndPublish(p.TextDocument.URI, []byte(p.TextDocument.Text))
}

type didChangeParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
	ContentChanges []struct {
		Text string `json:"text"`
	} `json:"contentChanges"`
}

func (s *Server) handleDidChange(raw json.RawMessage) {
	var p didChangeParams
	if err := json.Unmarshal(raw, &p); err != nil || len(p.ContentChanges) == 0 {
		return
	}
	// Full-document sync: the last change entry carries the whole text.
	text := p.ContentChanges[len(p.ContentChanges)-1].Text
	s.reindexAndPublish(p.TextDocument.URI, []byte(text))
}

func (s *Server) reindexAndPublish(uri string, content []byte) {
	lang := languageForURI(uri)
	s.putDoc(uri, lang, content)
	diags := s.Indexer.IndexContent(uriToPath(uri), lang, content)
	s.publishDiagnostics(uri, diags)
}

func (s *Server) publishDiagnostics(uri string, diags []*ajtypes.Diagnostic) {
	out := make([]lspDiagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, toLSPDiagnostic(d))
	}
	_ = s.rpc.Notify("textDocument/publishDiagnostics", map[string]interface{}{
		"uri":         uri,
		"diagnostics": out,
	})
}

type didCloseParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
}

func (s *Server) handleDidClose(raw json.RawMessage) {
	var p didCloseParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	s.dropDoc(p.TextDocument.URI)
}

// --- custom commands -----------------------------------------------------

func (s *Server) handleRefreshIndex(ctx context.Context, params json.RawMessage) (interface{}, error) {
	deadline, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	if err := s.Indexer.IndexAll(deadline); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

// --- shared lookups -------------------------------------------------------

func (s *Server) jsTreeFor(uri string) (*syntax.JSTree, bool) {
	doc, ok := s.getDoc(uri)
	if !ok {
		return nil, false
	}
	tree, err := syntax.ParseJS(doc.Content)
	if err != nil {
		return nil, false
	}
	return tree, true
}

func (s *Server) htmlTreeFor(uri string) (*syntax.HTMLTree, bool) {
	doc, ok := s.getDoc(uri)
	if !ok {
		return nil, false
	}
	tree, err := syntax.ParseHTML(doc.Content)
	if err != nil {
		return nil, false
	}
	return tree, true
}
