// Package proxy runs the fallback language server (typescript-language-server
// or whatever ajsconfig.json's fallback.command names) as a child process
// and forwards queries the local Resolver cannot answer — plain
// JavaScript/TypeScript questions with no AngularJS-specific meaning.
// Spawned lazily on first use; one automatic respawn is attempted after
// a crash, after which the proxy disables itself for the rest of the
// session and every query degrades to local-only.
package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/standardbeagle/angularjs-lsp/internal/ajerrors"
	"github.com/standardbeagle/angularjs-lsp/internal/rpc"
)

// DefaultTimeout bounds how long Forward waits for the child process to
// answer before treating the request as failed.
const DefaultTimeout = 5 * time.Second

// Proxy lazily owns one child process speaking the LSP base protocol
// over its stdin/stdout.
type Proxy struct {
	command string

	mu        sync.Mutex
	cmd       *exec.Cmd
	conn      *rpc.Conn
	started   bool
	respawned bool
	disabled  bool

	nextID  int64
	pending map[int64]chan rpc.Response

	log *log.Logger
}

// New creates a Proxy that will spawn command on first Forward call.
// An empty command disables the proxy permanently (no fallback
// configured).
func New(command string) *Proxy {
	p := &Proxy{
		command: command,
		pending: map[int64]chan rpc.Response{},
		log:     log.New(os.Stderr, "proxy: ", log.LstdFlags),
	}
	if command == "" {
		p.disabled = true
	}
	return p
}

// Disabled reports whether the proxy will never attempt to spawn or
// forward — no fallback.command is configured, a spawn attempt failed,
// or the one permitted respawn has already been used up after a crash.
func (p *Proxy) Disabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disabled
}

// Forward sends an LSP request to the fallback process and returns its
// raw result, or an *ajerrors.ProxyError if the proxy is disabled, the
// process cannot be spawned, the process exits before responding, or
// the request times out.
func (p *Proxy) Forward(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	p.mu.Lock()
	if p.disabled {
		p.mu.Unlock()
		return nil, ajerrors.NewProxyError(method, fmt.Errorf("fallback proxy disabled"))
	}
	if !p.started {
		if err := p.spawnLocked(); err != nil {
			p.disabled = true
			p.mu.Unlock()
			return nil, ajerrors.NewProxyError(method, err)
		}
	}
	id := atomic.AddInt64(&p.nextID, 1)
	respCh := make(chan rpc.Response, 1)
	p.pending[id] = respCh
	conn := p.conn
	p.mu.Unlock()

	idJSON, _ := json.Marshal(id)
	req := rpc.Request{JSONRPC: rpc.Version, ID: idJSON, Method: method}
	if raw, err := json.Marshal(params); err == nil {
		req.Params = raw
	}

	if err := conn.WriteMessage(req); err != nil {
		p.handleCrash(err)
		return nil, ajerrors.NewProxyError(method, err)
	}

	timeout := DefaultTimeout
	select {
	case <-ctx.Done():
		p.forget(id)
		return nil, ajerrors.NewProxyError(method, ctx.Err())
	case <-time.After(timeout):
		p.forget(id)
		return nil, ajerrors.NewProxyError(method, fmt.Errorf("timed out after %s", timeout))
	case resp, ok := <-respCh:
		if !ok {
			return nil, ajerrors.NewProxyError(method, fmt.Errorf("fallback process exited before responding"))
		}
		if resp.Error != nil {
			return nil, ajerrors.NewProxyError(method, fmt.Errorf("%s (code %d)", resp.Error.Message, resp.Error.Code))
		}
		raw, err := json.Marshal(resp.Result)
		if err != nil {
			return nil, ajerrors.NewProxyError(method, err)
		}
		return raw, nil
	}
}

func (p *Proxy) forget(id int64) {
	p.mu.Lock()
	delete(p.pending, id)
	p.mu.Unlock()
}

// spawnLocked starts the child process and its read loop. Callers must
// hold p.mu.
func (p *Proxy) spawnLocked() error {
	cmd := exec.Command("sh", "-c", p.command)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return err
	}

	p.cmd = cmd
	p.conn = rpc.NewConn(stdout, stdin)
	p.started = true
	go p.readLoop()
	return nil
}

func (p *Proxy) readLoop() {
	for {
		raw, err := p.conn.ReadMessage()
		if err != nil {
			p.handleCrash(err)
			return
		}
		var resp rpc.Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			continue
		}
		if len(resp.ID) == 0 {
			continue // notification from the fallback server; nothing to correlate
		}
		id, err := strconv.ParseInt(string(resp.ID), 10, 64)
		if err != nil {
			continue
		}
		p.mu.Lock()
		ch, ok := p.pending[id]
		delete(p.pending, id)
		p.mu.Unlock()
		if ok {
			select {
			case ch <- resp:
			default:
			}
		}
	}
}

// handleCrash reacts to a dead child process: the first crash attempts
// one respawn on the next Forward call, a second crash disables the
// proxy for the rest of the session.
func (p *Proxy) handleCrash(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log.Printf("fallback process error: %v", err)
	p.started = false
	for id, ch := range p.pending {
		close(ch)
		delete(p.pending, id)
	}
	if p.respawned {
		p.disabled = true
		p.log.Printf("fallback process crashed twice, disabling for this session")
		return
	}
	p.respawned = true
}

// Close terminates the child process, if running.
func (p *Proxy) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}
