package proxy

import (
	"context"
	"errors"
	"testing"

	"github.com/standardbeagle/angularjs-lsp/internal/ajerrors"
	"github.com/standardbeagle/angularjs-lsp/internal/rpc"
)

func TestNewWithEmptyCommandIsDisabled(t *testing.T) {
	p := New("")
	if !p.Disabled() {
		t.Errorf("Proxy with empty command should be Disabled()")
	}
}

func TestForwardOnDisabledProxyReturnsProxyError(t *testing.T) {
	p := New("")

	_, err := p.Forward(context.Background(), "textDocument/definition", map[string]string{})
	if err == nil {
		t.Fatalf("expected an error from a disabled proxy")
	}

	var proxyErr *ajerrors.ProxyError
	if !errors.As(err, &proxyErr) {
		t.Errorf("expected *ajerrors.ProxyError, got %T", err)
	}
}

func TestCloseOnNeverSpawnedProxyDoesNotPanic(t *testing.T) {
	p := New("typescript-language-server --stdio")
	p.Close() // must not panic even though spawnLocked was never called
}

func TestNewWithCommandIsNotDisabledUntilSpawnFails(t *testing.T) {
	p := New("typescript-language-server --stdio")
	if p.Disabled() {
		t.Errorf("a configured command should not be Disabled() before any Forward attempt")
	}
}

func TestHandleCrashDisablesAfterSecondCrash(t *testing.T) {
	p := New("some-fallback --stdio")

	p.handleCrash(errors.New("first crash"))
	if p.Disabled() {
		t.Errorf("the first crash should attempt a respawn, not disable the proxy")
	}

	p.handleCrash(errors.New("second crash"))
	if !p.Disabled() {
		t.Errorf("a second crash should disable the proxy for the rest of the session")
	}
}

func TestHandleCrashClosesPendingChannels(t *testing.T) {
	p := New("some-fallback --stdio")

	respCh := make(chan rpc.Response, 1)
	p.mu.Lock()
	p.pending[1] = respCh
	p.mu.Unlock()

	p.handleCrash(errors.New("child died mid-request"))

	if _, stillOpen := <-respCh; stillOpen {
		t.Errorf("pending channel should have been closed, not sent a value")
	}

	p.mu.Lock()
	_, ok := p.pending[1]
	p.mu.Unlock()
	if ok {
		t.Errorf("handleCrash should clear the pending map")
	}
}
