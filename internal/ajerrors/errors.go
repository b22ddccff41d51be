// Package ajerrors defines the typed-error categories used across the
// indexer, following the teacher's category-struct-plus-Unwrap idiom.
package ajerrors

import (
	"fmt"
	"time"
)

// ErrorType names one of the categories from the error-handling design.
type ErrorType string

const (
	ErrorTypeParse      ErrorType = "parse"
	ErrorTypeExtraction ErrorType = "extraction"
	ErrorTypeIndex      ErrorType = "index"
	ErrorTypeCache      ErrorType = "cache"
	ErrorTypeProxy      ErrorType = "proxy"
	ErrorTypeProtocol   ErrorType = "protocol"
	ErrorTypeConfig     ErrorType = "config"
)

// ParseError wraps a recoverable JS/HTML parse failure. Per spec, parse
// errors are recoverable: partial results are used and this is never
// surfaced as a diagnostic; it is only logged.
type ParseError struct {
	File       string
	Line       int
	Column     int
	Underlying error
	Timestamp  time.Time
}

func NewParseError(file string, line, col int, err error) *ParseError {
	return &ParseError{File: file, Line: line, Column: col, Underlying: err, Timestamp: time.Now()}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s:%d:%d: %v", e.File, e.Line, e.Column, e.Underlying)
}

func (e *ParseError) Unwrap() error { return e.Underlying }

// IndexInvariantError signals an attempt to violate an Index invariant
// (e.g. inserting a duplicate stable id). Per spec this is a programming
// bug: fail fast, log to the LSP window channel, never crash the server.
type IndexInvariantError struct {
	Operation string
	Detail    string
}

func NewIndexInvariantError(op, detail string) *IndexInvariantError {
	return &IndexInvariantError{Operation: op, Detail: detail}
}

func (e *IndexInvariantError) Error() string {
	return fmt.Sprintf("index invariant violated during %s: %s", e.Operation, e.Detail)
}

// CacheError wraps a discardable cache I/O or format failure. Per spec,
// cache errors are discarded silently per-entry; at worst the file is
// re-indexed from source.
type CacheError struct {
	Path       string
	Operation  string
	Underlying error
}

func NewCacheError(path, op string, err error) *CacheError {
	return &CacheError{Path: path, Operation: op, Underlying: err}
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

func (e *CacheError) Unwrap() error { return e.Underlying }

// ProxyError wraps a fallback-proxy spawn/crash/timeout failure. Per
// spec, queries degrade to local-only and one automatic respawn is
// attempted per session.
type ProxyError struct {
	Operation  string
	Underlying error
}

func NewProxyError(op string, err error) *ProxyError {
	return &ProxyError{Operation: op, Underlying: err}
}

func (e *ProxyError) Error() string {
	return fmt.Sprintf("proxy %s failed: %v", e.Operation, e.Underlying)
}

func (e *ProxyError) Unwrap() error { return e.Underlying }

// ConfigError wraps an ajsconfig.json load/validate failure.
type ConfigError struct {
	Path       string
	Underlying error
}

func NewConfigError(path string, err error) *ConfigError {
	return &ConfigError{Path: path, Underlying: err}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Underlying)
}

func (e *ConfigError) Unwrap() error { return e.Underlying }
