// Package ajtypes defines the data model shared by every layer of the
// AngularJS indexer: Symbol, Reference, Kind, Location and the small
// identifier types used to address them.
package ajtypes

import "fmt"

// FileID identifies a workspace file. Stable for the lifetime of a
// process; re-assigned across restarts (the cache keys on content hash,
// not FileID).
type FileID uint32

// SymbolID is a process-stable identifier for a Symbol. It is derived
// from the owning FileID and a per-file sequence number so that it never
// collides across files and is cheap to regenerate on re-index.
type SymbolID struct {
	File FileID
	Seq  uint32
}

func (id SymbolID) String() string {
	return fmt.Sprintf("sym:%d:%d", id.File, id.Seq)
}

// Kind enumerates every AngularJS construct and scope-member flavor the
// Extractor and Template Analyzer recognize.
type Kind int

const (
	KindUnknown Kind = iota
	KindModule
	KindController
	KindService
	KindFactory
	KindDirective
	KindComponent
	KindFilter
	KindProvider
	KindConstant
	KindValue
	KindScopeProperty
	KindScopeMethod
	KindControllerAsProperty
	KindControllerAsMethod
	KindRootScopeProperty
	KindRootScopeMethod
	KindRouteBinding
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "Module"
	case KindController:
		return "Controller"
	case KindService:
		return "Service"
	case KindFactory:
		return "Factory"
	case KindDirective:
		return "Directive"
	case KindComponent:
		return "Component"
	case KindFilter:
		return "Filter"
	case KindProvider:
		return "Provider"
	case KindConstant:
		return "Constant"
	case KindValue:
		return "Value"
	case KindScopeProperty:
		return "ScopeProperty"
	case KindScopeMethod:
		return "ScopeMethod"
	case KindControllerAsProperty:
		return "ControllerAsProperty"
	case KindControllerAsMethod:
		return "ControllerAsMethod"
	case KindRootScopeProperty:
		return "RootScopeProperty"
	case KindRootScopeMethod:
		return "RootScopeMethod"
	case KindRouteBinding:
		return "RouteBinding"
	default:
		return "Unknown"
	}
}

// IsDIBearing reports whether a construct of this kind carries a
// dependency-injection list (the registrant argument in
// angular.module(...).<kind>(name, [...])).
func (k Kind) IsDIBearing() bool {
	switch k {
	case KindController, KindService, KindFactory, KindDirective, KindComponent, KindFilter, KindProvider:
		return true
	default:
		return false
	}
}

// IsScopeMember reports whether this kind is a $scope, controller-as or
// $rootScope member. Scope and controller-as members carry a non-nil
// Owner pointing at their defining construct; $rootScope members have
// no Owner.
func (k Kind) IsScopeMember() bool {
	switch k {
	case KindScopeProperty, KindScopeMethod, KindControllerAsProperty, KindControllerAsMethod, KindRootScopeProperty, KindRootScopeMethod:
		return true
	default:
		return false
	}
}

// Position is a zero-based line/column pair, matching LSP convention.
type Position struct {
	Line      int
	Character int
}

// Range is a half-open [Start,End) textual span with both byte offsets
// (for Syntax-layer cursor queries) and line/column (for LSP).
type Range struct {
	StartByte int
	EndByte   int
	Start     Position
	End       Position
}

func (r Range) Contains(byteOffset int) bool {
	return byteOffset >= r.StartByte && byteOffset < r.EndByte
}

// Location pins a Range to a file.
type Location struct {
	File  string
	Range Range
}

// DirectiveMetadata carries the extra facts the Resolver needs for a
// Directive symbol.
type DirectiveMetadata struct {
	Restrict   string // e.g. "AE"
	ScopeShape string // "", "inherit" (scope:true), or "isolate" (scope:{...})
}

// ComponentMetadata carries the extra facts the Resolver needs for a
// Component symbol.
type ComponentMetadata struct {
	Bindings      map[string]string // name -> binding mode ("=", "@", "&", "<")
	ControllerAs  string            // defaults to "$ctrl"
	TemplateURL   string
	InlineControl string // name of an inline controller symbol, if any
}

// RouteMetadata carries the controller/template link for a RouteBinding.
type RouteMetadata struct {
	ControllerName string
	TemplateURL    string
	StateName      string // for $stateProvider; empty for $routeProvider
	Path           string // for $routeProvider .when(path, ...)
}

// Symbol is one recognized AngularJS construct or scope/this member.
type Symbol struct {
	ID         SymbolID
	Kind       Kind
	Name       string
	Owner      *SymbolID // module name holder is stored in ModuleName instead; Owner is for scope members
	ModuleName string    // top-level constructs: owning module name
	Location   Location
	DefRange   Range // narrow name-only range, for rename/hover anchoring
	Deps       []string
	Directive  *DirectiveMetadata
	Component  *ComponentMetadata
	Route      *RouteMetadata
	DocComment string // JSDoc block immediately preceding the definition, if any
}

// ReferenceKindHint narrows what kinds of Symbol a Reference may resolve
// to, used to disambiguate same-named symbols of different kinds.
type ReferenceKindHint int

const (
	HintAny ReferenceKindHint = iota
	HintService
	HintFilter
	HintScopeMember
	HintController
)

// Reference is a textual use of a name that may resolve to a Symbol.
type Reference struct {
	From     SymbolID // enclosing controller/service/component/template owner; zero value if top-level
	FromFile FileID
	Name     string
	Hint     ReferenceKindHint
	Location Location
}

// Severity mirrors the LSP DiagnosticSeverity enum.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInformation
	SeverityHint
)

// Diagnostic is a template-analysis or cross-check finding.
type Diagnostic struct {
	Location Location
	Severity Severity
	Message  string
	Code     string
}

// Module records one `angular.module(name, [deps])` declaration or
// `angular.module(name)` extension. Per spec, multiple declarations with
// differing dep lists for the same name are never merged; each is kept
// as a distinct Module record.
type Module struct {
	Name     string
	Deps     []string // nil for an extension handle (no array argument)
	Declared bool      // true if this record came from the 2-arg form
	Location Location
}

// FileRecord describes per-file bookkeeping: path, language, content
// hash and the symbols and references a file contributed. ajindex and
// ajcache keep their own per-file records and do not use this type.
type FileRecord struct {
	Path       string
	Language   string // "javascript" | "html"
	ContentSum uint64 // xxhash64 of the last-indexed content
	Symbols    []SymbolID
	References []int // reference indices
}
