package templateanalyzer

import (
	"testing"

	"github.com/standardbeagle/angularjs-lsp/internal/ajtypes"
	"github.com/standardbeagle/angularjs-lsp/internal/syntax"
)

type fakeLookup struct {
	controllerForTemplate string
	hasController         bool
	scopeMembers          map[string]map[string]bool
	filters               map[string]bool
}

func (f *fakeLookup) ControllerForTemplate(string) (string, bool) {
	return f.controllerForTemplate, f.hasController
}

func (f *fakeLookup) HasScopeMember(owner, name string) bool {
	return f.scopeMembers[owner] != nil && f.scopeMembers[owner][name]
}

func (f *fakeLookup) HasFilter(name string) bool {
	return f.filters[name]
}

func defaultOptions() Options {
	return Options{StartSymbol: "{{", EndSymbol: "}}", DiagnosticsEnabled: true, Severity: ajtypes.SeverityWarning}
}

func analyze(t *testing.T, html string, opts Options, lookup ScopeLookup) *Result {
	t.Helper()
	tree, err := syntax.ParseHTML([]byte(html))
	if err != nil {
		t.Fatalf("ParseHTML failed: %v", err)
	}
	return Analyze(1, "views/home.html", tree, opts, lookup)
}

func TestInterpolationReferenceAndDiagnostic(t *testing.T) {
	lookup := &fakeLookup{
		controllerForTemplate: "MainController",
		hasController:         true,
		scopeMembers:          map[string]map[string]bool{"MainController": {"title": true}},
	}
	res := analyze(t, `<span>{{title}}</span>`, defaultOptions(), lookup)

	if len(res.References) != 1 || res.References[0].Name != "title" {
		t.Fatalf("References = %v, want a single reference to title", res.References)
	}
	if res.References[0].Hint != ajtypes.HintScopeMember {
		t.Errorf("Hint = %v, want HintScopeMember", res.References[0].Hint)
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("title is a known scope member; expected no diagnostics, got %v", res.Diagnostics)
	}
}

func TestInterpolationUndefinedScopeMemberDiagnostic(t *testing.T) {
	lookup := &fakeLookup{
		controllerForTemplate: "MainController",
		hasController:         true,
		scopeMembers:          map[string]map[string]bool{"MainController": {"title": true}},
	}
	res := analyze(t, `<span>{{missingThing}}</span>`, defaultOptions(), lookup)

	if len(res.Diagnostics) != 1 {
		t.Fatalf("Diagnostics = %v, want one undefined-scope-member diagnostic", res.Diagnostics)
	}
	if res.Diagnostics[0].Code != "undefined-scope-member" {
		t.Errorf("Diagnostic.Code = %q, want undefined-scope-member", res.Diagnostics[0].Code)
	}
}

func TestGloballyKnownIdentifiersNeverDiagnosed(t *testing.T) {
	lookup := &fakeLookup{controllerForTemplate: "MainController", hasController: true}
	res := analyze(t, `<span>{{$rootScope.count}}</span>`, defaultOptions(), lookup)

	if len(res.Diagnostics) != 0 {
		t.Errorf("$rootScope is globally known; expected no diagnostics, got %v", res.Diagnostics)
	}
}

func TestNgControllerIntroducesOwner(t *testing.T) {
	lookup := &fakeLookup{
		scopeMembers: map[string]map[string]bool{"OtherController": {"name": true}},
	}
	res := analyze(t, `<div ng-controller="OtherController">{{name}}</div>`, defaultOptions(), lookup)

	if len(res.Diagnostics) != 0 {
		t.Errorf("name is a scope member of the ng-controller owner; expected no diagnostics, got %v", res.Diagnostics)
	}
}

func TestNgControllerAsAliasResolvesMemberNotAlias(t *testing.T) {
	lookup := &fakeLookup{
		scopeMembers: map[string]map[string]bool{"MainController": {"title": true}},
	}
	res := analyze(t, `<div ng-controller="MainController as vm">{{vm.title}}</div>`, defaultOptions(), lookup)

	if len(res.Diagnostics) != 0 {
		t.Errorf("vm.title should resolve against the real member title, got %v", res.Diagnostics)
	}
	if len(res.References) != 1 || res.References[0].Name != "title" {
		t.Errorf("References = %v, want a reference to the real member title, not the alias vm", res.References)
	}
}

func TestNgControllerAsAliasDiagnosesUndefinedMember(t *testing.T) {
	lookup := &fakeLookup{
		scopeMembers: map[string]map[string]bool{"MainController": {"title": true}},
	}
	res := analyze(t, `<div ng-controller="MainController as vm">{{vm.bogusProp}}</div>`, defaultOptions(), lookup)

	if len(res.Diagnostics) != 1 {
		t.Fatalf("vm.bogusProp is not a real member of MainController; want one diagnostic, got %v", res.Diagnostics)
	}
	if res.Diagnostics[0].Code != "undefined-scope-member" {
		t.Errorf("Diagnostic.Code = %q, want undefined-scope-member", res.Diagnostics[0].Code)
	}
}

func TestNgControllerAsAliasAloneIsNotDiagnosed(t *testing.T) {
	lookup := &fakeLookup{}
	res := analyze(t, `<div ng-controller="MainController as vm">{{vm}}</div>`, defaultOptions(), lookup)

	if len(res.Diagnostics) != 0 {
		t.Errorf("the alias itself is always in scope; expected no diagnostics, got %v", res.Diagnostics)
	}
	if len(res.References) != 1 || res.References[0].Name != "vm" {
		t.Errorf("References = %v, want a reference to vm", res.References)
	}
}

func TestNgRepeatIntroducesLocals(t *testing.T) {
	lookup := &fakeLookup{
		controllerForTemplate: "MainController",
		hasController:         true,
		scopeMembers:          map[string]map[string]bool{"MainController": {"items": true}},
	}
	res := analyze(t, `<li ng-repeat="item in items">{{item.name}}</li>`, defaultOptions(), lookup)

	if len(res.Diagnostics) != 0 {
		t.Errorf("item is an ng-repeat local; expected no diagnostics, got %v", res.Diagnostics)
	}

	var sawItemsRef bool
	for _, ref := range res.References {
		if ref.Name == "items" {
			sawItemsRef = true
		}
	}
	if !sawItemsRef {
		t.Errorf("expected a reference to the items collection head identifier, got %v", res.References)
	}
}

func TestFilterReferenceOnlyWhenKnown(t *testing.T) {
	lookup := &fakeLookup{
		controllerForTemplate: "MainController",
		hasController:         true,
		scopeMembers:          map[string]map[string]bool{"MainController": {"amount": true}},
		filters:               map[string]bool{"currency": true},
	}
	res := analyze(t, `<span>{{amount | currency}}</span>`, defaultOptions(), lookup)

	var sawFilterRef bool
	for _, ref := range res.References {
		if ref.Name == "currency" && ref.Hint == ajtypes.HintFilter {
			sawFilterRef = true
		}
	}
	if !sawFilterRef {
		t.Errorf("expected a HintFilter reference to currency, got %v", res.References)
	}
}

func TestNgClickExpressionReference(t *testing.T) {
	lookup := &fakeLookup{
		controllerForTemplate: "MainController",
		hasController:         true,
		scopeMembers:          map[string]map[string]bool{"MainController": {"save": true}},
	}
	res := analyze(t, `<button ng-click="save()">Save</button>`, defaultOptions(), lookup)

	var sawSaveRef bool
	for _, ref := range res.References {
		if ref.Name == "save" {
			sawSaveRef = true
		}
	}
	if !sawSaveRef {
		t.Errorf("expected a reference to save from ng-click, got %v", res.References)
	}
}

func TestDiagnosticsDisabledProducesNoDiagnostics(t *testing.T) {
	opts := defaultOptions()
	opts.DiagnosticsEnabled = false
	lookup := &fakeLookup{}

	res := analyze(t, `<span>{{totallyUndefined}}</span>`, opts, lookup)
	if len(res.Diagnostics) != 0 {
		t.Errorf("diagnostics disabled; expected none, got %v", res.Diagnostics)
	}
}

func TestCustomInterpolationDelimiters(t *testing.T) {
	opts := defaultOptions()
	opts.StartSymbol = "[["
	opts.EndSymbol = "]]"
	lookup := &fakeLookup{
		controllerForTemplate: "MainController",
		hasController:         true,
		scopeMembers:          map[string]map[string]bool{"MainController": {"title": true}},
	}
	res := analyze(t, `<span>[[title]]</span>`, opts, lookup)

	if len(res.References) != 1 || res.References[0].Name != "title" {
		t.Errorf("References = %v, want a single reference to title using custom delimiters", res.References)
	}
}
