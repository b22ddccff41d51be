package extractor

import (
	"testing"

	"github.com/standardbeagle/angularjs-lsp/internal/ajtypes"
	"github.com/standardbeagle/angularjs-lsp/internal/syntax"
)

func extract(t *testing.T, src string) *Result {
	t.Helper()
	tree, err := syntax.ParseJS([]byte(src))
	if err != nil {
		t.Fatalf("ParseJS failed: %v", err)
	}
	defer tree.Close()
	return Extract(1, "src/app.js", []byte(src), tree.Root())
}

func findSymbol(res *Result, kind ajtypes.Kind, name string) *ajtypes.Symbol {
	for _, s := range res.Symbols {
		if s.Kind == kind && s.Name == name {
			return s
		}
	}
	return nil
}

func TestExtractModuleDeclaration(t *testing.T) {
	res := extract(t, `angular.module('app', ['ngRoute', 'ngAnimate']);`)

	if len(res.Modules) != 1 {
		t.Fatalf("Modules = %v, want 1", res.Modules)
	}
	mod := res.Modules[0]
	if mod.Name != "app" || !mod.Declared {
		t.Errorf("module = %+v, want Name=app Declared=true", mod)
	}
	if len(mod.Deps) != 2 || mod.Deps[0] != "ngRoute" || mod.Deps[1] != "ngAnimate" {
		t.Errorf("module.Deps = %v, want [ngRoute ngAnimate]", mod.Deps)
	}
}

func TestExtractModuleExtensionHandle(t *testing.T) {
	res := extract(t, `angular.module('app');`)

	if len(res.Modules) != 1 {
		t.Fatalf("Modules = %v, want 1", res.Modules)
	}
	if res.Modules[0].Declared {
		t.Errorf("2-arg-less angular.module should not be Declared")
	}
	if res.Modules[0].Deps != nil {
		t.Errorf("extension handle should have nil Deps, got %v", res.Modules[0].Deps)
	}
}

func TestExtractControllerArrayDSL(t *testing.T) {
	src := `angular.module('app', []).controller('MainController', ['$scope', function($scope) {
		$scope.title = 'hello';
	}]);`
	res := extract(t, src)

	ctrl := findSymbol(res, ajtypes.KindController, "MainController")
	if ctrl == nil {
		t.Fatalf("MainController not extracted; symbols = %v", res.Symbols)
	}
	if ctrl.ModuleName != "app" {
		t.Errorf("ctrl.ModuleName = %q, want app", ctrl.ModuleName)
	}
	if len(ctrl.Deps) != 1 || ctrl.Deps[0] != "$scope" {
		t.Errorf("ctrl.Deps = %v, want [$scope]", ctrl.Deps)
	}

	prop := findSymbol(res, ajtypes.KindScopeProperty, "title")
	if prop == nil {
		t.Fatalf("$scope.title not extracted as a ScopeProperty; symbols = %v", res.Symbols)
	}
	if prop.Owner == nil || *prop.Owner != ctrl.ID {
		t.Errorf("prop.Owner = %v, want %v", prop.Owner, ctrl.ID)
	}
}

func TestExtractServiceBareFunctionDeps(t *testing.T) {
	src := `angular.module('app', []).service('UserService', function($http, $q) {
		this.fetch = function() {};
	});`
	res := extract(t, src)

	svc := findSymbol(res, ajtypes.KindService, "UserService")
	if svc == nil {
		t.Fatalf("UserService not extracted; symbols = %v", res.Symbols)
	}
	if len(svc.Deps) != 2 || svc.Deps[0] != "$http" || svc.Deps[1] != "$q" {
		t.Errorf("svc.Deps = %v, want formal parameter names [$http $q]", svc.Deps)
	}
}

func TestExtractInjectBackpatchAppliesToIdentifierRegistrant(t *testing.T) {
	src := `
	function MainController($scope) {
		$scope.title = 'hi';
	}
	MainController.$inject = ['$scope'];
	angular.module('app', []).controller('MainController', MainController);
	`
	res := extract(t, src)

	ctrl := findSymbol(res, ajtypes.KindController, "MainController")
	if ctrl == nil {
		t.Fatalf("MainController not extracted; symbols = %v", res.Symbols)
	}
	if len(ctrl.Deps) != 1 || ctrl.Deps[0] != "$scope" {
		t.Errorf("ctrl.Deps = %v, want the $inject-backpatched [$scope]", ctrl.Deps)
	}
}

func TestExtractConstantAndValue(t *testing.T) {
	src := `
	angular.module('app', []).constant('API_URL', 'https://example.com');
	angular.module('app').value('appVersion', '1.0.0');
	`
	res := extract(t, src)

	if findSymbol(res, ajtypes.KindConstant, "API_URL") == nil {
		t.Errorf("API_URL constant not extracted; symbols = %v", res.Symbols)
	}
	if findSymbol(res, ajtypes.KindValue, "appVersion") == nil {
		t.Errorf("appVersion value not extracted; symbols = %v", res.Symbols)
	}
}

func TestExtractDecoratorEmitsReferenceNotSymbol(t *testing.T) {
	src := `angular.module('app', []).decorator('$log', function($delegate) { return $delegate; });`
	res := extract(t, src)

	for _, s := range res.Symbols {
		if s.Name == "$log" {
			t.Errorf("decorator should not produce a Symbol, found %+v", s)
		}
	}

	var found bool
	for _, ref := range res.References {
		if ref.Name == "$log" && ref.Hint == ajtypes.HintService {
			found = true
		}
	}
	if !found {
		t.Errorf("decorator should emit a HintService reference to $log; references = %v", res.References)
	}
}

func TestExtractChainedRegistrants(t *testing.T) {
	src := `
	angular.module('app', [])
		.controller('MainController', function() {})
		.service('UserService', function() {});
	`
	res := extract(t, src)

	if findSymbol(res, ajtypes.KindController, "MainController") == nil {
		t.Errorf("MainController not extracted from chained registration; symbols = %v", res.Symbols)
	}
	if findSymbol(res, ajtypes.KindService, "UserService") == nil {
		t.Errorf("UserService not extracted from chained registration; symbols = %v", res.Symbols)
	}
}

func TestExtractRunBlockEmitsRootScopeMember(t *testing.T) {
	src := `angular.module('app').run(['$rootScope', function($rootScope) {
		$rootScope.currentUser = null;
		$rootScope.logout = function() {};
	}]);`
	res := extract(t, src)

	prop := findSymbol(res, ajtypes.KindRootScopeProperty, "currentUser")
	if prop == nil {
		t.Fatalf("expected a RootScopeProperty for currentUser, got %+v", res.Symbols)
	}
	method := findSymbol(res, ajtypes.KindRootScopeMethod, "logout")
	if method == nil {
		t.Fatalf("expected a RootScopeMethod for logout, got %+v", res.Symbols)
	}
}

func TestExtractNilRootReturnsEmptyResult(t *testing.T) {
	res := Extract(1, "src/empty.js", nil, nil)
	if len(res.Symbols) != 0 || len(res.Modules) != 0 || len(res.References) != 0 {
		t.Errorf("Extract with a nil root should return an empty result, got %+v", res)
	}
}
