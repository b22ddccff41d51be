package ajindex

import (
	"testing"

	"github.com/standardbeagle/angularjs-lsp/internal/ajtypes"
)

const fileA ajtypes.FileID = 1
const fileB ajtypes.FileID = 2

func sym(file ajtypes.FileID, seq uint32, kind ajtypes.Kind, name string) *ajtypes.Symbol {
	return &ajtypes.Symbol{
		ID:       ajtypes.SymbolID{File: file, Seq: seq},
		Kind:     kind,
		Name:     name,
		Location: ajtypes.Location{File: "src/app.js"},
	}
}

func TestReplaceFileInsertsAndLooksUp(t *testing.T) {
	idx := New()
	ctrl := sym(fileA, 1, ajtypes.KindController, "MainController")

	if err := idx.ReplaceFile(fileA, "src/app.js", []*ajtypes.Symbol{ctrl}, nil, nil); err != nil {
		t.Fatalf("ReplaceFile failed: %v", err)
	}

	found := idx.ByNameAndKind("MainController", ajtypes.KindController)
	if len(found) != 1 || found[0].ID != ctrl.ID {
		t.Errorf("ByNameAndKind = %v, want [%v]", found, ctrl)
	}

	byID, ok := idx.BySymbolID(ctrl.ID)
	if !ok || byID.Name != "MainController" {
		t.Errorf("BySymbolID miss for %v", ctrl.ID)
	}

	byFile := idx.ByFile(fileA)
	if len(byFile) != 1 {
		t.Errorf("ByFile(fileA) = %v, want 1 symbol", byFile)
	}
}

func TestReplaceFileRejectsDuplicateID(t *testing.T) {
	idx := New()
	id := ajtypes.SymbolID{File: fileA, Seq: 1}
	a := &ajtypes.Symbol{ID: id, Kind: ajtypes.KindController, Name: "A"}
	b := &ajtypes.Symbol{ID: id, Kind: ajtypes.KindController, Name: "B"}

	err := idx.ReplaceFile(fileA, "src/app.js", []*ajtypes.Symbol{a, b}, nil, nil)
	if err == nil {
		t.Fatalf("expected an error for duplicate symbol id, got nil")
	}
}

func TestReplaceFileIsAtomicPerFile(t *testing.T) {
	idx := New()
	v1 := sym(fileA, 1, ajtypes.KindController, "MainController")
	if err := idx.ReplaceFile(fileA, "src/app.js", []*ajtypes.Symbol{v1}, nil, nil); err != nil {
		t.Fatalf("initial ReplaceFile failed: %v", err)
	}

	v2 := sym(fileA, 1, ajtypes.KindController, "RenamedController")
	if err := idx.ReplaceFile(fileA, "src/app.js", []*ajtypes.Symbol{v2}, nil, nil); err != nil {
		t.Fatalf("second ReplaceFile failed: %v", err)
	}

	if got := idx.ByNameAndKind("MainController", ajtypes.KindController); len(got) != 0 {
		t.Errorf("stale symbol MainController still indexed: %v", got)
	}
	if got := idx.ByNameAndKind("RenamedController", ajtypes.KindController); len(got) != 1 {
		t.Errorf("new symbol RenamedController not indexed: %v", got)
	}
}

func TestRemoveFile(t *testing.T) {
	idx := New()
	c := sym(fileA, 1, ajtypes.KindController, "MainController")
	if err := idx.ReplaceFile(fileA, "src/app.js", []*ajtypes.Symbol{c}, nil, nil); err != nil {
		t.Fatalf("ReplaceFile failed: %v", err)
	}

	idx.RemoveFile(fileA)

	if got := idx.ByFile(fileA); got != nil {
		t.Errorf("ByFile after RemoveFile = %v, want nil", got)
	}
	if _, ok := idx.BySymbolID(c.ID); ok {
		t.Errorf("symbol still resolvable after RemoveFile")
	}
}

func TestByOwnerAndScopeMembers(t *testing.T) {
	idx := New()
	ctrl := sym(fileA, 1, ajtypes.KindController, "MainController")
	ownerID := ctrl.ID
	prop := sym(fileA, 2, ajtypes.KindScopeProperty, "title")
	prop.Owner = &ownerID

	if err := idx.ReplaceFile(fileA, "src/app.js", []*ajtypes.Symbol{ctrl, prop}, nil, nil); err != nil {
		t.Fatalf("ReplaceFile failed: %v", err)
	}

	children := idx.ByOwner(ownerID)
	if len(children) != 1 || children[0].Name != "title" {
		t.Errorf("ByOwner(%v) = %v, want [title]", ownerID, children)
	}

	if !idx.HasScopeMember("MainController", "title") {
		t.Errorf("HasScopeMember(MainController, title) = false, want true")
	}
	if idx.HasScopeMember("MainController", "missing") {
		t.Errorf("HasScopeMember(MainController, missing) = true, want false")
	}
}

func TestModulesAreNeverMerged(t *testing.T) {
	idx := New()
	m1 := ajtypes.Module{Name: "app", Deps: []string{"ngRoute"}, Declared: true, Location: ajtypes.Location{File: "src/app.js"}}
	if err := idx.ReplaceFile(fileA, "src/app.js", nil, nil, []ajtypes.Module{m1}); err != nil {
		t.Fatalf("ReplaceFile failed: %v", err)
	}

	m2 := ajtypes.Module{Name: "app", Deps: []string{"ngAnimate"}, Declared: true, Location: ajtypes.Location{File: "src/extra.js"}}
	if err := idx.ReplaceFile(fileB, "src/extra.js", nil, nil, []ajtypes.Module{m2}); err != nil {
		t.Fatalf("second ReplaceFile failed: %v", err)
	}

	mods := idx.Modules()
	if len(mods) != 2 {
		t.Fatalf("Modules() = %v, want 2 distinct declarations kept as-is", mods)
	}
}

func TestRouteBindingsBothDirections(t *testing.T) {
	idx := New()
	route := sym(fileA, 1, ajtypes.KindRouteBinding, "/home")
	route.Route = &ajtypes.RouteMetadata{
		ControllerName: "MainController",
		TemplateURL:    "views/home.html",
		Path:           "/home",
	}

	if err := idx.ReplaceFile(fileA, "src/routes.js", []*ajtypes.Symbol{route}, nil, nil); err != nil {
		t.Fatalf("ReplaceFile failed: %v", err)
	}

	byCtrl := idx.RouteBindingsForController("MainController")
	if len(byCtrl) != 1 {
		t.Errorf("RouteBindingsForController = %v, want 1", byCtrl)
	}

	byTmpl := idx.RouteBindingsForTemplate("views/home.html")
	if len(byTmpl) != 1 {
		t.Errorf("RouteBindingsForTemplate = %v, want 1", byTmpl)
	}

	ctrlName, ok := idx.ControllerForTemplate("views/home.html")
	if !ok || ctrlName != "MainController" {
		t.Errorf("ControllerForTemplate = (%q, %v), want (MainController, true)", ctrlName, ok)
	}
}

func TestReferencesOfHintFiltering(t *testing.T) {
	idx := New()
	svc := sym(fileA, 1, ajtypes.KindService, "UserService")
	ctrl := sym(fileA, 2, ajtypes.KindController, "UserService") // same name, different kind
	refs := []*ajtypes.Reference{
		{Name: "UserService", Hint: ajtypes.HintService, Location: ajtypes.Location{File: "src/app.js"}},
		{Name: "UserService", Hint: ajtypes.HintController, Location: ajtypes.Location{File: "src/app.js"}},
		{Name: "UserService", Hint: ajtypes.HintAny, Location: ajtypes.Location{File: "src/app.js"}},
	}

	if err := idx.ReplaceFile(fileA, "src/app.js", []*ajtypes.Symbol{svc, ctrl}, refs, nil); err != nil {
		t.Fatalf("ReplaceFile failed: %v", err)
	}

	svcRefs := idx.ReferencesOf(svc)
	if len(svcRefs) != 2 {
		t.Errorf("ReferencesOf(service) = %d refs, want 2 (service-hinted + any-hinted)", len(svcRefs))
	}

	ctrlRefs := idx.ReferencesOf(ctrl)
	if len(ctrlRefs) != 2 {
		t.Errorf("ReferencesOf(controller) = %d refs, want 2 (controller-hinted + any-hinted)", len(ctrlRefs))
	}
}

func TestHasFilter(t *testing.T) {
	idx := New()
	f := sym(fileA, 1, ajtypes.KindFilter, "currencyFormat")
	if err := idx.ReplaceFile(fileA, "src/filters.js", []*ajtypes.Symbol{f}, nil, nil); err != nil {
		t.Fatalf("ReplaceFile failed: %v", err)
	}

	if !idx.HasFilter("currencyFormat") {
		t.Errorf("HasFilter(currencyFormat) = false, want true")
	}
	if idx.HasFilter("missingFilter") {
		t.Errorf("HasFilter(missingFilter) = true, want false")
	}
}

func TestAllSymbolsAcrossFiles(t *testing.T) {
	idx := New()
	a := sym(fileA, 1, ajtypes.KindController, "A")
	b := sym(fileB, 1, ajtypes.KindController, "B")

	if err := idx.ReplaceFile(fileA, "src/a.js", []*ajtypes.Symbol{a}, nil, nil); err != nil {
		t.Fatalf("ReplaceFile a failed: %v", err)
	}
	if err := idx.ReplaceFile(fileB, "src/b.js", []*ajtypes.Symbol{b}, nil, nil); err != nil {
		t.Fatalf("ReplaceFile b failed: %v", err)
	}

	all := idx.AllSymbols()
	if len(all) != 2 {
		t.Errorf("AllSymbols() = %v, want 2 symbols across both files", all)
	}
}
