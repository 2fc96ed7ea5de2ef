package semverguide

import (
	"testing"

	"github.com/gren-lang/grenc/internal/iface"
	"github.com/gren-lang/grenc/internal/modname"
	"github.com/gren-lang/grenc/internal/semver"
)

func TestSuggestPatchOnNoChange(t *testing.T) {
	old := map[modname.Raw]iface.Interface{
		"Main": {Values: map[string]iface.ValueSig{"run": {Name: "run", Type: "Int -> Int"}}},
	}
	new := map[modname.Raw]iface.Interface{
		"Main": {Values: map[string]iface.ValueSig{"run": {Name: "run", Type: "Int -> Int"}}},
	}

	if bump := Suggest(old, new); bump != Patch {
		t.Fatalf("Suggest() = %s, want PATCH", bump)
	}
}

func TestSuggestMinorOnAddedValue(t *testing.T) {
	old := map[modname.Raw]iface.Interface{
		"Main": {Values: map[string]iface.ValueSig{"run": {Name: "run", Type: "Int -> Int"}}},
	}
	new := map[modname.Raw]iface.Interface{
		"Main": {Values: map[string]iface.ValueSig{
			"run":  {Name: "run", Type: "Int -> Int"},
			"stop": {Name: "stop", Type: "Int -> Int"},
		}},
	}

	if bump := Suggest(old, new); bump != Minor {
		t.Fatalf("Suggest() = %s, want MINOR", bump)
	}
}

func TestSuggestMinorOnNewExposedModule(t *testing.T) {
	old := map[modname.Raw]iface.Interface{
		"Main": {Values: map[string]iface.ValueSig{"run": {Name: "run", Type: "Int -> Int"}}},
	}
	new := map[modname.Raw]iface.Interface{
		"Main":  {Values: map[string]iface.ValueSig{"run": {Name: "run", Type: "Int -> Int"}}},
		"Extra": {Values: map[string]iface.ValueSig{"go": {Name: "go", Type: "Int -> Int"}}},
	}

	if bump := Suggest(old, new); bump != Minor {
		t.Fatalf("Suggest() = %s, want MINOR", bump)
	}
}

func TestSuggestMajorOnRemovedModule(t *testing.T) {
	old := map[modname.Raw]iface.Interface{
		"Main":  {},
		"Extra": {},
	}
	new := map[modname.Raw]iface.Interface{
		"Main": {},
	}

	if bump := Suggest(old, new); bump != Major {
		t.Fatalf("Suggest() = %s, want MAJOR", bump)
	}
}

func TestSuggestMajorOnChangedSignature(t *testing.T) {
	old := map[modname.Raw]iface.Interface{
		"Main": {Values: map[string]iface.ValueSig{"run": {Name: "run", Type: "Int -> Int"}}},
	}
	new := map[modname.Raw]iface.Interface{
		"Main": {Values: map[string]iface.ValueSig{"run": {Name: "run", Type: "Int -> String"}}},
	}

	if bump := Suggest(old, new); bump != Major {
		t.Fatalf("Suggest() = %s, want MAJOR", bump)
	}
}

func TestRecommendResetsLowerComponents(t *testing.T) {
	current := semver.Version{Major: 2, Minor: 3, Patch: 4}

	if got := Recommend(current, Major); got != (semver.Version{Major: 3, Minor: 0, Patch: 0}) {
		t.Fatalf("Recommend(Major) = %s, want 3.0.0", got)
	}
	if got := Recommend(current, Minor); got != (semver.Version{Major: 2, Minor: 4, Patch: 0}) {
		t.Fatalf("Recommend(Minor) = %s, want 2.4.0", got)
	}
	if got := Recommend(current, Patch); got != (semver.Version{Major: 2, Minor: 3, Patch: 5}) {
		t.Fatalf("Recommend(Patch) = %s, want 2.3.5", got)
	}
}
