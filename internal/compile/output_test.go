package compile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gren-lang/grenc/internal/grenerr"
	"github.com/gren-lang/grenc/internal/modname"
)

func TestOutputKind(t *testing.T) {
	cases := []struct {
		path string
		want OutputKind
	}{
		{"", OutputDiscard},
		{"/dev/null", OutputDiscard},
		{"/dev/stdout", OutputStdout},
		{"out.html", OutputHTML},
		{"out.js", OutputJS},
	}
	for _, c := range cases {
		got, err := Output{Path: c.path}.Kind()
		if err != nil {
			t.Fatalf("Kind(%q): %v", c.path, err)
		}
		if got != c.want {
			t.Errorf("Kind(%q) = %v, want %v", c.path, got, c.want)
		}
	}

	if _, err := (Output{Path: "out.txt"}).Kind(); err == nil {
		t.Fatalf("expected an error for an unrecognized output extension")
	}
}

func TestAssembleHTMLRequiresExactlyOneEntryWithMain(t *testing.T) {
	dir := t.TempDir()
	svc := &fakeService{emitHTML: []byte("<html></html>")}
	out := Output{Path: filepath.Join(dir, "out.html")}

	hasMain := func(modname.Raw) bool { return true }
	if err := Assemble(svc, out, nil, []modname.Raw{"Main", "Other"}, hasMain); err == nil {
		t.Fatalf("expected an error building HTML from more than one entry")
	}

	noMain := func(modname.Raw) bool { return false }
	if err := Assemble(svc, out, nil, []modname.Raw{"Main"}, noMain); err == nil {
		t.Fatalf("expected an error building HTML from an entry without main")
	}

	if err := Assemble(svc, out, nil, []modname.Raw{"Main"}, hasMain); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	data, err := os.ReadFile(out.Path)
	if err != nil {
		t.Fatalf("expected output file to be written: %v", err)
	}
	if string(data) != "<html></html>" {
		t.Fatalf("unexpected output contents: %q", data)
	}
}

func TestAssembleJSRequiresMainOnEveryEntry(t *testing.T) {
	dir := t.TempDir()
	svc := &fakeService{emitJS: []byte("console.log('hi')")}
	out := Output{Path: filepath.Join(dir, "out.js")}

	mainOnlyFirst := func(m modname.Raw) bool { return m == "A" }
	if err := Assemble(svc, out, nil, []modname.Raw{"A", "B"}, mainOnlyFirst); err == nil {
		t.Fatalf("expected an error when not every entry defines main")
	}

	allMain := func(modname.Raw) bool { return true }
	if err := Assemble(svc, out, nil, []modname.Raw{"A", "B"}, allMain); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
}

func TestAssembleDiscardWritesNothing(t *testing.T) {
	svc := &fakeService{}
	if err := Assemble(svc, Output{}, nil, nil, func(modname.Raw) bool { return false }); err != nil {
		t.Fatalf("Assemble with a discard output should never error: %v", err)
	}
}

func TestCheckOptimizeDebugFlagsMutualExclusivity(t *testing.T) {
	if err := CheckOptimizeDebugFlags(true, true); err == nil {
		t.Fatalf("expected an error when --optimize and --debug are both set")
	}
	if err := CheckOptimizeDebugFlags(true, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckDebugReachabilityOnlyUnderOptimize(t *testing.T) {
	svc := &fakeService{debugModules: []modname.Raw{"Main"}, debugUsed: true}

	if err := CheckDebugReachability(svc, false, nil); err != nil {
		t.Fatalf("Debug.log reachability should not matter without --optimize: %v", err)
	}

	err := CheckDebugReachability(svc, true, nil)
	if err == nil {
		t.Fatalf("expected an error: --optimize with a reachable Debug use")
	}
	if _, ok := err.(*grenerr.CannotOptimizeDebugValuesError); !ok {
		t.Fatalf("expected a CannotOptimizeDebugValuesError, got %T", err)
	}
}
