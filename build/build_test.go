package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gren-lang/grenc/internal/compile"
	"github.com/gren-lang/grenc/internal/compiler"
	"github.com/gren-lang/grenc/internal/details"
	"github.com/gren-lang/grenc/internal/iface"
	"github.com/gren-lang/grenc/internal/modname"
	"github.com/gren-lang/grenc/internal/pkgname"
	"github.com/gren-lang/grenc/internal/registryclient"
	"github.com/gren-lang/grenc/internal/semver"
)

// fakeService drives the same "import X"/"module X" convention used
// throughout this repository's other test doubles, plus a configurable
// main-annotation set so Assemble's hasMain rules can be exercised.
type fakeService struct {
	mainModules map[modname.Raw]bool
}

func (f *fakeService) ParseModule(path string, src []byte) (compiler.ModuleAST, []modname.Raw, error) {
	var imports []modname.Raw
	for _, line := range strings.Split(string(src), "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "import "); ok {
			imports = append(imports, modname.Raw(strings.TrimSpace(rest)))
		}
	}
	return src, imports, nil
}

func (f *fakeService) ParseKernel(path string, src []byte) (compiler.KernelContent, error) {
	return compiler.KernelContent{}, nil
}

func (f *fakeService) CompileModule(pkg string, visible compiler.VisibleInterfaces, ast compiler.ModuleAST) (compiler.Artifacts, error) {
	src, _ := ast.([]byte)
	var name modname.Raw
	for _, line := range strings.Split(string(src), "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "module "); ok {
			name = modname.Raw(strings.TrimSpace(rest))
		}
	}
	annotations := map[string]string{}
	if f.mainModules[name] {
		annotations["main"] = "true"
	}
	return compiler.Artifacts{
		Canonical:   iface.Interface{Module: iface.ModuleInfo{Raw: name}},
		Annotations: annotations,
	}, nil
}

func (f *fakeService) LinkGraphs(graphs []compiler.LocalGraph, kernels []compiler.KernelContent) (compiler.GlobalGraph, error) {
	return graphs, nil
}
func (f *fakeService) UsesDebug(g compiler.GlobalGraph) ([]modname.Raw, bool) { return nil, false }
func (f *fakeService) EmitHTML(g compiler.GlobalGraph, entry modname.Raw) ([]byte, error) {
	return []byte("<html></html>"), nil
}
func (f *fakeService) EmitJS(g compiler.GlobalGraph, entries []modname.Raw) ([]byte, error) {
	return []byte("console.log('ok')"), nil
}

// emptyRegistry answers every Catalog call as if the local cache and remote
// registry both know of no packages at all — sufficient for an application
// with no dependencies, which never issues a single registry call.
type emptyRegistry struct{}

func (emptyRegistry) Versions(ctx context.Context, pkg pkgname.Name) ([]semver.Version, error) {
	return nil, nil
}
func (emptyRegistry) Meta(ctx context.Context, pkg pkgname.Name, v semver.Version) (registryclient.Meta, error) {
	return registryclient.Meta{}, nil
}
func (emptyRegistry) CachedVersions(pkg pkgname.Name) ([]semver.Version, error) { return nil, nil }
func (emptyRegistry) CachedMeta(pkg pkgname.Name, v semver.Version) (registryclient.Meta, bool, error) {
	return registryclient.Meta{}, false, nil
}
func (emptyRegistry) Store(pkg pkgname.Name, v semver.Version, meta registryclient.Meta) error {
	return nil
}
func (emptyRegistry) SourceDir(pkg pkgname.Name, v semver.Version) string   { return "" }
func (emptyRegistry) OutlinePath(pkg pkgname.Name, v semver.Version) string { return "" }
func (emptyRegistry) ArtifactsPath(pkg pkgname.Name, v semver.Version) string {
	return ""
}
func (emptyRegistry) DocsPath(pkg pkgname.Name, v semver.Version) string { return "" }

func newTestEnv(svc compiler.Service) details.Env {
	return details.Env{
		Service:         svc,
		Catalog:         &registryclient.Catalog{Client: emptyRegistry{}, Cache: emptyRegistry{}},
		Cache:           emptyRegistry{},
		RunningCompiler: semver.Version{Major: 1, Minor: 0, Patch: 0},
	}
}

func writeApp(t *testing.T, root string, files map[string]string) {
	t.Helper()
	manifest := `{
		"type": "application",
		"platform": "common",
		"gren-version": "1.0.0",
		"source-directories": ["src"],
		"dependencies": {"direct": {}, "indirect": {}}
	}`
	if err := os.WriteFile(filepath.Join(root, "gren.json"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	for rel, content := range files {
		path := filepath.Join(root, "src", rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestMakeCompilesAndRecompilesFreshOnFirstBuild(t *testing.T) {
	root := t.TempDir()
	writeApp(t, root, map[string]string{
		"Main.gren":   "module Main\nimport Helper\n",
		"Helper.gren": "module Helper\n",
	})

	svc := &fakeService{mainModules: map[modname.Raw]bool{"Main": true}}
	env := newTestEnv(svc)

	res, err := New(env, root).Make(context.Background(), Options{
		Entries: []string{filepath.Join(root, "src", "Main.gren")},
		Output:  compile.Output{Path: "/dev/null"},
	})
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if len(res.Recompiled) != 2 {
		t.Fatalf("expected both Main and Helper to be freshly compiled, got %v", res.Recompiled)
	}
}

func TestMakeSkipsUnchangedModulesOnSecondBuild(t *testing.T) {
	root := t.TempDir()
	writeApp(t, root, map[string]string{
		"Main.gren":   "module Main\nimport Helper\n",
		"Helper.gren": "module Helper\n",
	})

	svc := &fakeService{mainModules: map[modname.Raw]bool{"Main": true}}
	env := newTestEnv(svc)
	entry := filepath.Join(root, "src", "Main.gren")

	if _, err := New(env, root).Make(context.Background(), Options{
		Entries: []string{entry},
		Output:  compile.Output{Path: "/dev/null"},
	}); err != nil {
		t.Fatalf("first Make: %v", err)
	}

	res, err := New(env, root).Make(context.Background(), Options{
		Entries: []string{entry},
		Output:  compile.Output{Path: "/dev/null"},
	})
	if err != nil {
		t.Fatalf("second Make: %v", err)
	}
	if len(res.Recompiled) != 0 {
		t.Fatalf("expected no modules to be recompiled on an unchanged second build, got %v", res.Recompiled)
	}
}

func TestMakeRecompilesOnlyTheEditedModule(t *testing.T) {
	root := t.TempDir()
	writeApp(t, root, map[string]string{
		"Main.gren":   "module Main\nimport Helper\n",
		"Helper.gren": "module Helper\n",
	})

	svc := &fakeService{mainModules: map[modname.Raw]bool{"Main": true}}
	env := newTestEnv(svc)
	entry := filepath.Join(root, "src", "Main.gren")

	if _, err := New(env, root).Make(context.Background(), Options{
		Entries: []string{entry},
		Output:  compile.Output{Path: "/dev/null"},
	}); err != nil {
		t.Fatalf("first Make: %v", err)
	}

	// Editing Main alone (Helper's bytes and, crucially, its mtime stay
	// untouched) must leave Helper a SourceCached skip on the next build.
	mainPath := filepath.Join(root, "src", "Main.gren")
	if err := os.WriteFile(mainPath, []byte("module Main\nimport Helper\n\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Force the mtime forward explicitly: the staleness check is exact
	// time-equality, and two writes in quick succession can otherwise land
	// within the same filesystem timestamp granularity.
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(mainPath, future, future); err != nil {
		t.Fatal(err)
	}

	res, err := New(env, root).Make(context.Background(), Options{
		Entries: []string{entry},
		Output:  compile.Output{Path: "/dev/null"},
	})
	if err != nil {
		t.Fatalf("second Make: %v", err)
	}
	if len(res.Recompiled) != 1 || res.Recompiled[0] != "Main" {
		t.Fatalf("expected only Main to be recompiled after editing it, got %v", res.Recompiled)
	}
}

func TestMakeApplicationWithNoEntriesIsAnError(t *testing.T) {
	root := t.TempDir()
	writeApp(t, root, map[string]string{"Main.gren": "module Main\n"})

	svc := &fakeService{}
	env := newTestEnv(svc)

	_, err := New(env, root).Make(context.Background(), Options{Output: compile.Output{Path: "/dev/null"}})
	if err == nil {
		t.Fatalf("expected an error: an application build with no entries has no default")
	}
}

func TestMakeEmitsJSToRequestedPath(t *testing.T) {
	root := t.TempDir()
	writeApp(t, root, map[string]string{"Main.gren": "module Main\n"})

	svc := &fakeService{mainModules: map[modname.Raw]bool{"Main": true}}
	env := newTestEnv(svc)
	out := filepath.Join(root, "out.js")

	_, err := New(env, root).Make(context.Background(), Options{
		Entries: []string{filepath.Join(root, "src", "Main.gren")},
		Output:  compile.Output{Path: out},
	})
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("expected the JS output file to exist: %v", err)
	}
	if string(data) != "console.log('ok')" {
		t.Fatalf("unexpected output contents: %q", data)
	}
}

func TestMakeOptimizeAndDebugAreMutuallyExclusive(t *testing.T) {
	root := t.TempDir()
	writeApp(t, root, map[string]string{"Main.gren": "module Main\n"})

	svc := &fakeService{mainModules: map[modname.Raw]bool{"Main": true}}
	env := newTestEnv(svc)

	_, err := New(env, root).Make(context.Background(), Options{
		Entries:  []string{filepath.Join(root, "src", "Main.gren")},
		Output:   compile.Output{Path: "/dev/null"},
		Optimize: true,
		Debug:    true,
	})
	if err == nil {
		t.Fatalf("expected an error: --optimize and --debug are mutually exclusive")
	}
}
