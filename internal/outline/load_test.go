package outline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gren-lang/grenc/internal/semver"
)

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gren.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

var running = semver.Version{Major: 1, Minor: 0, Patch: 0}

func TestLoadApplication(t *testing.T) {
	path := write(t, `{
		"type": "application",
		"platform": "common",
		"gren-version": "1.0.0",
		"source-directories": ["src"],
		"dependencies": {
			"direct": {"author/project": "2.0.0"},
			"indirect": {}
		}
	}`)

	out, err := Load(path, running)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Kind != Application {
		t.Fatalf("expected Application, got %v", out.Kind)
	}
	if len(out.ApplicationData.SourceDirectories) != 1 || out.ApplicationData.SourceDirectories[0] != "src" {
		t.Fatalf("unexpected source directories: %v", out.ApplicationData.SourceDirectories)
	}
	if len(out.ApplicationData.DirectDeps) != 1 {
		t.Fatalf("expected one direct dependency, got %d", len(out.ApplicationData.DirectDeps))
	}
}

func TestLoadApplicationRejectsOverlappingDirectIndirect(t *testing.T) {
	path := write(t, `{
		"type": "application",
		"platform": "common",
		"gren-version": "1.0.0",
		"source-directories": ["src"],
		"dependencies": {
			"direct": {"author/project": "2.0.0"},
			"indirect": {"author/project": "2.0.0"}
		}
	}`)

	if _, err := Load(path, running); err == nil {
		t.Fatalf("expected an error for a package appearing in both direct and indirect deps")
	}
}

func TestLoadApplicationRejectsCompilerMismatch(t *testing.T) {
	path := write(t, `{
		"type": "application",
		"platform": "common",
		"gren-version": "9.9.9",
		"source-directories": ["src"],
		"dependencies": {"direct": {}, "indirect": {}}
	}`)

	if _, err := Load(path, running); err == nil {
		t.Fatalf("expected an error for a mismatched gren-version")
	}
}

func TestLoadApplicationRequiresSourceDirectories(t *testing.T) {
	path := write(t, `{
		"type": "application",
		"platform": "common",
		"gren-version": "1.0.0",
		"source-directories": [],
		"dependencies": {"direct": {}, "indirect": {}}
	}`)

	if _, err := Load(path, running); err == nil {
		t.Fatalf("expected an error for an application with no source directories")
	}
}

func TestLoadPackageFlatExposedModules(t *testing.T) {
	path := write(t, `{
		"type": "package",
		"name": "author/project",
		"summary": "a small package",
		"license": "BSD-3-Clause",
		"version": "1.0.0",
		"platform": "common",
		"gren-version": "1.0.0 <= v < 2.0.0",
		"exposed-modules": ["Main", "Helper"],
		"dependencies": {}
	}`)

	out, err := Load(path, running)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Kind != Package {
		t.Fatalf("expected Package, got %v", out.Kind)
	}
	if !out.PackageData.Exposed["Main"] || !out.PackageData.Exposed["Helper"] {
		t.Fatalf("expected both Main and Helper exposed, got %v", out.PackageData.Exposed)
	}
}

func TestLoadPackageHeaderGroupedExposedModules(t *testing.T) {
	path := write(t, `{
		"type": "package",
		"name": "author/project",
		"summary": "a small package",
		"license": "BSD-3-Clause",
		"version": "1.0.0",
		"platform": "common",
		"gren-version": "1.0.0 <= v < 2.0.0",
		"exposed-modules": {"Core": ["Main", "Helper"]},
		"dependencies": {}
	}`)

	out, err := Load(path, running)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out.PackageData.Headers["Core"]) != 2 {
		t.Fatalf("expected the Core header to list 2 modules, got %v", out.PackageData.Headers["Core"])
	}
	if !out.PackageData.Exposed["Main"] || !out.PackageData.Exposed["Helper"] {
		t.Fatalf("header-grouped modules must still populate the flattened Exposed set")
	}
}

func TestLoadPackageRejectsEmptyExposed(t *testing.T) {
	path := write(t, `{
		"type": "package",
		"name": "author/project",
		"summary": "a small package",
		"license": "BSD-3-Clause",
		"version": "1.0.0",
		"platform": "common",
		"gren-version": "1.0.0 <= v < 2.0.0",
		"exposed-modules": [],
		"dependencies": {}
	}`)

	if _, err := Load(path, running); err == nil {
		t.Fatalf("expected an error for a package exposing no modules")
	}
}

func TestLoadPackageRejectsIncompatibleGrenVersion(t *testing.T) {
	path := write(t, `{
		"type": "package",
		"name": "author/project",
		"summary": "a small package",
		"license": "BSD-3-Clause",
		"version": "1.0.0",
		"platform": "common",
		"gren-version": "2.0.0 <= v < 3.0.0",
		"exposed-modules": ["Main"],
		"dependencies": {}
	}`)

	if _, err := Load(path, running); err == nil {
		t.Fatalf("expected an error when the running compiler is outside gren-version")
	}
}

func TestLoadRejectsUnknownType(t *testing.T) {
	path := write(t, `{"type": "library"}`)
	if _, err := Load(path, running); err == nil {
		t.Fatalf(`expected an error for a "type" that is neither application nor package`)
	}
}

func TestLoadRejectsMissingType(t *testing.T) {
	path := write(t, `{"platform": "common"}`)
	if _, err := Load(path, running); err == nil {
		t.Fatalf(`expected an error for a manifest missing "type"`)
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := write(t, `{ not valid json`)
	if _, err := Load(path, running); err == nil {
		t.Fatalf("expected an error for malformed JSON")
	}
}
