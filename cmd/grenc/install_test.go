package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/gren-lang/grenc/internal/pkgname"
	"github.com/gren-lang/grenc/internal/registryclient"
	"github.com/gren-lang/grenc/internal/semver"
)

func TestOpenConstraintAcceptsTheWholeMajorRangeOnly(t *testing.T) {
	c := openConstraint(semver.Version{Major: 1, Minor: 4, Patch: 2})

	if !c.Accepts(semver.Version{Major: 1, Minor: 0, Patch: 0}) {
		t.Fatalf("expected the open constraint to accept 1.0.0")
	}
	if !c.Accepts(semver.Version{Major: 1, Minor: 9, Patch: 9}) {
		t.Fatalf("expected the open constraint to accept 1.9.9")
	}
	if c.Accepts(semver.Version{Major: 2, Minor: 0, Patch: 0}) {
		t.Fatalf("expected the open constraint to reject the next major version")
	}
}

// versionOnlyClient answers Versions from a fixed list and is never asked
// for Meta by addDependency.
type versionOnlyClient struct {
	versions []semver.Version
}

func (v versionOnlyClient) Versions(ctx context.Context, pkg pkgname.Name) ([]semver.Version, error) {
	return v.versions, nil
}
func (v versionOnlyClient) Meta(ctx context.Context, pkg pkgname.Name, ver semver.Version) (registryclient.Meta, error) {
	return registryclient.Meta{}, nil
}

// versionOnlyClient doubles as an empty Cache too: addDependency only ever
// calls Catalog.Versions, which never touches the Cache half of Catalog.
func (v versionOnlyClient) CachedVersions(pkg pkgname.Name) ([]semver.Version, error) { return nil, nil }
func (v versionOnlyClient) CachedMeta(pkg pkgname.Name, ver semver.Version) (registryclient.Meta, bool, error) {
	return registryclient.Meta{}, false, nil
}
func (v versionOnlyClient) Store(pkg pkgname.Name, ver semver.Version, meta registryclient.Meta) error {
	return nil
}
func (v versionOnlyClient) SourceDir(pkg pkgname.Name, ver semver.Version) string   { return "" }
func (v versionOnlyClient) OutlinePath(pkg pkgname.Name, ver semver.Version) string { return "" }
func (v versionOnlyClient) ArtifactsPath(pkg pkgname.Name, ver semver.Version) string {
	return ""
}
func (v versionOnlyClient) DocsPath(pkg pkgname.Name, ver semver.Version) string { return "" }

func mustPkgName(t *testing.T, s string) pkgname.Name {
	t.Helper()
	n, err := pkgname.Parse(s)
	if err != nil {
		t.Fatalf("pkgname.Parse(%q): %v", s, err)
	}
	return n
}

func TestAddDependencyPinsAnApplicationToTheNewestVersion(t *testing.T) {
	root := t.TempDir()
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

	client := versionOnlyClient{versions: []semver.Version{
		{Major: 1, Minor: 0, Patch: 0},
		{Major: 1, Minor: 2, Patch: 0},
		{Major: 1, Minor: 1, Patch: 0},
	}}
	catalog := &registryclient.Catalog{Client: client, Cache: client}

	pkg := mustPkgName(t, "author/helper")
	if err := addDependency(context.Background(), catalog, root, pkg); err != nil {
		t.Fatalf("addDependency: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "gren.json"))
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	direct := doc["dependencies"].(map[string]any)["direct"].(map[string]any)
	if direct["author/helper"] != "1.2.0" {
		t.Fatalf("expected author/helper pinned to 1.2.0, got %v", direct["author/helper"])
	}
}

func TestAddDependencyGivesAPackageAnOpenRange(t *testing.T) {
	root := t.TempDir()
	manifest := `{
		"type": "package",
		"name": "author/project",
		"summary": "s",
		"license": "BSD-3-Clause",
		"version": "1.0.0",
		"platform": "common",
		"gren-version": "1.0.0 <= v < 2.0.0",
		"exposed-modules": ["Main"],
		"dependencies": {}
	}`
	if err := os.WriteFile(filepath.Join(root, "gren.json"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	client := versionOnlyClient{versions: []semver.Version{{Major: 2, Minor: 3, Patch: 1}}}
	catalog := &registryclient.Catalog{Client: client, Cache: client}

	pkg := mustPkgName(t, "author/helper")
	if err := addDependency(context.Background(), catalog, root, pkg); err != nil {
		t.Fatalf("addDependency: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "gren.json"))
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	deps := doc["dependencies"].(map[string]any)
	if deps["author/helper"] != "2.0.0 <= v < 3.0.0" {
		t.Fatalf("expected an open 2.x range, got %v", deps["author/helper"])
	}
}

func TestAddDependencyFailsForAPackageWithNoPublishedVersions(t *testing.T) {
	root := t.TempDir()
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

	client := versionOnlyClient{}
	catalog := &registryclient.Catalog{Client: client, Cache: client}

	pkg := mustPkgName(t, "author/helper")
	if err := addDependency(context.Background(), catalog, root, pkg); err == nil {
		t.Fatalf("expected an error for a dependency with no published versions")
	}
}
