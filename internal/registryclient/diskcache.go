package registryclient

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gren-lang/grenc/internal/outline"
	"github.com/gren-lang/grenc/internal/pkgname"
	"github.com/gren-lang/grenc/internal/semver"
)

// DiskCache is the default Cache implementation: the on-disk layout of §6,
// `<root>/<author>/<project>/<version>/gren.json`. Versions are discovered
// by listing the project directory; metadata is read straight off the
// cached gren.json using the same outline loader a project build uses.
// Every package version's artifacts.dat and docs.json live alongside it in
// the same version directory (§4.2, §6).
type DiskCache struct {
	Root            string
	RunningCompiler semver.Version
}

// VersionDir returns the cache directory for one package version.
func (d *DiskCache) VersionDir(pkg pkgname.Name, v semver.Version) string {
	return filepath.Join(d.Root, pkg.Author, pkg.Project, v.String())
}

func (d *DiskCache) CachedVersions(pkg pkgname.Name) ([]semver.Version, error) {
	projectDir := filepath.Join(d.Root, pkg.Author, pkg.Project)
	entries, err := os.ReadDir(projectDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var versions []semver.Version
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		v, err := semver.Parse(entry.Name())
		if err != nil {
			continue // not a version directory; ignore
		}
		versions = append(versions, v)
	}
	return versions, nil
}

func (d *DiskCache) CachedMeta(pkg pkgname.Name, v semver.Version) (Meta, bool, error) {
	path := d.OutlinePath(pkg, v)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Meta{}, false, nil
	}

	out, err := outline.Load(path, d.RunningCompiler)
	if err != nil {
		return Meta{}, false, fmt.Errorf("bad cached outline for %s@%s: %w", pkg, v, err)
	}
	if out.Kind != outline.Package {
		return Meta{}, false, fmt.Errorf("cached outline for %s@%s is not a package manifest", pkg, v)
	}

	return Meta{
		Platform:       out.PackageData.RootPlatform,
		GrenConstraint: out.PackageData.GrenConstraint,
		Dependencies:   out.PackageData.Direct,
	}, true, nil
}

// SourceDir returns "<version dir>/src" per §6's on-disk cache layout.
func (d *DiskCache) SourceDir(pkg pkgname.Name, v semver.Version) string {
	return filepath.Join(d.VersionDir(pkg, v), "src")
}

// OutlinePath returns "<version dir>/gren.json".
func (d *DiskCache) OutlinePath(pkg pkgname.Name, v semver.Version) string {
	return filepath.Join(d.VersionDir(pkg, v), "gren.json")
}

// ArtifactsPath returns "<version dir>/artifacts.dat".
func (d *DiskCache) ArtifactsPath(pkg pkgname.Name, v semver.Version) string {
	return filepath.Join(d.VersionDir(pkg, v), "artifacts.dat")
}

// DocsPath returns "<version dir>/docs.json".
func (d *DiskCache) DocsPath(pkg pkgname.Name, v semver.Version) string {
	return filepath.Join(d.VersionDir(pkg, v), "docs.json")
}

// Store is a no-op for entries that arrived as a cached gren.json already
// (the common path once a package has been fetched once); it exists to
// satisfy Cache for callers that fetch metadata remotely without first
// writing the manifest to disk themselves.
func (d *DiskCache) Store(pkg pkgname.Name, v semver.Version, meta Meta) error {
	dir := d.VersionDir(pkg, v)
	if _, err := os.Stat(filepath.Join(dir, "gren.json")); err == nil {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
