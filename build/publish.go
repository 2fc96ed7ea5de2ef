package build

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gren-lang/grenc/internal/artifact"
	"github.com/gren-lang/grenc/internal/codec"
	"github.com/gren-lang/grenc/internal/compile"
	"github.com/gren-lang/grenc/internal/details"
	"github.com/gren-lang/grenc/internal/grenerr"
	"github.com/gren-lang/grenc/internal/iface"
	"github.com/gren-lang/grenc/internal/modname"
	"github.com/gren-lang/grenc/internal/outline"
	"github.com/gren-lang/grenc/internal/pkgname"
	"github.com/gren-lang/grenc/internal/semver"
	"github.com/gren-lang/grenc/internal/semverguide"
)

// Diff computes the minimal version bump `gren diff` reports: the
// project's currently-built interfaces against the most recently published
// version's, both reduced to the bare map semverguide.Suggest compares.
func Diff(ctx context.Context, env details.Env, root string) (semverguide.Bump, error) {
	out, err := outline.Load(filepath.Join(root, "gren.json"), env.RunningCompiler)
	if err != nil {
		return semverguide.Patch, err
	}
	if out.Kind != outline.Package {
		return semverguide.Patch, grenerr.NewProjectError(grenerr.ProblemUnknownPath, "gren diff only applies to a package manifest")
	}
	pkg := out.PackageData

	published, ok, err := latestPublished(env, pkg.Name)
	if err != nil {
		return semverguide.Patch, err
	}
	if !ok {
		return semverguide.Patch, nil // nothing published yet; any version is legal
	}

	newIfaces, err := localExposedInterfaces(ctx, env, root, pkg.Exposed)
	if err != nil {
		return semverguide.Patch, err
	}

	return semverguide.Suggest(published, newIfaces), nil
}

// Bump implements `gren bump`: runs Diff and recommends the next version
// number, relative to the manifest's currently declared version.
func Bump(ctx context.Context, env details.Env, root string) (nextVersion string, bump semverguide.Bump, err error) {
	out, err := outline.Load(filepath.Join(root, "gren.json"), env.RunningCompiler)
	if err != nil {
		return "", semverguide.Patch, err
	}
	b, err := Diff(ctx, env, root)
	if err != nil {
		return "", semverguide.Patch, err
	}
	next := semverguide.Recommend(out.PackageData.Version, b)
	return next.String(), b, nil
}

// latestVersion returns the newest cached version of pkg, if any.
func latestVersion(env details.Env, pkg pkgname.Name) (semver.Version, bool, error) {
	versions, err := env.Cache.CachedVersions(pkg)
	if err != nil {
		return semver.Version{}, false, err
	}
	if len(versions) == 0 {
		return semver.Version{}, false, nil
	}
	newest := versions[0]
	for _, v := range versions[1:] {
		if v.Compare(newest) > 0 {
			newest = v
		}
	}
	return newest, true, nil
}

// latestPublished returns the exposed-module interfaces of the newest
// cached version of pkg, used as Diff's "before" snapshot.
func latestPublished(env details.Env, pkg pkgname.Name) (map[modname.Raw]iface.Interface, bool, error) {
	newest, ok, err := latestVersion(env, pkg)
	if err != nil || !ok {
		return nil, false, err
	}

	cache, ok, err := readCachedArtifacts(env, pkg, newest)
	if err != nil || !ok {
		return nil, false, err
	}

	result := make(map[modname.Raw]iface.Interface, len(cache))
	for raw, snap := range cache {
		result[raw] = snap.Iface
	}
	return result, true, nil
}

// readCachedArtifacts loads pkg@v's persisted exposed-module interfaces
// straight off the on-disk artifact cache, the same artifacts.dat file the
// Project Builder itself writes.
func readCachedArtifacts(env details.Env, pkg pkgname.Name, v semver.Version) (map[modname.Raw]iface.Snapshot, bool, error) {
	path := env.Cache.ArtifactsPath(pkg, v)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var cache artifact.Cache
	if err := codec.Decode(data, &cache); err != nil {
		return nil, false, grenerr.NewCorruptCacheError(path, err)
	}
	return cache.Artifacts.Interfaces, true, nil
}

// localExposedInterfaces runs a fresh, discarded-output build of the
// project so its .gren/objects.dat snapshot reflects the current sources,
// then reads the exposed modules' interfaces out of that snapshot — the
// same bookkeeping `gren make`'s own staleness rules rely on, reused here
// instead of re-deriving a second build path.
func localExposedInterfaces(ctx context.Context, env details.Env, root string, exposed map[modname.Raw]bool) (map[modname.Raw]iface.Interface, error) {
	c := New(env, root)
	if _, err := c.Make(ctx, Options{Output: compile.Output{Path: "/dev/null"}}); err != nil {
		return nil, err
	}

	snap, err := loadSnapshot(filepath.Join(root, ".gren"))
	if err != nil {
		return nil, err
	}

	result := make(map[modname.Raw]iface.Interface, len(exposed))
	if snap == nil {
		return result, nil
	}
	for raw := range exposed {
		if v, ok := snap.Interfaces[raw]; ok {
			result[raw] = v
		}
	}
	return result, nil
}

// PublishCheck enforces §6/§7's publish preconditions: a valid version
// progression, required manifest/readme/license fields, and a clean,
// tagged git checkout. It does not push anything — publishing the package
// to the registry is the external registry client's job.
func PublishCheck(ctx context.Context, env details.Env, root string) error {
	out, err := outline.Load(filepath.Join(root, "gren.json"), env.RunningCompiler)
	if err != nil {
		return err
	}
	if out.Kind != outline.Package {
		return grenerr.NewPublishError(grenerr.PublishMissingSummary, "gren publish only applies to a package manifest")
	}
	pkg := out.PackageData

	if strings.TrimSpace(pkg.Summary) == "" {
		return grenerr.NewPublishError(grenerr.PublishMissingSummary, "")
	}
	if strings.TrimSpace(pkg.License) == "" {
		return grenerr.NewPublishError(grenerr.PublishMissingLicense, "")
	}
	if _, err := os.Stat(filepath.Join(root, "README.md")); err != nil {
		return grenerr.NewPublishError(grenerr.PublishMissingReadme, "")
	}

	published, ok, err := latestPublished(env, pkg.Name)
	if err != nil {
		return err
	}
	if ok {
		newIfaces, err := localExposedInterfaces(ctx, env, root, pkg.Exposed)
		if err != nil {
			return err
		}
		required := semverguide.Suggest(published, newIfaces)
		// The manifest's declared version must have advanced at least as
		// far as the interface diff requires; a package that only bumped
		// patch while removing an exposed module is lying about the break.
		if before, ok2, _ := latestVersion(env, pkg.Name); ok2 {
			want := semverguide.Recommend(before, required)
			if pkg.Version.Less(want) {
				return grenerr.NewPublishError(grenerr.PublishInvalidVersionProgression,
					"declared version "+pkg.Version.String()+" does not account for a "+required.String()+" change; expected at least "+want.String())
			}
		}
	}

	if err := checkGitClean(ctx, root); err != nil {
		return err
	}
	if err := checkGitTag(ctx, root, pkg.Version.String()); err != nil {
		return err
	}
	return nil
}

func checkGitClean(ctx context.Context, root string) error {
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain")
	cmd.Dir = root
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return grenerr.NewGitFailureError("status", err)
	}
	if out.Len() > 0 {
		return grenerr.NewPublishError(grenerr.PublishUncommittedChanges, "")
	}
	return nil
}

func checkGitTag(ctx context.Context, root, version string) error {
	cmd := exec.CommandContext(ctx, "git", "tag", "--list", "v"+version)
	cmd.Dir = root
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return grenerr.NewGitFailureError("tag", err)
	}
	if strings.TrimSpace(out.String()) == "" {
		return grenerr.NewPublishError(grenerr.PublishMissingGitTag, "v"+version)
	}
	return nil
}
