// Package details implements the Project Builder ("Details") of §4.2: it
// turns a resolved dependency solution into per-package build artifacts and
// the project-wide foreign module table user code compiles against.
package details

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/gren-lang/grenc/internal/artifact"
	"github.com/gren-lang/grenc/internal/codec"
	"github.com/gren-lang/grenc/internal/compile"
	"github.com/gren-lang/grenc/internal/compiler"
	"github.com/gren-lang/grenc/internal/foreign"
	"github.com/gren-lang/grenc/internal/grenerr"
	"github.com/gren-lang/grenc/internal/iface"
	"github.com/gren-lang/grenc/internal/modname"
	"github.com/gren-lang/grenc/internal/outline"
	"github.com/gren-lang/grenc/internal/pkgname"
	"github.com/gren-lang/grenc/internal/platform"
	"github.com/gren-lang/grenc/internal/registryclient"
	"github.com/gren-lang/grenc/internal/semver"
	"github.com/gren-lang/grenc/internal/solver"
)

// Env bundles the collaborators a Builder needs beyond the on-disk project
// itself: the external compiler service, the package cache/registry
// catalog, and the running compiler's own version (for the Outline
// compatibility checks of §3).
type Env struct {
	Service         compiler.Service
	Catalog         *registryclient.Catalog
	Cache           registryclient.Cache
	RunningCompiler semver.Version
}

// Details is the Project Builder's output.
type Details struct {
	BuildID  uint64
	Solution solver.Solution
	Packages map[pkgname.Name]*artifact.Cache
	Foreign  foreign.Map
}

// Builder runs the Project Builder protocol of §4.2 against one project
// root. A Builder is reusable across successive Load calls (e.g. a `make`
// re-invocation); its singleflight.Group only dedupes concurrent builds
// within a single call.
type Builder struct {
	Env Env
}

func NewBuilder(env Env) *Builder {
	return &Builder{Env: env}
}

const detailsFileName = "details.dat"

// detailsRecord is the on-disk shape of .gren/details.dat.
type detailsRecord struct {
	OutlineModTime int64
	BuildID        uint64
	Solution       solver.Solution
	Packages       map[pkgname.Name]*artifact.Cache
}

// EncodeMsgpack writes Packages in key-sorted order, since pkgname.Name is a
// struct key msgpack's own map-key sort can't order.
func (r detailsRecord) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(4); err != nil {
		return err
	}
	if err := enc.EncodeInt64(r.OutlineModTime); err != nil {
		return err
	}
	if err := enc.EncodeUint64(r.BuildID); err != nil {
		return err
	}
	if err := enc.Encode(r.Solution); err != nil {
		return err
	}
	return codec.EncodePkgMap(enc, r.Packages)
}

// DecodeMsgpack is the inverse of EncodeMsgpack.
func (r *detailsRecord) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 4 {
		return fmt.Errorf("details: expected a 4-element detailsRecord, got %d", n)
	}
	if r.OutlineModTime, err = dec.DecodeInt64(); err != nil {
		return err
	}
	if r.BuildID, err = dec.DecodeUint64(); err != nil {
		return err
	}
	if err := dec.Decode(&r.Solution); err != nil {
		return err
	}
	return codec.DecodePkgMap(dec, &r.Packages)
}

// Load implements §4.2's load(root): idempotent against gren.json's
// modification time, otherwise a full regenerate.
func (b *Builder) Load(ctx context.Context, root string) (*Details, error) {
	outlinePath := filepath.Join(root, "gren.json")
	info, err := os.Stat(outlinePath)
	if err != nil {
		return nil, err
	}

	out, err := outline.Load(outlinePath, b.Env.RunningCompiler)
	if err != nil {
		return nil, err
	}

	detailsPath := filepath.Join(root, ".gren", detailsFileName)
	if rec, ok := readDetailsRecord(detailsPath); ok && rec.OutlineModTime == info.ModTime().UnixNano() {
		d := &Details{
			BuildID:  rec.BuildID + 1,
			Solution: rec.Solution,
			Packages: rec.Packages,
			Foreign:  buildForeign(out, rec.Solution, rec.Packages),
		}
		if err := writeDetailsRecord(detailsPath, detailsRecord{
			OutlineModTime: info.ModTime().UnixNano(),
			BuildID:        d.BuildID,
			Solution:       rec.Solution,
			Packages:       rec.Packages,
		}); err != nil {
			return nil, err
		}
		return d, nil
	}

	d, err := b.regenerate(ctx, out)
	if err != nil {
		return nil, err
	}

	if err := writeDetailsRecord(detailsPath, detailsRecord{
		OutlineModTime: info.ModTime().UnixNano(),
		BuildID:        d.BuildID,
		Solution:       d.Solution,
		Packages:       d.Packages,
	}); err != nil {
		return nil, err
	}
	return d, nil
}

// VerifyInstall runs the same resolve-and-build protocol for out without
// surfacing the resulting Details or writing details.dat (§4.2). It checks
// the outline it is given; `gren install` calls it after gren.json has
// already been rewritten, and does not restore the file when it fails.
func (b *Builder) VerifyInstall(ctx context.Context, out *outline.Outline) error {
	_, err := b.regenerate(ctx, out)
	return err
}

func (b *Builder) regenerate(ctx context.Context, out *outline.Outline) (*Details, error) {
	rp := rootPlatform(out)
	constraints := rootConstraints(out)

	res := solver.New(b.Env.Catalog, rp)
	sol, err := res.Verify(ctx, constraints)
	if err != nil {
		return nil, err
	}

	packages, err := b.buildAll(ctx, sol)
	if err != nil {
		return nil, err
	}

	return &Details{
		BuildID:  1,
		Solution: sol,
		Packages: packages,
		Foreign:  buildForeign(out, sol, packages),
	}, nil
}

// buildAll runs the per-package build protocol of §4.2 concurrently, one
// goroutine per package, coordinated through a singleflight.Group keyed by
// package name — the "shared mutable map of futures" (a depsMVar) of §9,
// since a package with several dependents in the graph must only be built
// once and every dependent must block on that single build.
func (b *Builder) buildAll(ctx context.Context, sol solver.Solution) (map[pkgname.Name]*artifact.Cache, error) {
	var group singleflight.Group
	eg, ctx := errgroup.WithContext(ctx)

	var buildOne func(name pkgname.Name) (*artifact.Cache, error)
	buildOne = func(name pkgname.Name) (*artifact.Cache, error) {
		v, err, _ := group.Do(name.String(), func() (any, error) {
			return b.buildPackage(ctx, name, sol, buildOne)
		})
		if err != nil {
			return nil, err
		}
		return v.(*artifact.Cache), nil
	}

	var mu sync.Mutex
	packages := make(map[pkgname.Name]*artifact.Cache, len(sol))

	for name := range sol {
		name := name
		eg.Go(func() error {
			cache, err := buildOne(name)
			if err != nil {
				return err
			}
			mu.Lock()
			packages[name] = cache
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return packages, nil
}

// buildPackage implements one package's build protocol: fingerprint, cache
// lookup, and, on a miss, a full crawl+compile of every exposed module
// after waiting on every direct dependency's own build (via buildOne,
// itself deduped by the caller's singleflight.Group).
func (b *Builder) buildPackage(
	ctx context.Context,
	name pkgname.Name,
	sol solver.Solution,
	buildOne func(pkgname.Name) (*artifact.Cache, error),
) (*artifact.Cache, error) {
	sel := sol[name]
	fp := artifact.Fingerprint{}
	for dep := range sel.DirectConstraints {
		fp[dep] = sol[dep].Version
	}

	existing, hadCache, err := b.readArtifactCache(name, sel.Version)
	if err != nil {
		return nil, grenerr.NewPackageBuildError(name, sel.Version.String(), "", err)
	}
	if hadCache && existing.Satisfies(fp) {
		return existing, nil
	}

	out, err := outline.Load(b.Env.Cache.OutlinePath(name, sel.Version), b.Env.RunningCompiler)
	if err != nil {
		return nil, grenerr.NewPackageBuildError(name, sel.Version.String(), fingerprintString(fp), err)
	}
	pkgData := out.PackageData

	directForeign := map[pkgname.Name]map[modname.Raw]iface.DependencyInterface{}
	for dep := range sel.DirectConstraints {
		depCache, err := buildOne(dep)
		if err != nil {
			return nil, err
		}
		modules := make(map[modname.Raw]iface.DependencyInterface, len(depCache.Artifacts.Interfaces))
		for raw, snap := range depCache.Artifacts.Interfaces {
			modules[raw] = snap.AsPublic()
		}
		directForeign[dep] = modules
	}
	fmap := foreign.Build(directForeign)

	srcDir := b.Env.Cache.SourceDir(name, sel.Version)
	crawler := &compile.Crawler{SourceDirs: []string{srcDir}, Foreign: fmap, Service: b.Env.Service}
	if IsKernelPrivileged(name) {
		crawler.KernelDir = srcDir
	}

	entries := make([]modname.Raw, 0, len(pkgData.Exposed))
	for raw := range pkgData.Exposed {
		entries = append(entries, raw)
	}

	order, sources, err := crawler.Crawl(entries)
	if err != nil {
		return nil, grenerr.NewPackageBuildError(name, sel.Version.String(), fingerprintString(fp), err)
	}

	engine := &compile.Engine{Service: b.Env.Service, Package: name.String()}
	results, err := engine.Compile(ctx, order, sources)
	if err != nil {
		return nil, grenerr.NewPackageBuildError(name, sel.Version.String(), fingerprintString(fp), err)
	}

	interfaces := map[modname.Raw]iface.Snapshot{}
	var graphs []compiler.LocalGraph
	var kernels []compiler.KernelContent
	for modRaw, src := range sources {
		if src.Kind == compile.SourceKernel {
			kernels = append(kernels, src.KernelContent)
		}
		r, compiled := results[modRaw]
		if !compiled {
			continue
		}
		if r.Err != nil {
			return nil, grenerr.NewPackageBuildError(name, sel.Version.String(), fingerprintString(fp), r.Err)
		}
		if pkgData.Exposed[r.Module] {
			interfaces[r.Module] = r.Artifacts.Snapshot()
		}
		graphs = append(graphs, r.Artifacts.Objects)
	}

	graph, err := b.Env.Service.LinkGraphs(graphs, kernels)
	if err != nil {
		return nil, grenerr.NewPackageBuildError(name, sel.Version.String(), fingerprintString(fp), err)
	}

	built := artifact.Artifacts{Interfaces: interfaces, Graph: graph}

	var next *artifact.Cache
	if hadCache {
		next = existing.WithFingerprint(fp, built)
	} else {
		next = (&artifact.Cache{}).WithFingerprint(fp, built)
	}

	if err := b.writeArtifactCache(name, sel.Version, next); err != nil {
		return nil, grenerr.NewPackageBuildError(name, sel.Version.String(), fingerprintString(fp), err)
	}
	b.writeDocsBestEffort(name, sel.Version, pkgData, interfaces)

	return next, nil
}

func (b *Builder) readArtifactCache(name pkgname.Name, v semver.Version) (*artifact.Cache, bool, error) {
	path := b.Env.Cache.ArtifactsPath(name, v)
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
	return &cache, true, nil
}

func (b *Builder) writeArtifactCache(name pkgname.Name, v semver.Version, cache *artifact.Cache) error {
	path := b.Env.Cache.ArtifactsPath(name, v)
	data, err := codec.Encode(cache)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// writeDocsBestEffort generates docs.json the first time a package version
// is built, per the supplemented feature described in the project's
// expanded requirements. A failure is ignored without any report and never
// fails the build.
func (b *Builder) writeDocsBestEffort(name pkgname.Name, v semver.Version, pkg *outline.PackageOutline, interfaces map[modname.Raw]iface.Snapshot) {
	path := b.Env.Cache.DocsPath(name, v)
	if _, err := os.Stat(path); err == nil {
		return // already generated for this version
	}

	doc := docsJSON{
		Name:      name.String(),
		Version:   v.String(),
		Generated: time.Now().UTC().Format(time.RFC3339),
		Modules:   make([]docsModule, 0, len(interfaces)),
	}
	for raw, snap := range interfaces {
		m := docsModule{Name: string(raw)}
		for typeName := range snap.Iface.Types {
			m.Types = append(m.Types, typeName)
		}
		for valueName := range snap.Iface.Values {
			m.Values = append(m.Values, valueName)
		}
		doc.Modules = append(doc.Modules, m)
	}

	data, err := marshalDocsJSON(doc)
	if err != nil {
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return
	}
	writeCacheMetaBestEffort(path, cacheMeta{
		GeneratedAt:   doc.Generated,
		ModuleCount:   len(doc.Modules),
		DocsSizeBytes: len(data),
	})
}

func fingerprintString(fp artifact.Fingerprint) string {
	s := ""
	for name, v := range fp {
		if s != "" {
			s += ","
		}
		s += name.String() + "@" + v.String()
	}
	return s
}

func rootPlatform(out *outline.Outline) platform.Platform {
	if out.Kind == outline.Application {
		return out.ApplicationData.RootPlatform
	}
	return out.PackageData.RootPlatform
}

// rootConstraints lifts a project's own outline into the resolver's
// starting constraint set: an application already pins exact versions
// (direct and indirect alike, both re-verified), a package declares real
// ranges for its direct dependencies only.
func rootConstraints(out *outline.Outline) map[pkgname.Name]semver.Constraint {
	constraints := map[pkgname.Name]semver.Constraint{}
	switch out.Kind {
	case outline.Application:
		for name, v := range out.ApplicationData.DirectDeps {
			constraints[name] = pointConstraint(v)
		}
		for name, v := range out.ApplicationData.IndirectDeps {
			constraints[name] = pointConstraint(v)
		}
	case outline.Package:
		for name, c := range out.PackageData.Direct {
			constraints[name] = c
		}
	}
	return constraints
}

func pointConstraint(v semver.Version) semver.Constraint {
	next := semver.Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
	c, _ := semver.NewConstraint(v, next)
	return c
}

func directNames(out *outline.Outline) map[pkgname.Name]bool {
	direct := map[pkgname.Name]bool{}
	switch out.Kind {
	case outline.Application:
		for name := range out.ApplicationData.DirectDeps {
			direct[name] = true
		}
	case outline.Package:
		for name := range out.PackageData.Direct {
			direct[name] = true
		}
	}
	return direct
}

// buildForeign assembles the project-wide foreign table: direct
// dependencies contribute Public interfaces, everything else contributes
// Private ones, applying §4.2's interface visibility rule at the one point
// it actually depends on who the consumer is.
func buildForeign(out *outline.Outline, sol solver.Solution, packages map[pkgname.Name]*artifact.Cache) foreign.Map {
	direct := directNames(out)
	exposing := make(map[pkgname.Name]map[modname.Raw]iface.DependencyInterface, len(packages))

	for name, cache := range packages {
		modules := make(map[modname.Raw]iface.DependencyInterface, len(cache.Artifacts.Interfaces))
		for raw, snap := range cache.Artifacts.Interfaces {
			if direct[name] {
				modules[raw] = snap.AsPublic()
			} else {
				modules[raw] = snap.AsPrivate()
			}
		}
		exposing[name] = modules
	}

	return foreign.Build(exposing)
}

func readDetailsRecord(path string) (detailsRecord, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return detailsRecord{}, false
	}
	var rec detailsRecord
	if err := codec.Decode(data, &rec); err != nil {
		return detailsRecord{}, false
	}
	return rec, true
}

func writeDetailsRecord(path string, rec detailsRecord) error {
	data, err := codec.Encode(rec)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
