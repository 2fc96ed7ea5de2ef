// Package build implements the top-level `gren make` pipeline: loading a
// project's own gren.json, running the Project Builder over its resolved
// dependencies, crawling and compiling the project's own source tree with
// the Incremental Compile Engine, and assembling the requested output.
//
// This is the orchestration layer the teacher compiler's own build.Compiler
// played for Chai: one long-lived struct holding the project's resolved
// state, with a single entry point that walks dependency resolution,
// per-module compilation, and linking to completion.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gren-lang/grenc/internal/compile"
	"github.com/gren-lang/grenc/internal/compiler"
	"github.com/gren-lang/grenc/internal/details"
	"github.com/gren-lang/grenc/internal/grenerr"
	"github.com/gren-lang/grenc/internal/iface"
	"github.com/gren-lang/grenc/internal/modname"
	"github.com/gren-lang/grenc/internal/outline"
)

// Compiler drives one project's build. It is reusable across successive
// Make calls (e.g. a file-watcher driving repeated incremental builds); its
// Details are reloaded fresh each time, cheaply, via details.Builder's own
// gren.json-modtime short-circuit.
type Compiler struct {
	Env  details.Env
	Root string
}

func New(env details.Env, root string) *Compiler {
	return &Compiler{Env: env, Root: root}
}

// Options configures one Make call, mirroring the flags of §6's `gren make`.
type Options struct {
	// Entries is the list of .gren paths to build, given on the command
	// line. A package with no entries defaults to every exposed module.
	Entries  []string
	Output   compile.Output
	Optimize bool
	Debug    bool
}

// Result is what a successful Make produces: the graph that was linked and
// the set of modules actually recompiled, for a CLI's own reporting.
type Result struct {
	Recompiled []modname.Raw
	Graph      compiler.GlobalGraph
}

// Make implements §4.3's whole pipeline for the user's own project: resolve
// and build dependencies, crawl local sources, skip what the staleness
// rules permit, compile the rest, link, and assemble the requested output.
func (c *Compiler) Make(ctx context.Context, opts Options) (*Result, error) {
	if err := compile.CheckOptimizeDebugFlags(opts.Optimize, opts.Debug); err != nil {
		return nil, err
	}

	outlinePath := filepath.Join(c.Root, "gren.json")
	out, err := outline.Load(outlinePath, c.Env.RunningCompiler)
	if err != nil {
		return nil, err
	}

	builder := details.NewBuilder(c.Env)
	det, err := builder.Load(ctx, c.Root)
	if err != nil {
		return nil, err
	}

	sourceDirs, kernelDir := sourceLayout(c.Root, out)

	entries, err := c.resolveEntries(opts.Entries, out, sourceDirs)
	if err != nil {
		return nil, err
	}

	crawler := &compile.Crawler{
		SourceDirs: sourceDirs,
		KernelDir:  kernelDir,
		Foreign:    det.Foreign,
		Service:    c.Env.Service,
	}

	order, sources, err := crawler.Crawl(entries)
	if err != nil {
		return nil, err
	}

	gren := filepath.Join(c.Root, ".gren")
	snap, _ := loadSnapshot(gren)

	recompiled, lastChange := applyStaleness(sources, snap, det.BuildID)

	engine := &compile.Engine{Service: c.Env.Service, Package: "main"}
	results, err := engine.Compile(ctx, order, sources)
	if err != nil {
		return nil, err
	}

	graph, hasMain, next, err := c.assemble(results, sources, snap, det.BuildID, lastChange)
	if err != nil {
		return nil, err
	}

	if err := compile.CheckDebugReachability(c.Env.Service, opts.Optimize, graph); err != nil {
		return nil, err
	}

	if err := compile.Assemble(c.Env.Service, opts.Output, graph, entries, hasMain); err != nil {
		return nil, err
	}

	if err := writeSnapshot(gren, next); err != nil {
		return nil, err
	}

	return &Result{Recompiled: recompiled, Graph: graph}, nil
}

// resolveEntries maps command-line .gren paths to module names, or, given
// none and a package outline, defaults to every exposed module — an
// application has no such default and must be given at least one entry.
func (c *Compiler) resolveEntries(paths []string, out *outline.Outline, sourceDirs []string) ([]modname.Raw, error) {
	if len(paths) == 0 {
		if out.Kind == outline.Package {
			entries := make([]modname.Raw, 0, len(out.PackageData.Exposed))
			for raw := range out.PackageData.Exposed {
				entries = append(entries, raw)
			}
			return entries, nil
		}
		return nil, grenerr.NewProjectError(grenerr.ProblemMissingMain, "no entry .gren files given")
	}

	entries := make([]modname.Raw, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		name, ok := entryModule(sourceDirs, abs)
		if !ok {
			return nil, grenerr.NewProjectError(grenerr.ProblemUnknownPath, p)
		}
		entries = append(entries, name)
	}
	return entries, nil
}

func entryModule(sourceDirs []string, abs string) (modname.Raw, bool) {
	for _, dir := range sourceDirs {
		rel, err := filepath.Rel(dir, abs)
		if err != nil || rel == "." || filepath.IsAbs(rel) {
			continue
		}
		if strings.HasPrefix(rel, "..") {
			continue
		}
		name, ok := pathToModule(rel)
		if ok {
			return name, true
		}
	}
	return "", false
}

func sourceLayout(root string, out *outline.Outline) (dirs []string, kernelDir string) {
	switch out.Kind {
	case outline.Application:
		for _, d := range out.ApplicationData.SourceDirectories {
			dirs = append(dirs, filepath.Join(root, d))
		}
		return dirs, ""
	default:
		src := filepath.Join(root, "src")
		kernel := ""
		if _, err := os.Stat(filepath.Join(root, "src-kernel")); err == nil {
			kernel = filepath.Join(root, "src-kernel")
		}
		return []string{src}, kernel
	}
}

func pathToModule(rel string) (modname.Raw, bool) {
	if !strings.HasSuffix(rel, ".gren") {
		return "", false
	}
	trimmed := strings.TrimSuffix(filepath.ToSlash(rel), ".gren")
	name := modname.Raw(strings.ReplaceAll(trimmed, "/", "."))
	return name, name.Valid()
}

// assemble links every module's object graph (freshly compiled or carried
// forward from the previous build via a SourceCached leaf) into one
// GlobalGraph, and builds the next snapshot to persist.
func (c *Compiler) assemble(
	results map[modname.Raw]compile.Result,
	sources map[modname.Raw]compile.ModuleSource,
	prior *snapshot,
	buildID uint64,
	lastChange map[modname.Raw]uint64,
) (compiler.GlobalGraph, func(modname.Raw) bool, *snapshot, error) {
	next := &snapshot{
		Locals:     map[modname.Raw]compile.Local{},
		Graphs:     map[modname.Raw]compiler.LocalGraph{},
		Interfaces: map[modname.Raw]iface.Interface{},
		Main:       map[modname.Raw]bool{},
	}

	var graphs []compiler.LocalGraph
	var kernels []compiler.KernelContent
	mainModules := map[modname.Raw]bool{}

	for name, src := range sources {
		switch src.Kind {
		case compile.SourceKernel:
			kernels = append(kernels, src.KernelContent)
			continue
		case compile.SourceCached:
			if prior != nil {
				if g, ok := prior.Graphs[name]; ok {
					graphs = append(graphs, g)
				}
				if l, ok := prior.Locals[name]; ok {
					next.Locals[name] = l
				}
				if c, ok := prior.Interfaces[name]; ok {
					next.Interfaces[name] = c
				}
				if prior.Main[name] {
					mainModules[name] = true
					next.Main[name] = true
				}
			}
			continue
		case compile.SourceForeign:
			continue
		}

		r, compiled := results[name]
		if !compiled {
			continue
		}
		if r.Err != nil {
			return nil, nil, nil, fmt.Errorf("%s: %w", name, r.Err)
		}

		graphs = append(graphs, r.Artifacts.Objects)
		if _, main := r.Artifacts.Annotations["main"]; main {
			mainModules[name] = true
			next.Main[name] = true
		}

		info, err := os.Stat(src.Local.Path)
		if err != nil {
			return nil, nil, nil, err
		}

		change := lastChange[name]
		if prior == nil {
			change = buildID
		} else if old, ok := prior.Interfaces[name]; !ok || !old.Equal(r.Artifacts.Canonical) {
			change = buildID
		}

		local := compile.Local{
			Module:      name,
			Path:        src.Local.Path,
			ModTime:     info.ModTime(),
			LastChange:  change,
			LastCompile: buildID,
		}
		next.Locals[name] = local
		next.Graphs[name] = r.Artifacts.Objects
		next.Interfaces[name] = r.Artifacts.Canonical
	}

	graph, err := c.Env.Service.LinkGraphs(graphs, kernels)
	if err != nil {
		return nil, nil, nil, err
	}

	hasMain := func(m modname.Raw) bool { return mainModules[m] }
	return graph, hasMain, next, nil
}

// applyStaleness partitions sources into modules that must be recompiled and
// modules a previous build's snapshot already covers (§4.3's staleness
// rules), mutating the fresh ones into SourceCached leaves so the Engine
// never recurses into recompiling them.
func applyStaleness(
	sources map[modname.Raw]compile.ModuleSource,
	prior *snapshot,
	buildID uint64,
) (recompiled []modname.Raw, lastChange map[modname.Raw]uint64) {
	lastChange = map[modname.Raw]uint64{}
	if prior != nil {
		for name, l := range prior.Locals {
			lastChange[name] = l.LastChange
		}
	}

	for name, src := range sources {
		if src.Kind != compile.SourceLocal {
			continue
		}

		info, err := os.Stat(src.Local.Path)
		if err != nil {
			recompiled = append(recompiled, name)
			continue
		}

		var local *compile.Local
		if prior != nil {
			if l, ok := prior.Locals[name]; ok {
				local = &l
			}
		}

		if local != nil && !local.Stale(info.ModTime(), src.Imports, lastChange) {
			if cached, ok := prior.Interfaces[name]; ok {
				src.Kind = compile.SourceCached
				src.CachedIface = cached
				sources[name] = src
				continue
			}
		}

		recompiled = append(recompiled, name)
	}

	return recompiled, lastChange
}
