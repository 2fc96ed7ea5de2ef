package compile

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/gren-lang/grenc/internal/compiler"
	"github.com/gren-lang/grenc/internal/iface"
	"github.com/gren-lang/grenc/internal/modname"
)

// Result is one module's compile outcome. Err is set on a module-local
// failure (parse or type-check error from the external compiler); it never
// aborts sibling compiles (§4.3 "siblings continue").
type Result struct {
	Module    modname.Raw
	Artifacts compiler.Artifacts
	Err       error
}

// Engine runs the concurrent compile coordination of §4.3 over a crawled
// module set: each module awaits the Result of every import before
// invoking the external compiler service.
type Engine struct {
	Service compiler.Service
	// Package identifies the package being built, passed through to
	// CompileModule unchanged.
	Package string
}

// Compile runs every module in order (any topological order the crawler
// produced) concurrently, using a singleflight.Group so a module imported
// by several siblings is only ever compiled once — the "shared mutable map
// of futures" of §9 reduced to its idiomatic Go shape: readers of the same
// key block on the first caller's in-flight call and share its result.
func (e *Engine) Compile(
	ctx context.Context,
	order []modname.Raw,
	sources map[modname.Raw]ModuleSource,
) (map[modname.Raw]Result, error) {
	var group singleflight.Group
	eg, ctx := errgroup.WithContext(ctx)

	// done keeps each finished result, since singleflight forgets a key as
	// soon as its in-flight call returns.
	var done sync.Map

	var compileOne func(name modname.Raw) (Result, error)
	compileOne = func(name modname.Raw) (Result, error) {
		v, err, _ := group.Do(string(name), func() (any, error) {
			if r, ok := done.Load(name); ok {
				return r, nil
			}
			r, err := e.compileModule(ctx, name, sources, compileOne)
			if err == nil {
				done.Store(name, r)
			}
			return r, err
		})
		if err != nil {
			return Result{}, err
		}
		return v.(Result), nil
	}

	var mu sync.Mutex
	results := make(map[modname.Raw]Result, len(order))

	for _, name := range order {
		name := name
		eg.Go(func() error {
			r, err := compileOne(name)
			if err != nil {
				return err
			}
			mu.Lock()
			results[name] = r
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// compileModule compiles a single local module, recursing into compileOne
// for each of its imports. Foreign and kernel imports are leaves: they
// contribute an already-resolved interface (or nothing, for kernel) rather
// than triggering a compile of their own.
func (e *Engine) compileModule(
	ctx context.Context,
	name modname.Raw,
	sources map[modname.Raw]ModuleSource,
	compileOne func(modname.Raw) (Result, error),
) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	src := sources[name]
	if src.Kind != SourceLocal {
		return Result{Module: name}, nil
	}

	visible := compiler.VisibleInterfaces{}
	for _, imp := range src.Imports {
		switch impSrc := sources[imp]; impSrc.Kind {
		case SourceLocal:
			r, err := compileOne(imp)
			if err != nil {
				return Result{}, err
			}
			if r.Err != nil {
				return Result{Module: name, Err: fmt.Errorf("dependency %s did not compile", imp)}, nil
			}
			visible[imp] = iface.Public(r.Artifacts.Canonical)
		case SourceForeign:
			visible[imp] = impSrc.Foreign.Iface
		case SourceCached:
			visible[imp] = iface.Public(impSrc.CachedIface)
		case SourceKernel:
			// Kernel modules contribute chunks to the object graph, not an
			// interface; nothing to add here.
		}
	}

	artifacts, err := e.Service.CompileModule(e.Package, visible, src.AST)
	return Result{Module: name, Artifacts: artifacts, Err: err}, nil
}
