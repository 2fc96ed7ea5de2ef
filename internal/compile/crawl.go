// Package compile implements the Incremental Compile Engine of §4.3: the
// import crawler shared by the Project Builder (crawling a dependency
// package's own exposed modules) and the top-level build (crawling a
// project's entry modules), plus the concurrent compile coordinator and
// output assembly rules.
package compile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gren-lang/grenc/internal/compiler"
	"github.com/gren-lang/grenc/internal/foreign"
	"github.com/gren-lang/grenc/internal/grenerr"
	"github.com/gren-lang/grenc/internal/iface"
	"github.com/gren-lang/grenc/internal/modname"
)

// SourceKind discriminates how an import resolved, per §4.2's Crawler
// contract: a local source file, a foreign (dependency) module, or a
// kernel (raw JavaScript) file.
type SourceKind int

const (
	SourceLocal SourceKind = iota
	SourceForeign
	SourceKernel
	// SourceCached marks a local module the caller has determined is not
	// stale (§4.3 staleness rules) and is supplying a previous build's
	// interface for, rather than a file to recompile. It is a leaf for the
	// Engine in exactly the same sense as SourceForeign/SourceKernel: it
	// contributes an interface without triggering a compile of its own.
	SourceCached
)

// LocalFile is one local .gren source file discovered under a source
// directory, keyed by the module name its path implies.
type LocalFile struct {
	Path string
	Dir  string
	Name modname.Raw
}

// ModuleSource is the crawler's resolution for one module name.
type ModuleSource struct {
	Kind    SourceKind
	Local   *LocalFile
	Foreign foreign.Resolution
	Kernel  string // path to the kernel .js file, when Kind == SourceKernel

	// CachedIface is populated for SourceCached modules: the interface a
	// previous build produced for this module, reused because the staleness
	// check found nothing that would change it.
	CachedIface iface.Interface

	// AST and Imports are populated for SourceLocal modules only — the
	// crawl already had to parse the file to discover its imports, so the
	// Engine reuses that parse instead of reading and parsing it again.
	AST     compiler.ModuleAST
	Imports []modname.Raw

	// KernelContent is populated for SourceKernel modules: their own
	// import list plus the raw-JavaScript chunks the linker splices in.
	KernelContent compiler.KernelContent
}

// Crawler resolves import names to local/foreign/kernel modules and orders
// them into a compile-ready DAG, per §4.2's "Crawler" contract.
type Crawler struct {
	SourceDirs []string
	// KernelDir is the directory kernel .js files live under; empty for
	// packages that are not kernel-privileged (§4.2 "Kernel modules").
	KernelDir string
	Foreign   foreign.Map
	Service   compiler.Service

	locals map[modname.Raw]*LocalFile
	kernel map[modname.Raw]string
}

// Crawl discovers every local/kernel source file, then walks the import
// graph rooted at entries (or, for a package build, every exposed module),
// resolving each import, parsing every local module it reaches exactly
// once, and detecting import cycles and ambiguous locals. It returns
// modules in a valid compile order: each module follows every module it
// imports.
func (c *Crawler) Crawl(entries []modname.Raw) ([]modname.Raw, map[modname.Raw]ModuleSource, error) {
	if err := c.index(); err != nil {
		return nil, nil, err
	}

	sources := map[modname.Raw]ModuleSource{}
	var order []modname.Raw
	visiting := map[modname.Raw]bool{}
	visited := map[modname.Raw]bool{}
	var stack []modname.Raw

	var visit func(name modname.Raw) error
	visit = func(name modname.Raw) error {
		if visited[name] {
			return nil
		}
		if visiting[name] {
			cycle := append(append([]modname.Raw{}, stack...), name)
			return grenerr.NewProjectError(grenerr.ProblemImportCycle, cycleString(cycle))
		}

		src, err := c.resolve(name)
		if err != nil {
			return err
		}

		if src.Kind != SourceLocal {
			sources[name] = src
			visited[name] = true
			order = append(order, name)
			return nil
		}

		raw, err := os.ReadFile(src.Local.Path)
		if err != nil {
			return err
		}
		ast, imports, err := c.Service.ParseModule(src.Local.Path, raw)
		if err != nil {
			return grenerr.NewBadModuleError(string(name), err)
		}
		src.AST = ast
		src.Imports = imports
		sources[name] = src

		visiting[name] = true
		stack = append(stack, name)

		for _, dep := range imports {
			if err := visit(dep); err != nil {
				return err
			}
			if r, ok := sources[dep]; ok && r.Kind == SourceForeign && r.Foreign.Ambiguous {
				return grenerr.NewProjectError(grenerr.ProblemAmbiguousForeign,
					fmt.Sprintf("%s imported by %s resolves to more than one dependency: %v", dep, name, r.Foreign.Candidates))
			}
		}

		stack = stack[:len(stack)-1]
		visiting[name] = false
		visited[name] = true
		order = append(order, name)
		return nil
	}

	for _, e := range entries {
		if err := visit(e); err != nil {
			return nil, nil, err
		}
	}

	return order, sources, nil
}

func (c *Crawler) resolve(name modname.Raw) (ModuleSource, error) {
	if lf, ok := c.locals[name]; ok {
		return ModuleSource{Kind: SourceLocal, Local: lf}, nil
	}
	if res, ok := c.Foreign[name]; ok {
		return ModuleSource{Kind: SourceForeign, Foreign: res}, nil
	}
	if path, ok := c.kernel[name]; ok {
		raw, err := os.ReadFile(path)
		if err != nil {
			return ModuleSource{}, err
		}
		content, err := c.Service.ParseKernel(path, raw)
		if err != nil {
			return ModuleSource{}, grenerr.NewBadModuleError(string(name), err)
		}
		return ModuleSource{Kind: SourceKernel, Kernel: path, KernelContent: content}, nil
	}
	return ModuleSource{}, grenerr.NewProjectError(grenerr.ProblemUnknownPath, string(name))
}

// index walks SourceDirs (and KernelDir, if set) once, building the local
// and kernel module tables and rejecting ambiguous locals: two source
// directories that both define the same module name.
func (c *Crawler) index() error {
	c.locals = map[modname.Raw]*LocalFile{}
	c.kernel = map[modname.Raw]string{}

	for _, dir := range c.SourceDirs {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".gren") {
				return nil
			}

			name, ok := moduleNameForPath(dir, path)
			if !ok {
				return grenerr.NewProjectError(grenerr.ProblemBadExtension, path)
			}

			if existing, dup := c.locals[name]; dup {
				return grenerr.NewProjectError(grenerr.ProblemAmbiguousLocal,
					fmt.Sprintf("%s found in both %s and %s", name, existing.Dir, dir))
			}

			c.locals[name] = &LocalFile{Path: path, Dir: dir, Name: name}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if c.KernelDir == "" {
		return nil
	}

	return filepath.WalkDir(c.KernelDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".js") {
			return nil
		}
		name, ok := moduleNameForPath(c.KernelDir, strings.TrimSuffix(path, ".js")+".gren")
		if !ok {
			return grenerr.NewProjectError(grenerr.ProblemBadExtension, path)
		}
		c.kernel[name] = path
		return nil
	})
}

// moduleNameForPath derives a dot-separated module name from a source
// file's path relative to its source directory, e.g.
// "<dir>/Html/Attributes.gren" -> "Html.Attributes".
func moduleNameForPath(dir, path string) (modname.Raw, bool) {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return "", false
	}
	rel = strings.TrimSuffix(rel, ".gren")
	segments := strings.Split(filepath.ToSlash(rel), "/")
	name := modname.Raw(strings.Join(segments, "."))
	return name, name.Valid()
}

func cycleString(cycle []modname.Raw) string {
	parts := make([]string, len(cycle))
	for i, m := range cycle {
		parts[i] = string(m)
	}
	return strings.Join(parts, " -> ")
}
