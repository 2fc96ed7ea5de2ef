// Package compiler declares the black-box services the build orchestration
// core depends on but does not implement: the parser, type checker,
// optimizer, and JavaScript code generator. §1 of the specification scopes
// these out of the core; this package is the seam between the core and
// whatever concrete implementation a host links in.
package compiler

import (
	"github.com/gren-lang/grenc/internal/iface"
	"github.com/gren-lang/grenc/internal/modname"
)

// ModuleAST is an opaque parse result for one source file. The core never
// looks inside it; it is produced by ParseModule and threaded through to
// CompileModule unchanged.
type ModuleAST interface{}

// KernelContent is the parsed form of a raw-JavaScript kernel module: its
// own import list plus the verbatim chunks of source the linker splices
// into the final output (§4.2 "Kernel modules").
type KernelContent struct {
	Imports []modname.Raw
	Chunks  []string
}

// LocalGraph is one module's optimized intermediate representation.
type LocalGraph interface{}

// GlobalGraph is the result of linking every module's LocalGraph across an
// entire package or project.
type GlobalGraph interface{}

// Artifacts is what a successful module compile produces: its canonical
// interface, the union/alias structural detail privatization needs to
// preserve, any annotation metadata the optimizer/codegen stage needs, and
// its local object graph.
type Artifacts struct {
	Canonical   iface.Interface
	Unions      []iface.UnionInfo
	Aliases     []iface.AliasInfo
	Annotations map[string]string
	Objects     LocalGraph
}

// Snapshot extracts the interface-visibility-relevant subset of Artifacts.
func (a Artifacts) Snapshot() iface.Snapshot {
	return iface.Snapshot{Iface: a.Canonical, Unions: a.Unions, Aliases: a.Aliases}
}

// VisibleInterfaces is the set of interfaces a module may reference while
// compiling: the project-wide foreign table plus its own local siblings.
type VisibleInterfaces map[modname.Raw]iface.DependencyInterface

// Service is the contract the Incremental Compile Engine and Project
// Builder hold against the external compiler. A host links in a concrete
// implementation (parser + type checker + optimizer + code generator); the
// core only ever calls through this interface.
type Service interface {
	// ParseModule parses one source file into an opaque AST and the list of
	// raw module names it imports, in source order.
	ParseModule(path string, src []byte) (ModuleAST, []modname.Raw, error)

	// ParseKernel parses a raw-JavaScript kernel module (§4.2).
	ParseKernel(path string, src []byte) (KernelContent, error)

	// CompileModule type-checks and lowers one module, given the package it
	// belongs to, the interfaces of everything it may reference, and its
	// own AST. It is the single point where the core hands control to the
	// compiler proper.
	CompileModule(pkg string, visible VisibleInterfaces, ast ModuleAST) (Artifacts, error)

	// LinkGraphs joins every module's LocalGraph in a package, together
	// with any kernel modules' raw-JavaScript chunks, into one GlobalGraph
	// (§3 "Artifacts", §4.2 "Kernel modules").
	LinkGraphs(graphs []LocalGraph, kernels []KernelContent) (GlobalGraph, error)

	// UsesDebug reports whether a GlobalGraph has a reachable use of the
	// Debug module, for the --optimize/Debug exclusivity check (§4.3).
	UsesDebug(g GlobalGraph) (modules []modname.Raw, used bool)

	// EmitHTML and EmitJS are the JS code-generation entry points named in
	// §4.3's output-assembly rules.
	EmitHTML(g GlobalGraph, entry modname.Raw) ([]byte, error)
	EmitJS(g GlobalGraph, entries []modname.Raw) ([]byte, error)
}
