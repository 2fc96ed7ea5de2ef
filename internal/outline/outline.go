// Package outline loads and validates gren.json: the project manifest. An
// Outline is created fresh on every reload and never mutated in place (§3
// "Lifecycles").
package outline

import (
	"github.com/gren-lang/grenc/internal/modname"
	"github.com/gren-lang/grenc/internal/pkgname"
	"github.com/gren-lang/grenc/internal/platform"
	"github.com/gren-lang/grenc/internal/semver"
)

// Kind discriminates the two gren.json schemas of §6.
type Kind int

const (
	Application Kind = iota
	Package
)

// Outline is the validated, in-memory form of gren.json. Exactly one of
// ApplicationData/PackageData is populated, selected by Kind.
type Outline struct {
	Kind Kind

	ApplicationData *ApplicationOutline
	PackageData     *PackageOutline
}

// ApplicationOutline is the application variant of §3/§6.
type ApplicationOutline struct {
	CompilerVersion    semver.Version
	RootPlatform       platform.Platform
	SourceDirectories  []string
	DirectDeps         map[pkgname.Name]semver.Version
	IndirectDeps       map[pkgname.Name]semver.Version
}

// PackageOutline is the package (library) variant of §3/§6.
type PackageOutline struct {
	Name           pkgname.Name
	Version        semver.Version
	Summary        string
	License        string
	RootPlatform   platform.Platform
	GrenConstraint semver.Constraint
	// Exposed is the flattened exposed-module list; Headers preserves the
	// optional nested "Header: [modules]" grouping from the manifest for
	// faithful round-tripping (§6 allows either a flat list or a header map).
	Exposed map[modname.Raw]bool
	Headers map[string][]modname.Raw
	Direct  map[pkgname.Name]semver.Constraint
}

// goodGren reports whether a gren-version constraint accepts the given
// running compiler version — the "accept-current-compiler" predicate §3's
// invariants and §4.2's BadCompilerVersion error both rely on.
func goodGren(c semver.Constraint, running semver.Version) bool {
	return c.Accepts(running)
}

// Validate checks the cross-field invariants of §3 that a syntactically
// valid gren.json can still violate: application direct/indirect deps must
// be disjoint, and a package's own gren-version constraint must accept the
// compiler that is loading it.
func (o *Outline) Validate(runningCompiler semver.Version) error {
	switch o.Kind {
	case Application:
		app := o.ApplicationData
		for pkg := range app.DirectDeps {
			if _, isIndirect := app.IndirectDeps[pkg]; isIndirect {
				return &disjointError{pkg: pkg}
			}
		}
		if app.CompilerVersion != runningCompiler {
			return &compilerMismatchError{have: runningCompiler, want: app.CompilerVersion}
		}
		if len(app.SourceDirectories) == 0 {
			return errSourceDirsEmpty
		}
	case Package:
		pkg := o.PackageData
		if !goodGren(pkg.GrenConstraint, runningCompiler) {
			return &compilerMismatchError{have: runningCompiler, want: semver.Version{}, constraint: pkg.GrenConstraint}
		}
		if len(pkg.Exposed) == 0 {
			return errExposedEmpty
		}
	}
	return nil
}

type disjointError struct{ pkg pkgname.Name }

func (e *disjointError) Error() string {
	return "package " + e.pkg.String() + " appears in both direct and indirect dependencies"
}

type compilerMismatchError struct {
	have       semver.Version
	want       semver.Version
	constraint semver.Constraint
}

func (e *compilerMismatchError) Error() string {
	if e.constraint != (semver.Constraint{}) {
		return "running compiler v" + e.have.String() + " is not accepted by gren-version constraint " + e.constraint.String()
	}
	return "project requires compiler v" + e.want.String() + ", running v" + e.have.String()
}

var (
	errSourceDirsEmpty = simpleErr("application must declare at least one source directory")
	errExposedEmpty    = simpleErr("package must expose at least one module")
)

type simpleErr string

func (e simpleErr) Error() string { return string(e) }
