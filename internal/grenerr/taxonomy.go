// Package grenerr implements the error taxonomy of §7: typed diagnostics
// for each of the core's layers (Outline, Solver, Details, Build, Generate,
// Docs, Publish), plus the accumulating Reporter that renders them either as
// ANSI terminal output or as the --report=json machine-readable schema.
//
// Errors are always surfaced as typed values; nothing in this package
// panics on a user-induced error.
package grenerr

import "github.com/gren-lang/grenc/internal/pkgname"

// Kind identifies which of the seven taxonomy buckets a Diagnostic belongs
// to. The Reporter carries it as each diagnostic's kind in its JSON output;
// the command boundary renders every kind the same way.
type Kind string

const (
	KindOutline Kind = "outline"
	KindSolver  Kind = "solver"
	KindDetails Kind = "details"
	KindBuild   Kind = "build"
	KindGenerate Kind = "generate"
	KindDocs    Kind = "docs"
	KindPublish Kind = "publish"
)

// Region is a byte-offset-addressable span in a source file, carrying both
// the byte range and the row/column a snippet renderer needs (§6 "itemized
// with byte-offset regions (row, col)").
type Region struct {
	Path             string
	StartByte, EndByte int
	StartLine, StartCol int
	EndLine, EndCol     int
}

// Diagnostic is the common shape every taxonomy error exposes to the
// Reporter: which bucket it belongs to, a human message, and an optional
// source region for snippet rendering.
type Diagnostic interface {
	error
	Kind() Kind
	Region() *Region
}

// base is embedded by every concrete diagnostic type to provide the Kind
// and Region accessors; concrete types only need to supply Error().
type base struct {
	kind   Kind
	region *Region
}

func (b base) Kind() Kind      { return b.kind }
func (b base) Region() *Region { return b.region }

// -----------------------------------------------------------------------------
// Outline errors (§7 "structural, schema, or value errors in gren.json")

type OutlineError struct {
	base
	Message string
}

func (e *OutlineError) Error() string { return e.Message }

func NewOutlineError(message string, region *Region) *OutlineError {
	return &OutlineError{base: base{kind: KindOutline, region: region}, Message: message}
}

// -----------------------------------------------------------------------------
// Solver errors (§4.1, §7)

type NoSolutionError struct{ base }

func (e *NoSolutionError) Error() string {
	return "no dependency solution satisfies all constraints"
}

func NewNoSolutionError() *NoSolutionError { return &NoSolutionError{base{kind: KindSolver}} }

type NoOfflineSolutionError struct{ base }

func (e *NoOfflineSolutionError) Error() string {
	return "registry is unreachable and no solution exists using only locally cached packages"
}

func NewNoOfflineSolutionError() *NoOfflineSolutionError {
	return &NoOfflineSolutionError{base{kind: KindSolver}}
}

type BadCachedOutlineError struct {
	base
	Package pkgname.Name
	Err     error
}

func (e *BadCachedOutlineError) Error() string {
	return "corrupt cached outline for " + e.Package.String() + ": " + e.Err.Error()
}
func (e *BadCachedOutlineError) Unwrap() error { return e.Err }

func NewBadCachedOutlineError(pkg pkgname.Name, err error) *BadCachedOutlineError {
	return &BadCachedOutlineError{base: base{kind: KindSolver}, Package: pkg, Err: err}
}

type GitFailureError struct {
	base
	Operation string
	Err       error
}

func (e *GitFailureError) Error() string { return "git " + e.Operation + ": " + e.Err.Error() }
func (e *GitFailureError) Unwrap() error { return e.Err }

func NewGitFailureError(operation string, err error) *GitFailureError {
	return &GitFailureError{base: base{kind: KindSolver}, Operation: operation, Err: err}
}

// -----------------------------------------------------------------------------
// Details errors (§4.2, §7)

type BadCompilerVersionError struct {
	base
	Have, Want string
}

func (e *BadCompilerVersionError) Error() string {
	return "project requires compiler v" + e.Want + ", running v" + e.Have
}

func NewBadCompilerVersionError(have, want string) *BadCompilerVersionError {
	return &BadCompilerVersionError{base: base{kind: KindDetails}, Have: have, Want: want}
}

type HandEditedDependenciesError struct{ base }

func (e *HandEditedDependenciesError) Error() string {
	return "dependencies in gren.json were edited by hand; run `gren install` to regenerate a solution"
}

func NewHandEditedDependenciesError() *HandEditedDependenciesError {
	return &HandEditedDependenciesError{base{kind: KindDetails}}
}

type PackageBuildError struct {
	base
	Package     pkgname.Name
	Version     string
	Fingerprint string
	Err         error
}

func (e *PackageBuildError) Error() string {
	return "building " + e.Package.String() + "@" + e.Version + " (fingerprint " + e.Fingerprint + "): " + e.Err.Error()
}
func (e *PackageBuildError) Unwrap() error { return e.Err }

func NewPackageBuildError(pkg pkgname.Name, version, fingerprint string, err error) *PackageBuildError {
	return &PackageBuildError{base: base{kind: KindDetails}, Package: pkg, Version: version, Fingerprint: fingerprint, Err: err}
}

// -----------------------------------------------------------------------------
// Build errors (§4.3, §7)

type BadModuleError struct {
	base
	Module string
	Err    error
}

func (e *BadModuleError) Error() string { return e.Module + ": " + e.Err.Error() }
func (e *BadModuleError) Unwrap() error { return e.Err }

func NewBadModuleError(module string, err error) *BadModuleError {
	return &BadModuleError{base: base{kind: KindBuild}, Module: module, Err: err}
}

// ProjectProblem enumerates the project-level, non-compiler build errors of
// §7: unknown path, bad extension, ambiguous source dir, duplicate main
// path, module-name clash, file/module-name mismatch, import cycle, missing
// exposed, ambiguous exposed.
type ProjectProblem string

const (
	ProblemUnknownPath          ProjectProblem = "unknown-path"
	ProblemBadExtension         ProjectProblem = "bad-extension"
	ProblemAmbiguousSourceDir   ProjectProblem = "ambiguous-source-dir"
	ProblemDuplicateMainPath    ProjectProblem = "duplicate-main-path"
	ProblemModuleNameClash      ProjectProblem = "module-name-clash"
	ProblemFileModuleMismatch   ProjectProblem = "file-module-mismatch"
	ProblemImportCycle          ProjectProblem = "import-cycle"
	ProblemMissingExposed       ProjectProblem = "missing-exposed"
	ProblemAmbiguousExposed     ProjectProblem = "ambiguous-exposed"
	ProblemAmbiguousLocal       ProjectProblem = "ambiguous-local"
	ProblemAmbiguousForeign     ProjectProblem = "ambiguous-foreign-import"
	ProblemCannotOptimizeDebug  ProjectProblem = "cannot-optimize-and-debug"
	ProblemMultipleFilesIntoHTML ProjectProblem = "multiple-files-into-html"
	ProblemMissingMain          ProjectProblem = "missing-main"
)

type ProjectError struct {
	base
	Problem ProjectProblem
	Detail  string
}

func (e *ProjectError) Error() string {
	if e.Detail == "" {
		return string(e.Problem)
	}
	return string(e.Problem) + ": " + e.Detail
}

func NewProjectError(problem ProjectProblem, detail string) *ProjectError {
	return &ProjectError{base: base{kind: KindBuild}, Problem: problem, Detail: detail}
}

// -----------------------------------------------------------------------------
// Generate errors (§4.3, §4.4, §7)

type CorruptCacheError struct {
	base
	Path string
	Err  error
}

func (e *CorruptCacheError) Error() string {
	return "corrupt cache at " + e.Path + " (" + e.Err.Error() + "); delete it and rebuild"
}
func (e *CorruptCacheError) Unwrap() error { return e.Err }

func NewCorruptCacheError(path string, err error) *CorruptCacheError {
	return &CorruptCacheError{base: base{kind: KindGenerate}, Path: path, Err: err}
}

type CannotOptimizeDebugValuesError struct {
	base
	Modules []string
}

func (e *CannotOptimizeDebugValuesError) Error() string {
	msg := "cannot --optimize: the Debug module is reachable from"
	for i, m := range e.Modules {
		if i > 0 {
			msg += ","
		}
		msg += " " + m
	}
	return msg
}

func NewCannotOptimizeDebugValuesError(modules []string) *CannotOptimizeDebugValuesError {
	return &CannotOptimizeDebugValuesError{base: base{kind: KindGenerate}, Modules: modules}
}

// -----------------------------------------------------------------------------
// Docs errors (§7)

type DocsError struct {
	base
	Message string
	Err     error
}

func (e *DocsError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}
func (e *DocsError) Unwrap() error { return e.Err }

func NewDocsError(message string, err error) *DocsError {
	return &DocsError{base: base{kind: KindDocs}, Message: message, Err: err}
}

// -----------------------------------------------------------------------------
// Publish errors (§7)

type PublishProblem string

const (
	PublishInvalidVersionProgression PublishProblem = "invalid-version-progression"
	PublishMissingSummary            PublishProblem = "missing-summary"
	PublishMissingReadme             PublishProblem = "missing-readme"
	PublishMissingLicense            PublishProblem = "missing-license"
	PublishMissingGitTag             PublishProblem = "missing-git-tag"
	PublishUncommittedChanges        PublishProblem = "uncommitted-local-changes"
)

type PublishError struct {
	base
	Problem PublishProblem
	Detail  string
}

func (e *PublishError) Error() string {
	if e.Detail == "" {
		return string(e.Problem)
	}
	return string(e.Problem) + ": " + e.Detail
}

func NewPublishError(problem PublishProblem, detail string) *PublishError {
	return &PublishError{base: base{kind: KindPublish}, Problem: problem, Detail: detail}
}
