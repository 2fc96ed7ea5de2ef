package compile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/gren-lang/grenc/internal/compiler"
	"github.com/gren-lang/grenc/internal/grenerr"
	"github.com/gren-lang/grenc/internal/modname"
)

// Output describes the requested build output target: "", "/dev/null",
// "/dev/stdout", or a *.html/*.js path (§6's --output flag).
type Output struct {
	Path string
}

// OutputKind classifies an Output's target, per §4.3's assembly rules.
type OutputKind int

const (
	OutputDiscard OutputKind = iota
	OutputStdout
	OutputHTML
	OutputJS
)

// Kind classifies o, or reports a ProblemBadExtension error if its path
// matches none of the recognized forms.
func (o Output) Kind() (OutputKind, error) {
	switch {
	case o.Path == "" || o.Path == "/dev/null":
		return OutputDiscard, nil
	case o.Path == "/dev/stdout":
		return OutputStdout, nil
	case strings.HasSuffix(o.Path, ".html"):
		return OutputHTML, nil
	case strings.HasSuffix(o.Path, ".js"):
		return OutputJS, nil
	default:
		return 0, grenerr.NewProjectError(grenerr.ProblemBadExtension, o.Path)
	}
}

// Assemble applies §4.3's output-assembly rules to a successfully linked
// GlobalGraph. entries lists every input file's module in command-line
// order; hasMain reports whether a given module defines main.
func Assemble(service compiler.Service, out Output, graph compiler.GlobalGraph, entries []modname.Raw, hasMain func(modname.Raw) bool) error {
	kind, err := out.Kind()
	if err != nil {
		return err
	}

	switch kind {
	case OutputDiscard:
		return nil

	case OutputHTML:
		if len(entries) != 1 {
			return grenerr.NewProjectError(grenerr.ProblemMultipleFilesIntoHTML,
				fmt.Sprintf("%d input files given, --output=*.html accepts exactly one", len(entries)))
		}
		if !hasMain(entries[0]) {
			return grenerr.NewProjectError(grenerr.ProblemMissingMain, string(entries[0]))
		}
		html, err := service.EmitHTML(graph, entries[0])
		if err != nil {
			return err
		}
		return writeAtomically(out.Path, html)

	case OutputJS:
		if err := requireAllMain(entries, hasMain); err != nil {
			return err
		}
		js, err := service.EmitJS(graph, entries)
		if err != nil {
			return err
		}
		return writeAtomically(out.Path, js)

	case OutputStdout:
		if err := requireAllMain(entries, hasMain); err != nil {
			return err
		}
		js, err := service.EmitJS(graph, entries)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(js)
		return err
	}

	return nil
}

func requireAllMain(entries []modname.Raw, hasMain func(modname.Raw) bool) error {
	for _, e := range entries {
		if !hasMain(e) {
			return grenerr.NewProjectError(grenerr.ProblemMissingMain, string(e))
		}
	}
	return nil
}

// writeAtomically writes data to a fresh temp file next to path — named
// with a uuid so two concurrent builds targeting the same output path
// never collide — then renames it into place, so a reader never observes a
// partially written artifact.
func writeAtomically(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, ".grenc-"+uuid.NewString()+".tmp")

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// CheckOptimizeDebugFlags enforces the §4.3 mutual-exclusivity of
// --optimize and --debug at the flag level, before any compilation starts.
func CheckOptimizeDebugFlags(optimize, debug bool) error {
	if optimize && debug {
		return grenerr.NewProjectError(grenerr.ProblemCannotOptimizeDebug, "--optimize and --debug are mutually exclusive")
	}
	return nil
}

// CheckDebugReachability enforces the other half of §4.3's exclusivity
// rule: under --optimize, any reachable use of the Debug module is fatal.
func CheckDebugReachability(service compiler.Service, optimize bool, graph compiler.GlobalGraph) error {
	if !optimize {
		return nil
	}
	modules, used := service.UsesDebug(graph)
	if !used {
		return nil
	}
	names := make([]string, len(modules))
	for i, m := range modules {
		names[i] = string(m)
	}
	return grenerr.NewCannotOptimizeDebugValuesError(names)
}
