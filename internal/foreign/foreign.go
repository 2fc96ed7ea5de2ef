// Package foreign models the project-wide table of dependency modules
// visible to user code, and the ambiguity a raw module name can carry when
// more than one dependency exposes it (§4.2 "Foreign ambiguity").
package foreign

import (
	"github.com/gren-lang/grenc/internal/iface"
	"github.com/gren-lang/grenc/internal/modname"
	"github.com/gren-lang/grenc/internal/pkgname"
)

// Resolution is what a raw module name resolves to in the foreign table:
// exactly one exposing package (Specific), or more than one (Ambiguous, in
// which case Iface is the zero value and only Candidates is meaningful).
type Resolution struct {
	Iface      iface.DependencyInterface
	Ambiguous  bool
	Candidates []pkgname.Name
}

// Map is the project-wide foreign table built by the Project Builder and
// consumed by the Incremental Compile Engine's crawler.
type Map map[modname.Raw]Resolution

// Build aggregates every solved package's exposed modules into a Map,
// applying the interface visibility rule of §4.2: direct dependencies
// contribute Public interfaces, everything else contributes Private ones
// (the privatize transform must already have been applied by the caller
// when constructing exposing[pkg]).
//
// A module name exposed by more than one package becomes Ambiguous; this is
// not itself an error (§4.2: "the ambiguity is NOT an error at solver
// time"), it only surfaces as one at the import site that resolves it.
func Build(exposing map[pkgname.Name]map[modname.Raw]iface.DependencyInterface) Map {
	out := Map{}
	owners := map[modname.Raw][]pkgname.Name{}

	for pkg, modules := range exposing {
		for raw, di := range modules {
			owners[raw] = append(owners[raw], pkg)
			if _, ok := out[raw]; !ok {
				out[raw] = Resolution{Iface: di, Candidates: owners[raw]}
			} else {
				out[raw] = Resolution{Ambiguous: true, Candidates: owners[raw]}
			}
		}
	}

	return out
}
