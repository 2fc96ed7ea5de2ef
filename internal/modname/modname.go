// Package modname implements ModuleName: a raw, dot-separated module path as
// it appears in an import statement, and its canonical form once resolved to
// the package that owns it.
package modname

import (
	"strings"

	"github.com/gren-lang/grenc/internal/pkgname"
)

// Raw is a dot-separated module name whose segments are each capitalized,
// e.g. "Html.Attributes". Raw names compare as opaque strings.
type Raw string

// Segments splits a Raw name on its dots.
func (r Raw) Segments() []string {
	return strings.Split(string(r), ".")
}

// Valid reports whether every segment of r is capitalized and non-empty.
func (r Raw) Valid() bool {
	segs := r.Segments()
	if len(segs) == 0 {
		return false
	}
	for _, seg := range segs {
		if seg == "" || seg[0] < 'A' || seg[0] > 'Z' {
			return false
		}
	}
	return true
}

// Canonical pairs a Raw module name with the package that owns it, uniquely
// identifying a module across an entire dependency solution.
type Canonical struct {
	Package pkgname.Name
	Raw     Raw
}

func (c Canonical) String() string {
	return c.Package.String() + ":" + string(c.Raw)
}

// Equal compares both the owning package and the raw name.
func (c Canonical) Equal(other Canonical) bool {
	return c.Package.Equal(other.Package) && c.Raw == other.Raw
}
