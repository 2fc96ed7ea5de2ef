package compile

import (
	"time"

	"github.com/gren-lang/grenc/internal/modname"
)

// Local is the persisted per-module record the staleness rules of §4.3
// compare against, one entry per module in .gren/objects.dat.
type Local struct {
	Module      modname.Raw
	Path        string
	ModTime     time.Time
	LastChange  uint64 // buildID at which this module's interface last changed
	LastCompile uint64 // buildID at which this module was last successfully compiled
}

// Stale reports whether a module needs recompiling. Preserves the rationale
// of §4.3: time-*equality* (not inequality) catches both edits and
// checkout-to-an-older-revision, and comparing on interface-change buildID
// rather than compile buildID lets a multi-entry-point project skip
// recompiling a downstream module when a dependency's bytes changed but its
// exported interface did not.
func (l *Local) Stale(currentModTime time.Time, imports []modname.Raw, lastChange map[modname.Raw]uint64) bool {
	if l == nil {
		return true
	}
	if !l.ModTime.Equal(currentModTime) {
		return true
	}
	for _, imp := range imports {
		if lastChange[imp] > l.LastCompile {
			return true
		}
	}
	return false
}
