// Package semverguide recommends the next version bump for a package by
// comparing the public interfaces it exposed before and after a change,
// mirroring the informative `gren diff`/`gren bump` rows described
// alongside the Dependency Resolver's own Version/Interface model.
package semverguide

import (
	"github.com/gren-lang/grenc/internal/iface"
	"github.com/gren-lang/grenc/internal/modname"
	"github.com/gren-lang/grenc/internal/semver"
)

// Bump is the minimal version component that must change to legally publish
// new against old, per semantic versioning: removing or narrowing anything
// public is Major, adding anything public is Minor, and no publicly visible
// change at all is Patch.
type Bump int

const (
	Patch Bump = iota
	Minor
	Major
)

func (b Bump) String() string {
	switch b {
	case Major:
		return "MAJOR"
	case Minor:
		return "MINOR"
	default:
		return "PATCH"
	}
}

// Suggest compares a package's exposed-module interfaces before and after a
// change and recommends the version bump required to publish new
// truthfully, reusing Interface.Equal rather than re-deriving structural
// comparison.
func Suggest(old, new map[modname.Raw]iface.Interface) Bump {
	bump := Patch

	for name, oldIface := range old {
		newIface, stillExposed := new[name]
		if !stillExposed {
			return Major // removing an exposed module is always a breaking change
		}
		if moduleBump := compareModule(oldIface, newIface); moduleBump > bump {
			bump = moduleBump
		}
	}

	for name := range new {
		if _, existedBefore := old[name]; !existedBefore {
			if bump < Minor {
				bump = Minor // a newly exposed module is purely additive
			}
		}
	}

	return bump
}

// compareModule recommends the bump required by one module's interface
// change alone: removing or redefining a name is Major, adding one is
// Minor, and no change is Patch.
func compareModule(old, new iface.Interface) Bump {
	if old.Equal(new) {
		return Patch
	}

	bump := Patch

	for name, sig := range old.Types {
		newSig, ok := new.Types[name]
		if !ok || newSig != sig {
			return Major
		}
	}
	for name, sig := range old.Values {
		newSig, ok := new.Values[name]
		if !ok || newSig != sig {
			return Major
		}
	}

	if len(new.Types) > len(old.Types) || len(new.Values) > len(old.Values) {
		bump = Minor
	}

	return bump
}

// Recommend turns a Bump into the next Version, applying semantic
// versioning's reset rule: a Major bump resets minor and patch to zero, a
// Minor bump resets patch to zero, and a Patch bump only advances patch.
func Recommend(current semver.Version, bump Bump) semver.Version {
	switch bump {
	case Major:
		return semver.Version{Major: current.Major + 1, Minor: 0, Patch: 0}
	case Minor:
		return semver.Version{Major: current.Major, Minor: current.Minor + 1, Patch: 0}
	default:
		return semver.Version{Major: current.Major, Minor: current.Minor, Patch: current.Patch + 1}
	}
}
