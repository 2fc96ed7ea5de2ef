// Package artifact models the per-package build output the Project Builder
// produces and persists: Fingerprint, Artifacts, and the on-disk
// ArtifactCache that wraps them.
package artifact

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/gren-lang/grenc/internal/codec"
	"github.com/gren-lang/grenc/internal/compiler"
	"github.com/gren-lang/grenc/internal/iface"
	"github.com/gren-lang/grenc/internal/modname"
	"github.com/gren-lang/grenc/internal/pkgname"
	"github.com/gren-lang/grenc/internal/semver"
)

// Fingerprint is the exact version of every direct dependency a package was
// built against. The same package version can have multiple valid
// fingerprints, because its direct-dep resolutions can vary across projects
// that depend on it (§3).
type Fingerprint map[pkgname.Name]semver.Version

// EncodeMsgpack writes a Fingerprint as a key-sorted sequence of pairs, so
// its bytes don't depend on Go's randomized map iteration order.
func (f Fingerprint) EncodeMsgpack(enc *msgpack.Encoder) error {
	return codec.EncodePkgMap(enc, map[pkgname.Name]semver.Version(f))
}

// DecodeMsgpack is the inverse of EncodeMsgpack.
func (f *Fingerprint) DecodeMsgpack(dec *msgpack.Decoder) error {
	var m map[pkgname.Name]semver.Version
	if err := codec.DecodePkgMap(dec, &m); err != nil {
		return err
	}
	*f = Fingerprint(m)
	return nil
}

// Equal compares two fingerprints entry-by-entry.
func (f Fingerprint) Equal(other Fingerprint) bool {
	if len(f) != len(other) {
		return false
	}
	for pkg, v := range f {
		if ov, ok := other[pkg]; !ok || !ov.Equal(v) {
			return false
		}
	}
	return true
}

// Artifacts is a package's build output: the raw-name-keyed table of
// exposed-module snapshots (visibility-untagged; a package's cache is
// shared across every consumer regardless of that consumer's direct/
// transitive status) plus the linked optimized graph.
type Artifacts struct {
	Interfaces map[modname.Raw]iface.Snapshot
	Graph      compiler.GlobalGraph
}

// Cache is the persisted, append-only record of every fingerprint a package
// version has successfully been built against, alongside the Artifacts from
// the most recent build (§3 "Lifecycles": append-only on fingerprint set,
// never garbage-collected during a run).
type Cache struct {
	Fingerprints []Fingerprint
	Artifacts    Artifacts
}

// Satisfies reports whether the cache already has a recorded build for fp,
// meaning the stored Artifacts can be reused without rebuilding (§4.2 step
// 3).
func (c *Cache) Satisfies(fp Fingerprint) bool {
	for _, known := range c.Fingerprints {
		if known.Equal(fp) {
			return true
		}
	}
	return false
}

// WithFingerprint returns a copy of the cache with fp appended and
// artifacts replacing the stored build output. The fingerprint set only
// grows; prior entries are never evicted.
func (c *Cache) WithFingerprint(fp Fingerprint, artifacts Artifacts) *Cache {
	next := &Cache{
		Fingerprints: append(append([]Fingerprint{}, c.Fingerprints...), fp),
		Artifacts:    artifacts,
	}
	return next
}
