// Package semver implements Version, the three-component version used by
// the dependency resolver, and Constraint, the half-open range of versions a
// dependency declaration accepts.
package semver

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Version is an (major, minor, patch) triple with lexicographic total order.
type Version struct {
	Major, Minor, Patch uint64
}

// Initial is the only version legal as a package's first published version.
var Initial = Version{Major: 1, Minor: 0, Patch: 0}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other, comparing components in order.
func (v Version) Compare(other Version) int {
	switch {
	case v.Major != other.Major:
		return cmpUint(v.Major, other.Major)
	case v.Minor != other.Minor:
		return cmpUint(v.Minor, other.Minor)
	default:
		return cmpUint(v.Patch, other.Patch)
	}
}

func (v Version) Less(other Version) bool    { return v.Compare(other) < 0 }
func (v Version) Equal(other Version) bool   { return v.Compare(other) == 0 }
func (v Version) GreaterEq(other Version) bool { return v.Compare(other) >= 0 }

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// EncodeMsgpack writes a Version as its three components in order, giving
// the deterministic byte layout §8's round-trip property requires.
func (v Version) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeMulti(v.Major, v.Minor, v.Patch)
}

// DecodeMsgpack is the inverse of EncodeMsgpack.
func (v *Version) DecodeMsgpack(dec *msgpack.Decoder) error {
	return dec.DecodeMulti(&v.Major, &v.Minor, &v.Patch)
}

// Parse reads a "major.minor.patch" string.
func Parse(s string) (Version, error) {
	var v Version
	n, err := fmt.Sscanf(s, "%d.%d.%d", &v.Major, &v.Minor, &v.Patch)
	if err != nil || n != 3 {
		return Version{}, fmt.Errorf("%q is not a valid version (expected major.minor.patch)", s)
	}
	return v, nil
}

// Constraint is the half-open range [Low, High) of acceptable versions.
type Constraint struct {
	Low, High Version
}

// NewConstraint validates Low <= High before constructing the range.
func NewConstraint(low, high Version) (Constraint, error) {
	if high.Less(low) {
		return Constraint{}, fmt.Errorf("constraint lower bound %s must not exceed upper bound %s", low, high)
	}
	return Constraint{Low: low, High: high}, nil
}

// Accepts reports whether v falls within [Low, High).
func (c Constraint) Accepts(v Version) bool {
	return v.GreaterEq(c.Low) && v.Less(c.High)
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s <= v < %s", c.Low, c.High)
}

// Intersect returns the tightest constraint satisfying both c and other, and
// false if the intersection is empty.
func (c Constraint) Intersect(other Constraint) (Constraint, bool) {
	low := c.Low
	if other.Low.Compare(low) > 0 {
		low = other.Low
	}
	high := c.High
	if other.High.Compare(high) < 0 {
		high = other.High
	}
	if high.Less(low) || high.Equal(low) {
		return Constraint{}, false
	}
	return Constraint{Low: low, High: high}, true
}

// EncodeMsgpack writes a Constraint as its two bounds in order.
func (c Constraint) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.Encode(c.Low); err != nil {
		return err
	}
	return enc.Encode(c.High)
}

// DecodeMsgpack is the inverse of EncodeMsgpack.
func (c *Constraint) DecodeMsgpack(dec *msgpack.Decoder) error {
	if err := dec.Decode(&c.Low); err != nil {
		return err
	}
	return dec.Decode(&c.High)
}

// ParseConstraint reads "low <= v < high".
func ParseConstraint(s string) (Constraint, error) {
	var loStr, hiStr string
	n, err := fmt.Sscanf(s, "%s <= v < %s", &loStr, &hiStr)
	if err != nil || n != 2 {
		return Constraint{}, fmt.Errorf("%q is not a valid constraint (expected \"lo <= v < hi\")", s)
	}

	lo, err := Parse(loStr)
	if err != nil {
		return Constraint{}, err
	}
	hi, err := Parse(hiStr)
	if err != nil {
		return Constraint{}, err
	}

	return NewConstraint(lo, hi)
}
