// Package pkgname implements the PackageName identifier: an author/project
// pair with strict naming rules and a total order.
package pkgname

import (
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Name is an `author/project` package identifier. It compares equal by exact
// string match on both components and orders lexicographically, author
// first.
type Name struct {
	Author  string
	Project string
}

// New validates and constructs a Name from its two components.
func New(author, project string) (Name, error) {
	if err := validateSegment(author); err != nil {
		return Name{}, fmt.Errorf("invalid author %q: %w", author, err)
	}
	if err := validateSegment(project); err != nil {
		return Name{}, fmt.Errorf("invalid project %q: %w", project, err)
	}
	return Name{Author: author, Project: project}, nil
}

// Parse splits a `author/project` string and validates both halves.
func Parse(s string) (Name, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return Name{}, fmt.Errorf("package name %q must have the form author/project", s)
	}
	return New(parts[0], parts[1])
}

func (n Name) String() string {
	return n.Author + "/" + n.Project
}

// Equal reports lexicographic equality of both components.
func (n Name) Equal(other Name) bool {
	return n.Author == other.Author && n.Project == other.Project
}

// Less establishes the total order: author first, then project.
func (n Name) Less(other Name) bool {
	if n.Author != other.Author {
		return n.Author < other.Author
	}
	return n.Project < other.Project
}

// EncodeMsgpack writes a Name as the two-element (author, project) tuple
// the codec package's map-key encoding relies on (§4.4).
func (n Name) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeMulti(n.Author, n.Project)
}

// DecodeMsgpack is the inverse of EncodeMsgpack.
func (n *Name) DecodeMsgpack(dec *msgpack.Decoder) error {
	return dec.DecodeMulti(&n.Author, &n.Project)
}

// validateSegment enforces: lowercase ASCII, hyphens only as separators, no
// leading digit, no double/leading/trailing hyphen.
func validateSegment(s string) error {
	if s == "" {
		return fmt.Errorf("must not be empty")
	}

	if s[0] >= '0' && s[0] <= '9' {
		return fmt.Errorf("must not start with a digit")
	}

	if s[0] == '-' || s[len(s)-1] == '-' {
		return fmt.Errorf("must not start or end with a hyphen")
	}

	prevHyphen := false
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			prevHyphen = false
		case c == '-':
			if prevHyphen {
				return fmt.Errorf("must not contain a double hyphen")
			}
			prevHyphen = true
		default:
			return fmt.Errorf("must be lowercase ASCII with hyphen separators")
		}
	}

	return nil
}
