// Package iface models the public signature of a compiled module and the
// visibility rules the Project Builder enforces at package boundaries.
package iface

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/gren-lang/grenc/internal/modname"
)

// TypeSig is a single exported type's canonical signature, as produced by
// the external type checker. The core never inspects its contents; it only
// stores, compares, and persists it.
type TypeSig string

// ValueSig is a single exported value's canonical type.
type ValueSig struct {
	Name string
	Type TypeSig
}

// Interface is the exported surface of one compiled module.
type Interface struct {
	Module ModuleInfo
	Types  map[string]TypeSig
	Values map[string]ValueSig
}

// ModuleInfo names the module an Interface belongs to.
type ModuleInfo struct {
	Raw modname.Raw
}

// Equal reports whether two interfaces are structurally identical. This is
// the "did the interface change" predicate the Incremental Compile Engine
// uses to decide whether lastChange should advance (§4.3 staleness rules).
func (i Interface) Equal(other Interface) bool {
	if i.Module.Raw != other.Module.Raw {
		return false
	}
	if len(i.Types) != len(other.Types) || len(i.Values) != len(other.Values) {
		return false
	}
	for name, sig := range i.Types {
		if other.Types[name] != sig {
			return false
		}
	}
	for name, sig := range i.Values {
		if otherSig, ok := other.Values[name]; !ok || otherSig != sig {
			return false
		}
	}
	return true
}

// UnionInfo and AliasInfo carry the extra structural detail a privatized
// interface still needs to expose to the type checker (constructors of a
// union type, or the underlying type of an alias) even though the interface
// itself is hidden from non-direct consumers.
type UnionInfo struct {
	Name         string
	Constructors []string
}

type AliasInfo struct {
	Name       string
	Underlying TypeSig
}

// DependencyInterface is a dependency's interface tagged with its visibility
// to the current consumer.
type DependencyInterface struct {
	Iface Interface

	// Private is true when this interface was privatized: only Iface's
	// unions and aliases remain visible, not fully copyable types/values.
	Private bool
	Unions  []UnionInfo
	Aliases []AliasInfo
}

// Snapshot is a compiled module's exported interface together with the
// extra structural detail (union constructors, alias underlying types) a
// transitive consumer still needs once privatization has hidden the
// interface. A package's own artifact cache stores Snapshots — visibility is a
// property of the *consumer*, not the package build, so it is applied only
// when a project aggregates dependency interfaces into its foreign table
// (§4.2).
type Snapshot struct {
	Iface   Interface
	Unions  []UnionInfo
	Aliases []AliasInfo
}

// AsPublic tags s as visible without restriction, for a direct dependency's
// exposed module.
func (s Snapshot) AsPublic() DependencyInterface { return Public(s.Iface) }

// AsPrivate applies the privatize transform, for a transitive dependency's
// exposed module.
func (s Snapshot) AsPrivate() DependencyInterface { return Privatize(s.Iface, s.Unions, s.Aliases) }

// Public wraps an interface as visible without restriction, for a direct
// dependency's exposed modules.
func Public(i Interface) DependencyInterface {
	return DependencyInterface{Iface: i}
}

// Privatize tags a dependency interface as hidden from transitive consumers
// (§4.2 interface visibility rule): Iface is kept unchanged with Private
// set, and the shape of unions and aliases is carried alongside it (so
// cross-package pattern matches and type aliases keep working).
func Privatize(i Interface, unions []UnionInfo, aliases []AliasInfo) DependencyInterface {
	return DependencyInterface{
		Iface:   i,
		Private: true,
		Unions:  unions,
		Aliases: aliases,
	}
}

// dependencyInterfaceTag is the §4.4 discriminant byte for the
// Public | Private sum type.
const (
	tagPublic  = 0
	tagPrivate = 1
)

// EncodeMsgpack writes the Public/Private discriminant byte required by
// §4.4 before the interface payload.
func (d DependencyInterface) EncodeMsgpack(enc *msgpack.Encoder) error {
	if d.Private {
		if err := enc.EncodeUint8(tagPrivate); err != nil {
			return err
		}
		return enc.EncodeMulti(d.Iface, d.Unions, d.Aliases)
	}
	if err := enc.EncodeUint8(tagPublic); err != nil {
		return err
	}
	return enc.Encode(d.Iface)
}

// DecodeMsgpack is the inverse of EncodeMsgpack.
func (d *DependencyInterface) DecodeMsgpack(dec *msgpack.Decoder) error {
	tag, err := dec.DecodeUint8()
	if err != nil {
		return fmt.Errorf("missing DependencyInterface discriminant: %w", err)
	}
	switch tag {
	case tagPublic:
		d.Private = false
		return dec.Decode(&d.Iface)
	case tagPrivate:
		d.Private = true
		return dec.DecodeMulti(&d.Iface, &d.Unions, &d.Aliases)
	default:
		return fmt.Errorf("unknown DependencyInterface discriminant %d", tag)
	}
}
