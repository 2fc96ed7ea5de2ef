// Package codec implements the bespoke binary persistence format of §4.4:
// a deterministic, msgpack-backed encoding for every long-lived data
// structure (Outline, Artifacts, ArtifactCache, Details), with an explicit
// discriminant byte in front of every sum type's payload and length-prefixed
// collections for everything else (msgpack's native array/map framing
// already satisfies the latter).
//
// decode(encode(x)) == x is the property §8 requires; corruption (an
// unknown tag byte or a truncated stream) must yield a recoverable error
// whose remedy is deleting the cache file and rebuilding (§4.4, §7).
package codec

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/gren-lang/grenc/internal/pkgname"
)

// Encode serializes v to its deterministic binary form. Map keys are
// sorted before encoding, since Go's map iteration order is randomized and
// msgpack.Marshal otherwise writes them in whatever order it sees, which
// would violate the "identical logical value -> identical bytes" property.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes a binary form produced by Encode into v, which must
// be a pointer to the original type. Decode errors (bad tag byte, truncated
// stream, type mismatch) are always returned as plain errors; callers wrap
// them in the generate-kind CorruptCacheError that names the file so the
// "delete .gren/ and rebuild" remedy can be surfaced (§4.4, §7).
func Decode(data []byte, v any) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("corrupt artifact stream: %w", err)
	}
	return nil
}

// Tag is the one-byte discriminant every encoded sum type writes before its
// payload, per §4.4's "discriminated-union prefix byte for sum types."
type Tag uint8

// ReadTag decodes the leading discriminant byte of a sum-type payload using
// dec, returning an error if the stream does not contain a valid small
// non-negative integer.
func ReadTag(dec *msgpack.Decoder) (Tag, error) {
	n, err := dec.DecodeUint8()
	if err != nil {
		return 0, fmt.Errorf("missing or invalid discriminant byte: %w", err)
	}
	return Tag(n), nil
}

// WriteTag emits the discriminant byte for a sum-type payload.
func WriteTag(enc *msgpack.Encoder, tag Tag) error {
	return enc.EncodeUint8(uint8(tag))
}

// EncodePkgMap writes a map keyed by pkgname.Name as a length-prefixed,
// key-sorted sequence of (key, value) pairs. Encoder.SetSortMapKeys only
// sorts maps with string/numeric keys; pkgname.Name is a struct, so any
// map keyed by it needs this instead to keep §4.4's "identical logical
// value -> identical bytes" property.
func EncodePkgMap[V any](enc *msgpack.Encoder, m map[pkgname.Name]V) error {
	keys := make([]pkgname.Name, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	if err := enc.EncodeArrayLen(len(keys)); err != nil {
		return err
	}
	for _, k := range keys {
		if err := enc.Encode(k); err != nil {
			return err
		}
		if err := enc.Encode(m[k]); err != nil {
			return err
		}
	}
	return nil
}

// DecodePkgMap is the inverse of EncodePkgMap.
func DecodePkgMap[V any](dec *msgpack.Decoder, m *map[pkgname.Name]V) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	out := make(map[pkgname.Name]V, n)
	for i := 0; i < n; i++ {
		var k pkgname.Name
		var v V
		if err := dec.Decode(&k); err != nil {
			return err
		}
		if err := dec.Decode(&v); err != nil {
			return err
		}
		out[k] = v
	}
	*m = out
	return nil
}
