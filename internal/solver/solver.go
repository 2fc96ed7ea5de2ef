// Package solver implements the Dependency Resolver of §4.1: a
// backtracking, newest-first depth-first search over package versions that
// finds a complete assignment satisfying every transitive constraint, with
// an offline fallback restricted to the local package cache.
//
// The shape of Resolver mirrors the teacher compiler's own per-module
// Resolver (one struct carrying the search's mutable state, one entry
// point that walks it to completion) generalized from symbol resolution to
// version resolution.
package solver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/gren-lang/grenc/internal/codec"
	"github.com/gren-lang/grenc/internal/pkgname"
	"github.com/gren-lang/grenc/internal/platform"
	"github.com/gren-lang/grenc/internal/registryclient"
	"github.com/gren-lang/grenc/internal/semver"
)

// Selected is one package's resolved version plus the direct-dependency
// constraints it was solved against — exactly the fingerprint material
// §3/§4.2 need.
type Selected struct {
	Version           semver.Version
	DirectConstraints map[pkgname.Name]semver.Constraint
}

// EncodeMsgpack writes Selected with DirectConstraints in key-sorted order,
// since pkgname.Name is a struct key msgpack's own map-key sort can't order.
func (s Selected) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.Encode(s.Version); err != nil {
		return err
	}
	return codec.EncodePkgMap(enc, s.DirectConstraints)
}

// DecodeMsgpack is the inverse of EncodeMsgpack.
func (s *Selected) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 2 {
		return fmt.Errorf("solver: expected a 2-element Selected, got %d", n)
	}
	if err := dec.Decode(&s.Version); err != nil {
		return err
	}
	return codec.DecodePkgMap(dec, &s.DirectConstraints)
}

// Solution is a complete version assignment covering every transitive
// dependency.
type Solution map[pkgname.Name]Selected

// EncodeMsgpack writes a Solution as a key-sorted sequence of pairs.
func (s Solution) EncodeMsgpack(enc *msgpack.Encoder) error {
	return codec.EncodePkgMap(enc, map[pkgname.Name]Selected(s))
}

// DecodeMsgpack is the inverse of EncodeMsgpack.
func (s *Solution) DecodeMsgpack(dec *msgpack.Decoder) error {
	var m map[pkgname.Name]Selected
	if err := codec.DecodePkgMap(dec, &m); err != nil {
		return err
	}
	*s = Solution(m)
	return nil
}

// Resolver runs one dependency-resolution search. It is not safe for reuse
// across concurrent searches; callers needing concurrency construct one
// Resolver per verify call.
type Resolver struct {
	catalog      *registryclient.Catalog
	rootPlatform platform.Platform

	// lastErr records the hard I/O error (almost always wrapping
	// registryclient.ErrUnreachable) that last aborted a search. Verify
	// itself tells "registry down" apart from genuine unsatisfiability with
	// errors.Is on the error the search returns.
	lastErr error
}

// New constructs a Resolver over the given catalog (local cache + remote
// registry) and the platform the project being resolved declares.
func New(catalog *registryclient.Catalog, rootPlatform platform.Platform) *Resolver {
	return &Resolver{catalog: catalog, rootPlatform: rootPlatform}
}

// ErrNoSolution is returned when the constraint set is unsatisfiable
// regardless of registry connectivity.
var ErrNoSolution = errors.New("no dependency solution satisfies all constraints")

// ErrNoOfflineSolution is returned when the registry was unreachable and no
// solution exists using only the local package cache. This must stay
// distinct from ErrNoSolution because the two drive different UX (§4.1:
// "implementers must preserve this distinction").
var ErrNoOfflineSolution = errors.New("registry unreachable and no offline solution found")

// Verify finds a complete version assignment satisfying rootConstraints
// (a package's own direct-dependency constraints, or an application's
// pinned exact versions lifted to single-point constraints by the caller)
// and every transitive constraint it implies.
func (r *Resolver) Verify(ctx context.Context, rootConstraints map[pkgname.Name]semver.Constraint) (Solution, error) {
	sol, err := r.attempt(ctx, rootConstraints)
	if err == nil {
		return sol, nil
	}
	if !errors.Is(err, registryclient.ErrUnreachable) {
		return nil, err
	}

	// The registry was unreachable somewhere mid-search; retry the whole
	// search restricted to the local cache (§4.1 "Offline fallback").
	r.catalog.OfflineOnly = true
	r.lastErr = nil

	sol, err = r.attempt(ctx, rootConstraints)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoOfflineSolution, err)
	}
	return sol, nil
}

func (r *Resolver) attempt(ctx context.Context, rootConstraints map[pkgname.Name]semver.Constraint) (Solution, error) {
	pending := sortedNames(rootConstraints)
	requirements := map[pkgname.Name]semver.Constraint{}
	for name, c := range rootConstraints {
		requirements[name] = c
	}

	chosen := map[pkgname.Name]Selected{}
	ok, err := r.solve(ctx, pending, requirements, chosen)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSolution
	}

	sol := make(Solution, len(chosen))
	for name, sel := range chosen {
		sol[name] = sel
	}
	return sol, nil
}

// solve is the backtracking DFS of §4.1: pick the next unassigned package
// off pending, try its published versions newest-first, and recurse with
// each candidate's own constraints folded into requirements. A version is
// rejected (and the next-oldest tried) on platform incompatibility or a
// constraint conflict; the whole call unwinds on a registry I/O failure.
func (r *Resolver) solve(
	ctx context.Context,
	pending []pkgname.Name,
	requirements map[pkgname.Name]semver.Constraint,
	chosen map[pkgname.Name]Selected,
) (bool, error) {
	if len(pending) == 0 {
		return true, nil
	}

	name, rest := pending[0], pending[1:]
	if _, already := chosen[name]; already {
		return r.solve(ctx, rest, requirements, chosen)
	}

	versions, err := r.catalog.Versions(ctx, name)
	if err != nil {
		r.lastErr = err
		return false, err
	}
	sort.Slice(versions, func(i, j int) bool { return versions[j].Less(versions[i]) })

	want := requirements[name]
	for _, v := range versions {
		if !want.Accepts(v) {
			continue
		}

		meta, err := r.catalog.Meta(ctx, name, v)
		if err != nil {
			r.lastErr = err
			return false, err
		}
		if !platform.Compatible(r.rootPlatform, meta.Platform) {
			continue
		}

		nextReq, newPending, fits := foldRequirements(requirements, meta.Dependencies)
		for dep := range meta.Dependencies {
			if sel, ok := chosen[dep]; fits && ok && !nextReq[dep].Accepts(sel.Version) {
				fits = false // an already-chosen version falls outside the merged range
			}
		}
		if !fits {
			continue
		}

		chosen[name] = Selected{Version: v, DirectConstraints: meta.Dependencies}

		found, err := r.solve(ctx, append(rest, newPending...), nextReq, chosen)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}

		delete(chosen, name) // backtrack: this version's subtree failed
	}

	return false, nil
}

// foldRequirements merges a candidate version's own dependency constraints
// into the outstanding requirement set, intersecting with anything already
// required of the same package. It reports the newly-discovered packages
// (to extend the pending worklist) and whether every merge succeeded.
func foldRequirements(
	requirements map[pkgname.Name]semver.Constraint,
	deps map[pkgname.Name]semver.Constraint,
) (map[pkgname.Name]semver.Constraint, []pkgname.Name, bool) {
	next := make(map[pkgname.Name]semver.Constraint, len(requirements)+len(deps))
	for name, c := range requirements {
		next[name] = c
	}

	var newPending []pkgname.Name
	for dep, c := range deps {
		if existing, has := next[dep]; has {
			merged, ok := existing.Intersect(c)
			if !ok {
				return nil, nil, false
			}
			next[dep] = merged
		} else {
			next[dep] = c
			newPending = append(newPending, dep)
		}
	}

	return next, newPending, true
}

func sortedNames(m map[pkgname.Name]semver.Constraint) []pkgname.Name {
	names := make([]pkgname.Name, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Less(names[j]) })
	return names
}
