// Package registryclient defines the black-box registry/cache collaborator
// the Dependency Resolver consumes (§1: "the package registry client
// (HTTP/git) ... described only via the interfaces the core consumes") and
// ships a default implementation over stdlib net/http plus the on-disk
// package cache layout of §6.
package registryclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/gren-lang/grenc/internal/pkgname"
	"github.com/gren-lang/grenc/internal/platform"
	"github.com/gren-lang/grenc/internal/semver"
)

// Meta is the subset of a package version's gren.json the resolver needs to
// continue its search: the platform it declares and the constraints of its
// own direct dependencies.
type Meta struct {
	Platform       platform.Platform
	GrenConstraint semver.Constraint
	Dependencies   map[pkgname.Name]semver.Constraint
}

// ErrUnreachable wraps any error encountered while reaching the remote
// registry, so the resolver can distinguish "registry down" (triggers the
// offline fallback of §4.1) from "this package genuinely has no matching
// version" (NoSolution).
var ErrUnreachable = errors.New("registry unreachable")

// Client is the remote registry collaborator: HTTP (or git, depending on
// how a given package is hosted) access to published package metadata.
type Client interface {
	// Versions lists every published version of pkg, in no particular
	// order; the resolver sorts and searches newest-first itself.
	Versions(ctx context.Context, pkg pkgname.Name) ([]semver.Version, error)
	// Meta fetches one version's gren.json-derived metadata.
	Meta(ctx context.Context, pkg pkgname.Name, v semver.Version) (Meta, error)
}

// Cache is the local on-disk package cache (§6's
// `<packageCache>/<author>/<project>/<version>/`). Catalog.Meta consults it
// before the registry; Catalog.Versions reads it only in offline mode, where
// it is the only source of truth.
type Cache interface {
	CachedVersions(pkg pkgname.Name) ([]semver.Version, error)
	CachedMeta(pkg pkgname.Name, v semver.Version) (Meta, bool, error)
	Store(pkg pkgname.Name, v semver.Version, meta Meta) error
	// SourceDir returns the directory a package version's .gren (and, for
	// kernel-privileged packages, .js) sources live under, per §6's
	// on-disk cache layout.
	SourceDir(pkg pkgname.Name, v semver.Version) string
	// OutlinePath returns the path to a package version's cached gren.json.
	OutlinePath(pkg pkgname.Name, v semver.Version) string
	// ArtifactsPath and DocsPath return the paths of a package version's
	// persisted build cache and generated documentation.
	ArtifactsPath(pkg pkgname.Name, v semver.Version) string
	DocsPath(pkg pkgname.Name, v semver.Version) string
}

// Catalog composes Client and Cache behind the single view the resolver
// needs, implementing the §4.1 offline fallback as a mode switch: once
// OfflineOnly is set, every lookup is restricted to Cache alone.
type Catalog struct {
	Client Client
	Cache  Cache

	// OfflineOnly restricts every subsequent lookup to the local cache.
	// The resolver sets this after catching an ErrUnreachable and retries
	// its whole search.
	OfflineOnly bool
}

// Versions returns every version of pkg visible to the current mode.
func (c *Catalog) Versions(ctx context.Context, pkg pkgname.Name) ([]semver.Version, error) {
	if c.OfflineOnly {
		return c.Cache.CachedVersions(pkg)
	}

	versions, err := c.Client.Versions(ctx, pkg)
	if err != nil {
		return nil, fmt.Errorf("%w: listing versions of %s: %v", ErrUnreachable, pkg, err)
	}
	return versions, nil
}

// Meta returns pkg@v's metadata, preferring the local cache even when
// online (the registry is only consulted for versions not yet cached), and
// populating the cache on a successful remote fetch.
func (c *Catalog) Meta(ctx context.Context, pkg pkgname.Name, v semver.Version) (Meta, error) {
	if m, ok, err := c.Cache.CachedMeta(pkg, v); err == nil && ok {
		return m, nil
	} else if err != nil {
		return Meta{}, fmt.Errorf("reading cached outline for %s@%s: %w", pkg, v, err)
	}

	if c.OfflineOnly {
		return Meta{}, fmt.Errorf("%s@%s is not available in the local package cache", pkg, v)
	}

	m, err := c.Client.Meta(ctx, pkg, v)
	if err != nil {
		return Meta{}, fmt.Errorf("%w: fetching %s@%s: %v", ErrUnreachable, pkg, v, err)
	}

	if err := c.Cache.Store(pkg, v, m); err != nil {
		return Meta{}, fmt.Errorf("caching %s@%s: %w", pkg, v, err)
	}

	return m, nil
}
