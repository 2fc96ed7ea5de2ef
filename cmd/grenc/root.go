package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gren-lang/grenc/build"
	"github.com/gren-lang/grenc/internal/compiler"
	"github.com/gren-lang/grenc/internal/details"
	"github.com/gren-lang/grenc/internal/grenerr"
	"github.com/gren-lang/grenc/internal/registryclient"
	"github.com/gren-lang/grenc/internal/semver"
)

// runningCompilerVersion is the version this build of the core identifies
// itself as when checking a project's declared gren-version constraint
// (§3's goodGren predicate).
var runningCompilerVersion = semver.Version{Major: 1, Minor: 0, Patch: 0}

// newService is the seam compiler.Service's own doc comment calls out: "a
// host links in a concrete implementation." This distribution ships the
// build-orchestration core only, so the hook is left unset; a real `gren`
// binary sets it from its own package that wires in the parser, type
// checker, optimizer, and JS code generator.
//
// TODO: link in the actual compiler frontend here once one exists.
var newService func() (compiler.Service, error)

var reportFormat string

var rootCmd = &cobra.Command{
	Use:   "gren",
	Short: "gren builds, resolves dependencies for, and publishes Gren projects",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&reportFormat, "report", "", `machine-readable diagnostic format ("json"), or empty for ANSI`)
	rootCmd.AddCommand(initCmd, makeCmd, installCmd, replCmd, diffCmd, bumpCmd, publishCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		report(err)
		os.Exit(1)
	}
}

// report renders err through the taxonomy's Reporter when it is a
// Diagnostic, falling back to a bare message otherwise (e.g. a raw I/O
// error that never passed through grenerr).
func report(err error) {
	format := grenerr.FormatANSI
	if reportFormat == "json" {
		format = grenerr.FormatJSON
	}

	r := grenerr.NewReporter(format)
	if d, ok := err.(grenerr.Diagnostic); ok {
		r.Report(d)
		r.Render(os.Stderr)
		return
	}
	fmt.Fprintln(os.Stderr, "gren:", err)
}

// buildEnv assembles the Project Builder's collaborators for the project
// rooted at the current working directory: the on-disk package cache, the
// default HTTP registry client, and the compiler service hook.
func buildEnv() (details.Env, error) {
	svc, err := requireService()
	if err != nil {
		return details.Env{}, err
	}

	cacheRoot, err := packageCacheRoot()
	if err != nil {
		return details.Env{}, err
	}

	cache := &registryclient.DiskCache{Root: cacheRoot, RunningCompiler: runningCompilerVersion}
	client := registryclient.NewHTTPClient(registryBaseURL())

	return details.Env{
		Service:         svc,
		Catalog:         &registryclient.Catalog{Client: client, Cache: cache},
		Cache:           cache,
		RunningCompiler: runningCompilerVersion,
	}, nil
}

func requireService() (compiler.Service, error) {
	if newService == nil {
		return nil, fmt.Errorf("no compiler frontend is linked into this build; see compiler.Service")
	}
	return newService()
}

// packageCacheRoot returns GREN_HOME/packages, defaulting GREN_HOME to
// "~/.gren" per §6's on-disk layout.
func packageCacheRoot() (string, error) {
	if home := os.Getenv("GREN_HOME"); home != "" {
		return filepath.Join(home, "packages"), nil
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".gren", "packages"), nil
}

func registryBaseURL() string {
	if url := os.Getenv("GREN_REGISTRY"); url != "" {
		return url
	}
	return "https://package.gren-lang.org"
}

func projectRoot() (string, error) {
	return os.Getwd()
}

// withRegistryLock runs fn while holding the exclusive lock on the package
// cache, per §5's requirement that the whole verify-dependency traversal
// run under one lock shared by every `gren` invocation against that cache.
func withRegistryLock(fn func() error) error {
	cacheRoot, err := packageCacheRoot()
	if err != nil {
		return err
	}
	lock, err := build.AcquireRegistryLock(cacheRoot)
	if err != nil {
		return err
	}
	defer lock.Release()
	return fn()
}
