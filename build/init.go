package build

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gren-lang/grenc/internal/pkgname"
	"github.com/gren-lang/grenc/internal/semver"
)

// InitProject writes a fresh gren.json at path, in the application shape of
// §6 — the one new-project variant `gren init` produces; a package manifest
// is something a developer promotes an existing application into, not a
// starting point.
func InitProject(path string, runningCompiler semver.Version) error {
	outlinePath := filepath.Join(path, "gren.json")

	if _, err := os.Stat(outlinePath); err == nil {
		return errors.New("gren.json already exists")
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking for an existing gren.json: %w", err)
	}

	doc := applicationManifest{
		Type:         "application",
		SourceDirs:   []string{"src"},
		GrenVersion:  runningCompiler.String(),
		Platform:     "common",
		Dependencies: applicationDeps{Direct: map[string]string{}, Indirect: map[string]string{}},
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(path, "src"), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outlinePath, data, 0o644)
}

type applicationManifest struct {
	Type         string          `json:"type"`
	SourceDirs   []string        `json:"source-directories"`
	GrenVersion  string          `json:"gren-version"`
	Platform     string          `json:"platform"`
	Dependencies applicationDeps `json:"dependencies"`
}

type applicationDeps struct {
	Direct   map[string]string `json:"direct"`
	Indirect map[string]string `json:"indirect"`
}

// PromoteToPackage rewrites an application's gren.json into the package
// shape, for the point in a project's life where it's ready to publish.
// exposed names the modules to advertise; direct carries forward the
// project's own direct dependencies, now expressed as ranges rather than
// pinned versions.
func PromoteToPackage(path string, name pkgname.Name, exposed []string, direct map[string]string) error {
	outlinePath := filepath.Join(path, "gren.json")

	grenConstraint, err := semver.NewConstraint(semver.Initial, semver.Version{Major: semver.Initial.Major + 1})
	if err != nil {
		return err
	}

	doc := packageManifest{
		Type:           "package",
		Name:           name.String(),
		Summary:        "",
		License:        "BSD-3-Clause",
		Version:        semver.Initial.String(),
		GrenVersion:    grenConstraint.String(),
		Platform:       "common",
		ExposedModules: exposed,
		Dependencies:   direct,
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(outlinePath, data, 0o644)
}

type packageManifest struct {
	Type           string            `json:"type"`
	Name           string            `json:"name"`
	Summary        string            `json:"summary"`
	License        string            `json:"license"`
	Version        string            `json:"version"`
	GrenVersion    string            `json:"gren-version"`
	Platform       string            `json:"platform"`
	ExposedModules []string          `json:"exposed-modules"`
	Dependencies   map[string]string `json:"dependencies"`
}
