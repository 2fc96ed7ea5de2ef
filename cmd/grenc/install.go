package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gren-lang/grenc/internal/details"
	"github.com/gren-lang/grenc/internal/grenerr"
	"github.com/gren-lang/grenc/internal/outline"
	"github.com/gren-lang/grenc/internal/pkgname"
	"github.com/gren-lang/grenc/internal/registryclient"
	"github.com/gren-lang/grenc/internal/semver"
)

var installCmd = &cobra.Command{
	Use:   "install [author/project]",
	Short: "add a dependency to gren.json and re-verify the resulting dependency solution",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}

		return withRegistryLock(func() error {
			env, err := buildEnv()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				pkg, err := pkgname.Parse(args[0])
				if err != nil {
					return err
				}
				if err := addDependency(cmd.Context(), env.Catalog, root, pkg); err != nil {
					return err
				}
			}

			out, err := outline.Load(filepath.Join(root, "gren.json"), env.RunningCompiler)
			if err != nil {
				return err
			}
			builder := details.NewBuilder(env)
			return builder.VerifyInstall(cmd.Context(), out)
		})
	},
}

// addDependency adds pkg to gren.json at its newest published version: an
// application lists that exact version under dependencies.direct, a package
// gets the open range from that version up to the next major. gren.json is edited as a generic JSON document rather than
// through the typed Outline so fields the core doesn't model are
// preserved verbatim — the manifest on disk is the user's, not ours.
func addDependency(ctx context.Context, catalog *registryclient.Catalog, root string, pkg pkgname.Name) error {
	versions, err := catalog.Versions(ctx, pkg)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		return fmt.Errorf("%s has no published versions", pkg)
	}
	newest := versions[0]
	for _, v := range versions[1:] {
		if v.Compare(newest) > 0 {
			newest = v
		}
	}

	path := filepath.Join(root, "gren.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return grenerr.NewOutlineError("gren.json is not valid JSON: "+err.Error(), nil)
	}

	switch doc["type"] {
	case "application":
		deps, _ := doc["dependencies"].(map[string]any)
		if deps == nil {
			deps = map[string]any{}
		}
		direct, _ := deps["direct"].(map[string]any)
		if direct == nil {
			direct = map[string]any{}
		}
		direct[pkg.String()] = newest.String()
		deps["direct"] = direct
		doc["dependencies"] = deps
	case "package":
		deps, _ := doc["dependencies"].(map[string]any)
		if deps == nil {
			deps = map[string]any{}
		}
		deps[pkg.String()] = openConstraint(newest).String()
		doc["dependencies"] = deps
	default:
		return fmt.Errorf(`gren.json "type" must be "application" or "package"`)
	}

	out, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

// openConstraint accepts every version sharing v's major component, the
// conventional "caret range" a freshly added dependency gets before a
// developer tightens it by hand.
func openConstraint(v semver.Version) semver.Constraint {
	low := semver.Version{Major: v.Major}
	high := semver.Version{Major: v.Major + 1}
	c, _ := semver.NewConstraint(low, high)
	return c
}
