package main

import (
	"github.com/spf13/cobra"

	"github.com/gren-lang/grenc/build"
	"github.com/gren-lang/grenc/internal/compile"
)

var (
	makeOutput   string
	makeOptimize bool
	makeDebug    bool
)

var makeCmd = &cobra.Command{
	Use:   "make [entry.gren ...]",
	Short: "compile a project to JavaScript",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}

		opts := build.Options{
			Entries:  args,
			Output:   compile.Output{Path: makeOutput},
			Optimize: makeOptimize,
			Debug:    makeDebug,
		}

		return withRegistryLock(func() error {
			env, err := buildEnv()
			if err != nil {
				return err
			}
			_, err = build.New(env, root).Make(cmd.Context(), opts)
			return err
		})
	},
}

func init() {
	makeCmd.Flags().StringVar(&makeOutput, "output", "", `output path ("/dev/null", "/dev/stdout", *.html, or *.js)`)
	makeCmd.Flags().BoolVar(&makeOptimize, "optimize", false, "apply optimizations; mutually exclusive with --debug")
	makeCmd.Flags().BoolVar(&makeDebug, "debug", false, "compile with Debug.log/Debug.todo enabled")
}
