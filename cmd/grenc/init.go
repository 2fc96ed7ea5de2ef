package main

import (
	"github.com/spf13/cobra"

	"github.com/gren-lang/grenc/build"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "create a new application gren.json in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		return build.InitProject(root, runningCompilerVersion)
	},
}
