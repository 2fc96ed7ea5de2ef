package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gren-lang/grenc/build"
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "report the version bump required to publish the current package truthfully",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		env, err := buildEnv()
		if err != nil {
			return err
		}
		bump, err := build.Diff(cmd.Context(), env, root)
		if err != nil {
			return err
		}
		fmt.Println(bump)
		return nil
	},
}

var bumpCmd = &cobra.Command{
	Use:   "bump",
	Short: "recommend the next version number for the current package",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		env, err := buildEnv()
		if err != nil {
			return err
		}
		next, bump, err := build.Bump(cmd.Context(), env, root)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s)\n", next, bump)
		return nil
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "validate that the current package is ready to publish",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		env, err := buildEnv()
		if err != nil {
			return err
		}
		return build.PublishCheck(cmd.Context(), env, root)
	},
}
