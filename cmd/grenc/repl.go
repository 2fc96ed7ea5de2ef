package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// replCmd is a thin placeholder: an interactive REPL evaluates expressions
// against a live compiler frontend, which compiler.Service has no operation
// for — it is squarely outside the build-orchestration core's scope. A
// `gren` distribution that links a real frontend replaces this command.
var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "start an interactive Gren REPL",
	RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("repl requires a linked compiler frontend; none is built into this core")
	},
}
