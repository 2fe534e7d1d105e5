package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/espalier-io/espalier/internal/presentation/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [form]",
	Short: "Export the flow graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the form's screens and routing logic.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		slug, err := resolveSlug(cmd, args)
		if err != nil {
			exitErr("Error: %v", err)
		}

		form, err := formRepo(cmd).GetBySlug(cmd.Context(), slug)
		if err != nil {
			exitErr("Error loading form: %v", err)
		}

		fmt.Print(graph.GenerateMermaid(form, nil))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
