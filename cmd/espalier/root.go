package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/espalier-io/espalier/pkg/adapters/file"
)

var rootCmd = &cobra.Command{
	Use:   "espalier",
	Short: "Espalier is a branching forms runtime",
	Long:  `Espalier runs declarative, conditionally branching forms: fill them out in the terminal, serve them over HTTP, or inspect their flow graph.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", ".", "Directory containing form definitions (YAML)")
}

// formRepo opens the form directory the command points at.
func formRepo(cmd *cobra.Command) *file.Repository {
	dir, _ := cmd.Flags().GetString("dir")
	return file.NewRepository(dir)
}

// resolveSlug picks the form to operate on: an explicit argument wins, a
// directory holding exactly one form needs none.
func resolveSlug(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	slugs, err := formRepo(cmd).ListSlugs(cmd.Context())
	if err != nil {
		return "", err
	}
	switch len(slugs) {
	case 0:
		return "", fmt.Errorf("no form definitions found (see --dir)")
	case 1:
		return slugs[0], nil
	default:
		return "", fmt.Errorf("multiple forms available, pick one: %v", slugs)
	}
}

func exitErr(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
