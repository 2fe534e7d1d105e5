package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/espalier-io/espalier/internal/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate [form]",
	Short: "Check form definitions for consistency",
	Long:  `Lints every form in the directory (or just the named one) and reports broken references, unreachable questions, and misconfigured settings.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	repo := formRepo(cmd)

	slugs := args
	if len(slugs) == 0 {
		var err error
		slugs, err = repo.ListSlugs(cmd.Context())
		if err != nil {
			return err
		}
		if len(slugs) == 0 {
			return fmt.Errorf("no form definitions found (see --dir)")
		}
	}

	failed := false
	for _, slug := range slugs {
		form, err := repo.GetBySlug(cmd.Context(), slug)
		if err != nil {
			return fmt.Errorf("%s: %w", slug, err)
		}

		report := validator.LintForm(form)
		for _, issue := range report.Warnings {
			fmt.Printf("%s: warning: %s: %s\n", slug, issue.Ref, issue.Message)
		}
		for _, issue := range report.Errors {
			fmt.Printf("%s: error: %s: %s\n", slug, issue.Ref, issue.Message)
		}
		if !report.OK() {
			failed = true
			continue
		}
		fmt.Printf("%s: ok\n", slug)
	}

	if failed {
		return fmt.Errorf("one or more forms have errors")
	}
	return nil
}
