package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	espalier "github.com/espalier-io/espalier"
	"github.com/espalier-io/espalier/internal/presentation/tui"
	"github.com/espalier-io/espalier/pkg/adapters/memory"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [form]",
	Short: "Fill out a form interactively",
	Long:  `Starts a fill-out session in the terminal. With a single form in the directory the argument is optional.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		headless, _ := cmd.Flags().GetBool("headless")
		sessionID, _ := cmd.Flags().GetString("session")

		slug, err := resolveSlug(cmd, args)
		if err != nil {
			exitErr("Error: %v", err)
		}

		engine := espalier.New(
			espalier.WithFormRepository(formRepo(cmd)),
			espalier.WithSubmissionStore(memory.NewStore()),
		)
		sess, err := engine.StartSession(cmd.Context(), slug, sessionID)
		if err != nil {
			exitErr("Error starting session: %v", err)
		}
		defer engine.EndSession(sess.ID())

		runner := &espalier.Runner{
			Input:    os.Stdin,
			Output:   os.Stdout,
			Headless: headless,
		}
		if !headless && term.IsTerminal(int(os.Stdout.Fd())) {
			tui.PrintBanner(espalier.Version)
			runner.Renderer = tui.NewRenderer()
		}

		if err := runner.Run(cmd.Context(), sess); err != nil {
			exitErr("Error: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("headless", false, "Run in headless mode (no prompts, strict IO)")
	runCmd.Flags().String("session", "", "Resumable session id (generated when empty)")

	// Make 'run' the default when no command is provided.
	rootCmd.Run = runCmd.Run
	rootCmd.Args = runCmd.Args
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
}
