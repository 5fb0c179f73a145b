package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/jissue/internal/theme"
)

// Version is set at build time.
var Version = "dev"

// NewRootCommand builds the command tree around env.
func NewRootCommand(env *Env) *cobra.Command {
	root := &cobra.Command{
		Use:   "jissue",
		Short: "Work with Jira issues, releases and Confluence release notes",
		Long: `jissue maps subcommands to Jira and Confluence REST calls.

Project, version, component and issue arguments default to
JISSUE_PROJECT, JISSUE_VERSION, JISSUE_COMPONENT and JISSUE_ISSUE,
which "jissue session" prints export lines for.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(env.Stdin)
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)

	root.PersistentFlags().BoolVarP(&env.verbose, "verbose", "V", false, "log requests to stderr")
	root.PersistentFlags().StringVar(&env.configPath, "config", "", "configuration file (default $JISSUE_CONFIG_PATH or ~/.jissue)")

	root.AddCommand(
		newListCommand(env),
		newSearchCommand(env),
		newShowCommand(env),
		newStartCommand(env),
		newStopCommand(env),
		newReopenCommand(env),
		newTransitionCommand(env),
		newCreateCommand(env),
		newCommentCommand(env),
		newResolveCommand(env),
		newLinkCommand(env),
		newLabelCommand(env),
		newAssignCommand(env),
		newInventoryCommand(env),
		newFiltersCommand(env),
		newPickCommand(env),
		newExportCommand(env),
		newHistoryCommand(env),
		newConfigCommand(env),
		newReleaseCommand(env),
		newNotesCommand(env),
		newSessionCommand(env),
		newAdminCommand(env),
	)
	return root
}

// Execute runs the command line args and returns the exit code. Every
// handled error is printed on stderr and gives 1.
func Execute(ctx context.Context, env *Env, args []string) int {
	root := NewRootCommand(env)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if cerr := env.Close(); cerr != nil {
		env.Logger().Warn("closing journal", "error", cerr)
	}
	if err != nil {
		fmt.Fprintln(env.Stderr, theme.ErrorStyle.Render("jissue: "+err.Error()))
		return 1
	}
	return 0
}
