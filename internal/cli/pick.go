package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/jissue/internal/export"
	"github.com/nhle/jissue/internal/source/jira"
	"github.com/nhle/jissue/internal/ui/picker"
)

func newPickCommand(env *Env) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "pick [query]",
		Short: "Choose an issue interactively and print its key",
		Long: `Open a filterable list of issues and print the key of the one
chosen. Without a query or filter the list holds your open issues.

	export JISSUE_ISSUE=$(jissue pick)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !env.Interactive {
				return errors.New("pick needs an interactive terminal")
			}
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			title := "Issues assigned to me"
			var issues []jira.Issue
			switch {
			case filter != "":
				title = filter
				issues, err = svc.SearchFilter(cmd.Context(), filter)
			case len(args) > 0:
				title = args[0]
				issues, err = svc.Search(cmd.Context(), args[0])
			default:
				issues, err = svc.Search(cmd.Context(), jira.AssignedToMeJQL)
			}
			if err != nil {
				return err
			}
			if len(issues) == 0 {
				return errors.New("no issues match")
			}

			// The list is drawn on stderr so stdout carries only the key.
			chosen, ok, err := picker.Run(title, issues, env.Stdin, env.Stderr)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("nothing picked")
			}
			env.println(chosen.Key)
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "name of a favourite filter")
	return cmd
}

func newExportCommand(env *Env) *cobra.Command {
	var since string
	cmd := &cobra.Command{
		Use:   "export <issue>...",
		Short: "Write issues and their comments as an mbox mail thread",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cutoff time.Time
			if since != "" {
				d, err := jira.ParseDelta(since)
				if err != nil {
					return err
				}
				cutoff = env.Now().Add(-d)
			}
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			var msgs []export.Message
			for _, arg := range args {
				issue, err := svc.Issue(cmd.Context(), strings.ToUpper(arg))
				if err != nil {
					return err
				}
				msgs = append(msgs, export.Messages(issue, env.cfg.JiraFQDN, cutoff)...)
			}
			if err := export.Write(env.Stdout, msgs); err != nil {
				return fmt.Errorf("writing mbox: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "only items updated within this delta, e.g. 7d")
	return cmd
}
