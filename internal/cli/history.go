package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/jissue/internal/render"
	"github.com/nhle/jissue/internal/source/jira"
	"github.com/nhle/jissue/internal/store"
)

func newHistoryCommand(env *Env) *cobra.Command {
	var action, since, prune string
	var limit int
	cmd := &cobra.Command{
		Use:   "history [target]",
		Short: "Show the changes made from this machine",
		Long: `Show the journal of issues, versions and pages changed from this
machine, newest first. With --prune entries older than the delta are
removed instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := env.Journal()
			if err != nil {
				return err
			}

			if prune != "" {
				d, err := jira.ParseDelta(prune)
				if err != nil {
					return err
				}
				n, err := j.Prune(cmd.Context(), env.Now().Add(-d))
				if err != nil {
					return err
				}
				env.printf("removed %d entries\n", n)
				return nil
			}

			filter := store.JournalFilter{Limit: limit}
			if len(args) > 0 {
				target := args[0]
				filter.Target = &target
			}
			if action != "" {
				a := strings.ToLower(action)
				filter.Action = &a
			}
			if since != "" {
				d, err := jira.ParseDelta(since)
				if err != nil {
					return err
				}
				t := env.Now().Add(-d)
				filter.Since = &t
			}

			entries, err := j.History(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(env.Stderr, "no journal entries")
				return nil
			}
			env.println(render.HistoryTable(entries))
			return nil
		},
	}
	cmd.Flags().StringVar(&action, "action", "", "only this action, e.g. resolve")
	cmd.Flags().StringVar(&since, "since", "", "only entries within this delta, e.g. 2w")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "at most this many entries (0 for all)")
	cmd.Flags().StringVar(&prune, "prune", "", "delete entries older than this delta")
	return cmd
}
