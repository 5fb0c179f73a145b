package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/jissue/internal/model"
	"github.com/nhle/jissue/internal/render"
	"github.com/nhle/jissue/internal/source/jira"
	"github.com/nhle/jissue/internal/ui/prompt"
)

// releaseTarget holds the --project and --release flags shared by the
// release subcommands.
type releaseTarget struct {
	env     *Env
	project string
	version string
}

func (t *releaseTarget) register(cmd *cobra.Command, withVersion bool) {
	cmd.Flags().StringVarP(&t.project, "project", "p", "", "project key (default $JISSUE_PROJECT)")
	if withVersion {
		cmd.Flags().StringVarP(&t.version, "release", "r", "", "version name (default $JISSUE_VERSION)")
	}
}

func (t *releaseTarget) projectKey() (string, error) {
	p, err := argOr(nil, 0, firstNonEmpty(t.project, t.env.Session().Project), "project", model.EnvProject)
	return strings.ToUpper(p), err
}

func (t *releaseTarget) resolve() (project, version string, err error) {
	project, err = t.projectKey()
	if err != nil {
		return "", "", err
	}
	version, err = argOr(nil, 0, firstNonEmpty(t.version, t.env.Session().Version), "version", model.EnvVersion)
	if err != nil {
		return "", "", err
	}
	return project, version, nil
}

func newReleaseCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Manage project versions",
	}
	cmd.AddCommand(
		newReleaseListCommand(env),
		newReleaseNextCommand(env),
		newReleaseCreateCommand(env),
		newReleaseRescheduleCommand(env),
		newReleaseDelayCommand(env),
		newReleaseReleaseCommand(env),
		newReleaseMergeCommand(env),
		newReleaseMoveCommand(env),
		newReleaseArchiveCommand(env, "archive", true),
		newReleaseArchiveCommand(env, "unarchive", false),
	)
	return cmd
}

func newReleaseListCommand(env *Env) *cobra.Command {
	t := &releaseTarget{env: env}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the versions that are not archived, latest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := t.projectKey()
			if err != nil {
				return err
			}
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			p, err := svc.Project(cmd.Context(), project)
			if err != nil {
				return err
			}
			env.println(render.VersionTable(jira.VisibleVersions(p)))
			return nil
		},
	}
	t.register(cmd, false)
	return cmd
}

func newReleaseNextCommand(env *Env) *cobra.Command {
	t := &releaseTarget{env: env}
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print the earliest unreleased version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := t.projectKey()
			if err != nil {
				return err
			}
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			v, ok, err := svc.NextRelease(cmd.Context(), project)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("project %s has no unreleased version", project)
			}
			env.println(v.Name)
			return nil
		},
	}
	t.register(cmd, false)
	return cmd
}

func newReleaseCreateCommand(env *Env) *cobra.Command {
	t := &releaseTarget{env: env}
	cmd := &cobra.Command{
		Use:   "create <version> <date>",
		Short: "Create an unreleased version due on date (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := t.projectKey()
			if err != nil {
				return err
			}
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			v, err := svc.CreateVersion(cmd.Context(), project, args[0], args[1])
			if err != nil {
				return err
			}
			env.record(cmd.Context(), model.ActionVersion, v.Name, "created for "+v.ReleaseDate)
			return nil
		},
	}
	t.register(cmd, false)
	return cmd
}

func newReleaseRescheduleCommand(env *Env) *cobra.Command {
	t := &releaseTarget{env: env}
	cmd := &cobra.Command{
		Use:   "reschedule <date>",
		Short: "Set the release date of a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, version, err := t.resolve()
			if err != nil {
				return err
			}
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			if err := svc.RescheduleVersion(cmd.Context(), project, version, args[0]); err != nil {
				return err
			}
			env.record(cmd.Context(), model.ActionVersion, version, "rescheduled to "+args[0])
			return nil
		},
	}
	t.register(cmd, true)
	return cmd
}

func newReleaseDelayCommand(env *Env) *cobra.Command {
	t := &releaseTarget{env: env}
	cmd := &cobra.Command{
		Use:   "delay <delta>",
		Short: "Push the release date of a version back by delta, e.g. 2w",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, version, err := t.resolve()
			if err != nil {
				return err
			}
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			date, err := svc.DelayVersion(cmd.Context(), project, version, args[0])
			if err != nil {
				return err
			}
			env.record(cmd.Context(), model.ActionVersion, version, "delayed to "+date)
			env.println(date)
			return nil
		},
	}
	t.register(cmd, true)
	return cmd
}

func newReleaseReleaseCommand(env *Env) *cobra.Command {
	t := &releaseTarget{env: env}
	var opts jira.ReleaseOptions
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Mark a version released",
		Long: `Mark a version released. Unresolved issues slated for it must be
moved to another version first, which --move-to-next and --move-to do.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, version, err := t.resolve()
			if err != nil {
				return err
			}
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			result, err := svc.ReleaseVersion(cmd.Context(), project, version, opts)
			if err != nil {
				return err
			}
			for _, key := range result.Moved {
				env.record(cmd.Context(), model.ActionVersion, key, "moved to "+result.Target)
				env.printf("%s moved to %s\n", key, result.Target)
			}
			env.record(cmd.Context(), model.ActionRelease, result.Version.Name, project)
			return nil
		},
	}
	t.register(cmd, true)
	cmd.Flags().BoolVar(&opts.MoveToNext, "move-to-next", false, "move unresolved issues to the next version")
	cmd.Flags().StringVar(&opts.MoveTo, "move-to", "", "move unresolved issues to this version")
	cmd.MarkFlagsMutuallyExclusive("move-to-next", "move-to")
	return cmd
}

func newReleaseMergeCommand(env *Env) *cobra.Command {
	t := &releaseTarget{env: env}
	var yes bool
	cmd := &cobra.Command{
		Use:   "merge <target-version>",
		Short: "Fold a version into another and delete it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, version, err := t.resolve()
			if err != nil {
				return err
			}
			if env.Interactive && !yes {
				ok, err := prompt.Confirm(
					fmt.Sprintf("Move the issues of %s to %s and delete %s?", version, args[0], version), false)
				if err != nil {
					return err
				}
				if !ok {
					return prompt.ErrAborted
				}
			}
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			if err := svc.MergeVersion(cmd.Context(), project, version, args[0]); err != nil {
				return err
			}
			env.record(cmd.Context(), model.ActionVersion, version, "merged into "+args[0])
			return nil
		},
	}
	t.register(cmd, true)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newReleaseMoveCommand(env *Env) *cobra.Command {
	t := &releaseTarget{env: env}
	cmd := &cobra.Command{
		Use:       "move (up|down) <count>",
		Short:     "Move a version up or down in the project's version order",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[1])
			if err != nil || count < 0 {
				return fmt.Errorf("count must be a non-negative number, got %q", args[1])
			}
			switch args[0] {
			case "up":
			case "down":
				count = -count
			default:
				return fmt.Errorf("direction must be up or down, got %q", args[0])
			}
			project, version, err := t.resolve()
			if err != nil {
				return err
			}
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			if err := svc.MoveVersion(cmd.Context(), project, version, count); err != nil {
				return err
			}
			env.record(cmd.Context(), model.ActionVersion, version, fmt.Sprintf("moved %s %s", args[0], args[1]))
			return nil
		},
	}
	t.register(cmd, true)
	return cmd
}

func newReleaseArchiveCommand(env *Env, use string, archived bool) *cobra.Command {
	t := &releaseTarget{env: env}
	cmd := &cobra.Command{
		Use:   use + " <version-regex>",
		Short: fmt.Sprintf("Set archived=%t on every version whose name matches", archived),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := t.projectKey()
			if err != nil {
				return err
			}
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			changed, err := svc.SetArchived(cmd.Context(), project, args[0], archived)
			if err != nil {
				return err
			}
			for _, v := range changed {
				env.record(cmd.Context(), model.ActionVersion, v.Name, use+"d")
				env.println(v.Name)
			}
			return nil
		},
	}
	t.register(cmd, false)
	return cmd
}
