package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/jissue/internal/crossref"
	"github.com/nhle/jissue/internal/model"
	"github.com/nhle/jissue/internal/source"
	"github.com/nhle/jissue/internal/source/jira"
)

func newSessionCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Print export lines that set the working context",
		Long: `Print shell export lines for JISSUE_PROJECT, JISSUE_VERSION,
JISSUE_COMPONENT and JISSUE_ISSUE. Evaluate them in the shell:

	eval "$(jissue session project ABC)"`,
	}
	cmd.AddCommand(
		newSessionProjectCommand(env),
		newSessionComponentCommand(env),
		newSessionVersionCommand(env),
		newSessionWorkonCommand(env),
		newSessionCreateCommand(env),
		newSessionDeactivateCommand(env),
	)
	return cmd
}

func (e *Env) printExports(vars map[string]string) {
	for _, line := range model.ExportLines(vars) {
		e.println(line)
	}
}

// projectContext checks a project, component and version against the
// server and returns the variables to export. An empty version means the
// project's next release; noVersion leaves the version unset.
func (e *Env) projectContext(
	ctx context.Context,
	project, component, version string,
	noVersion bool,
) (map[string]string, error) {
	svc, err := e.Jira()
	if err != nil {
		return nil, err
	}
	p, err := svc.Project(ctx, project)
	if err != nil {
		if source.IsNotFound(err) {
			return nil, fmt.Errorf("no such project %s", project)
		}
		return nil, err
	}

	vars := map[string]string{model.EnvProject: p.Key}
	if component != "" {
		found := false
		for _, c := range p.Components {
			if c.Name == component {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("no such component %s in %s", component, p.Key)
		}
		vars[model.EnvComponent] = component
	}

	if noVersion {
		return vars, nil
	}
	if version == "" {
		next, ok := jira.EarliestUnreleased(p.Versions)
		if !ok {
			return nil, fmt.Errorf("project %s has no unreleased version, use --no-version", p.Key)
		}
		version = next.Name
	}
	if _, err := jira.FindVersion(p.Versions, version); err != nil {
		return nil, fmt.Errorf("no such version %s in %s", version, p.Key)
	}
	vars[model.EnvVersion] = version
	return vars, nil
}

func newSessionProjectCommand(env *Env) *cobra.Command {
	var noVersion bool
	cmd := &cobra.Command{
		Use:   "project <project> [<component> [<version>]]",
		Short: "Work on a project, defaulting the version to its next release",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			component, version := "", ""
			if len(args) > 1 {
				component = args[1]
			}
			if len(args) > 2 {
				if noVersion {
					return errors.New("give either a version or --no-version")
				}
				version = args[2]
			}
			vars, err := env.projectContext(cmd.Context(), strings.ToUpper(args[0]), component, version, noVersion)
			if err != nil {
				return err
			}
			env.printExports(vars)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noVersion, "no-version", false, "leave JISSUE_VERSION unset")
	return cmd
}

func newSessionComponentCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "component <component>",
		Short: "Switch the component within the current project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := env.projectArg(nil, 0)
			if err != nil {
				return err
			}
			vars, err := env.projectContext(cmd.Context(), project, args[0], env.Session().Version, false)
			if err != nil {
				return err
			}
			env.printExports(vars)
			return nil
		},
	}
}

func newSessionVersionCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "version <version>",
		Short: "Switch the version within the current project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := env.projectArg(nil, 0)
			if err != nil {
				return err
			}
			vars, err := env.projectContext(cmd.Context(), project, env.Session().Component, args[0], false)
			if err != nil {
				return err
			}
			env.printExports(vars)
			return nil
		},
	}
}

func newSessionWorkonCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "workon [issue]",
		Short: "Work on an issue",
		Long: `Work on an issue. Without an argument the issue is taken from the
current git branch name, then from JISSUE_ISSUE.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) > 0 {
				key = strings.ToUpper(args[0])
			} else {
				key = env.issueFromBranch(cmd.Context())
			}
			if key == "" {
				k, err := env.issueArg(nil, 0)
				if err != nil {
					return err
				}
				key = k
			}
			return env.workon(cmd.Context(), key)
		},
	}
}

func (e *Env) issueFromBranch(ctx context.Context) string {
	branch, err := e.Git.CurrentBranch(ctx)
	if err != nil {
		e.Logger().Debug("no branch to take the issue from", "error", err)
		return ""
	}
	key, _ := crossref.FirstKey(branch)
	return key
}

func (e *Env) workon(ctx context.Context, key string) error {
	svc, err := e.Jira()
	if err != nil {
		return err
	}
	issue, err := svc.Issue(ctx, key)
	if source.IsNotFound(err) {
		return fmt.Errorf("no such issue %s", key)
	}
	if err != nil {
		return err
	}
	e.printExports(map[string]string{model.EnvIssue: issue.Key})
	return nil
}

func newSessionCreateCommand(env *Env) *cobra.Command {
	var opts createOptions
	cmd := &cobra.Command{
		Use:   "create <issue-type> <details>",
		Short: "Create an issue in the current project and work on it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := env.projectArg(nil, 0)
			if err != nil {
				return err
			}
			created, err := env.createIssue(cmd.Context(), project, args[0], args[1], opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(env.Stderr, created.Key)
			env.printExports(map[string]string{model.EnvIssue: created.Key})
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.assignToMe, "assign-to-me", false, "assign the issue to yourself")
	cmd.Flags().StringArrayVar(&opts.fields, "field", nil, "field value as name:=value (repeatable)")
	return cmd
}

func newSessionDeactivateCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate",
		Short: "Leave the current issue, or the project when no issue is active",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			vars := map[string]string{model.EnvIssue: ""}
			if env.Session().Issue == "" {
				vars[model.EnvProject] = ""
				vars[model.EnvVersion] = ""
				vars[model.EnvComponent] = ""
			}
			env.printExports(vars)
			return nil
		},
	}
}
