package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/jissue/internal/crossref"
	"github.com/nhle/jissue/internal/model"
	"github.com/nhle/jissue/internal/render"
	"github.com/nhle/jissue/internal/source/jira"
)

type listOptions struct {
	sortBy  string
	reverse bool
	table   bool
}

func (o *listOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.sortBy, "sort-by", jira.FieldRank, "column to sort by")
	cmd.Flags().BoolVar(&o.reverse, "reverse", false, "reverse the sort order")
	cmd.Flags().BoolVar(&o.table, "table", false, "draw a styled table")
}

func (e *Env) printIssues(ctx context.Context, issues []jira.Issue, opts listOptions) error {
	svc, err := e.Jira()
	if err != nil {
		return err
	}
	m, err := svc.Mapper(ctx)
	if err != nil {
		return err
	}
	rows, err := render.Rows(m, issues)
	if err != nil {
		return err
	}
	if err := render.SortRows(rows, opts.sortBy, opts.reverse); err != nil {
		return err
	}
	if opts.table {
		e.println(render.ListTable(rows))
		return nil
	}
	return render.WriteList(e.Stdout, rows)
}

func newListCommand(env *Env) *cobra.Command {
	var opts listOptions
	var assignee string
	cmd := &cobra.Command{
		Use:   "list [project]",
		Short: "List open issues",
		Long: `List unresolved issues. Without a project or assignee this lists
the issues assigned to you.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project := ""
			if len(args) > 0 {
				project = strings.ToUpper(args[0])
			} else if assignee != "" || env.Session().Project != "" {
				project = strings.ToUpper(env.Session().Project)
			}
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			issues, err := svc.Search(cmd.Context(), jira.ListJQL(project, assignee))
			if err != nil {
				return err
			}
			return env.printIssues(cmd.Context(), issues, opts)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&assignee, "assignee", "", "jira user name")
	return cmd
}

func newSearchCommand(env *Env) *cobra.Command {
	var opts listOptions
	var filter string
	cmd := &cobra.Command{
		Use:   "search (<query> | --filter <name>)",
		Short: "Search issues with JQL or a favourite filter",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (filter == "") == (len(args) == 0) {
				return errors.New("give either a JQL query or --filter")
			}
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			var issues []jira.Issue
			if filter != "" {
				issues, err = svc.SearchFilter(cmd.Context(), filter)
			} else {
				issues, err = svc.Search(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return env.printIssues(cmd.Context(), issues, opts)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&filter, "filter", "", "name of a favourite filter")
	return cmd
}

func newShowCommand(env *Env) *cobra.Command {
	var field string
	var browse bool
	cmd := &cobra.Command{
		Use:   "show [issue]",
		Short: "Print issue details",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := env.issueArg(args, 0)
			if err != nil {
				return err
			}
			switch {
			case browse:
				svc, err := env.Jira()
				if err != nil {
					return err
				}
				env.println(svc.BrowseURL(key))
				return nil
			case field != "":
				return env.showField(cmd.Context(), key, field)
			}
			return env.showIssue(cmd.Context(), key)
		},
	}
	cmd.Flags().StringVarP(&field, "field", "f", "", "print only this field")
	cmd.Flags().BoolVar(&browse, "url", false, "print the web address of the issue")
	cmd.MarkFlagsMutuallyExclusive("field", "url")
	return cmd
}

func (e *Env) showField(ctx context.Context, key, field string) error {
	if _, ok := jira.CanonicalField(field); !ok {
		return fmt.Errorf("unknown field %q, known fields: %s",
			field, strings.Join(jira.FieldNames(), ", "))
	}
	svc, err := e.Jira()
	if err != nil {
		return err
	}
	issue, err := svc.Issue(ctx, key)
	if err != nil {
		return err
	}
	m, err := svc.Mapper(ctx)
	if err != nil {
		return err
	}
	v, err := m.Map(field, issue)
	if err != nil {
		return err
	}
	e.println(render.Format(v))
	return nil
}

func (e *Env) showIssue(ctx context.Context, key string) error {
	svc, err := e.Jira()
	if err != nil {
		return err
	}
	issue, err := svc.Issue(ctx, key)
	if err != nil {
		return err
	}
	m, err := svc.Mapper(ctx)
	if err != nil {
		return err
	}
	return render.WriteIssue(e.Stdout, m, issue)
}

// lifecycleCommand builds start, stop and reopen.
func lifecycleCommand(
	env *Env,
	use, short, action string,
	run func(svc *jira.Service, ctx context.Context, key string) error,
) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [issue]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := env.issueArg(args, 0)
			if err != nil {
				return err
			}
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			if err := run(svc, cmd.Context(), key); err != nil {
				return err
			}
			env.record(cmd.Context(), action, key, "")
			return nil
		},
	}
}

func newStartCommand(env *Env) *cobra.Command {
	return lifecycleCommand(env, "start", "Mark work started on an issue", model.ActionStart,
		(*jira.Service).Start)
}

func newStopCommand(env *Env) *cobra.Command {
	return lifecycleCommand(env, "stop", "Mark work stopped on an issue", model.ActionStop,
		(*jira.Service).Stop)
}

func newReopenCommand(env *Env) *cobra.Command {
	return lifecycleCommand(env, "reopen", "Re-open a resolved issue", model.ActionReopen,
		(*jira.Service).Reopen)
}

func parseFieldValues(raw []string) ([]jira.FieldValue, error) {
	values := make([]jira.FieldValue, 0, len(raw))
	for _, r := range raw {
		v, err := jira.ParseFieldValue(r)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func newTransitionCommand(env *Env) *cobra.Command {
	var fields []string
	var list bool
	cmd := &cobra.Command{
		Use:   "transition [<name>] [issue]",
		Short: "Apply a workflow transition by name, or list the available ones",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			if list || len(args) == 0 {
				key, err := env.issueArg(args, 0)
				if err != nil {
					return err
				}
				ts, err := svc.Transitions(cmd.Context(), key)
				if err != nil {
					return err
				}
				for _, t := range ts {
					env.printf("%-25s -> %s\n", t.Name, t.To.Name)
				}
				return nil
			}

			key, err := env.issueArg(args, 1)
			if err != nil {
				return err
			}
			values, err := parseFieldValues(fields)
			if err != nil {
				return err
			}
			if err := svc.TransitionWithValues(cmd.Context(), key, args[0], values); err != nil {
				return err
			}
			env.record(cmd.Context(), model.ActionTransition, key, args[0])
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&fields, "field", nil, "field value as name:=value (repeatable)")
	cmd.Flags().BoolVar(&list, "list", false, "list the transitions available on the issue")
	return cmd
}

type createOptions struct {
	component  string
	fixVersion string
	short      bool
	assignToMe bool
	fields     []string
}

func newCreateCommand(env *Env) *cobra.Command {
	var opts createOptions
	cmd := &cobra.Command{
		Use:   "create <issue-type> <details> [project]",
		Short: "Create an issue",
		Long: `Create an issue. The first line of details is the summary and the
rest the description.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := env.projectArg(args, 2)
			if err != nil {
				return err
			}
			created, err := env.createIssue(cmd.Context(), project, args[0], args[1], opts)
			if err != nil {
				return err
			}
			if opts.short {
				env.println(created.Key)
				return nil
			}
			return env.showIssue(cmd.Context(), created.Key)
		},
	}
	cmd.Flags().StringVar(&opts.component, "component", "", "component name (default $JISSUE_COMPONENT)")
	cmd.Flags().StringVar(&opts.fixVersion, "fix-version", "", "fix version (default $JISSUE_VERSION)")
	cmd.Flags().BoolVar(&opts.short, "short", false, "print just the issue key")
	cmd.Flags().BoolVar(&opts.assignToMe, "assign-to-me", false, "assign the issue to yourself")
	cmd.Flags().StringArrayVar(&opts.fields, "field", nil, "field value as name:=value (repeatable)")
	return cmd
}

func (e *Env) createIssue(
	ctx context.Context,
	project, issueType, details string,
	opts createOptions,
) (*jira.CreatedIssue, error) {
	svc, err := e.Jira()
	if err != nil {
		return nil, err
	}
	values, err := parseFieldValues(opts.fields)
	if err != nil {
		return nil, err
	}
	session := e.Session()
	req := jira.CreateRequest{
		Project:    project,
		IssueType:  issueType,
		Details:    details,
		Component:  firstNonEmpty(opts.component, session.Component),
		FixVersion: firstNonEmpty(opts.fixVersion, session.Version),
		Assignee:   jira.AssignAutomatic,
		Fields:     values,
	}
	if opts.assignToMe {
		req.Assignee = e.cfg.Username
	}
	created, err := svc.CreateIssue(ctx, req)
	if err != nil {
		return nil, err
	}
	summary, _ := jira.SplitDetails(details)
	e.record(ctx, model.ActionCreate, created.Key, summary)
	return created, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func newCommentCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <message> [issue]",
		Short: "Add a comment to an issue",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := env.issueArg(args, 1)
			if err != nil {
				return err
			}
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			if err := svc.Comment(cmd.Context(), key, args[0]); err != nil {
				return err
			}
			env.record(cmd.Context(), model.ActionComment, key, args[0])
			return nil
		},
	}
}

func newResolveCommand(env *Env) *cobra.Command {
	var resolution, fixVersion, commit string
	cmd := &cobra.Command{
		Use:   "resolve [issue] [message]",
		Short: "Resolve an issue",
		Long: `Resolve an issue and optionally comment on it. The fix version
defaults to $JISSUE_VERSION, then to the project's earliest unreleased
version.

With --commit the message of that commit becomes the comment and the
first issue key in it names the issue.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var key, message string
			if commit != "" {
				msg, err := env.Git.CommitMessage(ctx, commit)
				if err != nil {
					return err
				}
				message = msg
				key, err = commitIssue(msg, args, env.Session().Project)
				if err != nil {
					return fmt.Errorf("commit %s: %w", commit, err)
				}
			} else {
				k, err := env.issueArg(args, 0)
				if err != nil {
					return err
				}
				key = k
				if len(args) > 1 {
					message = args[1]
				}
			}

			svc, err := env.Jira()
			if err != nil {
				return err
			}
			var versions []string
			if v := firstNonEmpty(fixVersion, env.Session().Version); v != "" {
				versions = []string{v}
			}
			set, err := svc.Resolve(ctx, key, resolution, versions)
			if err != nil {
				return err
			}
			env.record(ctx, model.ActionResolve, key,
				fmt.Sprintf("%s in %s", resolution, strings.Join(set, ", ")))

			if message == "" {
				return nil
			}
			if err := svc.Comment(ctx, key, message); err != nil {
				return err
			}
			env.record(ctx, model.ActionComment, key, message)
			return nil
		},
	}
	cmd.Flags().StringVar(&resolution, "resolve-as", "Fixed", "resolution name")
	cmd.Flags().StringVar(&fixVersion, "fix-version", "", "fix version (default $JISSUE_VERSION, then the next release)")
	cmd.Flags().StringVar(&commit, "commit", "", "take the issue and comment from this git commit")
	return cmd
}

// commitIssue picks the issue a commit message is about: the argument
// if given, else the first key of the session project, else the first
// key at all.
func commitIssue(msg string, args []string, project string) (string, error) {
	if len(args) > 0 {
		return strings.ToUpper(args[0]), nil
	}
	if project != "" {
		if keys := crossref.KeysInProject(msg, project); len(keys) > 0 {
			return keys[0], nil
		}
	}
	if key, ok := crossref.FirstKey(msg); ok {
		return key, nil
	}
	return "", errors.New("no issue key in the commit message")
}

func newLinkCommand(env *Env) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "link <link-type> <target-issue> [issue]",
		Short: "Link an issue to another",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := env.issueArg(args, 2)
			if err != nil {
				return err
			}
			target := strings.ToUpper(args[1])
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			if err := svc.LinkIssues(cmd.Context(), args[0], key, target, message); err != nil {
				return err
			}
			env.record(cmd.Context(), model.ActionLink, key, args[0]+" "+target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "comment to add with the link")
	return cmd
}

func newLabelCommand(env *Env) *cobra.Command {
	var labels []string
	cmd := &cobra.Command{
		Use:   "label [issue] --label <label>...",
		Short: "Add labels to an issue",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(labels) == 0 {
				return errors.New("at least one --label is required")
			}
			key, err := env.issueArg(args, 0)
			if err != nil {
				return err
			}
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			all, err := svc.AddLabels(cmd.Context(), key, labels)
			if err != nil {
				return err
			}
			env.record(cmd.Context(), model.ActionLabel, key, strings.Join(labels, ", "))
			env.println(strings.Join(all, ", "))
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&labels, "label", "l", nil, "label to add (repeatable)")
	return cmd
}

func newAssignCommand(env *Env) *cobra.Command {
	var assignee string
	var automatic, nobody, me bool
	cmd := &cobra.Command{
		Use:   "assign [issue] (--assignee <user> | --automatic | --to-no-one | --to-me)",
		Short: "Assign an issue",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := env.issueArg(args, 0)
			if err != nil {
				return err
			}
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			target := assignee
			switch {
			case automatic:
				target = jira.AssignAutomatic
			case nobody:
				target = jira.AssignNobody
			case me:
				target = env.cfg.Username
			}
			if err := svc.Assign(cmd.Context(), key, target); err != nil {
				return err
			}
			env.record(cmd.Context(), model.ActionAssign, key, describeAssignee(target))
			return nil
		},
	}
	cmd.Flags().StringVar(&assignee, "assignee", "", "jira user name")
	cmd.Flags().BoolVar(&automatic, "automatic", false, "let the project pick the assignee")
	cmd.Flags().BoolVar(&nobody, "to-no-one", false, "leave the issue unassigned")
	cmd.Flags().BoolVar(&me, "to-me", false, "assign the issue to yourself")
	cmd.MarkFlagsMutuallyExclusive("assignee", "automatic", "to-no-one", "to-me")
	cmd.MarkFlagsOneRequired("assignee", "automatic", "to-no-one", "to-me")
	return cmd
}

func describeAssignee(target string) string {
	switch target {
	case jira.AssignAutomatic:
		return "automatic"
	case jira.AssignNobody:
		return jira.Unassigned
	}
	return target
}

func newInventoryCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "inventory [project]",
		Short: "List the components, versions and transitions of a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := env.projectArg(args, 0)
			if err != nil {
				return err
			}
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			inv, err := svc.Inventory(cmd.Context(), project)
			if err != nil {
				return err
			}
			fmt.Fprint(env.Stdout, render.InventoryText(inv))
			return nil
		},
	}
}

func newFiltersCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List your favourite search filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := env.Jira()
			if err != nil {
				return err
			}
			filters, err := svc.FavouriteFilters(cmd.Context())
			if err != nil {
				return err
			}
			env.println(render.FilterTable(filters))
			return nil
		},
	}
}
