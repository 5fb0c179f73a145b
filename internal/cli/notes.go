package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/nhle/jissue/internal/model"
	"github.com/nhle/jissue/internal/releasenotes"
	"github.com/nhle/jissue/internal/source/jira"
)

const notesWidth = 100

func newNotesCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Generate release notes and publish them to Confluence",
	}
	cmd.AddCommand(
		newNotesShowCommand(env),
		newNotesPublishCommand(env, "add-to-page", "Put the release notes above the current page body", true),
		newNotesPublishCommand(env, "publish", "Replace the page body with the release notes", false),
		newNotesFetchCommand(env),
		newNotesFindCommand(env),
		newNotesAttachmentsCommand(env),
	)
	return cmd
}

// buildNotes collects the issues fixed in the target version.
func (t *releaseTarget) buildNotes(ctx context.Context) (*releasenotes.Notes, error) {
	project, version, err := t.resolve()
	if err != nil {
		return nil, err
	}
	svc, err := t.env.Jira()
	if err != nil {
		return nil, err
	}
	p, err := svc.Project(ctx, project)
	if err != nil {
		return nil, err
	}
	v, err := jira.FindVersion(p.Versions, version)
	if err != nil {
		return nil, err
	}
	issues, err := svc.Search(ctx, jira.FixVersionJQL(p.Key, v.Name))
	if err != nil {
		return nil, err
	}
	m, err := svc.Mapper(ctx)
	if err != nil {
		return nil, err
	}
	return releasenotes.Build(m, p, v, issues), nil
}

func newNotesShowCommand(env *Env) *cobra.Command {
	t := &releaseTarget{env: env}
	var asHTML, asMarkdown bool
	var style string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the release notes of a version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			notes, err := t.buildNotes(cmd.Context())
			if err != nil {
				return err
			}
			var out string
			switch {
			case asHTML:
				out, err = notes.HTML()
			case asMarkdown:
				out, err = notes.Markdown()
			default:
				if style == "" && !env.Interactive {
					style = "notty"
				}
				out, err = notes.Terminal(style, notesWidth)
			}
			if err != nil {
				return err
			}
			env.printf("%s", out)
			return nil
		},
	}
	t.register(cmd, true)
	cmd.Flags().BoolVar(&asHTML, "html", false, "print the page body that publish would write")
	cmd.Flags().BoolVar(&asMarkdown, "markdown", false, "print plain markdown")
	cmd.Flags().StringVar(&style, "style", "", "glamour style: dark, light, notty")
	cmd.MarkFlagsMutuallyExclusive("html", "markdown")
	return cmd
}

func newNotesPublishCommand(env *Env, use, short string, prepend bool) *cobra.Command {
	t := &releaseTarget{env: env}
	cmd := &cobra.Command{
		Use:   use + " [page-id]",
		Short: short,
		Long: short + `.

Without a page id the project's page labelled "release-notes" is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			notes, err := t.buildNotes(ctx)
			if err != nil {
				return err
			}
			body, err := notes.HTML()
			if err != nil {
				return err
			}
			wiki, err := env.Wiki()
			if err != nil {
				return err
			}

			var pageID string
			if len(args) > 0 {
				pageID = args[0]
			} else {
				page, err := wiki.ReleaseNotesPage(ctx, notes.Project)
				if err != nil {
					return err
				}
				pageID = page.ID
			}

			if prepend {
				err = wiki.Prepend(ctx, pageID, body)
			} else {
				err = wiki.Replace(ctx, pageID, body)
			}
			if err != nil {
				return err
			}
			env.record(ctx, model.ActionPage, pageID, use+" "+notes.Project+" "+notes.Version)
			return nil
		},
	}
	t.register(cmd, true)
	return cmd
}

func newNotesFetchCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <page-id>",
		Short: "Print the text of a Confluence page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wiki, err := env.Wiki()
			if err != nil {
				return err
			}
			text, err := wiki.Text(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			env.println(text)
			return nil
		},
	}
}

func newNotesFindCommand(env *Env) *cobra.Command {
	t := &releaseTarget{env: env}
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Print the id of the project's release notes page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := t.projectKey()
			if err != nil {
				return err
			}
			wiki, err := env.Wiki()
			if err != nil {
				return err
			}
			page, err := wiki.ReleaseNotesPage(cmd.Context(), project)
			if err != nil {
				return err
			}
			env.printf("%s\t%s\n", page.ID, page.Title)
			return nil
		},
	}
	t.register(cmd, false)
	return cmd
}

func newNotesAttachmentsCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "attachments <page-id>",
		Short: "List the files attached to a Confluence page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wiki, err := env.Wiki()
			if err != nil {
				return err
			}
			files, err := wiki.Attachments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, f := range files {
				env.printf("%-40s %-25s %10d\n", f.Title, f.Metadata.MediaType, f.Extensions.FileSize)
			}
			return nil
		},
	}
}
