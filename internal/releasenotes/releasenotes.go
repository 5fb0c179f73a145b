// Package releasenotes builds the notes for one project version from the
// issues fixed in it.
package releasenotes

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/nhle/jissue/internal/source/jira"
)

// Item is one issue as it appears in the notes.
type Item struct {
	Key         string
	Title       string
	Description string
}

// Group holds the items of one issue type.
type Group struct {
	Type  string
	Items []Item
}

// Notes is everything the templates need.
type Notes struct {
	Project     string
	ProjectName string
	Version     string
	ReleaseDate string
	Released    bool
	Groups      []Group
}

// Build groups issues by type. Groups are sorted by type name and keep
// the issues in the order given. An issue's "Release Notes Title"
// replaces its summary when set.
func Build(m *jira.Mapper, project *jira.Project, version jira.Version, issues []jira.Issue) *Notes {
	byType := make(map[string][]Item)
	for i := range issues {
		issue := &issues[i]
		typ := mapString(m, jira.FieldType, issue)
		if typ == "" {
			typ = "Other"
		}
		title := mapString(m, jira.FieldReleaseNotesTitle, issue)
		if title == "" {
			title = issue.Fields.Summary
		}
		byType[typ] = append(byType[typ], Item{
			Key:         issue.Key,
			Title:       title,
			Description: mapString(m, jira.FieldReleaseNotesDescription, issue),
		})
	}

	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	notes := &Notes{
		Project:     project.Key,
		ProjectName: project.Name,
		Version:     version.Name,
		ReleaseDate: version.ReleaseDate,
		Released:    version.Released,
	}
	for _, t := range types {
		notes.Groups = append(notes.Groups, Group{Type: t, Items: byType[t]})
	}
	return notes
}

func mapString(m *jira.Mapper, field string, issue *jira.Issue) string {
	v, err := m.Map(field, issue)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

var markdownTemplate = template.Must(template.New("notes").Funcs(template.FuncMap{
	"indent": func(s string) string {
		return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n  ")
	},
}).Parse(`# {{if .ProjectName}}{{.ProjectName}}{{else}}{{.Project}}{{end}} {{.Version}}
{{if .ReleaseDate}}
Release date: {{.ReleaseDate}}{{if not .Released}} (planned){{end}}
{{end}}{{range .Groups}}
## {{.Type}}
{{range .Items}}
- **{{.Key}}** {{.Title}}{{if .Description}}
  {{indent .Description}}{{end}}{{end}}
{{else}}
No issues were fixed in this version.
{{end}}`))

// Markdown renders the notes as markdown.
func (n *Notes) Markdown() (string, error) {
	var b bytes.Buffer
	if err := markdownTemplate.Execute(&b, n); err != nil {
		return "", fmt.Errorf("rendering release notes: %w", err)
	}
	return b.String(), nil
}

// HTML renders the notes as XHTML suitable for a wiki page body in
// storage format.
func (n *Notes) HTML() (string, error) {
	md, err := n.Markdown()
	if err != nil {
		return "", err
	}
	converter := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithXHTML()),
	)
	var b bytes.Buffer
	if err := converter.Convert([]byte(md), &b); err != nil {
		return "", fmt.Errorf("converting release notes to html: %w", err)
	}
	return b.String(), nil
}

// Terminal renders the notes for display. style is a glamour style name
// such as "dark", "light" or "notty"; empty picks one from the terminal.
func (n *Notes) Terminal(style string, width int) (string, error) {
	md, err := n.Markdown()
	if err != nil {
		return "", err
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("rendering release notes: %w", err)
	}
	return out, nil
}
