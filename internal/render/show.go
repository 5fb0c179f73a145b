package render

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/nhle/jissue/internal/source/jira"
)

// ShowFields are the mapper fields used by the issue detail view, keyed
// by the labels the view prints.
var ShowFields = []string{
	"Project", "Key", "Summary", "Type", "Status",
	"Priority", "Resolution", "Assignee", "Reporter",
	"Affects Version/s", "Fix Version/s", "Component/s",
	"Created", "Updated", "Labels",
	"Description", "Comments", "Issue Links", "Sub-Tasks",
}

const showText = `{{f "Project"}} / {{f "Key"}}
{{f "Summary"}}

Type:              {{pad "Type" 11}}                       Status:        {{pad "Status" 15}}            Assignee: {{pad "Assignee" 15}}
Priority:          {{pad "Priority" 15}}                   Resolution:    {{pad "Resolution" 19}}        Reporter: {{f "Reporter"}}
Affects Version/s: {{pad "Affects Version/s" 24}}          Fix Version/s: {{pad "Fix Version/s" 26}}
Components: {{pad "Component/s" 60}}                       Created: {{f "Created"}}
Labels: {{pad "Labels" 55}}                                Updated: {{f "Updated"}}

Issue Links:
{{f "Issue Links"}}

Sub-Tasks:
{{f "Sub-Tasks"}}

Description:
{{f "Description"}}

Comments:
{{f "Comments"}}
`

// WriteIssue prints the detail view of one issue.
func WriteIssue(w io.Writer, m *jira.Mapper, issue *jira.Issue) error {
	values, err := m.MapAll(ShowFields, issue)
	if err != nil {
		return err
	}
	formatted := make(map[string]string, len(values))
	for k, v := range values {
		formatted[k] = Format(v)
	}

	tmpl, err := template.New("issue").Funcs(template.FuncMap{
		"f": func(name string) string { return formatted[name] },
		"pad": func(name string, width int) string {
			return fmt.Sprintf("%-*s", width, formatted[name])
		},
	}).Parse(showText)
	if err != nil {
		return fmt.Errorf("parsing issue template: %w", err)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, nil); err != nil {
		return fmt.Errorf("rendering %s: %w", issue.Key, err)
	}
	_, err = io.WriteString(w, b.String())
	return err
}
