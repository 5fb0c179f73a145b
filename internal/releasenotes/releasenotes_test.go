package releasenotes

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/nhle/jissue/internal/source/jira"
)

const fixedInVersion = `[
	{"key": "ABC-1", "fields": {"summary": "Crash on save", "issuetype": {"name": "Bug"}}},
	{"key": "ABC-4", "fields": {"summary": "Add export", "issuetype": {"name": "Story"},
		"customfield_10500": "Export issues as mail",
		"customfield_10501": "Each issue becomes one message.\nComments follow."}},
	{"key": "ABC-2", "fields": {"summary": "Wrong label", "issuetype": {"name": "Bug"}}}
]`

func buildNotes(t *testing.T, version jira.Version) *Notes {
	t.Helper()
	var issues []jira.Issue
	if err := json.Unmarshal([]byte(fixedInVersion), &issues); err != nil {
		t.Fatalf("decoding issues: %v", err)
	}
	m := jira.NewMapper([]jira.Field{
		{ID: "customfield_10500", Name: "Release Notes Title", Custom: true},
		{ID: "customfield_10501", Name: "Release Notes Description", Custom: true},
	})
	project := &jira.Project{Key: "ABC", Name: "Alphabet"}
	return Build(m, project, version, issues)
}

func TestBuildGroupsByType(t *testing.T) {
	notes := buildNotes(t, jira.Version{Name: "1.1"})

	if len(notes.Groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(notes.Groups))
	}
	bugs := notes.Groups[0]
	if bugs.Type != "Bug" || len(bugs.Items) != 2 {
		t.Fatalf("first group = %+v", bugs)
	}
	if bugs.Items[0].Key != "ABC-1" || bugs.Items[1].Key != "ABC-2" {
		t.Errorf("items lost their order: %+v", bugs.Items)
	}
	story := notes.Groups[1].Items[0]
	if story.Title != "Export issues as mail" {
		t.Errorf("release notes title not used: %q", story.Title)
	}
}

func TestMarkdown(t *testing.T) {
	notes := buildNotes(t, jira.Version{Name: "1.1", ReleaseDate: "2020-06-01"})

	md, err := notes.Markdown()
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	for _, want := range []string{
		"# Alphabet 1.1\n",
		"Release date: 2020-06-01 (planned)",
		"## Bug\n\n- **ABC-1** Crash on save\n- **ABC-2** Wrong label\n",
		"## Story\n\n- **ABC-4** Export issues as mail\n  Each issue becomes one message.\n  Comments follow.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}

func TestMarkdownEmptyVersion(t *testing.T) {
	notes := Build(jira.NewMapper(nil), &jira.Project{Key: "ABC"}, jira.Version{Name: "2.0"}, nil)
	md, err := notes.Markdown()
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	if !strings.Contains(md, "# ABC 2.0") || !strings.Contains(md, "No issues were fixed") {
		t.Errorf("markdown = %q", md)
	}
}

func TestHTML(t *testing.T) {
	notes := buildNotes(t, jira.Version{Name: "1.1", Released: true, ReleaseDate: "2020-06-01"})

	out, err := notes.HTML()
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	for _, want := range []string{
		"<h1>Alphabet 1.1</h1>",
		"<h2>Bug</h2>",
		"<strong>ABC-1</strong> Crash on save",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("html missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "(planned)") {
		t.Error("released version shown as planned")
	}
}

func TestTerminal(t *testing.T) {
	notes := buildNotes(t, jira.Version{Name: "1.1"})

	out, err := notes.Terminal("notty", 80)
	if err != nil {
		t.Fatalf("Terminal: %v", err)
	}
	for _, want := range []string{"Alphabet 1.1", "ABC-4", "Wrong label"} {
		if !strings.Contains(out, want) {
			t.Errorf("terminal output missing %q\n%s", want, out)
		}
	}
}
