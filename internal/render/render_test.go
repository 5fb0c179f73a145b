package render

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nhle/jissue/internal/model"
	"github.com/nhle/jissue/internal/source/jira"
)

const detailedIssue = `{
	"key": "ABC-7",
	"fields": {
		"summary": "Crash on save",
		"description": "Steps to reproduce",
		"project": {"key": "ABC", "name": "Alphabet"},
		"issuetype": {"name": "Bug"},
		"status": {"name": "In Progress", "statusCategory": {"key": "indeterminate"}},
		"priority": {"name": "Major"},
		"assignee": {"displayName": "Ann"},
		"reporter": {"displayName": "Bob"},
		"created": "2024-03-01T09:15:42.000+0200",
		"updated": "2024-03-02T10:00:00.000+0200",
		"labels": ["ui", "crash"],
		"components": [{"name": "Core"}, {"name": "UI"}],
		"fixVersions": [{"name": "1.1"}],
		"comment": {"comments": [
			{"author": {"displayName": "Ann"}, "created": "2024-03-01T10:00:00.000+0200", "body": "on it"},
			{"author": {"displayName": "Bob"}, "created": "2024-03-01T11:30:00.000+0200", "body": "thanks"}
		]},
		"issuelinks": [
			{"id": "1", "type": {"name": "Blocks", "inward": "is blocked by", "outward": "blocks"},
			 "outwardIssue": {"key": "ABC-8", "fields": {"summary": "Release", "status": {"name": "Open"}}}},
			{"id": "2", "type": {"name": "Blocks", "inward": "is blocked by", "outward": "blocks"},
			 "inwardIssue": {"key": "ABC-3", "fields": {"summary": "Schema", "status": {"name": "Closed"}}}}
		],
		"subtasks": [
			{"key": "ABC-9", "fields": {"summary": "Write test", "status": {"name": "Open"}}}
		]
	}
}`

func decode(t *testing.T, doc string) *jira.Issue {
	t.Helper()
	var issue jira.Issue
	if err := json.Unmarshal([]byte(doc), &issue); err != nil {
		t.Fatalf("decoding issue: %v", err)
	}
	return &issue
}

func TestFormatScalars(t *testing.T) {
	when := time.Date(2024, 3, 1, 9, 15, 42, 0, time.Local)
	tests := []struct {
		in   any
		want string
	}{
		{"Open", "Open"},
		{42, "42"},
		{when, "2024-03-01 09:15"},
		{[]string{"a", "b"}, "a, b"},
		{[]string{}, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Errorf("Format(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatComments(t *testing.T) {
	issue := decode(t, detailedIssue)
	v, _ := jira.NewMapper(nil).Map(jira.FieldComments, issue)

	want := "Ann added a comment - 2024-03-01 10:00\non it\n\n" +
		"Bob added a comment - 2024-03-01 11:30\nthanks"
	if got := Format(v); got != want {
		t.Errorf("comments =\n%s\nwant\n%s", got, want)
	}
}

func TestFormatLinksUseDirectionalPhrase(t *testing.T) {
	issue := decode(t, detailedIssue)
	v, _ := jira.NewMapper(nil).Map(jira.FieldIssueLinks, issue)

	lines := strings.Split(Format(v), "\n\n")
	if len(lines) != 2 {
		t.Fatalf("got %d link rows: %q", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "blocks               ABC-8") {
		t.Errorf("outward link row = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "is blocked by        ABC-3") {
		t.Errorf("inward link row = %q", lines[1])
	}
	if !strings.HasSuffix(lines[1], "Schema") {
		t.Errorf("inward link row missing summary: %q", lines[1])
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("ab", 3); got != "ab" {
		t.Errorf("Truncate short = %q", got)
	}
	if got := Truncate("ééé", 2); got != "éé" {
		t.Errorf("Truncate runes = %q", got)
	}
}

func TestSortRows(t *testing.T) {
	issues := []jira.Issue{
		*decode(t, `{"key":"ABC-2","fields":{"summary":"b","created":"2024-01-02T00:00:00.000+0000"}}`),
		*decode(t, `{"key":"ABC-1","fields":{"summary":"a","created":"2024-01-03T00:00:00.000+0000"}}`),
		*decode(t, `{"key":"ABC-3","fields":{"summary":"c","created":"2024-01-01T00:00:00.000+0000"}}`),
	}
	rows, err := Rows(jira.NewMapper(nil), issues)
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}

	if err := SortRows(rows, "key", false); err != nil {
		t.Fatalf("SortRows: %v", err)
	}
	if got := keys(rows); got != "ABC-1 ABC-2 ABC-3" {
		t.Errorf("by key = %s", got)
	}

	if err := SortRows(rows, "Created", true); err != nil {
		t.Fatalf("SortRows: %v", err)
	}
	if got := keys(rows); got != "ABC-1 ABC-2 ABC-3" {
		t.Errorf("by created desc = %s", got)
	}

	if err := SortRows(rows, "Created", false); err != nil {
		t.Fatalf("SortRows: %v", err)
	}
	if got := keys(rows); got != "ABC-3 ABC-2 ABC-1" {
		t.Errorf("by created asc = %s", got)
	}

	if err := SortRows(rows, "Labels", false); err == nil {
		t.Error("sorting by a non-list column should fail")
	}
}

func keys(rows []Row) string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Issue.Key
	}
	return strings.Join(out, " ")
}

func TestCompareValuesNumbersFirst(t *testing.T) {
	if compareValues(5, "0|hzzzz") >= 0 {
		t.Error("numbers should sort before lexical ranks")
	}
	if compareValues("0|a", 3) <= 0 {
		t.Error("lexical ranks should sort after numbers")
	}
	if compareValues(2, 10) >= 0 {
		t.Error("numbers compare numerically")
	}
}

func TestWriteList(t *testing.T) {
	issues := []jira.Issue{*decode(t, detailedIssue)}
	rows, _ := Rows(jira.NewMapper(nil), issues)

	var b strings.Builder
	if err := WriteList(&b, rows); err != nil {
		t.Fatalf("WriteList: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Rank    Type           Key                 Summary") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "0       Bug            ABC-7               Crash on save") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestWriteIssue(t *testing.T) {
	var b strings.Builder
	if err := WriteIssue(&b, jira.NewMapper(nil), decode(t, detailedIssue)); err != nil {
		t.Fatalf("WriteIssue: %v", err)
	}
	out := b.String()
	for _, want := range []string{
		"Alphabet / ABC-7\nCrash on save\n",
		"Resolution:    Unresolved",
		"Assignee: Ann",
		"Fix Version/s: 1.1",
		"Components: Core, UI",
		"Labels: ui, crash",
		"Sub-Tasks:\n                     ABC-9           Open            Write test",
		"Description:\nSteps to reproduce",
		"Bob added a comment - 2024-03-01 11:30\nthanks",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("detail view missing %q\n%s", want, out)
		}
	}
}

func TestVersionTable(t *testing.T) {
	out := VersionTable([]jira.Version{
		{Name: "1.2"},
		{Name: "1.1", ReleaseDate: "2020-06-01"},
		{Name: "1.0", ReleaseDate: "2020-01-01", Released: true},
	})
	for _, want := range []string{"Release Date", "2020-06-01", "released", "unreleased"} {
		if !strings.Contains(out, want) {
			t.Errorf("version table missing %q\n%s", want, out)
		}
	}
}

func TestHistoryTable(t *testing.T) {
	out := HistoryTable([]model.JournalEntry{{
		Action:    model.ActionResolve,
		Target:    "ABC-1",
		Detail:    "Fixed in 1.1",
		CreatedAt: time.Date(2024, 5, 6, 7, 8, 0, 0, time.Local),
	}})
	for _, want := range []string{"2024-05-06 07:08", "resolve", "ABC-1", "Fixed in 1.1"} {
		if !strings.Contains(out, want) {
			t.Errorf("history table missing %q\n%s", want, out)
		}
	}
}
