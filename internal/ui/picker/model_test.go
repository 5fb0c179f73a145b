package picker

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/jissue/internal/keys"
	"github.com/nhle/jissue/internal/source/jira"
)

func testIssues() []jira.Issue {
	return []jira.Issue{
		{Key: "ABC-2", Fields: jira.IssueFields{Summary: "older", Updated: "2024-01-01T00:00:00.000+0000",
			Priority: &jira.Priority{ID: "3", Name: "Major"}}},
		{Key: "ABC-1", Fields: jira.IssueFields{Summary: "newer", Updated: "2024-02-01T00:00:00.000+0000",
			Priority: &jira.Priority{ID: "1", Name: "Blocker"}}},
		{Key: "ABC-3", Fields: jira.IssueFields{Summary: "no priority", Updated: "2023-01-01T00:00:00.000+0000"}},
	}
}

func press(t *testing.T, m tea.Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	pm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return pm, cmd
}

func TestPickerChoosesMostRecentFirst(t *testing.T) {
	m := New("Issues", testIssues(), keys.DefaultKeyMap(), 80, 24)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("choosing should quit the program")
	}
	issue, ok := m.Chosen()
	if !ok || issue.Key != "ABC-1" {
		t.Errorf("chosen = %q, %v; want ABC-1", issue.Key, ok)
	}
}

func TestPickerCycleSort(t *testing.T) {
	m := New("Issues", testIssues(), keys.DefaultKeyMap(), 80, 24)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if sortModes[m.sortIndex] != "priority" {
		t.Fatalf("sort mode = %s", sortModes[m.sortIndex])
	}
	if m.issues[0].Key != "ABC-1" || m.issues[2].Key != "ABC-3" {
		t.Errorf("priority order = %s %s %s", m.issues[0].Key, m.issues[1].Key, m.issues[2].Key)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.issues[0].Key != "ABC-1" || m.issues[1].Key != "ABC-2" {
		t.Errorf("key order = %s %s", m.issues[0].Key, m.issues[1].Key)
	}
	if m.list.Title != "Issues (by key)" {
		t.Errorf("title = %q", m.list.Title)
	}
}

func TestPickerQuitWithoutChoice(t *testing.T) {
	m := New("Issues", testIssues(), keys.DefaultKeyMap(), 80, 24)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := m.Chosen(); ok {
		t.Error("quitting must not choose an issue")
	}
	if m.View() != "" {
		t.Error("view should be empty after quitting")
	}
}

func TestPickerEmpty(t *testing.T) {
	m := New("Issues", nil, keys.DefaultKeyMap(), 40, 10)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if _, ok := m.Chosen(); ok {
		t.Error("nothing to choose from an empty list")
	}
}

func TestPriorityLabel(t *testing.T) {
	if got := priorityLabel("major"); got != "M" {
		t.Errorf("priorityLabel = %q", got)
	}
	if got := priorityLabel(""); got != "-" {
		t.Errorf("priorityLabel empty = %q", got)
	}
}
