package picker

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/jissue/internal/source/jira"
	"github.com/nhle/jissue/internal/theme"
)

// IssueItem wraps a jira.Issue so it can be used in a bubbles/list.
type IssueItem struct {
	Issue jira.Issue
}

// FilterValue returns the string used for fuzzy filtering.
func (i IssueItem) FilterValue() string {
	return i.Issue.Key + " " + i.Issue.Fields.Summary
}

// Title returns the issue summary.
func (i IssueItem) Title() string { return i.Issue.Fields.Summary }

// Description returns a short summary line for the list.
func (i IssueItem) Description() string {
	parts := []string{
		i.Issue.Key,
		statusName(i.Issue),
		relativeTime(updatedAt(i.Issue)),
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering issues.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single list item line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(IssueItem)
	if !ok {
		return
	}
	issue := it.Issue

	keyBadge := theme.KeyStyle.Render(fmt.Sprintf("%-10s", issue.Key))

	category := ""
	if issue.Fields.Status != nil {
		category = issue.Fields.Status.StatusCategory.Key
	}
	statusBadge := theme.StatusStyle(category).Render(statusName(issue))

	priority := ""
	if issue.Fields.Priority != nil {
		priority = issue.Fields.Priority.Name
	}
	priBadge := theme.PriorityStyle(priority).Render(priorityLabel(priority))

	timeStr := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeTime(updatedAt(issue)))

	line := fmt.Sprintf("%s %s %s %s  %s",
		keyBadge, statusBadge, priBadge, issue.Fields.Summary, timeStr)

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

func statusName(issue jira.Issue) string {
	if issue.Fields.Status == nil {
		return ""
	}
	return issue.Fields.Status.Name
}

func updatedAt(issue jira.Issue) time.Time {
	t, _ := jira.ParseTimestamp(issue.Fields.Updated)
	return t
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}

// priorityLabel shortens a priority name to its first letter, "-" when
// the issue has none.
func priorityLabel(p string) string {
	if p == "" {
		return "-"
	}
	return strings.ToUpper(p[:1])
}
