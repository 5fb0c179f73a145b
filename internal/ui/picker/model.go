// Package picker is an interactive list that lets the user choose one
// issue from a search result.
package picker

import (
	"sort"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/jissue/internal/keys"
	"github.com/nhle/jissue/internal/source/jira"
	"github.com/nhle/jissue/internal/theme"
)

// sortModes defines the available sort modes cycled by Tab.
var sortModes = []string{
	"updated",
	"priority",
	"key",
	"status",
}

// Model is the issue picker.
type Model struct {
	list      list.Model
	title     string
	keys      *keys.KeyMap
	issues    []jira.Issue
	sortIndex int
	chosen    *jira.Issue
	quitting  bool
	width     int
	height    int
}

// New creates a picker over issues.
func New(title string, issues []jira.Issue, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = title
	l.SetShowStatusBar(true)
	l.SetShowHelp(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = theme.HeaderStyle
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{k.CycleSort}
	}

	m := Model{
		list:   l,
		title:  title,
		keys:   k,
		issues: append([]jira.Issue(nil), issues...),
		width:  width,
		height: height,
	}
	m.applySort()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		// While the filter prompt is open every key belongs to it.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Select):
			item, ok := m.list.SelectedItem().(IssueItem)
			if !ok {
				return m, nil
			}
			m.chosen = &item.Issue
			return m, tea.Quit

		case key.Matches(msg, m.keys.Quit):
			if m.list.FilterState() == list.FilterApplied {
				m.list.ResetFilter()
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.CycleSort):
			m.sortIndex = (m.sortIndex + 1) % len(sortModes)
			return m, m.applySort()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// applySort orders the issues by the current sort mode and reloads the
// list.
func (m *Model) applySort() tea.Cmd {
	mode := sortModes[m.sortIndex]
	sort.SliceStable(m.issues, func(i, j int) bool {
		a, b := m.issues[i], m.issues[j]
		switch mode {
		case "priority":
			return priorityRank(a) < priorityRank(b)
		case "key":
			return a.Key < b.Key
		case "status":
			return statusName(a) < statusName(b)
		default:
			return updatedAt(a).After(updatedAt(b))
		}
	})

	items := make([]list.Item, len(m.issues))
	for i, issue := range m.issues {
		items[i] = IssueItem{Issue: issue}
	}
	m.list.Title = m.title + " (by " + mode + ")"
	return m.list.SetItems(items)
}

// priorityRank orders by priority id, which Jira numbers from most to
// least urgent. Issues without a priority come last.
func priorityRank(issue jira.Issue) int {
	if issue.Fields.Priority == nil {
		return int(^uint(0) >> 1)
	}
	n, err := strconv.Atoi(issue.Fields.Priority.ID)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}

// View implements tea.Model.
func (m Model) View() string {
	if m.chosen != nil || m.quitting {
		return ""
	}
	if len(m.issues) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No issues found.")
	}
	return m.list.View()
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}

// Chosen returns the issue picked with Enter, or false when the user quit.
func (m Model) Chosen() (jira.Issue, bool) {
	if m.chosen == nil {
		return jira.Issue{}, false
	}
	return *m.chosen, true
}
