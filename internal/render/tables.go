package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nhle/jissue/internal/model"
	"github.com/nhle/jissue/internal/source/jira"
	"github.com/nhle/jissue/internal/theme"
)

func newTable(headers []string, rows [][]string, cell func(row, col int) lipgloss.Style) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.HeaderStyle
			}
			if cell != nil {
				return cell(row, col)
			}
			return theme.CellStyle
		})
	return t.Render()
}

// VersionTable lists versions with their release state, newest first as
// given.
func VersionTable(versions []jira.Version) string {
	rows := make([][]string, 0, len(versions))
	for _, v := range versions {
		state := "unreleased"
		switch {
		case v.Archived:
			state = "archived"
		case v.Released:
			state = "released"
		}
		rows = append(rows, []string{v.Name, v.Description, v.ReleaseDate, state})
	}
	return newTable(
		[]string{"Name", "Description", "Release Date", "State"},
		rows,
		func(row, _ int) lipgloss.Style {
			return theme.ReleaseStyle(versions[row].Released, versions[row].Archived)
		},
	)
}

// InventoryText lists a project's components, versions and the
// transitions available per issue type.
func InventoryText(inv *jira.Inventory) string {
	var b strings.Builder
	p := inv.Project

	fmt.Fprintf(&b, "%s\n\n", theme.KeyStyle.Render(p.Key+" "+p.Name))

	components := make([][]string, 0, len(p.Components))
	for _, c := range p.Components {
		components = append(components, []string{c.Name})
	}
	b.WriteString(newTable([]string{"Components"}, components, nil))
	b.WriteString("\n\n")

	b.WriteString(VersionTable(jira.VisibleVersions(p)))
	b.WriteString("\n\n")

	types := make([]string, 0, len(inv.Transitions))
	for t := range inv.Transitions {
		types = append(types, t)
	}
	sort.Strings(types)
	transitions := make([][]string, 0, len(types))
	for _, t := range types {
		transitions = append(transitions, []string{t, strings.Join(inv.Transitions[t], ", ")})
	}
	b.WriteString(newTable([]string{"Issue Type", "Transitions"}, transitions, nil))
	b.WriteString("\n")
	return b.String()
}

// FilterTable lists saved filters.
func FilterTable(filters []jira.Filter) string {
	rows := make([][]string, 0, len(filters))
	for _, f := range filters {
		rows = append(rows, []string{f.ID, f.Name, f.JQL})
	}
	return newTable([]string{"ID", "Name", "JQL"}, rows, nil)
}

// HistoryTable lists journal entries.
func HistoryTable(entries []model.JournalEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.CreatedAt.Format(DateTimeLayout),
			e.Action,
			e.Target,
			Truncate(e.Detail, cellLimit),
		})
	}
	return newTable([]string{"When", "Action", "Target", "Detail"}, rows,
		func(_, col int) lipgloss.Style {
			if col == 2 {
				return theme.CellStyle.Inherit(theme.KeyStyle)
			}
			return theme.CellStyle
		})
}
