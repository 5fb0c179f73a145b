package render

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nhle/jissue/internal/source/jira"
	"github.com/nhle/jissue/internal/theme"
)

// ListColumns are the columns of "jissue list" and "jissue search".
var ListColumns = []string{
	jira.FieldRank,
	jira.FieldType,
	jira.FieldKey,
	jira.FieldSummary,
	jira.FieldStatus,
	jira.FieldCreated,
	jira.FieldUpdated,
}

var listWidths = []int{8, 15, 20, 50, 15, 20, 20}

// cellLimit keeps a cell three characters short of its column.
const cellLimit = 47

// Row is one issue mapped to the list columns.
type Row struct {
	Issue  *jira.Issue
	Values map[string]any
}

// Rows maps issues to list rows.
func Rows(m *jira.Mapper, issues []jira.Issue) ([]Row, error) {
	rows := make([]Row, 0, len(issues))
	for i := range issues {
		values, err := m.MapAll(ListColumns, &issues[i])
		if err != nil {
			return nil, err
		}
		rows = append(rows, Row{Issue: &issues[i], Values: values})
	}
	return rows, nil
}

// SortRows orders rows by column. The column name is matched like a
// field name, so "rank" and "Rank" both work.
func SortRows(rows []Row, column string, reverse bool) error {
	canonical, ok := jira.CanonicalField(column)
	if !ok || !isListColumn(canonical) {
		return fmt.Errorf("cannot sort by %q: choose one of %s",
			column, strings.Join(ListColumns, ", "))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := compareValues(rows[i].Values[canonical], rows[j].Values[canonical])
		if reverse {
			return c > 0
		}
		return c < 0
	})
	return nil
}

func isListColumn(name string) bool {
	for _, c := range ListColumns {
		if c == name {
			return true
		}
	}
	return false
}

// compareValues orders mapped values. Numbers sort before text, which
// matters for Rank where some servers return lexical ranks.
func compareValues(a, b any) int {
	switch av := a.(type) {
	case int:
		if bv, ok := b.(int); ok {
			return av - bv
		}
		return -1
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	}
	if _, ok := b.(int); ok {
		return 1
	}
	return strings.Compare(Format(a), Format(b))
}

// WriteList prints rows as fixed-width text.
func WriteList(w io.Writer, rows []Row) error {
	if _, err := fmt.Fprintln(w, fixedRow(ListColumns)); err != nil {
		return err
	}
	for _, r := range rows {
		cells := make([]string, len(ListColumns))
		for i, c := range ListColumns {
			cells[i] = Truncate(Format(r.Values[c]), cellLimit)
		}
		if _, err := fmt.Fprintln(w, fixedRow(cells)); err != nil {
			return err
		}
	}
	return nil
}

func fixedRow(cells []string) string {
	var b strings.Builder
	for i, c := range cells {
		fmt.Fprintf(&b, "%-*s", listWidths[i], c)
	}
	return strings.TrimRight(b.String(), " ")
}

// ListTable renders rows as a styled table for interactive terminals.
func ListTable(rows []Row) string {
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells := make([]string, len(ListColumns))
		for i, c := range ListColumns {
			cells[i] = Truncate(Format(r.Values[c]), cellLimit)
		}
		data = append(data, cells)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers(ListColumns...).
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.HeaderStyle
			}
			switch ListColumns[col] {
			case jira.FieldKey:
				return theme.CellStyle.Inherit(theme.KeyStyle)
			case jira.FieldStatus:
				return theme.StatusStyle(statusCategory(rows[row].Issue))
			}
			return theme.CellStyle
		})
	return t.Render()
}

func statusCategory(issue *jira.Issue) string {
	if issue == nil || issue.Fields.Status == nil {
		return ""
	}
	return issue.Fields.Status.StatusCategory.Key
}
