// Package render turns mapped issue values, versions and journal entries
// into terminal text.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/jissue/internal/source/jira"
)

// DateTimeLayout is how timestamps appear in listings and comments.
const DateTimeLayout = "2006-01-02 15:04"

const linkRowFormat = "%-20s %-15s %-15s %s"

// Format renders a value produced by jira.Mapper.
func Format(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case time.Time:
		return v.Format(DateTimeLayout)
	case []string:
		return strings.Join(v, ", ")
	case []jira.Comment:
		return formatComments(v)
	case []jira.IssueLink:
		return formatLinks(v)
	case []jira.Issue:
		return formatSubTasks(v)
	default:
		return fmt.Sprint(v)
	}
}

// Truncate cuts s to at most n runes. A non-positive n leaves s alone.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func formatComments(comments []jira.Comment) string {
	parts := make([]string, 0, len(comments))
	for _, c := range comments {
		created, _ := jira.ParseTimestamp(c.Created)
		parts = append(parts, fmt.Sprintf("%s added a comment - %s\n%s",
			c.Author.DisplayName, created.Format(DateTimeLayout), c.Body))
	}
	return strings.Join(parts, "\n\n")
}

func formatLinks(links []jira.IssueLink) string {
	parts := make([]string, 0, len(links))
	for _, l := range links {
		linked := l.Linked()
		parts = append(parts, fmt.Sprintf(linkRowFormat,
			l.Phrase(), linked.Key, statusName(&linked), linked.Fields.Summary))
	}
	return strings.Join(parts, "\n\n")
}

func formatSubTasks(issues []jira.Issue) string {
	parts := make([]string, 0, len(issues))
	for i := range issues {
		parts = append(parts, fmt.Sprintf(linkRowFormat,
			"", issues[i].Key, statusName(&issues[i]), issues[i].Fields.Summary))
	}
	return strings.Join(parts, "\n")
}

func statusName(issue *jira.Issue) string {
	if issue.Fields.Status == nil {
		return ""
	}
	return issue.Fields.Status.Name
}
