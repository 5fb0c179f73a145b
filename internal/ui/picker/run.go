package picker

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/jissue/internal/keys"
	"github.com/nhle/jissue/internal/source/jira"
)

// Run shows the picker on out (normally stderr, so stdout stays free for
// the chosen key) and returns the chosen issue.
func Run(title string, issues []jira.Issue, in io.Reader, out io.Writer) (jira.Issue, bool, error) {
	m := New(title, issues, keys.DefaultKeyMap(), 80, 24)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return jira.Issue{}, false, fmt.Errorf("running picker: %w", err)
	}
	issue, ok := final.(Model).Chosen()
	return issue, ok, nil
}
