package model

import (
	"fmt"
	"sort"
	"strings"
)

// Environment variables that carry the working context between commands.
const (
	EnvProject   = "JISSUE_PROJECT"
	EnvVersion   = "JISSUE_VERSION"
	EnvComponent = "JISSUE_COMPONENT"
	EnvIssue     = "JISSUE_ISSUE"
)

// Session is the working context: defaults for the project, version,
// component and issue arguments of every command.
type Session struct {
	Project   string
	Version   string
	Component string
	Issue     string
}

// SessionFromEnv reads the session from getenv (usually os.Getenv).
func SessionFromEnv(getenv func(string) string) Session {
	return Session{
		Project:   getenv(EnvProject),
		Version:   getenv(EnvVersion),
		Component: getenv(EnvComponent),
		Issue:     getenv(EnvIssue),
	}
}

// Vars returns the session as environment assignments.
func (s Session) Vars() map[string]string {
	return map[string]string{
		EnvProject:   s.Project,
		EnvVersion:   s.Version,
		EnvComponent: s.Component,
		EnvIssue:     s.Issue,
	}
}

// ExportLines renders assignments as shell export statements, sorted by
// name so the output is stable.
func ExportLines(vars map[string]string) []string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("export %s=%s", name, shellQuote(vars[name])))
	}
	return lines
}

// shellQuote quotes v for a POSIX shell when it needs quoting.
func shellQuote(v string) string {
	if v == "" {
		return "''"
	}
	if !strings.ContainsAny(v, " \t\n'\"\\$`!*?[]{}()<>|&;#~") {
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}
