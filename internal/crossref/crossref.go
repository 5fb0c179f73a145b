// Package crossref finds Jira issue keys in free text such as commit
// messages and branch names.
package crossref

import (
	"regexp"
	"strings"
)

// jiraKeyPattern matches Jira issue keys (e.g., PROJ-123, ABC-1).
var jiraKeyPattern = regexp.MustCompile(`\b([A-Z][A-Z0-9]+-\d+)\b`)

// ExtractJiraKeys extracts all Jira issue key matches from text.
// Returns a deduplicated list preserving the order of first occurrence.
func ExtractJiraKeys(text string) []string {
	matches := jiraKeyPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var result []string
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		result = append(result, m)
	}
	return result
}

// FirstKey returns the first issue key in text. Branch names are often
// lower case, so the text is matched upper-cased as a fallback.
func FirstKey(text string) (string, bool) {
	if keys := ExtractJiraKeys(text); len(keys) > 0 {
		return keys[0], true
	}
	if keys := ExtractJiraKeys(strings.ToUpper(text)); len(keys) > 0 {
		return keys[0], true
	}
	return "", false
}

// KeysInProject returns the keys found in text that belong to project.
// An empty project returns every key.
func KeysInProject(text, project string) []string {
	keys := ExtractJiraKeys(text)
	if project == "" {
		return keys
	}

	prefix := strings.ToUpper(project) + "-"
	var filtered []string
	for _, key := range keys {
		if strings.HasPrefix(key, prefix) {
			filtered = append(filtered, key)
		}
	}
	return filtered
}
