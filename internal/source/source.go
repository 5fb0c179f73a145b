package source

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// SourceType identifies which remote service produced an error.
type SourceType string

const (
	SourceTypeJira       SourceType = "jira"
	SourceTypeConfluence SourceType = "confluence"
)

// AuthError indicates that authentication has failed for a source.
// It is returned by source clients when a 401 response is received.
type AuthError struct {
	SourceType SourceType
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.SourceType, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// APIError is a non-2xx or malformed response from a remote service.
type APIError struct {
	SourceType    SourceType
	StatusCode    int
	Method        string
	Path          string
	ErrorMessages []string
	Errors        map[string]string
	Body          string
}

func (e *APIError) Error() string {
	var details []string
	details = append(details, e.ErrorMessages...)

	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		details = append(details, k+": "+e.Errors[k])
	}

	if len(details) == 0 && e.Body != "" {
		details = append(details, e.Body)
	}

	return fmt.Sprintf(
		"%s API error (%d) on %s %s: %s",
		e.SourceType, e.StatusCode, e.Method, e.Path,
		strings.Join(details, "; "),
	)
}

// IsNotFound reports whether err is an APIError with a 404 status.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

// AmbiguousMatchError is returned when a by-name lookup that must select
// exactly one candidate selects zero or several.
type AmbiguousMatchError struct {
	Kind    string
	Name    string
	Matches int
}

func (e *AmbiguousMatchError) Error() string {
	if e.Matches == 0 {
		return fmt.Sprintf("no %s named %q", e.Kind, e.Name)
	}
	return fmt.Sprintf(
		"%d candidates for %s %q, expected exactly one",
		e.Matches, e.Kind, e.Name,
	)
}

// MatchOne returns the index of the single element of names that equals
// want case-insensitively, or an AmbiguousMatchError.
func MatchOne(kind, want string, names []string) (int, error) {
	found := -1
	count := 0
	for i, name := range names {
		if Matches(name, want) {
			found = i
			count++
		}
	}
	if count != 1 {
		return -1, &AmbiguousMatchError{Kind: kind, Name: want, Matches: count}
	}
	return found, nil
}

// Matches reports whether two names are equal ignoring case. Empty names
// never match.
func Matches(a, b string) bool {
	return a != "" && b != "" && strings.EqualFold(a, b)
}

// ConfigError reports a missing or invalid local configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf(
			"configuration file %s does not exist, run 'jissue config set'",
			e.Path,
		)
	}
	return fmt.Sprintf("invalid configuration %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// CommandError is a failed local subprocess, carrying its captured stderr.
type CommandError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Command, msg)
}

func (e *CommandError) Unwrap() error { return e.Err }
