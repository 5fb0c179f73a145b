// Package prompt asks the user for configuration values on the terminal.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nhle/jissue/internal/model"
)

// ErrAborted is returned when the user cancels a prompt.
var ErrAborted = errors.New("prompt aborted")

// Credentials asks for whichever of host, username and password cfg is
// missing and fills them in.
func Credentials(cfg *model.Config, accessible bool) error {
	var fields []huh.Field
	if cfg.JiraFQDN == "" {
		fields = append(fields, huh.NewInput().
			Title("Jira host").
			Placeholder("jira.example.com").
			Value(&cfg.JiraFQDN).
			Validate(validateRequired("Jira host")))
	}
	if cfg.Username == "" {
		fields = append(fields, huh.NewInput().
			Title("Username").
			Value(&cfg.Username).
			Validate(validateRequired("Username")))
	}
	if cfg.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			Description(fmt.Sprintf("for %s", describe(cfg))).
			EchoMode(huh.EchoModePassword).
			Value(&cfg.Password).
			Validate(validateRequired("Password")))
	}
	if len(fields) == 0 {
		return nil
	}

	err := huh.NewForm(huh.NewGroup(fields...)).
		WithAccessible(accessible).
		WithShowHelp(false).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	return err
}

// Confirm asks a yes/no question, defaulting to no.
func Confirm(title string, accessible bool) (bool, error) {
	var ok bool
	confirm := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok)
	err := huh.NewForm(huh.NewGroup(confirm)).
		WithAccessible(accessible).
		WithShowHelp(false).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, ErrAborted
	}
	return ok, err
}

func describe(cfg *model.Config) string {
	if cfg.Username == "" {
		return cfg.JiraFQDN
	}
	return cfg.Username + "@" + cfg.JiraFQDN
}

func validateRequired(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}
