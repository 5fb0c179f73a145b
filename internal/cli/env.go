// Package cli implements the jissue command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/nhle/jissue/internal/credential"
	"github.com/nhle/jissue/internal/model"
	"github.com/nhle/jissue/internal/source"
	"github.com/nhle/jissue/internal/source/atlassian"
	"github.com/nhle/jissue/internal/source/confluence"
	"github.com/nhle/jissue/internal/source/jira"
	"github.com/nhle/jissue/internal/store"
	"github.com/nhle/jissue/internal/vcs"
)

// Env is what one invocation works with: its streams, environment,
// configuration and the services built from it. Services are created on
// first use and live until the command returns.
type Env struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string

	// Interactive reports whether prompts and the picker may be shown.
	Interactive bool

	// HTTPClient replaces the default client of both services.
	HTTPClient *http.Client

	OpenKeyring func() (*credential.Store, error)
	OpenJournal func() (store.Journal, error)
	Git         *vcs.Git
	Now         func() time.Time

	configPath string
	verbose    bool
	logger     *slog.Logger

	cfg     *model.Config
	jira    *jira.Service
	wiki    *confluence.Service
	journal store.Journal
}

// NewEnv returns an Env bound to the process.
func NewEnv() *Env {
	return &Env{
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Getenv:      os.Getenv,
		Interactive: term.IsTerminal(int(os.Stdin.Fd())),
		OpenKeyring: credential.Open,
		OpenJournal: func() (store.Journal, error) {
			return store.NewSQLiteStore(store.DefaultJournalPath())
		},
		Git: &vcs.Git{},
		Now: time.Now,
	}
}

// Logger returns the invocation's logger. Level is Warn, or Debug with
// --verbose.
func (e *Env) Logger() *slog.Logger {
	if e.logger == nil {
		level := slog.LevelWarn
		if e.verbose {
			level = slog.LevelDebug
		}
		e.logger = slog.New(slog.NewTextHandler(e.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return e.logger
}

// ConfigPath returns --config, JISSUE_CONFIG_PATH or ~/.jissue.
func (e *Env) ConfigPath() string {
	if e.configPath != "" {
		return e.configPath
	}
	return model.ConfigPath(e.Getenv)
}

// Config loads the configuration once. An empty password is looked up
// in the keyring.
func (e *Env) Config() (*model.Config, error) {
	if e.cfg != nil {
		return e.cfg, nil
	}
	cfg, err := model.LoadConfig(e.ConfigPath())
	if err != nil {
		return nil, err
	}
	if cfg.Password == "" {
		ring, err := e.OpenKeyring()
		if err != nil {
			return nil, &source.ConfigError{Path: e.ConfigPath(), Err: err}
		}
		pw, err := ring.Password(cfg.JiraFQDN, cfg.Username)
		if err != nil {
			return nil, &source.ConfigError{Path: e.ConfigPath(), Err: err}
		}
		cfg.Password = pw
	}
	e.cfg = cfg
	return cfg, nil
}

// Session returns the working context from the environment.
func (e *Env) Session() model.Session {
	return model.SessionFromEnv(e.Getenv)
}

func (e *Env) clientOptions() []atlassian.Option {
	opts := []atlassian.Option{atlassian.WithLogger(e.Logger())}
	if e.HTTPClient != nil {
		opts = append(opts, atlassian.WithHTTPClient(e.HTTPClient))
	}
	return opts
}

// Jira returns the issue tracker service.
func (e *Env) Jira() (*jira.Service, error) {
	if e.jira != nil {
		return e.jira, nil
	}
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	client := atlassian.NewClient(source.SourceTypeJira,
		cfg.JiraFQDN, cfg.Username, cfg.Password, e.clientOptions()...)
	e.jira = jira.NewService(client, jira.WithServiceLogger(e.Logger()))
	return e.jira, nil
}

// Wiki returns the Confluence service.
func (e *Env) Wiki() (*confluence.Service, error) {
	if e.wiki != nil {
		return e.wiki, nil
	}
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	if cfg.ConfluenceFQDN == "" {
		return nil, &source.ConfigError{
			Path: e.ConfigPath(),
			Err:  errors.New("confluence_fqdn is not set"),
		}
	}
	client := atlassian.NewClient(source.SourceTypeConfluence,
		cfg.ConfluenceFQDN, cfg.Username, cfg.Password, e.clientOptions()...)
	e.wiki = confluence.NewService(client, confluence.WithLogger(e.Logger()))
	return e.wiki, nil
}

// Journal returns the local action journal.
func (e *Env) Journal() (store.Journal, error) {
	if e.journal != nil {
		return e.journal, nil
	}
	j, err := e.OpenJournal()
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	e.journal = j
	return j, nil
}

// record notes a remote mutation in the journal. The mutation already
// happened, so a journal failure is only logged.
func (e *Env) record(ctx context.Context, action, target, detail string) {
	j, err := e.Journal()
	if err != nil {
		e.Logger().Warn("journal unavailable", slog.Any("error", err))
		return
	}
	host := ""
	if e.cfg != nil {
		host = e.cfg.JiraFQDN
	}
	err = j.Record(ctx, model.JournalEntry{
		Action:    action,
		Target:    target,
		Detail:    detail,
		Host:      host,
		CreatedAt: e.Now(),
	})
	if err != nil {
		e.Logger().Warn("recording action failed",
			slog.String("action", action),
			slog.String("target", target),
			slog.Any("error", err),
		)
	}
}

// Close releases the journal.
func (e *Env) Close() error {
	if e.journal == nil {
		return nil
	}
	err := e.journal.Close()
	e.journal = nil
	return err
}

func (e *Env) println(a ...any) {
	fmt.Fprintln(e.Stdout, a...)
}

func (e *Env) printf(format string, a ...any) {
	fmt.Fprintf(e.Stdout, format, a...)
}

// argOr returns args[i] when present, else fallback. An empty result is
// an error naming what was missing and which variable could supply it.
func argOr(args []string, i int, fallback, what, envName string) (string, error) {
	if i < len(args) && args[i] != "" {
		return args[i], nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("no %s given and %s is not set", what, envName)
}

// issueArg is argOr for an issue key, upper-cased.
func (e *Env) issueArg(args []string, i int) (string, error) {
	key, err := argOr(args, i, e.Session().Issue, "issue", model.EnvIssue)
	return strings.ToUpper(key), err
}

// projectArg is argOr for a project key, upper-cased.
func (e *Env) projectArg(args []string, i int) (string, error) {
	key, err := argOr(args, i, e.Session().Project, "project", model.EnvProject)
	return strings.ToUpper(key), err
}
