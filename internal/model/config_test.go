package model

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/nhle/jissue/internal/source"
)

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".jissue")
	want := &Config{
		JiraFQDN:       "jira.example.com",
		ConfluenceFQDN: "wiki.example.com",
		Username:       "alice",
		Password:       "s3cret",
	}
	if err := SaveConfig(path, want); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config mode = %v, want 0600", perm)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LoadConfig = %+v, want %+v", got, want)
	}
}

func TestLoadConfigMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope")
	_, err := LoadConfig(path)
	var cfgErr *source.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want ConfigError", err)
	}
	if cfgErr.Err != nil {
		t.Errorf("missing file reported as invalid: %v", cfgErr.Err)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	for name, doc := range map[string]string{
		"garbage":     "{not json",
		"no-host":     `{"username": "alice"}`,
		"no-username": `{"jira_fqdn": "jira.example.com"}`,
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := LoadConfig(path)
		var cfgErr *source.ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Err == nil {
			t.Errorf("%s: error = %v, want invalid ConfigError", name, err)
		}
	}
}

func TestConfigPathEnv(t *testing.T) {
	t.Setenv(ConfigPathEnv, "/tmp/custom-jissue")
	if got := ConfigPath(os.Getenv); got != "/tmp/custom-jissue" {
		t.Errorf("ConfigPath = %q", got)
	}
	t.Setenv(ConfigPathEnv, "")
	if got := ConfigPath(os.Getenv); got != DefaultConfigPath() {
		t.Errorf("ConfigPath = %q, want default", got)
	}
}

func TestRedacted(t *testing.T) {
	c := Config{Username: "alice", Password: "s3cret"}
	if c.Redacted().Password == "s3cret" {
		t.Error("password not redacted")
	}
	if c.Password != "s3cret" {
		t.Error("Redacted modified the receiver")
	}
}

func TestExportLines(t *testing.T) {
	s := Session{Project: "ABC", Version: "1.1 beta", Component: "", Issue: "ABC-1"}
	got := ExportLines(s.Vars())
	want := []string{
		"export JISSUE_COMPONENT=''",
		"export JISSUE_ISSUE=ABC-1",
		"export JISSUE_PROJECT=ABC",
		"export JISSUE_VERSION='1.1 beta'",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExportLines = %q, want %q", got, want)
	}
}

func TestSessionFromEnv(t *testing.T) {
	env := map[string]string{EnvProject: "ABC", EnvIssue: "ABC-9"}
	s := SessionFromEnv(func(k string) string { return env[k] })
	if s.Project != "ABC" || s.Issue != "ABC-9" || s.Version != "" {
		t.Errorf("session = %+v", s)
	}
}
