package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/99designs/keyring"

	"github.com/nhle/jissue/internal/credential"
	"github.com/nhle/jissue/internal/model"
	"github.com/nhle/jissue/internal/store"
	"github.com/nhle/jissue/tests/testutil"
)

// keepOpen stops Execute from closing a journal the test still reads.
type keepOpen struct{ store.Journal }

func (keepOpen) Close() error { return nil }

type fakeServer struct {
	mu       sync.Mutex
	handlers map[string]string
	bodies   map[string][]string
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	f := &fakeServer{handlers: make(map[string]string), bodies: make(map[string][]string)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		route := req.Method + " " + req.URL.Path
		f.mu.Lock()
		f.bodies[route] = append(f.bodies[route], string(body))
		doc, ok := f.handlers[route]
		f.mu.Unlock()
		switch {
		case !ok:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"errorMessages":["no route"]}`)
		case doc == "":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, doc)
		}
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeServer) handle(method, path, doc string) {
	f.handlers[method+" "+path] = doc
}

func (f *fakeServer) calls(method, path string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[method+" "+path]
}

type harness struct {
	env     *Env
	vars    map[string]string
	journal store.Journal
	ring    *credential.Store
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
	config  string
}

func newHarness(t *testing.T, host string) *harness {
	t.Helper()
	h := &harness{
		vars:    make(map[string]string),
		journal: testutil.NewTestStore(t),
		ring:    credential.NewStore(keyring.NewArrayKeyring(nil)),
		stdout:  &bytes.Buffer{},
		stderr:  &bytes.Buffer{},
		config:  filepath.Join(t.TempDir(), "jissue.json"),
	}
	if host != "" {
		doc, _ := json.Marshal(map[string]string{
			"jira_fqdn":       host,
			"confluence_fqdn": host,
			"username":        "alice",
			"password":        "secret",
		})
		if err := os.WriteFile(h.config, doc, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	h.vars[model.ConfigPathEnv] = h.config
	return h
}

func (h *harness) run(args ...string) int {
	h.stdout.Reset()
	h.stderr.Reset()
	h.env = &Env{
		Stdin:       strings.NewReader(""),
		Stdout:      h.stdout,
		Stderr:      h.stderr,
		Getenv:      func(k string) string { return h.vars[k] },
		OpenKeyring: func() (*credential.Store, error) { return h.ring, nil },
		OpenJournal: func() (store.Journal, error) { return keepOpen{h.journal}, nil },
		Now:         func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
	return Execute(context.Background(), h.env, args)
}

func (h *harness) history(t *testing.T) []model.JournalEntry {
	t.Helper()
	entries, err := h.journal.History(context.Background(), store.JournalFilter{})
	if err != nil {
		t.Fatal(err)
	}
	return entries
}

const projectABC = `{
	"id": "100",
	"key": "ABC",
	"name": "Alphabet",
	"components": [{"id": "20", "name": "Core"}],
	"versions": [
		{"id": "10", "name": "1.0", "released": true, "releaseDate": "2020-01-01"},
		{"id": "11", "name": "1.1", "released": false, "releaseDate": "2020-06-01"},
		{"id": "12", "name": "1.2", "released": false}
	]
}`

const issueABC1 = `{
	"id": "5000",
	"key": "ABC-1",
	"fields": {
		"summary": "Broken build",
		"project": {"id": "100", "key": "ABC", "name": "Alphabet"},
		"issuetype": {"id": "1", "name": "Bug"},
		"status": {"name": "Open", "statusCategory": {"key": "new"}},
		"created": "2024-02-01T08:00:00.000+0000",
		"updated": "2024-02-03T08:00:00.000+0000"
	}
}`

func TestMissingConfig(t *testing.T) {
	h := newHarness(t, "")
	if code := h.run("show", "ABC-1"); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(h.stderr.String(), "jissue config set") {
		t.Errorf("stderr = %q", h.stderr.String())
	}
}

func TestMissingIssueArgument(t *testing.T) {
	_, srv := newFakeServer(t)
	h := newHarness(t, srv.URL)
	if code := h.run("start"); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(h.stderr.String(), model.EnvIssue) {
		t.Errorf("stderr = %q, want it to name %s", h.stderr.String(), model.EnvIssue)
	}
}

func TestStartUsesSessionIssue(t *testing.T) {
	f, srv := newFakeServer(t)
	f.handle("GET", "/rest/api/2/issue/ABC-1/transitions",
		`{"transitions": [{"id": "4", "name": "Start Progress"}]}`)
	f.handle("POST", "/rest/api/2/issue/ABC-1/transitions", "")

	h := newHarness(t, srv.URL)
	h.vars[model.EnvIssue] = "abc-1"
	if code := h.run("start"); code != 0 {
		t.Fatalf("exit code = %d: %s", code, h.stderr.String())
	}
	if n := len(f.calls("POST", "/rest/api/2/issue/ABC-1/transitions")); n != 1 {
		t.Errorf("transition posted %d times", n)
	}
	entries := h.history(t)
	if len(entries) != 1 || entries[0].Action != model.ActionStart || entries[0].Target != "ABC-1" {
		t.Errorf("journal = %+v", entries)
	}
}

func TestResolveCommentsAndRecords(t *testing.T) {
	f, srv := newFakeServer(t)
	f.handle("GET", "/rest/api/2/resolution", `[{"id": "1", "name": "Fixed"}]`)
	f.handle("GET", "/rest/api/2/issue/ABC-1", issueABC1)
	f.handle("GET", "/rest/api/2/project/ABC", projectABC)
	f.handle("GET", "/rest/api/2/issue/ABC-1/transitions",
		`{"transitions": [{"id": "5", "name": "Resolve Issue"}]}`)
	f.handle("POST", "/rest/api/2/issue/ABC-1/transitions", "")
	f.handle("POST", "/rest/api/2/issue/ABC-1/comment", `{"id": "9", "body": "done"}`)

	h := newHarness(t, srv.URL)
	if code := h.run("resolve", "ABC-1", "done"); code != 0 {
		t.Fatalf("exit code = %d: %s", code, h.stderr.String())
	}

	comments := f.calls("POST", "/rest/api/2/issue/ABC-1/comment")
	if len(comments) != 1 || !strings.Contains(comments[0], `"done"`) {
		t.Errorf("comment calls = %v", comments)
	}

	entries := h.history(t)
	if len(entries) != 2 {
		t.Fatalf("journal has %d entries, want 2", len(entries))
	}
	actions := map[string]string{}
	for _, e := range entries {
		actions[e.Action] = e.Detail
	}
	if actions[model.ActionResolve] != "Fixed in 1.1" {
		t.Errorf("resolve detail = %q", actions[model.ActionResolve])
	}
	if actions[model.ActionComment] != "done" {
		t.Errorf("comment detail = %q", actions[model.ActionComment])
	}
}

func TestListPrintsRows(t *testing.T) {
	f, srv := newFakeServer(t)
	f.handle("POST", "/rest/api/2/search", `{"total": 1, "issues": [`+issueABC1+`]}`)
	f.handle("GET", "/rest/api/2/field", `[]`)

	h := newHarness(t, srv.URL)
	if code := h.run("list", "abc"); code != 0 {
		t.Fatalf("exit code = %d: %s", code, h.stderr.String())
	}
	out := h.stdout.String()
	if !strings.Contains(out, "ABC-1") || !strings.Contains(out, "Broken build") {
		t.Errorf("output = %q", out)
	}
	search := f.calls("POST", "/rest/api/2/search")
	if len(search) != 1 || !strings.Contains(search[0], `project = \"ABC\"`) {
		t.Errorf("search body = %v", search)
	}
}

func TestListRejectsUnknownSortColumn(t *testing.T) {
	f, srv := newFakeServer(t)
	f.handle("POST", "/rest/api/2/search", `{"total": 0, "issues": []}`)
	f.handle("GET", "/rest/api/2/field", `[]`)

	h := newHarness(t, srv.URL)
	if code := h.run("list", "ABC", "--sort-by", "Colour"); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestAssignNeedsExactlyOneTarget(t *testing.T) {
	_, srv := newFakeServer(t)
	h := newHarness(t, srv.URL)
	if code := h.run("assign", "ABC-1"); code != 1 {
		t.Errorf("assign without a target: exit code = %d", code)
	}
	if code := h.run("assign", "ABC-1", "--to-me", "--automatic"); code != 1 {
		t.Errorf("assign with two targets: exit code = %d", code)
	}
}

func TestAssignToMe(t *testing.T) {
	f, srv := newFakeServer(t)
	f.handle("PUT", "/rest/api/2/issue/ABC-1/assignee", "")
	h := newHarness(t, srv.URL)
	if code := h.run("assign", "ABC-1", "--to-me"); code != 0 {
		t.Fatalf("exit code = %d: %s", code, h.stderr.String())
	}
	body := f.calls("PUT", "/rest/api/2/issue/ABC-1/assignee")
	if len(body) != 1 || !strings.Contains(body[0], `"alice"`) {
		t.Errorf("assignee body = %v", body)
	}
}

func TestSessionProjectDefaultsToNextRelease(t *testing.T) {
	f, srv := newFakeServer(t)
	f.handle("GET", "/rest/api/2/project/ABC", projectABC)

	h := newHarness(t, srv.URL)
	if code := h.run("session", "project", "abc", "Core"); code != 0 {
		t.Fatalf("exit code = %d: %s", code, h.stderr.String())
	}
	want := "export JISSUE_COMPONENT=Core\nexport JISSUE_PROJECT=ABC\nexport JISSUE_VERSION=1.1\n"
	if got := h.stdout.String(); got != want {
		t.Errorf("output =\n%s\nwant\n%s", got, want)
	}
}

func TestSessionProjectRejectsUnknownNames(t *testing.T) {
	f, srv := newFakeServer(t)
	f.handle("GET", "/rest/api/2/project/ABC", projectABC)
	h := newHarness(t, srv.URL)

	if code := h.run("session", "project", "ABC", "Nope"); code != 1 {
		t.Errorf("unknown component: exit code = %d", code)
	}
	if code := h.run("session", "project", "ABC", "Core", "9.9"); code != 1 {
		t.Errorf("unknown version: exit code = %d", code)
	}
	if code := h.run("session", "project", "XYZ"); code != 1 {
		t.Errorf("unknown project: exit code = %d", code)
	}
	if !strings.Contains(h.stderr.String(), "no such project XYZ") {
		t.Errorf("stderr = %q", h.stderr.String())
	}
}

func TestSessionDeactivate(t *testing.T) {
	h := newHarness(t, "")
	h.vars[model.EnvProject] = "ABC"
	h.vars[model.EnvIssue] = "ABC-1"
	if code := h.run("session", "deactivate"); code != 0 {
		t.Fatalf("exit code = %d: %s", code, h.stderr.String())
	}
	if got := h.stdout.String(); got != "export JISSUE_ISSUE=''\n" {
		t.Errorf("with an issue active = %q", got)
	}

	delete(h.vars, model.EnvIssue)
	h.run("session", "deactivate")
	if got := strings.Count(h.stdout.String(), "export "); got != 4 {
		t.Errorf("without an issue active cleared %d variables, want 4", got)
	}
}

func TestConfigSetAndShow(t *testing.T) {
	h := newHarness(t, "")
	if code := h.run("config", "set", "jira.example.com", "bob", "hunter2", "--confluence", "wiki.example.com"); code != 0 {
		t.Fatalf("set: exit code = %d: %s", code, h.stderr.String())
	}
	if code := h.run("config", "show"); code != 0 {
		t.Fatalf("show: exit code = %d: %s", code, h.stderr.String())
	}
	out := h.stdout.String()
	if strings.Contains(out, "hunter2") {
		t.Errorf("password printed: %s", out)
	}
	for _, want := range []string{`"jira_fqdn": "jira.example.com"`, `"confluence_fqdn": "wiki.example.com"`, `"username": "bob"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %s:\n%s", want, out)
		}
	}
}

func TestConfigSetKeyring(t *testing.T) {
	h := newHarness(t, "")
	if code := h.run("config", "set", "jira.example.com", "bob", "hunter2", "--keyring"); code != 0 {
		t.Fatalf("exit code = %d: %s", code, h.stderr.String())
	}
	raw, err := os.ReadFile(h.config)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "hunter2") {
		t.Errorf("password written to file: %s", raw)
	}
	pw, err := h.ring.Password("jira.example.com", "bob")
	if err != nil || pw != "hunter2" {
		t.Errorf("keyring password = %q, %v", pw, err)
	}

	h.run("history")
	cfg, err := h.env.Config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Password != "hunter2" {
		t.Errorf("loaded password = %q, want it from the keyring", cfg.Password)
	}
}

func TestHistoryFilters(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()
	for _, e := range []model.JournalEntry{
		{Action: model.ActionStart, Target: "ABC-1", CreatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{Action: model.ActionComment, Target: "ABC-2", Detail: "hello", CreatedAt: time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)},
	} {
		if err := h.journal.Record(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	if code := h.run("history", "abc-2"); code != 0 {
		t.Fatalf("exit code = %d: %s", code, h.stderr.String())
	}
	if out := h.stdout.String(); !strings.Contains(out, "hello") || strings.Contains(out, "ABC-1") {
		t.Errorf("target filter output = %q", out)
	}

	h.run("history", "--since", "7d")
	if out := h.stdout.String(); strings.Contains(out, "ABC-1") {
		t.Errorf("since filter kept the old entry: %q", out)
	}

	if code := h.run("history", "--prune", "7d"); code != 0 {
		t.Fatalf("prune: exit code = %d", code)
	}
	if got := h.stdout.String(); got != "removed 1 entries\n" {
		t.Errorf("prune output = %q", got)
	}
}

func TestReleaseNeedsVersion(t *testing.T) {
	_, srv := newFakeServer(t)
	h := newHarness(t, srv.URL)
	h.vars[model.EnvProject] = "ABC"
	if code := h.run("release", "delay", "1w"); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(h.stderr.String(), model.EnvVersion) {
		t.Errorf("stderr = %q", h.stderr.String())
	}
}

func TestReleaseNext(t *testing.T) {
	f, srv := newFakeServer(t)
	f.handle("GET", "/rest/api/2/project/ABC", projectABC)
	h := newHarness(t, srv.URL)
	if code := h.run("release", "next", "--project", "abc"); code != 0 {
		t.Fatalf("exit code = %d: %s", code, h.stderr.String())
	}
	if got := h.stdout.String(); got != "1.1\n" {
		t.Errorf("next = %q", got)
	}
}

func TestNotesShowMarkdown(t *testing.T) {
	f, srv := newFakeServer(t)
	f.handle("GET", "/rest/api/2/project/ABC", projectABC)
	f.handle("POST", "/rest/api/2/search", `{"total": 1, "issues": [`+issueABC1+`]}`)
	f.handle("GET", "/rest/api/2/field", `[]`)

	h := newHarness(t, srv.URL)
	h.vars[model.EnvProject] = "ABC"
	h.vars[model.EnvVersion] = "1.1"
	if code := h.run("notes", "show", "--markdown"); code != 0 {
		t.Fatalf("exit code = %d: %s", code, h.stderr.String())
	}
	out := h.stdout.String()
	for _, want := range []string{"## Bug", "**ABC-1** Broken build"} {
		if !strings.Contains(out, want) {
			t.Errorf("notes lack %q:\n%s", want, out)
		}
	}
}

func TestReadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.txt")
	if err := os.WriteFile(path, []byte("  red\n\ngreen \nblue\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := readValues(nil, path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, ",") != "red,green,blue" {
		t.Errorf("values = %v", got)
	}

	got, err = readValues(strings.NewReader("one\ntwo\n"), "-")
	if err != nil || len(got) != 2 {
		t.Errorf("stdin values = %v, %v", got, err)
	}
}

func TestCommitIssue(t *testing.T) {
	msg := "Fix retry loop\n\nSee OPS-12, closes ABC-7."
	tests := []struct {
		name    string
		args    []string
		project string
		want    string
	}{
		{"argument wins", []string{"xyz-1"}, "ABC", "XYZ-1"},
		{"session project", nil, "abc", "ABC-7"},
		{"first key", nil, "", "OPS-12"},
		{"project without match", nil, "DEF", "OPS-12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := commitIssue(msg, tt.args, tt.project)
			if err != nil || got != tt.want {
				t.Errorf("commitIssue = %q, %v, want %q", got, err, tt.want)
			}
		})
	}
	if _, err := commitIssue("typo", nil, ""); err == nil {
		t.Error("message without a key accepted")
	}
}

func TestShowFieldAndURL(t *testing.T) {
	f, srv := newFakeServer(t)
	f.handle("GET", "/rest/api/2/issue/ABC-1", issueABC1)
	f.handle("GET", "/rest/api/2/field", `[]`)
	h := newHarness(t, srv.URL)

	if code := h.run("show", "ABC-1", "--field", "summary"); code != 0 {
		t.Fatalf("exit code = %d: %s", code, h.stderr.String())
	}
	if got := h.stdout.String(); got != "Broken build\n" {
		t.Errorf("field output = %q", got)
	}

	if code := h.run("show", "ABC-1", "--url"); code != 0 {
		t.Fatalf("exit code = %d: %s", code, h.stderr.String())
	}
	if got := h.stdout.String(); got != srv.URL+"/browse/ABC-1\n" {
		t.Errorf("url output = %q", got)
	}

	if code := h.run("show", "ABC-1", "--field", "Colour"); code != 1 {
		t.Errorf("unknown field: exit code = %d", code)
	}
	if !strings.Contains(h.stderr.String(), "Summary") {
		t.Errorf("stderr should list known fields: %q", h.stderr.String())
	}
}
