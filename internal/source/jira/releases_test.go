package jira

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestVisibleVersions(t *testing.T) {
	p := &Project{Versions: []Version{{Name: "1.0"}, {Name: "1.1", Archived: true}, {Name: "1.2"}}}
	got := VisibleVersions(p)
	if len(got) != 2 || got[0].Name != "1.2" || got[1].Name != "1.0" {
		t.Errorf("VisibleVersions = %v", got)
	}
}

func TestCreateVersion(t *testing.T) {
	f, svc := newFakeJira(t)
	f.handle("POST", "/rest/api/2/version", `{"id": "13", "name": "1.3", "releaseDate": "2021-01-01"}`)
	ctx := context.Background()

	v, err := svc.CreateVersion(ctx, "abc", "1.3", "2021-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if v.ID != "13" {
		t.Errorf("created = %+v", v)
	}
	body := f.lastBody("POST", "/rest/api/2/version")
	if body["project"] != "ABC" || body["name"] != "1.3" || body["releaseDate"] != "2021-01-01" {
		t.Errorf("create body = %v", body)
	}

	if _, err := svc.CreateVersion(ctx, "ABC", "1.4", "next week"); err == nil {
		t.Error("invalid date accepted")
	}
}

func TestDelayVersion(t *testing.T) {
	f, svc := newFakeJira(t)
	f.handle("GET", "/rest/api/2/project/ABC", projectABC)
	f.accept("PUT", "/rest/api/2/version/11")
	ctx := context.Background()

	date, err := svc.DelayVersion(ctx, "ABC", "1.1", "2w")
	if err != nil {
		t.Fatal(err)
	}
	if date != "2020-06-15" {
		t.Errorf("new date = %s, want 2020-06-15", date)
	}
	if got := f.lastBody("PUT", "/rest/api/2/version/11")["releaseDate"]; got != "2020-06-15" {
		t.Errorf("PUT releaseDate = %v", got)
	}

	if _, err := svc.DelayVersion(ctx, "ABC", "1.2", "1d"); err == nil {
		t.Error("delayed a version without a release date")
	}
}

func TestDelayVersionOnFallBackDay(t *testing.T) {
	inZone(t, "America/New_York")
	f, svc := newFakeJira(t)
	f.handle("GET", "/rest/api/2/project/ABC",
		`{"id": "100", "key": "ABC", "versions": [{"id": "11", "name": "1.1", "releaseDate": "2024-11-03"}]}`)
	f.accept("PUT", "/rest/api/2/version/11")

	date, err := svc.DelayVersion(context.Background(), "ABC", "1.1", "1d")
	if err != nil {
		t.Fatal(err)
	}
	if date != "2024-11-04" {
		t.Errorf("delay 1d from 2024-11-03 gave %s, want 2024-11-04", date)
	}
}

func TestReleaseVersionMovesOpenIssues(t *testing.T) {
	f, svc := newFakeJira(t)
	svc.now = func() time.Time { return time.Date(2020, 7, 1, 12, 0, 0, 0, time.Local) }
	f.handle("GET", "/rest/api/2/project/ABC", projectABC)
	f.handle("POST", "/rest/api/2/search", `{"issues": [{"key": "ABC-7", "fields": {}}]}`)
	f.accept("PUT", "/rest/api/2/issue/ABC-7")
	f.accept("PUT", "/rest/api/2/version/11")

	res, err := svc.ReleaseVersion(context.Background(), "ABC", "1.1", ReleaseOptions{MoveToNext: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Target != "1.2" || len(res.Moved) != 1 || res.Moved[0] != "ABC-7" {
		t.Errorf("result = %+v", res)
	}

	jql := f.lastBody("POST", "/rest/api/2/search")["jql"].(string)
	if !strings.Contains(jql, `fixVersion = "1.1"`) || !strings.Contains(jql, "resolution = unresolved") {
		t.Errorf("open issue query = %q", jql)
	}

	update := f.lastBody("PUT", "/rest/api/2/issue/ABC-7")["update"].(map[string]interface{})
	ops := update["fixVersions"].([]interface{})
	if len(ops) != 2 {
		t.Fatalf("fixVersions ops = %v", ops)
	}
	if ops[0].(map[string]interface{})["remove"].(map[string]interface{})["name"] != "1.1" ||
		ops[1].(map[string]interface{})["add"].(map[string]interface{})["name"] != "1.2" {
		t.Errorf("fixVersions ops = %v", ops)
	}

	body := f.lastBody("PUT", "/rest/api/2/version/11")
	if body["released"] != true {
		t.Errorf("version update = %v", body)
	}
	if _, ok := body["releaseDate"]; ok {
		t.Errorf("dated version got a new release date: %v", body)
	}
}

func TestReleaseVersionRefusesOpenIssues(t *testing.T) {
	f, svc := newFakeJira(t)
	f.handle("GET", "/rest/api/2/project/ABC", projectABC)
	f.handle("POST", "/rest/api/2/search", `{"issues": [{"key": "ABC-7", "fields": {}}]}`)
	f.accept("PUT", "/rest/api/2/version/11")

	if _, err := svc.ReleaseVersion(context.Background(), "ABC", "1.1", ReleaseOptions{}); err == nil {
		t.Fatal("released a version with open issues")
	}
	if f.count("PUT", "/rest/api/2/version/11") != 0 {
		t.Error("version was updated")
	}
}

func TestReleaseVersionStampsUndated(t *testing.T) {
	f, svc := newFakeJira(t)
	svc.now = func() time.Time { return time.Date(2020, 7, 1, 12, 0, 0, 0, time.Local) }
	f.handle("GET", "/rest/api/2/project/ABC", projectABC)
	f.handle("POST", "/rest/api/2/search", `{"issues": []}`)
	f.accept("PUT", "/rest/api/2/version/12")

	if _, err := svc.ReleaseVersion(context.Background(), "ABC", "1.2", ReleaseOptions{}); err != nil {
		t.Fatal(err)
	}
	if got := f.lastBody("PUT", "/rest/api/2/version/12")["releaseDate"]; got != "2020-07-01" {
		t.Errorf("releaseDate = %v", got)
	}
}

func TestMergeVersion(t *testing.T) {
	f, svc := newFakeJira(t)
	f.handle("GET", "/rest/api/2/project/ABC", projectABC)
	f.accept("DELETE", "/rest/api/2/version/11")

	if err := svc.MergeVersion(context.Background(), "ABC", "1.1", "1.2"); err != nil {
		t.Fatal(err)
	}
	q, _ := url.ParseQuery(f.lastQuery("DELETE", "/rest/api/2/version/11"))
	if q.Get("moveFixIssuesTo") != "12" || q.Get("moveAffectedIssuesTo") != "12" {
		t.Errorf("merge query = %v", q)
	}
	if err := svc.MergeVersion(context.Background(), "ABC", "1.1", "1.1"); err == nil {
		t.Error("merged a version into itself")
	}
}

func TestSetArchived(t *testing.T) {
	f, svc := newFakeJira(t)
	f.handle("GET", "/rest/api/2/project/ABC", projectABC)
	f.accept("PUT", "/rest/api/2/version/10")
	f.accept("PUT", "/rest/api/2/version/11")
	f.accept("PUT", "/rest/api/2/version/12")

	changed, err := svc.SetArchived(context.Background(), "ABC", `1\.[01]`, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(changed) != 2 {
		t.Fatalf("changed = %v", changed)
	}
	if f.count("PUT", "/rest/api/2/version/12") != 0 {
		t.Error("non-matching version archived")
	}
	if got := f.lastBody("PUT", "/rest/api/2/version/10")["archived"]; got != true {
		t.Errorf("archived = %v", got)
	}
}

func TestMoveVersionFirst(t *testing.T) {
	f, svc := newFakeJira(t)
	f.handle("GET", "/rest/api/2/project/ABC", projectABC)
	f.handlers["POST /rest/api/2/version/12/move"] = func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"id": "12"}`))
	}

	if err := svc.MoveVersion(context.Background(), "ABC", "1.2", 2); err != nil {
		t.Fatal(err)
	}
	if got := f.lastBody("POST", "/rest/api/2/version/12/move")["position"]; got != "First" {
		t.Errorf("move body position = %v", got)
	}
}
