package jira

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/nhle/jissue/internal/source"
	"github.com/nhle/jissue/internal/source/atlassian"
)

const apiRoot = "/rest/api/2"

// searchLimit caps the issues returned by one search.
const searchLimit = 100

// AssignedToMeJQL lists the caller's open issues, most urgent first.
const AssignedToMeJQL = "assignee = currentUser() AND resolution = unresolved " +
	"ORDER BY priority DESC, created ASC"

// Service is the Jira side of every command. One Service serves one
// command invocation and memoizes idempotent lookups while it lives.
type Service struct {
	client *atlassian.Client
	logger *slog.Logger
	cache  *lookupCache
	now    func() time.Time
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger used for lookups and mutations.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service on top of an authenticated client.
func NewService(client *atlassian.Client, opts ...ServiceOption) *Service {
	s := &Service{
		client: client,
		logger: slog.New(slog.DiscardHandler),
		cache:  newLookupCache(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BrowseURL returns the web address of an issue.
func (s *Service) BrowseURL(key string) string {
	return s.client.BaseURL() + "/browse/" + strings.ToUpper(key)
}

// Myself returns the authenticated user.
func (s *Service) Myself(ctx context.Context) (*Myself, error) {
	if s.cache.myself != nil {
		return s.cache.myself, nil
	}
	var me Myself
	if err := s.client.Get(ctx, apiRoot+"/myself", &me); err != nil {
		return nil, fmt.Errorf("fetching current user: %w", err)
	}
	s.cache.myself = &me
	return &me, nil
}

// Issue fetches one issue by key.
func (s *Service) Issue(ctx context.Context, key string) (*Issue, error) {
	if issue, ok := s.cache.issue(key); ok {
		return issue, nil
	}
	var issue Issue
	path := fmt.Sprintf("%s/issue/%s", apiRoot, url.PathEscape(strings.ToUpper(key)))
	if err := s.client.Get(ctx, path, &issue); err != nil {
		return nil, fmt.Errorf("fetching issue %s: %w", key, err)
	}
	s.warnSkippedLinks(&issue)
	s.cache.putIssue(key, &issue)
	return &issue, nil
}

func (s *Service) warnSkippedLinks(issue *Issue) {
	for _, err := range issue.Fields.SkippedLinks {
		s.logger.Warn("skipping issue link",
			slog.String("issue", issue.Key),
			slog.String("error", err.Error()),
		)
	}
}

// Project fetches a project with its versions, components and issue types.
func (s *Service) Project(ctx context.Context, key string) (*Project, error) {
	if p, ok := s.cache.project(key); ok {
		return p, nil
	}
	var p Project
	path := fmt.Sprintf("%s/project/%s", apiRoot, url.PathEscape(strings.ToUpper(key)))
	if err := s.client.Get(ctx, path, &p); err != nil {
		return nil, fmt.Errorf("fetching project %s: %w", key, err)
	}
	s.cache.putProject(key, &p)
	return &p, nil
}

// Fields returns the name to id table of every field.
func (s *Service) Fields(ctx context.Context) ([]Field, error) {
	if s.cache.fields != nil {
		return s.cache.fields, nil
	}
	var fields []Field
	if err := s.client.Get(ctx, apiRoot+"/field", &fields); err != nil {
		return nil, fmt.Errorf("fetching fields: %w", err)
	}
	if fields == nil {
		fields = []Field{}
	}
	s.cache.fields = fields
	return fields, nil
}

// Mapper returns a Field Mapper bound to this server's custom field ids.
func (s *Service) Mapper(ctx context.Context) (*Mapper, error) {
	fields, err := s.Fields(ctx)
	if err != nil {
		return nil, err
	}
	return NewMapper(fields), nil
}

// FieldByName returns the single field whose name or id is name.
func (s *Service) FieldByName(ctx context.Context, name string) (Field, error) {
	fields, err := s.Fields(ctx)
	if err != nil {
		return Field{}, err
	}
	for _, f := range fields {
		if f.ID == name {
			return f, nil
		}
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	i, err := source.MatchOne("field", name, names)
	if err != nil {
		return Field{}, err
	}
	return fields[i], nil
}

// Resolutions returns the global list of resolution reasons.
func (s *Service) Resolutions(ctx context.Context) ([]Resolution, error) {
	if s.cache.resolutions != nil {
		return s.cache.resolutions, nil
	}
	var rs []Resolution
	if err := s.client.Get(ctx, apiRoot+"/resolution", &rs); err != nil {
		return nil, fmt.Errorf("fetching resolutions: %w", err)
	}
	if rs == nil {
		rs = []Resolution{}
	}
	s.cache.resolutions = rs
	return rs, nil
}

// LinkTypes returns the issue link types.
func (s *Service) LinkTypes(ctx context.Context) ([]LinkType, error) {
	if s.cache.linkTypes != nil {
		return s.cache.linkTypes, nil
	}
	var resp LinkTypesResponse
	if err := s.client.Get(ctx, apiRoot+"/issueLinkType", &resp); err != nil {
		return nil, fmt.Errorf("fetching link types: %w", err)
	}
	s.cache.linkTypes = append([]LinkType{}, resp.IssueLinkTypes...)
	return s.cache.linkTypes, nil
}

// FavouriteFilters returns the caller's saved searches.
func (s *Service) FavouriteFilters(ctx context.Context) ([]Filter, error) {
	if s.cache.filters != nil {
		return s.cache.filters, nil
	}
	var filters []Filter
	if err := s.client.Get(ctx, apiRoot+"/filter/favourite", &filters); err != nil {
		return nil, fmt.Errorf("fetching favourite filters: %w", err)
	}
	if filters == nil {
		filters = []Filter{}
	}
	s.cache.filters = filters
	return filters, nil
}

// Search runs a JQL query and returns up to searchLimit issues.
func (s *Service) Search(ctx context.Context, jql string) ([]Issue, error) {
	body := map[string]interface{}{
		"jql":        jql,
		"startAt":    0,
		"maxResults": searchLimit,
	}
	var resp SearchResponse
	if err := s.client.Post(ctx, apiRoot+"/search", body, &resp); err != nil {
		return nil, fmt.Errorf("searching issues: %w", err)
	}
	s.logger.Debug("search",
		slog.String("jql", jql),
		slog.Int("total", resp.Total),
		slog.Int("returned", len(resp.Issues)),
	)
	if resp.Issues == nil {
		resp.Issues = []Issue{}
	}
	for i := range resp.Issues {
		s.warnSkippedLinks(&resp.Issues[i])
	}
	return resp.Issues, nil
}

// SearchFilter runs the JQL of the favourite filter named name.
func (s *Service) SearchFilter(ctx context.Context, name string) ([]Issue, error) {
	filters, err := s.FavouriteFilters(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(filters))
	for i, f := range filters {
		names[i] = f.Name
	}
	i, err := source.MatchOne("filter", name, names)
	if err != nil {
		return nil, err
	}
	return s.Search(ctx, filters[i].JQL)
}

// ListJQL builds the query behind "jissue list". An empty project lists
// across projects, an empty assignee means the caller.
func ListJQL(project, assignee string) string {
	var clauses []string
	if project != "" {
		clauses = append(clauses, fmt.Sprintf(`project = "%s"`, escapeJQL(strings.ToUpper(project))))
	}
	if assignee == "" {
		clauses = append(clauses, "assignee = currentUser()")
	} else {
		clauses = append(clauses, fmt.Sprintf(`assignee = "%s"`, escapeJQL(assignee)))
	}
	clauses = append(clauses, "resolution = unresolved")
	return strings.Join(clauses, " AND ") + " ORDER BY priority DESC, created ASC"
}

// FixVersionJQL selects every issue of a project slated for a version.
func FixVersionJQL(project, version string) string {
	return fmt.Sprintf(`project = "%s" AND fixVersion = "%s" ORDER BY issuetype ASC, key ASC`,
		escapeJQL(strings.ToUpper(project)), escapeJQL(version))
}

// UnresolvedInVersionJQL selects the open issues slated for a version.
func UnresolvedInVersionJQL(project, version string) string {
	return fmt.Sprintf(`project = "%s" AND fixVersion = "%s" AND resolution = unresolved`,
		escapeJQL(strings.ToUpper(project)), escapeJQL(version))
}

// Comment adds a comment to an issue.
func (s *Service) Comment(ctx context.Context, key, body string) error {
	path := fmt.Sprintf("%s/issue/%s/comment", apiRoot, url.PathEscape(strings.ToUpper(key)))
	payload := map[string]string{"body": body}

	var result Comment
	if err := s.client.Post(ctx, path, payload, &result); err != nil {
		return fmt.Errorf("commenting on %s: %w", key, err)
	}
	s.cache.forgetIssue(key)
	return nil
}

// AddLabels adds labels to an issue, keeping the ones it already has.
func (s *Service) AddLabels(ctx context.Context, key string, labels []string) ([]string, error) {
	issue, err := s.Issue(ctx, key)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	for _, l := range issue.Fields.Labels {
		set[l] = true
	}
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			set[l] = true
		}
	}
	merged := make([]string, 0, len(set))
	for l := range set {
		merged = append(merged, l)
	}
	sort.Strings(merged)

	if err := s.updateFields(ctx, key, map[string]interface{}{"labels": merged}); err != nil {
		return nil, err
	}
	return merged, nil
}

// Assignment targets for Assign besides a user name.
const (
	AssignAutomatic = "-1"
	AssignNobody    = ""
)

// Assign sets the assignee of an issue. AssignAutomatic lets the project's
// default assignee take it and AssignNobody clears it.
func (s *Service) Assign(ctx context.Context, key, assignee string) error {
	path := fmt.Sprintf("%s/issue/%s/assignee", apiRoot, url.PathEscape(strings.ToUpper(key)))
	payload := map[string]interface{}{"name": assignee}
	if assignee == AssignNobody {
		payload["name"] = nil
	}
	if err := s.client.Put(ctx, path, payload, nil); err != nil {
		return fmt.Errorf("assigning %s: %w", key, err)
	}
	s.cache.forgetIssue(key)
	return nil
}

// LinkIssues links from and to with the named link type. The link type
// is matched case-insensitively and must match exactly one type.
func (s *Service) LinkIssues(ctx context.Context, linkType, from, to, comment string) error {
	types, err := s.LinkTypes(ctx)
	if err != nil {
		return err
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.Name
	}
	i, err := source.MatchOne("link type", linkType, names)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{
		"type":         map[string]string{"name": types[i].Name},
		"inwardIssue":  map[string]string{"key": strings.ToUpper(from)},
		"outwardIssue": map[string]string{"key": strings.ToUpper(to)},
	}
	if comment != "" {
		payload["comment"] = map[string]string{"body": comment}
	}
	if err := s.client.Post(ctx, apiRoot+"/issueLink", payload, nil); err != nil {
		return fmt.Errorf("linking %s to %s: %w", from, to, err)
	}
	s.cache.forgetIssue(from)
	s.cache.forgetIssue(to)
	return nil
}

// CreateRequest describes a new issue.
type CreateRequest struct {
	Project    string
	IssueType  string
	Summary    string
	Details    string
	Component  string
	FixVersion string
	// Assignee is a user name, AssignAutomatic, or empty to leave the
	// server default.
	Assignee string
	Fields   []FieldValue
}

// SplitDetails splits free text into a summary (its first line) and a
// description (the rest).
func SplitDetails(details string) (summary, description string) {
	details = strings.TrimSpace(details)
	summary, description, _ = strings.Cut(details, "\n")
	return strings.TrimSpace(summary), strings.TrimSpace(description)
}

// CreateIssue creates an issue. Issue type, component and fix version are
// matched by name and must each match exactly once.
func (s *Service) CreateIssue(ctx context.Context, req CreateRequest) (*CreatedIssue, error) {
	project, err := s.Project(ctx, req.Project)
	if err != nil {
		return nil, err
	}

	typeNames := make([]string, len(project.IssueTypes))
	for i, t := range project.IssueTypes {
		typeNames[i] = t.Name
	}
	ti, err := source.MatchOne("issue type", req.IssueType, typeNames)
	if err != nil {
		return nil, err
	}
	issueType := project.IssueTypes[ti]

	summary := req.Summary
	description := req.Details
	if summary == "" {
		summary, description = SplitDetails(req.Details)
	}

	fields := map[string]interface{}{
		"project":   map[string]string{"id": project.ID},
		"issuetype": map[string]string{"id": issueType.ID},
		"summary":   summary,
	}
	if description != "" {
		fields["description"] = description
	}

	if req.Component != "" {
		names := make([]string, len(project.Components))
		for i, c := range project.Components {
			names[i] = c.Name
		}
		ci, err := source.MatchOne("component", req.Component, names)
		if err != nil {
			return nil, err
		}
		fields["components"] = []map[string]string{{"id": project.Components[ci].ID}}
	}

	if req.FixVersion != "" {
		v, err := FindVersion(project.Versions, req.FixVersion)
		if err != nil {
			return nil, err
		}
		fields["fixVersions"] = []map[string]string{{"id": v.ID}}
	}

	if req.Assignee != "" {
		fields["assignee"] = map[string]string{"name": req.Assignee}
	}

	if len(req.Fields) > 0 {
		extra, err := s.ShapeFields(ctx, project.Key, issueType.ID, req.Fields)
		if err != nil {
			return nil, err
		}
		for id, v := range extra {
			fields[id] = v
		}
	}

	var created CreatedIssue
	payload := map[string]interface{}{"fields": fields}
	if err := s.client.Post(ctx, apiRoot+"/issue", payload, &created); err != nil {
		return nil, fmt.Errorf("creating issue in %s: %w", project.Key, err)
	}
	s.logger.Debug("issue created", slog.String("key", created.Key))
	return &created, nil
}

// updateFields sets fields of an issue through PUT /issue/{key}.
func (s *Service) updateFields(ctx context.Context, key string, fields map[string]interface{}) error {
	path := fmt.Sprintf("%s/issue/%s", apiRoot, url.PathEscape(strings.ToUpper(key)))
	if err := s.client.Put(ctx, path, map[string]interface{}{"fields": fields}, nil); err != nil {
		return fmt.Errorf("updating %s: %w", key, err)
	}
	s.cache.forgetIssue(key)
	return nil
}

// Inventory is what a project offers to its issues.
type Inventory struct {
	Project     *Project
	Transitions map[string][]string
}

// Inventory returns the components, versions and issue types of a project,
// plus the workflow transitions currently open on its first few issues of
// each type.
func (s *Service) Inventory(ctx context.Context, projectKey string) (*Inventory, error) {
	project, err := s.Project(ctx, projectKey)
	if err != nil {
		return nil, err
	}
	inv := &Inventory{Project: project, Transitions: make(map[string][]string)}

	issues, err := s.Search(ctx, fmt.Sprintf(
		`project = "%s" AND resolution = unresolved ORDER BY updated DESC`,
		escapeJQL(project.Key),
	))
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, issue := range issues {
		if issue.Fields.IssueType == nil || seen[issue.Fields.IssueType.Name] {
			continue
		}
		seen[issue.Fields.IssueType.Name] = true
		ts, err := s.Transitions(ctx, issue.Key)
		if err != nil {
			return nil, err
		}
		names := make([]string, len(ts))
		for i, t := range ts {
			names[i] = t.Name
		}
		inv.Transitions[issue.Fields.IssueType.Name] = names
	}
	return inv, nil
}

// escapeJQL escapes special characters in a JQL string literal.
func escapeJQL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
