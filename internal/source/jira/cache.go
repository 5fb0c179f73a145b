package jira

import "strings"

// lookupCache memoizes idempotent reads for the lifetime of one Service.
// Transitions are never stored here: they depend on the issue's current
// status and are fetched fresh on every call.
type lookupCache struct {
	issues      map[string]*Issue
	projects    map[string]*Project
	createMeta  map[string]map[string]CreateMetaField
	fields      []Field
	resolutions []Resolution
	linkTypes   []LinkType
	filters     []Filter
	myself      *Myself
}

func newLookupCache() *lookupCache {
	return &lookupCache{
		issues:     make(map[string]*Issue),
		projects:   make(map[string]*Project),
		createMeta: make(map[string]map[string]CreateMetaField),
	}
}

func cacheKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

func (c *lookupCache) issue(key string) (*Issue, bool) {
	issue, ok := c.issues[cacheKey(key)]
	return issue, ok
}

func (c *lookupCache) putIssue(key string, issue *Issue) {
	c.issues[cacheKey(key)] = issue
}

// forgetIssue drops an issue after it was changed remotely.
func (c *lookupCache) forgetIssue(key string) {
	delete(c.issues, cacheKey(key))
}

func (c *lookupCache) project(key string) (*Project, bool) {
	p, ok := c.projects[cacheKey(key)]
	return p, ok
}

func (c *lookupCache) putProject(key string, p *Project) {
	c.projects[cacheKey(key)] = p
}

// forgetProject drops a project after one of its versions changed.
func (c *lookupCache) forgetProject(key string) {
	delete(c.projects, cacheKey(key))
}

func createMetaKey(projectKey, issueTypeID string) string {
	return cacheKey(projectKey) + "/" + issueTypeID
}
