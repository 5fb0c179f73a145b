package jira

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SearchResponse is the response from POST /rest/api/2/search.
type SearchResponse struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

// Issue represents a single Jira issue from the REST API.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Self   string      `json:"self"`
	Fields IssueFields `json:"fields"`
}

// IssueFields contains the standard fields of a Jira issue plus every
// customfield_* value, kept raw until a name lookup gives it meaning.
type IssueFields struct {
	Summary         string       `json:"summary"`
	Description     string       `json:"description,omitempty"`
	Status          *Status      `json:"status,omitempty"`
	Priority        *Priority    `json:"priority,omitempty"`
	IssueType       *IssueType   `json:"issuetype,omitempty"`
	Resolution      *Resolution  `json:"resolution,omitempty"`
	Assignee        *User        `json:"assignee,omitempty"`
	Reporter        *User        `json:"reporter,omitempty"`
	Project         *Project     `json:"project,omitempty"`
	Created         string       `json:"created,omitempty"`
	Updated         string       `json:"updated,omitempty"`
	Labels          []string     `json:"labels,omitempty"`
	Comment         *CommentPage `json:"comment,omitempty"`
	AffectsVersions []Version    `json:"versions,omitempty"`
	FixVersions     []Version    `json:"fixVersions,omitempty"`
	Components      []Component  `json:"components,omitempty"`
	IssueLinks      IssueLinks   `json:"issuelinks,omitempty"`
	SubTasks        []Issue      `json:"subtasks,omitempty"`
	Attachments     []Attachment `json:"attachment,omitempty"`
	Custom          CustomFields `json:"-"`
	// SkippedLinks explains each issuelinks entry that was dropped while
	// decoding.
	SkippedLinks []error `json:"-"`
}

// CustomFields maps a custom field id (customfield_10700) to its raw value.
type CustomFields map[string]json.RawMessage

const customFieldPrefix = "customfield_"

// UnmarshalJSON decodes the known fields and collects the custom ones.
func (f *IssueFields) UnmarshalJSON(b []byte) error {
	type alias IssueFields
	if err := json.Unmarshal(b, (*alias)(f)); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if links, ok := raw["issuelinks"]; ok {
		_, f.SkippedLinks, _ = decodeIssueLinks(links)
	}
	for k, v := range raw {
		if !strings.HasPrefix(k, customFieldPrefix) {
			continue
		}
		if string(v) == "null" {
			continue
		}
		if f.Custom == nil {
			f.Custom = make(CustomFields)
		}
		f.Custom[k] = v
	}
	return nil
}

// MarshalJSON writes the known fields and the custom ones side by side.
func (f IssueFields) MarshalJSON() ([]byte, error) {
	type alias IssueFields
	known, err := json.Marshal(alias(f))
	if err != nil {
		return nil, err
	}
	if len(f.Custom) == 0 {
		return known, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range f.Custom {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// Status represents the status of a Jira issue.
type Status struct {
	Name           string         `json:"name"`
	ID             string         `json:"id"`
	StatusCategory StatusCategory `json:"statusCategory"`
}

// StatusCategory is the broad category a status belongs to.
type StatusCategory struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Priority represents the priority level of a Jira issue.
type Priority struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// IssueType represents the type of a Jira issue (Bug, Story, etc.).
type IssueType struct {
	Name    string `json:"name"`
	ID      string `json:"id"`
	Subtask bool   `json:"subtask,omitempty"`
}

// Resolution is a reason an issue was resolved (Fixed, Won't Fix, ...).
type Resolution struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// User represents a Jira user.
type User struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// Project represents a Jira project. Versions, components and issue types
// are only populated by GET /project/{key}.
type Project struct {
	ID         string      `json:"id"`
	Key        string      `json:"key"`
	Name       string      `json:"name"`
	Versions   []Version   `json:"versions,omitempty"`
	Components []Component `json:"components,omitempty"`
	IssueTypes []IssueType `json:"issueTypes,omitempty"`
}

// Version is a named release of a project.
type Version struct {
	ID          string `json:"id,omitempty"`
	Self        string `json:"self,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ReleaseDate string `json:"releaseDate,omitempty"`
	Released    bool   `json:"released"`
	Archived    bool   `json:"archived"`
	ProjectID   int    `json:"projectId,omitempty"`
}

// Component is a project component.
type Component struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Attachment is a file attached to an issue.
type Attachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Created  string `json:"created"`
	Content  string `json:"content"`
}

// Transition represents a possible status transition for a Jira issue.
type Transition struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	To   TransitionTo `json:"to"`
}

// TransitionTo describes the target status of a transition.
type TransitionTo struct {
	Name           string         `json:"name"`
	ID             string         `json:"id"`
	StatusCategory StatusCategory `json:"statusCategory"`
}

// TransitionsResponse wraps the list of transitions returned by the API.
type TransitionsResponse struct {
	Transitions []Transition `json:"transitions"`
}

// Comment represents a single comment on a Jira issue.
type Comment struct {
	ID      string `json:"id,omitempty"`
	Body    string `json:"body"`
	Author  User   `json:"author"`
	Created string `json:"created,omitempty"`
	Updated string `json:"updated,omitempty"`
}

// CommentPage holds a paginated list of comments.
type CommentPage struct {
	Comments   []Comment `json:"comments"`
	MaxResults int       `json:"maxResults"`
	Total      int       `json:"total"`
	StartAt    int       `json:"startAt"`
}

// LinkType is a named relationship between issues. The relationship reads
// differently from each end, e.g. "blocks" / "is blocked by".
type LinkType struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Inward  string `json:"inward,omitempty"`
	Outward string `json:"outward,omitempty"`
}

// LinkTypesResponse is the response from GET /rest/api/2/issueLinkType.
type LinkTypesResponse struct {
	IssueLinkTypes []LinkType `json:"issueLinkTypes"`
}

// LinkedIssue is the abbreviated issue carried by a link.
type LinkedIssue = Issue

// IssueLink is one end of a relationship as seen from the issue holding
// it. It is either an InwardLink or an OutwardLink.
type IssueLink interface {
	LinkID() string
	LinkType() LinkType
	Linked() LinkedIssue
	// Phrase is the link type's wording for this direction.
	Phrase() string

	isIssueLink()
}

// InwardLink points at the issue on the inward side of the relationship.
type InwardLink struct {
	ID    string
	Type  LinkType
	Issue LinkedIssue
}

func (l InwardLink) LinkID() string      { return l.ID }
func (l InwardLink) LinkType() LinkType  { return l.Type }
func (l InwardLink) Linked() LinkedIssue { return l.Issue }
func (l InwardLink) Phrase() string      { return l.Type.Inward }
func (InwardLink) isIssueLink()          {}

// OutwardLink points at the issue on the outward side of the relationship.
type OutwardLink struct {
	ID    string
	Type  LinkType
	Issue LinkedIssue
}

func (l OutwardLink) LinkID() string      { return l.ID }
func (l OutwardLink) LinkType() LinkType  { return l.Type }
func (l OutwardLink) Linked() LinkedIssue { return l.Issue }
func (l OutwardLink) Phrase() string      { return l.Type.Outward }
func (OutwardLink) isIssueLink()          {}

// ErrMalformedLink explains a link that carries neither or both of the
// inward and outward issue references. Such links are skipped.
var ErrMalformedLink = errors.New("issue link must carry exactly one of inwardIssue and outwardIssue")

type rawIssueLink struct {
	ID           string   `json:"id,omitempty"`
	Type         LinkType `json:"type"`
	InwardIssue  *Issue   `json:"inwardIssue,omitempty"`
	OutwardIssue *Issue   `json:"outwardIssue,omitempty"`
}

// IssueLinks decodes the issuelinks array into its variants.
type IssueLinks []IssueLink

// UnmarshalJSON picks the variant from whichever reference is present.
// Links with neither or both references are left out.
func (ls *IssueLinks) UnmarshalJSON(b []byte) error {
	out, _, err := decodeIssueLinks(b)
	if err != nil {
		return err
	}
	*ls = out
	return nil
}

func decodeIssueLinks(b []byte) (IssueLinks, []error, error) {
	var raws []rawIssueLink
	if err := json.Unmarshal(b, &raws); err != nil {
		return nil, nil, err
	}
	out := make(IssueLinks, 0, len(raws))
	var skipped []error
	for i, r := range raws {
		switch {
		case r.InwardIssue != nil && r.OutwardIssue == nil:
			out = append(out, InwardLink{ID: r.ID, Type: r.Type, Issue: *r.InwardIssue})
		case r.OutwardIssue != nil && r.InwardIssue == nil:
			out = append(out, OutwardLink{ID: r.ID, Type: r.Type, Issue: *r.OutwardIssue})
		default:
			skipped = append(skipped, fmt.Errorf("issuelinks[%d] (%s): %w", i, r.ID, ErrMalformedLink))
		}
	}
	return out, skipped, nil
}

// MarshalJSON writes the links back in the remote shape.
func (ls IssueLinks) MarshalJSON() ([]byte, error) {
	raws := make([]rawIssueLink, 0, len(ls))
	for _, l := range ls {
		r := rawIssueLink{ID: l.LinkID(), Type: l.LinkType()}
		linked := l.Linked()
		switch l.(type) {
		case InwardLink:
			r.InwardIssue = &linked
		case OutwardLink:
			r.OutwardIssue = &linked
		}
		raws = append(raws, r)
	}
	return json.Marshal(raws)
}

// Field is an entry of GET /rest/api/2/field, the name to id table.
type Field struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Custom bool        `json:"custom"`
	Schema FieldSchema `json:"schema"`
}

// FieldSchema describes the declared type of a field.
type FieldSchema struct {
	Type     string `json:"type"`
	Items    string `json:"items,omitempty"`
	System   string `json:"system,omitempty"`
	Custom   string `json:"custom,omitempty"`
	CustomID int    `json:"customId,omitempty"`
}

// AllowedValue is an option a select-like field accepts in one
// project/issue type context.
type AllowedValue struct {
	ID    string `json:"id"`
	Value string `json:"value,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Label returns whichever display text the option carries.
func (v AllowedValue) Label() string {
	if v.Value != "" {
		return v.Value
	}
	return v.Name
}

// CreateMetaField is a field entry of the create metadata.
type CreateMetaField struct {
	Name          string         `json:"name"`
	Required      bool           `json:"required"`
	Schema        FieldSchema    `json:"schema"`
	AllowedValues []AllowedValue `json:"allowedValues,omitempty"`
}

// CreateMeta is the response of GET /rest/api/2/issue/createmeta.
type CreateMeta struct {
	Projects []struct {
		ID         string `json:"id"`
		Key        string `json:"key"`
		IssueTypes []struct {
			ID     string                     `json:"id"`
			Name   string                     `json:"name"`
			Fields map[string]CreateMetaField `json:"fields"`
		} `json:"issuetypes"`
	} `json:"projects"`
}

// Filter is a saved JQL search.
type Filter struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	JQL  string `json:"jql"`
	Self string `json:"self,omitempty"`
}

// Myself is the response from GET /rest/api/2/myself.
type Myself struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
	Active       bool   `json:"active"`
}

// CreatedIssue is the response of POST /rest/api/2/issue.
type CreatedIssue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

// FieldOption is an option of a custom select field as exposed by the
// custom field editor plugin.
type FieldOption struct {
	ID          int    `json:"id"`
	OptionValue string `json:"optionvalue"`
	Disabled    bool   `json:"disabled"`
}
