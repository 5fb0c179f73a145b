package jira

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Field names understood by the Mapper.
const (
	FieldRank                    = "Rank"
	FieldType                    = "Type"
	FieldKey                     = "Key"
	FieldSummary                 = "Summary"
	FieldDescription             = "Description"
	FieldPriority                = "Priority"
	FieldProject                 = "Project"
	FieldStatus                  = "Status"
	FieldResolution              = "Resolution"
	FieldCreated                 = "Created"
	FieldUpdated                 = "Updated"
	FieldAssignee                = "Assignee"
	FieldReporter                = "Reporter"
	FieldLabels                  = "Labels"
	FieldComments                = "Comments"
	FieldAffectsVersions         = "AffectsVersions"
	FieldFixVersions             = "FixVersions"
	FieldComponents              = "Components"
	FieldIssueLinks              = "IssueLinks"
	FieldSubTasks                = "SubTasks"
	FieldAttachments             = "Attachments"
	FieldReleaseNotesTitle       = "ReleaseNotesTitle"
	FieldReleaseNotesDescription = "ReleaseNotesDescription"
)

// Custom field names looked up in the name to id table.
const (
	customRank                    = "Rank"
	customReleaseNotesTitle       = "Release Notes Title"
	customReleaseNotesDescription = "Release Notes Description"
)

// Defaults for absent optional fields.
const (
	Unresolved = "Unresolved"
	Unassigned = "Unassigned"
)

// ErrUnknownField is returned by Mapper.Map for a name outside the table.
var ErrUnknownField = errors.New("unknown issue field")

// extractor returns the normalized value of one field. Every extractor
// must accept any issue the server returns, including ones missing
// optional fields.
type extractor func(m *Mapper, issue *Issue) any

var issueFields = map[string]extractor{
	FieldRank: func(m *Mapper, issue *Issue) any {
		return m.rank(issue)
	},
	FieldType: func(_ *Mapper, issue *Issue) any {
		if issue.Fields.IssueType == nil {
			return ""
		}
		return issue.Fields.IssueType.Name
	},
	FieldKey: func(_ *Mapper, issue *Issue) any {
		return issue.Key
	},
	FieldSummary: func(_ *Mapper, issue *Issue) any {
		return issue.Fields.Summary
	},
	FieldDescription: func(_ *Mapper, issue *Issue) any {
		return issue.Fields.Description
	},
	FieldPriority: func(_ *Mapper, issue *Issue) any {
		if issue.Fields.Priority == nil {
			return ""
		}
		return issue.Fields.Priority.Name
	},
	FieldProject: func(_ *Mapper, issue *Issue) any {
		if issue.Fields.Project == nil {
			return ""
		}
		return issue.Fields.Project.Name
	},
	FieldStatus: func(_ *Mapper, issue *Issue) any {
		if issue.Fields.Status == nil {
			return ""
		}
		return issue.Fields.Status.Name
	},
	FieldResolution: func(_ *Mapper, issue *Issue) any {
		if issue.Fields.Resolution == nil || issue.Fields.Resolution.Name == "" {
			return Unresolved
		}
		return issue.Fields.Resolution.Name
	},
	FieldCreated: func(_ *Mapper, issue *Issue) any {
		return parseTimestampOrZero(issue.Fields.Created)
	},
	FieldUpdated: func(_ *Mapper, issue *Issue) any {
		return parseTimestampOrZero(issue.Fields.Updated)
	},
	FieldAssignee: func(_ *Mapper, issue *Issue) any {
		if issue.Fields.Assignee == nil {
			return Unassigned
		}
		return issue.Fields.Assignee.DisplayName
	},
	FieldReporter: func(_ *Mapper, issue *Issue) any {
		if issue.Fields.Reporter == nil {
			return ""
		}
		return issue.Fields.Reporter.DisplayName
	},
	FieldLabels: func(_ *Mapper, issue *Issue) any {
		return append([]string{}, issue.Fields.Labels...)
	},
	FieldComments: func(_ *Mapper, issue *Issue) any {
		if issue.Fields.Comment == nil {
			return []Comment{}
		}
		return append([]Comment{}, issue.Fields.Comment.Comments...)
	},
	FieldAffectsVersions: func(_ *Mapper, issue *Issue) any {
		return versionNames(issue.Fields.AffectsVersions)
	},
	FieldFixVersions: func(_ *Mapper, issue *Issue) any {
		return versionNames(issue.Fields.FixVersions)
	},
	FieldComponents: func(_ *Mapper, issue *Issue) any {
		names := make([]string, 0, len(issue.Fields.Components))
		for _, c := range issue.Fields.Components {
			names = append(names, c.Name)
		}
		return names
	},
	FieldIssueLinks: func(_ *Mapper, issue *Issue) any {
		return append([]IssueLink{}, issue.Fields.IssueLinks...)
	},
	FieldSubTasks: func(_ *Mapper, issue *Issue) any {
		return append([]Issue{}, issue.Fields.SubTasks...)
	},
	FieldAttachments: func(_ *Mapper, issue *Issue) any {
		names := make([]string, 0, len(issue.Fields.Attachments))
		for _, a := range issue.Fields.Attachments {
			names = append(names, a.Filename)
		}
		return names
	},
	FieldReleaseNotesTitle: func(m *Mapper, issue *Issue) any {
		return m.customString(issue, customReleaseNotesTitle)
	},
	FieldReleaseNotesDescription: func(m *Mapper, issue *Issue) any {
		return m.customString(issue, customReleaseNotesDescription)
	},
}

// fieldAliases maps the labels used by the show template to table names.
var fieldAliases = map[string]string{
	"Affects Version/s":         FieldAffectsVersions,
	"Fix Version/s":             FieldFixVersions,
	"Component/s":               FieldComponents,
	"Issue Links":               FieldIssueLinks,
	"Sub-Tasks":                 FieldSubTasks,
	"Release Notes Title":       FieldReleaseNotesTitle,
	"Release Notes Description": FieldReleaseNotesDescription,
}

// Mapper extracts normalized values from issues. Custom fields are read
// through the name to id table the Mapper was built with.
type Mapper struct {
	customIDs map[string]string
}

// NewMapper builds a Mapper from the server's field list. A nil list gives
// a Mapper whose custom fields all map to their zero value.
func NewMapper(fields []Field) *Mapper {
	ids := make(map[string]string)
	for _, f := range fields {
		if !f.Custom {
			continue
		}
		if _, dup := ids[f.Name]; dup {
			continue
		}
		ids[f.Name] = f.ID
	}
	return &Mapper{customIDs: ids}
}

// FieldNames lists the names accepted by Map, sorted.
func FieldNames() []string {
	names := make([]string, 0, len(issueFields))
	for name := range issueFields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CanonicalField resolves a display label or a case variant to a table
// name. The second result is false for unknown names.
func CanonicalField(name string) (string, bool) {
	if alias, ok := fieldAliases[name]; ok {
		return alias, true
	}
	if _, ok := issueFields[name]; ok {
		return name, true
	}
	for known := range issueFields {
		if strings.EqualFold(known, name) {
			return known, true
		}
	}
	return "", false
}

// Map returns the value of the named field: a string, int, time.Time,
// []string, []Comment, []IssueLink or []Issue depending on the field.
func (m *Mapper) Map(name string, issue *Issue) (any, error) {
	canonical, ok := CanonicalField(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return issueFields[canonical](m, issue), nil
}

// MapAll returns the named fields of issue keyed by the names as given.
func (m *Mapper) MapAll(names []string, issue *Issue) (map[string]any, error) {
	out := make(map[string]any, len(names))
	for _, name := range names {
		v, err := m.Map(name, issue)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// CustomFieldID returns the id of the custom field called name.
func (m *Mapper) CustomFieldID(name string) (string, bool) {
	id, ok := m.customIDs[name]
	return id, ok
}

func (m *Mapper) customRaw(issue *Issue, name string) (json.RawMessage, bool) {
	id, ok := m.CustomFieldID(name)
	if !ok {
		return nil, false
	}
	raw, ok := issue.Fields.Custom[id]
	return raw, ok
}

// customString renders a custom value as text. Select options yield their
// value, users their display name.
func (m *Mapper) customString(issue *Issue, name string) string {
	raw, ok := m.customRaw(issue, name)
	if !ok {
		return ""
	}
	return customText(raw)
}

func customText(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	var obj struct {
		Value       string `json:"value"`
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		switch {
		case obj.Value != "":
			return obj.Value
		case obj.DisplayName != "":
			return obj.DisplayName
		case obj.Name != "":
			return obj.Name
		}
	}
	var arr []json.RawMessage
	if json.Unmarshal(raw, &arr) == nil {
		parts := make([]string, 0, len(arr))
		for _, item := range arr {
			parts = append(parts, customText(item))
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

// rank returns the numeric rank when the server stores one, the rank
// string for lexicographic ranks, or 0 when there is no rank at all.
func (m *Mapper) rank(issue *Issue) any {
	raw, ok := m.customRaw(issue, customRank)
	if !ok {
		return 0
	}
	text := customText(raw)
	if n, err := strconv.ParseFloat(text, 64); err == nil {
		return int(n)
	}
	if text == "" {
		return 0
	}
	return text
}

func versionNames(versions []Version) []string {
	names := make([]string, 0, len(versions))
	for _, v := range versions {
		names = append(names, v.Name)
	}
	return names
}
