package jira

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/nhle/jissue/internal/source"
)

// SchemaKind selects how a text value is shaped for a field.
type SchemaKind int

const (
	// KindPlain sends the value itself, as a number for number fields.
	KindPlain SchemaKind = iota
	// KindArray sends a one-element array of the value.
	KindArray
	// KindSelect sends {"value": v}.
	KindSelect
	// KindOption sends {"id": id} for the option displayed as v.
	KindOption
	// KindMultiOption sends [{"id": id}] for the option displayed as v.
	KindMultiOption
	// KindUser sends {"name": v}.
	KindUser
)

func (k SchemaKind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindArray:
		return "array"
	case KindSelect:
		return "select"
	case KindOption:
		return "option"
	case KindMultiOption:
		return "multi-option"
	case KindUser:
		return "user"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

const customTypePrefix = "com.atlassian.jira.plugin.system.customfieldtypes:"

var customKinds = map[string]SchemaKind{
	customTypePrefix + "radiobuttons":    KindOption,
	customTypePrefix + "multicheckboxes": KindMultiOption,
	customTypePrefix + "select":          KindSelect,
	customTypePrefix + "userpicker":      KindUser,
	customTypePrefix + "labels":          KindArray,
	customTypePrefix + "multiselect":     KindMultiOption,
}

// KindOf classifies a field schema.
func KindOf(schema FieldSchema) SchemaKind {
	if kind, ok := customKinds[schema.Custom]; ok {
		return kind
	}
	switch schema.Type {
	case "user":
		return KindUser
	case "option":
		return KindSelect
	case "array":
		if schema.Items == "option" {
			return KindMultiOption
		}
		return KindArray
	}
	return KindPlain
}

// shaper turns a text value into the JSON the server expects. Options are
// the allowed values of the field in the target context and are only
// supplied when needsOptions is set.
type shaper struct {
	needsOptions bool
	shape        func(value string, schema FieldSchema, options []AllowedValue) (interface{}, error)
}

var shapers = map[SchemaKind]shaper{
	KindPlain: {shape: func(value string, schema FieldSchema, _ []AllowedValue) (interface{}, error) {
		if schema.Type != "number" {
			return value, nil
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", value)
		}
		return n, nil
	}},
	KindArray: {shape: func(value string, _ FieldSchema, _ []AllowedValue) (interface{}, error) {
		return []string{value}, nil
	}},
	KindSelect: {shape: func(value string, _ FieldSchema, _ []AllowedValue) (interface{}, error) {
		return map[string]string{"value": value}, nil
	}},
	KindOption: {needsOptions: true, shape: func(value string, _ FieldSchema, options []AllowedValue) (interface{}, error) {
		id, err := optionID(options, value)
		if err != nil {
			return nil, err
		}
		return map[string]string{"id": id}, nil
	}},
	KindMultiOption: {needsOptions: true, shape: func(value string, _ FieldSchema, options []AllowedValue) (interface{}, error) {
		id, err := optionID(options, value)
		if err != nil {
			return nil, err
		}
		return []map[string]string{{"id": id}}, nil
	}},
	KindUser: {shape: func(value string, _ FieldSchema, _ []AllowedValue) (interface{}, error) {
		return map[string]string{"name": value}, nil
	}},
}

// ShapeValue shapes value for a field of the given schema.
func ShapeValue(value string, schema FieldSchema, options []AllowedValue) (interface{}, error) {
	kind := KindOf(schema)
	sh, ok := shapers[kind]
	if !ok {
		return nil, fmt.Errorf("no shaper for %s fields", kind)
	}
	return sh.shape(value, schema, options)
}

func optionID(options []AllowedValue, value string) (string, error) {
	labels := make([]string, len(options))
	for i, o := range options {
		labels[i] = o.Label()
	}
	i, err := source.MatchOne("option", value, labels)
	if err != nil {
		return "", err
	}
	return options[i].ID, nil
}

// FieldValue is a field assignment given on the command line.
type FieldValue struct {
	Name  string
	Value string
}

// ParseFieldValue reads "name:=value".
func ParseFieldValue(s string) (FieldValue, error) {
	name, value, ok := strings.Cut(s, ":=")
	if !ok || strings.TrimSpace(name) == "" {
		return FieldValue{}, fmt.Errorf("field %q is not in the form name:=value", s)
	}
	return FieldValue{Name: strings.TrimSpace(name), Value: value}, nil
}

// ShapeFields resolves each named field to its id and shapes its value.
// Option fields look their allowed values up in the create metadata of
// projectKey and issueTypeID.
func (s *Service) ShapeFields(
	ctx context.Context,
	projectKey, issueTypeID string,
	values []FieldValue,
) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(values))
	for _, fv := range values {
		field, err := s.FieldByName(ctx, fv.Name)
		if err != nil {
			return nil, err
		}
		kind := KindOf(field.Schema)

		var options []AllowedValue
		if shapers[kind].needsOptions {
			meta, err := s.CreateMeta(ctx, projectKey, issueTypeID)
			if err != nil {
				return nil, err
			}
			entry, ok := meta[field.ID]
			if !ok {
				return nil, fmt.Errorf(
					"field %q is not available on issue type %s of %s",
					field.Name, issueTypeID, projectKey,
				)
			}
			options = entry.AllowedValues
		}

		shaped, err := ShapeValue(fv.Value, field.Schema, options)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.Name, err)
		}
		out[field.ID] = shaped
	}
	return out, nil
}

// CreateMeta returns the fields, with their allowed values, that an issue
// of the given type accepts in the given project.
func (s *Service) CreateMeta(
	ctx context.Context,
	projectKey, issueTypeID string,
) (map[string]CreateMetaField, error) {
	cacheID := createMetaKey(projectKey, issueTypeID)
	if meta, ok := s.cache.createMeta[cacheID]; ok {
		return meta, nil
	}

	query := url.Values{}
	query.Set("projectKeys", strings.ToUpper(projectKey))
	query.Set("issuetypeIds", issueTypeID)
	query.Set("expand", "projects.issuetypes.fields")

	var resp CreateMeta
	if err := s.client.Get(ctx, apiRoot+"/issue/createmeta?"+query.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("fetching create metadata for %s: %w", projectKey, err)
	}

	meta := make(map[string]CreateMetaField)
	for _, p := range resp.Projects {
		for _, it := range p.IssueTypes {
			if it.ID != issueTypeID {
				continue
			}
			for id, f := range it.Fields {
				meta[id] = f
			}
		}
	}
	s.cache.createMeta[cacheID] = meta
	return meta, nil
}
