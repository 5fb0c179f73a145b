package jira

import (
	"context"
	"net/url"
	"reflect"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		schema FieldSchema
		want   SchemaKind
	}{
		{FieldSchema{Type: "string"}, KindPlain},
		{FieldSchema{Type: "number"}, KindPlain},
		{FieldSchema{Type: "array", Items: "string"}, KindArray},
		{FieldSchema{Type: "option", Custom: customTypePrefix + "select"}, KindSelect},
		{FieldSchema{Type: "option", Custom: customTypePrefix + "radiobuttons"}, KindOption},
		{FieldSchema{Type: "array", Items: "option", Custom: customTypePrefix + "multicheckboxes"}, KindMultiOption},
		{FieldSchema{Type: "user", Custom: customTypePrefix + "userpicker"}, KindUser},
		{FieldSchema{Type: "user", System: "assignee"}, KindUser},
	}
	for _, tt := range tests {
		if got := KindOf(tt.schema); got != tt.want {
			t.Errorf("KindOf(%+v) = %s, want %s", tt.schema, got, tt.want)
		}
	}
}

func TestShapeValue(t *testing.T) {
	options := []AllowedValue{{ID: "100", Value: "Red"}, {ID: "101", Value: "Green"}}
	tests := []struct {
		name   string
		schema FieldSchema
		value  string
		want   interface{}
	}{
		{"plain", FieldSchema{Type: "string"}, "hello", "hello"},
		{"number", FieldSchema{Type: "number"}, "3.5", 3.5},
		{"array", FieldSchema{Type: "array", Items: "string"}, "x", []string{"x"}},
		{"select", FieldSchema{Custom: customTypePrefix + "select"}, "Red", map[string]string{"value": "Red"}},
		{"radio", FieldSchema{Custom: customTypePrefix + "radiobuttons"}, "green", map[string]string{"id": "101"}},
		{"checkbox", FieldSchema{Custom: customTypePrefix + "multicheckboxes"}, "Red", []map[string]string{{"id": "100"}}},
		{"user", FieldSchema{Type: "user"}, "bob", map[string]string{"name": "bob"}},
	}
	for _, tt := range tests {
		got, err := ShapeValue(tt.value, tt.schema, options)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: got %#v, want %#v", tt.name, got, tt.want)
		}
	}
}

func TestShapeValueErrors(t *testing.T) {
	if _, err := ShapeValue("many", FieldSchema{Type: "number"}, nil); err == nil {
		t.Error("non-numeric value accepted for a number field")
	}
	radio := FieldSchema{Custom: customTypePrefix + "radiobuttons"}
	if _, err := ShapeValue("Blue", radio, []AllowedValue{{ID: "1", Value: "Red"}}); err == nil {
		t.Error("unknown option accepted")
	}
	dup := []AllowedValue{{ID: "1", Value: "Red"}, {ID: "2", Value: "red"}}
	if _, err := ShapeValue("Red", radio, dup); err == nil {
		t.Error("ambiguous option accepted")
	}
}

func TestParseFieldValue(t *testing.T) {
	fv, err := ParseFieldValue("Severity:=High:1")
	if err != nil {
		t.Fatal(err)
	}
	if fv.Name != "Severity" || fv.Value != "High:1" {
		t.Errorf("ParseFieldValue = %+v", fv)
	}
	if _, err := ParseFieldValue("Severity=High"); err == nil {
		t.Error("missing := accepted")
	}
}

func TestShapeFieldsUsesCreateMeta(t *testing.T) {
	f, svc := newFakeJira(t)
	f.handle("GET", "/rest/api/2/field", `[
		{"id": "summary", "name": "Summary", "schema": {"type": "string"}},
		{"id": "customfield_200", "name": "Severity", "custom": true,
		 "schema": {"type": "option", "custom": "com.atlassian.jira.plugin.system.customfieldtypes:radiobuttons"}},
		{"id": "customfield_201", "name": "Reviewer", "custom": true,
		 "schema": {"type": "user", "custom": "com.atlassian.jira.plugin.system.customfieldtypes:userpicker"}}
	]`)
	f.handle("GET", "/rest/api/2/issue/createmeta", `{"projects": [{"id": "100", "key": "ABC", "issuetypes": [
		{"id": "1", "name": "Bug", "fields": {
			"customfield_200": {"name": "Severity", "allowedValues": [{"id": "9001", "value": "High"}, {"id": "9002", "value": "Low"}]}
		}}
	]}]}`)
	ctx := context.Background()

	got, err := svc.ShapeFields(ctx, "ABC", "1", []FieldValue{
		{Name: "severity", Value: "low"},
		{Name: "Reviewer", Value: "carol"},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]interface{}{
		"customfield_200": map[string]string{"id": "9002"},
		"customfield_201": map[string]string{"name": "carol"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ShapeFields = %#v, want %#v", got, want)
	}

	q, err := url.ParseQuery(f.lastQuery("GET", "/rest/api/2/issue/createmeta"))
	if err != nil {
		t.Fatal(err)
	}
	if q.Get("projectKeys") != "ABC" || q.Get("issuetypeIds") != "1" || q.Get("expand") != "projects.issuetypes.fields" {
		t.Errorf("createmeta query = %v", q)
	}

	if _, err := svc.ShapeFields(ctx, "ABC", "1", []FieldValue{{Name: "Severity", Value: "High"}}); err != nil {
		t.Fatal(err)
	}
	if n := f.count("GET", "/rest/api/2/issue/createmeta"); n != 1 {
		t.Errorf("createmeta fetched %d times, want 1", n)
	}
}
