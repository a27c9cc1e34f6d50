package jsonschema_test

import (
	"testing"

	"github.com/sohama/trickle/jsonschema"
)

func TestParsePolymorphicType(t *testing.T) {
	s := jsonschema.MustParse([]byte(`{"type":"string"}`))
	if len(s.Type) != 1 || s.Type[0] != "string" {
		t.Fatalf("type: %v", s.Type)
	}
	s = jsonschema.MustParse([]byte(`{"type":["string","null"]}`))
	if len(s.Type) != 2 || s.Type[1] != "null" {
		t.Fatalf("type list: %v", s.Type)
	}
	if _, err := jsonschema.Parse([]byte(`{"type":42}`)); err == nil {
		t.Fatal("expected error for numeric type")
	}
}

func TestParseItemsForms(t *testing.T) {
	s := jsonschema.MustParse([]byte(`{"items":{"type":"number"}}`))
	if s.Items == nil || len(s.TupleItems) != 0 {
		t.Fatalf("uniform items: %+v", s)
	}
	s = jsonschema.MustParse([]byte(`{"items":[{"type":"string"},{"type":"number"}],"additionalItems":false}`))
	if s.Items != nil || len(s.TupleItems) != 2 {
		t.Fatalf("tuple items: %+v", s)
	}
	if s.AdditionalItems == nil || s.AdditionalItems.Allows() {
		t.Fatalf("additionalItems=false not decoded: %+v", s.AdditionalItems)
	}
}

func TestParseAdditionalProperties(t *testing.T) {
	s := jsonschema.MustParse([]byte(`{"additionalProperties":false}`))
	if s.AdditionalProperties == nil || s.AdditionalProperties.Allows() {
		t.Fatal("bool form")
	}
	s = jsonschema.MustParse([]byte(`{"additionalProperties":{"type":"string"}}`))
	if s.AdditionalProperties == nil || s.AdditionalProperties.Schema == nil {
		t.Fatal("schema form")
	}
	if !s.AdditionalProperties.Allows() {
		t.Fatal("schema form allows extra members")
	}
}

func TestParseConstNull(t *testing.T) {
	s := jsonschema.MustParse([]byte(`{"const":null}`))
	if !s.HasConst || s.Const != nil {
		t.Fatalf("const null: %+v", s)
	}
	if jsonschema.MustParse([]byte(`{}`)).HasConst {
		t.Fatal("absent const misdetected")
	}
}

func TestDefsMerge(t *testing.T) {
	s := jsonschema.MustParse([]byte(`{
		"$defs": {"a": {"type":"string"}},
		"definitions": {"a": {"type":"number"}, "b": {"type":"boolean"}}
	}`))
	defs := s.Defs()
	if len(defs) != 2 {
		t.Fatalf("merged size: %d", len(defs))
	}
	if defs["a"].Type[0] != "string" {
		t.Fatalf("$defs should win the collision: %v", defs["a"].Type)
	}
	if defs["b"].Type[0] != "boolean" {
		t.Fatalf("definitions entry lost: %v", defs["b"])
	}
}

func TestResolveRef(t *testing.T) {
	root := jsonschema.MustParse([]byte(`{
		"$defs": {
			"name": {"type":"string"},
			"alias": {"$ref":"#/$defs/name"}
		},
		"properties": {"n": {"$ref":"#/definitions/legacy"}},
		"definitions": {"legacy": {"type":"number"}}
	}`))
	got := root.DefsRaw["alias"].Resolve(root)
	if got == nil || got.Type[0] != "string" {
		t.Fatalf("chained ref: %+v", got)
	}
	got = root.Properties["n"].Resolve(root)
	if got == nil || got.Type[0] != "number" {
		t.Fatalf("definitions ref: %+v", got)
	}
	dangling := jsonschema.MustParse([]byte(`{"$ref":"#/$defs/missing"}`))
	if dangling.Resolve(dangling) != nil {
		t.Fatal("dangling ref should resolve to nil")
	}
}

func TestResolveRefCycleTerminates(t *testing.T) {
	root := jsonschema.MustParse([]byte(`{
		"$defs": {
			"a": {"$ref":"#/$defs/b"},
			"b": {"$ref":"#/$defs/a"}
		},
		"$ref": "#/$defs/a"
	}`))
	if root.Resolve(root) != nil {
		t.Fatal("ref cycle should resolve to nil")
	}
}

func TestAtDescent(t *testing.T) {
	root := jsonschema.MustParse([]byte(`{
		"type": "object",
		"properties": {
			"user": {
				"type": "object",
				"properties": {"age": {"type":"number"}},
				"additionalProperties": {"type":"string"}
			},
			"pairs": {"items": [{"type":"string"}, {"type":"number"}], "additionalItems": {"type":"boolean"}},
			"tags": {"items": {"$ref": "#/$defs/tag"}}
		},
		"$defs": {"tag": {"type":"string"}}
	}`))

	if got := root.At(root, []string{"user", "age"}); got == nil || got.Type[0] != "number" {
		t.Fatalf("properties descent: %+v", got)
	}
	if got := root.At(root, []string{"user", "anything"}); got == nil || got.Type[0] != "string" {
		t.Fatalf("additionalProperties catch-all: %+v", got)
	}
	if got := root.At(root, []string{"pairs", "1"}); got == nil || got.Type[0] != "number" {
		t.Fatalf("tuple index: %+v", got)
	}
	if got := root.At(root, []string{"pairs", "5"}); got == nil || got.Type[0] != "boolean" {
		t.Fatalf("additionalItems schema: %+v", got)
	}
	if got := root.At(root, []string{"tags", "3"}); got == nil || got.Type[0] != "string" {
		t.Fatalf("uniform items with ref: %+v", got)
	}
	if got := root.At(root, []string{"nope"}); got != nil {
		t.Fatalf("outside the schema: %+v", got)
	}
}

func TestCanBeType(t *testing.T) {
	cases := []struct {
		schema string
		kind   string
		want   bool
	}{
		{`{}`, "object", true},
		{`{"type":"object"}`, "object", true},
		{`{"type":"object"}`, "array", false},
		{`{"type":["string","null"]}`, "null", true},
		{`{"type":"integer"}`, "number", true},
		{`{"type":"number"}`, "integer", false},
		{`{"properties":{"a":{}}}`, "object", true},
		{`{"properties":{"a":{}}}`, "array", false},
		{`{"required":["a"]}`, "array", false},
		{`{"items":{}}`, "array", true},
		{`{"items":{}}`, "object", false},
	}
	for _, tc := range cases {
		s := jsonschema.MustParse([]byte(tc.schema))
		if got := s.CanBeType(tc.kind); got != tc.want {
			t.Errorf("CanBeType(%s, %s) = %v, want %v", tc.schema, tc.kind, got, tc.want)
		}
	}
	var nilSchema *jsonschema.Schema
	if !nilSchema.CanBeType("object") {
		t.Error("nil schema accepts any kind")
	}
}

func TestFromValue(t *testing.T) {
	s, err := jsonschema.FromValue(map[string]any{
		"type":     "object",
		"required": []any{"id"},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.Type[0] != "object" || len(s.Required) != 1 || s.Required[0] != "id" {
		t.Fatalf("got %+v", s)
	}
}

func TestCheckFormat(t *testing.T) {
	cases := []struct {
		format string
		value  string
		want   bool
	}{
		{"date-time", "2024-03-01T10:20:30Z", true},
		{"date-time", "2024-03-01T10:20:30.5+09:00", true},
		{"date-time", "2024-03-01 10:20:30", false},
		{"date", "2024-03-01", true},
		{"date", "03/01/2024", false},
		{"time", "10:20:30", true},
		{"time", "10:20:30.25Z", true},
		{"time", "25h", false},
		{"email", "a@b.co", true},
		{"email", "not an email", false},
		{"uri", "https://example.com/x", true},
		{"uri", "example.com", false},
		{"uuid", "123E4567-e89b-12d3-a456-426614174000", true},
		{"uuid", "123e4567", false},
		{"ipv4", "192.168.0.1", true},
		{"ipv4", "192.168.0", false},
		{"ipv6", "2001:0DB8:0000:0000:0000:ff00:0042:8329", true},
		{"ipv6", "::1", false},
		{"made-up", "anything", true},
	}
	for _, tc := range cases {
		if got := jsonschema.CheckFormat(tc.format, tc.value); got != tc.want {
			t.Errorf("CheckFormat(%q, %q) = %v, want %v", tc.format, tc.value, got, tc.want)
		}
	}
	if jsonschema.KnownFormat("made-up") {
		t.Error("made-up format should be unknown")
	}
	if !jsonschema.KnownFormat("uuid") {
		t.Error("uuid format should be known")
	}
}
