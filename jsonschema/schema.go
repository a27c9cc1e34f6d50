package jsonschema

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// Schema is the draft-07 subset understood by this module. Values are stored
// by reference and never mutated after Parse; a Schema may therefore be shared
// across any number of parsers and validators.
type Schema struct {
	// Core
	Ref      string   // "$ref"; only same-document "#/$defs/NAME" and "#/definitions/NAME".
	Type     []string // normalized: a bare string becomes a one-element list
	Const    any
	HasConst bool
	Enum     []any

	// String
	MinLength *int
	MaxLength *int
	Pattern   string
	Format    string

	// Number
	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum *float64
	ExclusiveMaximum *float64
	MultipleOf       *float64

	// Array. Exactly one of Items/TupleItems is set when "items" appears:
	// Items for the uniform form, TupleItems for the tuple form.
	Items           *Schema
	TupleItems      []*Schema
	AdditionalItems *BoolOrSchema
	MinItems        *int
	MaxItems        *int
	UniqueItems     bool
	Contains        *Schema

	// Object
	Properties           map[string]*Schema
	PatternProperties    map[string]*Schema
	Required             []string
	AdditionalProperties *BoolOrSchema
	PropertyNames        *Schema
	MinProperties        *int
	MaxProperties        *int

	// Combinators
	AllOf []*Schema
	AnyOf []*Schema
	OneOf []*Schema
	Not   *Schema
	If    *Schema
	Then  *Schema
	Else  *Schema

	// Named definitions. Both spellings are accepted on the wire; Defs()
	// merges them into one lookup table.
	DefsRaw        map[string]*Schema
	DefinitionsRaw map[string]*Schema

	defs map[string]*Schema
}

// BoolOrSchema models keywords that admit either a boolean or a sub-schema
// (additionalProperties, additionalItems).
type BoolOrSchema struct {
	Bool   bool
	Schema *Schema // nil when the boolean form was used
}

// Allows reports whether the keyword permits extra members at all.
func (b *BoolOrSchema) Allows() bool {
	if b == nil {
		return true
	}
	return b.Schema != nil || b.Bool
}

// rawSchema mirrors the wire form; polymorphic fields land in RawMessage and
// are normalized in UnmarshalJSON.
type rawSchema struct {
	Ref   string          `json:"$ref"`
	Type  json.RawMessage `json:"type"`
	Const json.RawMessage `json:"const"`
	Enum  []any           `json:"enum"`

	MinLength *int   `json:"minLength"`
	MaxLength *int   `json:"maxLength"`
	Pattern   string `json:"pattern"`
	Format    string `json:"format"`

	Minimum          *float64 `json:"minimum"`
	Maximum          *float64 `json:"maximum"`
	ExclusiveMinimum *float64 `json:"exclusiveMinimum"`
	ExclusiveMaximum *float64 `json:"exclusiveMaximum"`
	MultipleOf       *float64 `json:"multipleOf"`

	Items           json.RawMessage `json:"items"`
	AdditionalItems json.RawMessage `json:"additionalItems"`
	MinItems        *int            `json:"minItems"`
	MaxItems        *int            `json:"maxItems"`
	UniqueItems     bool            `json:"uniqueItems"`
	Contains        *Schema         `json:"contains"`

	Properties           map[string]*Schema `json:"properties"`
	PatternProperties    map[string]*Schema `json:"patternProperties"`
	Required             []string           `json:"required"`
	AdditionalProperties json.RawMessage    `json:"additionalProperties"`
	PropertyNames        *Schema            `json:"propertyNames"`
	MinProperties        *int               `json:"minProperties"`
	MaxProperties        *int               `json:"maxProperties"`

	AllOf []*Schema `json:"allOf"`
	AnyOf []*Schema `json:"anyOf"`
	OneOf []*Schema `json:"oneOf"`
	Not   *Schema   `json:"not"`
	If    *Schema   `json:"if"`
	Then  *Schema   `json:"then"`
	Else  *Schema   `json:"else"`

	Defs        map[string]*Schema `json:"$defs"`
	Definitions map[string]*Schema `json:"definitions"`
}

// Parse decodes a JSON schema document.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("jsonschema: %w", err)
	}
	return &s, nil
}

// MustParse is Parse that panics on error; for tests and package literals.
func MustParse(data []byte) *Schema {
	s, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return s
}

// FromValue builds a Schema from an already-decoded document (map[string]any
// and friends), e.g. a YAML document converted to the JSON data model.
func FromValue(v any) (*Schema, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jsonschema: %w", err)
	}
	return Parse(data)
}

// UnmarshalJSON accepts the polymorphic draft-07 forms: "type" as string or
// list, "items" as schema or tuple, additionalProperties/additionalItems as
// bool or schema, and "const" of any value including null.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var raw rawSchema
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Schema{
		Ref:               raw.Ref,
		Enum:              raw.Enum,
		MinLength:         raw.MinLength,
		MaxLength:         raw.MaxLength,
		Pattern:           raw.Pattern,
		Format:            raw.Format,
		Minimum:           raw.Minimum,
		Maximum:           raw.Maximum,
		ExclusiveMinimum:  raw.ExclusiveMinimum,
		ExclusiveMaximum:  raw.ExclusiveMaximum,
		MultipleOf:        raw.MultipleOf,
		MinItems:          raw.MinItems,
		MaxItems:          raw.MaxItems,
		UniqueItems:       raw.UniqueItems,
		Contains:          raw.Contains,
		Properties:        raw.Properties,
		PatternProperties: raw.PatternProperties,
		Required:          raw.Required,
		PropertyNames:     raw.PropertyNames,
		MinProperties:     raw.MinProperties,
		MaxProperties:     raw.MaxProperties,
		AllOf:             raw.AllOf,
		AnyOf:             raw.AnyOf,
		OneOf:             raw.OneOf,
		Not:               raw.Not,
		If:                raw.If,
		Then:              raw.Then,
		Else:              raw.Else,
		DefsRaw:           raw.Defs,
		DefinitionsRaw:    raw.Definitions,
	}

	if len(raw.Type) > 0 {
		var one string
		if err := json.Unmarshal(raw.Type, &one); err == nil {
			s.Type = []string{one}
		} else {
			var many []string
			if err := json.Unmarshal(raw.Type, &many); err != nil {
				return fmt.Errorf("jsonschema: type must be a string or list of strings")
			}
			s.Type = many
		}
	}

	if len(raw.Const) > 0 {
		s.HasConst = true
		if string(raw.Const) != "null" {
			var v any
			if err := json.Unmarshal(raw.Const, &v); err != nil {
				return err
			}
			s.Const = v
		}
	}

	if len(raw.Items) > 0 {
		if raw.Items[0] == '[' {
			var tuple []*Schema
			if err := json.Unmarshal(raw.Items, &tuple); err != nil {
				return err
			}
			s.TupleItems = tuple
		} else {
			var item Schema
			if err := json.Unmarshal(raw.Items, &item); err != nil {
				return err
			}
			s.Items = &item
		}
	}

	var err error
	if s.AdditionalItems, err = decodeBoolOrSchema(raw.AdditionalItems, "additionalItems"); err != nil {
		return err
	}
	if s.AdditionalProperties, err = decodeBoolOrSchema(raw.AdditionalProperties, "additionalProperties"); err != nil {
		return err
	}
	s.Defs() // merge $defs/definitions at construction
	return nil
}

func decodeBoolOrSchema(raw json.RawMessage, keyword string) (*BoolOrSchema, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	switch raw[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return &BoolOrSchema{Bool: b}, nil
	case '{':
		var sub Schema
		if err := json.Unmarshal(raw, &sub); err != nil {
			return nil, err
		}
		return &BoolOrSchema{Schema: &sub}, nil
	default:
		return nil, fmt.Errorf("jsonschema: %s must be a boolean or a schema", keyword)
	}
}

// Defs returns the merged $defs/definitions lookup table; $defs wins on a
// name collision. Parse merges the table at construction; a Schema built by
// other means has it merged and cached on the first call.
func (s *Schema) Defs() map[string]*Schema {
	if s == nil {
		return nil
	}
	if s.defs != nil {
		return s.defs
	}
	merged := make(map[string]*Schema, len(s.DefsRaw)+len(s.DefinitionsRaw))
	for name, def := range s.DefinitionsRaw {
		merged[name] = def
	}
	for name, def := range s.DefsRaw {
		merged[name] = def
	}
	s.defs = merged
	return merged
}

// CanBeType reports whether a value of the given primitive kind ("object",
// "array", "string", "number", "integer", "boolean", "null") could satisfy
// the schema's type constraint. Without a "type" keyword, structural hints
// narrow the answer: properties/required imply object, items implies array.
func (s *Schema) CanBeType(kind string) bool {
	if s == nil {
		return true
	}
	if len(s.Type) == 0 {
		if len(s.Properties) > 0 || len(s.Required) > 0 {
			return kind == "object"
		}
		if s.Items != nil || len(s.TupleItems) > 0 {
			return kind == "array"
		}
		return true
	}
	for _, t := range s.Type {
		if t == kind {
			return true
		}
		if t == "integer" && kind == "number" {
			return true
		}
	}
	return false
}

// Resolve follows a same-document $ref chain against root, returning the
// target schema. Unresolvable or cyclic references return nil.
func (s *Schema) Resolve(root *Schema) *Schema {
	cur := s
	for hops := 0; cur != nil && cur.Ref != ""; hops++ {
		if hops > 64 {
			return nil // ref cycle
		}
		name, ok := refName(cur.Ref)
		if !ok {
			return nil
		}
		cur = root.Defs()[name]
	}
	return cur
}

func refName(ref string) (string, bool) {
	const defs = "#/$defs/"
	const definitions = "#/definitions/"
	switch {
	case len(ref) > len(defs) && ref[:len(defs)] == defs:
		return ref[len(defs):], true
	case len(ref) > len(definitions) && ref[:len(definitions)] == definitions:
		return ref[len(definitions):], true
	}
	return "", false
}

// At descends from s along path, resolving $ref at each hop. Object segments
// descend properties by name; numeric segments descend tuple or uniform
// items; additionalProperties (schema form) catches unmatched object
// segments. Returns nil when the path leads outside the schema.
func (s *Schema) At(root *Schema, path []string) *Schema {
	cur := s.Resolve(root)
	for _, seg := range path {
		if cur == nil {
			return nil
		}
		next := cur.step(seg)
		if next == nil {
			return nil
		}
		cur = next.Resolve(root)
	}
	return cur
}

func (s *Schema) step(seg string) *Schema {
	if sub, ok := s.Properties[seg]; ok {
		return sub
	}
	if idx, err := strconv.Atoi(seg); err == nil && idx >= 0 {
		if len(s.TupleItems) > 0 {
			if idx < len(s.TupleItems) {
				return s.TupleItems[idx]
			}
			if s.AdditionalItems != nil && s.AdditionalItems.Schema != nil {
				return s.AdditionalItems.Schema
			}
			return nil
		}
		if s.Items != nil {
			return s.Items
		}
	}
	if s.AdditionalProperties != nil && s.AdditionalProperties.Schema != nil {
		return s.AdditionalProperties.Schema
	}
	return nil
}
