package trickle

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/sohama/trickle/jsonschema"
)

// Validator decides, for a (value, sub-schema) pair, whether all asserted
// constraints hold. It is a passive oracle: no state beyond the root schema,
// its definitions table and a compiled-pattern cache, so repeated calls with
// the same inputs return the same issues.
type Validator struct {
	root     *jsonschema.Schema
	opts     ValidatorOptions
	patterns map[string]*regexp.Regexp
}

// NewValidator wraps a resolved schema. A nil schema yields a validator that
// accepts everything.
func NewValidator(root *jsonschema.Schema, opts ValidatorOptions) *Validator {
	return &Validator{root: root, opts: opts, patterns: make(map[string]*regexp.Regexp)}
}

// SchemaAt resolves the sub-schema addressed by path, or nil when the path
// leads outside the schema.
func (v *Validator) SchemaAt(path []string) *jsonschema.Schema {
	if v == nil || v.root == nil {
		return nil
	}
	return v.root.At(v.root, path)
}

// CanBeType reports whether a value of the given kind could satisfy the
// schema at path. Paths outside the schema always pass.
func (v *Validator) CanBeType(kind string, path []string) bool {
	return v.SchemaAt(path).CanBeType(kind)
}

// Required returns the required property names of the object schema at path.
func (v *Validator) Required(path []string) []string {
	s := v.SchemaAt(path)
	if s == nil {
		return nil
	}
	return s.Required
}

// IsRequired reports whether name is required by the object schema at
// parentPath.
func (v *Validator) IsRequired(name string, parentPath []string) bool {
	for _, r := range v.Required(parentPath) {
		if r == name {
			return true
		}
	}
	return false
}

// Validate resolves the schema at path and checks value against it.
func (v *Validator) Validate(value any, path []string) Issues {
	if v == nil {
		return nil
	}
	s := v.SchemaAt(path)
	if s == nil {
		return nil
	}
	return v.validate(value, s, path)
}

func (v *Validator) validate(value any, s *jsonschema.Schema, path []string) Issues {
	s = s.Resolve(v.root)
	if s == nil {
		return nil
	}

	var iss Issues
	kind := kindOf(value)

	if len(s.Type) > 0 && !typeMatches(s.Type, kind, value) {
		iss = append(iss, v.issue(s, path, KeywordType, value, typeMismatchMessage(s.Type, kind)))
		if v.opts.EarlyReject {
			return iss
		}
	}

	if s.HasConst && !deepEqual(value, s.Const) {
		iss = append(iss, v.issue(s, path, KeywordConst, value, "value does not equal const"))
	}
	if len(s.Enum) > 0 {
		ok := false
		for _, e := range s.Enum {
			if deepEqual(value, e) {
				ok = true
				break
			}
		}
		if !ok {
			iss = append(iss, v.issue(s, path, KeywordEnum, value, "value not in enum"))
		}
	}

	switch kind {
	case "string":
		iss = append(iss, v.checkString(s, value.(string), path)...)
	case "number":
		if f, ok := toFloat(value); ok {
			iss = append(iss, v.checkNumber(s, f, path)...)
		}
	case "array":
		iss = append(iss, v.checkArray(s, value.([]any), path)...)
	case "object":
		iss = append(iss, v.checkObject(s, value.(map[string]any), path)...)
	}

	iss = append(iss, v.checkCombinators(s, value, path)...)

	if s.If != nil {
		if len(v.validate(value, s.If, path)) == 0 {
			if s.Then != nil {
				iss = append(iss, v.validate(value, s.Then, path)...)
			}
		} else if s.Else != nil {
			iss = append(iss, v.validate(value, s.Else, path)...)
		}
	}
	return iss
}

func (v *Validator) checkString(s *jsonschema.Schema, str string, path []string) Issues {
	var iss Issues
	n := utf8.RuneCountInString(str)
	if s.MinLength != nil && n < *s.MinLength {
		iss = append(iss, v.issue(s, path, KeywordMinLength, str,
			fmt.Sprintf("length %d is less than minLength %d", n, *s.MinLength)))
	}
	if s.MaxLength != nil && n > *s.MaxLength {
		iss = append(iss, v.issue(s, path, KeywordMaxLength, str,
			fmt.Sprintf("length %d exceeds maxLength %d", n, *s.MaxLength)))
	}
	if s.Pattern != "" {
		if re := v.pattern(s.Pattern); re != nil && !re.MatchString(str) {
			iss = append(iss, v.issue(s, path, KeywordPattern, str,
				fmt.Sprintf("value does not match pattern %q", s.Pattern)))
		}
	}
	if s.Format != "" && !jsonschema.CheckFormat(s.Format, str) {
		iss = append(iss, v.issue(s, path, KeywordFormat, str,
			fmt.Sprintf("value is not a valid %s", s.Format)))
	}
	return iss
}

func (v *Validator) checkNumber(s *jsonschema.Schema, f float64, path []string) Issues {
	var iss Issues
	if s.Minimum != nil && f < *s.Minimum {
		iss = append(iss, v.issue(s, path, KeywordMinimum, f,
			fmt.Sprintf("%v is less than minimum %v", f, *s.Minimum)))
	}
	if s.Maximum != nil && f > *s.Maximum {
		iss = append(iss, v.issue(s, path, KeywordMaximum, f,
			fmt.Sprintf("%v exceeds maximum %v", f, *s.Maximum)))
	}
	if s.ExclusiveMinimum != nil && f <= *s.ExclusiveMinimum {
		iss = append(iss, v.issue(s, path, KeywordExclusiveMinimum, f,
			fmt.Sprintf("%v is not greater than exclusiveMinimum %v", f, *s.ExclusiveMinimum)))
	}
	if s.ExclusiveMaximum != nil && f >= *s.ExclusiveMaximum {
		iss = append(iss, v.issue(s, path, KeywordExclusiveMaximum, f,
			fmt.Sprintf("%v is not less than exclusiveMaximum %v", f, *s.ExclusiveMaximum)))
	}
	if s.MultipleOf != nil && *s.MultipleOf != 0 {
		// ordinary remainder; inherits float imprecision
		if math.Mod(f, *s.MultipleOf) != 0 {
			iss = append(iss, v.issue(s, path, KeywordMultipleOf, f,
				fmt.Sprintf("%v is not a multiple of %v", f, *s.MultipleOf)))
		}
	}
	return iss
}

func (v *Validator) checkArray(s *jsonschema.Schema, arr []any, path []string) Issues {
	var iss Issues
	if s.MinItems != nil && len(arr) < *s.MinItems {
		iss = append(iss, v.issue(s, path, KeywordMinItems, nil,
			fmt.Sprintf("%d items is fewer than minItems %d", len(arr), *s.MinItems)))
	}
	if s.MaxItems != nil && len(arr) > *s.MaxItems {
		iss = append(iss, v.issue(s, path, KeywordMaxItems, nil,
			fmt.Sprintf("%d items exceeds maxItems %d", len(arr), *s.MaxItems)))
	}
	if s.UniqueItems && len(arr) > 1 {
		seen := make(map[string]struct{}, len(arr))
		for _, el := range arr {
			key, err := json.Marshal(el)
			if err != nil {
				continue
			}
			if _, dup := seen[string(key)]; dup {
				iss = append(iss, v.issue(s, path, KeywordUniqueItems, nil, "array items are not unique"))
				break
			}
			seen[string(key)] = struct{}{}
		}
	}

	switch {
	case len(s.TupleItems) > 0:
		for i, el := range arr {
			child := childPath(path, indexSegment(i))
			if i < len(s.TupleItems) {
				iss = append(iss, v.validate(el, s.TupleItems[i], child)...)
				continue
			}
			ai := s.AdditionalItems
			if ai == nil {
				continue
			}
			if ai.Schema != nil {
				iss = append(iss, v.validate(el, ai.Schema, child)...)
			} else if !ai.Bool {
				iss = append(iss, Issue{Path: child, Keyword: KeywordAdditionalItems, Schema: s, Value: el,
					Message: fmt.Sprintf("item %d is not allowed beyond the tuple", i)})
			}
		}
	case s.Items != nil:
		for i, el := range arr {
			iss = append(iss, v.validate(el, s.Items, childPath(path, indexSegment(i)))...)
		}
	}

	if s.Contains != nil {
		found := false
		for i, el := range arr {
			if len(v.validate(el, s.Contains, childPath(path, indexSegment(i)))) == 0 {
				found = true
				break
			}
		}
		if !found {
			iss = append(iss, v.issue(s, path, KeywordContains, nil, "no item matches contains"))
		}
	}
	return iss
}

func (v *Validator) checkObject(s *jsonschema.Schema, obj map[string]any, path []string) Issues {
	var iss Issues
	if s.MinProperties != nil && len(obj) < *s.MinProperties {
		iss = append(iss, v.issue(s, path, KeywordMinProperties, nil,
			fmt.Sprintf("%d properties is fewer than minProperties %d", len(obj), *s.MinProperties)))
	}
	if s.MaxProperties != nil && len(obj) > *s.MaxProperties {
		iss = append(iss, v.issue(s, path, KeywordMaxProperties, nil,
			fmt.Sprintf("%d properties exceeds maxProperties %d", len(obj), *s.MaxProperties)))
	}
	for _, name := range s.Required {
		if _, ok := obj[name]; !ok {
			iss = append(iss, v.issue(s, path, KeywordRequired, nil,
				fmt.Sprintf("missing required property %q", name)))
		}
	}
	for name, sub := range s.Properties {
		if val, ok := obj[name]; ok {
			iss = append(iss, v.validate(val, sub, childPath(path, name))...)
		}
	}
	for pat, sub := range s.PatternProperties {
		re := v.pattern(pat)
		if re == nil {
			continue
		}
		for name, val := range obj {
			if re.MatchString(name) {
				iss = append(iss, v.validate(val, sub, childPath(path, name))...)
			}
		}
	}
	if ap := s.AdditionalProperties; ap != nil && (ap.Schema != nil || !ap.Bool) {
		for name, val := range obj {
			if _, known := s.Properties[name]; known {
				continue
			}
			if v.matchesAnyPattern(s, name) {
				continue
			}
			if ap.Schema != nil {
				iss = append(iss, v.validate(val, ap.Schema, childPath(path, name))...)
			} else {
				iss = append(iss, Issue{Path: childPath(path, name), Keyword: KeywordAdditionalProperties,
					Schema: s, Value: val, Message: fmt.Sprintf("unknown property %q", name)})
			}
		}
	}
	if s.PropertyNames != nil {
		for name := range obj {
			if len(v.validate(name, s.PropertyNames, childPath(path, name))) > 0 {
				iss = append(iss, Issue{Path: childPath(path, name), Keyword: KeywordPropertyNames,
					Schema: s, Value: name, Message: fmt.Sprintf("property name %q is not allowed", name)})
			}
		}
	}
	return iss
}

func (v *Validator) checkCombinators(s *jsonschema.Schema, value any, path []string) Issues {
	var iss Issues
	for _, sub := range s.AllOf {
		iss = append(iss, v.validate(value, sub, path)...)
	}
	if len(s.AnyOf) > 0 {
		ok := false
		for _, sub := range s.AnyOf {
			if len(v.validate(value, sub, path)) == 0 {
				ok = true
				break
			}
		}
		if !ok {
			iss = append(iss, v.issue(s, path, KeywordAnyOf, value, "value matches no anyOf branch"))
		}
	}
	if len(s.OneOf) > 0 {
		matches := 0
		for _, sub := range s.OneOf {
			if len(v.validate(value, sub, path)) == 0 {
				matches++
			}
		}
		if matches != 1 {
			iss = append(iss, v.issue(s, path, KeywordOneOf, value,
				fmt.Sprintf("value matches %d oneOf branches, want exactly 1", matches)))
		}
	}
	if s.Not != nil {
		if len(v.validate(value, s.Not, path)) == 0 {
			iss = append(iss, v.issue(s, path, KeywordNot, value, "value matches the not schema"))
		}
	}
	return iss
}

func (v *Validator) issue(s *jsonschema.Schema, path []string, keyword string, value any, msg string) Issue {
	return Issue{Path: append([]string(nil), path...), Keyword: keyword, Message: msg, Schema: s, Value: value}
}

func (v *Validator) matchesAnyPattern(s *jsonschema.Schema, name string) bool {
	for pat := range s.PatternProperties {
		if re := v.pattern(pat); re != nil && re.MatchString(name) {
			return true
		}
	}
	return false
}

// pattern compiles and caches a regex; malformed patterns are ignored rather
// than turned into issues.
func (v *Validator) pattern(pat string) *regexp.Regexp {
	if re, ok := v.patterns[pat]; ok {
		return re
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		re = nil
	}
	v.patterns[pat] = re
	return re
}

func childPath(path []string, seg string) []string {
	out := make([]string, 0, len(path)+1)
	out = append(out, path...)
	return append(out, seg)
}

func indexSegment(i int) string { return fmt.Sprintf("%d", i) }

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64, int, int64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}

func typeMismatchMessage(types []string, kind string) string {
	return fmt.Sprintf("expected %s, got %s", strings.Join(types, " or "), kind)
}

func typeMatches(types []string, kind string, value any) bool {
	for _, t := range types {
		if t == kind {
			return true
		}
		if t == "integer" && kind == "number" && isIntegral(value) {
			return true
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}

func isIntegral(v any) bool {
	f, ok := toFloat(v)
	return ok && f == math.Trunc(f)
}

// deepEqual is the structural equality used by const and enum: arrays
// elementwise, objects by key set and values, numbers by numeric value.
func deepEqual(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !deepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, x := range av {
			y, ok := bv[k]
			if !ok || !deepEqual(x, y) {
				return false
			}
		}
		return true
	default:
		af, aok := toFloat(a)
		bf, bok := toFloat(b)
		return aok && bok && af == bf
	}
}
