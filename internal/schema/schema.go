// Package schema holds the per-operation input contracts. A Schema is a
// static table of typed fields; its JSON Schema rendering is both what
// tools/list publishes and what incoming arguments are validated against.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Kind is the JSON type of a field.
type Kind string

const (
	String      Kind = "string"
	Boolean     Kind = "boolean"
	Number      Kind = "number"
	StringArray Kind = "array"
)

// Field describes one named input.
type Field struct {
	Name        string
	Kind        Kind
	Description string
	Required    bool
	Default     any
	Enum        []string
}

// Schema is an immutable, compiled input contract for one operation.
type Schema struct {
	name     string
	fields   []Field
	doc      json.RawMessage
	compiled *jsonschema.Schema
}

// New builds and compiles a schema. The catalog is static, so a field table
// that does not compile is a programming error.
func New(name string, fields ...Field) *Schema {
	s, err := Compile(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Compile builds a schema and reports compile errors.
func Compile(name string, fields ...Field) (*Schema, error) {
	doc, err := render(fields)
	if err != nil {
		return nil, fmt.Errorf("render schema for %s: %w", name, err)
	}
	compiled, err := jsonschema.CompileString(name+".json", string(doc))
	if err != nil {
		return nil, fmt.Errorf("invalid inputSchema for %s: %w", name, err)
	}
	return &Schema{
		name:     name,
		fields:   append([]Field(nil), fields...),
		doc:      doc,
		compiled: compiled,
	}, nil
}

// JSON returns the JSON Schema document.
func (s *Schema) JSON() json.RawMessage {
	return append(json.RawMessage(nil), s.doc...)
}

// Fields returns a copy of the field table.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Validate checks raw arguments and returns the typed input with defaults
// applied. Absent or null arguments are treated as an empty object; fields
// not declared by the schema are dropped.
func (s *Schema) Validate(raw json.RawMessage) (Input, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}

	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return Input{}, &Violation{
			Operation: s.name,
			Errors:    []FieldError{{Field: "", Message: "arguments are not valid JSON: " + err.Error()}},
		}
	}

	if err := s.compiled.Validate(decoded); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return Input{}, &Violation{Operation: s.name, Errors: collectLeaves(ve)}
		}
		return Input{}, fmt.Errorf("args schema validation failed for %s: %w", s.name, err)
	}

	obj, _ := decoded.(map[string]any)
	values := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		v, ok := obj[f.Name]
		if !ok {
			if f.Default != nil {
				values[f.Name] = f.Default
			}
			continue
		}
		values[f.Name] = normalize(f.Kind, v)
	}
	return Input{values: values}, nil
}

func normalize(kind Kind, v any) any {
	if kind != StringArray {
		return v
	}
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.(string))
	}
	return out
}

func render(fields []Field) (json.RawMessage, error) {
	props := make(map[string]any, len(fields))
	var required []string
	for _, f := range fields {
		p := map[string]any{"type": string(f.Kind)}
		if f.Kind == StringArray {
			p["items"] = map[string]any{"type": "string"}
		}
		if f.Description != "" {
			p["description"] = f.Description
		}
		if len(f.Enum) > 0 {
			p["enum"] = f.Enum
		}
		if f.Default != nil {
			p["default"] = f.Default
		}
		props[f.Name] = p
		if f.Required {
			required = append(required, f.Name)
		}
	}

	doc := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return json.Marshal(doc)
}

// FieldError names one offending field. Field is empty for errors about the
// arguments object as a whole.
type FieldError struct {
	Field   string
	Message string
}

// Violation is returned when arguments do not satisfy the schema.
type Violation struct {
	Operation string
	Errors    []FieldError
}

func (v *Violation) Error() string {
	parts := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		if e.Field == "" {
			parts = append(parts, e.Message)
			continue
		}
		parts = append(parts, e.Field+": "+e.Message)
	}
	return fmt.Sprintf("invalid arguments for %s: %s", v.Operation, strings.Join(parts, "; "))
}

// Fields lists the offending field names.
func (v *Violation) Fields() []string {
	var out []string
	for _, e := range v.Errors {
		if e.Field != "" {
			out = append(out, e.Field)
		}
	}
	return out
}

const missingPrefix = "missing properties: "

func collectLeaves(err *jsonschema.ValidationError) []FieldError {
	var out []FieldError
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}
		if strings.HasPrefix(e.Message, missingPrefix) {
			for _, name := range strings.Split(strings.TrimPrefix(e.Message, missingPrefix), ",") {
				name = strings.Trim(strings.TrimSpace(name), "'")
				out = append(out, FieldError{Field: name, Message: "required field is missing"})
			}
			return
		}
		field := strings.TrimPrefix(e.InstanceLocation, "/")
		msg := e.Message
		if msg == "" {
			msg = e.Error()
		}
		out = append(out, FieldError{Field: field, Message: msg})
	}
	walk(err)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}
