package cql2

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/cql2.json
var cql2SchemaJSON []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaLoadErr  error
)

// loadSchema lazily compiles the bundled schema exactly once, the same
// double-checked-init idiom the grammar parser uses for its own
// one-time participle.Build call.
func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("cql2.json", bytes.NewReader(cql2SchemaJSON)); err != nil {
			schemaLoadErr = err
			return
		}
		compiledSchema, schemaLoadErr = compiler.Compile("cql2.json")
	})
	return compiledSchema, schemaLoadErr
}

// Validate checks a decoded cql2-json document (as produced by
// json.Unmarshal into interface{}, or by ToValue) against the bundled
// CQL2 JSON Schema. The document is first passed through a
// json.Marshal/json.Unmarshal round trip, so ToValue's ordered operation
// structs and int64 values reach the schema validator as plain decoded
// JSON. On failure the ValidationError's Path is the JSON pointer of the
// offending instance location.
func Validate(doc interface{}) error {
	schema, err := loadSchema()
	if err != nil {
		return &IoError{Path: "schema/cql2.json", Err: err}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return &ValidationError{Message: err.Error()}
	}
	var normalized interface{}
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return &ValidationError{Message: err.Error()}
	}
	if err := schema.Validate(normalized); err != nil {
		verr := &ValidationError{Message: err.Error()}
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			verr.Path = ve.InstanceLocation
		}
		return verr
	}
	return nil
}

// ValidateJSON parses and validates a raw cql2-json document.
func ValidateJSON(data []byte) error {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return &ParseError{Message: err.Error(), Input: string(data)}
	}
	return Validate(doc)
}

// IsValid reports whether text is both syntactically parseable
// cql2-text and schema-valid once projected to cql2-json.
func IsValid(text string) bool {
	e, err := ParseText(text)
	if err != nil {
		return false
	}
	v, err := ToValue(e)
	if err != nil {
		return false
	}
	return Validate(v) == nil
}
