package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "timeit.schema.json"

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

// Schema returns the embedded JSON schema of the configuration file.
func Schema() string {
	return schemaJSON
}

func compiled() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
			compileErr = fmt.Errorf("invalid schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile(schemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("invalid schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// ValidateSchema checks raw configuration data against the embedded schema.
// YAML documents are normalized to JSON first so both formats are checked
// by the same rules. Every schema violation is reported.
func ValidateSchema(data []byte, path string) error {
	schema, err := compiled()
	if err != nil {
		return err
	}

	doc, err := toJSONValue(data, path)
	if err != nil {
		return err
	}

	err = schema.Validate(doc)
	if err == nil {
		return nil
	}

	errs := &ValidationErrors{}
	if validationErr, ok := err.(*jsonschema.ValidationError); ok {
		collectSchemaErrors(validationErr, errs)
	}
	if !errs.HasErrors() {
		errs.Add("", err.Error())
	}
	return errs
}

// toJSONValue decodes data into the generic value model expected by the
// schema validator.
func toJSONValue(data []byte, path string) (interface{}, error) {
	var raw []byte
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		raw = data
	} else {
		var v interface{}
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
		if v == nil {
			v = map[string]interface{}{}
		}
		converted, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize YAML config: %w", err)
		}
		raw = converted
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON config: %w", err)
	}
	return doc, nil
}

// collectSchemaErrors flattens the leaf causes of a schema violation.
func collectSchemaErrors(err *jsonschema.ValidationError, errs *ValidationErrors) {
	if len(err.Causes) == 0 {
		field := strings.TrimPrefix(err.InstanceLocation, "/")
		field = strings.ReplaceAll(field, "/", ".")
		errs.Add(field, err.Message)
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(cause, errs)
	}
}
