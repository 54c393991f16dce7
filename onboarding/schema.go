package onboarding

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	invopop "github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonschema"
)

var (
	recordSchemaOnce sync.Once
	recordSchemaJSON []byte
	recordSchemaErr  error

	compiledOnce sync.Once
	compiled     *jsonschema.Schema
	compileErr   error

	validate = newStructValidator()
)

// Schema returns the JSON schema of Record as a fresh map. Every object
// level is closed to additional properties and every field is required.
// It panics if Record cannot be reflected.
func Schema() map[string]any {
	data, err := recordSchema()
	if err != nil {
		panic(err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Errorf("failed to decode onboarding schema: %w", err))
	}
	return out
}

func recordSchema() ([]byte, error) {
	recordSchemaOnce.Do(func() {
		reflector := &invopop.Reflector{
			DoNotReference:            true,
			ExpandedStruct:            true,
			AllowAdditionalProperties: false,
		}
		schema := reflector.Reflect(&Record{})
		raw, err := json.Marshal(schema)
		if err != nil {
			recordSchemaErr = fmt.Errorf("failed to marshal onboarding schema: %w", err)
			return
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			recordSchemaErr = fmt.Errorf("failed to decode onboarding schema: %w", err)
			return
		}
		// Tool parameters must be a bare schema object.
		delete(m, "$schema")
		delete(m, "$id")
		recordSchemaJSON, recordSchemaErr = json.Marshal(m)
	})
	return recordSchemaJSON, recordSchemaErr
}

// parameterSchema wraps the record schema as the single required argument of
// the completion action.
func parameterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			RecordArgument: Schema(),
		},
		"required":             []any{RecordArgument},
		"additionalProperties": false,
	}
}

func compiledParameters() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		raw, err := json.Marshal(parameterSchema())
		if err != nil {
			compileErr = fmt.Errorf("failed to marshal parameter schema: %w", err)
			return
		}
		compiled, err = jsonschema.NewCompiler().Compile(raw)
		if err != nil {
			compileErr = fmt.Errorf("failed to compile parameter schema: %w", err)
		}
	})
	return compiled, compileErr
}

// schemaProblems lists the leaf errors of a failed evaluation, sorted.
func schemaProblems(result *jsonschema.EvaluationResult) []string {
	seen := map[string]bool{}
	var problems []string
	// Each detail's instance location is relative to its parent.
	var walk func(r *jsonschema.EvaluationResult, base string)
	walk = func(r *jsonschema.EvaluationResult, base string) {
		if r == nil || r.Valid {
			return
		}
		pointer := base + r.InstanceLocation
		for keyword, e := range r.Errors {
			// Container keywords only summarise their children.
			if keyword == "properties" || keyword == "items" || keyword == "prefixItems" {
				continue
			}
			msg := location(pointer) + ": " + e.Error()
			if !seen[msg] {
				seen[msg] = true
				problems = append(problems, msg)
			}
		}
		for _, d := range r.Details {
			walk(d, pointer)
		}
	}
	walk(result, "")

	if len(problems) == 0 {
		for _, e := range result.Errors {
			problems = append(problems, e.Error())
		}
	}
	sort.Strings(problems)
	return problems
}

func location(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return "(root)"
	}
	return strings.ReplaceAll(pointer, "/", ".")
}

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// structProblems runs the validate tags of r and describes each failure by
// its JSON path.
func structProblems(r *Record) []string {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		path := strings.TrimPrefix(fe.Namespace(), "Record.")
		msg := fmt.Sprintf("%s: failed %q check", path, fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s: failed %q check (%s)", path, fe.Tag(), fe.Param())
		}
		problems = append(problems, msg)
	}
	sort.Strings(problems)
	return problems
}
