package onboarding

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/atmosuwiryo/onboarding-chatbot/unifiedllm"
)

const (
	// ToolName is the structured action the model calls to finish onboarding.
	ToolName = "mark_onboarding_complete"
	// RecordArgument is the single argument of ToolName.
	RecordArgument = "record"
)

const toolDescription = "Mark the onboarding as complete. Call this only after every field " +
	"has been collected from the user and confirmed. Pass the complete onboarding record."

// ValidationError lists every reason a completion payload was rejected.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid onboarding record: " + strings.Join(e.Problems, "; ")
}

// CompleteTool describes the completion action to the model.
func CompleteTool() unifiedllm.ToolDefinition {
	return unifiedllm.ToolDefinition{
		Name:        ToolName,
		Description: toolDescription,
		Parameters:  parameterSchema(),
	}
}

// ParseCompletion validates the arguments of a completion call and returns
// the record they carry. The payload must satisfy the JSON schema and the
// struct rules; otherwise a *ValidationError is returned.
func ParseCompletion(raw json.RawMessage) (*Record, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &ValidationError{Problems: []string{"arguments are empty"}}
	}

	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return nil, &ValidationError{Problems: []string{"arguments are not valid JSON: " + err.Error()}}
	}

	schema, err := compiledParameters()
	if err != nil {
		return nil, err
	}
	if result := schema.Validate(instance); !result.Valid {
		return nil, &ValidationError{Problems: schemaProblems(result)}
	}

	var args struct {
		Record *Record `json:"record"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&args); err != nil {
		return nil, &ValidationError{Problems: []string{"arguments do not match the record: " + err.Error()}}
	}
	if args.Record == nil {
		return nil, &ValidationError{Problems: []string{RecordArgument + ": is required"}}
	}

	if problems := structProblems(args.Record); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return args.Record, nil
}

// IsValidationError reports whether err is a rejected completion payload.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
