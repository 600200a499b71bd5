package lib

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/qri-io/jsonschema"
)

// CompileSchema parses a JSON schema document.
func CompileSchema(schemaString string) (*jsonschema.Schema, error) {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(schemaString), rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// MustCompileSchema is CompileSchema for package-level schema literals.
func MustCompileSchema(schemaString string) *jsonschema.Schema {
	rs, err := CompileSchema(schemaString)
	if err != nil {
		panic(err)
	}
	return rs
}

// ValidateJSON validates content against schema and returns an InvalidArgument
// error listing every violation.
func ValidateJSON(ctx context.Context, schema *jsonschema.Schema, content []byte) error {
	keyErrors, err := schema.ValidateBytes(ctx, content)
	if err != nil {
		return InvalidArgumentError(err.Error())
	}
	if len(keyErrors) == 0 {
		return nil
	}

	messages := make([]string, 0, len(keyErrors))
	for _, keyError := range keyErrors {
		messages = append(messages, keyError.Error())
	}
	return InvalidArgumentError(strings.Join(messages, "; "))
}
