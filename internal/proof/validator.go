package proof

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrValidation can be used with errors.Is to detect proof payloads rejected
// before any store access.
var ErrValidation = errors.New("proof validation failed")

//go:embed schemas/*.json
var schemaFS embed.FS

// Validator checks proof submissions against the per-job-type schema.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles the embedded schemas. The file name (minus .json) is
// the job type it validates.
func NewValidator() (*Validator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read embedded schemas: %w", err)
	}
	schemas := make(map[string]*jsonschema.Schema)
	for _, e := range entries {
		jobType := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		data, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", e.Name(), err)
		}
		id := "https://taskpago.dev/schemas/proof." + jobType
		schemas[jobType], err = jsonschema.CompileString(id, string(data))
		if err != nil {
			return nil, fmt.Errorf("compile proof schema %q: %w", jobType, err)
		}
	}
	return &Validator{schemas: schemas}, nil
}

// Validate hard-rejects a proof payload that does not match the job type's
// schema. Unknown job types fall back to the manual schema.
func (v *Validator) Validate(jobType string, payload json.RawMessage) error {
	schema, ok := v.schemas[jobType]
	if !ok {
		schema, ok = v.schemas["manual"]
		if !ok {
			return fmt.Errorf("no proof schema for job type %q", jobType)
		}
	}
	var doc interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrValidation, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
