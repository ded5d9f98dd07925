package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	santhosh "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/atviroplatforma/appcore/internal/core/domain"
)

// SchemaViolationError is returned when record data does not conform to the
// entity's declared JSON schema. Errors holds machine-readable details.
type SchemaViolationError struct {
	Entity string
	Errors []string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema validation failed for %s: %s", e.Entity, strings.Join(e.Errors, "; "))
}

// SchemaService validates record data against the JSON schemas declared per
// entity. Schemas are compiled once at startup; lookups afterwards are
// read-only.
type SchemaService struct {
	compiled map[string]*santhosh.Schema
}

func NewSchemaService(entities []domain.EntityDefinition) (*SchemaService, error) {
	compiled := make(map[string]*santhosh.Schema, len(entities))
	for _, e := range entities {
		if len(e.Schema) == 0 {
			continue
		}
		sch, err := compileSchema(e.Schema)
		if err != nil {
			return nil, fmt.Errorf("entity %s: compile schema: %w", e.Name, err)
		}
		compiled[e.Name] = sch
	}
	return &SchemaService{compiled: compiled}, nil
}

// Validate checks data against the entity's schema. Entities without a
// declared schema pass. Returns *SchemaViolationError on failure.
func (s *SchemaService) Validate(entity string, data json.RawMessage) error {
	sch, ok := s.compiled[entity]
	if !ok {
		return nil
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		var ve *santhosh.ValidationError
		if errors.As(err, &ve) {
			return &SchemaViolationError{Entity: entity, Errors: collectValidationErrors(ve)}
		}
		return &SchemaViolationError{Entity: entity, Errors: []string{err.Error()}}
	}
	return nil
}

func compileSchema(schemaJSON json.RawMessage) (*santhosh.Schema, error) {
	compiler := santhosh.NewCompiler()
	compiler.Draft = santhosh.Draft7
	if err := compiler.AddResource("schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
}

func collectValidationErrors(ve *santhosh.ValidationError) []string {
	var msgs []string
	for _, cause := range ve.Causes {
		msgs = append(msgs, collectValidationErrors(cause)...)
	}
	if len(ve.Causes) == 0 {
		msgs = append(msgs, ve.Error())
	}
	return msgs
}
