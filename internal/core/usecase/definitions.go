package usecase

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	santhosh "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/atviroplatforma/appcore/internal/core/domain"
)

//go:embed meta_schema.json
var metaSchemaJSON []byte

var compileMetaSchema = sync.OnceValues(func() (*santhosh.Schema, error) {
	sch, err := compileSchema(metaSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("compile declarations meta-schema: %w", err)
	}
	return sch, nil
})

type declarationsFile struct {
	Entities []domain.EntityDefinition `json:"entities"`
}

// LoadEntityDefinitions parses the startup declarations document. The raw
// JSON is checked against the embedded meta-schema first so authoring
// mistakes fail with field-level messages, then each definition runs its own
// structural validation. Entity names must be unique.
func LoadEntityDefinitions(raw []byte) ([]domain.EntityDefinition, error) {
	sch, err := compileMetaSchema()
	if err != nil {
		return nil, err
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("entity declarations must be valid json: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, fmt.Errorf("entity declarations invalid: %w", err)
	}

	var file declarationsFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode entity declarations: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Entities))
	for _, def := range file.Entities {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[def.Name]; dup {
			return nil, fmt.Errorf("entity %s is declared twice", def.Name)
		}
		seen[def.Name] = struct{}{}
	}
	return file.Entities, nil
}
