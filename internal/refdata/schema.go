package refdata

import (
	"bytes"
	"embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"myth-quiz-service/internal/domain"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

// validateDocument checks a raw reference document against its embedded schema.
func validateDocument(name string, raw []byte) error {
	compileOnce.Do(func() {
		compiled, compileErr = compileSchemas()
	})
	if compileErr != nil {
		return compileErr
	}
	schema, ok := compiled[name]
	if !ok {
		return fmt.Errorf("no schema registered for %q", name)
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %s document is not valid JSON: %v", domain.ErrInvalidReference, name, err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("%w: %s document: %v", domain.ErrInvalidReference, name, err)
	}
	return nil
}

func compileSchemas() (map[string]*jsonschema.Schema, error) {
	out := make(map[string]*jsonschema.Schema, 2)
	for _, name := range []string{DocQuestions, DocScoring} {
		raw, err := schemaFS.ReadFile("schemas/" + name + ".schema.json")
		if err != nil {
			return nil, fmt.Errorf("read %s schema: %w", name, err)
		}
		def, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse %s schema: %w", name, err)
		}

		c := jsonschema.NewCompiler()
		url := fmt.Sprintf("schema://%s.json", name)
		if err := c.AddResource(url, def); err != nil {
			return nil, fmt.Errorf("add %s schema: %w", name, err)
		}
		schema, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", name, err)
		}
		out[name] = schema
	}
	return out, nil
}
