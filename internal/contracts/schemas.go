package contracts

import (
	"brokerage-backoffice/internal/core/domain"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas
var schemasFS embed.FS

// ListingSchemaPath - путь схемы записи объявления внутри встроенной ФС.
const ListingSchemaPath = "schemas/listing/v1.json"

// SchemaValidator проверяет записи по встроенным JSON-схемам.
type SchemaValidator struct {
	compiled map[string]*jsonschema.Schema
}

// NewSchemaValidator регистрирует все встроенные схемы как ресурсы (чтобы работали $ref) и компилирует их.
func NewSchemaValidator() (*SchemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	var paths []string
	err := fs.WalkDir(schemasFS, "schemas", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		file, err := schemasFS.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		if err := compiler.AddResource(path, file); err != nil {
			return fmt.Errorf("failed to add schema resource %s: %w", path, err)
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking schema resources: %w", err)
	}

	v := &SchemaValidator{compiled: make(map[string]*jsonschema.Schema, len(paths))}
	for _, path := range paths {
		schema, err := compiler.Compile(path)
		if err != nil {
			return nil, fmt.Errorf("could not compile schema %s: %w", path, err)
		}
		v.compiled[path] = schema
	}
	return v, nil
}

// Validate сериализует значение в JSON и проверяет по схеме path.
func (v *SchemaValidator) Validate(path string, value any) error {
	schema, ok := v.compiled[path]
	if !ok {
		return fmt.Errorf("schema %q not found", path)
	}

	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("value is not serializable: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("value is not a valid JSON: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return toValidationError(ve)
		}
		return fmt.Errorf("JSON schema validation failed: %w", err)
	}
	return nil
}

// ValidateListing реализует port.ListingValidatorPort.
func (v *SchemaValidator) ValidateListing(listing domain.Listing) error {
	return v.Validate(ListingSchemaPath, listing)
}

// toValidationError берет самую глубокую причину и превращает JSON-pointer в имя поля через точку.
func toValidationError(ve *jsonschema.ValidationError) *domain.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	field := strings.ReplaceAll(strings.TrimPrefix(ve.InstanceLocation, "/"), "/", ".")
	return domain.NewValidationError(field, ve.Message)
}
