package analyze

import (
	"bytes"
	_ "embed"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed catalog.schema.json
var catalogSchemaJSON []byte

const catalogSchemaURL = "file:///shopcard/catalog.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func loadSchema() {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(catalogSchemaURL, bytes.NewReader(catalogSchemaJSON)); err != nil {
		schemaErr = err
		return
	}
	schema, schemaErr = c.Compile(catalogSchemaURL)
}

// validateCatalog checks a decoded provider answer against the catalog schema
func validateCatalog(v any) error {
	schemaOnce.Do(loadSchema)
	if schemaErr != nil {
		return schemaErr
	}
	return schema.Validate(v)
}
