package catalogs

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const (
	schemaSpecies      = "species.schema.json"
	schemaSpriteSets   = "sprite_sets.schema.json"
	schemaSpriteLayers = "sprite_layers.schema.json"
	schemaMarkings     = "markings.schema.json"
)

var (
	schemaOnce sync.Once
	schemaErr  error
	compiled   map[string]*jsonschema.Schema
)

func compileSchemas() {
	compiled = map[string]*jsonschema.Schema{}
	c := jsonschema.NewCompiler()
	names := []string{schemaSpecies, schemaSpriteSets, schemaSpriteLayers, schemaMarkings}
	for _, name := range names {
		b, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			schemaErr = err
			return
		}
		if err := c.AddResource(name, bytes.NewReader(b)); err != nil {
			schemaErr = fmt.Errorf("%s: %w", name, err)
			return
		}
	}
	for _, name := range names {
		s, err := c.Compile(name)
		if err != nil {
			schemaErr = fmt.Errorf("%s: %w", name, err)
			return
		}
		compiled[name] = s
	}
}

// validateDoc checks a raw catalog file against one of the embedded schemas.
func validateDoc(schema string, raw []byte) error {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return compiled[schema].Validate(doc)
}
