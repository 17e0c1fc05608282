package protocol

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator checks inbound client messages against the JSON schemas under
// the schemas directory.
type Validator struct {
	byType map[string]*jsonschema.Schema
}

var inboundSchemas = map[string]string{
	TypeHello:  "hello.schema.json",
	TypeModify: "modify.schema.json",
}

func LoadValidator(dir string) (*Validator, error) {
	v := &Validator{byType: map[string]*jsonschema.Schema{}}
	for typ, name := range inboundSchemas {
		s, err := jsonschema.Compile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", name, err)
		}
		v.byType[typ] = s
	}
	return v, nil
}

// Validate reports whether raw is a valid message of type typ. Types without
// a schema pass. A nil Validator accepts everything.
func (v *Validator) Validate(typ string, raw []byte) error {
	if v == nil {
		return nil
	}
	s, ok := v.byType[typ]
	if !ok {
		return nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return s.Validate(doc)
}
