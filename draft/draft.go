// Package draft holds user-authored prediction drafts and their local JSON
// store. Drafts are templates the front-end lists, edits and submits; the
// session layer turns a draft into a live Helix prediction.
package draft

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// DefaultWindowSeconds is the prediction window applied when a draft leaves
// it unset.
const DefaultWindowSeconds = 90

// Draft is a stored prediction template.
type Draft struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Outcomes      []string `json:"outcomes"`
	WindowSeconds int      `json:"prediction_window"`
}

// draftSchema is the shape enforced before a draft is written to disk.
// Tighter Helix-side limits (title 45 chars, window cap) are enforced at
// submission time by the session layer.
const draftSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["title", "outcomes"],
	"properties": {
		"id": {"type": "string"},
		"title": {"type": "string", "minLength": 3, "maxLength": 100},
		"outcomes": {
			"type": "array",
			"minItems": 2,
			"maxItems": 10,
			"items": {"type": "string", "minLength": 1, "maxLength": 25}
		},
		"prediction_window": {"type": "integer", "minimum": 30}
	}
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(draftSchema)))
		if err != nil {
			schemaErr = fmt.Errorf("parse draft schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("draft.schema.json", doc); err != nil {
			schemaErr = fmt.Errorf("add draft schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("draft.schema.json")
	})
	return schema, schemaErr
}

// Validate checks a draft against the storage schema. The draft is marshaled
// and re-parsed so validation sees exactly what would land on disk.
func Validate(d Draft) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("reparse draft: %w", err)
	}

	if err := s.Validate(inst); err != nil {
		return fmt.Errorf("draft validation failed: %w", err)
	}
	return nil
}
