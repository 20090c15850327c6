package catalogs

import (
	"encoding/json"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const resourcesSchemaURL = "resources.schema.json"

const resourcesSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["resources"],
  "properties": {
    "resources": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type", "max_hp", "value", "currency"],
        "properties": {
          "type": {"type": "string", "minLength": 1},
          "model": {"type": "string"},
          "max_hp": {"type": "integer", "minimum": 1},
          "value": {"type": "integer", "minimum": 0},
          "currency": {"type": "string", "minLength": 1},
          "height": {"type": "number", "minimum": 0},
          "pitch": {"type": "number"},
          "roll": {"type": "number"},
          "ring_points": {"type": "integer", "minimum": 1, "maximum": 1024},
          "ring_radius": {"type": "number", "exclusiveMinimum": 0},
          "placement": {
            "type": "object",
            "properties": {
              "upright": {"type": "boolean"},
              "embed_ratio": {"type": "number", "minimum": 0, "maximum": 1},
              "min_distance": {"type": "number", "minimum": 0},
              "height_offset": {"type": "number"}
            },
            "additionalProperties": false
          }
        },
        "additionalProperties": false
      }
    },
    "spawn_tables": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "additionalProperties": {"type": "number", "minimum": 0}
      }
    }
  },
  "additionalProperties": false
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func resourcesSchemaCompiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString(resourcesSchemaURL, resourcesSchema)
	})
	return schema, schemaErr
}

func validateResources(raw []byte) error {
	s, err := resourcesSchemaCompiled()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return s.Validate(v)
}
