package observerproto

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const eventSchemaURL = "observer_event.schema.json"

const eventSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["type", "protocol_version", "kind", "world", "at_unix_ms"],
  "properties": {
    "type": {"const": "EVENT"},
    "protocol_version": {"type": "string"},
    "kind": {"enum": ["SPAWNED", "ENGAGED", "HP", "DEAD", "REMOVED", "COUNTERS"]},
    "world": {"type": "string", "minLength": 1},
    "at_unix_ms": {"type": "integer"},
    "resource": {
      "type": "object",
      "required": ["id", "type", "hp", "max_hp", "state", "pos"],
      "properties": {
        "id": {"type": "integer", "minimum": 1},
        "hp": {"type": "integer", "minimum": 0},
        "max_hp": {"type": "integer", "minimum": 1},
        "pos": {"type": "array", "items": {"type": "number"}, "minItems": 3, "maxItems": 3}
      }
    },
    "counters": {
      "type": "object",
      "required": ["current", "max"],
      "properties": {
        "current": {"type": "integer", "minimum": 0},
        "max": {"type": "integer", "minimum": 0}
      }
    },
    "payouts": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["attacker", "contribution", "amount"],
        "properties": {
          "attacker": {"type": "string", "minLength": 1},
          "amount": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// ValidateEvent checks an encoded EventMsg against the published observer schema.
func ValidateEvent(raw []byte) error {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString(eventSchemaURL, eventSchema)
	})
	if schemaErr != nil {
		return fmt.Errorf("observer schema: %w", schemaErr)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return schema.Validate(v)
}
