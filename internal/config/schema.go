package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// configSchema rejects structurally broken configs before mapstructure gets a
// chance to weakly coerce them. Semantic limits are checked in validation.go.
const configSchema = `{
  "type": "object",
  "required": ["risk", "instrument"],
  "properties": {
    "risk": {
      "type": "object",
      "required": [
        "stop_loss",
        "take_profit",
        "max_trades_per_day",
        "max_daily_loss",
        "max_runtime_seconds",
        "tick_interval_seconds"
      ],
      "properties": {
        "stop_loss": {"type": "number"},
        "take_profit": {"type": "number"},
        "max_trades_per_day": {"type": "integer"},
        "max_daily_loss": {"type": "number"},
        "max_runtime_seconds": {"type": "integer"},
        "tick_interval_seconds": {"type": "integer"}
      }
    },
    "instrument": {
      "type": "object",
      "required": ["underlying_key", "quantity"],
      "properties": {
        "underlying_key": {"type": "string"},
        "quantity": {"type": "integer"}
      }
    },
    "broker": {
      "type": "object",
      "properties": {
        "mode": {"type": "string", "enum": ["live", "paper"]}
      }
    }
  }
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.schema.json", strings.NewReader(configSchema)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("config.schema.json")
}

func validateSchema(settings map[string]any) error {
	// Round-trip through JSON so viper's map types become plain
	// json-compatible values the validator understands.
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding config for schema check failed: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decoding config for schema check failed: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("config schema validation failed: %w", err)
	}
	return nil
}
