package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "keydogger-config.schema.json"

// configSchema describes the document shape. Unknown keys are rejected so
// that misspelled settings do not silently fall back to defaults.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "input": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "device": {"type": "string"}
      }
    },
    "output": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "name": {"type": "string", "minLength": 1, "maxLength": 79},
        "vendor": {"type": "integer", "minimum": 0, "maximum": 65535},
        "product": {"type": "integer", "minimum": 0, "maximum": 65535}
      }
    },
    "abbreviations": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "file": {"type": "string"},
        "watch": {"type": "boolean"},
        "entries": {
          "type": "object",
          "additionalProperties": {"type": "string", "minLength": 1}
        }
      }
    },
    "logging": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "level": {"enum": ["debug", "info", "warn", "warning", "error", "DEBUG", "INFO", "WARN", "WARNING", "ERROR"]},
        "format": {"enum": ["text", "json"]},
        "output": {"enum": ["stderr", "stdout", "file", "both"]},
        "file_path": {"type": "string"},
        "max_size_mb": {"type": "integer", "minimum": 1},
        "max_backups": {"type": "integer", "minimum": 0},
        "compress": {"type": "boolean"}
      }
    },
    "history": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "enabled": {"type": "boolean"},
        "path": {"type": "string"},
        "retention_days": {"type": "integer", "minimum": 0}
      }
    },
    "notify": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "enabled": {"type": "boolean"}
      }
    },
    "privileges": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "require_root": {"type": "boolean"}
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, strings.NewReader(configSchema)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// ValidateDocument checks a decoded configuration document (from TOML,
// JSON or YAML) against the configuration schema.
func ValidateDocument(doc any) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}

	if m, ok := doc.(map[string]any); ok && m == nil {
		doc = map[string]any{}
	}

	// Normalise TOML/YAML value types to what encoding/json produces.
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var normalized any
	if err := dec.Decode(&normalized); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}

	if err := schema.Validate(normalized); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}
